package disk

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// GetDiskUsage returns the percentage of disk space used by the filesystem holding path
func GetDiskUsage(path string) (usedPercent float64, freeBytes int64, totalBytes int64, err error) {
	var stat unix.Statfs_t
	if err = unix.Statfs(path, &stat); err != nil {
		return 0, 0, 0, err
	}

	totalBytes = int64(stat.Blocks) * int64(stat.Bsize)
	freeBytes = int64(stat.Bavail) * int64(stat.Bsize)
	usedBytes := totalBytes - freeBytes

	if totalBytes > 0 {
		usedPercent = (float64(usedBytes) / float64(totalBytes)) * 100.0
	}

	return usedPercent, freeBytes, totalBytes, nil
}

// GetFreePercent returns the percentage of free disk space
func GetFreePercent(path string) (float64, error) {
	usedPercent, _, _, err := GetDiskUsage(path)
	if err != nil {
		return 0, err
	}
	return 100.0 - usedPercent, nil
}

// IsNFSStale reports whether path sits on a hung or stale network mount:
// a stat that does not return within timeout, or fails with EIO, ESTALE
// or ENXIO. A purge over such a mount would block the whole cycle.
func IsNFSStale(path string, timeout time.Duration) bool {
	done := make(chan error, 1)

	go func() {
		_, err := os.Stat(path)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			return false
		}
		return os.IsTimeout(err) ||
			errors.Is(err, unix.EIO) ||
			errors.Is(err, unix.ESTALE) ||
			errors.Is(err, unix.ENXIO)
	case <-time.After(timeout):
		return true
	}
}
