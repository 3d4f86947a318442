package tempfiles

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tempsweep/internal/fsops"
)

// DefaultCheckFileName is the sentinel whose presence authorizes a purge
const DefaultCheckFileName = ".temporary"

// NoFileLimit disables count based eviction
const NoFileLimit = -1

// Policy configures a purge.
// The three knobs are independent and evaluated in sequence.
type Policy struct {
	// AutoExpire removes entries created longer ago than this. Zero disables.
	AutoExpire time.Duration
	// MaxFiles caps the entry count, oldest evicted first. Negative
	// disables; zero empties the directory.
	MaxFiles int
	// CheckFileName must exist in the directory for anything to be
	// deleted. Empty disables the check.
	CheckFileName string
}

// DefaultPolicy returns a policy with no limits guarded by the default sentinel
func DefaultPolicy() Policy {
	return Policy{MaxFiles: NoFileLimit, CheckFileName: DefaultCheckFileName}
}

// PurgeResult summarizes a Purge call
type PurgeResult struct {
	Skipped bool // sentinel missing, nothing scanned
	Expired int
	Evicted int
	Failed  int
}

// PurgeDirectory purges dir on fsys with a default Janitor
func PurgeDirectory(fsys fsops.FS, dir string, autoExpire time.Duration, maxFiles int, checkFileName string) error {
	_, err := NewJanitor(fsys).Purge(dir, Policy{
		AutoExpire:    autoExpire,
		MaxFiles:      maxFiles,
		CheckFileName: checkFileName,
	})
	return err
}

// Purge applies the age and count policies to the direct entries of dir.
// Individual deletion failures are skipped, so the final entry count may
// still exceed MaxFiles. Only enumeration failures are returned.
func (j *Janitor) Purge(dir string, p Policy) (PurgeResult, error) {
	var res PurgeResult

	check := normalizeCheckName(p.CheckFileName)
	if check != "" && !j.fs.Exists(fsops.Combine(dir, check)) {
		res.Skipped = true
		return res, nil
	}

	// A zero cap already deletes everything in the count pass
	if p.AutoExpire != 0 && p.MaxFiles != 0 {
		limit := j.now().Add(-p.AutoExpire)
		entries, err := j.fs.ListEntries(dir)
		if err != nil {
			return res, fmt.Errorf("list %s: %w", dir, err)
		}
		for _, e := range entries {
			if !e.CreationTime.Before(limit) || isCheckFile(e.Name, check) {
				continue
			}
			if j.tryRemove(e.FullPath, ReasonExpired) {
				res.Expired++
			} else {
				res.Failed++
			}
		}
	}

	if p.MaxFiles < 0 {
		return res, nil
	}

	entries, err := j.fs.ListEntries(dir)
	if err != nil {
		return res, fmt.Errorf("list %s: %w", dir, err)
	}
	if len(entries) <= p.MaxFiles {
		return res, nil
	}

	if p.MaxFiles != 0 {
		sort.SliceStable(entries, func(a, b int) bool {
			return entries[a].CreationTime.Before(entries[b].CreationTime)
		})
	}

	excess := len(entries) - p.MaxFiles
	for _, e := range entries[:excess] {
		if isCheckFile(e.Name, check) {
			continue
		}
		if j.tryRemove(e.FullPath, ReasonEvicted) {
			res.Evicted++
		} else {
			res.Failed++
		}
	}
	return res, nil
}

func normalizeCheckName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return base
}

func isCheckFile(name, check string) bool {
	return check != "" && strings.EqualFold(name, check)
}
