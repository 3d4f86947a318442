package fsops

import (
	"path/filepath"
	"time"
)

// FS abstracts the filesystem operations used by housekeeping code.
// Enables running purges and sweeps against an in-memory fake in tests.
// Implementations must be safe for concurrent use.
type FS interface {
	Exists(path string) bool
	DirExists(path string) bool
	ListEntries(dir string) ([]Entry, error)
	// ListFilesMatching returns base names of regular files in dir whose
	// name matches pattern, compared case-insensitively.
	ListFilesMatching(dir, pattern string) ([]string, error)
	Remove(path string) error
	ReadText(path string) (string, error)
	WriteText(path, text string) error
	LastWriteTime(path string) (time.Time, error)
}

// Entry is one directory member observed during a scan
type Entry struct {
	Name         string
	FullPath     string
	CreationTime time.Time
	IsDir        bool
}

// Combine joins a directory and a base name
func Combine(dir, name string) string {
	return filepath.Join(dir, name)
}

// FileNameOf returns the last element of path
func FileNameOf(path string) string {
	return filepath.Base(path)
}
