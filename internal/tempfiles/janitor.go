// Package tempfiles keeps scratch directories tidy: age and count based
// purges guarded by a sentinel file, failure tolerant deletes, and a
// mark-and-sweep path for files that are still held open when deleted.
//
// Every per-file failure is swallowed and reported to the Observer; only
// directory enumeration errors and the primary path of Delete surface to
// the caller.
package tempfiles

import (
	"time"

	"tempsweep/internal/fsops"
)

// Janitor runs housekeeping operations against a filesystem
type Janitor struct {
	fs       fsops.FS
	now      func() time.Time
	observer Observer
}

// Option configures a Janitor
type Option func(*Janitor)

// WithClock replaces time.Now as the reference for age comparisons
func WithClock(now func() time.Time) Option {
	return func(j *Janitor) {
		j.now = now
	}
}

// WithObserver reports removals and suppressed failures to o
func WithObserver(o Observer) Option {
	return func(j *Janitor) {
		if o != nil {
			j.observer = o
		}
	}
}

// NewJanitor creates a Janitor operating on fsys
func NewJanitor(fsys fsops.FS, opts ...Option) *Janitor {
	j := &Janitor{
		fs:       fsys,
		now:      time.Now,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}
