package tempfiles

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"tempsweep/internal/fsops"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

const scratch = "/scratch"

type recordingObserver struct {
	mu      sync.Mutex
	removed map[string]Reason
	marked  []string
	failed  []string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{removed: make(map[string]Reason)}
}

func (r *recordingObserver) Removed(path string, reason Reason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed[path] = reason
}

func (r *recordingObserver) Marked(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marked = append(r.marked, path)
}

func (r *recordingObserver) Failed(path, op string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, op+":"+path)
}

// newScratch returns a fake scratch directory holding the sentinel plus
// files f0..f(n-1), where fi was created (n-i) hours before now.
func newScratch(t *testing.T, n int) (*fsops.FakeFS, *Janitor, *recordingObserver) {
	t.Helper()
	f := fsops.NewFakeFS()
	f.Clock = func() time.Time { return now }
	f.Mkdir(scratch, now.Add(-1000*time.Hour))
	f.AddFile(fsops.Combine(scratch, DefaultCheckFileName), "", now.Add(-1000*time.Hour))
	for i := 0; i < n; i++ {
		f.AddFile(fsops.Combine(scratch, fmt.Sprintf("f%d", i)), "data", now.Add(-time.Duration(n-i)*time.Hour))
	}
	obs := newRecordingObserver()
	j := NewJanitor(f, WithClock(func() time.Time { return now }), WithObserver(obs))
	return f, j, obs
}
