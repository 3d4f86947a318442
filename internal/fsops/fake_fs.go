package fsops

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrLocked is returned for operations on a path held open by another process
	ErrLocked = errors.New("file is locked")
	// ErrNotEmpty is returned when removing a directory that still has children
	ErrNotEmpty = errors.New("directory not empty")
)

// Fault injection keys for FakeFS.FailOn
const (
	OpList   = "list"
	OpRead   = "read"
	OpWrite  = "write"
	OpRemove = "remove"
	OpStat   = "stat"
)

type fakeNode struct {
	isDir    bool
	data     string
	created  time.Time
	modified time.Time
}

// FakeFS implements FS in memory for testing.
// Records every mutating call and supports locked paths and injected failures.
type FakeFS struct {
	mu     sync.Mutex
	nodes  map[string]*fakeNode
	locked map[string]bool
	faults map[string]error

	// Clock stamps files created or rewritten through WriteText
	Clock func() time.Time
	Calls []string
}

// NewFakeFS returns an empty fake filesystem
func NewFakeFS() *FakeFS {
	return &FakeFS{
		nodes:  make(map[string]*fakeNode),
		locked: make(map[string]bool),
		faults: make(map[string]error),
		Clock:  time.Now,
	}
}

// Mkdir creates a directory (and missing parents) created at the given time
func (f *FakeFS) Mkdir(path string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mkdirLocked(filepath.Clean(path), at)
}

func (f *FakeFS) mkdirLocked(path string, at time.Time) {
	for p := path; ; p = filepath.Dir(p) {
		if _, ok := f.nodes[p]; !ok {
			f.nodes[p] = &fakeNode{isDir: true, created: at, modified: at}
		}
		if parent := filepath.Dir(p); parent == p {
			return
		}
	}
}

// AddFile creates or replaces a file whose creation and write time are at
func (f *FakeFS) AddFile(path, data string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	f.mkdirLocked(filepath.Dir(path), at)
	f.nodes[path] = &fakeNode{data: data, created: at, modified: at}
}

// Touch sets the last write time of an existing path
func (f *FakeFS) Touch(path string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.nodes[filepath.Clean(path)]; ok {
		n.modified = at
	}
}

// Lock makes Remove and WriteText fail for path until Unlock
func (f *FakeFS) Lock(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked[filepath.Clean(path)] = true
}

func (f *FakeFS) Unlock(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locked, filepath.Clean(path))
}

// FailOn makes op on path return err. A nil err clears the fault.
func (f *FakeFS) FailOn(op, path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := op + ":" + filepath.Clean(path)
	if err == nil {
		delete(f.faults, key)
		return
	}
	f.faults[key] = err
}

// Names returns the sorted base names of all children of dir
func (f *FakeFS) Names(dir string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, p := range f.childrenLocked(filepath.Clean(dir)) {
		names = append(names, filepath.Base(p))
	}
	return names
}

// Contents returns the text stored at path
func (f *FakeFS) Contents(path string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[filepath.Clean(path)]
	if !ok || n.isDir {
		return "", false
	}
	return n.data, true
}

func (f *FakeFS) childrenLocked(dir string) []string {
	var children []string
	for p := range f.nodes {
		if p != dir && filepath.Dir(p) == dir {
			children = append(children, p)
		}
	}
	sort.Strings(children)
	return children
}

func (f *FakeFS) faultLocked(op, path string) error {
	if err, ok := f.faults[op+":"+path]; ok {
		return &fs.PathError{Op: op, Path: path, Err: err}
	}
	return nil
}

func (f *FakeFS) Exists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.nodes[filepath.Clean(path)]
	return ok
}

func (f *FakeFS) DirExists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[filepath.Clean(path)]
	return ok && n.isDir
}

func (f *FakeFS) ListEntries(dir string) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dir = filepath.Clean(dir)
	if err := f.faultLocked(OpList, dir); err != nil {
		return nil, err
	}
	if n, ok := f.nodes[dir]; !ok || !n.isDir {
		return nil, &fs.PathError{Op: "readdir", Path: dir, Err: fs.ErrNotExist}
	}

	var entries []Entry
	for _, p := range f.childrenLocked(dir) {
		n := f.nodes[p]
		entries = append(entries, Entry{
			Name:         filepath.Base(p),
			FullPath:     p,
			CreationTime: n.created,
			IsDir:        n.isDir,
		})
	}
	return entries, nil
}

func (f *FakeFS) ListFilesMatching(dir, pattern string) ([]string, error) {
	entries, err := f.ListEntries(dir)
	if err != nil {
		return nil, err
	}
	pattern = strings.ToLower(pattern)
	var names []string
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		matched, err := filepath.Match(pattern, strings.ToLower(e.Name))
		if err != nil {
			return nil, err
		}
		if matched {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

func (f *FakeFS) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	f.Calls = append(f.Calls, "rm:"+path)

	if err := f.faultLocked(OpRemove, path); err != nil {
		return err
	}
	n, ok := f.nodes[path]
	if !ok {
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
	}
	if f.locked[path] {
		return &fs.PathError{Op: "remove", Path: path, Err: ErrLocked}
	}
	if n.isDir && len(f.childrenLocked(path)) > 0 {
		return &fs.PathError{Op: "remove", Path: path, Err: ErrNotEmpty}
	}
	delete(f.nodes, path)
	return nil
}

func (f *FakeFS) ReadText(path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	if err := f.faultLocked(OpRead, path); err != nil {
		return "", err
	}
	n, ok := f.nodes[path]
	if !ok || n.isDir {
		return "", &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return n.data, nil
}

func (f *FakeFS) WriteText(path, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	f.Calls = append(f.Calls, "write:"+path)

	if err := f.faultLocked(OpWrite, path); err != nil {
		return err
	}
	if f.locked[path] {
		return &fs.PathError{Op: "open", Path: path, Err: ErrLocked}
	}
	if parent, ok := f.nodes[filepath.Dir(path)]; !ok || !parent.isDir {
		return &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}

	now := f.Clock()
	if n, ok := f.nodes[path]; ok {
		n.data = text
		n.modified = now
		return nil
	}
	f.nodes[path] = &fakeNode{data: text, created: now, modified: now}
	return nil
}

func (f *FakeFS) LastWriteTime(path string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	if err := f.faultLocked(OpStat, path); err != nil {
		return time.Time{}, err
	}
	n, ok := f.nodes[path]
	if !ok {
		return time.Time{}, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return n.modified.UTC(), nil
}
