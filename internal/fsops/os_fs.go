package fsops

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OSFS implements FS using real os package calls
type OSFS struct {
	// Recursive removes directories together with their contents.
	// When false a non-empty directory fails to delete.
	Recursive bool
	// UseBirthTime reports file birth time as CreationTime where the
	// platform exposes it, falling back to modification time.
	UseBirthTime bool
}

func (o OSFS) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (o OSFS) DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (o OSFS) ListEntries(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			// Removed between ReadDir and Info by a concurrent deleter
			continue
		}
		full := filepath.Join(dir, de.Name())
		created := info.ModTime()
		if o.UseBirthTime {
			created = birthTime(full, info)
		}
		entries = append(entries, Entry{
			Name:         de.Name(),
			FullPath:     full,
			CreationTime: created,
			IsDir:        info.IsDir(),
		})
	}
	return entries, nil
}

func (o OSFS) ListFilesMatching(dir, pattern string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	pattern = strings.ToLower(pattern)
	var names []string
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		matched, err := filepath.Match(pattern, strings.ToLower(de.Name()))
		if err != nil {
			return nil, err
		}
		if matched {
			names = append(names, de.Name())
		}
	}
	return names, nil
}

func (o OSFS) Remove(path string) error {
	if o.Recursive {
		info, err := os.Lstat(path)
		if err == nil && info.IsDir() {
			return os.RemoveAll(path)
		}
	}
	return os.Remove(path)
}

func (o OSFS) ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (o OSFS) WriteText(path, text string) error {
	return os.WriteFile(path, []byte(text), 0o644)
}

func (o OSFS) LastWriteTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime().UTC(), nil
}
