package fsops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFSListEntries(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-48 * time.Hour).Truncate(time.Second)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.tmp"), []byte("a"), 0o644))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "a.tmp"), old, old))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	entries, err := OSFS{}.ListEntries(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byName := map[string]Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.True(t, byName["a.tmp"].CreationTime.Equal(old))
	assert.Equal(t, filepath.Join(dir, "a.tmp"), byName["a.tmp"].FullPath)
	assert.True(t, byName["sub"].IsDir)
}

func TestOSFSListEntriesMissingDir(t *testing.T) {
	_, err := OSFS{}.ListEntries(filepath.Join(t.TempDir(), "gone"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOSFSListFilesMatchingIgnoresCase(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"one.delete", "TWO.DELETE", "three.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.delete"), 0o755))

	names, err := OSFS{}.ListFilesMatching(dir, "*.delete")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one.delete", "TWO.DELETE"}, names)
}

func TestOSFSRemoveDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "f"), nil, 0o644))

	assert.Error(t, OSFS{}.Remove(sub), "non-recursive remove must refuse a non-empty directory")
	assert.True(t, OSFS{}.Exists(sub))

	require.NoError(t, OSFS{Recursive: true}.Remove(sub))
	assert.False(t, OSFS{}.Exists(sub))
}

func TestOSFSTextRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.delete")
	fsys := OSFS{}

	require.NoError(t, fsys.WriteText(path, "12345"))
	text, err := fsys.ReadText(path)
	require.NoError(t, err)
	assert.Equal(t, "12345", text)

	info, err := os.Stat(path)
	require.NoError(t, err)
	lwt, err := fsys.LastWriteTime(path)
	require.NoError(t, err)
	assert.True(t, lwt.Equal(info.ModTime()))
	assert.Equal(t, time.UTC, lwt.Location())
}

func TestOSFSBirthTimeFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), nil, 0o644))

	entries, err := OSFS{UseBirthTime: true}.ListEntries(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].CreationTime.IsZero())
}
