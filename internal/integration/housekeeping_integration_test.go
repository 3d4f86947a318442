package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tempsweep/internal/config"
	"tempsweep/internal/database"
	"tempsweep/internal/fsops"
	"tempsweep/internal/metrics"
	"tempsweep/internal/safety"
	"tempsweep/internal/scheduler"
	"tempsweep/internal/tempfiles"
)

func init() {
	metrics.Init()
}

func mustWrite(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte(filepath.Base(path)), 0644); err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	ts := time.Now().Add(-age)
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatalf("Failed to age %s: %v", path, err)
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// TestPurgeOnRealDisk runs both purge passes against a real directory
func TestPurgeOnRealDisk(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, tempfiles.DefaultCheckFileName), 1000*time.Hour)
	for i, age := range []time.Duration{10 * time.Hour, 8 * time.Hour, 6 * time.Hour, 3 * time.Hour, 2 * time.Hour, time.Hour} {
		mustWrite(t, filepath.Join(dir, fmt.Sprintf("f%d", i)), age)
	}

	// Age pass drops f0..f2; count pass sees the sentinel plus f3..f5 and
	// attempts the two oldest, one of which is the sentinel
	err := tempfiles.PurgeDirectory(fsops.OSFS{}, dir, 5*time.Hour, 2, tempfiles.DefaultCheckFileName)
	if err != nil {
		t.Fatalf("PurgeDirectory failed: %v", err)
	}

	for _, gone := range []string{"f0", "f1", "f2", "f3"} {
		if exists(filepath.Join(dir, gone)) {
			t.Errorf("%s should have been removed", gone)
		}
	}
	for _, kept := range []string{tempfiles.DefaultCheckFileName, "f4", "f5"} {
		if !exists(filepath.Join(dir, kept)) {
			t.Errorf("%s should have been kept", kept)
		}
	}
}

// TestSentinelGuardsRealDirectory verifies nothing is removed without the sentinel
func TestSentinelGuardsRealDirectory(t *testing.T) {
	dir := t.TempDir()
	victim := filepath.Join(dir, "important.db")
	mustWrite(t, victim, 1000*time.Hour)

	if err := tempfiles.PurgeDirectory(fsops.OSFS{}, dir, time.Minute, 0, tempfiles.DefaultCheckFileName); err != nil {
		t.Fatalf("PurgeDirectory failed: %v", err)
	}
	if !exists(victim) {
		t.Fatal("file removed from a directory without a sentinel")
	}
}

// TestMarkAndSweepOnRealDisk uses a non-empty directory as the entry that
// cannot be deleted by a non-recursive filesystem
func TestMarkAndSweepOnRealDisk(t *testing.T) {
	dir := t.TempDir()
	held := filepath.Join(dir, "held")
	changed := filepath.Join(dir, "changed")
	for _, d := range []string{held, changed} {
		if err := os.Mkdir(d, 0755); err != nil {
			t.Fatal(err)
		}
		mustWrite(t, filepath.Join(d, "inner"), time.Hour)
	}

	plain := tempfiles.NewJanitor(fsops.OSFS{})
	if !plain.TryDeleteOrMark(held) || !plain.TryDeleteOrMark(changed) {
		t.Fatal("expected markers for non-empty directories")
	}
	if !exists(tempfiles.MarkerPath(held)) {
		t.Fatal("marker not written")
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(changed, later, later); err != nil {
		t.Fatal(err)
	}

	recursive := tempfiles.NewJanitor(fsops.OSFS{Recursive: true})
	res, err := recursive.TryDeleteMarkedFiles(dir)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if res.Markers != 2 || res.Reclaimed != 1 || res.Stale != 1 {
		t.Errorf("unexpected sweep result: %+v", res)
	}
	if exists(held) {
		t.Error("unchanged marked entry should be reclaimed")
	}
	if !exists(changed) {
		t.Error("entry written after marking must be kept")
	}
	if exists(tempfiles.MarkerPath(held)) || exists(tempfiles.MarkerPath(changed)) {
		t.Error("markers should be consumed")
	}
}

// TestDeleteTargetSafety verifies the validator refuses symlink escapes
// before any delete reaches the filesystem
func TestDeleteTargetSafety(t *testing.T) {
	tmpRoot := t.TempDir()
	allowedDir := filepath.Join(tmpRoot, "allowed")
	protectedDir := filepath.Join(tmpRoot, "protected")
	for _, d := range []string{allowedDir, protectedDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	protectedFile := filepath.Join(protectedDir, "keep.txt")
	mustWrite(t, protectedFile, 0)

	escape := filepath.Join(allowedDir, "escape")
	if err := os.Symlink(protectedDir, escape); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	v := safety.NewValidator([]string{allowedDir}, nil)
	j := tempfiles.NewJanitor(fsops.OSFS{})

	if err := v.ValidateDeleteTarget(filepath.Join(escape, "keep.txt")); err != safety.ErrSymlinkEscape {
		t.Fatalf("expected ErrSymlinkEscape, got %v", err)
	}
	if !exists(protectedFile) {
		t.Fatal("protected file was removed")
	}

	// The link itself lives inside the allowed root and may go
	if err := v.ValidateDeleteTarget(escape); err != nil {
		t.Fatalf("link inside allowed root refused: %v", err)
	}
	if err := j.Delete(escape); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if exists(escape) || !exists(protectedFile) {
		t.Error("deleting the link must not follow it")
	}
}

// TestSchedulerWithHistoryOnRealDisk runs a daemon cycle end to end
func TestSchedulerWithHistoryOnRealDisk(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, tempfiles.DefaultCheckFileName), 1000*time.Hour)
	mustWrite(t, filepath.Join(dir, "stale.tmp"), 48*time.Hour)
	mustWrite(t, filepath.Join(dir, "fresh.tmp"), time.Minute)

	dbPath := filepath.Join(t.TempDir(), "history.db")
	cfg, err := config.Parse([]byte(`
directories:
  - path: ` + dir + `
    auto_expire: 24h
resource_limits:
  max_cpu_percent: 100
database_path: ` + dbPath + `
`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	db, err := database.NewHistoryDB(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	defer db.Close()

	runner, err := scheduler.NewRunner(cfg, log.New(io.Discard, "", 0), scheduler.WithHistory(db))
	if err != nil {
		t.Fatal(err)
	}
	if err := runner.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if exists(filepath.Join(dir, "stale.tmp")) || !exists(filepath.Join(dir, "fresh.tmp")) {
		t.Error("unexpected directory contents after cycle")
	}

	purges, err := db.GetRunsByAction(database.ActionPurge)
	if err != nil {
		t.Fatal(err)
	}
	if len(purges) != 1 || purges[0].Expired != 1 || purges[0].Directory != dir {
		t.Errorf("unexpected purge history: %+v", purges)
	}
}
