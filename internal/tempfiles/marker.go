package tempfiles

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tempsweep/internal/fsops"
)

// MarkerSuffix names the companion file that schedules a locked file for
// deletion. Its content is the decimal write-time token of the file at
// the moment it was marked.
const MarkerSuffix = ".delete"

// MarkerPath returns the marker location for path
func MarkerPath(path string) string {
	return path + MarkerSuffix
}

// WriteTimeToken encodes a last write time as a comparable integer
func WriteTimeToken(t time.Time) int64 {
	return t.UTC().UnixNano()
}

// SweepResult summarizes a TryDeleteMarkedFiles pass
type SweepResult struct {
	Markers   int // markers found
	Reclaimed int // protected files removed because they were unchanged
	Stale     int // protected files left alone because they changed or the token was unreadable
	Orphaned  int // markers whose protected file was already gone
	Failed    int // suppressed per-marker failures
}

// TryDeleteOrMark tries to delete path; if it survives, a marker recording
// its current write time is written next to it so a later sweep can finish
// the job. Reports whether a marker was written.
func (j *Janitor) TryDeleteOrMark(path string) bool {
	j.TryDelete(path)
	if !j.fs.Exists(path) {
		return false
	}

	lwt, err := j.fs.LastWriteTime(path)
	if err != nil {
		j.observer.Failed(path, OpStat, err)
		return false
	}

	token := strconv.FormatInt(WriteTimeToken(lwt), 10)
	if err := j.fs.WriteText(MarkerPath(path), token); err != nil {
		j.observer.Failed(MarkerPath(path), OpWriteMarker, err)
		return false
	}
	j.observer.Marked(path)
	return true
}

// TryDeleteMarkedFiles reconciles every marker in dir against the current
// state of the file it protects. A protected file is deleted only when its
// write time still equals the recorded token; otherwise it is presumed back
// in use. Markers are consumed either way. A missing dir is not an error.
func (j *Janitor) TryDeleteMarkedFiles(dir string) (SweepResult, error) {
	var res SweepResult
	if !j.fs.DirExists(dir) {
		return res, nil
	}

	names, err := j.fs.ListFilesMatching(dir, "*"+MarkerSuffix)
	if err != nil {
		return res, fmt.Errorf("list markers in %s: %w", dir, err)
	}

	for _, name := range names {
		res.Markers++
		j.sweepMarker(dir, name, &res)
	}
	return res, nil
}

func (j *Janitor) sweepMarker(dir, name string, res *SweepResult) {
	marker := fsops.Combine(dir, name)
	base := name[:len(name)-len(MarkerSuffix)]
	if base == "" {
		if j.tryRemove(marker, ReasonMarker) {
			res.Orphaned++
		}
		return
	}

	protected := fsops.Combine(dir, base)
	if !j.fs.Exists(protected) {
		if j.tryRemove(marker, ReasonMarker) {
			res.Orphaned++
		} else {
			res.Failed++
		}
		return
	}

	text, err := j.fs.ReadText(marker)
	if err != nil {
		// Left in place for the next sweep
		j.observer.Failed(marker, OpReadMarker, err)
		res.Failed++
		return
	}
	lwt, err := j.fs.LastWriteTime(protected)
	if err != nil {
		j.observer.Failed(protected, OpStat, err)
		res.Failed++
		return
	}

	token, perr := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if perr == nil && token == WriteTimeToken(lwt) {
		if j.tryRemove(protected, ReasonReclaimed) {
			res.Reclaimed++
		} else {
			res.Failed++
		}
	} else {
		res.Stale++
	}

	j.tryRemove(marker, ReasonMarker)
}
