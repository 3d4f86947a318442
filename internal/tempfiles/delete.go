package tempfiles

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDeleteMode is returned by DeleteWith and ParseDeleteMode for
// values outside the DeleteMode set
var ErrUnknownDeleteMode = errors.New("unknown delete mode")

// DeleteMode selects how much failure a caller tolerates when deleting
type DeleteMode int

const (
	// ModeDelete fails loudly when the path cannot be removed
	ModeDelete DeleteMode = iota
	// ModeTryDelete ignores any failure
	ModeTryDelete
	// ModeTryDeleteOrMark ignores failure and leaves a marker for a later sweep
	ModeTryDeleteOrMark
)

func (m DeleteMode) String() string {
	switch m {
	case ModeDelete:
		return "delete"
	case ModeTryDelete:
		return "try-delete"
	case ModeTryDeleteOrMark:
		return "try-delete-or-mark"
	default:
		return fmt.Sprintf("DeleteMode(%d)", int(m))
	}
}

// ParseDeleteMode accepts the names produced by DeleteMode.String
func ParseDeleteMode(s string) (DeleteMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "delete":
		return ModeDelete, nil
	case "try-delete":
		return ModeTryDelete, nil
	case "try-delete-or-mark":
		return ModeTryDeleteOrMark, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDeleteMode, s)
	}
}

// TryDelete removes path if it exists and swallows any failure.
// Reports whether this call removed the path.
func (j *Janitor) TryDelete(path string) bool {
	return j.tryRemove(path, ReasonExplicit)
}

func (j *Janitor) tryRemove(path string, reason Reason) bool {
	if !j.fs.Exists(path) {
		return false
	}
	if err := j.fs.Remove(path); err != nil {
		j.observer.Failed(path, OpRemove, err)
		return false
	}
	j.observer.Removed(path, reason)
	return true
}

// Delete removes path if it exists and returns the failure if it could not.
// Any marker left beside path is removed as well, whether or not the
// primary delete succeeded; failures on the marker are ignored.
func (j *Janitor) Delete(path string) error {
	var err error
	if j.fs.Exists(path) {
		if rerr := j.fs.Remove(path); rerr != nil {
			err = fmt.Errorf("delete %s: %w", path, rerr)
		} else {
			j.observer.Removed(path, ReasonExplicit)
		}
	}

	j.tryRemove(MarkerPath(path), ReasonMarker)
	return err
}

// DeleteWith removes path using the strategy selected by mode.
// Only ModeDelete can return a removal error.
func (j *Janitor) DeleteWith(path string, mode DeleteMode) error {
	switch mode {
	case ModeDelete:
		return j.Delete(path)
	case ModeTryDelete:
		j.TryDelete(path)
		return nil
	case ModeTryDeleteOrMark:
		j.TryDeleteOrMark(path)
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownDeleteMode, int(mode))
	}
}
