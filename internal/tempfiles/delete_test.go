package tempfiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempsweep/internal/fsops"
)

func TestTryDeleteMissingPathIsNoop(t *testing.T) {
	f, j, obs := newScratch(t, 1)

	assert.False(t, j.TryDelete("/scratch/nope"))
	assert.NoError(t, j.Delete("/scratch/nope"))
	assert.Empty(t, f.Calls)
	assert.Empty(t, obs.failed)
	assert.Equal(t, []string{".temporary", "f0"}, f.Names(scratch))
}

func TestTryDeleteSwallowsFailure(t *testing.T) {
	f, j, obs := newScratch(t, 1)
	f.Lock("/scratch/f0")

	assert.False(t, j.TryDelete("/scratch/f0"))
	assert.True(t, f.Exists("/scratch/f0"))
	assert.Equal(t, []string{"remove:/scratch/f0"}, obs.failed)
}

func TestDeleteReturnsFailureButClearsMarker(t *testing.T) {
	f, j, _ := newScratch(t, 1)
	f.AddFile("/scratch/f0.delete", "1", now)
	f.Lock("/scratch/f0")

	err := j.Delete("/scratch/f0")
	assert.ErrorIs(t, err, fsops.ErrLocked)
	assert.True(t, f.Exists("/scratch/f0"))
	assert.False(t, f.Exists("/scratch/f0.delete"))
}

func TestDeleteIgnoresMarkerFailure(t *testing.T) {
	f, j, _ := newScratch(t, 1)
	f.AddFile("/scratch/f0.delete", "1", now)
	f.Lock("/scratch/f0.delete")

	require.NoError(t, j.Delete("/scratch/f0"))
	assert.False(t, f.Exists("/scratch/f0"))
	assert.True(t, f.Exists("/scratch/f0.delete"))
}

func TestDeleteRemovesOrphanMarker(t *testing.T) {
	f, j, obs := newScratch(t, 0)
	f.AddFile("/scratch/gone.delete", "1", now)

	require.NoError(t, j.Delete("/scratch/gone"))
	assert.False(t, f.Exists("/scratch/gone.delete"))
	assert.Equal(t, ReasonMarker, obs.removed["/scratch/gone.delete"])
}

func TestDeleteWithDispatchesByMode(t *testing.T) {
	f, j, _ := newScratch(t, 3)
	f.Lock("/scratch/f0")
	f.Lock("/scratch/f1")
	f.Lock("/scratch/f2")

	assert.Error(t, j.DeleteWith("/scratch/f0", ModeDelete))
	assert.NoError(t, j.DeleteWith("/scratch/f1", ModeTryDelete))
	assert.False(t, f.Exists("/scratch/f1.delete"))
	assert.NoError(t, j.DeleteWith("/scratch/f2", ModeTryDeleteOrMark))
	assert.True(t, f.Exists("/scratch/f2.delete"))

	assert.ErrorIs(t, j.DeleteWith("/scratch/f0", DeleteMode(42)), ErrUnknownDeleteMode)
}

func TestParseDeleteMode(t *testing.T) {
	for _, m := range []DeleteMode{ModeDelete, ModeTryDelete, ModeTryDeleteOrMark} {
		parsed, err := ParseDeleteMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}

	parsed, err := ParseDeleteMode(" Try-Delete ")
	require.NoError(t, err)
	assert.Equal(t, ModeTryDelete, parsed)

	_, err = ParseDeleteMode("shred")
	assert.ErrorIs(t, err, ErrUnknownDeleteMode)
	assert.Equal(t, "DeleteMode(7)", DeleteMode(7).String())
}
