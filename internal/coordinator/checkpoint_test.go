package coordinator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "cp.json"))

	results := []SiteResult{
		{Name: "A", Outcome: OutcomeSuccess},
		{Name: "B", Outcome: OutcomeError, Error: "boom"},
	}
	require.NoError(t, store.Save(results, 5))

	cp, err := store.Load()
	require.NoError(t, err)
	assert.NotEmpty(t, cp.RunID)
	assert.Equal(t, 2, cp.CompletedCount)
	assert.Equal(t, 5, cp.StartIndex)
	assert.Equal(t, 6, cp.LastIndex)
	assert.Equal(t, results, cp.Results)

	next, resumed := store.Resume()
	assert.Equal(t, 7, next)
	assert.Equal(t, results, resumed)
}

func TestCheckpointOverwrite(t *testing.T) {
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "cp.json"))

	require.NoError(t, store.Save([]SiteResult{{Name: "A", Outcome: OutcomeSuccess}}, 0))
	require.NoError(t, store.Save([]SiteResult{
		{Name: "A", Outcome: OutcomeSuccess},
		{Name: "B", Outcome: OutcomeSuccess},
	}, 0))

	cp, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cp.CompletedCount)
	assert.Equal(t, 1, cp.LastIndex)

	// No temp file left behind.
	_, err = os.Stat(store.path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestResumeWithoutCheckpoint(t *testing.T) {
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "missing.json"))
	next, results := store.Resume()
	assert.Zero(t, next)
	assert.Nil(t, results)
}

func TestResumeWithCorruptCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	next, results := NewCheckpointStore(path).Resume()
	assert.Zero(t, next)
	assert.Nil(t, results)
}
