package coordinator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Checkpoint is the persisted progress of a run. It carries enough state
// to continue where the run stopped: the results so far and the index of
// the last carrier processed.
type Checkpoint struct {
	RunID          string       `json:"run_id"`
	Timestamp      time.Time    `json:"timestamp"`
	CompletedCount int          `json:"completed_count"`
	StartIndex     int          `json:"start_index"`
	LastIndex      int          `json:"last_index"`
	Results        []SiteResult `json:"results"`
}

// CheckpointStore reads and writes the checkpoint file. Writes go through
// a temp file and rename so a crash mid-write never corrupts a previous
// checkpoint.
type CheckpointStore struct {
	path  string
	runID string
}

// NewCheckpointStore returns a store writing to path under a fresh run ID.
func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path, runID: uuid.NewString()}
}

// Save persists the results so far. startIndex is where this run began.
func (s *CheckpointStore) Save(results []SiteResult, startIndex int) error {
	cp := Checkpoint{
		RunID:          s.runID,
		Timestamp:      time.Now().UTC(),
		CompletedCount: len(results),
		StartIndex:     startIndex,
		LastIndex:      startIndex + len(results) - 1,
		Results:        results,
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

// Load reads the checkpoint file.
func (s *CheckpointStore) Load() (Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp, nil
}

// Resume returns the index to continue from and the results already
// completed. Without a usable checkpoint it starts from zero.
func (s *CheckpointStore) Resume() (int, []SiteResult) {
	cp, err := s.Load()
	if err != nil {
		return 0, nil
	}
	return cp.LastIndex + 1, cp.Results
}
