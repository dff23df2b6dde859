// Package checkpoint persists per-batch completion state so an
// interrupted crawl resumes without repeating or skipping identifiers.
//
// One JSON file per batch (checkpoint_batch_<index>.json) holds the set
// of completed appids plus run statistics. The file is deliberately
// plain JSON so operators can inspect and clean it up by hand. Writes go
// through a temp file, fsync, and rename: once MarkComplete returns, the
// completion is on disk.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
)

// Stats accumulates per-run outcome counters. Counters only grow; they
// survive restarts along with the completed set.
type Stats struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	NoData  int `json:"no_data"`
	Rows    int `json:"rows"`
}

// State is the in-memory form of one batch's checkpoint.
type State struct {
	BatchIndex int       `json:"batch_index"`
	SourceFile string    `json:"source_file,omitempty"`
	BatchSize  int       `json:"batch_size,omitempty"`
	RunID      string    `json:"run_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Completed  []int     `json:"completed"`
	Stats      Stats     `json:"stats"`

	completed map[int]bool
}

// IsComplete reports whether appID has already reached a terminal state.
func (s *State) IsComplete(appID int) bool {
	return s.completed[appID]
}

// CompletedCount returns the number of identifiers marked complete.
func (s *State) CompletedCount() int {
	return len(s.completed)
}

func (s *State) index() {
	s.completed = make(map[int]bool, len(s.Completed))
	for _, id := range s.Completed {
		s.completed[id] = true
	}
}

// Store reads and writes checkpoint files under a single directory.
type Store struct {
	dir string

	// Identity of the partitioning this run was derived from. Recorded
	// in new checkpoints and verified against existing ones, because a
	// re-partition silently changes batch membership.
	sourceFile string
	batchSize  int
}

// NewStore builds a Store rooted at dir. sourceFile and batchSize
// describe the partitioning and guard against resuming a checkpoint
// produced from a different split.
func NewStore(dir, sourceFile string, batchSize int) *Store {
	return &Store{dir: dir, sourceFile: sourceFile, batchSize: batchSize}
}

// Path returns the checkpoint file location for a batch index.
func (st *Store) Path(batchIndex int) string {
	return filepath.Join(st.dir, fmt.Sprintf("checkpoint_batch_%d.json", batchIndex))
}

// Load returns the persisted state for batchIndex, or a fresh empty
// state when no checkpoint file exists. An unreadable or mismatched file
// yields ErrCorruptCheckpoint; callers log it and restart from empty.
func (st *Store) Load(_ context.Context, batchIndex int) (*State, error) {
	path := st.Path(batchIndex)
	body, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return st.fresh(batchIndex), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", charts.ErrCorruptCheckpoint, path, err)
	}

	var state State
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", charts.ErrCorruptCheckpoint, path, err)
	}
	// Older checkpoints predate the partition identity fields; accept
	// them. A recorded identity that disagrees means the list was
	// re-partitioned and the completed set no longer maps to this batch.
	if state.SourceFile != "" && state.SourceFile != st.sourceFile {
		return nil, fmt.Errorf("%w: %s was written for source %q, current run uses %q",
			charts.ErrCorruptCheckpoint, path, state.SourceFile, st.sourceFile)
	}
	if state.BatchSize != 0 && state.BatchSize != st.batchSize {
		return nil, fmt.Errorf("%w: %s was written for batch size %d, current run uses %d",
			charts.ErrCorruptCheckpoint, path, state.BatchSize, st.batchSize)
	}
	state.index()
	return &state, nil
}

// Fresh returns an empty state for batchIndex stamped with the current
// partition identity. Used on first runs and when a corrupt checkpoint
// forces a restart from scratch.
func (st *Store) Fresh(batchIndex int) *State {
	return st.fresh(batchIndex)
}

func (st *Store) fresh(batchIndex int) *State {
	now := time.Now().UTC()
	s := &State{
		BatchIndex: batchIndex,
		SourceFile: st.sourceFile,
		BatchSize:  st.batchSize,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.index()
	return s
}

// MarkComplete records appID as terminally processed and persists the
// state synchronously. outcome updates the run statistics; rows is the
// number of records that were appended to the sink for this identifier.
// The write is durable before MarkComplete returns.
func (st *Store) MarkComplete(_ context.Context, state *State, appID int, outcome charts.Status, rows int) error {
	if state.completed == nil {
		state.index()
	}
	if state.completed[appID] {
		return nil
	}
	state.completed[appID] = true
	state.Completed = append(state.Completed, appID)
	sort.Ints(state.Completed)
	state.UpdatedAt = time.Now().UTC()
	state.Stats.Rows += rows
	switch outcome {
	case charts.StatusSuccess:
		state.Stats.Success++
	case charts.StatusFailed:
		state.Stats.Failed++
	case charts.StatusNoData:
		state.Stats.NoData++
	}

	if err := st.persist(state); err != nil {
		return fmt.Errorf("%w: %v", charts.ErrCheckpointUnavailable, err)
	}
	return nil
}

// persist writes the state through a temp file and renames it into
// place so a crash mid-write never leaves a truncated checkpoint.
func (st *Store) persist(state *State) error {
	if err := os.MkdirAll(st.dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	body, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	path := st.Path(state.BatchIndex)
	tmp, err := os.CreateTemp(st.dir, "checkpoint_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // no-op after successful rename

	if _, err := tmp.Write(body); err != nil {
		tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // sync error takes precedence
		return fmt.Errorf("sync temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename checkpoint into place: %w", err)
	}
	return nil
}
