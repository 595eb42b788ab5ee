package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"seqedit/pkg/domain"
)

// CheckpointStore keeps checkpoints in process memory. The engine falls back
// to it when the configured checkpoint store is unavailable.
type CheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[string]storedCheckpoint
	next        uint64
	limit       int
}

type storedCheckpoint struct {
	domain.Checkpoint
	seq uint64
}

// NewCheckpointStore returns a store retaining at most limit checkpoints
// (first stored, first evicted). A limit <= 0 keeps everything.
func NewCheckpointStore(limit int) *CheckpointStore {
	return &CheckpointStore{checkpoints: make(map[string]storedCheckpoint), limit: limit}
}

// CreateCheckpoint stores a deep copy of the checkpoint.
func (s *CheckpointStore) CreateCheckpoint(_ context.Context, cp domain.Checkpoint) (string, error) {
	if err := cp.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.checkpoints[cp.ID]; exists {
		return "", fmt.Errorf("checkpoint %s already exists", cp.ID)
	}
	cp.State = cp.State.Clone()
	s.next++
	s.checkpoints[cp.ID] = storedCheckpoint{Checkpoint: cp, seq: s.next}
	s.evictLocked()
	return cp.ID, nil
}

// RestoreCheckpoint returns a deep copy of a stored checkpoint.
func (s *CheckpointStore) RestoreCheckpoint(_ context.Context, id string) (domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.checkpoints[id]
	if !ok {
		return domain.Checkpoint{}, fmt.Errorf("%w: %s", domain.ErrCheckpointNotFound, id)
	}
	cp := stored.Checkpoint
	cp.State = cp.State.Clone()
	return cp, nil
}

// Len reports how many checkpoints are retained.
func (s *CheckpointStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.checkpoints)
}

func (s *CheckpointStore) evictLocked() {
	if s.limit <= 0 || len(s.checkpoints) <= s.limit {
		return
	}
	ordered := make([]storedCheckpoint, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		ordered = append(ordered, cp)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })
	for _, cp := range ordered[:len(ordered)-s.limit] {
		delete(s.checkpoints, cp.ID)
	}
}
