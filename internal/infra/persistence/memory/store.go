// Package memory provides the in-memory sequence and annotation store used as
// both the authoritative state and the per-batch working copy.
package memory

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"seqedit/internal/nucleotide"
	"seqedit/pkg/domain"
)

// Compile-time contract assertions.
var (
	_ domain.StateStore      = (*Store)(nil)
	_ domain.CheckpointStore = (*CheckpointStore)(nil)
)

type (
	// Feature aliases domain.Feature.
	Feature = domain.Feature
	// Snapshot aliases domain.Snapshot exported and imported by the store.
	Snapshot = domain.Snapshot
	// Strand aliases domain.Strand.
	Strand = domain.Strand
)

type memoryState struct {
	sequences   map[string]string
	annotations map[string][]Feature
}

func newMemoryState() memoryState {
	return memoryState{
		sequences:   make(map[string]string),
		annotations: make(map[string][]Feature),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Sequences:   make(map[string]string, len(state.sequences)),
		Annotations: make(map[string][]Feature, len(state.annotations)),
	}
	for id, seq := range state.sequences {
		s.Sequences[id] = seq
	}
	for id, feats := range state.annotations {
		s.Annotations[id] = domain.CloneFeatures(feats)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for id, seq := range s.Sequences {
		state.sequences[id] = seq
	}
	for id, feats := range s.Annotations {
		state.annotations[id] = domain.CloneFeatures(feats)
	}
	return state
}

// migrateSnapshot fills nil maps and drops annotations for unknown sequences.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Sequences == nil {
		snapshot.Sequences = map[string]string{}
	}
	if snapshot.Annotations == nil {
		snapshot.Annotations = map[string][]Feature{}
	}
	for id := range snapshot.Annotations {
		if _, ok := snapshot.Sequences[id]; !ok {
			delete(snapshot.Annotations, id)
		}
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	return memoryStateFromSnapshot(snapshotFromMemoryState(s))
}

// Store holds sequences and their annotations behind a read-write mutex.
type Store struct {
	mu    sync.RWMutex
	state memoryState
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{state: newMemoryState()}
}

// NewStoreFromSnapshot constructs a store owning a deep copy of snapshot.
func NewStoreFromSnapshot(snapshot Snapshot) *Store {
	return &Store{state: memoryStateFromSnapshot(migrateSnapshot(snapshot))}
}

// Clone returns an isolated copy of the store.
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Store{state: s.state.clone()}
}

// ExportState clones the current store state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// PutSequence adds or replaces a sequence. Existing annotations are kept.
func (s *Store) PutSequence(id, bases string) error {
	if id == "" {
		return fmt.Errorf("sequence id is required")
	}
	bases = nucleotide.Normalize(bases)
	if err := nucleotide.Validate(bases); err != nil {
		return fmt.Errorf("sequence %s: %w", id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.sequences[id] = bases
	return nil
}

// SequenceIDs returns the known sequence ids in ascending order.
func (s *Store) SequenceIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.state.sequences))
	for id := range s.state.sequences {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SequenceLength returns the length of a sequence and whether it exists.
func (s *Store) SequenceLength(id string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq, ok := s.state.sequences[id]
	return len(seq), ok
}

// Sequence returns the full bases of a sequence.
func (s *Store) Sequence(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq, ok := s.state.sequences[id]
	return seq, ok
}

// GetSequence reads [start,end] of a sequence, reverse complemented for the
// reverse strand.
func (s *Store) GetSequence(id string, start, end int, strand Strand) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq, ok := s.state.sequences[id]
	if !ok {
		return "", domain.ErrNotFound{Entity: domain.EntitySequence, ID: id}
	}
	if err := checkRange(id, seq, start, end); err != nil {
		return "", err
	}
	return nucleotide.Orient(seq[start-1:end], strand), nil
}

// GetFeatures returns copies of the features annotated on a sequence.
func (s *Store) GetFeatures(id string) []Feature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneFeatures(s.state.annotations[id])
}

// SetFeatures replaces the features annotated on a sequence.
func (s *Store) SetFeatures(id string, features []Feature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(features) == 0 {
		delete(s.state.annotations, id)
		return
	}
	s.state.annotations[id] = domain.CloneFeatures(features)
}

// InsertBases inserts text so that its first base lands at position pos.
// pos may be one past the end to append.
func (s *Store) InsertBases(id string, pos int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok := s.state.sequences[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntitySequence, ID: id}
	}
	if pos < 1 || pos > len(seq)+1 {
		return fmt.Errorf("insertion point %d outside %s (length %d)", pos, id, len(seq))
	}
	s.state.sequences[id] = seq[:pos-1] + text + seq[pos-1:]
	return nil
}

// DeleteBases removes [start,end] and returns the removed bases.
func (s *Store) DeleteBases(id string, start, end int) (string, error) {
	return s.ReplaceBases(id, start, end, "")
}

// ReplaceBases swaps [start,end] for text and returns the removed bases.
func (s *Store) ReplaceBases(id string, start, end int, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok := s.state.sequences[id]
	if !ok {
		return "", domain.ErrNotFound{Entity: domain.EntitySequence, ID: id}
	}
	if err := checkRange(id, seq, start, end); err != nil {
		return "", err
	}
	removed := seq[start-1 : end]
	s.state.sequences[id] = seq[:start-1] + text + seq[end:]
	return removed, nil
}

// Fingerprint hashes the full state so callers can detect drift.
func (s *Store) Fingerprint() uint64 {
	return Fingerprint(s.ExportState())
}

// Fingerprint hashes a snapshot deterministically.
func Fingerprint(snapshot Snapshot) uint64 {
	h := xxhash.New()
	ids := make([]string, 0, len(snapshot.Sequences))
	for id := range snapshot.Sequences {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = h.WriteString(p)
			_, _ = h.Write([]byte{0})
		}
	}
	for _, id := range ids {
		write("seq", id, snapshot.Sequences[id])
		for _, f := range snapshot.Annotations[id] {
			write("feat", f.ID, f.Type, strconv.Itoa(f.Start), strconv.Itoa(f.End), string(f.Strand))
			keys := make([]string, 0, len(f.Qualifiers))
			for k := range f.Qualifiers {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				write(k, f.Qualifiers[k])
			}
			write(f.Notes...)
		}
	}
	return h.Sum64()
}

func checkRange(id, seq string, start, end int) error {
	if start < 1 || end < start || end > len(seq) {
		return fmt.Errorf("region %d-%d outside %s (length %d)", start, end, id, len(seq))
	}
	return nil
}
