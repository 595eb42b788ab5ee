package domain

import "context"

// SequenceAccessor reads regions of named sequences. A reverse strand
// request returns the reverse complement of the region.
type SequenceAccessor interface {
	GetSequence(sequenceID string, start, end int, strand Strand) (string, error)
	SequenceLength(sequenceID string) (int, bool)
}

// AnnotationStore reads and replaces the features of one sequence.
// Implementations return and store copies.
type AnnotationStore interface {
	GetFeatures(sequenceID string) []Feature
	SetFeatures(sequenceID string, features []Feature)
}

// StateStore is the authoritative state the engine snapshots, reads from and
// commits into.
type StateStore interface {
	SequenceAccessor
	AnnotationStore
	ExportState() Snapshot
	ImportState(Snapshot)
}

// CheckpointStore persists checkpoints outside the engine. The engine treats
// it as best effort and keeps a local copy when it is unavailable.
type CheckpointStore interface {
	CreateCheckpoint(ctx context.Context, checkpoint Checkpoint) (string, error)
	RestoreCheckpoint(ctx context.Context, id string) (Checkpoint, error)
}
