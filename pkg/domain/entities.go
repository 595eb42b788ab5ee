// Package domain defines the sequence-edit entities, value types and
// collaborator contracts shared by the seqedit engine and its storage
// backends.
package domain

import (
	"fmt"
	"time"
)

// Strand identifies the orientation a region is read in.
type Strand string

// Supported strands. The zero value reads as forward.
const (
	StrandForward Strand = "+"
	StrandReverse Strand = "-"
)

// Normalize maps the empty strand to forward.
func (s Strand) Normalize() Strand {
	if s == "" {
		return StrandForward
	}
	return s
}

// Valid reports whether s is a recognised strand.
func (s Strand) Valid() bool {
	switch s.Normalize() {
	case StrandForward, StrandReverse:
		return true
	default:
		return false
	}
}

// Region is a 1-based inclusive coordinate range on a named sequence.
type Region struct {
	SequenceID string `json:"sequence_id"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Strand     Strand `json:"strand,omitempty"`
}

// Len returns the number of bases covered by the region.
func (r Region) Len() int { return r.End - r.Start + 1 }

// IsPoint reports whether the region is a single anchor (start == end).
func (r Region) IsPoint() bool { return r.Start == r.End }

// Overlaps applies the strict overlap test used for conflict detection.
func (r Region) Overlaps(o Region) bool {
	return r.SequenceID == o.SequenceID && r.Start < o.End && o.Start < r.End
}

// Intersects reports whether two inclusive ranges share at least one base.
func (r Region) Intersects(start, end int) bool {
	return r.Start <= end && start <= r.End
}

// Contains reports whether [start,end] lies inside the region.
func (r Region) Contains(start, end int) bool {
	return start >= r.Start && end <= r.End
}

// Validate checks the structural invariants 1 <= start <= end.
func (r Region) Validate() error {
	if r.SequenceID == "" {
		return ValidationError{Field: "sequence_id", Message: "sequence id is required"}
	}
	if r.Start < 1 {
		return ValidationError{Field: "start", Message: fmt.Sprintf("start %d must be >= 1", r.Start)}
	}
	if r.Start > r.End {
		return ValidationError{Field: "end", Message: fmt.Sprintf("start %d is after end %d", r.Start, r.End)}
	}
	if !r.Strand.Valid() {
		return ValidationError{Field: "strand", Message: fmt.Sprintf("unknown strand %q", r.Strand)}
	}
	return nil
}

func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d(%s)", r.SequenceID, r.Start, r.End, r.Strand.Normalize())
}

// ActionKind is the closed set of edit operations the queue accepts.
type ActionKind string

// Action kinds.
const (
	ActionCopy    ActionKind = "copy"
	ActionCut     ActionKind = "cut"
	ActionPaste   ActionKind = "paste"
	ActionDelete  ActionKind = "delete"
	ActionInsert  ActionKind = "insert"
	ActionReplace ActionKind = "replace"
	ActionEdit    ActionKind = "edit" // in-place rewrite, mutates like replace
)

// ActionKinds lists every supported kind in declaration order.
func ActionKinds() []ActionKind {
	return []ActionKind{ActionCopy, ActionCut, ActionPaste, ActionDelete, ActionInsert, ActionReplace, ActionEdit}
}

// Valid reports whether k is one of the declared kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionCopy, ActionCut, ActionPaste, ActionDelete, ActionInsert, ActionReplace, ActionEdit:
		return true
	default:
		return false
	}
}

// Mutating reports whether executing the kind changes sequence content.
func (k ActionKind) Mutating() bool { return k != ActionCopy }

// Removes reports whether the kind deletes its target region outright.
func (k ActionKind) Removes() bool { return k == ActionDelete || k == ActionCut }

// RequiresPayload reports whether the kind carries sequence text.
func (k ActionKind) RequiresPayload() bool {
	return k == ActionInsert || k == ActionReplace || k == ActionEdit
}

// ActionStatus tracks an action through its lifecycle.
type ActionStatus string

// Action statuses. Completed and failed are terminal.
const (
	StatusPending   ActionStatus = "pending"
	StatusExecuting ActionStatus = "executing"
	StatusCompleted ActionStatus = "completed"
	StatusFailed    ActionStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s ActionStatus) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// ActionResult summarises what an executed action did.
type ActionResult struct {
	Kind             ActionKind `json:"kind"`
	RemovedLength    int        `json:"removed_length"`
	InsertedLength   int        `json:"inserted_length"`
	Delta            int        `json:"delta"`
	FeaturesAdjusted int        `json:"features_adjusted"`
	FeaturesRemoved  int        `json:"features_removed"`
	FeaturesAdded    int        `json:"features_added"`
	ShiftedActions   int        `json:"shifted_actions"`
	InvalidatedIDs   []int64    `json:"invalidated_action_ids,omitempty"`
}

// Action is a queued edit request. Region tracks shifts applied by earlier
// actions in a batch; OriginalRegion keeps the region as enqueued.
type Action struct {
	ID             int64         `json:"id"`
	Kind           ActionKind    `json:"kind"`
	Region         Region        `json:"region"`
	OriginalRegion Region        `json:"original_region"`
	Payload        string        `json:"payload,omitempty"`
	Status         ActionStatus  `json:"status"`
	FailureReason  string        `json:"failure_reason,omitempty"`
	Result         *ActionResult `json:"result,omitempty"`
	EnqueuedAt     time.Time     `json:"enqueued_at"`
}

// Clone returns a deep copy of the action.
func (a Action) Clone() Action {
	cp := a
	if a.Result != nil {
		res := *a.Result
		if a.Result.InvalidatedIDs != nil {
			res.InvalidatedIDs = append([]int64(nil), a.Result.InvalidatedIDs...)
		}
		cp.Result = &res
	}
	return cp
}

// PasteMode reports whether a paste inserts at a single anchor or replaces
// its target region.
func (a Action) PasteMode() ModificationKind {
	if a.Region.IsPoint() {
		return ModInsert
	}
	return ModReplace
}

// ModificationKind categorises a recorded sequence mutation.
type ModificationKind string

// Modification kinds.
const (
	ModInsert  ModificationKind = "insert"
	ModDelete  ModificationKind = "delete"
	ModReplace ModificationKind = "replace"
)

// SequenceModification is an immutable record of one applied mutation,
// expressed in the coordinates of the sequence at the time it was applied.
// For inserts Start is the insertion point and End equals Start.
type SequenceModification struct {
	Seq            int              `json:"seq"`
	SequenceID     string           `json:"sequence_id"`
	Kind           ModificationKind `json:"kind"`
	Start          int              `json:"start"`
	End            int              `json:"end"`
	InsertedLength int              `json:"inserted_length"`
	OriginalLength int              `json:"original_length"`
	SourceActionID int64            `json:"source_action_id"`
}

// Delta is the signed length change the modification imposes downstream.
func (m SequenceModification) Delta() int { return m.InsertedLength - m.OriginalLength }

// Feature is an annotated interval owned by the annotation store.
type Feature struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Start      int               `json:"start"`
	End        int               `json:"end"`
	Strand     Strand            `json:"strand,omitempty"`
	Qualifiers map[string]string `json:"qualifiers,omitempty"`
	Notes      []string          `json:"notes,omitempty"`
}

// Clone returns a deep copy of the feature.
func (f Feature) Clone() Feature {
	cp := f
	if f.Qualifiers != nil {
		cp.Qualifiers = make(map[string]string, len(f.Qualifiers))
		for k, v := range f.Qualifiers {
			cp.Qualifiers[k] = v
		}
	}
	if f.Notes != nil {
		cp.Notes = append([]string(nil), f.Notes...)
	}
	return cp
}

// Intersects reports whether the feature shares a base with [start,end].
func (f Feature) Intersects(start, end int) bool {
	return f.Start <= end && start <= f.End
}

// CloneFeatures deep copies a feature slice, preserving nil.
func CloneFeatures(in []Feature) []Feature {
	if in == nil {
		return nil
	}
	out := make([]Feature, len(in))
	for i, f := range in {
		out[i] = f.Clone()
	}
	return out
}

// Severity grades a conflict between two pending actions.
type Severity string

// Conflict severities.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities for comparisons.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// Conflict records an overlap between two pending actions.
type Conflict struct {
	ActionA      int64    `json:"action_a"`
	ActionB      int64    `json:"action_b"`
	SequenceID   string   `json:"sequence_id"`
	OverlapStart int      `json:"overlap_start"`
	OverlapEnd   int      `json:"overlap_end"`
	Severity     Severity `json:"severity"`
	Description  string   `json:"description"`
}

// ClipboardEntry is the payload of the most recent copy or cut.
type ClipboardEntry struct {
	Kind           ActionKind `json:"kind"`
	Sequence       string     `json:"sequence"`
	SourceRegion   Region     `json:"source_region"`
	Features       []Feature  `json:"features,omitempty"`
	SourceActionID int64      `json:"source_action_id"`
}

// Clone deep copies the entry including its feature snapshot.
func (c ClipboardEntry) Clone() ClipboardEntry {
	cp := c
	cp.Features = CloneFeatures(c.Features)
	return cp
}

// Snapshot is a point-in-time copy of sequences and their annotations.
type Snapshot struct {
	Sequences   map[string]string    `json:"sequences"`
	Annotations map[string][]Feature `json:"annotations"`
}

// Clone deep copies the snapshot. Sequence strings are immutable and shared.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Sequences:   make(map[string]string, len(s.Sequences)),
		Annotations: make(map[string][]Feature, len(s.Annotations)),
	}
	for id, seq := range s.Sequences {
		out.Sequences[id] = seq
	}
	for id, feats := range s.Annotations {
		out.Annotations[id] = CloneFeatures(feats)
	}
	return out
}

// Checkpoint captures the authoritative state before a batch executes.
type Checkpoint struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	State     Snapshot  `json:"state"`
}

// Validate ensures the checkpoint can be persisted and restored.
func (c Checkpoint) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("checkpoint id is required")
	}
	if c.State.Sequences == nil {
		return fmt.Errorf("checkpoint %s has no sequence state", c.ID)
	}
	return nil
}
