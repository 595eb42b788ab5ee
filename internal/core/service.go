package core

import (
	"context"
	"errors"
	"fmt"

	"seqedit/internal/infra/persistence/memory"
	"seqedit/internal/nucleotide"
	"seqedit/pkg/domain"
)

// Service is the library boundary: it validates and queues edit requests,
// runs them through the engine and exposes the clipboard.
type Service struct {
	state     *memory.Store
	queue     *ActionQueue
	clipboard *Clipboard
	engine    *Engine
}

// NewService constructs a service over the authoritative store.
func NewService(state *memory.Store, opts ...Option) *Service {
	queue := NewActionQueue()
	clipboard := NewClipboard()
	return &Service{
		state:     state,
		queue:     queue,
		clipboard: clipboard,
		engine:    NewEngine(queue, state, clipboard, opts...),
	}
}

// NewInMemoryService creates a service with an empty in-memory store.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(memory.NewStore(), opts...)
}

// Store returns the authoritative store.
func (s *Service) Store() *memory.Store { return s.state }

// Queue returns the action queue.
func (s *Service) Queue() *ActionQueue { return s.queue }

// Enqueue validates and queues an action. Inserts take a single anchor;
// an end of zero is read as the start.
func (s *Service) Enqueue(kind ActionKind, region Region, payload string) (int64, error) {
	action, err := s.prepare(kind, region, payload)
	if err != nil {
		return 0, err
	}
	return s.queue.Enqueue(action), nil
}

func (s *Service) prepare(kind ActionKind, region Region, payload string) (Action, error) {
	if !kind.Valid() {
		return Action{}, domain.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown action kind %q", kind)}
	}
	if kind == ActionInsert && region.End == 0 {
		region.End = region.Start
	}
	region.Strand = region.Strand.Normalize()
	if err := region.Validate(); err != nil {
		return Action{}, err
	}
	length, ok := s.state.SequenceLength(region.SequenceID)
	if !ok {
		return Action{}, domain.ValidationError{Field: "sequence_id", Message: fmt.Sprintf("unknown sequence %s", region.SequenceID)}
	}
	anchored := kind == ActionInsert || (kind == ActionPaste && region.IsPoint())
	switch {
	case kind == ActionInsert && !region.IsPoint():
		return Action{}, domain.ValidationError{Field: "end", Message: "insert takes a single anchor position"}
	case anchored && region.Start > length+1:
		return Action{}, domain.ValidationError{Field: "start", Message: fmt.Sprintf("anchor %d beyond end of %s (length %d)", region.Start, region.SequenceID, length)}
	case !anchored && region.End > length:
		return Action{}, domain.ValidationError{Field: "end", Message: fmt.Sprintf("end %d beyond %s (length %d)", region.End, region.SequenceID, length)}
	}
	if kind.RequiresPayload() {
		payload = nucleotide.Normalize(payload)
		if payload == "" {
			return Action{}, domain.ValidationError{Field: "payload", Message: fmt.Sprintf("%s requires sequence text", kind)}
		}
		if err := nucleotide.Validate(payload); err != nil {
			return Action{}, err
		}
	} else if payload != "" {
		return Action{}, domain.ValidationError{Field: "payload", Message: fmt.Sprintf("%s does not take sequence text", kind)}
	}
	return Action{Kind: kind, Region: region, Payload: payload}, nil
}

// ListActions returns queued actions, optionally filtered by status.
func (s *Service) ListActions(statuses ...ActionStatus) []Action {
	return s.queue.List(statuses...)
}

// RemoveAction drops an action; unknown ids are ignored.
func (s *Service) RemoveAction(id int64) {
	s.queue.Remove(id)
}

// ClearActions removes actions in the given statuses (all when none given).
func (s *Service) ClearActions(statuses ...ActionStatus) int {
	return s.queue.Clear(statuses...)
}

// Run executes the pending actions as one batch.
func (s *Service) Run(ctx context.Context) (RunResult, error) {
	return s.engine.Run(ctx)
}

// Clipboard returns the live clipboard entry.
func (s *Service) Clipboard() (ClipboardEntry, bool) {
	return s.clipboard.Get()
}

// Commit imports the working copy of a successful, uncommitted run into the
// authoritative store. It refuses when the store changed since the run.
func (s *Service) Commit(result RunResult) error {
	if !result.Success || result.WorkingCopy == nil {
		return errors.New("run result has no working copy to commit")
	}
	if result.Committed {
		return nil
	}
	if s.engine.Running() {
		return domain.ErrAlreadyExecuting
	}
	if s.state.Fingerprint() != result.baseline {
		return domain.EngineIntegrityError{Stage: "commit", Err: fmt.Errorf("state changed since run %s", result.RunID)}
	}
	s.state.ImportState(*result.WorkingCopy)
	s.engine.markCommitted(result.Actions)
	return nil
}

// EnqueueReversal queues a paste that puts back the bases removed by a
// completed cut, provided the cut was committed and the clipboard still
// holds it.
func (s *Service) EnqueueReversal(actionID int64) (int64, error) {
	action, ok := s.queue.Get(actionID)
	if !ok {
		return 0, domain.ErrNotFound{Entity: domain.EntityAction, ID: fmt.Sprint(actionID)}
	}
	if action.Kind != ActionCut || action.Status != StatusCompleted {
		return 0, domain.ValidationError{Field: "kind", Message: fmt.Sprintf("action %d is not a completed cut", actionID)}
	}
	if !s.engine.cutCommitted(actionID) {
		return 0, domain.ValidationError{Field: "action_id", Message: fmt.Sprintf("cut %d was never committed", actionID)}
	}
	entry, ok := s.clipboard.Get()
	if !ok {
		return 0, domain.ErrClipboardEmpty
	}
	if entry.SourceActionID != actionID {
		return 0, fmt.Errorf("clipboard holds action %d, not %d: %w", entry.SourceActionID, actionID, domain.ErrClipboardEmpty)
	}
	anchor := Region{
		SequenceID: action.Region.SequenceID,
		Start:      action.Region.Start,
		End:        action.Region.Start,
		Strand:     action.Region.Strand,
	}
	return s.Enqueue(ActionPaste, anchor, "")
}
