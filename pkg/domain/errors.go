package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine and stores.
var (
	// ErrAlreadyExecuting is returned when Run is invoked while a batch is in flight.
	ErrAlreadyExecuting = errors.New("already executing")
	// ErrClipboardEmpty is returned when a paste runs before any copy or cut.
	ErrClipboardEmpty = errors.New("clipboard is empty")
	// ErrCheckpointNotFound is returned when a checkpoint id is unknown to a store.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// EntityType names the kind of record an ErrNotFound refers to.
type EntityType string

// Entity types used in lookup errors.
const (
	EntitySequence   EntityType = "sequence"
	EntityAction     EntityType = "action"
	EntityCheckpoint EntityType = "checkpoint"
)

// ErrNotFound reports a missing sequence, action or checkpoint.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ValidationError rejects a malformed region or action at enqueue time.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "invalid action: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError is returned when a batch is aborted because of conflicts.
// It is advisory data, the conflicts are also part of the run result.
type ConflictError struct {
	Conflicts []Conflict
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("batch aborted: %d conflicting action pair(s)", len(e.Conflicts))
}

// ActionExecutionError describes why a single action failed. It never stops
// the batch.
type ActionExecutionError struct {
	ActionID int64
	Kind     ActionKind
	Err      error
}

func (e ActionExecutionError) Error() string {
	return fmt.Sprintf("%s action %d: %v", e.Kind, e.ActionID, e.Err)
}

func (e ActionExecutionError) Unwrap() error { return e.Err }

// EngineIntegrityError is fatal to a batch and triggers a rollback.
type EngineIntegrityError struct {
	Stage string
	Err   error
}

func (e EngineIntegrityError) Error() string {
	return fmt.Sprintf("engine integrity failure during %s: %v", e.Stage, e.Err)
}

func (e EngineIntegrityError) Unwrap() error { return e.Err }
