package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"seqedit/internal/infra/persistence/memory"
	"seqedit/internal/log"
	"seqedit/pkg/domain"
)

// CommitPolicy controls what happens to the working copy of a successful run.
type CommitPolicy string

const (
	// CommitDiscard leaves the authoritative state untouched; the working
	// copy is only returned in the RunResult.
	CommitDiscard CommitPolicy = "discard"
	// CommitApply imports the working copy into the authoritative state.
	CommitApply CommitPolicy = "commit"
)

// ParseCommitPolicy maps a configuration value to a policy. Empty selects
// CommitDiscard.
func ParseCommitPolicy(value string) (CommitPolicy, error) {
	switch p := CommitPolicy(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return CommitDiscard, nil
	case CommitDiscard, CommitApply:
		return p, nil
	default:
		return "", fmt.Errorf("unknown commit policy %q", value)
	}
}

// RunResult is the outcome of one Run. It is returned even when Run also
// returns an error.
type RunResult struct {
	RunID         string                 `json:"run_id"`
	Success       bool                   `json:"success"`
	ExecutedCount int                    `json:"executed_count"`
	FailedCount   int                    `json:"failed_count"`
	Conflicts     []Conflict             `json:"conflicts,omitempty"`
	Aborted       bool                   `json:"aborted,omitempty"`
	RolledBack    bool                   `json:"rolled_back,omitempty"`
	Committed     bool                   `json:"committed"`
	CheckpointID  string                 `json:"checkpoint_id,omitempty"`
	Actions       []Action               `json:"actions,omitempty"`
	Modifications []SequenceModification `json:"modifications,omitempty"`
	Clipboard     *ClipboardEntry        `json:"clipboard,omitempty"`
	Error         string                 `json:"error,omitempty"`
	StartedAt     time.Time              `json:"started_at"`
	FinishedAt    time.Time              `json:"finished_at"`

	// WorkingCopy is the mutated state of a successful run.
	WorkingCopy *Snapshot `json:"-"`
	baseline    uint64
}

// Option configures an Engine (and the Service wrapping it).
type Option func(*Engine)

// WithLogger sets the engine logger. Without it Run logs through the logger
// carried by its context.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithCheckpointStore injects the checkpoint collaborator. When it fails the
// engine keeps the checkpoint in a local memory store instead.
func WithCheckpointStore(store domain.CheckpointStore) Option {
	return func(e *Engine) { e.checkpoints = store }
}

// WithConflictResolver decides what happens when pending actions overlap.
// A ConflictPolicy value can be passed directly.
func WithConflictResolver(resolver ConflictResolver) Option {
	return func(e *Engine) {
		if resolver != nil {
			e.resolver = resolver
		}
	}
}

// WithCommitPolicy selects whether successful runs are committed.
func WithCommitPolicy(policy CommitPolicy) Option {
	return func(e *Engine) {
		if policy != "" {
			e.commit = policy
		}
	}
}

// WithActionDelay pauses between actions. The pause honours context
// cancellation.
func WithActionDelay(delay time.Duration) Option {
	return func(e *Engine) { e.delay = delay }
}

// WithMetrics registers a metrics recorder.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(e *Engine) {
		if recorder != nil {
			e.metrics = recorder
		}
	}
}

// WithTracer registers a tracer.
func WithTracer(tracer Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithSnapshotFunc replaces how the authoritative state is captured before a
// run. A failing snapshot aborts the run.
func WithSnapshotFunc(fn func() (Snapshot, error)) Option {
	return func(e *Engine) { e.snapshot = fn }
}

// Engine executes the pending actions of a queue as one batch against an
// isolated working copy of the state.
type Engine struct {
	queue       *ActionQueue
	state       domain.StateStore
	clipboard   *Clipboard
	checkpoints domain.CheckpointStore
	fallback    *memory.CheckpointStore
	resolver    ConflictResolver
	commit      CommitPolicy
	delay       time.Duration
	logger      log.Logger
	metrics     MetricsRecorder
	tracer      Tracer
	clock       Clock
	snapshot    func() (Snapshot, error)
	newID       func() string
	afterAction func(Action)
	running     atomic.Bool

	mu            sync.Mutex
	committedCuts map[int64]struct{}
}

// NewEngine wires an engine over a queue, the authoritative state and the
// clipboard it publishes into.
func NewEngine(queue *ActionQueue, state domain.StateStore, clipboard *Clipboard, opts ...Option) *Engine {
	e := &Engine{
		queue:     queue,
		state:     state,
		clipboard: clipboard,
		fallback:  memory.NewCheckpointStore(DefaultCheckpointRetention),
		resolver:  ConflictAbort,
		commit:    CommitDiscard,
		metrics:   noopMetrics{},
		tracer:    noopTracer{},
		clock:     systemClock{},
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.snapshot == nil {
		e.snapshot = func() (Snapshot, error) { return e.state.ExportState(), nil }
	}
	return e
}

// Running reports whether a batch is in flight.
func (e *Engine) Running() bool { return e.running.Load() }

// Run executes every pending action in enqueue order. Individual action
// failures are recorded on the actions and do not fail the run; conflicts
// the resolver rejects return a ConflictError and engine-level failures
// return an EngineIntegrityError after restoring the checkpoint.
func (e *Engine) Run(ctx context.Context) (result RunResult, err error) {
	if !e.running.CompareAndSwap(false, true) {
		return RunResult{Error: domain.ErrAlreadyExecuting.Error()}, domain.ErrAlreadyExecuting
	}
	defer e.running.Store(false)

	began := time.Now()
	result = RunResult{RunID: e.newID(), StartedAt: e.clock.Now()}
	logger := e.logger
	if logger == nil {
		logger = log.Ctx(ctx)
	}
	logger = logger.With("run_id", result.RunID)
	ctx, span := e.tracer.Start(ctx, "run")
	defer func() {
		result.FinishedAt = e.clock.Now()
		if err != nil {
			result.Error = err.Error()
		}
		span.End(err)
		e.metrics.Observe(ctx, "run", err == nil, time.Since(began))
	}()

	pending := e.queue.List(StatusPending)
	if len(pending) == 0 {
		logger.Debug("no pending actions")
		result.Success = true
		return result, nil
	}

	result.Conflicts = DetectConflicts(pending)
	if len(result.Conflicts) > 0 {
		if e.resolver.Resolve(ctx, result.Conflicts) != DecisionProceed {
			logger.Warn("batch aborted on conflicts", "conflicts", len(result.Conflicts), "max_severity", MaxSeverity(result.Conflicts))
			result.Aborted = true
			return result, domain.ConflictError{Conflicts: result.Conflicts}
		}
		logger.Info("proceeding despite conflicts", "conflicts", len(result.Conflicts), "max_severity", MaxSeverity(result.Conflicts))
	}

	baseline, err := e.snapshot()
	if err != nil {
		return result, domain.EngineIntegrityError{Stage: "snapshot", Err: err}
	}
	cp := Checkpoint{ID: e.newID(), CreatedAt: result.StartedAt, State: baseline}
	store, err := e.createCheckpoint(ctx, logger, cp)
	if err != nil {
		return result, err
	}
	result.CheckpointID = cp.ID
	result.baseline = memory.Fingerprint(baseline)
	logger.Info("batch started", "pending", len(pending), "checkpoint_id", cp.ID)

	b, err := e.executeBatch(ctx, logger, baseline, pending)
	if err == nil && memory.Fingerprint(e.state.ExportState()) != result.baseline {
		err = domain.EngineIntegrityError{Stage: "drift check", Err: errors.New("authoritative state changed during run")}
	}
	if err != nil {
		e.rollback(ctx, logger, store, cp)
		result.RolledBack = true
		logger.Error("batch rolled back", "error", err)
		return result, err
	}

	e.queue.apply(b.actions)
	result.Actions = make([]Action, len(b.actions))
	for i, a := range b.actions {
		result.Actions[i] = a.Clone()
		switch a.Status {
		case StatusCompleted:
			result.ExecutedCount++
		case StatusFailed:
			result.FailedCount++
		}
	}
	result.Modifications = b.mods.All()
	if entry, ok := b.clip.Get(); ok {
		e.clipboard.Set(entry)
		result.Clipboard = &entry
	}
	working := b.working.ExportState()
	result.WorkingCopy = &working
	if e.commit == CommitApply {
		e.state.ImportState(working)
		e.markCommitted(result.Actions)
		result.Committed = true
	}
	result.Success = true
	logger.Info("batch finished", "executed", result.ExecutedCount, "failed", result.FailedCount, "committed", result.Committed)
	return result, nil
}

func (e *Engine) executeBatch(ctx context.Context, logger log.Logger, baseline Snapshot, pending []Action) (b *batch, err error) {
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = domain.EngineIntegrityError{Stage: "execute", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	b = newBatch(baseline, e.clipboard, pending)
	for i := range b.actions {
		if err := e.pause(ctx, i); err != nil {
			return nil, domain.EngineIntegrityError{Stage: "execute", Err: err}
		}
		a := b.actions[i]
		if a.Status != StatusPending {
			logger.Info("skipping invalidated action", "action_id", a.ID, "reason", a.FailureReason)
			continue
		}
		op := "action." + string(a.Kind)
		began := time.Now()
		_, span := e.tracer.Start(ctx, op)
		execErr := b.execute(i)
		span.End(execErr)
		e.metrics.Observe(ctx, op, execErr == nil, time.Since(began))
		if execErr != nil {
			logger.Warn("action failed", "action_id", a.ID, "kind", a.Kind, "error", execErr)
		} else {
			logger.Debug("action completed", "action_id", a.ID, "kind", a.Kind, "delta", b.actions[i].Result.Delta)
		}
		if e.afterAction != nil {
			e.afterAction(b.actions[i].Clone())
		}
	}
	return b, nil
}

func (e *Engine) pause(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if index == 0 || e.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(e.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Engine) createCheckpoint(ctx context.Context, logger log.Logger, cp Checkpoint) (domain.CheckpointStore, error) {
	if e.checkpoints != nil {
		_, err := e.checkpoints.CreateCheckpoint(ctx, cp)
		if err == nil {
			return e.checkpoints, nil
		}
		logger.Warn("checkpoint store unavailable, keeping checkpoint in memory", "error", err)
	}
	if _, err := e.fallback.CreateCheckpoint(ctx, cp); err != nil {
		return nil, domain.EngineIntegrityError{Stage: "checkpoint", Err: err}
	}
	return e.fallback, nil
}

// rollback restores the authoritative state from the checkpoint. When the
// store cannot return it the in-process copy is used.
func (e *Engine) rollback(ctx context.Context, logger log.Logger, store domain.CheckpointStore, cp Checkpoint) {
	restored, err := store.RestoreCheckpoint(context.WithoutCancel(ctx), cp.ID)
	if err != nil {
		logger.Warn("restore from checkpoint store failed, using local copy", "checkpoint_id", cp.ID, "error", err)
		restored = cp
	}
	e.state.ImportState(restored.State)
}

// markCommitted records the completed cuts whose removal reached the
// authoritative state.
func (e *Engine) markCommitted(actions []Action) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range actions {
		if a.Kind != ActionCut || a.Status != StatusCompleted {
			continue
		}
		if e.committedCuts == nil {
			e.committedCuts = make(map[int64]struct{})
		}
		e.committedCuts[a.ID] = struct{}{}
	}
}

func (e *Engine) cutCommitted(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.committedCuts[id]
	return ok
}
