package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"seqedit/pkg/domain"
)

func TestRunShiftsLaterActionsThroughDeletion(t *testing.T) {
	svc := newTestService(t, WithCommitPolicy(CommitApply))
	del := mustEnqueue(t, svc, ActionDelete, chr1(100, 200), "")
	ins := mustEnqueue(t, svc, ActionInsert, chr1(300, 0), "GGG")

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success || result.ExecutedCount != 2 || result.FailedCount != 0 || !result.Committed {
		t.Fatalf("unexpected result %+v", result)
	}
	got := actionByID(t, svc, ins)
	if got.Region.Start != 199 || got.OriginalRegion.Start != 300 {
		t.Fatalf("expected insert shifted to 199, got %+v", got.Region)
	}
	if d := actionByID(t, svc, del); d.Result == nil || d.Result.Delta != -101 || d.Result.ShiftedActions != 1 {
		t.Fatalf("unexpected delete result %+v", d.Result)
	}
	seq, _ := svc.Store().Sequence("chr1")
	if len(seq) != 1200-101+3 || seq[198:201] != "GGG" {
		t.Fatalf("unexpected sequence length %d", len(seq))
	}
	if len(svc.Store().GetFeatures("chr1")) != 1 {
		t.Fatalf("feature before the deletion should survive")
	}
	if len(result.Modifications) != 2 || result.Modifications[1].Seq != 2 {
		t.Fatalf("unexpected modifications %+v", result.Modifications)
	}
}

func TestRunCopyPasteRemapsFeatures(t *testing.T) {
	svc := newTestService(t, WithCommitPolicy(CommitApply))
	mustEnqueue(t, svc, ActionCopy, chr1(50, 150), "")
	paste := mustEnqueue(t, svc, ActionPaste, chr1(1000, 1000), "")

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Clipboard == nil || len(result.Clipboard.Sequence) != 101 {
		t.Fatalf("expected clipboard of 101 bases, got %+v", result.Clipboard)
	}
	features := svc.Store().GetFeatures("chr1")
	if len(features) != 2 {
		t.Fatalf("expected original and pasted feature, got %+v", features)
	}
	pasted := features[1]
	if pasted.ID != "gene1_copy" || pasted.Start != 1030 || pasted.End != 1070 {
		t.Fatalf("unexpected pasted feature %+v", pasted)
	}
	if pasted.Qualifiers["gene"] != "lacZ" || len(pasted.Notes) != 1 || !strings.Contains(pasted.Notes[0], "pasted from chr1:50-150") {
		t.Fatalf("pasted feature lost attributes: %+v", pasted)
	}
	if features[0].Start != 80 || features[0].End != 120 {
		t.Fatalf("original feature moved: %+v", features[0])
	}
	if r := actionByID(t, svc, paste).Result; r.FeaturesAdded != 1 || r.InsertedLength != 101 {
		t.Fatalf("unexpected paste result %+v", r)
	}
	entry, ok := svc.Clipboard()
	if !ok || entry.SourceRegion.Start != 50 {
		t.Fatalf("clipboard not published: %+v", entry)
	}
}

func TestRunWithNothingPendingIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	before := svc.Store().Fingerprint()
	for i := 0; i < 2; i++ {
		result, err := svc.Run(context.Background())
		if err != nil || !result.Success || result.ExecutedCount != 0 || result.CheckpointID != "" {
			t.Fatalf("run %d: %+v %v", i, result, err)
		}
	}
	if svc.Store().Fingerprint() != before {
		t.Fatalf("empty run changed state")
	}
}

func TestRunRejectsReentry(t *testing.T) {
	var inner error
	var svc *Service
	svc = newTestService(t, WithConflictResolver(ConflictResolverFunc(func(ctx context.Context, _ []Conflict) ConflictDecision {
		_, inner = svc.Run(ctx)
		return DecisionProceed
	})))
	mustEnqueue(t, svc, ActionReplace, chr1(10, 20), "A")
	ins := mustEnqueue(t, svc, ActionInsert, chr1(15, 15), "T")

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("outer run: %v", err)
	}
	if !errors.Is(inner, domain.ErrAlreadyExecuting) {
		t.Fatalf("expected ErrAlreadyExecuting, got %v", inner)
	}
	if len(result.Conflicts) != 1 || result.ExecutedCount != 1 || result.FailedCount != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if a := actionByID(t, svc, ins); a.Status != StatusFailed || !strings.Contains(a.FailureReason, "replaced by action 1") {
		t.Fatalf("insert inside replaced range should fail: %+v", a)
	}
	if svc.engine.Running() {
		t.Fatalf("guard not released")
	}
}

func TestRunAbortsOnConflictsByDefault(t *testing.T) {
	svc := newTestService(t)
	mustEnqueue(t, svc, ActionDelete, chr1(100, 200), "")
	mustEnqueue(t, svc, ActionInsert, chr1(150, 150), "A")

	result, err := svc.Run(context.Background())
	var conflictErr domain.ConflictError
	if !errors.As(err, &conflictErr) || len(conflictErr.Conflicts) != 1 {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !result.Aborted || result.Success || result.Error == "" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(svc.ListActions(StatusPending)) != 2 {
		t.Fatalf("aborted run must leave actions pending")
	}
}

func TestRunRollsBackOnPanic(t *testing.T) {
	svc := newTestService(t, WithCommitPolicy(CommitApply))
	before := svc.Store().Fingerprint()
	mustEnqueue(t, svc, ActionDelete, chr1(1, 10), "")
	mustEnqueue(t, svc, ActionDelete, chr1(20, 30), "")
	svc.engine.afterAction = func(a Action) {
		if a.ID == 2 {
			panic("disk on fire")
		}
	}

	result, err := svc.Run(context.Background())
	var integrity domain.EngineIntegrityError
	if !errors.As(err, &integrity) || integrity.Stage != "execute" {
		t.Fatalf("expected execute integrity error, got %v", err)
	}
	if !result.RolledBack || result.Committed || result.CheckpointID == "" {
		t.Fatalf("unexpected result %+v", result)
	}
	if svc.Store().Fingerprint() != before {
		t.Fatalf("state not restored")
	}
	if len(svc.ListActions(StatusPending)) != 2 {
		t.Fatalf("rolled back actions must stay pending")
	}
}

func TestRunDetectsDrift(t *testing.T) {
	svc := newTestService(t)
	mustEnqueue(t, svc, ActionDelete, chr1(1, 10), "")
	svc.engine.afterAction = func(Action) {
		_ = svc.Store().PutSequence("chr2", "ACGT")
	}
	result, err := svc.Run(context.Background())
	var integrity domain.EngineIntegrityError
	if !errors.As(err, &integrity) || integrity.Stage != "drift check" {
		t.Fatalf("expected drift integrity error, got %v", err)
	}
	if !result.RolledBack {
		t.Fatalf("expected rollback")
	}
	if _, ok := svc.Store().Sequence("chr2"); ok {
		t.Fatalf("rollback should drop the concurrent write")
	}
}

func TestRunSnapshotFailure(t *testing.T) {
	svc := newTestService(t, WithSnapshotFunc(func() (Snapshot, error) {
		return Snapshot{}, errors.New("store offline")
	}))
	mustEnqueue(t, svc, ActionDelete, chr1(1, 10), "")
	_, err := svc.Run(context.Background())
	var integrity domain.EngineIntegrityError
	if !errors.As(err, &integrity) || integrity.Stage != "snapshot" {
		t.Fatalf("expected snapshot integrity error, got %v", err)
	}
	if len(svc.ListActions(StatusPending)) != 1 {
		t.Fatalf("action should stay pending")
	}
}

type failingCheckpoints struct{ calls int }

func (f *failingCheckpoints) CreateCheckpoint(context.Context, Checkpoint) (string, error) {
	f.calls++
	return "", errors.New("bucket unreachable")
}

func (f *failingCheckpoints) RestoreCheckpoint(context.Context, string) (Checkpoint, error) {
	return Checkpoint{}, domain.ErrCheckpointNotFound
}

func TestRunFallsBackToMemoryCheckpoint(t *testing.T) {
	store := &failingCheckpoints{}
	svc := newTestService(t, WithCheckpointStore(store))
	mustEnqueue(t, svc, ActionDelete, chr1(1, 10), "")
	result, err := svc.Run(context.Background())
	if err != nil || !result.Success {
		t.Fatalf("run: %+v %v", result, err)
	}
	if store.calls != 1 || svc.engine.fallback.Len() != 1 {
		t.Fatalf("expected fallback checkpoint, calls=%d fallback=%d", store.calls, svc.engine.fallback.Len())
	}
	if _, err := svc.engine.fallback.RestoreCheckpoint(context.Background(), result.CheckpointID); err != nil {
		t.Fatalf("fallback checkpoint missing: %v", err)
	}
}

func TestRunRecordsActionFailures(t *testing.T) {
	svc := newTestService(t)
	paste := mustEnqueue(t, svc, ActionPaste, chr1(5, 5), "")
	mustEnqueue(t, svc, ActionDelete, chr1(500, 510), "")
	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.ExecutedCount != 1 || result.FailedCount != 1 {
		t.Fatalf("unexpected counts %+v", result)
	}
	a := actionByID(t, svc, paste)
	if a.Status != StatusFailed || !strings.Contains(a.FailureReason, domain.ErrClipboardEmpty.Error()) {
		t.Fatalf("paste without clipboard should fail: %+v", a)
	}
}

func TestRunCancelledContextRollsBack(t *testing.T) {
	svc := newTestService(t)
	before := svc.Store().Fingerprint()
	mustEnqueue(t, svc, ActionDelete, chr1(1, 10), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := svc.Run(ctx)
	if !errors.Is(err, context.Canceled) || !result.RolledBack {
		t.Fatalf("expected cancelled rollback, got %+v %v", result, err)
	}
	if svc.Store().Fingerprint() != before {
		t.Fatalf("state changed")
	}
}

func TestRunReverseStrandAndCut(t *testing.T) {
	svc := newTestService(t, WithCommitPolicy(CommitApply))
	mustEnqueue(t, svc, ActionInsert, Region{SequenceID: "chr1", Start: 1, Strand: domain.StrandReverse}, "AAC")
	cut := mustEnqueue(t, svc, ActionCut, chr1(60, 100), "")
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	seq, _ := svc.Store().Sequence("chr1")
	if !strings.HasPrefix(seq, "GTTACGT") {
		t.Fatalf("expected reverse complemented insert, got %s", seq[:10])
	}
	if features := svc.Store().GetFeatures("chr1"); len(features) != 0 {
		t.Fatalf("cut should drop overlapping features, got %+v", features)
	}
	a := actionByID(t, svc, cut)
	if a.Region.Start != 63 || a.Result.FeaturesRemoved != 1 {
		t.Fatalf("unexpected cut %+v %+v", a.Region, a.Result)
	}
	entry, _ := svc.Clipboard()
	if entry.Kind != ActionCut || len(entry.Sequence) != 41 || len(entry.Features) != 1 {
		t.Fatalf("unexpected clipboard %+v", entry)
	}
}

type recordingMetrics struct{ ops []string }

func (r *recordingMetrics) Observe(_ context.Context, op string, _ bool, _ time.Duration) {
	r.ops = append(r.ops, op)
}

func TestRunReportsMetricsAndSpans(t *testing.T) {
	metrics := &recordingMetrics{}
	tracer := NewJSONTracer(nil)
	svc := newTestService(t, WithMetrics(metrics), WithTracer(tracer))
	mustEnqueue(t, svc, ActionDelete, chr1(1, 10), "")
	mustEnqueue(t, svc, ActionInsert, chr1(50, 50), "A")
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"action.delete", "action.insert", "run"}
	if strings.Join(metrics.ops, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected metric ops %v", metrics.ops)
	}
	entries := tracer.Entries()
	if len(entries) != 3 || entries[2].Operation != "run" || entries[2].Status != "success" {
		t.Fatalf("unexpected spans %+v", entries)
	}
}
