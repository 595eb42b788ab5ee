package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"seqedit/pkg/domain"
)

func seededStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore()
	if err := store.PutSequence("chr1", "aaccggtt"); err != nil {
		t.Fatalf("put sequence: %v", err)
	}
	store.SetFeatures("chr1", []Feature{{ID: "g1", Type: "gene", Start: 2, End: 5, Qualifiers: map[string]string{"gene": "araA"}}})
	return store
}

func TestStoreReadsRegionsAndReverseStrand(t *testing.T) {
	store := seededStore(t)
	got, err := store.GetSequence("chr1", 3, 6, domain.StrandForward)
	if err != nil {
		t.Fatalf("get sequence: %v", err)
	}
	if got != "CCGG" {
		t.Fatalf("expected CCGG, got %s", got)
	}
	rc, err := store.GetSequence("chr1", 1, 3, domain.StrandReverse)
	if err != nil {
		t.Fatalf("get reverse: %v", err)
	}
	if rc != "GTT" {
		t.Fatalf("expected GTT, got %s", rc)
	}
	if _, err := store.GetSequence("chr1", 7, 9, ""); err == nil {
		t.Fatalf("expected out of range error")
	}
	var nf domain.ErrNotFound
	if _, err := store.GetSequence("chrX", 1, 1, ""); !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreMutations(t *testing.T) {
	store := seededStore(t)
	if err := store.InsertBases("chr1", 9, "NN"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.InsertBases("chr1", 1, "T"); err != nil {
		t.Fatalf("prepend: %v", err)
	}
	if err := store.InsertBases("chr1", 20, "T"); err == nil {
		t.Fatalf("expected insertion point error")
	}
	removed, err := store.DeleteBases("chr1", 2, 3)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != "AA" {
		t.Fatalf("expected AA removed, got %s", removed)
	}
	removed, err = store.ReplaceBases("chr1", 2, 3, "GATTACA")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if removed != "CC" {
		t.Fatalf("expected CC removed, got %s", removed)
	}
	seq, _ := store.Sequence("chr1")
	if seq != "TGATTACAGGTTNN" {
		t.Fatalf("unexpected sequence %s", seq)
	}
}

func TestStoreExportImportIsolation(t *testing.T) {
	store := seededStore(t)
	snap := store.ExportState()
	snap.Annotations["chr1"][0].Qualifiers["gene"] = "mutated"
	if store.GetFeatures("chr1")[0].Qualifiers["gene"] != "araA" {
		t.Fatalf("export shares feature state")
	}
	feats := store.GetFeatures("chr1")
	feats[0].Start = 99
	if store.GetFeatures("chr1")[0].Start != 2 {
		t.Fatalf("GetFeatures returned shared slice")
	}

	clone := store.Clone()
	if _, err := clone.DeleteBases("chr1", 1, 4); err != nil {
		t.Fatalf("delete on clone: %v", err)
	}
	if n, _ := store.SequenceLength("chr1"); n != 8 {
		t.Fatalf("clone mutation leaked into original, length %d", n)
	}

	store.ImportState(Snapshot{Annotations: map[string][]Feature{"ghost": {{ID: "x", Start: 1, End: 1}}}})
	if len(store.SequenceIDs()) != 0 || len(store.GetFeatures("ghost")) != 0 {
		t.Fatalf("expected migrated empty state")
	}
	store.ImportState(snap)
	if ids := store.SequenceIDs(); len(ids) != 1 || ids[0] != "chr1" {
		t.Fatalf("expected restored state, got %v", ids)
	}
}

func TestFingerprintDetectsDrift(t *testing.T) {
	store := seededStore(t)
	before := store.Fingerprint()
	if before != NewStoreFromSnapshot(store.ExportState()).Fingerprint() {
		t.Fatalf("fingerprint not deterministic")
	}
	store.SetFeatures("chr1", []Feature{{ID: "g1", Type: "gene", Start: 2, End: 6}})
	if store.Fingerprint() == before {
		t.Fatalf("expected fingerprint change after feature edit")
	}
}

func TestPutSequenceValidates(t *testing.T) {
	store := NewStore()
	if err := store.PutSequence("", "ACGT"); err == nil {
		t.Fatalf("expected id error")
	}
	if err := store.PutSequence("chr1", "ACXT"); err == nil {
		t.Fatalf("expected base error")
	}
}

func TestCheckpointStoreRoundTripAndEviction(t *testing.T) {
	ctx := context.Background()
	cps := NewCheckpointStore(2)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		cp := domain.Checkpoint{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Minute), State: seededStore(t).ExportState()}
		if _, err := cps.CreateCheckpoint(ctx, cp); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if cps.Len() != 2 {
		t.Fatalf("expected eviction to keep 2, got %d", cps.Len())
	}
	if _, err := cps.RestoreCheckpoint(ctx, "a"); !errors.Is(err, domain.ErrCheckpointNotFound) {
		t.Fatalf("expected oldest evicted, got %v", err)
	}
	restored, err := cps.RestoreCheckpoint(ctx, "c")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	restored.State.Sequences["chr1"] = "TTTT"
	again, _ := cps.RestoreCheckpoint(ctx, "c")
	if again.State.Sequences["chr1"] != "AACCGGTT" {
		t.Fatalf("restored checkpoint shares state")
	}
	if _, err := cps.CreateCheckpoint(ctx, domain.Checkpoint{ID: "c", State: again.State}); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestCheckpointEvictionFollowsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	cps := NewCheckpointStore(2)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range []string{"zz", "mm", "aa"} {
		if _, err := cps.CreateCheckpoint(ctx, domain.Checkpoint{ID: id, CreatedAt: at, State: seededStore(t).ExportState()}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if _, err := cps.RestoreCheckpoint(ctx, "aa"); err != nil {
		t.Fatalf("latest checkpoint evicted: %v", err)
	}
	if _, err := cps.RestoreCheckpoint(ctx, "zz"); !errors.Is(err, domain.ErrCheckpointNotFound) {
		t.Fatalf("expected first stored evicted, got %v", err)
	}
}
