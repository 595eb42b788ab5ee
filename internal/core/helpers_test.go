package core

import (
	"strings"
	"testing"
	"time"

	"seqedit/internal/infra/persistence/memory"
	"seqedit/internal/log"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() Clock { return ClockFunc(func() time.Time { return fixedNow }) }

// newTestService seeds chr1 with 1200 bases and one gene at [80,120].
func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	store := memory.NewStore()
	if err := store.PutSequence("chr1", strings.Repeat("ACGT", 300)); err != nil {
		t.Fatalf("seed chr1: %v", err)
	}
	store.SetFeatures("chr1", []Feature{{ID: "gene1", Type: "gene", Start: 80, End: 120, Qualifiers: map[string]string{"gene": "lacZ"}}})
	return NewService(store, append([]Option{WithClock(fixedClock()), WithLogger(log.NewNullLogger())}, opts...)...)
}

func mustEnqueue(t *testing.T, svc *Service, kind ActionKind, region Region, payload string) int64 {
	t.Helper()
	id, err := svc.Enqueue(kind, region, payload)
	if err != nil {
		t.Fatalf("enqueue %s %s: %v", kind, region, err)
	}
	return id
}

func chr1(start, end int) Region { return Region{SequenceID: "chr1", Start: start, End: end} }

func actionByID(t *testing.T, svc *Service, id int64) Action {
	t.Helper()
	a, ok := svc.Queue().Get(id)
	if !ok {
		t.Fatalf("action %d missing", id)
	}
	return a
}
