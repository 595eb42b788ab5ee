package core

import (
	"context"
	"strings"
	"testing"
)

func TestDiffSequence(t *testing.T) {
	if diff, err := DiffSequence("chr1", "ACGT", "ACGT"); err != nil || diff != "" {
		t.Fatalf("identical input should not diff: %q %v", diff, err)
	}
	before := strings.Repeat("A", 60) + strings.Repeat("C", 60)
	after := strings.Repeat("A", 60) + strings.Repeat("G", 60)
	diff, err := DiffSequence("chr1", before, after)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	for _, want := range []string{"--- chr1 (authoritative)", "+++ chr1 (working copy)", "-" + strings.Repeat("C", 60), "+" + strings.Repeat("G", 60)} {
		if !strings.Contains(diff, want) {
			t.Fatalf("diff missing %q:\n%s", want, diff)
		}
	}
}

func TestPreviewOnlyListsChangedSequences(t *testing.T) {
	svc := newTestService(t)
	if err := svc.Store().PutSequence("chr2", "ACGTACGT"); err != nil {
		t.Fatalf("seed chr2: %v", err)
	}
	mustEnqueue(t, svc, ActionReplace, chr1(1, 4), "TTTT")
	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	previews, err := svc.Preview(result)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(previews) != 1 || !strings.Contains(previews["chr1"], "+TTTT") {
		t.Fatalf("unexpected previews %v", previews)
	}
	if _, err := svc.Preview(RunResult{}); err == nil {
		t.Fatalf("expected error without working copy")
	}
}
