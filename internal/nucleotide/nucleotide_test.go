package nucleotide

import (
	"errors"
	"testing"

	"seqedit/pkg/domain"
)

func TestReverseComplement(t *testing.T) {
	cases := map[string]string{
		"":        "",
		"A":       "T",
		"ATCG":    "CGAT",
		"acgtN":   "Nacgt",
		"GATTACA": "TGTAATC",
		"RYKM":    "KMRY",
	}
	for in, want := range cases {
		if got := ReverseComplement(in); got != want {
			t.Fatalf("ReverseComplement(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOrient(t *testing.T) {
	if got := Orient("AAC", domain.StrandForward); got != "AAC" {
		t.Fatalf("forward orient changed text: %q", got)
	}
	if got := Orient("AAC", ""); got != "AAC" {
		t.Fatalf("default strand should read forward: %q", got)
	}
	if got := Orient("AAC", domain.StrandReverse); got != "GTT" {
		t.Fatalf("reverse orient = %q", got)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("ACGTNRYacgt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range []string{"ACXG", "AC-G", "AC*"} {
		var verr domain.ValidationError
		if err := Validate(bad); !errors.As(err, &verr) {
			t.Fatalf("Validate(%q) = %v, want ValidationError", bad, err)
		}
	}
	if got := Normalize(" ac gt\n"); got != "ACGT" {
		t.Fatalf("Normalize = %q", got)
	}
}

func TestSeqRoundTrip(t *testing.T) {
	s := NewSeq("chr1", "GATTACA")
	if s.ID != "chr1" || String(s) != "GATTACA" {
		t.Fatalf("unexpected seq %s %q", s.ID, String(s))
	}
}
