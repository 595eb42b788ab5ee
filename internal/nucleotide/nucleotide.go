// Package nucleotide validates and orients DNA text using biogo's redundant
// (IUPAC) DNA alphabet.
package nucleotide

import (
	"fmt"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/seq/linear"

	"seqedit/pkg/domain"
)

const gap = '-'

// Alphabet is the alphabet every stored sequence and payload conforms to.
var Alphabet = alphabet.DNAredundant

// NewSeq wraps bases as a biogo sequence over Alphabet.
func NewSeq(id, bases string) *linear.Seq {
	return linear.NewSeq(id, alphabet.BytesToLetters([]byte(bases)), Alphabet)
}

// String returns the bases held by s.
func String(s *linear.Seq) string {
	return string(alphabet.LettersToBytes(s.Seq))
}

// ReverseComplement returns the reverse complement of bases. Case is
// preserved. Callers pass validated text.
func ReverseComplement(bases string) string {
	if bases == "" {
		return ""
	}
	s := NewSeq("", bases)
	s.RevComp()
	return String(s)
}

// Orient returns bases as read on strand.
func Orient(bases string, strand domain.Strand) string {
	if strand.Normalize() == domain.StrandReverse {
		return ReverseComplement(bases)
	}
	return bases
}

// Validate rejects gaps and letters outside the alphabet.
func Validate(bases string) error {
	for i := 0; i < len(bases); i++ {
		b := bases[i]
		if b == gap || !Alphabet.IsValid(alphabet.Letter(b)) {
			return domain.ValidationError{Field: "payload", Message: fmt.Sprintf("invalid base %q at offset %d", rune(b), i)}
		}
	}
	return nil
}

// Normalize upper-cases bases and strips whitespace.
func Normalize(bases string) string {
	return strings.ToUpper(strings.Join(strings.Fields(bases), ""))
}
