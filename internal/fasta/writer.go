package fasta

import (
	"bufio"
	"io"

	biofasta "github.com/biogo/biogo/io/seqio/fasta"

	"seqedit/internal/nucleotide"
)

const lineWidth = 60

// Write emits records as FASTA with 60 bases per line.
func Write(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	fw := biofasta.NewWriter(bw, lineWidth)
	for _, rec := range records {
		if _, err := fw.Write(nucleotide.NewSeq(rec.ID, rec.Seq)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
