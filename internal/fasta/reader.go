// Package fasta reads plain or gzip-compressed FASTA files into whole
// sequence records.
package fasta

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/biogo/io/seqio"
	biofasta "github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"seqedit/internal/nucleotide"
)

// Record is one FASTA entry. ID is the first word of the header.
type Record struct {
	ID  string
	Seq string
}

// Sink receives loaded sequences.
type Sink interface {
	PutSequence(id, bases string) error
}

// Read parses every record from r. Sequence text is upper-cased and must
// belong to the redundant DNA alphabet.
func Read(r io.Reader) ([]Record, error) {
	sc := seqio.NewScanner(biofasta.NewReader(r, nucleotide.NewSeq("", "")))
	var records []Record
	for sc.Next() {
		s, ok := sc.Seq().(*linear.Seq)
		if !ok {
			return nil, fmt.Errorf("record %d: unexpected sequence type %T", len(records)+1, sc.Seq())
		}
		if s.ID == "" {
			return nil, fmt.Errorf("record %d: empty header", len(records)+1)
		}
		bases := strings.ToUpper(nucleotide.String(s))
		if err := nucleotide.Validate(bases); err != nil {
			return nil, fmt.Errorf("record %s: %w", s.ID, err)
		}
		records = append(records, Record{ID: s.ID, Seq: bases})
	}
	if err := sc.Error(); err != nil {
		return nil, err
	}
	return records, nil
}

// ReadFile opens path ("-" for stdin), transparently decompressing gzip,
// and parses it.
func ReadFile(path string) ([]Record, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return Read(rc)
}

// Load reads path and stores every record in sink. It returns the ids in
// file order.
func Load(path string, sink Sink) ([]string, error) {
	records, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if err := sink.PutSequence(rec.ID, rec.Seq); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// openReader detects gzip by magic number or .gz suffix.
func openReader(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var sig [2]byte
	n, _ := fh.Read(sig[:])
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		_ = fh.Close()
		return nil, err
	}
	if (n == 2 && sig[0] == 0x1f && sig[1] == 0x8b) || strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, err
		}
		return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, fh}}, nil
	}
	return fh, nil
}
