package fasta

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = ">chr1 E. coli fragment\nacgt\nNNAC\n\n>plasmid\r\nGATTACA\r\n"

func TestReadParsesRecords(t *testing.T) {
	records, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "chr1" || records[0].Seq != "ACGTNNAC" {
		t.Fatalf("unexpected first record %+v", records[0])
	}
	if records[1].ID != "plasmid" || records[1].Seq != "GATTACA" {
		t.Fatalf("unexpected second record %+v", records[1])
	}
}

func TestReadRejectsMalformedInput(t *testing.T) {
	if _, err := Read(strings.NewReader(">chr1\nACXT\n")); err == nil {
		t.Fatalf("expected error for invalid base")
	}
	if _, err := Read(strings.NewReader(">chr1\nAC-T\n")); err == nil {
		t.Fatalf("expected error for gap")
	}
	if _, err := Read(strings.NewReader(">\nAC\n")); err == nil {
		t.Fatalf("expected error for empty header")
	}
}

type mapSink map[string]string

func (m mapSink) PutSequence(id, bases string) error {
	m[id] = bases
	return nil
}

func TestLoadGzipFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genome.fa.gz")
	fh, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	gw := gzip.NewWriter(fh)
	if _, err := gw.Write([]byte(sample)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	if err := fh.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	sink := mapSink{}
	ids, err := Load(path, sink)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ids) != 2 || sink["plasmid"] != "GATTACA" {
		t.Fatalf("unexpected load %v %v", ids, sink)
	}
}

func TestWriteWrapsAndRoundTrips(t *testing.T) {
	long := strings.Repeat("ACGT", 20)
	var sb strings.Builder
	if err := Write(&sb, []Record{{ID: "chr1", Seq: long}, {ID: "plasmid", Seq: "GATTACA"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 5 || !strings.HasPrefix(lines[0], ">chr1") || len(lines[1]) != 60 || len(lines[2]) != 20 || !strings.HasPrefix(lines[3], ">plasmid") {
		t.Fatalf("unexpected layout %q", lines)
	}
	back, err := Read(strings.NewReader(sb.String()))
	if err != nil || len(back) != 2 || back[0].Seq != long || back[1].Seq != "GATTACA" {
		t.Fatalf("round trip failed: %+v %v", back, err)
	}
}
