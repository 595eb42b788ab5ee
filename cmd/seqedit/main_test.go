package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seqedit/internal/core"
	"seqedit/internal/fasta"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCLIRunsPlanAndCommits(t *testing.T) {
	dir := t.TempDir()
	fa := writeFixture(t, dir, "in.fa", ">chr1\n"+strings.Repeat("ACGT", 30)+"\n")
	feats := writeFixture(t, dir, "features.json", `{"chr1":[{"id":"g1","type":"gene","start":50,"end":60}]}`)
	plan := writeFixture(t, dir, "plan.yaml", `
- kind: delete
  sequence: chr1
  start: 1
  end: 10
- kind: insert
  sequence: chr1
  start: 100
  payload: GGGG
`)
	cfgPath := writeFixture(t, dir, "seqedit.yaml", "metrics: prometheus\nblob:\n  driver: memory\n")
	out := filepath.Join(dir, "out.fa")
	prom := filepath.Join(dir, "seqedit.prom")

	var stdout, stderr bytes.Buffer
	code := cli(context.Background(), []string{
		"-config", cfgPath, "-fasta", fa, "-features", feats, "-plan", plan,
		"-commit", "-diff", "-archive-queue", "-output", out, "-metrics-textfile", prom,
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	text := stdout.String()
	if !strings.Contains(text, "+++ chr1 (working copy)") {
		t.Fatalf("expected diff output, got %s", text)
	}
	var result core.RunResult
	if err := json.Unmarshal([]byte(text[strings.Index(text, "{"):]), &result); err != nil {
		t.Fatalf("decode result: %v\n%s", err, text)
	}
	if !result.Success || result.ExecutedCount != 2 || !result.Committed {
		t.Fatalf("unexpected result %+v", result)
	}
	records, err := fasta.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(records) != 1 || len(records[0].Seq) != 120-10+4 || records[0].Seq[89:93] != "GGGG" {
		t.Fatalf("unexpected output %+v", records)
	}
	raw, err := os.ReadFile(prom)
	if err != nil || !strings.Contains(string(raw), `seqedit_operations_total{operation="run",result="success"} 1`) {
		t.Fatalf("unexpected metrics textfile %s %v", raw, err)
	}
}

func TestCLIUsageAndFailures(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli(context.Background(), nil, &stdout, &stderr); code != 2 {
		t.Fatalf("expected usage exit 2, got %d", code)
	}
	dir := t.TempDir()
	fa := writeFixture(t, dir, "in.fa", ">chr1\nACGTACGT\n")
	plan := writeFixture(t, dir, "plan.json", `[{"kind":"delete","sequence":"chr1","start":1,"end":50}]`)
	stderr.Reset()
	if code := cli(context.Background(), []string{"-fasta", fa, "-plan", plan}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected failure exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "plan step 0") {
		t.Fatalf("expected plan step error, got %s", stderr.String())
	}
}

func TestCLIConflictAbortExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	fa := writeFixture(t, dir, "in.fa", ">chr1\n"+strings.Repeat("A", 40)+"\n")
	plan := writeFixture(t, dir, "plan.json", `[
		{"kind":"delete","sequence":"chr1","start":5,"end":20},
		{"kind":"insert","sequence":"chr1","start":10,"payload":"C"}]`)
	var stdout, stderr bytes.Buffer
	if code := cli(context.Background(), []string{"-fasta", fa, "-plan", plan}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	var result core.RunResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Aborted || len(result.Conflicts) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}
