package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		path       string
		internal   bool
		thirdParty bool
	}{
		{"seqedit/internal/core", true, false},
		{"seqedit/pkg/domain", false, false},
		{"github.com/google/uuid", false, true},
		{"golang.org/x/tools/internal/gcimporter", true, true},
		{"encoding/json", false, false},
	}
	for _, tc := range cases {
		if got := InternalImport(tc.path); got != tc.internal {
			t.Fatalf("InternalImport(%q) = %v", tc.path, got)
		}
		if got := ThirdPartyImport(tc.path); got != tc.thirdParty {
			t.Fatalf("ThirdPartyImport(%q) = %v", tc.path, got)
		}
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	src := "package x\n\nimport (\n\t\"fmt\"\n\t\"seqedit/internal/core\"\n)\n\nvar _ = fmt.Sprint\nvar _ = core.NewActionQueue\n"
	if err := os.WriteFile(filepath.Join(dir, "x.go"), []byte(src), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "x_test.go"), []byte("package x\n\nimport _ \"seqedit/internal/log\"\n"), 0o600); err != nil {
		t.Fatalf("write test: %v", err)
	}
	viols, err := directImportViolations(dir, InternalImport)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "seqedit/internal/core (in x.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}
}

func TestTransitiveViolationsOnDomain(t *testing.T) {
	viols, err := transitiveViolations("seqedit/pkg/domain", InternalImport)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(viols) != 0 {
		t.Fatalf("domain reaches internal packages: %v", viols)
	}
}
