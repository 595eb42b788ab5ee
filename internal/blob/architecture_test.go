package blob

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlyBlobPackageImportsInfra keeps infra blob backends behind the blob
// package: everything else depends on blob.Store.
func TestOnlyBlobPackageImportsInfra(t *testing.T) {
	const (
		infraPrefix   = "seqedit/internal/infra/blob"
		allowedPrefix = "seqedit/internal/blob"
	)
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "seqedit/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	var violations []string
	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		if strings.HasPrefix(pkg.PkgPath, allowedPrefix) || strings.HasPrefix(pkg.PkgPath, infraPrefix) {
			continue
		}
		for importPath := range pkg.Imports {
			if importPath != infraPrefix && !strings.HasPrefix(importPath, infraPrefix+"/") {
				continue
			}
			v := pkg.PkgPath + ": " + importPath
			if _, dup := seen[v]; !dup {
				seen[v] = struct{}{}
				violations = append(violations, v)
			}
		}
	}
	sort.Strings(violations)
	for _, v := range violations {
		t.Errorf("forbidden import of infra blob package: %s", v)
	}
}
