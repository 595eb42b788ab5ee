package core

import (
	"go/ast"
	"go/token"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestAliasesOnlyReexportDomain keeps core from growing its own type
// vocabulary through aliases: an alias may only re-export a pkg/domain type.
func TestAliasesOnlyReexportDomain(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax}
	pkgs, err := packages.Load(cfg, "seqedit/internal/core")
	if err != nil {
		t.Fatalf("load core package: %v", err)
	}
	if len(pkgs) != 1 {
		t.Fatalf("expected one package, got %d", len(pkgs))
	}
	pkg := pkgs[0]
	var offenders []string
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.TYPE {
				continue
			}
			for _, spec := range gen.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok || !ts.Assign.IsValid() {
					continue
				}
				if sel, ok := ts.Type.(*ast.SelectorExpr); ok {
					if ident, ok := sel.X.(*ast.Ident); ok && ident.Name == "domain" {
						continue
					}
				}
				pos := pkg.Fset.Position(ts.Pos())
				offenders = append(offenders, filepath.Base(pos.Filename)+": "+ts.Name.Name)
			}
		}
	}
	if len(offenders) > 0 {
		t.Fatalf("aliases in internal/core must re-export pkg/domain types:\n%s", strings.Join(offenders, "\n"))
	}
}
