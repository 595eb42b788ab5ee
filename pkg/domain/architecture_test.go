package domain

import (
	"testing"

	"seqedit/testutil"
)

// pkg/domain imports only the standard library and nothing under internal/.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImport, "pkg/domain must not depend on internal packages")
	testutil.AssertNoTransitiveDependency(t, "seqedit/pkg/domain", testutil.InternalImport, "pkg/domain must not reach internal packages")
}

func TestDomainHasNoThirdPartyDependencies(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.ThirdPartyImport, "pkg/domain is standard library only")
}
