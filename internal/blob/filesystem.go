package blob

import "seqedit/internal/infra/blob/fs"

// NewFilesystem returns a blob store rooted at a local directory.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
