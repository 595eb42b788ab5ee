package blob

import memorystore "seqedit/internal/infra/blob/memory"

// NewMemory returns a process-local blob store.
func NewMemory() Store { return memorystore.New() }
