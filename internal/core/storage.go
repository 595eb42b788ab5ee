package core

import (
	"context"
	"fmt"

	"seqedit/internal/blob"
	"seqedit/internal/infra/persistence/archive"
	"seqedit/internal/infra/persistence/memory"
	"seqedit/internal/infra/persistence/postgres"
	"seqedit/internal/infra/persistence/sqlite"
	"seqedit/pkg/domain"
)

// StorageDriver identifies where checkpoints are persisted.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // process memory (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageBlob     StorageDriver = "blob"     // JSON documents in a blob store
)

// DefaultCheckpointRetention bounds every checkpoint backend unless overridden.
const DefaultCheckpointRetention = 16

// StorageConfig selects and configures the checkpoint backend.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	// Blob backs the blob driver; required when Driver is StorageBlob.
	Blob      blob.Store
	Retention int
}

// CheckpointStore aliases domain.CheckpointStore.
type CheckpointStore = domain.CheckpointStore

// OpenCheckpointStore constructs the configured checkpoint backend. The
// memory driver is the default.
func OpenCheckpointStore(ctx context.Context, cfg StorageConfig) (CheckpointStore, error) {
	retention := cfg.Retention
	if retention == 0 {
		retention = DefaultCheckpointRetention
	}
	switch cfg.Driver {
	case "", StorageMemory:
		return memory.NewCheckpointStore(retention), nil
	case StorageSQLite:
		return sqlite.NewCheckpointStore(cfg.SQLitePath, retention)
	case StoragePostgres:
		return postgres.NewCheckpointStore(ctx, cfg.PostgresDSN, retention)
	case StorageBlob:
		return archive.NewCheckpointStore(cfg.Blob, retention)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
