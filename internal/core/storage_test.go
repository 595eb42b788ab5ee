package core

import (
	"context"
	"path/filepath"
	"testing"

	"seqedit/internal/blob"
	"seqedit/internal/infra/persistence/archive"
	"seqedit/internal/infra/persistence/memory"
	"seqedit/internal/infra/persistence/sqlite"
)

func TestOpenCheckpointStoreDrivers(t *testing.T) {
	ctx := context.Background()
	mem, err := OpenCheckpointStore(ctx, StorageConfig{})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := mem.(*memory.CheckpointStore); !ok {
		t.Fatalf("expected memory default, got %T", mem)
	}
	lite, err := OpenCheckpointStore(ctx, StorageConfig{Driver: StorageSQLite, SQLitePath: filepath.Join(t.TempDir(), "cp.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { _ = lite.(*sqlite.CheckpointStore).Close() })
	arch, err := OpenCheckpointStore(ctx, StorageConfig{Driver: StorageBlob, Blob: blob.NewMemory()})
	if err != nil {
		t.Fatalf("blob: %v", err)
	}
	if _, ok := arch.(*archive.CheckpointStore); !ok {
		t.Fatalf("expected archive store, got %T", arch)
	}
	if _, err := OpenCheckpointStore(ctx, StorageConfig{Driver: StorageBlob}); err == nil {
		t.Fatalf("expected missing blob store error")
	}
	if _, err := OpenCheckpointStore(ctx, StorageConfig{Driver: "tape"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestEngineRollsBackFromArchivedCheckpoint(t *testing.T) {
	ctx := context.Background()
	backend := blob.NewMemory()
	checkpoints, err := OpenCheckpointStore(ctx, StorageConfig{Driver: StorageBlob, Blob: backend})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	svc := newTestService(t, WithCheckpointStore(checkpoints))
	before := svc.Store().Fingerprint()
	mustEnqueue(t, svc, ActionDelete, chr1(1, 10), "")
	svc.engine.afterAction = func(Action) { panic("boom") }
	result, err := svc.Run(ctx)
	if err == nil || !result.RolledBack {
		t.Fatalf("expected rollback, got %+v %v", result, err)
	}
	if svc.Store().Fingerprint() != before {
		t.Fatalf("state not restored from archive")
	}
	infos, _ := backend.List(ctx, "checkpoints/")
	if len(infos) != 1 || infos[0].Key != "checkpoints/"+result.CheckpointID+".json" {
		t.Fatalf("unexpected archived checkpoints %+v", infos)
	}
	if svc.engine.fallback.Len() != 0 {
		t.Fatalf("fallback should be unused")
	}
}
