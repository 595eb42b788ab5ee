// Package sqlite persists engine checkpoints in an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"seqedit/pkg/domain"
)

var _ domain.CheckpointStore = (*CheckpointStore)(nil)

const defaultPath = "seqedit-checkpoints.db"

// CheckpointStore keeps one row per checkpoint with the snapshot as JSON.
// Only the retention most recently inserted rows are kept (retention <= 0
// keeps all).
type CheckpointStore struct {
	db        *sql.DB
	mu        sync.Mutex
	retention int
}

// NewCheckpointStore opens (creating if needed) the database at path.
func NewCheckpointStore(path string, retention int) (*CheckpointStore, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS checkpoints (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create checkpoints table: %w", err)
	}
	return &CheckpointStore{db: db, retention: retention}, nil
}

// CreateCheckpoint stores the checkpoint and prunes old rows.
func (s *CheckpointStore) CreateCheckpoint(ctx context.Context, cp domain.Checkpoint) (_ string, retErr error) {
	if err := cp.Validate(); err != nil {
		return "", err
	}
	payload, err := json.Marshal(cp.State)
	if err != nil {
		return "", fmt.Errorf("encode checkpoint %s: %w", cp.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO checkpoints(id, created_at, payload) VALUES(?, ?, ?)`,
		cp.ID, cp.CreatedAt.UTC().UnixNano(), payload); err != nil {
		return "", fmt.Errorf("insert checkpoint %s: %w", cp.ID, err)
	}
	if s.retention > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoints WHERE id NOT IN (
			SELECT id FROM checkpoints ORDER BY rowid DESC LIMIT ?
		)`, s.retention); err != nil {
			return "", fmt.Errorf("prune checkpoints: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return cp.ID, nil
}

// RestoreCheckpoint loads a checkpoint by id.
func (s *CheckpointStore) RestoreCheckpoint(ctx context.Context, id string) (domain.Checkpoint, error) {
	var (
		cp      = domain.Checkpoint{ID: id}
		created int64
		payload []byte
	)
	err := s.db.QueryRowContext(ctx, `SELECT created_at, payload FROM checkpoints WHERE id = ?`, id).Scan(&created, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Checkpoint{}, fmt.Errorf("%w: %s", domain.ErrCheckpointNotFound, id)
	}
	if err != nil {
		return domain.Checkpoint{}, fmt.Errorf("select checkpoint %s: %w", id, err)
	}
	if err := json.Unmarshal(payload, &cp.State); err != nil {
		return domain.Checkpoint{}, fmt.Errorf("decode checkpoint %s: %w", id, err)
	}
	cp.CreatedAt = time.Unix(0, created).UTC()
	return cp, nil
}

// Count returns the number of stored checkpoints.
func (s *CheckpointStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checkpoints`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count checkpoints: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (s *CheckpointStore) Close() error { return s.db.Close() }
