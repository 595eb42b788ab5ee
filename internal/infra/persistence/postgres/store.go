// Package postgres persists engine checkpoints in a PostgreSQL table, one
// JSONB snapshot per checkpoint.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"seqedit/pkg/domain"
)

var _ domain.CheckpointStore = (*CheckpointStore)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/seqedit?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// CheckpointStore keeps checkpoints in the checkpoints table, pruning to the
// retention most recently inserted rows after every write (retention <= 0
// keeps all).
type CheckpointStore struct {
	db        *sql.DB
	retention int
	mu        sync.Mutex
}

// NewCheckpointStore opens the database (defaultDSN when dsn is empty) and
// ensures the checkpoints table exists.
func NewCheckpointStore(ctx context.Context, dsn string, retention int) (*CheckpointStore, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS checkpoints (
		id TEXT PRIMARY KEY,
		seq BIGSERIAL,
		created_at TIMESTAMPTZ NOT NULL,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure checkpoints table: %w", err)
	}
	return &CheckpointStore{db: db, retention: retention}, nil
}

// CreateCheckpoint inserts the checkpoint and prunes old rows in one transaction.
func (s *CheckpointStore) CreateCheckpoint(ctx context.Context, cp domain.Checkpoint) (string, error) {
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
		return "", fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO checkpoints (id, created_at, payload) VALUES ($1, $2, $3)`, cp.ID, cp.CreatedAt.UTC(), payload); err != nil {
		return "", fmt.Errorf("insert checkpoint %s: %w", cp.ID, err)
	}
	if err := s.prune(ctx, tx); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	committed = true
	return cp.ID, nil
}

func (s *CheckpointStore) prune(ctx context.Context, tx *sql.Tx) error {
	if s.retention <= 0 {
		return nil
	}
	rows, err := tx.QueryContext(ctx, `SELECT id FROM checkpoints ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("list checkpoints: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan checkpoint: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("iterate checkpoints: %w", err)
	}
	_ = rows.Close()
	if len(ids) <= s.retention {
		return nil
	}
	for _, id := range ids[:len(ids)-s.retention] {
		if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoints WHERE id = $1`, id); err != nil {
			return fmt.Errorf("prune checkpoint %s: %w", id, err)
		}
	}
	return nil
}

// RestoreCheckpoint loads a checkpoint by id.
func (s *CheckpointStore) RestoreCheckpoint(ctx context.Context, id string) (domain.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, created_at, payload FROM checkpoints WHERE id = $1`, id)
	var (
		cp      domain.Checkpoint
		payload []byte
	)
	if err := row.Scan(&cp.ID, &cp.CreatedAt, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Checkpoint{}, fmt.Errorf("%w: %s", domain.ErrCheckpointNotFound, id)
		}
		return domain.Checkpoint{}, fmt.Errorf("select checkpoint %s: %w", id, err)
	}
	if err := json.Unmarshal(payload, &cp.State); err != nil {
		return domain.Checkpoint{}, fmt.Errorf("decode checkpoint %s: %w", id, err)
	}
	return cp, nil
}

// DB exposes the underlying handle for tests.
func (s *CheckpointStore) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *CheckpointStore) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
