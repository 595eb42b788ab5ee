// Package archive persists checkpoints as JSON documents in a blob store, so
// rollback points can live on local disk or in an S3 bucket.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"seqedit/internal/blob"
	"seqedit/pkg/domain"
)

const (
	keyPrefix   = "checkpoints/"
	contentType = "application/json"
)

var _ domain.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore writes one blob per checkpoint under checkpoints/.
type CheckpointStore struct {
	store     blob.Store
	retention int
	mu        sync.Mutex
}

// NewCheckpointStore wraps store. retention <= 0 keeps every checkpoint.
func NewCheckpointStore(store blob.Store, retention int) (*CheckpointStore, error) {
	if store == nil {
		return nil, fmt.Errorf("archive checkpoint store requires a blob store")
	}
	return &CheckpointStore{store: store, retention: retention}, nil
}

func checkpointKey(id string) string { return keyPrefix + id + ".json" }

// CreateCheckpoint uploads cp and prunes the earliest stored documents past
// retention.
func (s *CheckpointStore) CreateCheckpoint(ctx context.Context, cp domain.Checkpoint) (string, error) {
	if err := cp.Validate(); err != nil {
		return "", err
	}
	if strings.ContainsAny(cp.ID, "/\\") {
		return "", fmt.Errorf("checkpoint id %q must not contain path separators", cp.ID)
	}
	payload, err := json.Marshal(cp)
	if err != nil {
		return "", fmt.Errorf("encode checkpoint: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.ordered(ctx)
	if err != nil {
		return "", err
	}
	var seq int64 = 1
	if n := len(existing); n > 0 {
		seq = existing[n-1].seq + 1
	}
	_, err = s.store.Put(ctx, checkpointKey(cp.ID), bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"seq":        strconv.FormatInt(seq, 10),
			"created-at": strconv.FormatInt(cp.CreatedAt.UnixNano(), 10),
			"sequences":  strconv.Itoa(len(cp.State.Sequences)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("store checkpoint %s: %w", cp.ID, err)
	}
	if err := s.prune(ctx); err != nil {
		return "", err
	}
	return cp.ID, nil
}

// RestoreCheckpoint downloads and decodes a checkpoint document.
func (s *CheckpointStore) RestoreCheckpoint(ctx context.Context, id string) (domain.Checkpoint, error) {
	_, rc, err := s.store.Get(ctx, checkpointKey(id))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return domain.Checkpoint{}, fmt.Errorf("%w: %s", domain.ErrCheckpointNotFound, id)
		}
		return domain.Checkpoint{}, err
	}
	defer func() { _ = rc.Close() }()
	var cp domain.Checkpoint
	if err := json.NewDecoder(rc).Decode(&cp); err != nil {
		return domain.Checkpoint{}, fmt.Errorf("decode checkpoint %s: %w", id, err)
	}
	return cp, nil
}

// List returns stored checkpoint ids in the order they were stored.
func (s *CheckpointStore) List(ctx context.Context) ([]string, error) {
	infos, err := s.ordered(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = strings.TrimSuffix(strings.TrimPrefix(info.Key, keyPrefix), ".json")
	}
	return ids, nil
}

type stamped struct {
	blob.Info
	seq     int64
	created int64
}

func (s *CheckpointStore) ordered(ctx context.Context) ([]stamped, error) {
	infos, err := s.store.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	out := make([]stamped, 0, len(infos))
	for _, info := range infos {
		// List results from S3 carry no user metadata.
		if info.Metadata == nil {
			head, err := s.store.Head(ctx, info.Key)
			if err != nil {
				return nil, err
			}
			info = head
		}
		seq, _ := strconv.ParseInt(info.Metadata["seq"], 10, 64)
		created, _ := strconv.ParseInt(info.Metadata["created-at"], 10, 64)
		out = append(out, stamped{Info: info, seq: seq, created: created})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].seq != out[j].seq {
			return out[i].seq < out[j].seq
		}
		if out[i].created != out[j].created {
			return out[i].created < out[j].created
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (s *CheckpointStore) prune(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	infos, err := s.ordered(ctx)
	if err != nil {
		return err
	}
	for len(infos) > s.retention {
		if _, err := s.store.Delete(ctx, infos[0].Key); err != nil {
			return fmt.Errorf("prune checkpoint %s: %w", infos[0].Key, err)
		}
		infos = infos[1:]
	}
	return nil
}
