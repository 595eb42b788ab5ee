package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"seqedit/internal/blob"
)

const queueExportVersion = 1

// QueueExport is the serialised form of the action queue.
type QueueExport struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Actions    []Action  `json:"actions"`
}

// ExportQueue serialises every queued action in enqueue order.
func (s *Service) ExportQueue() ([]byte, error) {
	export := QueueExport{
		Version:    queueExportVersion,
		ExportedAt: s.engine.clock.Now(),
		Actions:    s.queue.List(),
	}
	return json.MarshalIndent(export, "", "  ")
}

// ImportQueue enqueues the actions of an export as new pending actions with
// fresh ids, using each action's region as originally enqueued. Nothing is
// enqueued unless every action validates.
func (s *Service) ImportQueue(data []byte) ([]int64, error) {
	var export QueueExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("decode queue export: %w", err)
	}
	if export.Version != queueExportVersion {
		return nil, fmt.Errorf("unsupported queue export version %d", export.Version)
	}
	prepared := make([]Action, 0, len(export.Actions))
	for i, a := range export.Actions {
		region := a.OriginalRegion
		if region == (Region{}) {
			region = a.Region
		}
		action, err := s.prepare(a.Kind, region, a.Payload)
		if err != nil {
			return nil, fmt.Errorf("action %d (exported id %d): %w", i, a.ID, err)
		}
		prepared = append(prepared, action)
	}
	ids := make([]int64, 0, len(prepared))
	for _, action := range prepared {
		ids = append(ids, s.queue.Enqueue(action))
	}
	return ids, nil
}

// ArchiveQueue writes the queue export to a blob store. An empty key derives
// one from the export time.
func (s *Service) ArchiveQueue(ctx context.Context, store blob.Store, key string) (blob.Info, error) {
	data, err := s.ExportQueue()
	if err != nil {
		return blob.Info{}, err
	}
	if key == "" {
		key = fmt.Sprintf("queues/%s.json", s.engine.clock.Now().UTC().Format("20060102T150405.000000000Z"))
	}
	info, err := store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"actions": fmt.Sprint(s.queue.Len())},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("archive queue: %w", err)
	}
	return info, nil
}
