package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"seqedit/internal/blob/core"
)

func TestMemoryStoreIsolatesMetadata(t *testing.T) {
	ctx := context.Background()
	store := New()
	md := map[string]string{"actions": "3"}
	if _, err := store.Put(ctx, "queues/q.json", bytes.NewReader([]byte("[]")), core.PutOptions{Metadata: md}); err != nil {
		t.Fatalf("put: %v", err)
	}
	md["actions"] = "99"
	info, rc, err := store.Get(ctx, "queues/q.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "[]" || info.Metadata["actions"] != "3" {
		t.Fatalf("unexpected %q %+v", body, info)
	}
	info.Metadata["actions"] = "0"
	again, _ := store.Head(ctx, "queues/q.json")
	if again.Metadata["actions"] != "3" {
		t.Fatalf("head shares metadata map")
	}
	if _, err := store.Head(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreListByPrefix(t *testing.T) {
	ctx := context.Background()
	store := New()
	for _, key := range []string{"b/2", "a/1", "b/1"} {
		if _, err := store.Put(ctx, key, bytes.NewReader(nil), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "b/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "b/1" || list[1].Key != "b/2" {
		t.Fatalf("unexpected list %+v", list)
	}
}
