package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4, time.Hour)

	if _, ok := m.Get(ctx, "https://cnn.com/a"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	m.Set(ctx, "https://cnn.com/a", "full text")
	text, ok := m.Get(ctx, "https://cnn.com/a")
	if !ok || text != "full text" {
		t.Fatalf("expected hit with stored text, got %q ok=%v", text, ok)
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4, time.Minute)

	current := time.Unix(1000, 0)
	m.now = func() time.Time { return current }

	m.Set(ctx, "u", "text")
	current = current.Add(2 * time.Minute)
	if _, ok := m.Get(ctx, "u"); ok {
		t.Fatalf("expected expiry after ttl")
	}
}

func TestMemoryEvictsOldestAtCap(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3, time.Hour)

	current := time.Unix(1000, 0)
	m.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		m.Set(ctx, fmt.Sprintf("u%d", i), "t")
		current = current.Add(time.Second)
	}
	m.Set(ctx, "u3", "t")

	if _, ok := m.Get(ctx, "u0"); ok {
		t.Fatalf("expected oldest entry evicted")
	}
	for _, key := range []string{"u1", "u2", "u3"} {
		if _, ok := m.Get(ctx, key); !ok {
			t.Fatalf("expected %s to survive eviction", key)
		}
	}
}

func TestMemoryOverwriteDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2, time.Hour)

	m.Set(ctx, "a", "1")
	m.Set(ctx, "b", "2")
	m.Set(ctx, "a", "3")

	if text, ok := m.Get(ctx, "a"); !ok || text != "3" {
		t.Fatalf("expected overwritten value, got %q ok=%v", text, ok)
	}
	if _, ok := m.Get(ctx, "b"); !ok {
		t.Fatalf("overwrite must not evict another entry")
	}
}
