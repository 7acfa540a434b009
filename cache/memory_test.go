package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	// Miss
	_, ok := c.Get(ctx, "u1", "content", "read")
	if ok {
		t.Fatal("expected cache miss")
	}

	// Set + Hit
	c.Set(ctx, "u1", "content", "read", true)
	allowed, ok := c.Get(ctx, "u1", "content", "read")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !allowed {
		t.Fatal("expected allowed")
	}

	// Denials are cached too.
	c.Set(ctx, "u1", "content", "publish", false)
	allowed, ok = c.Get(ctx, "u1", "content", "publish")
	if !ok {
		t.Fatal("expected cache hit for denial")
	}
	if allowed {
		t.Fatal("expected denied")
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(1 * time.Millisecond))

	c.Set(ctx, "u1", "content", "read", true)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, "u1", "content", "read")
	if ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemoryCacheInvalidateUser(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "u1", "content", "read", true)
	c.Set(ctx, "u1", "media", "upload", false)
	c.Set(ctx, "u2", "content", "read", true)

	c.InvalidateUser(ctx, "u1")

	if _, ok := c.Get(ctx, "u1", "content", "read"); ok {
		t.Fatal("u1 content:read should be invalidated")
	}
	if _, ok := c.Get(ctx, "u1", "media", "upload"); ok {
		t.Fatal("u1 media:upload should be invalidated")
	}
	if _, ok := c.Get(ctx, "u2", "content", "read"); !ok {
		t.Fatal("u2 content:read should still be cached")
	}
}

func TestMemoryCacheInvalidateAll(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "u1", "content", "read", true)
	c.Set(ctx, "u2", "media", "upload", true)

	c.InvalidateAll(ctx)

	if _, ok := c.Get(ctx, "u1", "content", "read"); ok {
		t.Fatal("u1 should be invalidated")
	}
	if _, ok := c.Get(ctx, "u2", "media", "upload"); ok {
		t.Fatal("u2 should be invalidated")
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	for i := 0; i < 5; i++ {
		c.Set(ctx, "u1", "doc", string(rune('a'+i)), true)
	}

	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	if size > 2 {
		t.Fatalf("expected max 2 entries, got %d", size)
	}
}
