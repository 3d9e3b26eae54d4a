package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheSetGetTyped(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(10))
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "score", 1.25, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got float64
	if err := mc.Get(ctx, "score", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 1.25 {
		t.Errorf("got %v, want 1.25", got)
	}

	if err := mc.Get(ctx, "missing", &got); err != ErrCacheMiss {
		t.Errorf("Get missing key: err = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(10))
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var got string
	if err := mc.Get(ctx, "k", &got); err != ErrCacheMiss {
		t.Errorf("expired key: err = %v, want ErrCacheMiss", err)
	}
	ok, err := mc.Exists(ctx, "k")
	if err != nil || ok {
		t.Errorf("Exists on expired key = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	mc.Set(ctx, "a", 1, time.Minute)
	time.Sleep(time.Millisecond)
	mc.Set(ctx, "b", 2, time.Minute)
	time.Sleep(time.Millisecond)

	// Touch "a" so "b" becomes the eviction candidate.
	var n int
	if err := mc.Get(ctx, "a", &n); err != nil {
		t.Fatalf("Get a: %v", err)
	}
	time.Sleep(time.Millisecond)
	mc.Set(ctx, "c", 3, time.Minute)

	if ok, _ := mc.Exists(ctx, "a"); !ok {
		t.Error("recently used key evicted")
	}
	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Error("least recently used key survived eviction")
	}
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(10))
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first TryLock = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	if err != nil || ok {
		t.Fatalf("second TryLock = (%v, %v), want (false, nil)", ok, err)
	}

	if err := mc.Unlock(ctx, "lock"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock after Unlock = (%v, %v), want (true, nil)", ok, err)
	}
}
