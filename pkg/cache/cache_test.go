package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

type quote struct {
	Symbol string  `json:"symbol"`
	Close  float64 `json:"close"`
}

func TestMemoryCache_RoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	if err := mc.Set(ctx, "AAPL", quote{"AAPL", 190.5}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := GetTyped[quote](ctx, mc, "AAPL")
	if err != nil || got.Close != 190.5 {
		t.Fatalf("GetTyped = %+v, %v", got, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := GetTyped[quote](ctx, mc, "AAPL"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryCleanup(0))
	defer mc.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { now = now.Add(time.Second); return now }

	_ = mc.Set(ctx, "a", "1", 0)
	_ = mc.Set(ctx, "b", "2", 0)
	var s string
	_ = mc.Get(ctx, "a", &s)
	_ = mc.Set(ctx, "c", "3", 0)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if ok, _ := mc.Exists(ctx, "a"); !ok {
		t.Fatalf("expected a to survive")
	}
	if mc.Len() != 2 {
		t.Fatalf("len = %d, want 2", mc.Len())
	}
}

func TestLayeredCache_PromotesFromL2(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache(WithMemoryCleanup(0))
	lc := NewLayeredCache(l2)
	defer lc.Close()

	_ = l2.Set(ctx, "MSFT", quote{"MSFT", 400}, time.Hour)
	var q quote
	if err := lc.Get(ctx, "MSFT", &q); err != nil || q.Close != 400 {
		t.Fatalf("Get = %+v, %v", q, err)
	}
	if ok, _ := lc.l1.Exists(ctx, "MSFT"); !ok {
		t.Fatalf("expected L2 hit to be promoted to L1")
	}

	if err := lc.Delete(ctx, "MSFT"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := lc.Exists(ctx, "MSFT"); ok {
		t.Fatalf("expected key gone from both layers")
	}
}

func TestFileCache_TTLByModTime(t *testing.T) {
	ctx := context.Background()
	fc, err := NewFileCache(t.TempDir(), 5*time.Minute)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	want := []quote{{"AAPL", 1}, {"TSLA", 2}}
	if err := fc.Set(ctx, "positions", want, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got []quote
	if err := fc.Get(ctx, "positions", &got); err != nil || len(got) != 2 {
		t.Fatalf("Get = %v, %v", got, err)
	}

	old := time.Now().Add(-10 * time.Minute)
	if err := os.Chtimes(fc.Path("positions"), old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if err := fc.Get(ctx, "positions", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected stale file to miss, got %v", err)
	}

	forever, _ := NewFileCache(fc.dir, 0)
	if err := forever.Get(ctx, "positions", &got); err != nil {
		t.Fatalf("zero ttl should never expire: %v", err)
	}
}

func TestFileCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	fc, _ := NewFileCache(t.TempDir(), 0)
	if err := os.WriteFile(fc.Path("broken"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	var v map[string]interface{}
	if err := fc.Get(ctx, "broken", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestRedisCache_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rc, err := NewRedisCache(WithRedisAddr(addr), WithRedisPrefix("tradedash-test"))
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer rc.Close()

	if err := rc.Set(ctx, "k", quote{"IBM", 3}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var q quote
	if err := rc.Get(ctx, "k", &q); err != nil || q.Symbol != "IBM" {
		t.Fatalf("Get = %+v, %v", q, err)
	}
	_ = rc.Delete(ctx, "k")
	if err := rc.Get(ctx, "k", &q); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}
