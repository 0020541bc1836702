package cache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

// A refused address stands in for an unreachable Redis. Port 1 is reserved
// and nothing listens there, so the dial fails immediately.
const unreachableRedis = "127.0.0.1:1"

func TestRedisStore_FailOpenWhenUnreachable(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStore(unreachableRedis, "", 0, time.Hour, zap.NewNop())
	defer s.Close()

	if !s.disabled.Load() {
		t.Fatal("store must disable itself when the initial ping fails")
	}

	// Every operation degrades: Set and Clear are no-ops, Get misses,
	// Delete reports not-found. None may panic or block on the backend.
	s.Set(ctx, "k", []float32{1, 2}, 0)
	if v, ok := s.Get(ctx, "k"); ok || v != nil {
		t.Errorf("Get on a disabled store = %v, %v, want miss", v, ok)
	}
	if s.Delete(ctx, "k") {
		t.Error("Delete on a disabled store must report not-found")
	}
	s.Clear(ctx)

	stats := s.Stats()
	if stats.Hits != 0 || stats.Misses != 1 || stats.TotalRequests != 1 {
		t.Errorf("stats = %+v, want 0 hits / 1 miss / 1 total", stats)
	}
}

func TestRedisStore_ConstructionNeverFails(t *testing.T) {
	s := NewRedisStore(unreachableRedis, "secret", 3, 0, nil)
	if s == nil {
		t.Fatal("NewRedisStore must return a usable store even when Redis is down")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNewStore_RedisBackendFailOpen(t *testing.T) {
	s, err := NewStore(Config{Backend: "redis", RedisAddr: unreachableRedis}, nil)
	if err != nil || s == nil {
		t.Fatalf("redis backend construction must not fail: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	c := New(s)
	c.Set(ctx, "Query Text", []float32{1}, 0)
	if _, ok := c.Get(ctx, "query text"); ok {
		t.Error("disabled backend must answer with a miss")
	}
}
