package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisKeyPrefix  = "kensaku:embedding:"
	redisDialWindow = 2 * time.Second
	redisOpWindow   = 500 * time.Millisecond
)

// RedisStore is a distributed Store backed by Redis. Values are opaquely
// serialized float32 vectors. Every backend failure degrades to a miss or
// no-op: the cache must never be a single point of failure for retrieval.
// A failed initial connection leaves the store permanently disabled for the
// process lifetime.
type RedisStore struct {
	client     *redis.Client
	defaultTTL time.Duration
	disabled   atomic.Bool
	logger     *zap.Logger

	mu     sync.Mutex
	hits   uint64
	misses uint64
}

// NewRedisStore connects to Redis at addr. Construction never fails: when the
// initial ping does not succeed the returned store answers every Get with a
// miss and ignores every Set.
func NewRedisStore(addr, password string, db int, defaultTTL time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		defaultTTL: defaultTTL,
		logger:     logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisDialWindow)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, embedding cache disabled", zap.String("addr", addr), zap.Error(err))
		s.disabled.Store(true)
	}
	return s
}

// Get returns the vector for key, or a miss on any backend failure.
func (s *RedisStore) Get(ctx context.Context, key string) ([]float32, bool) {
	if s.disabled.Load() {
		s.countMiss()
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpWindow)
	defer cancel()

	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Debug("redis get failed", zap.Error(err))
		}
		s.countMiss()
		return nil, false
	}
	vec, err := DecodeVector(data)
	if err != nil {
		s.logger.Debug("redis value corrupt, dropping", zap.String("key", key))
		s.client.Del(ctx, redisKeyPrefix+key)
		s.countMiss()
		return nil, false
	}
	s.countHit()
	return vec, true
}

// Set stores the vector under key. A ttl of zero uses the store's default
// TTL. Failures are logged and ignored.
func (s *RedisStore) Set(ctx context.Context, key string, value []float32, ttl time.Duration) {
	if s.disabled.Load() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpWindow)
	defer cancel()

	if err := s.client.Set(ctx, redisKeyPrefix+key, EncodeVector(value), ttl).Err(); err != nil {
		s.logger.Debug("redis set failed", zap.Error(err))
	}
}

// Delete removes key and reports whether an entry was present. Failures
// report "not found".
func (s *RedisStore) Delete(ctx context.Context, key string) bool {
	if s.disabled.Load() {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpWindow)
	defer cancel()

	n, err := s.client.Del(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		s.logger.Debug("redis delete failed", zap.Error(err))
		return false
	}
	return n > 0
}

// Clear removes every key owned by this store, scanning by prefix so other
// tenants of the same database are untouched.
func (s *RedisStore) Clear(ctx context.Context) {
	if s.disabled.Load() {
		return
	}
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		s.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Debug("redis clear failed", zap.Error(err))
	}
	s.mu.Lock()
	s.hits, s.misses = 0, 0
	s.mu.Unlock()
}

// Stats returns locally tracked hit/miss counters; Redis does not report
// per-client eviction counts.
func (s *RedisStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.hits + s.misses
	st := Stats{Hits: s.hits, Misses: s.misses, TotalRequests: total}
	if total > 0 {
		st.HitRate = float64(s.hits) / float64(total)
	}
	return st
}

// Close closes the client connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) countHit() {
	s.mu.Lock()
	s.hits++
	s.mu.Unlock()
}

func (s *RedisStore) countMiss() {
	s.mu.Lock()
	s.misses++
	s.mu.Unlock()
}
