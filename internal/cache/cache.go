// Package cache provides embedding memoization with pluggable backends.
//
// The cache is an optimization, not a correctness dependency: backend
// failures surface as misses or no-ops, never as errors, so retrieval keeps
// working when the cache is cold, full, or unreachable.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hyperjump/kensaku/internal/models"
	"go.uber.org/zap"
)

// Store is the backend contract for embedding caches. Implementations must be
// safe for concurrent use and must fail open: no method returns an error.
type Store interface {
	// Get returns the cached vector for key, or false on a miss.
	Get(ctx context.Context, key string) ([]float32, bool)
	// Set stores the vector under key. A ttl of zero means "use the backend's
	// configured default TTL", not "never expires".
	Set(ctx context.Context, key string, value []float32, ttl time.Duration)
	// Delete removes key and reports whether an entry was present.
	Delete(ctx context.Context, key string) bool
	// Clear removes all entries owned by this store.
	Clear(ctx context.Context)
	// Stats returns a snapshot of the running counters.
	Stats() Stats
	Close() error
}

// Stats is a snapshot of cache counters. TotalRequests counts Get calls.
type Stats struct {
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	Evictions     uint64  `json:"evictions"`
	TotalRequests uint64  `json:"total_requests"`
	HitRate       float64 `json:"hit_rate"`
	Entries       int     `json:"entries"`
	SizeBytes     int64   `json:"size_bytes"`
}

// EmbeddingCache memoizes text-to-embedding lookups over a Store backend.
// Keys are normalized (trimmed, case-folded) so "Test Text" and "  test text "
// address the same entry. The retriever talks only to this type, never to the
// raw backend.
type EmbeddingCache struct {
	store  Store
	logger *zap.Logger
}

// Option configures an EmbeddingCache.
type Option func(*EmbeddingCache)

// WithLogger sets a custom logger. Default is zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(c *EmbeddingCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an EmbeddingCache over the given backend store.
func New(store Store, opts ...Option) *EmbeddingCache {
	c := &EmbeddingCache{
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeKey trims surrounding whitespace and case-folds the text so that
// trivially different spellings of the same input share one cache entry.
func NormalizeKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Get returns the cached embedding for text, or false on a miss.
func (c *EmbeddingCache) Get(ctx context.Context, text string) ([]float32, bool) {
	return c.store.Get(ctx, NormalizeKey(text))
}

// GetBatch returns the cached embeddings for the given texts, keyed by the
// original (un-normalized) text. Absent texts are omitted from the result.
func (c *EmbeddingCache) GetBatch(ctx context.Context, texts []string) map[string][]float32 {
	found := make(map[string][]float32, len(texts))
	for _, text := range texts {
		if vec, ok := c.store.Get(ctx, NormalizeKey(text)); ok {
			found[text] = vec
		}
	}
	return found
}

// Set stores the embedding for text. A ttl of zero uses the backend default.
func (c *EmbeddingCache) Set(ctx context.Context, text string, vector []float32, ttl time.Duration) {
	c.store.Set(ctx, NormalizeKey(text), vector, ttl)
}

// SetBatch stores embeddings for the given texts. This is the only mutation
// that can fail: when the two slices disagree in length it returns
// ErrBatchLengthMismatch and stores nothing.
func (c *EmbeddingCache) SetBatch(ctx context.Context, texts []string, vectors [][]float32, ttl time.Duration) error {
	if len(texts) != len(vectors) {
		return ErrBatchLengthMismatch
	}
	for i, text := range texts {
		c.store.Set(ctx, NormalizeKey(text), vectors[i], ttl)
	}
	return nil
}

// Delete removes the entry for text and reports whether one was present.
func (c *EmbeddingCache) Delete(ctx context.Context, text string) bool {
	return c.store.Delete(ctx, NormalizeKey(text))
}

// Clear removes all entries and resets backend counters.
func (c *EmbeddingCache) Clear(ctx context.Context) {
	c.store.Clear(ctx)
}

// Stats returns a snapshot of the backend counters.
func (c *EmbeddingCache) Stats() Stats {
	return c.store.Stats()
}

// Close releases backend resources.
func (c *EmbeddingCache) Close() error {
	return c.store.Close()
}

// SetDocumentChunks caches the embeddings of the given chunks keyed by their
// content. Chunks without an embedding are skipped. Returns the number of
// entries written.
func (c *EmbeddingCache) SetDocumentChunks(ctx context.Context, chunks []*models.Chunk, ttl time.Duration) int {
	written := 0
	for _, chunk := range chunks {
		if chunk == nil || len(chunk.Embedding) == 0 || chunk.Content == "" {
			continue
		}
		c.store.Set(ctx, NormalizeKey(chunk.Content), chunk.Embedding, ttl)
		written++
	}
	if written > 0 {
		c.logger.Debug("cached chunk embeddings", zap.Int("count", written))
	}
	return written
}

// GetDocumentChunks fills missing chunk embeddings from the cache in place
// and returns the number of chunks resolved.
func (c *EmbeddingCache) GetDocumentChunks(ctx context.Context, chunks []*models.Chunk) int {
	resolved := 0
	for _, chunk := range chunks {
		if chunk == nil || len(chunk.Embedding) > 0 || chunk.Content == "" {
			continue
		}
		if vec, ok := c.store.Get(ctx, NormalizeKey(chunk.Content)); ok {
			chunk.Embedding = vec
			resolved++
		}
	}
	return resolved
}
