// Package vector provides exact cosine-similarity indexes over chunk embeddings.
package vector

import (
	"context"

	"github.com/hyperjump/kensaku/internal/models"
)

// SearchOptions tunes a dense search. Filters are key/value equality matches
// against chunk metadata; the reserved key "document_id" filters on the
// owning document.
type SearchOptions struct {
	TopK      int
	Threshold float64
	Filters   map[string]interface{}
}

// Store is the dense-index contract. The in-memory reference implementation
// and any durable or approximate backend are substitutable behind it.
// Implementations must be safe for concurrent use.
type Store interface {
	// AddChunks indexes the given chunks. Every chunk must carry an embedding
	// of the store's configured dimension; validation failures leave the
	// store unchanged (all-or-nothing).
	AddChunks(ctx context.Context, chunks []*models.Chunk) error
	// DeleteChunks removes chunks by id. Absent ids are ignored.
	DeleteChunks(ctx context.Context, ids []string) error
	// Search returns up to opts.TopK results ranked by cosine similarity,
	// each with a score in [0,1] and a contiguous 1-based rank. An empty
	// store returns an empty list.
	Search(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]*models.SearchResult, error)
	// GetChunk returns the chunk with the given id, or false when absent.
	GetChunk(ctx context.Context, id string) (*models.Chunk, bool)
	// UpdateChunk replaces an existing chunk's content and embedding.
	// Returns ErrNotFound when the id was never added.
	UpdateChunk(ctx context.Context, chunk *models.Chunk) error
	// Count returns the number of indexed chunks.
	Count() int
	// Clear removes all chunks.
	Clear(ctx context.Context) error
	// HealthCheck reports whether the backend is usable.
	HealthCheck(ctx context.Context) bool
	Close() error
}
