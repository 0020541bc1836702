// Package keyword provides lexical (BM25) indexing and search over chunk text.
package keyword

import (
	"context"
	"errors"

	"github.com/hyperjump/kensaku/internal/models"
)

// ErrEmptyQuery is returned for empty or whitespace-only queries.
var ErrEmptyQuery = errors.New("query cannot be empty")

// Index is the sparse-index contract. The in-memory BM25 index is the
// reference implementation; the bleve backend persists the index on disk
// behind the same interface.
type Index interface {
	// AddDocuments tokenizes and indexes the given chunks. Can be called
	// incrementally; a chunk with an already-indexed id replaces the old one.
	AddDocuments(ctx context.Context, chunks []*models.Chunk) error
	// Search returns up to topK results ranked by lexical relevance, rank
	// starting at 1. A query matching nothing returns an empty list; an
	// empty or whitespace-only query returns ErrEmptyQuery.
	Search(ctx context.Context, query string, topK int) ([]*models.SearchResult, error)
	// DeleteDocument removes a chunk by id. Absent ids are ignored.
	DeleteDocument(ctx context.Context, id string) error
	// GetDocumentByID returns the indexed chunk with the given id.
	GetDocumentByID(ctx context.Context, id string) (*models.Chunk, bool)
	// DocumentCount returns the number of indexed chunks.
	DocumentCount() int
	// Clear removes all documents.
	Clear(ctx context.Context) error
	Close() error
}
