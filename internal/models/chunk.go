// Package models defines core data structures for chunks, queries, and search results.
package models

import "time"

// Chunk is a unit of retrievable text with its embedding and provenance.
// Chunks are produced by an external ingestion pipeline; each index keeps
// its own copy, so callers may reuse a Chunk after handing it to a store.
type Chunk struct {
	ID         string                 `json:"id" db:"id"`
	DocumentID string                 `json:"document_id" db:"document_id"`
	Content    string                 `json:"content" db:"content"`
	Embedding  []float32              `json:"embedding,omitempty" db:"-"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	Index      int                    `json:"index" db:"chunk_index"`
	TokenCount int                    `json:"token_count,omitempty" db:"token_count"`
	CreatedAt  time.Time              `json:"created_at,omitempty" db:"created_at"`
}

// Clone returns a deep copy of the chunk. Stores copy chunks on add so that
// later caller mutations cannot corrupt index state.
func (c *Chunk) Clone() *Chunk {
	if c == nil {
		return nil
	}
	out := *c
	if c.Embedding != nil {
		out.Embedding = make([]float32, len(c.Embedding))
		copy(out.Embedding, c.Embedding)
	}
	if c.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// MatchesFilters reports whether the chunk's metadata satisfies every
// key/value equality filter. A nil or empty filter map matches everything.
// The reserved key "document_id" filters on the owning document.
func (c *Chunk) MatchesFilters(filters map[string]interface{}) bool {
	for k, want := range filters {
		if k == "document_id" {
			if c.DocumentID != want {
				return false
			}
			continue
		}
		got, ok := c.Metadata[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}
