package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kensaku/internal/models"
)

func newTestCache() *EmbeddingCache {
	return New(NewMemoryStore(100, 0, 0))
}

func TestEmbeddingCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()
	c.Set(ctx, "Test Text", []float32{0.1, 0.2}, 0)

	tests := []string{"Test Text", "test text", "  test text  ", "TEST TEXT"}
	for _, key := range tests {
		v, ok := c.Get(ctx, key)
		if !ok {
			t.Errorf("Get(%q): expected hit", key)
			continue
		}
		if len(v) != 2 || v[0] != 0.1 {
			t.Errorf("Get(%q) = %v", key, v)
		}
	}
}

func TestEmbeddingCache_Batch(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()

	err := c.SetBatch(ctx, []string{"a", "b"}, [][]float32{{1}, {2}}, 0)
	if err != nil {
		t.Fatalf("SetBatch: %v", err)
	}
	found := c.GetBatch(ctx, []string{"a", "b", "missing"})
	if len(found) != 2 {
		t.Errorf("GetBatch returned %d entries, want 2", len(found))
	}
	if _, ok := found["missing"]; ok {
		t.Error("absent key must be omitted from GetBatch result")
	}
}

func TestEmbeddingCache_SetBatchLengthMismatch(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()
	err := c.SetBatch(ctx, []string{"a", "b"}, [][]float32{{1}}, 0)
	if !errors.Is(err, ErrBatchLengthMismatch) {
		t.Errorf("expected ErrBatchLengthMismatch, got %v", err)
	}
	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("failed SetBatch must store nothing")
	}
}

func TestEmbeddingCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()
	c.Set(ctx, "Key", []float32{1}, 0)
	if !c.Delete(ctx, "  key ") {
		t.Error("Delete must address the normalized key")
	}
	if _, ok := c.Get(ctx, "Key"); ok {
		t.Error("entry survived delete")
	}
}

func TestEmbeddingCache_DocumentChunks(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()
	chunks := []*models.Chunk{
		{ID: "c1", Content: "alpha", Embedding: []float32{1}},
		{ID: "c2", Content: "beta", Embedding: []float32{2}},
		{ID: "c3", Content: "gamma"}, // no embedding, skipped on set
	}
	if n := c.SetDocumentChunks(ctx, chunks, 0); n != 2 {
		t.Errorf("SetDocumentChunks wrote %d, want 2", n)
	}

	fresh := []*models.Chunk{
		{ID: "c1", Content: "alpha"},
		{ID: "c2", Content: "beta"},
		{ID: "c4", Content: "delta"},
	}
	if n := c.GetDocumentChunks(ctx, fresh); n != 2 {
		t.Errorf("GetDocumentChunks resolved %d, want 2", n)
	}
	if fresh[0].Embedding == nil || fresh[0].Embedding[0] != 1 {
		t.Errorf("chunk c1 embedding = %v", fresh[0].Embedding)
	}
	if fresh[2].Embedding != nil {
		t.Error("unknown chunk must stay unresolved")
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Test Text", "test text"},
		{"  test text  ", "test text"},
		{"\tMIXED Case\n", "mixed case"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeKey(tt.in); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeVector(t *testing.T) {
	vec := []float32{0.5, -1.25, 3}
	decoded, err := DecodeVector(EncodeVector(vec))
	if err != nil {
		t.Fatalf("DecodeVector: %v", err)
	}
	for i := range vec {
		if decoded[i] != vec[i] {
			t.Errorf("component %d: got %f, want %f", i, decoded[i], vec[i])
		}
	}
	if _, err := DecodeVector([]byte{1, 2, 3}); !errors.Is(err, ErrTruncatedVector) {
		t.Errorf("expected ErrTruncatedVector, got %v", err)
	}
}

func TestNewStore_Factory(t *testing.T) {
	s, err := NewStore(Config{Backend: "memory"}, nil)
	if err != nil || s == nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, err := NewStore(Config{Backend: "bogus"}, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}
