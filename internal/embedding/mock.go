package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/kensaku/pkg/utils"
)

// MockProvider is a deterministic provider for tests and local runs. It
// derives a fixed-dimension unit vector from the text hash so the same text
// always gets the same embedding.
type MockProvider struct {
	dimensions int
}

// NewMockProvider returns a provider producing deterministic embeddings of
// the given dimension.
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockProvider{dimensions: dimensions}
}

// hashString returns a deterministic non-negative hash of s.
func hashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}

func (p *MockProvider) embedOne(text string) []float32 {
	h := hashString(text)
	emb := make([]float32, p.dimensions)
	for i := 0; i < p.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	// Unit length so cosine similarity behaves like the real model.
	utils.NormalizeL2(emb)
	return emb
}

// Embed returns one deterministic embedding per text.
func (p *MockProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.embedOne(text)
	}
	return out, nil
}

// EmbedQuery embeds a single text.
func (p *MockProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return p.embedOne(text), nil
}

// Dimensions returns the embedding dimension.
func (p *MockProvider) Dimensions() int { return p.dimensions }

// HealthCheck always succeeds for the mock.
func (p *MockProvider) HealthCheck(ctx context.Context) bool { return true }

// Close is a no-op.
func (p *MockProvider) Close() error { return nil }
