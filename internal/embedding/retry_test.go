package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// flakyProvider fails a configured number of times before succeeding and
// records every batch it receives.
type flakyProvider struct {
	failures int
	err      error
	calls    int
	batches  [][]string
	dims     int
}

func (f *flakyProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batches = append(f.batches, append([]string(nil), texts...))
	if f.calls <= f.failures {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}

func (f *flakyProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vs, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (f *flakyProvider) Dimensions() int                      { return f.dims }
func (f *flakyProvider) HealthCheck(ctx context.Context) bool { return true }
func (f *flakyProvider) Close() error                         { return nil }

func newTestRetrier(inner Provider, cfg RetryConfig) (*RetryingProvider, *[]time.Duration) {
	p := NewRetryingProvider(inner, cfg, nil)
	var waits []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return p, &waits
}

func TestRetryingProvider_RetriesTransientThenSucceeds(t *testing.T) {
	inner := &flakyProvider{failures: 2, err: &TransientError{Err: errors.New("connection reset")}, dims: 4}
	p, waits := newTestRetrier(inner, RetryConfig{MaxRetries: 3, InitialDelay: time.Second, BatchSize: 10})

	vectors, err := p.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 2 {
		t.Errorf("got %d vectors, want 2", len(vectors))
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
	// Exponential backoff: 1s then 2s.
	if len(*waits) != 2 || (*waits)[0] != time.Second || (*waits)[1] != 2*time.Second {
		t.Errorf("waits = %v", *waits)
	}
}

func TestRetryingProvider_ExhaustsRetries(t *testing.T) {
	inner := &flakyProvider{failures: 100, err: &TransientError{Err: errors.New("boom")}, dims: 4}
	p, _ := newTestRetrier(inner, RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, BatchSize: 10})

	_, err := p.Embed(context.Background(), []string{"a"})
	if !errors.Is(err, ErrEmbeddingFailed) {
		t.Fatalf("expected ErrEmbeddingFailed, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", inner.calls)
	}
}

func TestRetryingProvider_PermanentErrorNotRetried(t *testing.T) {
	inner := &flakyProvider{failures: 100, err: errors.New("invalid api key"), dims: 4}
	p, waits := newTestRetrier(inner, RetryConfig{MaxRetries: 3, InitialDelay: time.Second, BatchSize: 10})

	_, err := p.Embed(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries)", inner.calls)
	}
	if len(*waits) != 0 {
		t.Errorf("waits = %v, want none", *waits)
	}
}

func TestRetryingProvider_HonorsRetryAfterHint(t *testing.T) {
	inner := &flakyProvider{failures: 1, err: &RateLimitError{RetryAfter: 5 * time.Second}, dims: 4}
	p, waits := newTestRetrier(inner, RetryConfig{MaxRetries: 3, InitialDelay: time.Second, BatchSize: 10})

	if _, err := p.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(*waits) != 1 || (*waits)[0] != 5*time.Second {
		t.Errorf("waits = %v, want [5s]", *waits)
	}
}

func TestRetryingProvider_AutoBatches(t *testing.T) {
	inner := &flakyProvider{dims: 4}
	p, _ := newTestRetrier(inner, RetryConfig{MaxRetries: 0, InitialDelay: time.Second, BatchSize: 3})

	texts := make([]string, 8)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}
	vectors, err := p.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 8 {
		t.Errorf("got %d vectors, want 8", len(vectors))
	}
	if len(inner.batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(inner.batches))
	}
	for i, want := range []int{3, 3, 2} {
		if len(inner.batches[i]) != want {
			t.Errorf("batch %d has %d texts, want %d", i, len(inner.batches[i]), want)
		}
	}
	if inner.batches[2][1] != "text-7" {
		t.Errorf("order not preserved: %v", inner.batches[2])
	}
}

func TestRetryingProvider_ContextCancelDuringBackoff(t *testing.T) {
	inner := &flakyProvider{failures: 100, err: &TransientError{Err: errors.New("busy")}, dims: 4}
	p := NewRetryingProvider(inner, RetryConfig{MaxRetries: 5, InitialDelay: time.Hour, BatchSize: 10}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Embed(ctx, []string{"a"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMockProvider_Deterministic(t *testing.T) {
	p := NewMockProvider(8)
	a1, err := p.EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
	a2, _ := p.EmbedQuery(context.Background(), "hello")
	b, _ := p.EmbedQuery(context.Background(), "different")

	if len(a1) != 8 {
		t.Fatalf("dimension = %d, want 8", len(a1))
	}
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatal("same text must produce the same embedding")
		}
	}
	same := true
	for i := range a1 {
		if a1[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical embeddings")
	}

	var sum float64
	for _, v := range a1 {
		sum += float64(v) * float64(v)
	}
	if sum < 0.99 || sum > 1.01 {
		t.Errorf("embedding not unit length: |v|^2 = %f", sum)
	}
}
