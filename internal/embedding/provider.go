// Package embedding defines the embedding-provider contract and the retry
// and batching decorator wrapped around concrete providers.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmbeddingFailed is returned when a provider call fails after all
// retries are exhausted.
var ErrEmbeddingFailed = errors.New("embedding request failed")

// RateLimitError reports that the provider rejected a request for rate
// limiting. RetryAfter is the provider's hint, zero when none was given.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// TransientError marks a failure as retryable (connection reset, timeout,
// 5xx). Providers wrap such failures so the retry layer can tell them from
// permanent errors like an invalid API key.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient embedding error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Provider produces vector embeddings for text. Implementations call an
// external model service; this package never computes embeddings itself.
type Provider interface {
	// Embed returns one embedding per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the provider's embedding dimension.
	Dimensions() int
	// HealthCheck reports whether the provider is reachable.
	HealthCheck(ctx context.Context) bool
	Close() error
}

// retryable reports whether err is worth retrying.
func retryable(err error) bool {
	var rl *RateLimitError
	var tr *TransientError
	return errors.As(err, &rl) || errors.As(err, &tr)
}
