package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls the retry and batching behavior of RetryingProvider.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first failure.
	MaxRetries int `yaml:"max_retries"`
	// InitialDelay is the wait before the first retry; each further retry
	// doubles it. A rate-limit retry-after hint overrides the computed delay.
	InitialDelay time.Duration `yaml:"initial_delay"`
	// BatchSize caps how many texts go to the provider per request.
	// Oversized inputs are split transparently.
	BatchSize int `yaml:"batch_size"`
}

// DefaultRetryConfig mirrors the usual client defaults: 3 retries starting
// at one second, batches of 100 texts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialDelay: time.Second, BatchSize: 100}
}

// RetryingProvider decorates a Provider with exponential-backoff retries on
// transient failures and automatic splitting of oversized batches. Permanent
// errors pass through on the first attempt.
type RetryingProvider struct {
	inner  Provider
	cfg    RetryConfig
	logger *zap.Logger
	// sleep is swapped in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryingProvider wraps inner with retry and batching behavior.
func NewRetryingProvider(inner Provider, cfg RetryConfig, logger *zap.Logger) *RetryingProvider {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingProvider{inner: inner, cfg: cfg, logger: logger, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Embed splits texts into batches of at most BatchSize and embeds each with
// retries, preserving input order across batches.
func (p *RetryingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := p.embedWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (p *RetryingProvider) embedWithRetry(ctx context.Context, batch []string) ([][]float32, error) {
	delay := p.cfg.InitialDelay
	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		vectors, err := p.inner.Embed(ctx, batch)
		if err == nil {
			if len(vectors) != len(batch) {
				return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts",
					ErrEmbeddingFailed, len(vectors), len(batch))
			}
			return vectors, nil
		}
		lastErr = err
		if !retryable(err) || attempt == p.cfg.MaxRetries {
			break
		}

		wait := delay
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			wait = rl.RetryAfter
		}
		p.logger.Warn("embedding request failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err))
		if err := p.sleep(ctx, wait); err != nil {
			return nil, err
		}
		delay *= 2
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrEmbeddingFailed, p.cfg.MaxRetries+1, lastErr)
}

// EmbedQuery embeds a single text with the same retry policy as Embed.
func (p *RetryingProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimensions reports the wrapped provider's dimension.
func (p *RetryingProvider) Dimensions() int { return p.inner.Dimensions() }

// HealthCheck delegates to the wrapped provider without retries.
func (p *RetryingProvider) HealthCheck(ctx context.Context) bool { return p.inner.HealthCheck(ctx) }

// Close closes the wrapped provider.
func (p *RetryingProvider) Close() error { return p.inner.Close() }
