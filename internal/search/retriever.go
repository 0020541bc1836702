package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/cache"
	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/keyword"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/vector"
)

// Config tunes the retriever.
type Config struct {
	// TopKCandidates is how many hits each index contributes before fusion.
	TopKCandidates int `yaml:"top_k_candidates"`
	// RRFK is the reciprocal-rank-fusion constant.
	RRFK int `yaml:"rrf_k"`
	// CacheTTL is the lifetime of cached query embeddings; zero uses the
	// cache backend's default.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.TopKCandidates <= 0 {
		c.TopKCandidates = 50
	}
	if c.RRFK <= 0 {
		c.RRFK = DefaultRRFK
	}
}

// Retriever runs hybrid retrieval: dense and sparse searches fan out
// concurrently and merge with reciprocal-rank fusion. Every dependency is
// optional; with only one index configured the retriever degrades to
// single-mode search, and with none it returns empty results.
type Retriever struct {
	vectorStore  vector.Store
	keywordIndex keyword.Index
	provider     embedding.Provider
	cache        *cache.EmbeddingCache
	cfg          Config
	logger       *zap.Logger
}

// NewRetriever creates a retriever over the given components. Any of
// vectorStore, keywordIndex, provider and embCache may be nil.
func NewRetriever(
	vectorStore vector.Store,
	keywordIndex keyword.Index,
	provider embedding.Provider,
	embCache *cache.EmbeddingCache,
	cfg Config,
	logger *zap.Logger,
) *Retriever {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		vectorStore:  vectorStore,
		keywordIndex: keywordIndex,
		provider:     provider,
		cache:        embCache,
		cfg:          cfg,
		logger:       logger,
	}
}

// Retrieve runs a hybrid search for the query and returns fused, ranked
// results. A query embedding supplied by the caller is used as-is; otherwise
// the embedding provider resolves one (through the cache when configured).
// When no embedding can be resolved the search falls back to sparse-only
// rather than failing.
func (r *Retriever) Retrieve(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}

	queryText := strings.TrimSpace(query.QueryText)
	queryEmbedding := query.QueryEmbedding
	if len(queryEmbedding) == 0 && r.vectorStore != nil && r.provider != nil && queryText != "" {
		queryEmbedding = r.resolveEmbedding(ctx, queryText)
	}

	runDense := r.vectorStore != nil && len(queryEmbedding) > 0
	runSparse := r.keywordIndex != nil && queryText != ""
	if !runDense && !runSparse {
		return &models.SearchResponse{
			Results:      []*models.RetrievedChunk{},
			SearchTimeMs: time.Since(start).Milliseconds(),
			Query:        query.QueryText,
		}, nil
	}

	var (
		dense   []*models.SearchResult
		sparse  []*models.SearchResult
		errChan = make(chan error, 2)
		wg      sync.WaitGroup
	)

	if runDense {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := r.vectorStore.Search(ctx, queryEmbedding, vector.SearchOptions{
				TopK:      r.cfg.TopKCandidates,
				Threshold: query.Threshold,
				Filters:   query.Filters,
			})
			if err != nil {
				errChan <- fmt.Errorf("vector search failed: %w", err)
				return
			}
			dense = results
		}()
	}

	if runSparse {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := r.keywordIndex.Search(ctx, queryText, r.cfg.TopKCandidates)
			if err != nil {
				errChan <- fmt.Errorf("keyword search failed: %w", err)
				return
			}
			sparse = filterSparse(results, query.Filters)
		}()
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	fused := FuseRRF(dense, sparse, r.cfg.RRFK)
	total := len(fused)
	if len(fused) > query.TopK {
		fused = fused[:query.TopK]
	}

	return &models.SearchResponse{
		Results:      fused,
		TotalResults: total,
		SearchTimeMs: time.Since(start).Milliseconds(),
		Query:        query.QueryText,
	}, nil
}

// resolveEmbedding returns the query embedding from the cache or the
// provider, or nil when neither can serve it. Provider failures only
// degrade the search to sparse mode.
func (r *Retriever) resolveEmbedding(ctx context.Context, text string) []float32 {
	if r.cache != nil {
		if vec, ok := r.cache.Get(ctx, text); ok {
			return vec
		}
	}
	vec, err := r.provider.EmbedQuery(ctx, text)
	if err != nil {
		r.logger.Warn("query embedding failed, falling back to keyword-only search",
			zap.Error(err))
		return nil
	}
	if r.cache != nil {
		r.cache.Set(ctx, text, vec, r.cfg.CacheTTL)
	}
	return vec
}

// filterSparse drops keyword hits that fail the metadata filters and
// re-ranks the survivors contiguously.
func filterSparse(results []*models.SearchResult, filters map[string]interface{}) []*models.SearchResult {
	if len(filters) == 0 {
		return results
	}
	kept := make([]*models.SearchResult, 0, len(results))
	for _, res := range results {
		if res.Chunk != nil && res.Chunk.MatchesFilters(filters) {
			res.Rank = len(kept) + 1
			kept = append(kept, res)
		}
	}
	return kept
}

// IndexChunks adds chunks to every configured index. Chunks without an
// embedding get one from the provider in a single auto-batched call; the
// resolved embeddings are also written through to the cache.
func (r *Retriever) IndexChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	if r.vectorStore != nil {
		if err := r.ensureEmbeddings(ctx, chunks); err != nil {
			return err
		}
		if err := r.vectorStore.AddChunks(ctx, chunks); err != nil {
			return err
		}
	}
	if r.keywordIndex != nil {
		if err := r.keywordIndex.AddDocuments(ctx, chunks); err != nil {
			return err
		}
	}
	return nil
}

func (r *Retriever) ensureEmbeddings(ctx context.Context, chunks []*models.Chunk) error {
	if r.cache != nil {
		r.cache.GetDocumentChunks(ctx, chunks)
	}

	var missing []*models.Chunk
	var texts []string
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			missing = append(missing, c)
			texts = append(texts, c.Content)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if r.provider == nil {
		return fmt.Errorf("%w: %d chunks have no embedding and no provider is configured",
			vector.ErrMissingEmbedding, len(missing))
	}

	vectors, err := r.provider.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed %d chunks: %w", len(missing), err)
	}
	for i, c := range missing {
		c.Embedding = vectors[i]
	}
	if r.cache != nil {
		r.cache.SetDocumentChunks(ctx, missing, r.cfg.CacheTTL)
	}
	return nil
}

// DeleteChunks removes chunks from every configured index.
func (r *Retriever) DeleteChunks(ctx context.Context, ids []string) error {
	if r.vectorStore != nil {
		if err := r.vectorStore.DeleteChunks(ctx, ids); err != nil {
			return err
		}
	}
	if r.keywordIndex != nil {
		for _, id := range ids {
			if err := r.keywordIndex.DeleteDocument(ctx, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Health reports the readiness of each configured component.
func (r *Retriever) Health(ctx context.Context) map[string]bool {
	health := make(map[string]bool)
	if r.vectorStore != nil {
		health["vector_store"] = r.vectorStore.HealthCheck(ctx)
	}
	if r.keywordIndex != nil {
		health["keyword_index"] = true
	}
	if r.provider != nil {
		health["embedding_provider"] = r.provider.HealthCheck(ctx)
	}
	return health
}
