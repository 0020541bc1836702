package keyword

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/models"
)

type indexedDoc struct {
	chunk *models.Chunk
	tf    map[string]int
	// length is the token count of the chunk content, which can differ
	// from chunk.TokenCount (an embedding-model token estimate).
	length int
	// seq is the insertion order, used for stable tie-breaking.
	seq int
}

// BM25Index is the in-memory lexical index. Scoring is exact BM25 over the
// whole corpus; adds, deletes and replaces keep the corpus statistics
// incrementally up to date.
type BM25Index struct {
	mu     sync.RWMutex
	docs   map[string]*indexedDoc
	// docFreqs maps a term to the number of documents containing it.
	docFreqs map[string]int
	totalLen int
	nextSeq  int

	k1     float64
	b      float64
	logger *zap.Logger
}

// BM25Option configures a BM25Index.
type BM25Option func(*BM25Index)

// WithParameters overrides the BM25 k1 and b parameters. Non-positive
// values keep the defaults.
func WithParameters(k1, b float64) BM25Option {
	return func(idx *BM25Index) {
		if k1 > 0 {
			idx.k1 = k1
		}
		if b > 0 {
			idx.b = b
		}
	}
}

// WithBM25Logger attaches a logger for index lifecycle events.
func WithBM25Logger(logger *zap.Logger) BM25Option {
	return func(idx *BM25Index) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

// NewBM25Index creates an empty in-memory BM25 index.
func NewBM25Index(opts ...BM25Option) *BM25Index {
	idx := &BM25Index{
		docs:     make(map[string]*indexedDoc),
		docFreqs: make(map[string]int),
		k1:       DefaultK1,
		b:        DefaultB,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// AddDocuments indexes the given chunks. A chunk whose id is already
// indexed replaces the previous version.
func (idx *BM25Index) AddDocuments(ctx context.Context, chunks []*models.Chunk) error {
	for _, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("chunk has empty id")
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, c := range chunks {
		if old, ok := idx.docs[c.ID]; ok {
			idx.removeStats(old)
		}
		tokens := Tokenize(c.Content)
		doc := &indexedDoc{
			chunk:  c.Clone(),
			tf:     termFrequencies(tokens),
			length: len(tokens),
			seq:    idx.nextSeq,
		}
		idx.nextSeq++
		idx.docs[c.ID] = doc
		idx.addStats(doc)
	}
	idx.logger.Debug("indexed chunks",
		zap.Int("added", len(chunks)),
		zap.Int("total", len(idx.docs)))
	return nil
}

func (idx *BM25Index) addStats(doc *indexedDoc) {
	idx.totalLen += doc.length
	for term := range doc.tf {
		idx.docFreqs[term]++
	}
}

func (idx *BM25Index) removeStats(doc *indexedDoc) {
	idx.totalLen -= doc.length
	for term := range doc.tf {
		if idx.docFreqs[term] <= 1 {
			delete(idx.docFreqs, term)
		} else {
			idx.docFreqs[term]--
		}
	}
}

// Search scores every document against the query and returns up to topK
// results with positive scores, ranked from 1. Ties keep insertion order.
func (idx *BM25Index) Search(ctx context.Context, query string, topK int) ([]*models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = 10
	}
	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 {
		return nil, ErrEmptyQuery
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if len(idx.docs) == 0 {
		return []*models.SearchResult{}, nil
	}

	stats := CorpusStats{
		TotalDocs: len(idx.docs),
		AvgDocLen: float64(idx.totalLen) / float64(len(idx.docs)),
		DocFreqs:  idx.docFreqs,
	}

	type scoredDoc struct {
		doc   *indexedDoc
		score float64
	}
	scored := make([]scoredDoc, 0, len(idx.docs))
	for _, doc := range idx.docs {
		s := Score(queryTerms, doc.tf, doc.length, stats, idx.k1, idx.b)
		if s > 0 {
			scored = append(scored, scoredDoc{doc: doc, score: s})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].doc.seq < scored[j].doc.seq
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}

	results := make([]*models.SearchResult, len(scored))
	for i, s := range scored {
		results[i] = &models.SearchResult{
			Chunk: s.doc.chunk.Clone(),
			Score: s.score,
			Rank:  i + 1,
		}
	}
	return results, nil
}

// DeleteDocument removes a chunk from the index. Absent ids are ignored.
func (idx *BM25Index) DeleteDocument(ctx context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	doc, ok := idx.docs[id]
	if !ok {
		return nil
	}
	idx.removeStats(doc)
	delete(idx.docs, id)
	return nil
}

// GetDocumentByID returns the indexed chunk with the given id.
func (idx *BM25Index) GetDocumentByID(ctx context.Context, id string) (*models.Chunk, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	doc, ok := idx.docs[id]
	if !ok {
		return nil, false
	}
	return doc.chunk.Clone(), true
}

// DocumentCount returns the number of indexed chunks.
func (idx *BM25Index) DocumentCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// Clear removes all documents and resets corpus statistics.
func (idx *BM25Index) Clear(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.docs = make(map[string]*indexedDoc)
	idx.docFreqs = make(map[string]int)
	idx.totalLen = 0
	return nil
}

// Close is a no-op for the in-memory index.
func (idx *BM25Index) Close() error { return nil }
