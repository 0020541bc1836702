package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hyperjump/kensaku/internal/models"
	"go.uber.org/zap"
)

// MemoryStore is the exact in-memory reference implementation of Store.
//
// Mutations append to a chunk map and set a dirty flag; the next search
// rebuilds a stacked, row-normalized embedding matrix once, so normalization
// cost is amortized across reads. The mutex covers mutation and rebuild only:
// matrix rows are immutable after a rebuild, so similarity computation runs
// without holding the lock. Designed for single-process corpora in the tens
// of thousands of vectors; every query is exact, O(n).
type MemoryStore struct {
	dimension int
	logger    *zap.Logger

	mu     sync.Mutex
	chunks map[string]*models.Chunk
	order  []string // live ids in insertion order
	dirty  bool
	matrix [][]float32 // unit-norm rows, parallel to matrixIDs
	ids    []string
	closed bool
}

// NewMemoryStore creates an in-memory store for embeddings of the given
// dimension.
func NewMemoryStore(dimension int, logger *zap.Logger) (*MemoryStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		dimension: dimension,
		logger:    logger,
		chunks:    make(map[string]*models.Chunk),
	}, nil
}

// Dimension returns the configured embedding dimension.
func (m *MemoryStore) Dimension() int {
	return m.dimension
}

// AddChunks indexes the given chunks. The whole batch is validated before any
// mutation, so a failing chunk leaves the store unchanged.
func (m *MemoryStore) AddChunks(ctx context.Context, chunks []*models.Chunk) error {
	for _, chunk := range chunks {
		if err := m.validate(chunk); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrNotInitialized
	}
	for _, chunk := range chunks {
		if _, exists := m.chunks[chunk.ID]; !exists {
			m.order = append(m.order, chunk.ID)
		}
		m.chunks[chunk.ID] = chunk.Clone()
	}
	m.dirty = true
	return nil
}

// DeleteChunks removes chunks by id. Removing an absent id is a no-op.
func (m *MemoryStore) DeleteChunks(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrNotInitialized
	}

	removed := false
	for _, id := range ids {
		if _, ok := m.chunks[id]; ok {
			delete(m.chunks, id)
			removed = true
		}
	}
	if !removed {
		return nil
	}
	live := m.order[:0]
	for _, id := range m.order {
		if _, ok := m.chunks[id]; ok {
			live = append(live, id)
		}
	}
	m.order = live
	m.dirty = true
	return nil
}

// Search computes cosine similarity between the query and every indexed
// chunk as one pass over the normalized matrix, then selects the top k.
// The threshold is applied after ranking, so it only shortens the returned
// list and never changes which chunks were candidates.
func (m *MemoryStore) Search(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]*models.SearchResult, error) {
	if len(queryEmbedding) != m.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, m.dimension, len(queryEmbedding))
	}

	matrix, ids, err := m.snapshot()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.SearchResult{}, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}

	// Metadata filters narrow the candidate set before scoring, so they
	// never eat into the requested k.
	allowed := m.allowedRows(ids, opts.Filters)

	query := normalized(queryEmbedding)
	scores := make([]scoredRow, 0, len(matrix))
	for i, row := range matrix {
		if allowed != nil && !allowed[i] {
			continue
		}
		scores = append(scores, scoredRow{idx: i, score: InnerProduct(query, row)})
	}

	top := selectTopK(scores, topK)

	results := make([]*models.SearchResult, 0, len(top))
	for _, row := range top {
		chunk := m.chunkByID(ids[row.idx])
		if chunk == nil {
			continue
		}
		score := clamp01(row.score)
		if score < opts.Threshold {
			continue
		}
		results = append(results, &models.SearchResult{
			Chunk:    chunk,
			Score:    score,
			Rank:     len(results) + 1,
			Distance: 1 - score,
		})
	}
	return results, nil
}

// GetChunk returns the chunk with the given id.
func (m *MemoryStore) GetChunk(ctx context.Context, id string) (*models.Chunk, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chunk, ok := m.chunks[id]
	return chunk, ok
}

// UpdateChunk replaces an existing chunk's content and embedding and marks
// the index dirty. Returns ErrNotFound when the id was never added.
func (m *MemoryStore) UpdateChunk(ctx context.Context, chunk *models.Chunk) error {
	if err := m.validate(chunk); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrNotInitialized
	}
	if _, ok := m.chunks[chunk.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, chunk.ID)
	}
	m.chunks[chunk.ID] = chunk.Clone()
	m.dirty = true
	return nil
}

// Count returns the number of indexed chunks.
func (m *MemoryStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks)
}

// Clear removes all chunks.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = make(map[string]*models.Chunk)
	m.order = nil
	m.matrix = nil
	m.ids = nil
	m.dirty = false
	return nil
}

// HealthCheck reports whether the store is open.
func (m *MemoryStore) HealthCheck(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Close marks the store unusable for further mutation.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// snapshot rebuilds the normalized matrix if dirty and returns the matrix
// and id slices. Both are replaced wholesale on rebuild, never mutated in
// place, so callers may read them after the lock is released.
func (m *MemoryStore) snapshot() ([][]float32, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, nil, ErrNotInitialized
	}
	if m.dirty {
		ids := make([]string, len(m.order))
		copy(ids, m.order)
		matrix := make([][]float32, len(ids))
		for i, id := range ids {
			matrix[i] = normalized(m.chunks[id].Embedding)
		}
		m.matrix = matrix
		m.ids = ids
		m.dirty = false
		m.logger.Debug("rebuilt embedding matrix", zap.Int("rows", len(ids)))
	}
	return m.matrix, m.ids, nil
}

// allowedRows returns the set of matrix rows whose chunks satisfy the
// filters, or nil when no filters are set.
func (m *MemoryStore) allowedRows(ids []string, filters map[string]interface{}) map[int]bool {
	if len(filters) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := make(map[int]bool, len(ids))
	for i, id := range ids {
		if chunk, ok := m.chunks[id]; ok && chunk.MatchesFilters(filters) {
			allowed[i] = true
		}
	}
	return allowed
}

func (m *MemoryStore) chunkByID(id string) *models.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chunks[id]
}

func (m *MemoryStore) validate(chunk *models.Chunk) error {
	if chunk == nil || chunk.ID == "" {
		return fmt.Errorf("%w: chunk without an id", ErrAddFailed)
	}
	if len(chunk.Embedding) == 0 {
		return fmt.Errorf("%w: %s", ErrMissingEmbedding, chunk.ID)
	}
	if len(chunk.Embedding) != m.dimension {
		return fmt.Errorf("%w: chunk %s has %d, store expects %d",
			ErrDimensionMismatch, chunk.ID, len(chunk.Embedding), m.dimension)
	}
	return nil
}

// Save persists the store to path so a process can warm-start without
// re-embedding. Format: dimension (4), count (4), then per chunk three
// length-prefixed strings (id, document id, content), chunk index (4),
// token count (4), and the raw vector. Metadata is not persisted; use the
// sqlite backend for full fidelity.
func (m *MemoryStore) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimension)); err != nil {
		return fmt.Errorf("write dimension: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.order))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, id := range m.order {
		chunk := m.chunks[id]
		for _, s := range []string{chunk.ID, chunk.DocumentID, chunk.Content} {
			if err := writeString(f, s); err != nil {
				return err
			}
		}
		if err := binary.Write(f, binary.LittleEndian, int32(chunk.Index)); err != nil {
			return fmt.Errorf("write chunk index: %w", err)
		}
		if err := binary.Write(f, binary.LittleEndian, int32(chunk.TokenCount)); err != nil {
			return fmt.Errorf("write token count: %w", err)
		}
		if _, err := f.Write(encodeVector(chunk.Embedding)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads an index written by Save, replacing the in-memory contents.
// A missing file is not an error and leaves the store unchanged.
func (m *MemoryStore) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimension: %w", err)
	}
	if int(dim) != m.dimension {
		return fmt.Errorf("%w: file has %d, store expects %d", ErrDimensionMismatch, dim, m.dimension)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	chunks := make(map[string]*models.Chunk, n)
	order := make([]string, 0, n)
	buf := make([]byte, m.dimension*4)
	for i := uint32(0); i < n; i++ {
		chunk := &models.Chunk{}
		var fields [3]string
		for j := range fields {
			s, err := readString(f)
			if err != nil {
				return err
			}
			fields[j] = s
		}
		chunk.ID, chunk.DocumentID, chunk.Content = fields[0], fields[1], fields[2]
		var idx, tokens int32
		if err := binary.Read(f, binary.LittleEndian, &idx); err != nil {
			return fmt.Errorf("read chunk index: %w", err)
		}
		if err := binary.Read(f, binary.LittleEndian, &tokens); err != nil {
			return fmt.Errorf("read token count: %w", err)
		}
		chunk.Index, chunk.TokenCount = int(idx), int(tokens)
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		chunk.Embedding = decodeVector(buf)
		chunks[chunk.ID] = chunk
		order = append(order, chunk.ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = chunks
	m.order = order
	m.dirty = true
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return fmt.Errorf("write string length: %w", err)
	}
	if _, err := w.Write([]byte(s)); err != nil {
		return fmt.Errorf("write string: %w", err)
	}
	return nil
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("read string length: %w", err)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("read string: %w", err)
	}
	return string(b), nil
}
