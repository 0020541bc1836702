package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/hyperjump/kensaku/internal/models"
)

// bleveDoc is the stored representation of a chunk. Only the fields needed
// to rebuild a result are indexed; embeddings stay in the dense store.
type bleveDoc struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	Content    string  `json:"content"`
	Index      float64 `json:"chunk_index"`
	TokenCount float64 `json:"token_count"`
}

// BleveIndex is the disk-backed lexical index. It trades the exact BM25
// scoring of BM25Index for persistence across restarts.
type BleveIndex struct {
	index bleve.Index
}

func bleveMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so scoring
	// behaves like the in-memory index, which matches exact words only.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("document_id", keywordFieldMapping)
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a bleve index at path. An existing index
// is reused so already-indexed chunks survive restarts; remove the index
// directory to force a rebuild after a mapping change.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, bleveMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewBleveMemIndex creates an ephemeral in-process bleve index, used in tests.
func NewBleveMemIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(bleveMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// AddDocuments indexes the given chunks in a single batch.
func (b *BleveIndex) AddDocuments(ctx context.Context, chunks []*models.Chunk) error {
	batch := b.index.NewBatch()
	for _, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("chunk has empty id")
		}
		doc := bleveDoc{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Content:    c.Content,
			Index:      float64(c.Index),
			TokenCount: float64(c.TokenCount),
		}
		if err := batch.Index(c.ID, doc); err != nil {
			return fmt.Errorf("failed to batch chunk %s: %w", c.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index batch: %w", err)
	}
	return nil
}

// Search runs a match query over chunk content.
func (b *BleveIndex) Search(ctx context.Context, query string, topK int) ([]*models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = 10
	}

	mq := bleve.NewMatchQuery(query)
	mq.SetField("content")
	req := bleve.NewSearchRequest(mq)
	req.Size = topK
	req.Fields = []string{"*"}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	results := make([]*models.SearchResult, 0, len(res.Hits))
	for i, hit := range res.Hits {
		results = append(results, &models.SearchResult{
			Chunk: chunkFromFields(hit.ID, hit.Fields),
			Score: hit.Score,
			Rank:  i + 1,
		})
	}
	return results, nil
}

func chunkFromFields(id string, fields map[string]interface{}) *models.Chunk {
	c := &models.Chunk{ID: id}
	if v, ok := fields["document_id"].(string); ok {
		c.DocumentID = v
	}
	if v, ok := fields["content"].(string); ok {
		c.Content = v
	}
	if v, ok := fields["chunk_index"].(float64); ok {
		c.Index = int(v)
	}
	if v, ok := fields["token_count"].(float64); ok {
		c.TokenCount = int(v)
	}
	return c
}

// GetDocumentByID fetches a single chunk by id.
func (b *BleveIndex) GetDocumentByID(ctx context.Context, id string) (*models.Chunk, bool) {
	q := bleve.NewDocIDQuery([]string{id})
	req := bleve.NewSearchRequest(q)
	req.Size = 1
	req.Fields = []string{"*"}
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil || len(res.Hits) == 0 {
		return nil, false
	}
	return chunkFromFields(res.Hits[0].ID, res.Hits[0].Fields), true
}

// DeleteDocument removes a chunk by id. Absent ids are ignored by bleve.
func (b *BleveIndex) DeleteDocument(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocumentCount returns the number of indexed chunks.
func (b *BleveIndex) DocumentCount() int {
	count, err := b.index.DocCount()
	if err != nil {
		return 0
	}
	return int(count)
}

// Clear removes every chunk from the index.
func (b *BleveIndex) Clear(ctx context.Context) error {
	q := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequest(q)
	req.Size = 10000
	for {
		res, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := b.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to delete batch: %w", err)
		}
	}
}

// Close closes the underlying bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
