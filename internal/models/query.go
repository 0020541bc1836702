package models

import "fmt"

// SearchQuery is a retrieval request. QueryEmbedding is optional; when absent
// the retriever resolves it through the embedding provider (and cache).
type SearchQuery struct {
	QueryText      string                 `json:"query_text"`
	QueryEmbedding []float32              `json:"query_embedding,omitempty"`
	TopK           int                    `json:"top_k,omitempty"`
	Threshold      float64                `json:"threshold,omitempty"`
	Filters        map[string]interface{} `json:"filters,omitempty"`
}

// Validate ensures the search query has valid fields and sets defaults.
// Returns an error when neither text nor an embedding is present; otherwise
// normalizes TopK into [1, 100] and clamps a negative threshold to zero.
func (q *SearchQuery) Validate() error {
	if q.QueryText == "" && len(q.QueryEmbedding) == 0 {
		return fmt.Errorf("query requires text or an embedding")
	}
	if q.TopK <= 0 {
		q.TopK = 10
	}
	if q.TopK > 100 {
		q.TopK = 100
	}
	if q.Threshold < 0 {
		q.Threshold = 0
	}
	return nil
}
