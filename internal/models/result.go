package models

// SearchResult is a single hit from one index (dense or sparse).
// Score is cosine similarity in [0,1] for vector hits and a raw BM25 score
// for keyword hits. Rank is 1-based and contiguous within its source list.
type SearchResult struct {
	Chunk    *Chunk  `json:"chunk"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
	Distance float64 `json:"distance,omitempty"`
}

// RetrievedChunk is a fused retrieval hit. Score is the reciprocal-rank-fusion
// score; VectorScore and KeywordScore carry the constituent raw scores (zero
// when the chunk was absent from that source list).
type RetrievedChunk struct {
	ChunkID      string  `json:"chunk_id"`
	DocumentID   string  `json:"document_id"`
	Content      string  `json:"content"`
	Score        float64 `json:"score"`
	Rank         int     `json:"rank"`
	VectorScore  float64 `json:"vector_score"`
	KeywordScore float64 `json:"keyword_score"`
}

// SearchResponse is the wire envelope for a search call.
type SearchResponse struct {
	Results      []*RetrievedChunk `json:"results"`
	TotalResults int               `json:"total_results"`
	SearchTimeMs int64             `json:"search_time_ms"`
	Query        string            `json:"query,omitempty"`
}
