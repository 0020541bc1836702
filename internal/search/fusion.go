// Package search provides hybrid retrieval over the dense and sparse indexes
// with reciprocal-rank fusion.
package search

import (
	"sort"

	"github.com/hyperjump/kensaku/internal/models"
)

// DefaultRRFK is the standard reciprocal-rank-fusion constant. Larger values
// flatten the contribution difference between adjacent ranks.
const DefaultRRFK = 60

// FuseRRF merges ranked dense and sparse result lists with reciprocal-rank
// fusion: each chunk scores sum(1/(k+rank)) over the lists containing it.
// Because contributions are rank-based, a chunk ranked at least as high as
// another in both lists, and strictly higher in one, always fuses strictly
// higher. Ties break on chunk id so the output is deterministic.
func FuseRRF(dense, sparse []*models.SearchResult, k int) []*models.RetrievedChunk {
	if k <= 0 {
		k = DefaultRRFK
	}

	fused := make(map[string]*models.RetrievedChunk)
	merge := func(results []*models.SearchResult, isDense bool) {
		for _, r := range results {
			if r == nil || r.Chunk == nil {
				continue
			}
			rc, ok := fused[r.Chunk.ID]
			if !ok {
				rc = &models.RetrievedChunk{
					ChunkID:    r.Chunk.ID,
					DocumentID: r.Chunk.DocumentID,
					Content:    r.Chunk.Content,
				}
				fused[r.Chunk.ID] = rc
			}
			rc.Score += 1.0 / float64(k+r.Rank)
			if isDense {
				rc.VectorScore = r.Score
			} else {
				rc.KeywordScore = r.Score
			}
		}
	}
	merge(dense, true)
	merge(sparse, false)

	out := make([]*models.RetrievedChunk, 0, len(fused))
	for _, rc := range fused {
		out = append(out, rc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	for i, rc := range out {
		rc.Rank = i + 1
	}
	return out
}
