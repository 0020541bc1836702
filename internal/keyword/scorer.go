package keyword

import "math"

// Default BM25 parameters. k1 controls term-frequency saturation, b controls
// document-length normalization.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// CorpusStats carries the aggregate statistics BM25 needs. The scorer reads
// them but never mutates them, so one snapshot can score many documents.
type CorpusStats struct {
	TotalDocs int
	AvgDocLen float64
	// DocFreqs maps a term to the number of documents containing it.
	DocFreqs map[string]int
}

// Score computes the BM25 relevance of a document against query terms.
// docTF holds the document's term frequencies and docLen its token count.
// Terms absent from the corpus contribute nothing. The function is pure:
// identical inputs always produce the identical score.
func Score(queryTerms []string, docTF map[string]int, docLen int, stats CorpusStats, k1, b float64) float64 {
	if stats.TotalDocs == 0 || docLen == 0 {
		return 0
	}
	avg := stats.AvgDocLen
	if avg <= 0 {
		avg = float64(docLen)
	}

	var score float64
	for _, term := range queryTerms {
		tf := docTF[term]
		if tf == 0 {
			continue
		}
		df := stats.DocFreqs[term]
		// +1 inside the log keeps IDF non-negative even when a term
		// appears in more than half the corpus.
		idf := math.Log((float64(stats.TotalDocs)-float64(df)+0.5)/(float64(df)+0.5) + 1)
		norm := float64(tf) * (k1 + 1) / (float64(tf) + k1*(1-b+b*float64(docLen)/avg))
		score += idf * norm
	}
	return score
}
