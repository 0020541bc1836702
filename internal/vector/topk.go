package vector

import "sort"

// scoredRow pairs a matrix row index with its similarity score.
type scoredRow struct {
	idx   int
	score float64
}

// selectTopK reorders scores so the k highest-scoring rows occupy the front,
// then sorts only those k. When k is close to or exceeds the corpus size the
// whole slice is sorted instead. Ties break on row index, which follows
// insertion order, so rankings are deterministic.
func selectTopK(scores []scoredRow, k int) []scoredRow {
	n := len(scores)
	if k >= n || k*2 >= n {
		sortRows(scores)
		if k > n {
			k = n
		}
		return scores[:k]
	}
	partialSelect(scores, k)
	top := scores[:k]
	sortRows(top)
	return top
}

// partialSelect places the k largest elements (by score) in the first k
// positions using expected-O(n) quickselect.
func partialSelect(scores []scoredRow, k int) {
	lo, hi := 0, len(scores)-1
	for lo < hi {
		p := partition(scores, lo, hi)
		switch {
		case p == k-1:
			return
		case p < k-1:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
}

// partition arranges scores[lo..hi] around a median-of-three pivot so that
// greater rows come first, returning the pivot's final position. Ordering is
// total (score desc, then idx asc), so tied rows at the selection boundary
// are cut by insertion order too.
func partition(scores []scoredRow, lo, hi int) int {
	mid := lo + (hi-lo)/2
	if rowGreater(scores[mid], scores[lo]) {
		scores[mid], scores[lo] = scores[lo], scores[mid]
	}
	if rowGreater(scores[hi], scores[lo]) {
		scores[hi], scores[lo] = scores[lo], scores[hi]
	}
	if rowGreater(scores[mid], scores[hi]) {
		scores[mid], scores[hi] = scores[hi], scores[mid]
	}
	pivot := scores[hi]
	i := lo
	for j := lo; j < hi; j++ {
		if rowGreater(scores[j], pivot) {
			scores[i], scores[j] = scores[j], scores[i]
			i++
		}
	}
	scores[i], scores[hi] = scores[hi], scores[i]
	return i
}

// rowGreater orders rows by score descending, row index ascending.
func rowGreater(a, b scoredRow) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.idx < b.idx
}

func sortRows(rows []scoredRow) {
	sort.Slice(rows, func(i, j int) bool {
		return rowGreater(rows[i], rows[j])
	})
}
