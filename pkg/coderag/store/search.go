package store

import (
	"container/heap"
	"context"
	"math"
	"strings"

	"github.com/coderag/coderag/pkg/coderagerrors"
	"github.com/coderag/coderag/pkg/coderag/types"
)

// Search returns the topK chunks most similar to query, filtered by
// filters, scored by cosine similarity mapped into [0,1] via
// (cosine_similarity + 1) / 2. Score ties break by more-recent IndexedAt,
// then by lexicographically smaller ID.
//
// Grounded on the teacher's database.CosineSimilarity plus SortByScore,
// generalized from an O(n log n) full sort to a bounded max-heap so that
// topK << len(chunks) doesn't pay for sorting chunks it will discard —
// the same complexity trade cagent's own comments note as acceptable for
// its in-memory scale.
func (s *Store) Search(ctx context.Context, query []float32, topK int, filters types.SearchFilters) ([]types.SearchResult, error) {
	select {
	case <-ctx.Done():
		return nil, &coderagerrors.CancelledError{Cause: ctx.Err()}
	default:
	}

	if len(query) == 0 {
		return nil, &coderagerrors.InvalidRequestError{Field: "query", Reason: "vector must not be empty"}
	}
	if topK <= 0 {
		topK = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	h := &resultHeap{}
	heap.Init(h)

	for _, c := range s.chunks {
		if !matchesFilters(c, filters) {
			continue
		}
		if len(c.Vector) != len(query) {
			continue
		}

		score := cosineScore(query, c.Vector)
		if score < filters.MinScore {
			continue
		}

		candidate := types.SearchResult{Chunk: c, Score: score}
		if h.Len() < topK {
			heap.Push(h, candidate)
			continue
		}
		if resultLess((*h)[0], candidate) {
			(*h)[0] = candidate
			heap.Fix(h, 0)
		}
	}

	out := make([]types.SearchResult, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(types.SearchResult)
	}
	return out, nil
}

func matchesFilters(c types.Chunk, f types.SearchFilters) bool {
	if f.SourceFilter != "" &&
		!strings.Contains(c.Source, f.SourceFilter) &&
		!strings.Contains(c.URL, f.SourceFilter) {
		return false
	}
	if f.ContentType != "" && c.ContentType != f.ContentType {
		return false
	}
	return true
}

// cosineScore computes cosine similarity and maps it from [-1,1] into
// [0,1].
func cosineScore(a []float32, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		da, db := float64(a[i]), float64(b[i])
		dot += da * db
		normA += da * da
		normB += db * db
	}
	if normA == 0 || normB == 0 {
		return 0.5
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (sim + 1) / 2
}

// resultHeap is a min-heap (by resultLess) over the current top-K, so the
// weakest member sits at the root and is cheap to evict.
type resultHeap []types.SearchResult

func (h resultHeap) Len() int           { return len(h) }
func (h resultHeap) Less(i, j int) bool { return resultLess(h[i], h[j]) }
func (h resultHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

// resultLess reports whether a ranks below b: a lower Score loses; on an
// equal Score the less-recently-indexed chunk loses; on an exact
// IndexedAt tie the lexicographically larger ID loses, so results sort
// with more-recent IndexedAt first and lexicographically smaller ID
// first, per spec §4.3.
func resultLess(a, b types.SearchResult) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if !a.Chunk.IndexedAt.Equal(b.Chunk.IndexedAt) {
		return a.Chunk.IndexedAt.Before(b.Chunk.IndexedAt)
	}
	return a.Chunk.ID > b.Chunk.ID
}
func (h *resultHeap) Push(x any)   { *h = append(*h, x.(types.SearchResult)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
