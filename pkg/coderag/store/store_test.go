package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderag/coderag/pkg/coderag/types"
)

func unit(lead int) []float32 {
	v := make([]float32, 8)
	v[lead%8] = 1
	return v
}

func newChunk(hash, source string, vec []float32) types.Chunk {
	return types.Chunk{
		Vector:      vec,
		Text:        "some text",
		URL:         "https://docs.example.com/" + source,
		Source:      source,
		ContentType: types.ContentProse,
		ContentHash: hash,
		IndexedAt:   time.Now(),
	}
}

func TestUpsertAssignsIDAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := Open(path)
	require.NoError(t, err)

	id, dup, err := s.Upsert(context.Background(), newChunk("h1", "golang.org", unit(0)))
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, s.Len())
}

// TestUpsertDedupesByContentHash covers I3: re-indexing identical content
// must not grow the store.
func TestUpsertDedupesByContentHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := Open(path)
	require.NoError(t, err)

	id1, dup1, err := s.Upsert(context.Background(), newChunk("h1", "golang.org", unit(0)))
	require.NoError(t, err)
	require.False(t, dup1)

	id2, dup2, err := s.Upsert(context.Background(), newChunk("h1", "golang.org", unit(0)))
	require.NoError(t, err)
	assert.True(t, dup2)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, s.Len())
}

func TestSaveAndReloadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := Open(path)
	require.NoError(t, err)

	_, _, err = s.Upsert(context.Background(), newChunk("h1", "golang.org", unit(0)))
	require.NoError(t, err)
	require.NoError(t, s.Save())

	s2, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 1, s2.Len())
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestDeleteByRemovesOnlyMatchingSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := Open(path)
	require.NoError(t, err)

	_, _, err = s.Upsert(context.Background(), newChunk("h1", "golang.org", unit(0)))
	require.NoError(t, err)
	_, _, err = s.Upsert(context.Background(), newChunk("h2", "rust-lang.org", unit(1)))
	require.NoError(t, err)

	removed := s.DeleteBy("golang.org")
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())
}

func TestIterSourcesAggregatesCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := Open(path)
	require.NoError(t, err)

	_, _, err = s.Upsert(context.Background(), newChunk("h1", "golang.org", unit(0)))
	require.NoError(t, err)
	_, _, err = s.Upsert(context.Background(), newChunk("h2", "golang.org", unit(1)))
	require.NoError(t, err)

	sources := s.IterSources()
	require.Len(t, sources, 1)
	assert.Equal(t, "golang.org", sources[0].Source)
	assert.Equal(t, 2, sources[0].Count)
}

func TestSearchReturnsTopKByScore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := Open(path)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _, err := s.Upsert(context.Background(), newChunk(string(rune('a'+i)), "docs", unit(i)))
		require.NoError(t, err)
	}

	results, err := s.Search(context.Background(), unit(0), 2, types.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestSearchAppliesSourceFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := Open(path)
	require.NoError(t, err)

	_, _, err = s.Upsert(context.Background(), newChunk("h1", "golang.org", unit(0)))
	require.NoError(t, err)
	_, _, err = s.Upsert(context.Background(), newChunk("h2", "rust-lang.org", unit(0)))
	require.NoError(t, err)

	results, err := s.Search(context.Background(), unit(0), 10, types.SearchFilters{SourceFilter: "rust"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rust-lang.org", results[0].Chunk.Source)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := Open(path)
	require.NoError(t, err)

	_, err = s.Search(context.Background(), nil, 10, types.SearchFilters{})
	require.Error(t, err)
}
