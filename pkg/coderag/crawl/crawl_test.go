package crawl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderag/coderag/pkg/coderag/store"
	"github.com/coderag/coderag/pkg/coderag/types"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 8)
	v[len(text)%8] = 1
	return v, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	return s
}

// TestCrawlSingleModeFetchesOnlySeed covers the "single" mode contract:
// exactly one page is fetched, regardless of links it contains.
func TestCrawlSingleModeFetchesOnlySeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1>Home</h1><p>Hello there.</p><a href="/other">other</a></body></html>`))
	}))
	defer srv.Close()

	st := newTestStore(t)
	summary, err := Crawl(context.Background(), srv.URL, Options{
		Mode:         types.ModeSingle,
		PerHostDelay: time.Millisecond,
	}, fakeEmbedder{}, st)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.PagesFetched)
	assert.Greater(t, st.Len(), 0)
}

func TestCrawlSkipsDenyListedPaths(t *testing.T) {
	seen := make(map[string]bool)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		seen[r.URL.Path] = true
		w.Write([]byte(`<html><body><a href="/blog/post">post</a><a href="/docs/guide">guide</a></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	st := newTestStore(t)
	_, err := Crawl(context.Background(), srv.URL, Options{
		Mode:         types.ModeFull,
		MaxPages:     5,
		PerHostDelay: time.Millisecond,
	}, fakeEmbedder{}, st)
	require.NoError(t, err)

	assert.False(t, seen["/blog/post"])
}

func TestCrawlRetriesOn503ThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`<html><body><p>Recovered.</p></body></html>`))
	}))
	defer srv.Close()

	st := newTestStore(t)
	summary, err := Crawl(context.Background(), srv.URL, Options{
		Mode:         types.ModeSingle,
		PerHostDelay: time.Millisecond,
	}, fakeEmbedder{}, st)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.PagesFetched)
	assert.GreaterOrEqual(t, attempts, 2)
}
