package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderag/coderag/pkg/coderag/embed"
	"github.com/coderag/coderag/pkg/coderag/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	descriptor := types.ProjectDescriptor{
		StorePath:  filepath.Join(t.TempDir(), "store.json"),
		IsFallback: true,
	}
	embedder := embed.New(embed.WithCacheDir(t.TempDir()))
	s, err := New(descriptor, embedder)
	require.NoError(t, err)
	return s
}

func TestSearchDocsReturnsEmptyOnFreshStore(t *testing.T) {
	s := newTestServer(t)
	_, out, err := s.handleSearchDocs(context.Background(), nil, SearchDocsInput{Query: "widgets"})
	require.NoError(t, err)
	assert.Empty(t, out.Results)
}

func TestCrawlDocsThenSearchDocsFindsIndexedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1>Widgets</h1><p>Widgets make your app faster and more reliable.</p></body></html>`))
	}))
	defer srv.Close()

	s := newTestServer(t)
	_, crawlOut, err := s.handleCrawlDocs(context.Background(), nil, CrawlDocsInput{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, 1, crawlOut.Summary.PagesFetched)
	assert.Greater(t, crawlOut.Summary.ChunksInserted, 0)

	_, searchOut, err := s.handleSearchDocs(context.Background(), nil, SearchDocsInput{Query: "widgets faster"})
	require.NoError(t, err)
	assert.NotEmpty(t, searchOut.Results)
}

func TestListDocsReflectsIndexedSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>Some docs content here.</p></body></html>`))
	}))
	defer srv.Close()

	s := newTestServer(t)
	_, _, err := s.handleCrawlDocs(context.Background(), nil, CrawlDocsInput{URL: srv.URL})
	require.NoError(t, err)

	_, out, err := s.handleListDocs(context.Background(), nil, ListDocsInput{})
	require.NoError(t, err)
	require.Len(t, out.Sources, 1)
}

func TestManageDocsRemovesSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>Some docs content here.</p></body></html>`))
	}))
	defer srv.Close()

	s := newTestServer(t)
	_, _, err := s.handleCrawlDocs(context.Background(), nil, CrawlDocsInput{URL: srv.URL})
	require.NoError(t, err)

	seedURL, err := url.Parse(srv.URL)
	require.NoError(t, err)

	_, manageOut, err := s.handleManageDocs(context.Background(), nil, ManageDocsInput{Operation: "delete", Target: seedURL.Host})
	require.NoError(t, err)
	assert.Greater(t, manageOut.Affected, 0)
}

func TestManageDocsExpireRespectsDryRunThenRemoves(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.store.Upsert(context.Background(), types.Chunk{
		Vector:      []float32{1, 0, 0, 0},
		Text:        "old content",
		URL:         "https://docs.example.com/old",
		Source:      "docs.example.com",
		ContentType: types.ContentProse,
		ContentHash: "old-hash",
		IndexedAt:   time.Now().AddDate(0, 0, -40),
	})
	require.NoError(t, err)

	_, dryOut, err := s.handleManageDocs(context.Background(), nil, ManageDocsInput{
		Operation: "expire", Target: "*", MaxAgeDays: 30, DryRun: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, dryOut.Affected)
	assert.True(t, dryOut.DryRun)
	assert.Equal(t, 1, s.store.Len())

	_, out, err := s.handleManageDocs(context.Background(), nil, ManageDocsInput{
		Operation: "expire", Target: "*", MaxAgeDays: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Affected)
	assert.Equal(t, 0, s.store.Len())
}

func TestReloadDocsReflectsSavedState(t *testing.T) {
	s := newTestServer(t)
	_, out, err := s.handleReloadDocs(context.Background(), nil, ReloadDocsInput{})
	require.NoError(t, err)
	assert.True(t, out.Reloaded)
	assert.Equal(t, 0, out.Total)
}
