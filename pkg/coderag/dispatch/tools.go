package dispatch

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coderag/coderag/pkg/coderag/crawl"
	"github.com/coderag/coderag/pkg/coderag/types"
	"github.com/coderag/coderag/pkg/coderagerrors"
)

// defaultSearchLimit and maxSearchLimit bound search_docs's limit field
// per spec §4.7 ("limit (1..50, default 5)").
const (
	defaultSearchLimit = 5
	maxSearchLimit     = 50
)

// SearchDocsInput is search_docs's argument struct (spec §6).
type SearchDocsInput struct {
	Query        string  `json:"query" jsonschema:"the text to search for"`
	Limit        int     `json:"limit,omitempty" jsonschema:"maximum results to return, 1-50, default 5"`
	SourceFilter string  `json:"source_filter,omitempty" jsonschema:"restrict results to a source substring match"`
	ContentType  string  `json:"content_type,omitempty" jsonschema:"restrict results to one content_type"`
	MinScore     float64 `json:"min_score,omitempty" jsonschema:"drop results scoring below this threshold"`
}

// SearchHit is one projected search_docs result (spec §4.7): the fields a
// client needs to locate and judge a match, never the raw embedding
// vector or content hash a Chunk carries internally.
type SearchHit struct {
	URL         string            `json:"url"`
	Title       string            `json:"title,omitempty"`
	Section     string            `json:"section,omitempty"`
	Score       float64           `json:"score"`
	Snippet     string            `json:"snippet"`
	ContentType types.ContentType `json:"content_type"`
}

// SearchDocsOutput is search_docs's structured result.
type SearchDocsOutput struct {
	Results []SearchHit `json:"results"`
	Total   int         `json:"total"`
}

// snippetLen bounds how much of a chunk's text is surfaced as a preview
// in search results.
const snippetLen = 240

// snippetOf returns a bounded preview of text, breaking on a word
// boundary rather than mid-word where possible.
func snippetOf(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= snippetLen {
		return text
	}
	cut := strings.LastIndexByte(text[:snippetLen], ' ')
	if cut <= 0 {
		cut = snippetLen
	}
	return strings.TrimSpace(text[:cut]) + "…"
}

// toSearchHit projects a full SearchResult down to the shape search_docs
// returns to clients, dropping the embedding vector and content hash.
func toSearchHit(r types.SearchResult) SearchHit {
	return SearchHit{
		URL:         r.Chunk.URL,
		Title:       r.Chunk.Title,
		Section:     r.Chunk.Section,
		Score:       r.Score,
		Snippet:     snippetOf(r.Chunk.Text),
		ContentType: r.Chunk.ContentType,
	}
}

func (s *Server) handleSearchDocs(ctx context.Context, _ *mcp.CallToolRequest, in SearchDocsInput) (*mcp.CallToolResult, SearchDocsOutput, error) {
	if in.Query == "" {
		res, _ := wrapErr(&coderagerrors.InvalidRequestError{Field: "query", Reason: "must not be empty"})
		return res, SearchDocsOutput{}, nil
	}

	limit := in.Limit
	switch {
	case limit <= 0:
		limit = defaultSearchLimit
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}

	vec, err := s.embedder.Embed(ctx, in.Query)
	if err != nil {
		res, _ := wrapErr(err)
		return res, SearchDocsOutput{}, nil
	}

	results, err := s.store.Search(ctx, vec, limit, types.SearchFilters{
		SourceFilter: in.SourceFilter,
		ContentType:  types.ContentType(in.ContentType),
		MinScore:     in.MinScore,
	})
	if err != nil {
		res, _ := wrapErr(err)
		return res, SearchDocsOutput{}, nil
	}

	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = toSearchHit(r)
	}

	return nil, SearchDocsOutput{Results: hits, Total: len(hits)}, nil
}

// ListDocsInput is list_docs's (empty) argument struct.
type ListDocsInput struct{}

// ListDocsOutput is list_docs's structured result (spec §4.7).
type ListDocsOutput struct {
	Sources     []types.SourceSummary `json:"sources"`
	Total       int                   `json:"total"`
	ProjectRoot string                `json:"project_root,omitempty"`
}

func (s *Server) handleListDocs(_ context.Context, _ *mcp.CallToolRequest, _ ListDocsInput) (*mcp.CallToolResult, ListDocsOutput, error) {
	sources := s.store.IterSources()
	total := 0
	for _, src := range sources {
		total += src.Count
	}
	return nil, ListDocsOutput{Sources: sources, Total: total, ProjectRoot: s.project.Root}, nil
}

// CrawlDocsInput is crawl_docs's argument struct (spec §6/§4.6).
type CrawlDocsInput struct {
	URL      string `json:"url" jsonschema:"the seed URL to crawl from"`
	Mode     string `json:"mode,omitempty" jsonschema:"single, section, or full; default single"`
	Focus    string `json:"focus,omitempty" jsonschema:"api, examples, changelog, quickstart, or all; default all"`
	MaxPages int    `json:"max_pages,omitempty" jsonschema:"maximum pages to fetch; default 100"`
	Robots   bool   `json:"respect_robots_txt,omitempty" jsonschema:"consult robots.txt before following links; default false"`
}

// CrawlDocsOutput is crawl_docs's structured completion report.
type CrawlDocsOutput struct {
	Summary types.CrawlSummary `json:"summary"`
}

func (s *Server) handleCrawlDocs(ctx context.Context, _ *mcp.CallToolRequest, in CrawlDocsInput) (*mcp.CallToolResult, CrawlDocsOutput, error) {
	mode := types.CrawlMode(in.Mode)
	if mode == "" {
		mode = types.ModeSingle
	}
	focus := types.CrawlFocus(in.Focus)
	if focus == "" {
		focus = types.FocusAll
	}

	opts := crawl.Options{
		Mode:     mode,
		Focus:    focus,
		MaxPages: in.MaxPages,
	}
	if in.Robots {
		opts.Robots = crawl.NewRobots(http.DefaultClient)
	}

	summary, err := crawl.Crawl(ctx, in.URL, opts, s.embedder, s.store)
	if err != nil {
		res, _ := wrapErr(err)
		return res, CrawlDocsOutput{}, nil
	}

	if err := s.store.Save(); err != nil {
		res, _ := wrapErr(err)
		return res, CrawlDocsOutput{Summary: summary}, nil
	}

	return nil, CrawlDocsOutput{Summary: summary}, nil
}

// ManageDocsInput is manage_docs's argument struct (spec §4.7): operation
// selects delete/expire/refresh, target is a URL or source substring
// ("*" matches every chunk), max_age_days gates expire, and dry_run
// previews the affected count without mutating the store.
type ManageDocsInput struct {
	Operation  string `json:"operation" jsonschema:"delete, expire, or refresh"`
	Target     string `json:"target" jsonschema:"a URL or source substring; * matches every chunk"`
	MaxAgeDays int    `json:"max_age_days,omitempty" jsonschema:"expire: chunks indexed more than this many days ago are affected"`
	DryRun     bool   `json:"dry_run,omitempty" jsonschema:"report the affected count without mutating the store"`
}

// ManageDocsOutput reports how many chunks were affected by the requested
// operation (spec §4.7: "counts of affected chunks per operation").
type ManageDocsOutput struct {
	Operation string `json:"operation"`
	Affected  int    `json:"affected"`
	DryRun    bool   `json:"dry_run,omitempty"`
}

// targetPredicate builds the chunk-matching predicate for target: "*" (or
// empty) matches everything, otherwise a chunk matches on exact URL
// equality or a substring match against its source or URL.
func targetPredicate(target string) func(types.Chunk) bool {
	if target == "" || target == "*" {
		return func(types.Chunk) bool { return true }
	}
	return func(c types.Chunk) bool {
		return c.URL == target || strings.Contains(c.Source, target) || strings.Contains(c.URL, target)
	}
}

func (s *Server) handleManageDocs(ctx context.Context, _ *mcp.CallToolRequest, in ManageDocsInput) (*mcp.CallToolResult, ManageDocsOutput, error) {
	switch in.Operation {
	case "delete":
		return s.manageDelete(in)
	case "expire":
		return s.manageExpire(in)
	case "refresh":
		return s.manageRefresh(ctx, in)
	default:
		res, _ := wrapErr(&coderagerrors.InvalidRequestError{Field: "operation", Reason: "must be one of delete, expire, refresh"})
		return res, ManageDocsOutput{}, nil
	}
}

// manageDelete removes every chunk matching target outright.
func (s *Server) manageDelete(in ManageDocsInput) (*mcp.CallToolResult, ManageDocsOutput, error) {
	pred := targetPredicate(in.Target)

	if in.DryRun {
		affected := s.store.CountBy(pred)
		return nil, ManageDocsOutput{Operation: "delete", Affected: affected, DryRun: true}, nil
	}

	affected := s.store.DeleteByPredicate(pred)
	if affected == 0 {
		res, _ := wrapErr(&coderagerrors.NotFoundError{Target: in.Target})
		return res, ManageDocsOutput{Operation: "delete", Affected: 0}, nil
	}
	if err := s.store.Save(); err != nil {
		res, _ := wrapErr(err)
		return res, ManageDocsOutput{Operation: "delete", Affected: affected}, nil
	}
	return nil, ManageDocsOutput{Operation: "delete", Affected: affected}, nil
}

// manageExpire removes chunks matching target whose IndexedAt is older
// than max_age_days (spec §8 S4).
func (s *Server) manageExpire(in ManageDocsInput) (*mcp.CallToolResult, ManageDocsOutput, error) {
	if in.MaxAgeDays <= 0 {
		res, _ := wrapErr(&coderagerrors.InvalidRequestError{Field: "max_age_days", Reason: "must be positive for expire"})
		return res, ManageDocsOutput{}, nil
	}

	cutoff := time.Now().AddDate(0, 0, -in.MaxAgeDays)
	matchesTarget := targetPredicate(in.Target)
	pred := func(c types.Chunk) bool { return matchesTarget(c) && c.IndexedAt.Before(cutoff) }

	if in.DryRun {
		affected := s.store.CountBy(pred)
		return nil, ManageDocsOutput{Operation: "expire", Affected: affected, DryRun: true}, nil
	}

	affected := s.store.DeleteByPredicate(pred)
	if err := s.store.Save(); err != nil {
		res, _ := wrapErr(err)
		return res, ManageDocsOutput{Operation: "expire", Affected: affected}, nil
	}
	return nil, ManageDocsOutput{Operation: "expire", Affected: affected}, nil
}

// manageRefresh deletes chunks matching target, then re-crawls target as a
// single page, per spec §3 ("mutated only by explicit refresh (which
// deletes+reinserts by URL)"). target must be the page's URL.
func (s *Server) manageRefresh(ctx context.Context, in ManageDocsInput) (*mcp.CallToolResult, ManageDocsOutput, error) {
	pred := targetPredicate(in.Target)

	if in.DryRun {
		affected := s.store.CountBy(pred)
		return nil, ManageDocsOutput{Operation: "refresh", Affected: affected, DryRun: true}, nil
	}

	removed := s.store.DeleteAndForget(pred)

	summary, err := crawl.Crawl(ctx, in.Target, crawl.Options{Mode: types.ModeSingle, Focus: types.FocusAll}, s.embedder, s.store)
	if err != nil {
		res, _ := wrapErr(err)
		return res, ManageDocsOutput{Operation: "refresh", Affected: removed}, nil
	}
	if err := s.store.Save(); err != nil {
		res, _ := wrapErr(err)
		return res, ManageDocsOutput{Operation: "refresh", Affected: removed}, nil
	}
	return nil, ManageDocsOutput{Operation: "refresh", Affected: removed + summary.ChunksInserted}, nil
}

// ReloadDocsInput is reload_docs's (empty) argument struct.
type ReloadDocsInput struct{}

// ReloadDocsOutput reports the reload's outcome (spec §4.7).
type ReloadDocsOutput struct {
	Reloaded bool `json:"reloaded"`
	Total    int  `json:"total"`
}

func (s *Server) handleReloadDocs(_ context.Context, _ *mcp.CallToolRequest, _ ReloadDocsInput) (*mcp.CallToolResult, ReloadDocsOutput, error) {
	if err := s.store.ReloadFromDisk(); err != nil {
		res, _ := wrapErr(err)
		return res, ReloadDocsOutput{}, nil
	}
	return nil, ReloadDocsOutput{Reloaded: true, Total: s.store.Len()}, nil
}
