// Package crawl implements the documentation crawler: a frontier-based
// BFS over one or more pages, bounded by mode/focus/max_pages, respecting
// per-host politeness, feeding each fetched page through extract, chunk,
// embed, and store.
//
// Grounded on the teacher's pkg/tools/builtin/fetch.go for the HTTP
// request/response shape (User-Agent, Accept negotiation, size-limited
// body read) and pkg/rag/strategy/vector_store.go's errgroup-based
// concurrent indexing fan-out, generalized from "index local files
// already on disk" to "fetch and follow links across a frontier".
package crawl

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/coderag/coderag/pkg/coderag/chunk"
	"github.com/coderag/coderag/pkg/coderag/extract"
	"github.com/coderag/coderag/pkg/coderag/store"
	"github.com/coderag/coderag/pkg/coderag/types"
	"github.com/coderag/coderag/pkg/coderagerrors"
	"github.com/coderag/coderag/pkg/useragent"
)

// Politeness defaults.
const (
	defaultPerHostConcurrency = 2
	defaultPerHostDelay       = 500 * time.Millisecond
	backoffBase               = 1 * time.Second
	backoffFactor             = 2.0
	backoffCap                = 60 * time.Second
	backoffMaxAttempts        = 5
	maxBodyBytes              = 5 << 20
)

var denyListPaths = []string{"/blog/", "/forum/", "/login/"}

// Embedder is the subset of pkg/coderag/embed.Service a crawl needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RobotsChecker optionally consults a host's robots.txt before a link is
// followed. Off by default; pkg/coderag/crawl/robots.go provides the
// temoto/robotstxt-backed implementation.
type RobotsChecker interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// Options configures a Crawl call.
type Options struct {
	Mode            types.CrawlMode
	Focus           types.CrawlFocus
	MaxPages        int
	PerHostLimit    int           // concurrency cap per host; 0 = default
	PerHostDelay    time.Duration // 0 = default
	HTTPClient      *http.Client  // nil = http.DefaultClient with no extra timeout
	Robots          RobotsChecker // nil disables the check
}

// Crawl runs a crawl job from seed, writing accepted chunks into st, and
// returns a structured summary.
func Crawl(ctx context.Context, seed string, opts Options, embedder Embedder, st *store.Store) (types.CrawlSummary, error) {
	seedURL, err := url.Parse(seed)
	if err != nil || seedURL.Host == "" {
		return types.CrawlSummary{}, &coderagerrors.InvalidRequestError{Field: "url", Reason: "must be an absolute http(s) URL"}
	}

	if opts.MaxPages <= 0 {
		opts.MaxPages = 100
	}
	if opts.PerHostLimit <= 0 {
		opts.PerHostLimit = defaultPerHostConcurrency
	}
	if opts.PerHostDelay <= 0 {
		opts.PerHostDelay = defaultPerHostDelay
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	c := &crawler{
		opts:     opts,
		client:   client,
		embedder: embedder,
		store:    st,
		seedHost: seedURL.Host,
		seedPath: seedURL.Path,
		limiter:  rate.NewLimiter(rate.Every(opts.PerHostDelay), opts.PerHostLimit),
		visited:  make(map[string]bool),
		summary:  types.CrawlSummary{SkippedReasons: make(map[types.SkipReason]int)},
	}

	start := time.Now()
	err = c.run(ctx, normalizeURL(seed))
	c.summary.Duration = time.Since(start)
	c.summary.DurationSeconds = c.summary.Duration.Seconds()
	return c.summary, err
}

type crawler struct {
	opts     Options
	client   *http.Client
	embedder Embedder
	store    *store.Store
	seedHost string
	seedPath string
	limiter  *rate.Limiter

	mu      sync.Mutex
	visited map[string]bool
	summary types.CrawlSummary
}

func (c *crawler) run(ctx context.Context, seed string) error {
	frontier := []string{seed}

	for len(frontier) > 0 && c.summary.PagesFetched+c.summary.PagesSkipped < c.opts.MaxPages {
		// Take only as many not-yet-visited URLs as max_pages still allows;
		// the rest stay queued for a later batch.
		remaining := c.opts.MaxPages - (c.summary.PagesFetched + c.summary.PagesSkipped)
		var batch, rest []string
		queued := make(map[string]bool)
		c.mu.Lock()
		for _, u := range frontier {
			switch {
			case c.visited[u] || queued[u]:
			case len(batch) < remaining:
				queued[u] = true
				batch = append(batch, u)
			default:
				rest = append(rest, u)
			}
		}
		c.mu.Unlock()
		frontier = rest

		// A fresh errgroup per batch: errgroup.Group.Wait cancels its
		// derived gctx on return, so reusing one group (and its gctx)
		// across batches would make every visit after the first batch
		// observe an already-cancelled context.
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.opts.PerHostLimit)

		discovered := make([][]string, len(batch))

		for i, u := range batch {
			i, u := i, u
			g.Go(func() error {
				links, err := c.visit(gctx, u)
				if err != nil {
					return err
				}
				discovered[i] = links
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, links := range discovered {
			frontier = append(frontier, links...)
		}

		if c.opts.Mode == types.ModeSingle {
			break
		}
	}
	return nil
}

// visit fetches one URL (after a politeness wait), extracts, chunks,
// embeds, and stores its content, and returns in-scope links discovered
// on the page. Per-URL failures are recorded in the summary rather than
// aborting the whole crawl.
func (c *crawler) visit(ctx context.Context, rawURL string) ([]string, error) {
	c.mu.Lock()
	if c.visited[rawURL] {
		c.mu.Unlock()
		return nil, nil
	}
	c.visited[rawURL] = true
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &coderagerrors.CancelledError{Cause: err}
	}

	if c.opts.Robots != nil && !c.opts.Robots.Allowed(ctx, rawURL) {
		c.recordSkip(types.SkipRobotsDenied)
		return nil, nil
	}

	body, fetchErr := c.fetchWithBackoff(ctx, rawURL)
	if fetchErr != nil {
		c.recordError(rawURL, "fetch_failed", fetchErr)
		return nil, nil
	}

	page, err := extract.Extract(body)
	if err != nil {
		c.recordError(rawURL, "extraction_failed", err)
		return nil, nil
	}

	c.mu.Lock()
	c.summary.PagesFetched++
	c.mu.Unlock()

	chunks := chunk.FromBlocks(page.Blocks, rawURL, c.seedHost, chunk.DefaultConfig())

	c.mu.Lock()
	c.summary.ChunksProduced += len(chunks)
	c.mu.Unlock()

	for i := range chunks {
		vec, err := c.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			c.recordError(rawURL, "embedding_unavailable", err)
			continue
		}
		chunks[i].Vector = vec
		chunks[i].IndexedAt = time.Now()

		_, dup, err := c.store.Upsert(ctx, chunks[i])
		if err != nil {
			c.recordError(rawURL, "storage_io", err)
			continue
		}

		c.mu.Lock()
		if dup {
			c.summary.ChunksDeduplicated++
		} else {
			c.summary.ChunksInserted++
		}
		c.mu.Unlock()
	}

	if c.opts.Mode == types.ModeSingle {
		return nil, nil
	}
	return c.discoverLinks(body, rawURL), nil
}

func (c *crawler) recordSkip(reason types.SkipReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.PagesSkipped++
	c.summary.SkippedReasons[reason]++
}

func (c *crawler) recordError(rawURL, kind string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.Errors = append(c.summary.Errors, types.FetchError{URL: rawURL, Kind: kind, Msg: err.Error()})
}

// fetchWithBackoff performs the GET, retrying on 429/503 with exponential
// backoff.
func (c *crawler) fetchWithBackoff(ctx context.Context, rawURL string) (string, error) {
	delay := backoffBase
	var lastErr error

	for attempt := 0; attempt < backoffMaxAttempts; attempt++ {
		body, status, err := c.fetchOnce(ctx, rawURL)
		if err != nil {
			return "", err
		}
		if status != http.StatusTooManyRequests && status != http.StatusServiceUnavailable {
			if status >= 400 {
				return "", &coderagerrors.FetchFailedError{URL: rawURL, StatusCode: status}
			}
			return body, nil
		}
		lastErr = &coderagerrors.FetchFailedError{URL: rawURL, StatusCode: status}

		select {
		case <-ctx.Done():
			return "", &coderagerrors.CancelledError{Cause: ctx.Err()}
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * backoffFactor)
		if delay > backoffCap {
			delay = backoffCap
		}
	}
	return "", lastErr
}

func (c *crawler) fetchOnce(ctx context.Context, rawURL string) (body string, status int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", useragent.Crawler)
	req.Header.Set("Accept", "text/html;q=1.0, */*;q=0.1")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(data), resp.StatusCode, nil
}

// discoverLinks extracts same-host <a href> targets in scope for the
// configured mode and focus.
func (c *crawler) discoverLinks(body, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var out []string
	for _, href := range extractHrefs(body) {
		target, err := base.Parse(href)
		if err != nil {
			continue
		}
		target.Fragment = ""
		if target.Host != c.seedHost {
			continue
		}
		if isDenyListed(target.Path) {
			continue
		}
		if c.opts.Mode == types.ModeSection && !strings.HasPrefix(target.Path, c.seedPath) {
			continue
		}
		if !matchesFocus(target.Path, c.opts.Focus) {
			continue
		}
		out = append(out, target.String())
	}
	return out
}

func isDenyListed(path string) bool {
	for _, deny := range denyListPaths {
		if strings.Contains(path, deny) {
			return true
		}
	}
	return false
}

func matchesFocus(path string, focus types.CrawlFocus) bool {
	lower := strings.ToLower(path)
	switch focus {
	case types.FocusAPI:
		return strings.Contains(lower, "api") || strings.Contains(lower, "reference")
	case types.FocusExamples:
		return strings.Contains(lower, "example") || strings.Contains(lower, "tutorial") || strings.Contains(lower, "guide")
	case types.FocusChangelog:
		return strings.Contains(lower, "changelog") || strings.Contains(lower, "release") || strings.Contains(lower, "news")
	case types.FocusQuickstart:
		return strings.Contains(lower, "start") || strings.Contains(lower, "intro") || strings.Contains(lower, "install")
	default:
		return true
	}
}

func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	return u.String()
}
