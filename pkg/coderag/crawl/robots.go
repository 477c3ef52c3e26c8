package crawl

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	"github.com/coderag/coderag/pkg/useragent"
)

// Robots is an optional, disabled-by-default RobotsChecker. Fetched
// lazily, once per host, and cached for the crawl's lifetime.
//
// Grounded on temoto/robotstxt, which the teacher already carries in its
// go.mod though no teacher code exercises it; Options.Robots is the
// first concrete home it gets.
type Robots struct {
	client *http.Client

	mu     sync.Mutex
	byHost map[string]*robotstxt.RobotsData
}

// NewRobots constructs a Robots checker using client for robots.txt
// fetches, or http.DefaultClient if nil.
func NewRobots(client *http.Client) *Robots {
	if client == nil {
		client = http.DefaultClient
	}
	return &Robots{client: client, byHost: make(map[string]*robotstxt.RobotsData)}
}

// Allowed reports whether rawURL may be fetched. A robots.txt fetch
// failure is treated as "allowed" — politeness is best-effort, not a
// hard gate that should make an entire host unreachable because its
// robots.txt is unreachable.
func (r *Robots) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	data := r.dataFor(ctx, u)
	if data == nil {
		return true
	}
	return data.TestAgent(u.Path, useragent.Crawler)
}

func (r *Robots) dataFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	r.mu.Lock()
	if d, ok := r.byHost[u.Host]; ok {
		r.mu.Unlock()
		return d
	}
	r.mu.Unlock()

	data := r.fetch(ctx, u)

	r.mu.Lock()
	r.byHost[u.Host] = data
	r.mu.Unlock()
	return data
}

func (r *Robots) fetch(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	robotsURL := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), http.NoBody)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", useragent.Crawler)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	return data
}
