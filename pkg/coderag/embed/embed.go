// Package embed implements C1, the embedding service: lazily-initialized,
// process-lifetime-shared conversion of text into 384-dim unit vectors.
//
// The lazy-init discipline (spec §4.1) is the interesting part: the host
// process runs in a restricted sandbox until it has delivered its first
// tool call, so Service must not touch the filesystem or network until the
// first Embed/EmbedBatch call. Concurrent first-callers must share exactly
// one initialization attempt; a failed attempt must not poison the
// service for later calls. golang.org/x/sync/singleflight.Group gives
// exactly this shape — the teacher's own pkg/rag/embed/embed.go already
// depends on the sibling golang.org/x/sync/errgroup package for bounded
// fan-out, so singleflight is the same module, reused for its
// complementary "collapse concurrent identical work" guarantee.
package embed

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/coderag/coderag/pkg/coderagerrors"
)

// Option configures a Service.
type Option func(*Service)

// WithCacheDir overrides the model cache directory (default: the platform
// user-cache directory via DefaultCacheDir).
func WithCacheDir(dir string) Option {
	return func(s *Service) { s.cacheDir = dir }
}

// WithMaxConcurrency bounds how many embedding calls within a single
// EmbedBatch run concurrently (default 8).
func WithMaxConcurrency(n int) Option {
	return func(s *Service) { s.maxConcurrency = n }
}

// Service is the embedding service. The zero-value-free constructor, New,
// performs no I/O: construction is side-effect-free per spec §4.7's
// lazy-init lifecycle rule, which applies transitively to C1 since C7
// constructs C1 at process start.
type Service struct {
	cacheDir       string
	maxConcurrency int

	mu    sync.RWMutex
	model *model

	group singleflight.Group
}

// New constructs a Service without touching the network or the model
// cache. The first Embed/EmbedBatch call triggers initialization.
func New(opts ...Option) *Service {
	s := &Service{maxConcurrency: 8}
	for _, opt := range opts {
		opt(s)
	}
	if s.cacheDir == "" {
		s.cacheDir = DefaultCacheDir()
	}
	return s
}

// ensure returns the loaded model, initializing it if necessary. All
// concurrent first-callers collapse onto one loadModel call via the
// singleflight group; once that call returns (success or failure) the
// group entry is released, so a failed attempt never poisons later calls
// — the next caller simply retries loadModel from scratch, as spec §4.1
// requires.
func (s *Service) ensure(ctx context.Context) (*model, error) {
	s.mu.RLock()
	if s.model != nil {
		m := s.model
		s.mu.RUnlock()
		return m, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.group.Do("init", func() (any, error) {
		m, err := loadModel(ctx, s.cacheDir)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.model = m
		s.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model), nil
}

// Embed embeds a single non-empty string into a 384-dim unit vector.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds 1..N non-empty strings, preserving input order (spec
// §4.1 contract). Inputs are embedded concurrently, bounded by
// maxConcurrency, via errgroup — the same fan-out idiom the teacher's
// embed.Embedder.embedBatchOptimized uses for provider batch calls.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &coderagerrors.InvalidRequestError{Field: "texts", Reason: "must contain at least one string"}
	}
	for i, t := range texts {
		if t == "" {
			return nil, &coderagerrors.InvalidRequestError{Field: fmt.Sprintf("texts[%d]", i), Reason: "must not be empty"}
		}
	}

	m, err := s.ensure(ctx)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	for i, t := range texts {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return &coderagerrors.CancelledError{Cause: gctx.Err()}
			default:
			}
			out[i] = m.embed(t)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
