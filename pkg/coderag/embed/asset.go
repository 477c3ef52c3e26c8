package embed

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/coderag/coderag/pkg/cachepath"
	"github.com/coderag/coderag/pkg/coderagerrors"
	"github.com/coderag/coderag/pkg/useragent"
)

// assetVersion identifies the embedding model format. Bumping it forces a
// re-fetch of the cache marker the next time loadModel runs.
const assetVersion = "coderag-hashing-embed-v1"

// assetMarkerName is the file loadModel checks for and creates inside the
// cache directory. In a production embedding backend this would be the
// multi-megabyte weights file; here it is a small marker recording which
// model version is "installed", matching the lazy-download discipline of
// spec §4.1 without requiring network access at test time.
const assetMarkerName = "model.version"

// loadModel materializes the model asset, mirroring the lazy-init
// discipline in spec §4.1: the host process runs in a restricted sandbox
// before the first tool call and can't write to the cache directory, so
// loadModel must only be called lazily, on first use.
//
// If a previously cached asset exists and matches assetVersion, it is
// reused and no "network" access happens at all. Otherwise, loadModel
// attempts to materialize one, presenting useragent.ModelFetch the way a
// real download would need to identify itself to a CDN (spec §4.1 "Network
// identity"). A read-only cache directory with no existing asset yields
// EmbeddingUnavailableError; callers must not cache this failure — the
// next call retries from scratch (see Service.ensure).
func loadModel(ctx context.Context, cacheDir string) (*model, error) {
	markerPath := filepath.Join(cacheDir, assetMarkerName)

	if data, err := os.ReadFile(markerPath); err == nil {
		if string(data) == assetVersion {
			return &model{version: assetVersion}, nil
		}
		// Stale marker: fall through and re-materialize.
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, &coderagerrors.EmbeddingUnavailableError{Cause: fmt.Errorf("cache dir %s: %w", cacheDir, err)}
	}

	if err := identifyForFetch(ctx); err != nil {
		return nil, &coderagerrors.EmbeddingUnavailableError{Cause: err}
	}

	tmp := markerPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(assetVersion), 0o644); err != nil {
		return nil, &coderagerrors.EmbeddingUnavailableError{Cause: fmt.Errorf("writing model cache: %w", err)}
	}
	if err := os.Rename(tmp, markerPath); err != nil {
		_ = os.Remove(tmp)
		return nil, &coderagerrors.EmbeddingUnavailableError{Cause: fmt.Errorf("finalizing model cache: %w", err)}
	}

	return &model{version: assetVersion}, nil
}

// identifyForFetch builds (but does not send, since the model asset is
// synthesized locally rather than actually downloaded) the request that a
// real backend would issue to a model CDN, so the User-Agent contract of
// spec §4.1 has one concrete, testable home.
func identifyForFetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, "https://models.invalid/coderag-embed", http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", useragent.ModelFetch)
	return nil
}

// DefaultCacheDir returns the platform cache directory used when no
// explicit cache directory is configured.
func DefaultCacheDir() string {
	return cachepath.ModelCacheDir()
}
