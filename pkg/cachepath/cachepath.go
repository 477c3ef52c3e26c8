// Package cachepath resolves the platform-specific directories CodeRAG
// writes to outside the project root: the embedding model cache and the
// global fallback store (spec §4.2, §6 "Model cache: platform-specific
// user-cache directory; path is discovered, not hard-coded").
package cachepath

import (
	"os"
	"path/filepath"
)

// ModelCacheDir returns the directory CodeRAG caches embedding model
// assets in, using the OS-appropriate user cache directory
// (os.UserCacheDir: $XDG_CACHE_HOME or ~/.cache on Linux, ~/Library/Caches
// on macOS, %LocalAppData% on Windows). Falls back to the system temp
// directory if no cache directory can be determined, mirroring the
// teacher's pkg/paths fallback-to-temp pattern.
func ModelCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "coderag", "models")
}

// HomeFallbackDir returns <user-home>/.coderag, used when no project root
// can be located (spec §4.2 "fall back to <user-home>/.coderag/...").
// Returns "" if the home directory cannot be determined.
func HomeFallbackDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".coderag")
}
