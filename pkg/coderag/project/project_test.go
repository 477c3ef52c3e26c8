package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateFindsGitRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	desc, err := Locate(nested, t.TempDir())
	require.NoError(t, err)

	wantRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	assert.Equal(t, wantRoot, desc.Root)
	assert.False(t, desc.IsFallback)
	assert.Equal(t, filepath.Join(wantRoot, ".coderag", "vectordb.json"), desc.StorePath)
	assert.Contains(t, desc.Markers, ".git")
}

func TestLocateFindsManifestRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644))

	desc, err := Locate(root, t.TempDir())
	require.NoError(t, err)
	assert.False(t, desc.IsFallback)
	assert.Contains(t, desc.Markers, "go.mod")
}

func TestLocateFallsBackToHome(t *testing.T) {
	start := t.TempDir()
	home := t.TempDir()

	desc, err := Locate(start, home)
	require.NoError(t, err)

	assert.True(t, desc.IsFallback)
	assert.Equal(t, "", desc.Root)

	wantHome, err := filepath.EvalSymlinks(home)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wantHome, ".coderag", "coderag_vectordb.json"), desc.StorePath)
}

func TestLocateAugmentsIgnoreFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("node_modules/\n"), 0o644))

	_, err := Locate(root, t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "node_modules/\n")
	assert.Contains(t, string(data), ".coderag/\n")
}

func TestAugmentIgnoreFileIsIdempotent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte(".coderag/\n"), 0o644))

	require.NoError(t, AugmentIgnoreFile(root))

	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(string(data), ".coderag/"))
}

func TestAugmentIgnoreFileCreatesWhenMissing(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, AugmentIgnoreFile(root))

	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, ".coderag/\n", string(data))
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
			i += len(substr) - 1
		}
	}
	return count
}
