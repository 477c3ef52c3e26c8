// Package project implements the project locator: finding the root
// directory a CodeRAG store is scoped to, and keeping that project's
// ignore file in sync so its .coderag/ data doesn't end up committed.
//
// Grounded on the teacher's pkg/fsx/vcs.go directory-walk-to-repo-root
// idiom, generalized from "find a .git to load gitignore from" to "find
// any recognized project marker, or fall back to the user's home".
package project

import (
	"os"
	"path/filepath"

	"github.com/coderag/coderag/pkg/coderag/types"
)

// Markers is the default, single-source-of-truth set of project markers
// CodeRAG recognizes. Exported as a var, not a const block, so embedders
// can extend or replace it.
var Markers = []string{
	".git",
	".hg",
	".svn",
	"package.json",
	"Cargo.toml",
	"pyproject.toml",
	"go.mod",
}

// IgnoreFileName is the name of the file AugmentIgnoreFile appends
// ".coderag/" to.
const IgnoreFileName = ".gitignore"

// Locate walks from startDir toward the filesystem root looking for a
// directory containing any recognized marker. If found, storage is scoped
// to <root>/.coderag/vectordb.json and that project's ignore file is
// augmented with a .coderag/ entry (idempotently). If no marker is found,
// falls back to <user-home>/.coderag/coderag_vectordb.json.
//
// Symlinks are resolved before comparison so that a symlinked working
// directory and its real path are treated identically.
func Locate(startDir string, homeDir string) (types.ProjectDescriptor, error) {
	resolvedStart, err := resolveSymlinks(startDir)
	if err != nil {
		return types.ProjectDescriptor{}, err
	}

	if root, found := foundMarkers(resolvedStart); found != nil {
		storageDir := filepath.Join(root, ".coderag")
		desc := types.ProjectDescriptor{
			Root:       root,
			Markers:    found,
			StorageDir: storageDir,
			StorePath:  filepath.Join(storageDir, "vectordb.json"),
		}
		if err := AugmentIgnoreFile(root); err != nil {
			return types.ProjectDescriptor{}, err
		}
		return desc, nil
	}

	resolvedHome, err := resolveSymlinks(homeDir)
	if err != nil {
		resolvedHome = homeDir
	}
	storageDir := filepath.Join(resolvedHome, ".coderag")
	return types.ProjectDescriptor{
		StorageDir: storageDir,
		StorePath:  filepath.Join(storageDir, "coderag_vectordb.json"),
		IsFallback: true,
	}, nil
}

// foundMarkers walks from dir toward the filesystem root, returning the
// first ancestor (inclusive of dir) containing a recognized marker, along
// with the list of markers actually present there.
func foundMarkers(dir string) (root string, markers []string) {
	cur := dir
	for {
		var present []string
		for _, m := range Markers {
			if _, err := os.Stat(filepath.Join(cur, m)); err == nil {
				present = append(present, m)
			}
		}
		if len(present) > 0 {
			return cur, present
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return "", nil
		}
		cur = parent
	}
}

// resolveSymlinks returns dir with all symlinks resolved.
func resolveSymlinks(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// A missing path (e.g. a not-yet-created home dir) isn't a
		// locator failure; fall back to the absolute, unresolved form.
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", err
	}
	return resolved, nil
}
