// Package logging implements the rotating file sink coderag's --debug
// flag writes slog output to (see cmd/root.setupLogging). Stdout and
// stdin are the MCP transport (spec §6), so diagnostic logs can never go
// there; a debug log file that grows forever is its own operational
// hazard, hence rotation.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// DefaultMaxSize is the size, in bytes, at which coderag's debug log
	// rotates if no WithMaxSize option overrides it.
	DefaultMaxSize = 10 * 1024 * 1024 // 10MB
	// DefaultMaxBackups is how many rotated generations are kept before
	// the oldest is discarded.
	DefaultMaxBackups = 3
)

// RotatingFile is an io.WriteCloser backing coderag's debug log: once the
// current file exceeds maxSize, it is renamed to a numbered backup and a
// fresh file opened in its place, bounded to maxBackups generations.
type RotatingFile struct {
	path       string
	maxSize    int64
	maxBackups int

	mu   sync.Mutex
	file *os.File
	size int64
}

// Option configures a RotatingFile at construction.
type Option func(*RotatingFile)

// WithMaxSize overrides DefaultMaxSize.
func WithMaxSize(size int64) Option {
	return func(r *RotatingFile) {
		r.maxSize = size
	}
}

// WithMaxBackups overrides DefaultMaxBackups.
func WithMaxBackups(count int) Option {
	return func(r *RotatingFile) {
		r.maxBackups = count
	}
}

// NewRotatingFile opens (creating it, and any missing parent
// directories, if necessary) the log file at path, appending to it if it
// already has content.
func NewRotatingFile(path string, opts ...Option) (*RotatingFile, error) {
	r := &RotatingFile{
		path:       path,
		maxSize:    DefaultMaxSize,
		maxBackups: DefaultMaxBackups,
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	if err := r.openFile(); err != nil {
		return nil, err
	}

	return r, nil
}

// Path returns the log file's path, as passed to NewRotatingFile.
func (r *RotatingFile) Path() string {
	return r.path
}

func (r *RotatingFile) openFile() error {
	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}

	r.file = file
	r.size = info.Size()
	return nil
}

// Write implements io.Writer, rotating first if p would push the current
// file past maxSize.
func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size+int64(len(p)) > r.maxSize {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// Close implements io.Closer.
func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// rotate closes the current file, shifts .1..maxBackups-1 up by one
// generation (dropping whatever sat at maxBackups), renames the current
// file to .1, and opens a fresh file at path.
func (r *RotatingFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}

	oldest := fmt.Sprintf("%s.%d", r.path, r.maxBackups)
	_ = os.Remove(oldest)

	for gen := r.maxBackups - 1; gen >= 1; gen-- {
		from := fmt.Sprintf("%s.%d", r.path, gen)
		to := fmt.Sprintf("%s.%d", r.path, gen+1)
		_ = os.Rename(from, to)
	}

	if err := os.Rename(r.path, r.path+".1"); err != nil && !os.IsNotExist(err) {
		return err
	}

	r.size = 0
	return r.openFile()
}
