// Package source fetches repository update sources into a local directory
// that the repository merge can consume: a local directory, a zip archive
// served over HTTP, or a git repository.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Fetched is a source materialized on disk.
type Fetched struct {
	// Dir holds one subdirectory per package.
	Dir string
	// Revision identifies what was fetched, such as a commit hash. May be empty.
	Revision string

	cleanup func() error
}

// Cleanup removes any temporary files created by Fetch. Safe to call on a
// source that created none.
func (f *Fetched) Cleanup() error {
	if f == nil || f.cleanup == nil {
		return nil
	}
	err := f.cleanup()
	f.cleanup = nil
	return err
}

// Source is a repository update source.
type Source interface {
	// Fetch materializes the source. Temporary files go under tmpDir.
	Fetch(ctx context.Context, tmpDir string) (*Fetched, error)
	// String describes the source for messages and history.
	String() string
}

// StageFunc is notified as a fetch moves through its stages, e.g. for a spinner.
type StageFunc func(stage string)

func notify(fn StageFunc, format string, args ...any) {
	if fn != nil {
		fn(fmt.Sprintf(format, args...))
	}
}

// Local is a directory already on disk. It is used in place, never copied.
type Local struct {
	Dir string
}

// Fetch resolves the directory.
func (l Local) Fetch(_ context.Context, _ string) (*Fetched, error) {
	abs, err := filepath.Abs(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", l.Dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("update source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("update source %s is not a directory", abs)
	}
	return &Fetched{Dir: abs}, nil
}

func (l Local) String() string {
	return l.Dir
}

// makeWorkDir creates a fresh directory under tmpDir for one fetch.
func makeWorkDir(tmpDir, pattern string) (string, error) {
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("creating temporary directory: %w", err)
	}
	dir, err := os.MkdirTemp(tmpDir, pattern)
	if err != nil {
		return "", fmt.Errorf("creating temporary directory: %w", err)
	}
	return dir, nil
}
