// Package repository implements the catalog of installable packages, loaded
// from a directory of per-package subdirectories. Every subdirectory must hold
// a valid repository manifest; the catalog is all-or-nothing.
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bjornkeller/ModDevelopmentTools/internal/fsutil"
	"github.com/bjornkeller/ModDevelopmentTools/internal/logging"
	"github.com/bjornkeller/ModDevelopmentTools/internal/manifest"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Store is the in-memory view of the repository directory. The view is only
// refreshed by Reload and by Update; edits made to the directory behind the
// store's back are not observed until then.
type Store struct {
	dir      string
	logger   *log.Logger
	packages []manifest.Package
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open loads the repository at dir, creating the directory if it does not
// exist. Any package directory that fails validation is returned as an error.
func Open(dir string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving repository path: %w", err)
	}

	s := &Store{dir: abs, logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating repository directory: %w", err)
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads every package directory.
func (s *Store) Reload() error {
	dirs, err := fsutil.SubDirs(s.dir)
	if err != nil {
		return fmt.Errorf("reading repository: %w", err)
	}
	pkgs, err := validateAll(context.Background(), dirs)
	if err != nil {
		return fmt.Errorf("loading repository: %w", err)
	}
	s.packages = pkgs
	s.logger.Debug("repository loaded", "dir", s.dir, "packages", len(pkgs))
	return nil
}

// Get queries the catalog. Empty arguments mean "no filter":
//   - neither: the whole catalog
//   - version only: every package listing that version
//   - name only: the package with that name (at most one)
//   - both: the package with that name listing that version (at most one)
//
// Returned manifests are copies.
func (s *Store) Get(name, version string) []manifest.Package {
	var out []manifest.Package
	for _, p := range s.packages {
		if name != "" && p.Manifest.Name != name {
			continue
		}
		if version != "" && !p.Manifest.HasVersion(version) {
			continue
		}
		out = append(out, clonePackage(p))
		if name != "" {
			break
		}
	}
	return out
}

// Lookup returns the package matching name (and version, if non-empty).
func (s *Store) Lookup(name, version string) (manifest.Package, bool) {
	if name == "" {
		return manifest.Package{}, false
	}
	found := s.Get(name, version)
	if len(found) == 0 {
		return manifest.Package{}, false
	}
	return found[0], true
}

// Search returns every package whose name contains substr.
func (s *Store) Search(substr string) []manifest.Package {
	var out []manifest.Package
	for _, p := range s.packages {
		if strings.Contains(p.Manifest.Name, substr) {
			out = append(out, clonePackage(p))
		}
	}
	return out
}

// Export copies the whole repository directory to targetDir/repository.
// It fails if that directory already exists or targetDir is inside the
// repository.
func (s *Store) Export(targetDir string) (string, error) {
	abs, err := filepath.Abs(targetDir)
	if err != nil {
		return "", fmt.Errorf("resolving export path: %w", err)
	}
	if s.contains(abs) {
		return "", fmt.Errorf("%w: %s", ErrExportIntoRepository, abs)
	}
	dst := filepath.Join(abs, "repository")
	if err := fsutil.CopyDir(s.dir, dst); err != nil {
		return "", fmt.Errorf("exporting repository: %w", err)
	}
	s.logger.Debug("repository exported", "to", dst)
	return dst, nil
}

// contains reports whether the absolute path is the repository directory or
// lies below it.
func (s *Store) contains(path string) bool {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func clonePackage(p manifest.Package) manifest.Package {
	return manifest.Package{Manifest: p.Manifest.Clone(), Dir: p.Dir}
}

// validateAll validates dirs concurrently and returns the packages in the
// order of dirs. The first failure aborts the whole batch.
func validateAll(ctx context.Context, dirs []string) ([]manifest.Package, error) {
	pkgs := make([]manifest.Package, len(dirs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, dir := range dirs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := manifest.Validate(dir, manifest.Repository)
			if err != nil {
				return err
			}
			pkgs[i] = manifest.Package{Manifest: m, Dir: dir}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pkgs, nil
}
