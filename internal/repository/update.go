package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bjornkeller/ModDevelopmentTools/internal/fsutil"
	"github.com/bjornkeller/ModDevelopmentTools/internal/manifest"
)

var (
	// ErrDuplicatePackage is returned when an update source holds two packages with the same name.
	ErrDuplicatePackage = errors.New("duplicate package name in update source")
	// ErrDirectoryConflict is returned when an incoming package directory would
	// overwrite the directory of a differently-named package.
	ErrDirectoryConflict = errors.New("package directory conflict")
	// ErrSourceIsRepository is returned when updating the repository from
	// itself or from a directory inside it.
	ErrSourceIsRepository = errors.New("update source is inside the repository")
	// ErrExportIntoRepository is returned when an export target lies inside
	// the repository, which would make the copy contain itself.
	ErrExportIntoRepository = errors.New("export target is inside the repository")
)

// UpdateReport summarizes what an Update changed.
type UpdateReport struct {
	// Added lists incoming package names that were not in the catalog.
	Added []string
	// Replaced lists incoming package names that replaced a catalog entry.
	Replaced []string
	// Cleared lists package names dropped by a clearing update.
	Cleared []string
}

// Update merges the packages found in the immediate subdirectories of
// sourceDir into the repository.
//
// Every incoming package is validated first; if any fails, nothing is changed.
// With clear, the whole catalog is deleted before copying. Otherwise each
// current entry whose name matches an incoming package is deleted, so incoming
// packages always win by name and everything else is left untouched.
func (s *Store) Update(ctx context.Context, sourceDir string, clear bool) (*UpdateReport, error) {
	src, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("resolving update source: %w", err)
	}
	if s.contains(src) {
		return nil, ErrSourceIsRepository
	}

	dirs, err := fsutil.SubDirs(src)
	if err != nil {
		return nil, fmt.Errorf("reading update source: %w", err)
	}
	incoming, err := validateAll(ctx, dirs)
	if err != nil {
		return nil, fmt.Errorf("validating update source: %w", err)
	}

	plan, err := s.planUpdate(incoming, clear)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, dir := range plan.remove {
		s.logger.Debug("removing repository entry", "dir", dir)
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("removing %s: %w", dir, err)
		}
	}
	for _, p := range incoming {
		dst := filepath.Join(s.dir, filepath.Base(p.Dir))
		s.logger.Debug("copying package", "name", p.Manifest.Name, "to", dst)
		if err := fsutil.CopyDir(p.Dir, dst); err != nil {
			return nil, fmt.Errorf("copying package %s: %w", p.Manifest.Name, err)
		}
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}
	return plan.report, nil
}

type updatePlan struct {
	remove []string
	report *UpdateReport
}

// planUpdate decides which directories to delete and rejects updates that
// would break name uniqueness, before anything on disk is touched.
func (s *Store) planUpdate(incoming []manifest.Package, clear bool) (*updatePlan, error) {
	plan := &updatePlan{report: &UpdateReport{}}

	incomingNames := make(map[string]struct{}, len(incoming))
	for _, p := range incoming {
		if _, dup := incomingNames[p.Manifest.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePackage, p.Manifest.Name)
		}
		incomingNames[p.Manifest.Name] = struct{}{}
	}

	current := make(map[string]struct{}, len(s.packages))
	removed := make(map[string]struct{})
	for _, p := range s.packages {
		current[p.Manifest.Name] = struct{}{}
		_, replaced := incomingNames[p.Manifest.Name]
		if clear || replaced {
			plan.remove = append(plan.remove, p.Dir)
			removed[p.Dir] = struct{}{}
			if !replaced {
				plan.report.Cleared = append(plan.report.Cleared, p.Manifest.Name)
			}
		}
	}

	if clear {
		// Leftover non-package directories are cleared as well.
		dirs, err := fsutil.SubDirs(s.dir)
		if err != nil {
			return nil, fmt.Errorf("reading repository: %w", err)
		}
		for _, dir := range dirs {
			if _, ok := removed[dir]; !ok {
				plan.remove = append(plan.remove, dir)
				removed[dir] = struct{}{}
			}
		}
	}

	for _, p := range incoming {
		dst := filepath.Join(s.dir, filepath.Base(p.Dir))
		if _, ok := removed[dst]; !ok {
			if _, err := os.Lstat(dst); err == nil {
				return nil, fmt.Errorf("%w: %s already holds another package", ErrDirectoryConflict, dst)
			}
		}
		if _, ok := current[p.Manifest.Name]; ok {
			plan.report.Replaced = append(plan.report.Replaced, p.Manifest.Name)
		} else {
			plan.report.Added = append(plan.report.Added, p.Manifest.Name)
		}
	}

	return plan, nil
}
