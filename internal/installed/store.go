// Package installed implements the store of concrete installations under
// <root>/installed-programs and the version configuration kept next to it.
//
// The store holds no cached state: every query re-scans package-data, and an
// entry whose manifest cannot be decoded is skipped rather than failing the
// whole query.
package installed

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bjornkeller/ModDevelopmentTools/internal/fsutil"
	"github.com/bjornkeller/ModDevelopmentTools/internal/logging"
	"github.com/bjornkeller/ModDevelopmentTools/internal/manifest"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Layout names under the installed-programs directory.
const (
	PackageDataDir    = "package-data"
	ProgramDataDir    = "program-data"
	VersionConfigFile = "version-config.json"
)

// Installation is one installed copy of a package.
type Installation struct {
	Name    string
	Version string
	// Path is the installation's manifest.json.
	Path string
	// Dir is the package-metadata directory.
	Dir        string
	ProgramDir string
	Manifest   *manifest.Manifest
}

// Allocation is a pair of fresh, not yet created, directories for one installation.
type Allocation struct {
	ID         string
	PackageDir string
	ProgramDir string
}

// Store is the view of <root>/installed-programs.
type Store struct {
	packageData string
	programData string
	config      *VersionConfig
	logger      *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug output and skipped entries.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open returns the store rooted at dir, creating package-data and
// program-data if needed.
func Open(dir string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving installed-programs path: %w", err)
	}

	s := &Store{
		packageData: filepath.Join(abs, PackageDataDir),
		programData: filepath.Join(abs, ProgramDataDir),
		config:      NewVersionConfig(filepath.Join(abs, VersionConfigFile)),
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, d := range []string{s.packageData, s.programData} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", d, err)
		}
	}
	return s, nil
}

// PackageDataDir returns the directory holding package-metadata directories.
func (s *Store) PackageDataDir() string { return s.packageData }

// ProgramDataDir returns the directory holding program-data directories.
func (s *Store) ProgramDataDir() string { return s.programData }

// Config returns the version configuration.
func (s *Store) Config() *VersionConfig { return s.config }

// Allocate returns paths for a new installation named by a fresh random UUID.
// Both directories share the identifier and are never reused.
func (s *Store) Allocate() (Allocation, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return Allocation{}, fmt.Errorf("generating installation id: %w", err)
	}
	a := Allocation{
		ID:         id.String(),
		PackageDir: filepath.Join(s.packageData, id.String()),
		ProgramDir: filepath.Join(s.programData, id.String()),
	}
	for _, d := range []string{a.PackageDir, a.ProgramDir} {
		if _, err := os.Lstat(d); err == nil {
			return Allocation{}, fmt.Errorf("installation directory %s already exists", d)
		}
	}
	return a, nil
}

// AllInstalled returns every readable installation, ordered by name then version.
func (s *Store) AllInstalled() []Installation {
	return s.scan(func(Installation) bool { return true })
}

// InstallationsOf returns every installed copy of name.
func (s *Store) InstallationsOf(name string) []Installation {
	return s.scan(func(i Installation) bool { return i.Name == name })
}

// IsInstalled returns the installation of name at version, if any.
func (s *Store) IsInstalled(name, version string) (Installation, bool) {
	found := s.scan(func(i Installation) bool { return i.Name == name && i.Version == version })
	if len(found) == 0 {
		return Installation{}, false
	}
	return found[0], true
}

// ConfigOf returns the active-version entry for name.
func (s *Store) ConfigOf(name string) (Entry, bool, error) {
	return s.config.Get(name)
}

// SetConfig points the active version of name at version. It only takes
// effect when that version is installed; applied reports whether it did.
func (s *Store) SetConfig(name, version string) (applied bool, err error) {
	if _, ok := s.IsInstalled(name, version); !ok {
		s.logger.Debug("not setting active version, not installed", "name", name, "version", version)
		return false, nil
	}
	if err := s.config.Upsert(Entry{Name: name, Version: version}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) scan(keep func(Installation) bool) []Installation {
	dirs, err := fsutil.SubDirs(s.packageData)
	if err != nil {
		s.logger.Warn("cannot read package data", "dir", s.packageData, "err", err)
		return nil
	}

	var out []Installation
	for _, dir := range dirs {
		m, err := manifest.Decode(dir, manifest.Installed)
		if err != nil {
			s.logger.Debug("skipping unreadable installation", "dir", dir, "err", err)
			continue
		}
		inst := Installation{
			Name:       m.Name,
			Version:    m.Version,
			Path:       filepath.Join(dir, manifest.FileName),
			Dir:        dir,
			ProgramDir: m.ProgramDir,
			Manifest:   m,
		}
		if keep(inst) {
			out = append(out, inst)
		}
	}

	slices.SortStableFunc(out, func(a, b Installation) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Version, b.Version))
	})
	return out
}
