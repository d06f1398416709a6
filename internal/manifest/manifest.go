// Package manifest defines the manifest.json contract shared by the repository
// and installed-package stores, and validates package directories against it.
//
// Two schemas exist. A repository manifest describes an installable package
// (name, default-version, versions and entry-point scripts). An installed
// manifest is the per-installation copy: versions/default-version are stripped
// and the concrete version plus the program data directory are pinned.
package manifest

import (
	"fmt"
	"path/filepath"
	"slices"
)

// FileName is the manifest file name inside every package directory.
const FileName = "manifest.json"

// Field names as they appear in manifest.json.
const (
	FieldName           = "name"
	FieldDefaultVersion = "default-version"
	FieldVersions       = "versions"
	FieldVersion        = "version"
	FieldProgramDir     = "program-dir"
	FieldIcon           = "icon"
	FieldInstallScript  = "install-script"
	FieldRemoveScript   = "remove-script"
	FieldStartScript    = "start-script"
	FieldAddLauncher    = "add-launcher"
)

// Schema selects which manifest shape a directory is validated against.
type Schema int

const (
	// Repository is the schema of packages in the repository catalog.
	Repository Schema = iota
	// Installed is the schema of a concrete installation.
	Installed
)

// String returns the schema name.
func (s Schema) String() string {
	switch s {
	case Repository:
		return "repository"
	case Installed:
		return "installed"
	default:
		return fmt.Sprintf("schema(%d)", int(s))
	}
}

// Manifest is the typed view of manifest.json. Fields that do not belong to
// the schema a manifest was decoded with are left at their zero value.
type Manifest struct {
	Name           string   `json:"name"`
	DefaultVersion string   `json:"default-version,omitempty"`
	Versions       []string `json:"versions,omitempty"`
	Version        string   `json:"version,omitempty"`
	ProgramDir     string   `json:"program-dir,omitempty"`
	Icon           *string  `json:"icon"`
	InstallScript  string   `json:"install-script"`
	RemoveScript   string   `json:"remove-script"`
	StartScript    string   `json:"start-script"`
	AddLauncher    bool     `json:"add-launcher"`
}

// HasVersion reports whether v is listed in the manifest's versions.
func (m *Manifest) HasVersion(v string) bool {
	return slices.Contains(m.Versions, v)
}

// Clone returns a deep copy so callers cannot mutate store-owned state.
func (m *Manifest) Clone() *Manifest {
	if m == nil {
		return nil
	}
	c := *m
	c.Versions = slices.Clone(m.Versions)
	if m.Icon != nil {
		icon := *m.Icon
		c.Icon = &icon
	}
	return &c
}

// Package is a validated manifest together with the directory it lives in.
type Package struct {
	Manifest *Manifest
	// Dir is the absolute path of the package directory.
	Dir string
}

// InstallScriptPath returns the absolute path of the install script.
func (p Package) InstallScriptPath() string {
	return filepath.Join(p.Dir, p.Manifest.InstallScript)
}

// RemoveScriptPath returns the absolute path of the remove script.
func (p Package) RemoveScriptPath() string {
	return filepath.Join(p.Dir, p.Manifest.RemoveScript)
}

// StartScriptPath returns the absolute path of the start script.
func (p Package) StartScriptPath() string {
	return filepath.Join(p.Dir, p.Manifest.StartScript)
}

// ManifestPath returns the absolute path of the package's manifest.json.
func (p Package) ManifestPath() string {
	return filepath.Join(p.Dir, FileName)
}
