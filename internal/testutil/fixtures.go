// Package testutil provides test utilities and helpers for mdt tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// ShellRuntime is the script runtime used by tests; fixture scripts are POSIX sh.
const ShellRuntime = "/bin/sh"

// Script bodies shared by tests.
const (
	// ScriptOK exits successfully.
	ScriptOK = "exit 0\n"
	// ScriptFail exits with status 3.
	ScriptFail = "exit 3\n"
	// ScriptRecordArgs writes "<program-dir> <version>" to <program-dir>/args.txt.
	ScriptRecordArgs = "printf '%s %s' \"$1\" \"$2\" > \"$1/args.txt\"\n"
)

// PackageFixture describes a repository package directory written by WriteRepoPackage.
type PackageFixture struct {
	Name           string
	DefaultVersion string
	Versions       []string
	// Icon is written as a file and referenced when non-empty; otherwise icon is null.
	Icon string
	// Script bodies; empty bodies default to ScriptOK.
	InstallScript string
	RemoveScript  string
	StartScript   string
	AddLauncher   bool
}

// RepoManifest returns the manifest fields for f, keyed as in manifest.json.
func RepoManifest(f PackageFixture) map[string]any {
	versions := f.Versions
	if versions == nil {
		versions = []string{f.DefaultVersion}
	}
	var icon any
	if f.Icon != "" {
		icon = f.Icon
	}
	return map[string]any{
		"name":            f.Name,
		"default-version": f.DefaultVersion,
		"versions":        versions,
		"icon":            icon,
		"install-script":  "install.sh",
		"remove-script":   "remove.sh",
		"start-script":    "start.sh",
		"add-launcher":    f.AddLauncher,
	}
}

// WriteRepoPackage writes a complete, valid repository package to parent/dirName
// and returns the package directory.
func WriteRepoPackage(t testing.TB, parent, dirName string, f PackageFixture) string {
	t.Helper()

	dir := filepath.Join(parent, dirName)
	MustMkdir(t, dir)
	WriteManifest(t, dir, RepoManifest(f))
	writeScripts(t, dir, f.InstallScript, f.RemoveScript, f.StartScript)
	if f.Icon != "" {
		WriteFile(t, filepath.Join(dir, f.Icon), "icon")
	}
	return dir
}

// InstalledFixture describes an installed package directory.
type InstalledFixture struct {
	Name          string
	Version       string
	ProgramDir    string
	InstallScript string
	RemoveScript  string
	StartScript   string
}

// WriteInstalledPackage writes an installed package to packageData/id and
// returns the package directory. The program directory is created if set.
func WriteInstalledPackage(t testing.TB, packageData, id string, f InstalledFixture) string {
	t.Helper()

	dir := filepath.Join(packageData, id)
	MustMkdir(t, dir)
	WriteManifest(t, dir, map[string]any{
		"name":           f.Name,
		"version":        f.Version,
		"program-dir":    f.ProgramDir,
		"icon":           nil,
		"install-script": "install.sh",
		"remove-script":  "remove.sh",
		"start-script":   "start.sh",
		"add-launcher":   false,
	})
	writeScripts(t, dir, f.InstallScript, f.RemoveScript, f.StartScript)
	if f.ProgramDir != "" {
		MustMkdir(t, f.ProgramDir)
	}
	return dir
}

// WriteManifest marshals fields to dir/manifest.json.
func WriteManifest(t testing.TB, dir string, fields map[string]any) {
	t.Helper()

	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		t.Fatalf("marshaling manifest: %v", err)
	}
	WriteFile(t, filepath.Join(dir, "manifest.json"), string(data))
}

// ReadJSON decodes the JSON file at path into a generic map.
func ReadJSON(t testing.TB, path string) map[string]any {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("parsing %s: %v", path, err)
	}
	return out
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	MustMkdir(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// MustMkdir creates dir and its parents.
func MustMkdir(t testing.TB, dir string) {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("creating %s: %v", dir, err)
	}
}

// DirEntries returns the names of the entries in dir, or nil if it does not exist.
func DirEntries(t testing.TB, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("reading %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func writeScripts(t testing.TB, dir, install, remove, start string) {
	t.Helper()

	bodies := map[string]string{
		"install.sh": install,
		"remove.sh":  remove,
		"start.sh":   start,
	}
	for name, body := range bodies {
		if body == "" {
			body = ScriptOK
		}
		WriteFile(t, filepath.Join(dir, name), body)
	}
}
