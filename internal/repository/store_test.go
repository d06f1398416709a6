package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bjornkeller/ModDevelopmentTools/internal/manifest"
	"github.com/bjornkeller/ModDevelopmentTools/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(pkgs []manifest.Package) []string {
	out := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, p.Manifest.Name)
	}
	return out
}

func seedRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	testutil.WriteRepoPackage(t, dir, "tool", testutil.PackageFixture{
		Name: "tool", DefaultVersion: "1.0", Versions: []string{"1.0", "2.0"},
	})
	testutil.WriteRepoPackage(t, dir, "box", testutil.PackageFixture{
		Name: "box", DefaultVersion: "2.0", Versions: []string{"2.0"},
	})
	return dir
}

func TestOpen_CreatesMissingDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "repository")
	s, err := Open(dir)
	require.NoError(t, err)
	assert.Empty(t, s.Get("", ""))
	assert.DirExists(t, dir)
}

func TestOpen_InvalidPackageFailsLoad(t *testing.T) {
	t.Parallel()

	dir := seedRepo(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "box", "remove.sh")))

	_, err := Open(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, manifest.ErrMissingFile)
}

func TestOpen_IgnoresFilesAndHiddenDirs(t *testing.T) {
	t.Parallel()

	dir := seedRepo(t)
	testutil.WriteFile(t, filepath.Join(dir, "README"), "not a package")
	testutil.MustMkdir(t, filepath.Join(dir, ".cache"))

	s, err := Open(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tool", "box"}, names(s.Get("", "")))
}

func TestStore_Get(t *testing.T) {
	t.Parallel()

	s, err := Open(seedRepo(t))
	require.NoError(t, err)

	tests := map[string]struct {
		name    string
		version string
		want    []string
	}{
		"no filter":              {want: []string{"box", "tool"}},
		"version only":           {version: "2.0", want: []string{"box", "tool"}},
		"version only one match": {version: "1.0", want: []string{"tool"}},
		"version only no match":  {version: "9.9", want: []string{}},
		"name only":              {name: "tool", want: []string{"tool"}},
		"name only unknown":      {name: "nope", want: []string{}},
		"name and version":       {name: "tool", version: "2.0", want: []string{"tool"}},
		"name and wrong version": {name: "box", version: "1.0", want: []string{}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.ElementsMatch(t, tt.want, names(s.Get(tt.name, tt.version)))
		})
	}
}

func TestStore_GetReturnsCopies(t *testing.T) {
	t.Parallel()

	s, err := Open(seedRepo(t))
	require.NoError(t, err)

	all := s.Get("", "")
	for _, p := range all {
		p.Manifest.Name = "mutated"
		p.Manifest.Versions = nil
	}

	p, ok := s.Lookup("tool", "")
	require.True(t, ok)
	assert.Equal(t, []string{"1.0", "2.0"}, p.Manifest.Versions)
}

func TestStore_Lookup(t *testing.T) {
	t.Parallel()

	dir := seedRepo(t)
	s, err := Open(dir)
	require.NoError(t, err)

	p, ok := s.Lookup("tool", "2.0")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "tool"), p.Dir)
	assert.Equal(t, filepath.Join(dir, "tool", "install.sh"), p.InstallScriptPath())

	_, ok = s.Lookup("tool", "3.0")
	assert.False(t, ok)
	_, ok = s.Lookup("", "1.0")
	assert.False(t, ok)
}

func TestStore_Search(t *testing.T) {
	t.Parallel()

	s, err := Open(seedRepo(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"tool"}, names(s.Search("too")))
	assert.ElementsMatch(t, []string{"tool", "box"}, names(s.Search("")))
	assert.Empty(t, s.Search("zzz"))
}

func TestStore_Export(t *testing.T) {
	t.Parallel()

	s, err := Open(seedRepo(t))
	require.NoError(t, err)

	target := t.TempDir()
	dst, err := s.Export(target)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(target, "repository"), dst)
	assert.FileExists(t, filepath.Join(dst, "tool", "manifest.json"))
	assert.FileExists(t, filepath.Join(dst, "box", "start.sh"))

	_, err = s.Export(target)
	assert.Error(t, err, "export refuses an existing target/repository")
}

func TestStore_ExportIntoItself(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		target  func(dir string) string
		wantErr bool
	}{
		"repository directory": {
			target:  func(dir string) string { return dir },
			wantErr: true,
		},
		"package directory": {
			target:  func(dir string) string { return filepath.Join(dir, "tool") },
			wantErr: true,
		},
		"relative path back into the repository": {
			target:  func(dir string) string { return filepath.Join(dir, "box", "..", "tool", "1.0") },
			wantErr: true,
		},
		"sibling sharing the name prefix": {
			target: func(dir string) string { return dir + "-out" },
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := seedRepo(t)
			s, err := Open(dir)
			require.NoError(t, err)

			target := tt.target(dir)
			_, err = s.Export(target)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.DirExists(t, filepath.Join(target, "repository", "tool"))
				return
			}

			require.ErrorIs(t, err, ErrExportIntoRepository)
			assert.NoDirExists(t, filepath.Join(target, "repository"))
			require.NoError(t, s.Reload(), "the catalog stays loadable")
			assert.ElementsMatch(t, []string{"tool", "box"}, names(s.Get("", "")))
		})
	}
}

func TestStore_Reload(t *testing.T) {
	t.Parallel()

	dir := seedRepo(t)
	s, err := Open(dir)
	require.NoError(t, err)

	testutil.WriteRepoPackage(t, dir, "extra", testutil.PackageFixture{Name: "extra", DefaultVersion: "0.1"})
	assert.Len(t, s.Get("", ""), 2, "not observed before Reload")

	require.NoError(t, s.Reload())
	assert.Len(t, s.Get("", ""), 3)
}

func TestValidateAll_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := seedRepo(t)
	dirs := []string{filepath.Join(dir, "tool"), filepath.Join(dir, "box")}
	_, err := validateAll(ctx, dirs)
	assert.ErrorIs(t, err, context.Canceled)
}
