package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bjornkeller/ModDevelopmentTools/internal/installed"
	"github.com/bjornkeller/ModDevelopmentTools/internal/manifest"
	"github.com/bjornkeller/ModDevelopmentTools/internal/runner"
	"github.com/bjornkeller/ModDevelopmentTools/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	e      *Engine
	root   string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newHarness seeds a repository with "tool" (1.0 default, 2.0) and "box" (2.0)
// and returns a strict-mode engine running scripts with /bin/sh.
func newHarness(t *testing.T, tool testutil.PackageFixture, opts ...Option) *harness {
	t.Helper()

	root := t.TempDir()
	repoDir := filepath.Join(root, RepositoryDir)
	tool.Name = "tool"
	tool.DefaultVersion = "1.0"
	tool.Versions = []string{"1.0", "2.0"}
	testutil.WriteRepoPackage(t, repoDir, "tool", tool)
	testutil.WriteRepoPackage(t, repoDir, "box", testutil.PackageFixture{Name: "box", DefaultVersion: "2.0"})

	h := &harness{root: root, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	base := []Option{
		WithRuntime(testutil.ShellRuntime),
		WithVerbose(false),
		WithStdout(h.stdout),
		WithStderr(h.stderr),
		WithStdin(bytes.NewReader(nil)),
	}
	e, err := New(root, append(base, opts...)...)
	require.NoError(t, err)
	h.e = e
	return h
}

func (h *harness) packageData(t *testing.T) []string {
	t.Helper()
	return testutil.DirEntries(t, h.e.Installed().PackageDataDir())
}

func (h *harness) programData(t *testing.T) []string {
	t.Helper()
	return testutil.DirEntries(t, h.e.Installed().ProgramDataDir())
}

func (h *harness) active(t *testing.T, name string) (string, bool) {
	t.Helper()
	entry, ok, err := h.e.Installed().ConfigOf(name)
	require.NoError(t, err)
	return entry.Version, ok
}

func (h *harness) install(t *testing.T, name, version string) *Result {
	t.Helper()
	res, err := h.e.Install(context.Background(), name, version, InstallOptions{})
	require.NoError(t, err)
	require.True(t, res.OK())
	return res
}

func TestInstall_DefaultVersion(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{InstallScript: testutil.ScriptRecordArgs})
	res := h.install(t, "tool", "")

	assert.Equal(t, "1.0", res.Version)
	require.NotNil(t, res.Installation)
	inst := res.Installation

	doc := testutil.ReadJSON(t, inst.Path)
	assert.Equal(t, "1.0", doc["version"])
	assert.Equal(t, inst.ProgramDir, doc["program-dir"])
	assert.NotContains(t, doc, "versions")
	assert.NotContains(t, doc, "default-version")
	assert.Equal(t, "install.sh", doc["install-script"], "other fields are carried over")

	// package-data and program-data share the installation id
	assert.Equal(t, filepath.Base(inst.Dir), filepath.Base(inst.ProgramDir))
	args, err := os.ReadFile(filepath.Join(inst.ProgramDir, "args.txt"))
	require.NoError(t, err)
	assert.Equal(t, inst.ProgramDir+" 1.0", string(args))

	v, ok := h.active(t, "tool")
	assert.True(t, ok)
	assert.Equal(t, "1.0", v)

	_, err = manifest.Validate(inst.Dir, manifest.Installed)
	assert.NoError(t, err, "the installed copy passes full installed-schema validation")
}

func TestInstall_ScenarioShowAndConfigure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{})

	h.install(t, "tool", "")
	shown, err := h.e.Show("tool", "")
	require.NoError(t, err)
	require.Len(t, shown, 1)
	assert.Equal(t, "tool", shown[0].Name)
	assert.Equal(t, "1.0", shown[0].Version)
	assert.True(t, shown[0].Active)

	h.install(t, "tool", "2.0")
	shown, err = h.e.Show("tool", "")
	require.NoError(t, err)
	assert.Len(t, shown, 2)
	v, _ := h.active(t, "tool")
	assert.Equal(t, "1.0", v, "second install does not change the active version")

	res, err := h.e.Configure("tool", "2.0")
	require.NoError(t, err)
	assert.True(t, res.OK())
	v, _ = h.active(t, "tool")
	assert.Equal(t, "2.0", v)

	only, err := h.e.Show("tool", "2.0")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.True(t, only[0].Active)
}

func TestInstall_AlreadyInstalled(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{})
	h.install(t, "tool", "1.0")

	res, err := h.e.Install(context.Background(), "tool", "1.0", InstallOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyInstalled)
	assert.Equal(t, KindAlreadyInstalled, res.Kind)
	assert.Len(t, h.e.Installed().InstallationsOf("tool"), 1)
	assert.Len(t, h.packageData(t), 1)
	assert.Len(t, h.programData(t), 1)

	// the default version resolves to the same pair
	_, err = h.e.Install(context.Background(), "tool", "", InstallOptions{})
	assert.ErrorIs(t, err, ErrAlreadyInstalled)
}

func TestInstall_NoInstallCandidate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		name    string
		version string
	}{
		"unknown package":  {name: "nope"},
		"unlisted version": {name: "tool", version: "3.0"},
		"wrong package":    {name: "box", version: "1.0"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, testutil.PackageFixture{})
			res, err := h.e.Install(context.Background(), tt.name, tt.version, InstallOptions{})
			assert.ErrorIs(t, err, ErrNoInstallCandidate)
			assert.Equal(t, KindNoInstallCandidate, res.Kind)
			assert.Empty(t, h.packageData(t))
		})
	}
}

func TestInstall_ScriptFailureRollsBack(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{InstallScript: "touch \"$1/partial\"\nexit 3\n"})

	res, err := h.e.Install(context.Background(), "tool", "", InstallOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrErrorInInstallScript)
	assert.Equal(t, KindErrorInInstallScript, res.Kind)
	assert.Contains(t, err.Error(), "exit status 3")

	assert.Empty(t, h.packageData(t))
	assert.Empty(t, h.programData(t))
	_, ok := h.active(t, "tool")
	assert.False(t, ok)
}

func TestInstall_LaunchFailureRollsBack(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{}, WithRuntime(filepath.Join(t.TempDir(), "no-such-python")))

	_, err := h.e.Install(context.Background(), "tool", "", InstallOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrErrorInInstallScript)
	var launchErr *runner.LaunchError
	assert.True(t, errors.As(err, &launchErr))
	assert.Empty(t, h.packageData(t))
	assert.Empty(t, h.programData(t))
}

func TestInstall_TimeoutRollsBack(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{InstallScript: "sleep 5\n"}, WithScriptTimeout(100*time.Millisecond))

	_, err := h.e.Install(context.Background(), "tool", "", InstallOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrErrorInInstallScript)
	assert.ErrorIs(t, err, runner.ErrTimedOut)
	assert.Empty(t, h.packageData(t))
	assert.Empty(t, h.programData(t))
}

func TestInstall_InterruptRollsBack(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{InstallScript: "sleep 5\n"})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	res, err := h.e.Install(ctx, "tool", "", InstallOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindInterrupted, res.Kind)
	assert.Empty(t, h.packageData(t))
	assert.Empty(t, h.programData(t))
}

func TestInstall_Reinstall(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{})
	first := h.install(t, "tool", "1.0")
	h.install(t, "tool", "2.0")

	res, err := h.e.Install(context.Background(), "tool", "1.0", InstallOptions{Reinstall: true})
	require.NoError(t, err)
	require.True(t, res.OK())

	assert.NotEqual(t, first.Installation.Dir, res.Installation.Dir, "reinstall allocates fresh directories")
	assert.NoDirExists(t, first.Installation.Dir)
	assert.Len(t, h.e.Installed().InstallationsOf("tool"), 2)
	v, _ := h.active(t, "tool")
	assert.Equal(t, "1.0", v, "reinstalling the active version keeps it active")
}

func TestInstall_VerboseModeReportsAndReturns(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{}, WithVerbose(true))
	h.install(t, "tool", "")

	res, err := h.e.Install(context.Background(), "tool", "", InstallOptions{})
	require.NoError(t, err, "verbose mode does not raise")
	assert.False(t, res.OK())
	assert.Equal(t, KindAlreadyInstalled, res.Kind)
	assert.ErrorIs(t, res.Err, ErrAlreadyInstalled)
	assert.Equal(t, "ERR: package already installed: tool 1.0\n", h.stderr.String())
}

func TestInstall_BrokenRepository(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{})
	require.NoError(t, os.Remove(filepath.Join(h.root, RepositoryDir, "box", "start.sh")))

	res, err := h.e.Install(context.Background(), "tool", "", InstallOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, manifest.ErrMissingFile)
	assert.Equal(t, KindMissingFile, res.Kind)

	listed, err := h.e.List()
	require.NoError(t, err)
	assert.Empty(t, listed, "installed queries do not need the repository")
}

func TestUninstall_OnlyVersionRemovesConfig(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{})
	inst := h.install(t, "tool", "").Installation

	res, err := h.e.Uninstall(context.Background(), "tool", "")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "1.0", res.Version)

	assert.NoDirExists(t, inst.Dir)
	assert.NoDirExists(t, inst.ProgramDir)
	assert.Empty(t, h.e.Installed().InstallationsOf("tool"))
	_, ok := h.active(t, "tool")
	assert.False(t, ok)
}

func TestUninstall_Reconfigure(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		active     string
		remove     string
		wantActive string
	}{
		"removing active repoints to remaining": {active: "1.0", remove: "1.0", wantActive: "2.0"},
		"removing inactive leaves entry":        {active: "1.0", remove: "2.0", wantActive: "1.0"},
		"removing active 2.0 repoints to 1.0":   {active: "2.0", remove: "2.0", wantActive: "1.0"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, testutil.PackageFixture{})
			h.install(t, "tool", "1.0")
			h.install(t, "tool", "2.0")
			_, err := h.e.Configure("tool", tt.active)
			require.NoError(t, err)

			_, err = h.e.Uninstall(context.Background(), "tool", tt.remove)
			require.NoError(t, err)

			v, ok := h.active(t, "tool")
			require.True(t, ok)
			assert.Equal(t, tt.wantActive, v)
			assert.Len(t, h.e.Installed().InstallationsOf("tool"), 1)
		})
	}
}

func TestUninstall_NotInstalled(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{})
	h.install(t, "tool", "1.0")

	_, err := h.e.Uninstall(context.Background(), "box", "")
	assert.ErrorIs(t, err, ErrPackageNotInstalled)

	res, err := h.e.Uninstall(context.Background(), "tool", "2.0")
	assert.ErrorIs(t, err, ErrPackageNotInstalled)
	assert.Equal(t, KindPackageNotInstalled, res.Kind)
	assert.Len(t, h.packageData(t), 1)
}

func TestUninstall_NoDefaultVersion(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{})
	h.install(t, "tool", "1.0")
	require.NoError(t, h.e.Installed().Config().Remove("tool"))

	_, err := h.e.Uninstall(context.Background(), "tool", "")
	assert.ErrorIs(t, err, ErrNoDefaultVersion)
	assert.Len(t, h.packageData(t), 1)
}

func TestUninstall_RemoveScriptFailureDoesNotBlockCleanup(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{RemoveScript: testutil.ScriptFail})
	inst := h.install(t, "tool", "").Installation

	res, err := h.e.Uninstall(context.Background(), "tool", "")
	require.NoError(t, err)
	assert.True(t, res.OK())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "remove script")
	assert.Contains(t, h.stderr.String(), "Warning:")
	assert.NoDirExists(t, inst.Dir)
	assert.NoDirExists(t, inst.ProgramDir)
}

func TestUninstall_CollectsCleanupErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{})
	outside := t.TempDir()
	id := "11111111-2222-3333-4444-555555555555"
	dir := testutil.WriteInstalledPackage(t, h.e.Installed().PackageDataDir(), id, testutil.InstalledFixture{
		Name: "rogue", Version: "1", ProgramDir: outside,
	})
	_, err := h.e.Installed().SetConfig("rogue", "1")
	require.NoError(t, err)

	res, err := h.e.Uninstall(context.Background(), "rogue", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFailedToUninstall)
	assert.Equal(t, KindFailedToUninstall, res.Kind)

	assert.NoDirExists(t, dir, "the other deletion is still attempted")
	assert.DirExists(t, outside, "program-dir outside program-data is never deleted")
	_, ok := h.active(t, "rogue")
	assert.False(t, ok)
}

func TestUninstall_InterruptStillCleansUp(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{RemoveScript: "sleep 5\n"})
	inst := h.install(t, "tool", "").Installation

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := h.e.Uninstall(ctx, "tool", "")
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.NoDirExists(t, inst.Dir)
	assert.NoDirExists(t, inst.ProgramDir)
	_, ok := h.active(t, "tool")
	assert.False(t, ok)
}

func TestRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{StartScript: `printf 'started %s' "$2"`})
	h.install(t, "tool", "1.0")
	h.install(t, "tool", "2.0")

	res, err := h.e.Run(context.Background(), "tool", "")
	require.NoError(t, err)
	assert.Equal(t, "1.0", res.Version)
	assert.Equal(t, "started 1.0", h.stdout.String())

	h.stdout.Reset()
	_, err = h.e.Run(context.Background(), "tool", "2.0")
	require.NoError(t, err)
	assert.Equal(t, "started 2.0", h.stdout.String())
}

func TestRun_Failures(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{StartScript: testutil.ScriptFail})
	h.install(t, "tool", "1.0")

	_, err := h.e.Run(context.Background(), "tool", "")
	assert.ErrorIs(t, err, ErrErrorInStartScript)

	_, err = h.e.Run(context.Background(), "tool", "2.0")
	assert.ErrorIs(t, err, ErrPackageNotInstalled)

	_, err = h.e.Run(context.Background(), "box", "")
	assert.ErrorIs(t, err, ErrPackageNotInstalled)

	require.NoError(t, h.e.Installed().Config().Remove("tool"))
	_, err = h.e.Run(context.Background(), "tool", "")
	assert.ErrorIs(t, err, ErrNoDefaultVersion)
}

func TestConfigure_NotInstalledIsRejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{})
	h.install(t, "tool", "1.0")

	_, err := h.e.Configure("tool", "2.0")
	assert.ErrorIs(t, err, ErrPackageNotInstalled)
	v, _ := h.active(t, "tool")
	assert.Equal(t, "1.0", v)
}

func TestChoices(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{})
	_, err := h.e.Choices("tool")
	assert.ErrorIs(t, err, ErrPackageNotInstalled)

	h.install(t, "tool", "2.0")
	h.install(t, "tool", "1.0")

	choices, err := h.e.Choices("tool")
	require.NoError(t, err)
	assert.Equal(t, []Choice{
		{Index: 0, Version: "1.0"},
		{Index: 1, Version: "2.0", Active: true},
	}, choices)
}

func TestSearchAndList(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{})

	found, err := h.e.Search("too")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "tool", found[0].Manifest.Name)

	h.install(t, "tool", "")
	h.install(t, "box", "")
	listed, err := h.e.List()
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "box", listed[0].Name)
	assert.Equal(t, "tool", listed[1].Name)
}

func TestUpdateAndExportRepository(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{})
	src := t.TempDir()
	testutil.WriteRepoPackage(t, src, "crate", testutil.PackageFixture{Name: "crate", DefaultVersion: "0.1"})

	res, err := h.e.UpdateRepository(context.Background(), src, false)
	require.NoError(t, err)
	require.NotNil(t, res.Update)
	assert.Equal(t, []string{"crate"}, res.Update.Added)
	h.install(t, "crate", "")

	target := t.TempDir()
	res, err = h.e.ExportRepository(target)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(target, "repository"), res.ExportedTo)
	assert.DirExists(t, filepath.Join(target, "repository", "crate"))

	_, err = h.e.UpdateRepository(context.Background(), filepath.Join(h.root, RepositoryDir), false)
	assert.Error(t, err)
}

// recordingRunner captures commands instead of running them.
type recordingRunner struct {
	mu       sync.Mutex
	commands []runner.Command
	exitCode int
}

func (r *recordingRunner) Run(_ context.Context, c runner.Command) (*runner.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, c)
	return &runner.Result{ExitCode: r.exitCode}, nil
}

func TestScriptInvocationContract(t *testing.T) {
	t.Parallel()

	rec := &recordingRunner{}
	h := newHarness(t, testutil.PackageFixture{}, WithRunner(rec), WithRuntime("python3"), WithScriptTimeout(time.Minute))

	inst := h.install(t, "tool", "2.0").Installation
	_, err := h.e.Uninstall(context.Background(), "tool", "2.0")
	require.NoError(t, err)

	require.Len(t, rec.commands, 2)
	install, remove := rec.commands[0], rec.commands[1]

	assert.Equal(t, "python3", install.Path)
	assert.Equal(t, []string{filepath.Join(inst.Dir, "install.sh"), inst.ProgramDir, "2.0"}, install.Args)
	assert.Equal(t, inst.Dir, install.Dir)
	assert.Equal(t, time.Minute, install.Timeout)
	assert.Equal(t, []string{filepath.Join(inst.Dir, "remove.sh"), inst.ProgramDir, "2.0"}, remove.Args)
}

func TestListingsMarkActive(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PackageFixture{})
	h.install(t, "tool", "1.0")
	h.install(t, "tool", "2.0")
	require.NoError(t, h.e.Installed().Config().Upsert(installed.Entry{Name: "tool", Version: "2.0"}))

	listed, err := h.e.List()
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.False(t, listed[0].Active)
	assert.True(t, listed[1].Active)
}
