package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bjornkeller/ModDevelopmentTools/internal/fsutil"
	"github.com/bjornkeller/ModDevelopmentTools/internal/installed"
	"github.com/bjornkeller/ModDevelopmentTools/internal/manifest"
)

// InstallOptions modifies Install.
type InstallOptions struct {
	// Reinstall uninstalls an existing installation of the same version first
	// instead of failing with AlreadyInstalled.
	Reinstall bool
}

// Install installs name from the repository. An empty version selects the
// package's default-version.
func (e *Engine) Install(ctx context.Context, name, version string, opts InstallOptions) (*Result, error) {
	res := &Result{Op: OpInstall, Name: name, Version: version}
	inst, err := e.install(ctx, res, name, version, opts)
	if inst != nil {
		res.Installation = inst
		res.Version = inst.Version
	}
	return e.finish(res, err)
}

func (e *Engine) install(ctx context.Context, res *Result, name, version string, opts InstallOptions) (*installed.Installation, error) {
	repo, err := e.Repository()
	if err != nil {
		return nil, err
	}

	// Resolve
	pkg, ok := repo.Lookup(name, version)
	if !ok {
		return nil, newError(KindNoInstallCandidate, name, version)
	}
	resolved := version
	if resolved == "" {
		resolved = pkg.Manifest.DefaultVersion
	}
	res.Version = resolved

	// Guard
	wasActive := false
	if _, exists := e.installed.IsInstalled(name, resolved); exists {
		if !opts.Reinstall {
			return nil, newError(KindAlreadyInstalled, name, resolved)
		}
		entry, ok, err := e.installed.ConfigOf(name)
		if err != nil {
			return nil, err
		}
		wasActive = ok && entry.Version == resolved
		e.logger.Debug("reinstalling, removing existing installation", "name", name, "version", resolved)
		if err := e.uninstall(ctx, res, name, resolved); err != nil {
			return nil, err
		}
	}

	alloc, err := e.installed.Allocate()
	if err != nil {
		return nil, err
	}

	inst, err := e.materializeAndRun(ctx, pkg, alloc, resolved)
	if err != nil {
		e.rollback(res, alloc)
		return nil, err
	}

	// Configure
	if wasActive {
		_, err = e.installed.SetConfig(name, resolved)
	} else {
		err = e.ensureConfigured(name, resolved)
	}
	if err != nil {
		e.rollback(res, alloc)
		return nil, err
	}

	e.logger.Debug("installed", "name", name, "version", resolved, "id", alloc.ID)
	return inst, nil
}

// materializeAndRun creates both installation directories, pins the copied
// manifest and runs the install script.
func (e *Engine) materializeAndRun(ctx context.Context, pkg manifest.Package, alloc installed.Allocation, version string) (*installed.Installation, error) {
	name := pkg.Manifest.Name

	if err := os.Mkdir(alloc.ProgramDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating program directory: %w", err)
	}
	if err := fsutil.CopyDir(pkg.Dir, alloc.PackageDir); err != nil {
		return nil, fmt.Errorf("copying package %s: %w", name, err)
	}
	doc, err := manifest.ReadDocument(alloc.PackageDir)
	if err != nil {
		return nil, err
	}
	doc.PinInstallation(version, alloc.ProgramDir)
	if err := manifest.WriteDocument(alloc.PackageDir, doc); err != nil {
		return nil, err
	}
	m, err := manifest.Decode(alloc.PackageDir, manifest.Installed)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: KindInterrupted, Name: name, Version: version, Err: err}
	}

	// Execute
	runRes, err := e.script(ctx, alloc.PackageDir, m.InstallScript, alloc.ProgramDir, version, e.timeout, nil)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, &Error{Kind: KindInterrupted, Name: name, Version: version, Err: ctxErr}
	}
	if err != nil || !runRes.Success() {
		detail, cause := scriptFailure(runRes, err)
		if runRes != nil && runRes.Output != "" {
			e.logger.Debug("install script output", "output", runRes.Output)
		}
		return nil, &Error{Kind: KindErrorInInstallScript, Name: name, Version: version, Detail: detail, Err: cause}
	}

	return &installed.Installation{
		Name:       name,
		Version:    version,
		Path:       filepath.Join(alloc.PackageDir, manifest.FileName),
		Dir:        alloc.PackageDir,
		ProgramDir: alloc.ProgramDir,
		Manifest:   m,
	}, nil
}

// ensureConfigured creates the active-version entry for name unless one exists.
func (e *Engine) ensureConfigured(name, version string) error {
	_, ok, err := e.installed.ConfigOf(name)
	if err == nil && !ok {
		err = e.installed.Config().Upsert(installed.Entry{Name: name, Version: version})
	}
	if err != nil {
		return fmt.Errorf("configuring version of %s: %w", name, err)
	}
	return nil
}

// rollback removes both directories of a failed install. Directories that were
// never created are ignored; other failures are reported as warnings.
func (e *Engine) rollback(res *Result, alloc installed.Allocation) {
	for _, dir := range []string{alloc.PackageDir, alloc.ProgramDir} {
		if err := fsutil.RemoveDir(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			e.warn(res, "rollback cleanup failed: %v", err)
		}
	}
	e.logger.Debug("rolled back install", "id", alloc.ID)
}
