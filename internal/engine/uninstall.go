package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/bjornkeller/ModDevelopmentTools/internal/fsutil"
	"github.com/bjornkeller/ModDevelopmentTools/internal/installed"
)

// Uninstall removes one installation of name. An empty version selects the
// active version from the version configuration.
//
// The remove script is best effort: its failure is reported as a warning and
// cleanup proceeds. Cleanup also runs when ctx is cancelled during the script.
func (e *Engine) Uninstall(ctx context.Context, name, version string) (*Result, error) {
	res := &Result{Op: OpUninstall, Name: name, Version: version}
	err := e.uninstall(ctx, res, name, version)
	return e.finish(res, err)
}

func (e *Engine) uninstall(ctx context.Context, res *Result, name, version string) error {
	inst, err := e.resolveInstallation(name, version)
	if err != nil {
		return err
	}
	res.Version = inst.Version

	// Execute
	runRes, runErr := e.script(ctx, inst.Dir, inst.Manifest.RemoveScript, inst.ProgramDir, inst.Version, e.timeout, nil)
	if runErr != nil || !runRes.Success() {
		detail, cause := scriptFailure(runRes, runErr)
		if cause != nil {
			detail = cause.Error()
		}
		e.warn(res, "error running remove script of %s %s: %s", name, inst.Version, detail)
	}

	// Cleanup
	cleanupErrs := e.cleanup(inst)

	// Reconfigure
	if err := e.reconfigure(name, inst.Version); err != nil {
		cleanupErrs = append(cleanupErrs, err)
	}

	if len(cleanupErrs) > 0 {
		return &Error{Kind: KindFailedToUninstall, Name: name, Version: inst.Version, Errs: cleanupErrs}
	}
	if err := ctx.Err(); err != nil {
		return &Error{Kind: KindInterrupted, Name: name, Version: inst.Version, Err: err}
	}
	e.logger.Debug("uninstalled", "name", name, "version", inst.Version, "dir", inst.Dir)
	return nil
}

// resolveInstallation finds the installation targeted by an uninstall or run.
func (e *Engine) resolveInstallation(name, version string) (installed.Installation, error) {
	if len(e.installed.InstallationsOf(name)) == 0 {
		return installed.Installation{}, newError(KindPackageNotInstalled, name, version)
	}
	if version == "" {
		entry, ok, err := e.installed.ConfigOf(name)
		if err != nil {
			return installed.Installation{}, err
		}
		if !ok {
			return installed.Installation{}, &Error{Kind: KindNoDefaultVersion, Name: name, Detail: "specify a version"}
		}
		version = entry.Version
	}
	inst, ok := e.installed.IsInstalled(name, version)
	if !ok {
		return installed.Installation{}, newError(KindPackageNotInstalled, name, version)
	}
	return inst, nil
}

// cleanup deletes the package-metadata and program-data directories of inst,
// attempting both and collecting every failure. A directory that is already
// gone counts as removed.
func (e *Engine) cleanup(inst installed.Installation) []error {
	var errs []error
	for _, dir := range []string{inst.Dir, inst.ProgramDir} {
		if err := e.checkOwned(dir); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := fsutil.RemoveDir(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errs
}

// checkOwned refuses to delete anything that is not a direct child of
// package-data or program-data, whatever an installed manifest's program-dir says.
func (e *Engine) checkOwned(dir string) error {
	if dir == "" {
		return fmt.Errorf("installation directory is empty")
	}
	parent := filepath.Dir(filepath.Clean(dir))
	if parent != e.installed.PackageDataDir() && parent != e.installed.ProgramDataDir() {
		return fmt.Errorf("refusing to remove %s: not an installation directory", dir)
	}
	return nil
}

// reconfigure repoints the active version of name away from removed, or drops
// the entry when no installation of name remains.
func (e *Engine) reconfigure(name, removed string) error {
	entry, ok, err := e.installed.ConfigOf(name)
	if err != nil {
		return err
	}
	if !ok || entry.Version != removed {
		return nil
	}

	for _, inst := range e.installed.InstallationsOf(name) {
		if inst.Version != removed {
			e.logger.Debug("repointing active version", "name", name, "from", removed, "to", inst.Version)
			_, err := e.installed.SetConfig(name, inst.Version)
			return err
		}
	}
	e.logger.Debug("removing active version entry", "name", name)
	return e.installed.Config().Remove(name)
}
