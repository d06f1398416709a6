package engine

import (
	"context"
	"strings"

	"github.com/bjornkeller/ModDevelopmentTools/internal/installed"
	"github.com/bjornkeller/ModDevelopmentTools/internal/manifest"
)

// Listing is one installation as shown to the user.
type Listing struct {
	Name    string
	Version string
	// Active marks the version selected in the version configuration.
	Active bool
	Path   string
}

// Choice is one selectable version of an installed package.
type Choice struct {
	Index   int
	Version string
	Active  bool
}

// Show lists the installations of name, restricted to version when non-empty.
func (e *Engine) Show(name, version string) ([]Listing, error) {
	var out []Listing
	for _, l := range e.listings(e.installed.InstallationsOf(name)) {
		if version == "" || l.Version == version {
			out = append(out, l)
		}
	}
	return out, nil
}

// List lists every installation.
func (e *Engine) List() ([]Listing, error) {
	return e.listings(e.installed.AllInstalled()), nil
}

func (e *Engine) listings(insts []installed.Installation) []Listing {
	entries, _, err := e.installed.Config().Read()
	if err != nil {
		e.logger.Warn("cannot read version config", "err", err)
	}
	active := make(map[string]string, len(entries))
	for _, entry := range entries {
		active[entry.Name] = entry.Version
	}

	out := make([]Listing, 0, len(insts))
	for _, inst := range insts {
		out = append(out, Listing{
			Name:    inst.Name,
			Version: inst.Version,
			Active:  active[inst.Name] == inst.Version,
			Path:    inst.Path,
		})
	}
	return out
}

// Search returns repository packages whose name contains substr.
func (e *Engine) Search(substr string) ([]manifest.Package, error) {
	repo, err := e.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Search(substr), nil
}

// Choices lists the installed versions of name in the order offered by the
// interactive configure prompt.
func (e *Engine) Choices(name string) ([]Choice, error) {
	insts := e.installed.InstallationsOf(name)
	if len(insts) == 0 {
		return nil, newError(KindPackageNotInstalled, name, "")
	}
	out := make([]Choice, 0, len(insts))
	for i, l := range e.listings(insts) {
		out = append(out, Choice{Index: i, Version: l.Version, Active: l.Active})
	}
	return out, nil
}

// Configure makes version the active version of name.
func (e *Engine) Configure(name, version string) (*Result, error) {
	res := &Result{Op: OpConfigure, Name: name, Version: version}
	return e.finish(res, e.configure(name, version))
}

func (e *Engine) configure(name, version string) error {
	if _, ok := e.installed.IsInstalled(name, version); !ok {
		return newError(KindPackageNotInstalled, name, version)
	}
	_, err := e.installed.SetConfig(name, version)
	return err
}

// Run starts an installed package with its start script, connected to the
// engine's stdin and stdout. An empty version selects the active version.
func (e *Engine) Run(ctx context.Context, name, version string) (*Result, error) {
	res := &Result{Op: OpRun, Name: name, Version: version}
	return e.finish(res, e.run(ctx, res, name, version))
}

func (e *Engine) run(ctx context.Context, res *Result, name, version string) error {
	inst, err := e.resolveInstallation(name, version)
	if err != nil {
		return err
	}
	res.Version = inst.Version

	// Start scripts are interactive programs and are never timed out.
	runRes, err := e.script(ctx, inst.Dir, inst.Manifest.StartScript, inst.ProgramDir, inst.Version, 0, e.stdin)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Error{Kind: KindInterrupted, Name: name, Version: inst.Version, Err: ctxErr}
	}
	if err != nil || !runRes.Success() {
		detail, cause := scriptFailure(runRes, err)
		return &Error{Kind: KindErrorInStartScript, Name: name, Version: inst.Version, Detail: detail, Err: cause}
	}
	return nil
}

// UpdateRepository merges the packages under sourceDir into the repository.
func (e *Engine) UpdateRepository(ctx context.Context, sourceDir string, clear bool) (*Result, error) {
	res := &Result{Op: OpUpdate, Name: sourceDir}
	repo, err := e.Repository()
	if err != nil {
		return e.finish(res, err)
	}
	report, err := repo.Update(ctx, sourceDir, clear)
	if err == nil {
		res.Update = report
		e.logger.Debug("repository updated", "added", strings.Join(report.Added, ","),
			"replaced", strings.Join(report.Replaced, ","), "cleared", strings.Join(report.Cleared, ","))
	}
	return e.finish(res, err)
}

// ExportRepository copies the repository to targetDir/repository.
func (e *Engine) ExportRepository(targetDir string) (*Result, error) {
	res := &Result{Op: OpExport, Name: targetDir}
	repo, err := e.Repository()
	if err != nil {
		return e.finish(res, err)
	}
	res.ExportedTo, err = repo.Export(targetDir)
	return e.finish(res, err)
}
