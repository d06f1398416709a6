// Package engine orchestrates installs and uninstalls against the repository
// store, the installed-package store and the version configuration, and
// serves the read-only queries the CLI needs.
//
// Failures are reported according to the caller-supplied mode. In verbose mode
// a one-line "ERR: ..." diagnostic is written and the failure is returned in
// the Result only. In strict mode the typed error is returned as well.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bjornkeller/ModDevelopmentTools/internal/installed"
	"github.com/bjornkeller/ModDevelopmentTools/internal/logging"
	"github.com/bjornkeller/ModDevelopmentTools/internal/repository"
	"github.com/bjornkeller/ModDevelopmentTools/internal/runner"
	"github.com/charmbracelet/log"
)

// Layout names under the installation root.
const (
	RepositoryDir = "repository"
	InstalledDir  = "installed-programs"
	TempDir       = ".tmp"
)

// DefaultRuntime is the interpreter package scripts are run with.
const DefaultRuntime = "python3"

// Op names an engine operation, as recorded in results and history.
type Op string

const (
	OpInstall   Op = "install"
	OpUninstall Op = "remove"
	OpRun       Op = "run"
	OpConfigure Op = "config"
	OpUpdate    Op = "update"
	OpExport    Op = "export"
)

// Result is the outcome of an operation. Err is set when the operation failed,
// in either error mode.
type Result struct {
	Op      Op
	Name    string
	Version string
	Kind    Kind
	Err     error
	// Warnings are non-fatal problems, such as a failing remove script.
	Warnings []string
	// Installation is set by a successful install.
	Installation *installed.Installation
	// Update is set by a successful repository update.
	Update *repository.UpdateReport
	// ExportedTo is set by a successful export.
	ExportedTo string
}

// OK reports whether the operation succeeded.
func (r *Result) OK() bool {
	return r != nil && r.Err == nil
}

// Engine is bound to one installation root.
type Engine struct {
	root      string
	repo      *repository.Store
	installed *installed.Store

	runner  runner.Runner
	runtime string
	timeout time.Duration
	verbose bool

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
	logger *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithStdout sets where script output is streamed.
func WithStdout(w io.Writer) Option {
	return func(e *Engine) {
		e.stdout = w
	}
}

// WithStderr sets where diagnostics and warnings are written.
func WithStderr(w io.Writer) Option {
	return func(e *Engine) {
		e.stderr = w
	}
}

// WithStdin sets the input connected to start scripts.
func WithStdin(r io.Reader) Option {
	return func(e *Engine) {
		e.stdin = r
	}
}

// WithRunner sets the process runner (for testing).
func WithRunner(r runner.Runner) Option {
	return func(e *Engine) {
		e.runner = r
	}
}

// WithRuntime sets the interpreter used for package scripts.
func WithRuntime(rt string) Option {
	return func(e *Engine) {
		if rt != "" {
			e.runtime = rt
		}
	}
}

// WithScriptTimeout bounds install and remove scripts. Zero disables the bound.
func WithScriptTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithVerbose selects the error mode; see the package documentation.
func WithVerbose(v bool) Option {
	return func(e *Engine) {
		e.verbose = v
	}
}

// WithLogger sets the debug logger, which is also handed to the stores.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an engine for the installation root. The installed-programs
// layout is created if missing. The repository is loaded on first use so
// that commands which never touch it keep working with a broken catalog.
func New(root string, opts ...Option) (*Engine, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving installation root: %w", err)
	}

	e := &Engine{
		root:    abs,
		runner:  runner.Exec{},
		runtime: DefaultRuntime,
		verbose: true,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		stdin:   os.Stdin,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.installed, err = installed.Open(filepath.Join(abs, InstalledDir), installed.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Root returns the installation root.
func (e *Engine) Root() string { return e.root }

// Installed returns the installed-package store.
func (e *Engine) Installed() *installed.Store { return e.installed }

// Repository returns the repository store, loading it on first call.
func (e *Engine) Repository() (*repository.Store, error) {
	if e.repo != nil {
		return e.repo, nil
	}
	repo, err := repository.Open(filepath.Join(e.root, RepositoryDir), repository.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}
	e.repo = repo
	return repo, nil
}

// finish applies the error mode to a completed operation.
func (e *Engine) finish(res *Result, err error) (*Result, error) {
	if err == nil {
		return res, nil
	}
	res.Err = err
	res.Kind = KindOf(err)
	e.logger.Debug("operation failed", "op", res.Op, "name", res.Name, "kind", res.Kind, "err", err)
	if e.verbose {
		fmt.Fprintf(e.stderr, "ERR: %v\n", err)
		return res, nil
	}
	return res, err
}

func (e *Engine) warn(res *Result, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	res.Warnings = append(res.Warnings, msg)
	fmt.Fprintf(e.stderr, "Warning: %s\n", msg)
}

// script runs one package script as <runtime> <script> <program-dir> <version>.
func (e *Engine) script(ctx context.Context, dir, script, programDir, version string, timeout time.Duration, stdin io.Reader) (*runner.Result, error) {
	path := filepath.Join(dir, script)
	e.logger.Debug("running script", "runtime", e.runtime, "script", path, "program-dir", programDir, "version", version)
	return e.runner.Run(ctx, runner.Command{
		Path:    e.runtime,
		Args:    []string{path, programDir, version},
		Dir:     dir,
		Timeout: timeout,
		Stdin:   stdin,
		Stdout:  e.stdout,
	})
}

// scriptFailure describes why a script run did not succeed.
func scriptFailure(res *runner.Result, err error) (detail string, cause error) {
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("exit status %d", res.ExitCode), nil
}
