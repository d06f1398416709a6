package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bjornkeller/ModDevelopmentTools/internal/config"
	"github.com/bjornkeller/ModDevelopmentTools/internal/engine"
	clierrors "github.com/bjornkeller/ModDevelopmentTools/internal/errors"
	"github.com/bjornkeller/ModDevelopmentTools/internal/history"
	"github.com/bjornkeller/ModDevelopmentTools/internal/lifecycle"
	"github.com/bjornkeller/ModDevelopmentTools/internal/lock"
	"github.com/bjornkeller/ModDevelopmentTools/internal/logging"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// geteuid is replaced in tests.
var geteuid = os.Geteuid

// app carries what every command needs: the effective configuration, the
// logger and the command's streams.
type app struct {
	cfg    *config.Configuration
	logger *log.Logger
	out    io.Writer
	errOut io.Writer
	in     io.Reader
	debug  bool
}

// loadApp loads configuration and applies the persistent flags over it.
func loadApp(cmd *cobra.Command) (*app, error) {
	rootFlag, _ := cmd.Flags().GetString("root")
	configPath, _ := cmd.Flags().GetString("config")
	runtime, _ := cmd.Flags().GetString("runtime")
	strict, _ := cmd.Flags().GetBool("strict")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.LoadWithOptions(config.LoadOptions{
		UserConfigPath: configPath,
		RootOverride:   rootFlag,
	})
	if err != nil {
		return nil, clierrors.ConfigLoadError(err)
	}
	if runtime != "" {
		cfg.Runtime = runtime
	}
	if strict {
		cfg.Verbose = false
	}

	a := &app{
		cfg:    cfg,
		logger: logging.New(cmd.ErrOrStderr(), debug),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		in:     cmd.InOrStdin(),
		debug:  debug,
	}
	a.logger.Debug("configuration loaded", "root", cfg.Root, "runtime", cfg.Runtime, "verbose", cfg.Verbose)
	return a, nil
}

func (a *app) engine() (*engine.Engine, error) {
	return engine.New(a.cfg.Root,
		engine.WithStdout(a.out),
		engine.WithStderr(a.errOut),
		engine.WithStdin(a.in),
		engine.WithRuntime(a.cfg.Runtime),
		engine.WithScriptTimeout(a.cfg.ScriptTimeout),
		engine.WithVerbose(a.cfg.Verbose),
		engine.WithLogger(a.logger),
	)
}

func (a *app) history() *history.Writer {
	w := history.NewWriter(a.cfg.Root, a.cfg.MaxHistoryEntries)
	w.Warnings = a.errOut
	return w
}

// mutate runs fn as a mutating command: it enforces require_root, holds the
// root lock for the duration and records the command in the history.
func (a *app) mutate(ctx context.Context, command, pkg string, fn func(ctx context.Context) error) error {
	if a.cfg.RequireRoot && geteuid() != 0 {
		return clierrors.RootRequired(command)
	}
	if err := os.MkdirAll(a.cfg.Root, 0o755); err != nil {
		return fmt.Errorf("creating installation root: %w", err)
	}

	label := strings.TrimSpace("mdt " + command + " " + pkg)
	l, err := lock.Acquire(a.cfg.Root, label)
	switch {
	case errors.Is(err, lock.ErrUnavailable):
		a.logger.Warn("running without the installation lock", "err", err)
	case err != nil:
		return err
	}
	defer l.Release()

	return lifecycle.RunWithHistory(ctx, a.history(), command, pkg, fn)
}

// fail reports err in the configured error mode: an ERR: line in verbose
// mode, a returned error in strict mode. Either way the exit code is non-zero.
func (a *app) fail(err error) error {
	if err == nil {
		return nil
	}
	if a.cfg.Verbose {
		fmt.Fprintf(a.errOut, "ERR: %v\n", err)
		return reported(err)
	}
	return err
}

// outcome converts an engine result into the command's error. The engine has
// already printed verbose-mode failures.
func outcome(res *engine.Result, err error) error {
	if err != nil {
		return err
	}
	if !res.OK() {
		return reported(res.Err)
	}
	return nil
}

func pkgLabel(name, version string) string {
	return strings.TrimSpace(name + " " + version)
}
