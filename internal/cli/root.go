// Package cli implements the mdt command line.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	clierrors "github.com/bjornkeller/ModDevelopmentTools/internal/errors"
	"github.com/spf13/cobra"
)

// Command groups shown in help output.
const (
	GroupPackages    = "packages"
	GroupRepository  = "repository"
	GroupMaintenance = "maintenance"
)

// NewRootCmd builds the full command tree. Each call returns fresh commands
// so flag state never leaks between executions.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mdt",
		Short: "Mod Development Tools package manager",
		Long: `mdt installs, runs and removes versioned mod packages from a local repository.

Packages live in <root>/repository, one directory per package with a manifest.json.
Installations live in <root>/installed-programs; several versions of a package can be
installed side by side and one of them is the default.

Configuration precedence (highest to lowest):
  1. Command-line flags
  2. Environment variables (MDT_*)
  3. <root>/config.json
  4. User config (~/.config/mdt/config.yml)
  5. Built-in defaults`,
		Example: `  # Install the default version of a package
  mdt install tool

  # Install, then run a specific version
  mdt install tool -v 2.0
  mdt run tool -v 2.0

  # Pick the default version interactively
  mdt config tool

  # Refresh the repository from the configured URL
  mdt update`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddGroup(
		&cobra.Group{ID: GroupPackages, Title: "Package Commands:"},
		&cobra.Group{ID: GroupRepository, Title: "Repository Commands:"},
		&cobra.Group{ID: GroupMaintenance, Title: "Maintenance Commands:"},
	)

	pf := rootCmd.PersistentFlags()
	pf.String("root", "", "installation root (default from configuration, /opt/mdt)")
	pf.String("config", "", "user config file (default ~/.config/mdt/config.yml)")
	pf.String("runtime", "", "interpreter for package scripts (default python3)")
	pf.Bool("strict", false, "fail with a typed error instead of an ERR: line")
	pf.Bool("debug", false, "enable debug logging")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return clierrors.NewArgumentErrorWithUsage(err.Error(), cmd.UseLine())
	})

	rootCmd.AddCommand(
		newInstallCmd(),
		newRemoveCmd(),
		newRunCmd(),
		newListCmd(),
		newShowCmd(),
		newConfigCmd(),
		newSearchCmd(),
		newRepoCmd(),
		newUpdateCmd(),
		newHistoryCmd(),
		newDoctorCmd(),
		newSettingsCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs mdt with the process arguments and returns the exit code.
// SIGINT and SIGTERM cancel the command context, which stops running
// scripts and rolls back an unfinished install.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, NewRootCmd(), os.Args[1:], os.Stderr)
}

func execute(ctx context.Context, rootCmd *cobra.Command, args []string, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	if !isReported(err) {
		clierrors.FprintError(stderr, clierrors.FromEngine(err))
	}
	return exitCodeFor(err)
}

// exactArgs is cobra.ExactArgs with a structured argument error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return clierrors.NewArgumentErrorWithUsage(
				"wrong number of arguments", cmd.UseLine(),
				"Run '"+cmd.CommandPath()+" --help' for details",
			)
		}
		return nil
	}
}
