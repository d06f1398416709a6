package cli

import (
	"context"
	"fmt"

	"github.com/bjornkeller/ModDevelopmentTools/internal/engine"
	"github.com/bjornkeller/ModDevelopmentTools/internal/output"
	"github.com/spf13/cobra"
)

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install NAME",
		Short: "Install a package from the repository",
		Long: `Install a package from the repository.

The package directory is copied into installed-programs, a program directory is
allocated for it and the package's install script is run as
  <runtime> <install-script> <program-dir> <version>
If the script fails, everything created for the installation is removed again.

The first installed version of a package becomes its default version.`,
		Example: `  # Install the package's default version
  mdt install tool

  # Install a specific version
  mdt install tool -v 2.0

  # Reinstall a version that is already installed
  mdt install tool -v 2.0 --reinstall`,
		GroupID: GroupPackages,
		Args:    exactArgs(1),
		RunE:    runInstall,
	}
	cmd.Flags().StringP("version", "v", "", "version to install (default: the package's default version)")
	cmd.Flags().BoolP("reinstall", "r", false, "remove and install again if already installed")
	return cmd
}

func runInstall(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	name := args[0]
	version, _ := cmd.Flags().GetString("version")
	reinstall, _ := cmd.Flags().GetBool("reinstall")

	return a.mutate(cmd.Context(), "install", pkgLabel(name, version), func(ctx context.Context) error {
		eng, err := a.engine()
		if err != nil {
			return err
		}
		res, err := eng.Install(ctx, name, version, engine.InstallOptions{Reinstall: reinstall})
		if err := outcome(res, err); err != nil {
			return err
		}
		output.PrintSuccess(a.out, fmt.Sprintf("Installed %s %s", res.Name, res.Version))
		return nil
	})
}
