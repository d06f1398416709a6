package cli

import (
	"context"

	"github.com/bjornkeller/ModDevelopmentTools/internal/output"
	"github.com/spf13/cobra"
)

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove NAME",
		Aliases: []string{"uninstall"},
		Short:   "Uninstall a package",
		Long: `Uninstall one installed version of a package.

Without --version the default version is removed. The package's remove script
is run first; if it fails the removal continues with a warning. When the
default version is removed another installed version, if any, becomes the
default.`,
		Example: `  # Remove the default version
  mdt remove tool

  # Remove a specific version
  mdt remove tool -v 1.0`,
		GroupID: GroupPackages,
		Args:    exactArgs(1),
		RunE:    runRemove,
	}
	cmd.Flags().StringP("version", "v", "", "version to uninstall (default: the default version)")
	return cmd
}

func runRemove(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	name := args[0]
	version, _ := cmd.Flags().GetString("version")

	return a.mutate(cmd.Context(), "remove", pkgLabel(name, version), func(ctx context.Context) error {
		eng, err := a.engine()
		if err != nil {
			return err
		}
		if err := outcome(eng.Uninstall(ctx, name, version)); err != nil {
			return err
		}
		output.PrintSuccess(a.out, "Uninstalled successfully!")
		return nil
	})
}
