package cli

import (
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run NAME",
		Short: "Start an installed package",
		Long: `Start an installed package with its start script:
  <runtime> <start-script> <program-dir> <version>

The script is connected to the terminal and is not subject to script_timeout.
Without --version the default version is started.`,
		Example: `  mdt run tool
  mdt run tool -v 1.0`,
		GroupID: GroupPackages,
		Args:    exactArgs(1),
		RunE:    runRun,
	}
	cmd.Flags().StringP("version", "v", "", "version to run (default: the default version)")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	version, _ := cmd.Flags().GetString("version")

	eng, err := a.engine()
	if err != nil {
		return err
	}
	return outcome(eng.Run(cmd.Context(), args[0], version))
}
