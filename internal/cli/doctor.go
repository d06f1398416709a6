package cli

import (
	"errors"
	"fmt"

	"github.com/bjornkeller/ModDevelopmentTools/internal/health"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the installation root for problems",
		Long: `Check the installation root: its directory layout, every repository and
installed manifest, the version configuration, the script runtime, free disk
space and the installation lock.`,
		GroupID: GroupMaintenance,
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			report := health.RunHealthChecks(health.Options{Root: a.cfg.Root, Runtime: a.cfg.Runtime})
			fmt.Fprint(a.out, health.FormatReport(report))
			if !report.Passed {
				return reported(errors.New("health checks failed"))
			}
			return nil
		},
	}
}
