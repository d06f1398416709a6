package cli

import (
	"context"
	"fmt"
	"strings"

	clierrors "github.com/bjornkeller/ModDevelopmentTools/internal/errors"
	"github.com/bjornkeller/ModDevelopmentTools/internal/output"
	"github.com/bjornkeller/ModDevelopmentTools/internal/repository"
	"github.com/bjornkeller/ModDevelopmentTools/internal/source"
	"github.com/bjornkeller/ModDevelopmentTools/internal/watch"
	"github.com/spf13/cobra"
)

func newRepoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Update the repository from a directory or export it",
		Long: `Merge packages from a local directory into the repository, or copy the
repository elsewhere.

--update DIR copies every package directory under DIR into the repository.
Incoming packages replace repository packages of the same name. With --clear
every repository package is removed first.

--export DIR copies the repository to DIR/repository.

--watch keeps running after an update and merges DIR again whenever it changes.`,
		Example: `  # Merge a directory of packages
  mdt repo --update ./packages

  # Replace the repository with the directory's packages
  mdt repo --update ./packages --clear

  # Merge again on every change while developing a package
  mdt repo --update ./packages --watch

  # Copy the repository to a USB drive
  mdt repo --export /media/usb`,
		GroupID: GroupRepository,
		Args:    exactArgs(0),
		RunE:    runRepo,
	}
	cmd.Flags().StringP("update", "u", "", "merge packages from this directory")
	cmd.Flags().BoolP("clear", "c", false, "remove every repository package before merging")
	cmd.Flags().StringP("export", "e", "", "copy the repository to this directory")
	cmd.Flags().BoolP("watch", "w", false, "merge again whenever the --update directory changes")
	return cmd
}

func runRepo(cmd *cobra.Command, _ []string) error {
	updateDir, _ := cmd.Flags().GetString("update")
	clear, _ := cmd.Flags().GetBool("clear")
	exportDir, _ := cmd.Flags().GetString("export")
	watching, _ := cmd.Flags().GetBool("watch")

	switch {
	case updateDir == "" && exportDir == "":
		return clierrors.NewArgumentErrorWithUsage("nothing to do", cmd.UseLine(),
			"Pass --update DIR or --export DIR")
	case clear && updateDir == "":
		return clierrors.InvalidFlagCombination("--clear without --update", "--clear only applies to an update")
	case watching && updateDir == "":
		return clierrors.InvalidFlagCombination("--watch without --update", "--watch re-runs an update")
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if updateDir != "" {
		if err := a.updateFromDir(ctx, updateDir, clear); err != nil && !watching {
			return err
		}
	}
	if exportDir != "" {
		if err := a.exportRepository(exportDir); err != nil {
			return err
		}
	}
	if watching {
		return a.watchAndUpdate(ctx, updateDir, clear)
	}
	return nil
}

func (a *app) updateFromDir(ctx context.Context, dir string, clear bool) error {
	src := source.Local{Dir: dir}
	return a.mutate(ctx, "repo", src.String(), func(ctx context.Context) error {
		fetched, err := src.Fetch(ctx, "")
		if err != nil {
			return a.fail(clierrors.Wrap(err, clierrors.Argument,
				"Pass a directory holding one subdirectory per package"))
		}
		defer fetched.Cleanup()

		eng, err := a.engine()
		if err != nil {
			return err
		}
		res, err := eng.UpdateRepository(ctx, fetched.Dir, clear)
		if err := outcome(res, err); err != nil {
			return err
		}
		printUpdateReport(a, res.Update)
		return nil
	})
}

func (a *app) exportRepository(dir string) error {
	eng, err := a.engine()
	if err != nil {
		return err
	}
	res, err := eng.ExportRepository(dir)
	if err := outcome(res, err); err != nil {
		return err
	}
	output.PrintSuccess(a.out, "Exported repository to "+res.ExportedTo)
	return nil
}

func (a *app) watchAndUpdate(ctx context.Context, dir string, clear bool) error {
	w, err := watch.New(dir, 0, a.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Fprintf(a.out, "Watching %s for changes (Ctrl+C to stop)\n", dir)
	return w.Run(ctx, func(ctx context.Context) error {
		return a.updateFromDir(ctx, dir, clear)
	})
}

func printUpdateReport(a *app, report *repository.UpdateReport) {
	if report == nil {
		return
	}
	parts := []string{fmt.Sprintf("%d added", len(report.Added)), fmt.Sprintf("%d replaced", len(report.Replaced))}
	if len(report.Cleared) > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", len(report.Cleared)))
	}
	output.PrintSuccess(a.out, "Repository updated: "+strings.Join(parts, ", "))
	for _, name := range report.Added {
		a.logger.Debug("package added", "name", name)
	}
	for _, name := range report.Replaced {
		a.logger.Debug("package replaced", "name", name)
	}
}

