package cli

import (
	"fmt"
	"time"

	clierrors "github.com/bjornkeller/ModDevelopmentTools/internal/errors"
	"github.com/bjornkeller/ModDevelopmentTools/internal/history"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "View the log of mutating commands",
		Long: `View a log of install, remove, config, repo and update commands run against the
installation root, with timestamp, package, exit code and duration.`,
		Example: `  mdt history
  mdt history -p tool -n 5
  mdt history --clear`,
		GroupID: GroupMaintenance,
		Args:    exactArgs(0),
		RunE:    runHistory,
	}
	cmd.Flags().StringP("package", "p", "", "filter by package name")
	cmd.Flags().IntP("limit", "n", 0, "limit to last N entries (most recent)")
	cmd.Flags().BoolP("clear", "c", false, "clear all history")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	clearFlag, _ := cmd.Flags().GetBool("clear")
	pkgFilter, _ := cmd.Flags().GetString("package")
	limit, _ := cmd.Flags().GetInt("limit")

	if limit < 0 {
		return clierrors.NewArgumentError(fmt.Sprintf("limit must be positive, got %d", limit))
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	if clearFlag {
		if err := history.ClearHistory(a.cfg.Root); err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		fmt.Fprintln(a.out, "History cleared.")
		return nil
	}

	histFile, err := history.LoadHistory(a.cfg.Root)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	entries := histFile.Select(pkgFilter, limit)
	if len(entries) == 0 {
		if pkgFilter != "" {
			fmt.Fprintf(a.out, "No matching entries for package '%s'.\n", pkgFilter)
		} else {
			fmt.Fprintln(a.out, "No history available.")
		}
		return nil
	}

	displayEntries(a, entries)
	return nil
}

var (
	historyTime = color.New(color.FgCyan).SprintFunc()
	historyOK   = color.New(color.FgGreen).SprintFunc()
	historyFail = color.New(color.FgRed).SprintFunc()
)

func displayEntries(a *app, entries []history.HistoryEntry) {
	for _, e := range entries {
		code := historyOK(e.ExitCode)
		if e.ExitCode != 0 {
			code = historyFail(e.ExitCode)
		}
		pkg := e.Package
		if pkg == "" {
			pkg = "-"
		}
		fmt.Fprintf(a.out, "%s  %-8s  %-20s  exit=%s  %s\n",
			historyTime(e.Timestamp.Format(time.DateTime)), e.Command, pkg, code, e.Duration)
	}
}
