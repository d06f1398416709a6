package cli

import (
	"fmt"
	"runtime"

	"github.com/bjornkeller/ModDevelopmentTools/internal/build"
	"github.com/bjornkeller/ModDevelopmentTools/internal/output"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Display version information",
		Long:    "Display version, commit, build date, and Go version information for mdt",
		Example: `  # Show version info
  mdt version

  # Plain output (for scripts)
  mdt version --plain`,
		GroupID: GroupMaintenance,
		Args:    exactArgs(0),
		Run: func(cmd *cobra.Command, _ []string) {
			plain, _ := cmd.Flags().GetBool("plain")
			if plain {
				fmt.Fprintln(cmd.OutOrStdout(), build.Info())
				return
			}
			printPrettyVersion(cmd)
		},
	}
	cmd.Flags().Bool("plain", false, "Plain output without formatting")
	return cmd
}

func printPrettyVersion(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	yellow := color.New(color.FgYellow).SprintFunc()
	white := color.New(color.FgWhite, color.Bold).SprintFunc()

	output.PrintSection(out, "mdt - Mod Development Tools")
	info := []struct {
		label string
		value string
	}{
		{"Version", versionLabel()},
		{"Commit", truncateCommit(build.Commit)},
		{"Built", build.BuildDate},
		{"Go", runtime.Version()},
		{"Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)},
	}
	for _, item := range info {
		fmt.Fprintf(out, "  %s    %s\n", yellow(fmt.Sprintf("%10s", item.label)), white(item.value))
	}
}

func versionLabel() string {
	if build.IsDevBuild() {
		return build.Version + " (development build)"
	}
	return build.Version
}

// truncateCommit shortens commit hash if it's too long
func truncateCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
