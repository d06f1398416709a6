package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	clierrors "github.com/bjornkeller/ModDevelopmentTools/internal/errors"
	"github.com/bjornkeller/ModDevelopmentTools/internal/output"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config NAME",
		Short: "Choose the default version of a package",
		Long: `Choose which installed version of a package is the default, the version
run and removed when no --version is given.

Without --version the installed versions are listed and the new default is
read from standard input by number.`,
		Example: `  # Choose interactively
  mdt config tool

  # Set the default directly
  mdt config tool -v 2.0`,
		GroupID: GroupPackages,
		Args:    exactArgs(1),
		RunE:    runConfig,
	}
	cmd.Flags().StringP("version", "v", "", "make this version the default")
	return cmd
}

func runConfig(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	name := args[0]
	version, _ := cmd.Flags().GetString("version")

	if version == "" {
		version, err = a.chooseVersion(name)
		if err != nil {
			return err
		}
	}

	return a.mutate(cmd.Context(), "config", pkgLabel(name, version), func(_ context.Context) error {
		eng, err := a.engine()
		if err != nil {
			return err
		}
		return outcome(eng.Configure(name, version))
	})
}

// chooseVersion prompts for one of the installed versions of name.
func (a *app) chooseVersion(name string) (string, error) {
	eng, err := a.engine()
	if err != nil {
		return "", err
	}
	choices, err := eng.Choices(name)
	if err != nil {
		return "", a.fail(err)
	}

	fmt.Fprintf(a.out, "Version config for %s:\n", name)
	for _, c := range choices {
		output.PrintChoice(a.out, c.Index, name, c.Version, c.Active)
	}
	fmt.Fprintln(a.out)
	fmt.Fprint(a.out, "Enter the number for new default version: ")

	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(a.out)
		return "", a.invalidEntry(fmt.Errorf("no selection read: %w", err))
	}
	idx, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || idx < 0 || idx >= len(choices) {
		return "", a.invalidEntry(fmt.Errorf("invalid selection %q", strings.TrimSpace(line)))
	}
	return choices[idx].Version, nil
}

func (a *app) invalidEntry(err error) error {
	fmt.Fprintln(a.out, "Invalid entry.")
	return reported(clierrors.Wrap(err, clierrors.Argument))
}

