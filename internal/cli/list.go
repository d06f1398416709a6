package cli

import (
	"fmt"
	"strings"

	"github.com/bjornkeller/ModDevelopmentTools/internal/engine"
	"github.com/bjornkeller/ModDevelopmentTools/internal/output"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed packages",
		Long: `List every installed package version. The default version of each package
is marked with *.`,
		GroupID: GroupPackages,
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			listings, err := eng.List()
			if err != nil {
				return err
			}
			if len(listings) == 0 {
				fmt.Fprintln(a.out, "No packages installed.")
				return nil
			}
			printListings(a, listings)
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Show the installed versions of a package",
		Example: `  mdt show tool
  mdt show tool -v 1.0`,
		GroupID: GroupPackages,
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			version, _ := cmd.Flags().GetString("version")
			eng, err := a.engine()
			if err != nil {
				return err
			}
			listings, err := eng.Show(args[0], version)
			if err != nil {
				return err
			}
			if len(listings) == 0 {
				return a.fail(&engine.Error{Kind: engine.KindPackageNotInstalled, Name: args[0], Version: version})
			}
			printListings(a, listings)
			return nil
		},
	}
	cmd.Flags().StringP("version", "v", "", "only show this version")
	return cmd
}

func printListings(a *app, listings []engine.Listing) {
	for _, l := range listings {
		output.PrintPackage(a.out, l.Name, l.Version, l.Active)
		a.logger.Debug("installation", "name", l.Name, "version", l.Version, "path", l.Path)
		fmt.Fprintln(a.out)
	}
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [TEXT]",
		Short: "Search the repository by package name",
		Long: `List repository packages whose name contains TEXT. Without TEXT every
package in the repository is listed.`,
		Example: `  mdt search tool
  mdt search`,
		GroupID: GroupRepository,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			var substr string
			if len(args) == 1 {
				substr = args[0]
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			pkgs, err := eng.Search(substr)
			if err != nil {
				return err
			}
			if len(pkgs) == 0 {
				fmt.Fprintln(a.out, "No matching packages.")
				return nil
			}
			for _, p := range pkgs {
				fmt.Fprintf(a.out, "Name: %s\n", p.Manifest.Name)
				fmt.Fprintf(a.out, "Default Version: %s\n", p.Manifest.DefaultVersion)
				fmt.Fprintf(a.out, "Other Versions: %s\n\n", strings.Join(p.Manifest.Versions, ", "))
			}
			return nil
		},
	}
}
