package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bjornkeller/ModDevelopmentTools/internal/engine"
	clierrors "github.com/bjornkeller/ModDevelopmentTools/internal/errors"
	"github.com/bjornkeller/ModDevelopmentTools/internal/progress"
	"github.com/bjornkeller/ModDevelopmentTools/internal/source"
	"github.com/spf13/cobra"
)

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [URL]",
		Short: "Download the repository and merge it",
		Long: `Download a repository archive and merge its packages into the repository.

The archive is a zip file. If it contains a repository/ directory the packages
are read from there, otherwise from its top level. Without URL the configured
update_url is used.

--git clones a git repository instead; --ref selects a branch or tag.

Downloads are staged under <root>/.tmp and removed afterwards.`,
		Example: `  # Use the configured update URL
  mdt update

  # Download a specific archive and replace the repository with it
  mdt update https://example.com/repository.zip --clear

  # Clone a tag of a git repository
  mdt update --git https://example.com/packages.git --ref v2`,
		GroupID: GroupRepository,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runUpdate,
	}
	cmd.Flags().BoolP("clear", "c", false, "remove every repository package before merging")
	cmd.Flags().String("git", "", "clone this git repository instead of downloading an archive")
	cmd.Flags().String("ref", "", "branch or tag to clone (requires --git)")
	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	clear, _ := cmd.Flags().GetBool("clear")
	gitURL, _ := cmd.Flags().GetString("git")
	ref, _ := cmd.Flags().GetString("ref")

	var url string
	if len(args) == 1 {
		url = args[0]
	}
	switch {
	case url != "" && gitURL != "":
		return clierrors.InvalidFlagCombination("URL with --git", "pass either an archive URL or --git, not both")
	case ref != "" && gitURL == "":
		return clierrors.InvalidFlagCombination("--ref without --git", "--ref selects a branch or tag of a git repository")
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	if url == "" && gitURL == "" {
		url = a.cfg.UpdateURL
		if url == "" {
			return clierrors.MissingUpdateURL()
		}
	}

	display := progress.NewDisplay(a.out, progress.Detect(a.out))
	var src source.Source
	if gitURL != "" {
		g := source.Git{URL: gitURL, Ref: ref, OnStage: display.Stage}
		if a.debug {
			g.Progress = a.errOut
		}
		src = g
	} else {
		src = source.Archive{URL: url, OnStage: display.Stage}
	}

	return a.mutate(cmd.Context(), "update", src.String(), func(ctx context.Context) error {
		return a.update(ctx, display, src, clear)
	})
}

func (a *app) update(ctx context.Context, display *progress.Display, src source.Source, clear bool) error {
	tmp := filepath.Join(a.cfg.Root, engine.TempDir)
	defer os.Remove(tmp) // only succeeds when empty

	fetched, err := src.Fetch(ctx, tmp)
	if err != nil {
		display.Fail()
		return a.fail(err)
	}
	defer fetched.Cleanup()
	if fetched.Revision != "" {
		a.logger.Debug("fetched", "source", src.String(), "revision", fetched.Revision)
	}

	eng, err := a.engine()
	if err != nil {
		return err
	}
	display.Stage("Installing update...")
	res, err := eng.UpdateRepository(ctx, fetched.Dir, clear)
	if err := outcome(res, err); err != nil {
		display.Fail()
		return err
	}

	display.Stage("Cleaning up...")
	if err := fetched.Cleanup(); err != nil {
		a.logger.Warn("cannot remove downloaded files", "dir", tmp, "err", err)
	}
	display.Done()
	fmt.Fprintln(a.out, "Done!")
	printUpdateReport(a, res.Update)
	return nil
}
