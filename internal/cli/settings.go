package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bjornkeller/ModDevelopmentTools/internal/config"
	"github.com/bjornkeller/ModDevelopmentTools/internal/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and initialize mdt's own configuration",
		Long: `Inspect and initialize mdt's configuration.

Settings are read from built-in defaults, the user config file, the installation
root's config.json and MDT_* environment variables, in increasing precedence.`,
		GroupID: GroupMaintenance,
	}
	cmd.AddCommand(
		newSettingsShowCmd(),
		newSettingsTemplateCmd(),
		newSettingsPathCmd(),
		newSettingsInitCmd(),
	)
	return cmd
}

// settingsView is the effective configuration as printed by 'settings show'.
type settingsView struct {
	Root              string `yaml:"root"`
	Runtime           string `yaml:"runtime"`
	ScriptTimeout     string `yaml:"script_timeout"`
	UpdateURL         string `yaml:"update_url"`
	RequireRoot       bool   `yaml:"require_root"`
	Verbose           bool   `yaml:"verbose"`
	MaxHistoryEntries int    `yaml:"max_history_entries"`
}

func newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(settingsView{
				Root:              a.cfg.Root,
				Runtime:           a.cfg.Runtime,
				ScriptTimeout:     a.cfg.ScriptTimeout.String(),
				UpdateURL:         a.cfg.UpdateURL,
				RequireRoot:       a.cfg.RequireRoot,
				Verbose:           a.cfg.Verbose,
				MaxHistoryEntries: a.cfg.MaxHistoryEntries,
			})
			if err != nil {
				return fmt.Errorf("encoding configuration: %w", err)
			}
			_, err = a.out.Write(data)
			return err
		},
	}
}

func newSettingsTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template",
		Short: "Print a commented user config file",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(cmd.OutOrStdout(), config.GetDefaultConfigTemplate())
			return nil
		},
	}
}

func newSettingsPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file locations",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			userPath, err := userConfigPath(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "user: %s\n", userPath)
			fmt.Fprintf(a.out, "root: %s\n", config.RootConfigPath(a.cfg.Root))
			return nil
		},
	}
}

func newSettingsInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the config template to the user config file",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			force, _ := cmd.Flags().GetBool("force")
			path, err := userConfigPath(cmd)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				output.PrintWarning(cmd.OutOrStdout(), path+" already exists (use --force to overwrite)")
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
			if err := os.WriteFile(path, []byte(config.GetDefaultConfigTemplate()), 0o644); err != nil {
				return fmt.Errorf("writing config file: %w", err)
			}
			output.PrintSuccess(cmd.OutOrStdout(), "Wrote "+path)
			return nil
		},
	}
	cmd.Flags().BoolP("force", "f", false, "overwrite an existing file")
	return cmd
}

// userConfigPath is the --config flag or the default user config location.
func userConfigPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	return config.UserConfigPath()
}
