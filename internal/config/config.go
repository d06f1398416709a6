// Package config loads mdt settings with layered priority:
// defaults < user config.yml < <root>/config.json < MDT_* environment < flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. MDT_RUNTIME.
const EnvPrefix = "MDT_"

// Configuration is the effective mdt configuration.
type Configuration struct {
	// Root is the installation root holding repository/ and installed-programs/.
	Root string `koanf:"root"`

	// Runtime is the interpreter scripts are run with.
	Runtime string `koanf:"runtime"`

	// ScriptTimeout bounds install and remove scripts. Zero means no limit.
	ScriptTimeout time.Duration `koanf:"script_timeout"`

	// UpdateURL is the archive 'mdt update' downloads when no URL is given.
	UpdateURL string `koanf:"update_url"`

	// RequireRoot makes mutating commands refuse to run as a non-root user.
	RequireRoot bool `koanf:"require_root"`

	Verbose           bool `koanf:"verbose"`
	MaxHistoryEntries int  `koanf:"max_history_entries"`
}

// LoadOptions tweaks where Load looks for configuration.
type LoadOptions struct {
	// UserConfigPath overrides the user config location. Empty uses UserConfigPath().
	UserConfigPath string

	// RootOverride takes precedence over every other source for the root,
	// so that --root selects which <root>/config.json is read.
	RootOverride string

	// SkipRootConfig ignores <root>/config.json.
	SkipRootConfig bool
}

// Load loads configuration from the default locations.
func Load() (*Configuration, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions loads configuration, applying each layer over the previous one.
func LoadWithOptions(opts LoadOptions) (*Configuration, error) {
	k := koanf.New(".")

	loadDefaults(k)

	if err := loadUserConfig(k, opts.UserConfigPath); err != nil {
		return nil, err
	}

	root := resolveRoot(k, opts.RootOverride)
	if !opts.SkipRootConfig {
		if err := loadRootConfig(k, RootConfigPath(root)); err != nil {
			return nil, err
		}
	}

	if err := loadEnvironmentConfig(k); err != nil {
		return nil, err
	}
	if opts.RootOverride != "" {
		k.Set("root", opts.RootOverride)
	}

	return finalizeConfig(k)
}

func loadDefaults(k *koanf.Koanf) {
	for key, value := range GetDefaults() {
		k.Set(key, value)
	}
}

func loadUserConfig(k *koanf.Koanf, path string) error {
	if path == "" {
		path, _ = UserConfigPath()
	}
	if !fileExists(path) {
		return nil
	}
	if err := loadYAMLConfig(k, path, "user"); err != nil {
		return fmt.Errorf("loading user config: %w", err)
	}
	return nil
}

func loadYAMLConfig(k *koanf.Koanf, path, configType string) error {
	if err := ValidateYAMLSyntax(path); err != nil {
		return fmt.Errorf("validating YAML syntax for %s config: %w", configType, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load %s config %s: %w", configType, path, err)
	}
	return nil
}

// resolveRoot picks the root before the root config is read. The environment
// is consulted directly since its layer has not been loaded yet.
func resolveRoot(k *koanf.Koanf, override string) string {
	if override != "" {
		return override
	}
	if v := os.Getenv(EnvPrefix + "ROOT"); v != "" {
		return v
	}
	return expandHomePath(k.String("root"))
}

// legacyKeys maps the older config.json key names onto current keys.
var legacyKeys = map[string]string{
	"url":  "update_url",
	"root": "require_root",
}

// loadRootConfig merges <root>/config.json. The file may use the legacy
// keys "url" and "root" (a bool meaning "require root") or current keys.
// It cannot relocate the root it lives in.
func loadRootConfig(k *koanf.Koanf, path string) error {
	if !fileExists(path) {
		return nil
	}

	rk := koanf.New(".")
	if err := rk.Load(file.Provider(path), json.Parser()); err != nil {
		return fmt.Errorf("failed to load root config %s: %w", path, err)
	}

	defaults := GetDefaults()
	for key, value := range rk.All() {
		if key == "root" {
			if _, isBool := value.(bool); !isBool {
				continue
			}
		}
		if mapped, ok := legacyKeys[key]; ok {
			key = mapped
		}
		if _, known := defaults[key]; !known {
			continue
		}
		k.Set(key, value)
	}
	return nil
}

// loadEnvironmentConfig loads environment variable overrides
func loadEnvironmentConfig(k *koanf.Koanf) error {
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return fmt.Errorf("failed to load environment config: %w", err)
	}
	return nil
}

// finalizeConfig unmarshals, validates, and applies final transformations
func finalizeConfig(k *koanf.Koanf) (*Configuration, error) {
	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateConfigValues(&cfg, "config"); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.Root = expandHomePath(cfg.Root)
	if abs, err := filepath.Abs(cfg.Root); err == nil {
		cfg.Root = abs
	}
	return &cfg, nil
}

// fileExists returns true if the file exists and is readable
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// envTransform converts environment variable names to config keys
// Example: MDT_SCRIPT_TIMEOUT -> script_timeout
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// expandHomePath expands ~ to the user's home directory
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
