package config

import (
	"os"
	"path/filepath"
)

// RootConfigFile holds settings stored inside an installation root.
const RootConfigFile = "config.json"

// UserConfigPath is config.yml under UserConfigDir, e.g.
// $XDG_CONFIG_HOME/mdt/config.yml on Linux.
func UserConfigPath() (string, error) {
	configDir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yml"), nil
}

// UserConfigDir is the mdt directory under os.UserConfigDir.
func UserConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "mdt"), nil
}

// RootConfigPath returns the config.json inside an installation root.
func RootConfigPath(root string) string {
	return filepath.Join(root, RootConfigFile)
}
