package config

// DefaultRoot is where mdt keeps its repository and installations.
const DefaultRoot = "/opt/mdt"

// GetDefaultConfigTemplate returns a fully commented config template
// that helps users understand all available options
func GetDefaultConfigTemplate() string {
	return `# mdt configuration
# Values here are overridden by <root>/config.json, MDT_* variables and flags.

root: /opt/mdt                        # Installation root (repository/, installed-programs/)
runtime: python3                      # Interpreter for install, remove and start scripts
script_timeout: 0s                    # Limit for install/remove scripts (e.g. '5m'); 0s = no limit
update_url: ""                        # Archive downloaded by 'mdt update' without a URL
require_root: false                   # Refuse mutating commands unless run as root
verbose: true                         # Report failures as ERR: lines; false makes them fatal errors

# History settings
max_history_entries: 500              # Max command history entries to retain
`
}

// GetDefaults returns the default configuration values
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"root":                DefaultRoot,
		"runtime":             "python3",
		"script_timeout":      "0s",
		"update_url":          "",
		"require_root":        false,
		"verbose":             true,
		"max_history_entries": 500,
	}
}
