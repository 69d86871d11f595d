package config

import (
	"os"
	"path/filepath"
)

// appDirName is the per-user directory name for config and state.
const appDirName = "bulktube"

// DefaultConfigPath returns the platform config file location,
// e.g. ~/.config/bulktube/config.toml on Linux.
func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return filepath.Join(".", appDirName, "config.toml")
		}

		base = filepath.Join(home, ".config")
	}

	return filepath.Join(base, appDirName, "config.toml")
}

// DefaultStateDir returns the directory for the history database, tokens,
// and the active-profile marker.
func DefaultStateDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return filepath.Join(".", appDirName)
		}

		base = filepath.Join(home, ".config")
	}

	return filepath.Join(base, appDirName)
}

// ResolvedStateDir returns the configured state directory, falling back to
// the platform default.
func (c *Config) ResolvedStateDir() string {
	if c.StateDir != "" {
		return expandHome(c.StateDir)
	}

	return DefaultStateDir()
}

// HistoryDBPath returns the configured history database path, defaulting to
// upload_history.db inside the state directory.
func (c *Config) HistoryDBPath() string {
	if c.HistoryDB != "" {
		return expandHome(c.HistoryDB)
	}

	return filepath.Join(c.ResolvedStateDir(), "upload_history.db")
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return home
	}

	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(home, path[2:])
	}

	return path
}
