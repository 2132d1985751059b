package config

import (
	"os"
	"path/filepath"
)

// AppName is used for directory and file names.
const AppName = "hookrelay"

// ConfigDir returns the configuration directory following XDG Base Directory specification
func ConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return xdgConfig
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config")
	}
	return "."
}

// HookSearchPaths lists hook files in order of precedence, lowest first.
// extra files are appended with the highest precedence.
func HookSearchPaths(projectRoot string, extra ...string) []string {
	configDir := ConfigDir()
	paths := []string{
		filepath.Join(configDir, AppName, "hooks.json"),
		filepath.Join(configDir, AppName, "hooks.yml"),
		filepath.Join(projectRoot, "."+AppName, "hooks.json"),
		filepath.Join(projectRoot, "."+AppName, "hooks.yml"),
	}
	return append(paths, extra...)
}

// ProjectCommandDirs lists project-scoped slash command directories, highest priority first
func ProjectCommandDirs(projectRoot string) []string {
	return []string{
		filepath.Join(projectRoot, "."+AppName, "commands"),
		filepath.Join(projectRoot, ".claude", "commands"),
	}
}

// UserCommandDirs lists user-scoped slash command directories, highest priority first
func UserCommandDirs(extra ...string) []string {
	dirs := []string{filepath.Join(ConfigDir(), AppName, "commands")}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".claude", "commands"))
	}
	return append(dirs, extra...)
}
