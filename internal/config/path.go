package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ProjectConfigName is the per-project config file looked up in the project root.
const ProjectConfigName = "wiggum.yaml"

var (
	getEnv      = os.Getenv
	userHomeDir = os.UserHomeDir
)

// GlobalConfigPath returns the user-wide config file:
// $XDG_CONFIG_HOME/wiggum/config.yaml, or ~/.config/wiggum/config.yaml.
func GlobalConfigPath() (string, error) {
	if xdgHome := getEnv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "wiggum", "config.yaml"), nil
	}

	homeDir, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}

	return filepath.Join(homeDir, ".config", "wiggum", "config.yaml"), nil
}

// ConfigCandidates lists the config files consulted for a project, highest
// priority first: wiggum.yaml in the project root, then the global file.
// An unresolvable home directory drops the global entry.
func ConfigCandidates(projectDir string) []string {
	candidates := []string{filepath.Join(projectDir, ProjectConfigName)}
	if global, err := GlobalConfigPath(); err == nil {
		candidates = append(candidates, global)
	}
	return candidates
}

// ResolveConfigFile returns the first existing candidate, or "" when the
// project has no config file and defaults apply.
func ResolveConfigFile(projectDir string) string {
	for _, path := range ConfigCandidates(projectDir) {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
