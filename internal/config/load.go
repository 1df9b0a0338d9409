package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load builds the obbtool configuration. Keys present in the YAML file
// replace Default values, set command-line overrides replace both, and the
// result must pass Validate. With an empty path the file is looked up via
// searchPaths and running without any config file is allowed; an explicit
// path that cannot be read is an error.
func Load(path string, overrides Overrides) (*Config, error) {
	cfg := Default()

	configPath := path
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	overrides.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// searchPaths lists where obbtool looks for its config when --config is not
// given: obb.yaml in the working directory, then the per-user file that
// Config.Save writes.
func searchPaths() []string {
	return []string{
		"obb.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}
}

// findConfigFile returns the first searchPaths entry that exists, or "".
func findConfigFile() string {
	for _, path := range searchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir is the per-user obbtool directory: MidgardOBB under Application
// Support on macOS and under %APPDATA% on Windows, midgard-obb under
// $XDG_CONFIG_HOME (or ~/.config) elsewhere.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "MidgardOBB")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "MidgardOBB")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "midgard-obb")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "midgard-obb")
	}
}

// loadFromFile decodes path into cfg. Sections and keys missing from the
// file keep whatever cfg already holds.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
