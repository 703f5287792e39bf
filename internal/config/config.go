// Package config handles ntangler configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultSearchPaths returns the config file search order. An explicit
// path (from -config flag) is checked first. Then: ./ntangler.toml,
// $XDG_CONFIG_HOME/ntangler/config.toml, ~/.config/ntangler/config.toml.
func DefaultSearchPaths() []string {
	paths := []string{"ntangler.toml"}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "ntangler", "config.toml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ntangler", "config.toml"))
	}

	return paths
}

// searchPathsFunc is indirected so tests can override the search list
// without touching the real filesystem locations.
var searchPathsFunc = DefaultSearchPaths

// FindConfig locates a config file. If explicit is non-empty, it must
// exist. Otherwise, searches searchPathsFunc() and returns the first
// that exists. Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	paths := searchPathsFunc()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", paths)
}

// Config holds all ntangler configuration.
type Config struct {
	Repositories []RepositoryDescriptor `toml:"repositories"`
	LogLevel     string                 `toml:"log_level"`
	Model        string                 `toml:"model"`
	PollInterval int                    `toml:"poll_interval_seconds"`
}

// RepositoryDescriptor names one git working copy to watch. Immutable
// after load and shared by value with the matching repo worker.
type RepositoryDescriptor struct {
	Nickname string `toml:"nickname"`
	Path     string `toml:"path"`
	Branch   string `toml:"branch_name"`
}

// Load reads configuration from a TOML file, expands environment
// variables, applies defaults for any unset fields, and validates the
// result. After Load returns successfully, all fields are usable
// without additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g. ${HOME}) — a convenience for
	// container deployments where repository paths vary by host.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := toml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
// Called automatically by Load.
func (c *Config) applyDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = 10
	}
	if c.Model == "" {
		c.Model = "claude-sonnet-4-20250514"
	}
	for i := range c.Repositories {
		c.Repositories[i].Nickname = strings.TrimSpace(c.Repositories[i].Nickname)
	}
}

// Validate checks that the configuration is internally consistent. It
// runs after applyDefaults, so it can assume defaults are populated.
func (c *Config) Validate() error {
	if len(c.Repositories) == 0 {
		return fmt.Errorf("no repositories configured")
	}
	seen := make(map[string]bool, len(c.Repositories))
	for _, r := range c.Repositories {
		if r.Nickname == "" {
			return fmt.Errorf("repository with empty nickname (path %q)", r.Path)
		}
		if seen[r.Nickname] {
			return fmt.Errorf("duplicate repository nickname %q", r.Nickname)
		}
		seen[r.Nickname] = true
		if r.Path == "" {
			return fmt.Errorf("repository %q: empty path", r.Nickname)
		}
	}
	if c.PollInterval < 1 {
		return fmt.Errorf("poll_interval_seconds %d must be positive", c.PollInterval)
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}
