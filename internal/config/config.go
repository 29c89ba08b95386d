// Package config resolves nlmflow's runtime settings from defaults and
// NLMFLOW_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Home is the state directory (~/.nlmflow).
	Home string
	// LibraryPath is the notebook cache file.
	LibraryPath string
	// OutputsDir receives downloaded artifacts.
	OutputsDir string
	// VaultDir receives pipeline notes. Empty disables notes unless a
	// pipeline names a sink explicitly.
	VaultDir string

	// Language is the default output language for types that accept one.
	Language string
	// StudioTimeout bounds how long a generation task is polled.
	StudioTimeout time.Duration
	// PollInterval is the fixed delay between polls.
	PollInterval time.Duration
	// SyncStaleness is the age past which the cache is re-synced.
	SyncStaleness time.Duration

	AuthToken      string
	Cookies        string
	BrowserProfile string
}

// Defaults for settings with no environment override.
const (
	DefaultLanguage      = "en"
	DefaultStudioTimeout = 300 * time.Second
	DefaultPollInterval  = 5 * time.Second
	DefaultSyncStaleness = 24 * time.Hour
)

// DefaultConfig returns the default configuration rooted at home.
func DefaultConfig(home string) *Config {
	return &Config{
		Home:          home,
		LibraryPath:   filepath.Join(home, "library.json"),
		OutputsDir:    filepath.Join(home, "outputs"),
		Language:      DefaultLanguage,
		StudioTimeout: DefaultStudioTimeout,
		PollInterval:  DefaultPollInterval,
		SyncStaleness: DefaultSyncStaleness,
	}
}

// DefaultHome returns ~/.nlmflow.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nlmflow"
	}
	return filepath.Join(home, ".nlmflow")
}

// Load builds the configuration from getenv, usually os.Getenv.
func Load(getenv func(string) string) (*Config, error) {
	home := getenv("NLMFLOW_HOME")
	if home == "" {
		home = DefaultHome()
	}
	cfg := DefaultConfig(home)
	if v := getenv("NLMFLOW_LANGUAGE"); v != "" {
		cfg.Language = strings.TrimSpace(v)
	}
	if v := getenv("NLMFLOW_VAULT"); v != "" {
		cfg.VaultDir = v
	}
	cfg.AuthToken = getenv("NLMFLOW_AUTH_TOKEN")
	cfg.Cookies = getenv("NLMFLOW_COOKIES")
	cfg.BrowserProfile = getenv("NLMFLOW_BROWSER_PROFILE")

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"NLMFLOW_TIMEOUT", &cfg.StudioTimeout},
		{"NLMFLOW_POLL_INTERVAL", &cfg.PollInterval},
	} {
		v := getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the timing settings.
func (c *Config) Validate() error {
	if c.StudioTimeout <= 0 {
		return fmt.Errorf("studio timeout must be positive, got %v", c.StudioTimeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	return nil
}

// ParseDuration accepts a Go duration ("90s", "5m") or a bare number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// EnvFile is the stored credentials file.
func (c *Config) EnvFile() string {
	return filepath.Join(c.Home, "env")
}
