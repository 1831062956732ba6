// Package config provides configuration file support for evidentry.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the repository metadata directory.
const DirName = ".evidentry"

// Config represents the evidentry configuration.
type Config struct {
	Provider  ProviderConfig  `yaml:"provider"`
	Freshness FreshnessConfig `yaml:"freshness"`
	Packaging PackagingConfig `yaml:"packaging"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ProviderConfig configures the analysis provider client.
type ProviderConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKeyEnv     string `yaml:"api_key_env"`
	Timeout       string `yaml:"timeout"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// FreshnessConfig configures the freshness check service.
type FreshnessConfig struct {
	Cadence           string `yaml:"cadence"`
	WarningWindowDays int    `yaml:"warning_window_days"`
	DedupeWindow      string `yaml:"dedupe_window"`
	Watch             bool   `yaml:"watch"`
}

// PackagingConfig configures audit package generation.
type PackagingConfig struct {
	PolicyGlobs    []string `yaml:"policy_globs"`
	Timeout        string   `yaml:"timeout"`
	MaxHashWorkers int      `yaml:"max_hash_workers"`
}

// HookConfig is a single webhook notification target.
type HookConfig struct {
	URL     string   `yaml:"url"`
	Secret  string   `yaml:"secret,omitempty"`
	Events  []string `yaml:"events"`
	Enabled bool     `yaml:"enabled"`
}

// NotifierConfig configures the external notification collaborator.
type NotifierConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Hooks      []HookConfig `yaml:"hooks"`
	MaxRetries int          `yaml:"max_retries"`
	RetryDelay string       `yaml:"retry_delay"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Endpoint:      "http://localhost:8085/v1/analyze",
			APIKeyEnv:     "EVIDENTRY_PROVIDER_KEY",
			Timeout:       "30s",
			MaxConcurrent: 4,
		},
		Freshness: FreshnessConfig{
			Cadence:           "24h",
			WarningWindowDays: 30,
			DedupeWindow:      "24h",
		},
		Packaging: PackagingConfig{
			PolicyGlobs:    []string{"policies/**/*.md", "policies/**/*.pdf"},
			Timeout:        "10m",
			MaxHashWorkers: 4,
		},
		Notifier: NotifierConfig{
			Enabled:    false,
			MaxRetries: 3,
			RetryDelay: "5s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from .evidentry/config.yaml.
// Returns default config if file doesn't exist.
func Load(root string) (*Config, error) {
	cfg := Default()
	cfgPath := filepath.Join(root, DirName, "config.yaml")

	data, err := os.ReadFile(cfgPath)
	if os.IsNotExist(err) {
		return cfg, nil // No config file is OK, use defaults
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes configuration to .evidentry/config.yaml.
func Save(root string, cfg *Config) error {
	cfgPath := filepath.Join(root, DirName, "config.yaml")
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ProviderTimeout parses the provider timeout, defaulting to 30s.
func (c *Config) ProviderTimeout() time.Duration {
	return parseDuration(c.Provider.Timeout, 30*time.Second)
}

// FreshnessCadence parses the check cadence, defaulting to 24h.
func (c *Config) FreshnessCadence() time.Duration {
	return parseDuration(c.Freshness.Cadence, 24*time.Hour)
}

// NotifyDedupeWindow parses the notification dedupe window, defaulting to 24h.
func (c *Config) NotifyDedupeWindow() time.Duration {
	return parseDuration(c.Freshness.DedupeWindow, 24*time.Hour)
}

// PackagingTimeout parses the package generation ceiling, defaulting to 10m.
func (c *Config) PackagingTimeout() time.Duration {
	return parseDuration(c.Packaging.Timeout, 10*time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
