// Package config provides configuration management for the FairLens CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultServerURL is the production backend, used when nothing else is
// configured.
const DefaultServerURL = "https://api.fairlens.io"

// EnvServerURL overrides the backend base URL when set.
const EnvServerURL = "FAIRLENS_API_URL"

// DefaultConfigDir returns the default config directory (~/.fairlens).
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".fairlens"), nil
}

// DefaultConfigPath returns the default config file path (~/.fairlens/config.yml).
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yml"), nil
}

// WatchConfig configures the watch daemon.
type WatchConfig struct {
	Schedule      string  `yaml:"schedule,omitempty"`
	BiasThreshold float64 `yaml:"bias_threshold,omitempty"`
	MinCompliance float64 `yaml:"min_compliance,omitempty"`
	WebhookURL    string  `yaml:"webhook_url,omitempty"`
	WebhookSecret string  `yaml:"webhook_secret,omitempty"`
	MetricsAddr   string  `yaml:"metrics_addr,omitempty"`
}

// CacheConfig configures the shared response cache. With an empty RedisAddr
// the in-memory cache is used.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled,omitempty"`
	RedisAddr  string `yaml:"redis_addr,omitempty"`
	TTLSeconds int    `yaml:"ttl_seconds,omitempty"`
}

// Config holds the CLI configuration, including the persisted session tokens.
type Config struct {
	ServerURL    string `yaml:"server_url,omitempty"`
	AccessToken  string `yaml:"access_token,omitempty"`
	RefreshToken string `yaml:"refresh_token,omitempty"`
	Organization string `yaml:"organization,omitempty"`
	Offline      bool   `yaml:"offline,omitempty"`
	SOCKS5Proxy  string `yaml:"socks5_proxy,omitempty"`

	Watch WatchConfig `yaml:"watch,omitempty"`
	Cache CacheConfig `yaml:"cache,omitempty"`
}

// ResolveServerURL picks the backend base URL: explicit flag, then the
// environment variable, then the config file, then the production default.
func (c *Config) ResolveServerURL(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvServerURL); env != "" {
		return env
	}
	if c.ServerURL != "" {
		return c.ServerURL
	}
	return DefaultServerURL
}

// Validate checks that the configuration can be used for authenticated calls.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}
	if c.AccessToken == "" {
		return errors.New("not logged in (access token missing)")
	}
	return nil
}

// IsLoggedIn reports whether a session token is stored.
func (c *Config) IsLoggedIn() bool {
	return c.AccessToken != ""
}

// ClearSession drops the stored tokens. Used on logout.
func (c *Config) ClearSession() {
	c.AccessToken = ""
	c.RefreshToken = ""
}

// Load reads the configuration from the given path.
// If the file does not exist, an empty config is returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads the configuration from the default path.
func LoadDefault() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Save writes the configuration to the given path, creating directories as
// needed. The file holds session tokens, so permissions are user-only.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// SaveDefault saves the configuration to the default path.
func (c *Config) SaveDefault() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.Save(path)
}
