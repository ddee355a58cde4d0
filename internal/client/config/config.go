// Package config provides the YAML-backed client configuration with
// first-run creation and strict file permissions.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level client configuration.
type Config struct {
	// ServerURL is the base URL of the calendar API.
	ServerURL string `yaml:"server_url"`

	// Token is the bearer credential stored after login.
	Token string `yaml:"token,omitempty"`

	// DatabasePath locates the local SQLite mirror.
	DatabasePath string `yaml:"database_path"`

	// RequestTimeout bounds every network call.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// PollInterval controls how often connectivity is probed while offline.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:      "http://127.0.0.1:8080",
		DatabasePath:   defaultDatabasePath(),
		RequestTimeout: 10 * time.Second,
		PollInterval:   15 * time.Second,
	}
}

// Normalize fills in missing or zero values so partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.ServerURL == "" {
		c.ServerURL = "http://127.0.0.1:8080"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = defaultDatabasePath()
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 15 * time.Second
	}
}

// Load reads the configuration from the given YAML path. A missing file is
// treated as a first run: a default config is written with 0600 permissions
// and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically via a temp file and rename,
// ensuring the final file is 0600 since it carries the session token.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".flowfly-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// DefaultPath returns the conventional config location under the user's
// config directory.
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "flowfly.yaml"
	}
	return filepath.Join(base, "flowfly", "config.yaml")
}

func defaultDatabasePath() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "flowfly-mirror.db"
	}
	return filepath.Join(base, "flowfly", "mirror.db")
}
