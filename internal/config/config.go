// Package config loads the mops.yaml configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mops/internal/record"
)

// DefaultPath is the config file looked for when --config is not given.
const DefaultPath = "mops.yaml"

// DefaultCollections are the console's entity collections.
var DefaultCollections = []string{
	"users", "services", "keywords", "backlinks", "asset_types", "assets", "qc_runs",
}

// Config is the on-disk configuration.
type Config struct {
	// Database is the local cache file.
	Database string `yaml:"database"`

	Remote RemoteConfig `yaml:"remote"`

	// Schema is an optional CUE file replacing the embedded entity schemas.
	Schema string `yaml:"schema,omitempty"`

	// Collections are the keys `mops status` probes.
	Collections []string `yaml:"collections"`

	Log LogConfig `yaml:"log"`
}

// RemoteConfig describes the Remote Service. An empty BaseURL means no
// remote: every collection is served from the local cache.
type RemoteConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests/second, 0 = unlimited
	Burst     int           `yaml:"burst"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database: "mops.db",
		Remote: RemoteConfig{
			Timeout: 30 * time.Second,
			Burst:   1,
		},
		Collections: append([]string(nil), DefaultCollections...),
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. Unknown fields are rejected.
// Relative database and schema paths resolve against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	cfg.Database = resolve(base, cfg.Database)
	cfg.Schema = resolve(base, cfg.Schema)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional loads path if it exists and returns Default otherwise.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("remote.timeout must not be negative")
	}
	if c.Remote.RateLimit < 0 {
		return fmt.Errorf("remote.rate_limit must not be negative")
	}
	for i, key := range c.Collections {
		if _, err := record.ValidateKey(key); err != nil {
			return fmt.Errorf("collections[%d]: %w", i, err)
		}
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
