// Package config loads service configuration from an optional YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MemoryBackend is the db value that selects the in-process backend.
const MemoryBackend = ":memory:"

// Config holds all recognized options.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`
	// BaseURL is the canonical base URL used in share links (optional).
	BaseURL string `yaml:"base_url"`
	// BehindProxy trusts proxy headers for client IP and scheme.
	BehindProxy bool `yaml:"behind_proxy"`

	// DB selects the backend: empty or ":memory:" for the in-process map,
	// a postgres:// URL for PostgreSQL, anything else is a file path.
	DB string `yaml:"db"`

	// MaxLength is the maximum accepted text size in bytes.
	MaxLength int `yaml:"maxlength"`
	// DaySpan is the retention horizon in days.
	DaySpan int `yaml:"dayspan"`

	// AuthKey guards the delete endpoint. Empty disables the guard.
	AuthKey string `yaml:"authkey"`

	// SweepInterval is how often the expiry sweeper runs.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	RateLimit RateLimit `yaml:"rate_limit"`
}

// RateLimit configures the per-client token bucket.
type RateLimit struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:          ":8080",
		DB:            "./pastrami.db",
		MaxLength:     10000,
		DaySpan:       90,
		SweepInterval: time.Minute,
		RateLimit: RateLimit{
			PerSecond: 5,
			Burst:     10,
		},
	}
}

// Load merges defaults, the YAML file at path (if it exists), and
// environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("PASTRAMI_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("PASTRAMI_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("PASTRAMI_BEHIND_PROXY"); v != "" {
		c.BehindProxy = v == "true" || v == "1"
	}
	if v := os.Getenv("PASTRAMI_DB"); v != "" {
		c.DB = v
	}
	if v := os.Getenv("PASTRAMI_MAXLENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxLength = n
		}
	}
	if v := os.Getenv("PASTRAMI_DAYSPAN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DaySpan = n
		}
	}
	if v := os.Getenv("PASTRAMI_AUTHKEY"); v != "" {
		c.AuthKey = v
	}
	if v := os.Getenv("PASTRAMI_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SweepInterval = d
		}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.MaxLength <= 0 {
		return fmt.Errorf("maxlength must be positive, got %d", c.MaxLength)
	}
	if c.DaySpan <= 0 {
		return fmt.Errorf("dayspan must be positive, got %d", c.DaySpan)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive, got %s", c.SweepInterval)
	}
	if c.RateLimit.PerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit values must be positive")
	}
	return nil
}

// MemoryDB reports whether the db option selects the in-process backend.
func (c *Config) MemoryDB() bool {
	return c.DB == "" || c.DB == MemoryBackend
}

// PostgresDB reports whether the db option is a PostgreSQL URL.
func (c *Config) PostgresDB() bool {
	return strings.HasPrefix(c.DB, "postgres://") || strings.HasPrefix(c.DB, "postgresql://")
}
