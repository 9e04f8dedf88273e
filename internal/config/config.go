// Package config provides typed configuration for QuotaFlow, loaded from an
// optional YAML config file, environment variables with the QUOTAFLOW
// prefix, and defaults set on the viper instance by the root command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig             `mapstructure:"server"`
	Store    StoreConfig              `mapstructure:"store"`
	Cache    CacheConfig              `mapstructure:"cache"`
	Logging  LoggingConfig            `mapstructure:"logging"`
	Services map[string]ServiceConfig `mapstructure:"services"`
}

// ServiceConfig describes one named upstream service.
type ServiceConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// ServerConfig contains HTTP facade configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// ThrottleRPS bounds requests into the facade itself; it is unrelated
	// to the per-service sliding-window limits.
	ThrottleRPS   float64 `mapstructure:"throttle_rps"`
	ThrottleBurst int     `mapstructure:"throttle_burst"`
}

// StoreConfig contains database configuration for libsql/Turso.
type StoreConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// CacheConfig contains in-memory response cache configuration.
type CacheConfig struct {
	MaxEntries int           `mapstructure:"max_entries"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level: debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// Load unmarshals the viper state into a typed Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the orchestrator cannot run with.
func (c *Config) Validate() error {
	for name, svc := range c.Services {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("service name must not be empty")
		}
		if strings.TrimSpace(svc.BaseURL) == "" {
			return fmt.Errorf("service %s: base_url is required", name)
		}
		if svc.MaxRequests < 0 {
			return fmt.Errorf("service %s: max_requests must not be negative", name)
		}
		if svc.Window < 0 {
			return fmt.Errorf("service %s: window must not be negative", name)
		}
	}

	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must not be negative")
	}

	return nil
}

// DefaultStorePath returns the path to the database file under the user
// cache directory, falling back to the working directory.
func DefaultStorePath() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil || strings.TrimSpace(cacheDir) == "" {
		return "./quotaflow.db"
	}
	return filepath.Join(cacheDir, "quotaflow", "quotaflow.db")
}
