package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/pockettune/radiosync/internal/engine"
	"github.com/pockettune/radiosync/internal/kvstore"
	"github.com/pockettune/radiosync/internal/netmon"
)

// Config represents the application configuration
type Config struct {
	Storage kvstore.Config `toml:"storage"`
	Remote  RemoteConfig   `toml:"remote"`
	Sync    engine.Config  `toml:"sync"`
	Probe   netmon.Config  `toml:"probe"`
	HTTP    HTTPConfig     `toml:"http"`
	Logging LoggingConfig  `toml:"logging"`
}

// RemoteConfig holds remote document store settings
type RemoteConfig struct {
	BaseURL   string        `toml:"base_url"`
	Timeout   time.Duration `toml:"timeout"`
	UserAgent string        `toml:"user_agent"`
}

// HTTPConfig holds local HTTP API server settings
type HTTPConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: kvstore.Config{
			Driver:          "sqlite3",
			DSN:             "radiosync.db",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Remote: RemoteConfig{
			Timeout:   10 * time.Second,
			UserAgent: "radiosync/0.1",
		},
		Sync:  engine.DefaultConfig(),
		Probe: netmon.DefaultConfig(),
		HTTP: HTTPConfig{
			Enabled: true,
			Address: "127.0.0.1",
			Port:    8090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a TOML file
func LoadFromFile(path string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// LoadConfig loads configuration with the following precedence:
// 1. Default values
// 2. Config file (if specified)
// 3. Command-line flags (handled by caller)
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}
	return LoadFromFile(configPath)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Storage validation
	if c.Storage.Driver == "" {
		return fmt.Errorf("storage driver must be specified")
	}
	if c.Storage.Driver != "sqlite3" {
		return fmt.Errorf("unsupported storage driver: %s (must be sqlite3)", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("storage DSN must be specified")
	}

	// Remote validation
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote base_url must be specified")
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote timeout must be positive")
	}

	// Sync validation
	if c.Sync.MaxAttempts <= 0 {
		return fmt.Errorf("sync max_attempts must be positive")
	}
	if c.Sync.BaseDelay <= 0 {
		return fmt.Errorf("sync base_delay must be positive")
	}

	// Probe validation
	if c.Probe.Interval <= 0 {
		return fmt.Errorf("probe interval must be positive")
	}
	if c.Probe.DialTimeout <= 0 {
		return fmt.Errorf("probe dial_timeout must be positive")
	}

	// HTTP validation
	if c.HTTP.Enabled {
		if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
			return fmt.Errorf("HTTP port must be between 1 and 65535")
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}
