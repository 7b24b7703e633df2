// Package config holds columndb's runtime tunables: a defaults
// struct, a best-effort file/env loader, and a listen-address helper.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ServerConfig controls the Flight RPC listener (internal/flightsrv).
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LogConfig controls the verbosity of the stdlib-log ambient logging.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Config is the full set of tunables cmd/columndb accepts, either from
// a JSON file or from its defaults.
type Config struct {
	Server ServerConfig `json:"server"`
	Log    LogConfig    `json:"log"`
}

// DefaultConfig returns the configuration used when no file or
// environment override applies.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 32010,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads configPath and merges it over DefaultConfig. An
// empty path returns the defaults unchanged.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfigOrDefault tries the COLUMNDB_CONFIG environment variable,
// then a handful of common locations, falling back to DefaultConfig
// when none of them yield a valid file.
func LoadConfigOrDefault() *Config {
	if envPath := os.Getenv("COLUMNDB_CONFIG"); envPath != "" {
		if cfg, err := LoadConfig(envPath); err == nil {
			return cfg
		}
	}

	possiblePaths := []string{
		"config.json",
		"./config/config.json",
		"/etc/columndb/config.json",
	}
	for _, path := range possiblePaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if cfg, err := LoadConfig(absPath); err == nil {
			return cfg
		}
	}

	return DefaultConfig()
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	return nil
}

// GetListenAddress returns the host:port the Flight server should bind.
func (c *Config) GetListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
