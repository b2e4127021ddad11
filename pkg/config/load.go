package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults and
// environment overrides, and validates the result.
//
// Environment variables follow the naming convention ROUTER_SECTION_FIELD
// (e.g. ROUTER_MASTER_KEY, ROUTER_SERVER_LISTEN_ADDRESS) and always take
// precedence over file-based configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	cfg.SourcePath = path
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse parses raw YAML configuration and applies defaults. It does not
// validate; callers that load from disk should use LoadConfig instead.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// applyEnvOverrides applies ROUTER_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("ROUTER_MASTER_KEY"); val != "" {
		cfg.MasterKey = val
	}
	if val := os.Getenv("ROUTER_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("ROUTER_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("ROUTER_ROUTER_MAX_ATTEMPTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Router.MaxAttempts = n
		}
	}
	if val := os.Getenv("ROUTER_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("ROUTER_ACCOUNTING_SQLITE_PATH"); val != "" {
		cfg.Accounting.SQLitePath = val
	}
}
