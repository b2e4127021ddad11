package config

import (
	"strconv"
	"time"
)

// Default values for configuration fields.
const (
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20

	DefaultProviderTimeout = 120 * time.Second

	DefaultMaxAttempts        = 3
	DefaultUnbanSweepInterval = 15 * time.Second
	DefaultRateLimitBackoff   = 30 * time.Second
	DefaultAuthBanDuration    = time.Hour

	DefaultAccountingSQLitePath = "data/usage.db"
	DefaultAccountingBufferSize = 1000

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills zero-valued fields with default values.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.AllowedOrigins = []string{"*"}
	}
	if len(cfg.Server.CORS.AllowedMethods) == 0 {
		cfg.Server.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.Server.CORS.AllowedHeaders) == 0 {
		cfg.Server.CORS.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = 3600
	}

	for tag, pc := range cfg.Providers {
		if pc.Timeout == 0 {
			pc.Timeout = DefaultProviderTimeout
		}
		for i := range pc.Credentials {
			if pc.Credentials[i].Label == "" {
				pc.Credentials[i].Label = defaultLabel(tag, i)
			}
		}
		cfg.Providers[tag] = pc
	}

	if cfg.Router.MaxAttempts == 0 {
		cfg.Router.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Router.UnbanSweepInterval == 0 {
		cfg.Router.UnbanSweepInterval = DefaultUnbanSweepInterval
	}
	if cfg.Router.RateLimitBackoff == 0 {
		cfg.Router.RateLimitBackoff = DefaultRateLimitBackoff
	}
	if cfg.Router.AuthBanDuration == 0 {
		cfg.Router.AuthBanDuration = DefaultAuthBanDuration
	}

	if cfg.Accounting.SQLitePath == "" {
		cfg.Accounting.SQLitePath = DefaultAccountingSQLitePath
	}
	if cfg.Accounting.BufferSize == 0 {
		cfg.Accounting.BufferSize = DefaultAccountingBufferSize
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
}

func defaultLabel(provider string, index int) string {
	return provider + "-" + strconv.Itoa(index)
}
