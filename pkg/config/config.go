package config

import "time"

// Config is the root configuration for the auto-ai-router gateway.
// It is loaded once at startup; the credential and model sections may be
// hot-reloaded by the file watcher.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// MasterKey is the bearer token clients must present on /v1 endpoints.
	MasterKey string `yaml:"master_key"`

	// Providers maps a provider tag ("openai", "anthropic", "vertex") to its
	// endpoint settings and credential list.
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Models is the list of client-visible model bindings.
	Models []ModelBinding `yaml:"models"`

	// Router contains credential selection and ban policy settings.
	Router RouterConfig `yaml:"router"`

	// Accounting configures the SQLite usage ledger.
	Accounting AccountingConfig `yaml:"accounting"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Watch enables hot-reload of the credential and model sections when the
	// configuration file changes on disk.
	Watch bool `yaml:"watch"`

	// SourcePath records the file the configuration was loaded from. Set by
	// LoadConfig, never by YAML.
	SourcePath string `yaml:"-"`
}

// ConfigPath returns the file the configuration was loaded from, empty for
// configurations built in memory.
func (c *Config) ConfigPath() string {
	return c.SourcePath
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration for browser clients.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// ProviderConfig contains endpoint settings and credentials for one provider.
type ProviderConfig struct {
	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Timeout is the per-request upstream timeout for non-streaming calls.
	Timeout time.Duration `yaml:"timeout"`

	// Credentials is the pool of credentials for this provider.
	Credentials []CredentialConfig `yaml:"credentials"`
}

// CredentialConfig describes one credential in a provider's pool.
type CredentialConfig struct {
	// Label identifies the credential in logs, metrics and the dashboard.
	// Defaults to "<provider>-<index>".
	Label string `yaml:"label"`

	// APIKey is the provider secret (OpenAI, Anthropic, or a Google AI key).
	APIKey string `yaml:"api_key"`

	// ProjectID and Region select the Vertex AI project and location.
	ProjectID string `yaml:"project_id"`
	Region    string `yaml:"region"`

	// ServiceAccountFile is a path to a Google service-account JSON key.
	// When empty, Application Default Credentials are used.
	ServiceAccountFile string `yaml:"service_account_file"`

	// Models lists the client-visible model aliases this credential may serve.
	// Empty means every binding of the provider.
	Models []string `yaml:"models"`
}

// ModelBinding maps a client-visible model alias to a provider-native model.
type ModelBinding struct {
	// Alias is the client-facing model id.
	Alias string `yaml:"alias"`

	// Provider is the provider tag ("openai", "anthropic", "vertex").
	Provider string `yaml:"provider"`

	// Model is the provider-native model id. Defaults to Alias.
	Model string `yaml:"model"`

	// Capabilities lists the binding's capability flags:
	// streaming, tools, vision, image_generation, embedding, image_modality.
	Capabilities []string `yaml:"capabilities"`
}

// RouterConfig contains credential selection and ban policy settings.
type RouterConfig struct {
	// MaxAttempts is the failover attempt budget per request.
	MaxAttempts int `yaml:"max_attempts"`

	// UnbanSweepInterval is how often the background sweep clears expired bans.
	UnbanSweepInterval time.Duration `yaml:"unban_sweep_interval"`

	// RateLimitBackoff is the ban duration for a 429 without a usable
	// Retry-After header.
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff"`

	// AuthBanDuration is the ban duration for 401/403 upstream responses.
	AuthBanDuration time.Duration `yaml:"auth_ban_duration"`
}

// AccountingConfig configures the usage ledger.
type AccountingConfig struct {
	// Enabled controls whether usage records are written at all.
	Enabled bool `yaml:"enabled"`

	// SQLitePath is the ledger database path.
	SQLitePath string `yaml:"sqlite_path"`

	// BufferSize is the async record buffer size.
	BufferSize int `yaml:"buffer_size"`

	// RetentionDays prunes records older than this. Zero keeps everything.
	RetentionDays int `yaml:"retention_days"`
}

// TelemetryConfig contains logging and metrics configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// MetricsConfig configures Prometheus exposition.
type MetricsConfig struct {
	// Enabled controls whether /metrics is served.
	Enabled bool `yaml:"enabled"`

	// RequestDurationBuckets overrides the latency histogram buckets.
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// Capability flag names used in ModelBinding.Capabilities.
const (
	CapStreaming       = "streaming"
	CapTools           = "tools"
	CapVision          = "vision"
	CapImageGeneration = "image_generation"
	CapEmbedding       = "embedding"
	CapImageModality   = "image_modality"
)

// HasCapability reports whether the binding declares the named capability.
func (b ModelBinding) HasCapability(name string) bool {
	for _, c := range b.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// NativeModel returns the provider-native model id for the binding.
func (b ModelBinding) NativeModel() string {
	if b.Model != "" {
		return b.Model
	}
	return b.Alias
}
