package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `
master_key: sk-master
server:
  listen_address: "0.0.0.0:9090"
providers:
  openai:
    credentials:
      - api_key: sk-one
        models: [gpt-4o-mini]
      - label: backup
        api_key: sk-two
  vertex:
    credentials:
      - label: vertex-main
        project_id: my-project
        region: us-central1
        service_account_file: /secrets/sa.json
models:
  - alias: gpt-4o-mini
    provider: openai
    capabilities: [streaming, tools, vision]
  - alias: gemini-2.5-flash
    provider: vertex
    model: gemini-2.5-flash
    capabilities: [streaming, tools]
  - alias: imagen-3.0-fast-generate-001
    provider: vertex
    capabilities: [image_generation]
router:
  max_attempts: 5
  rate_limit_backoff: 45s
accounting:
  enabled: true
  sqlite_path: /tmp/usage.db
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MasterKey != "sk-master" {
		t.Errorf("master key = %q", cfg.MasterKey)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
	if cfg.Router.MaxAttempts != 5 || cfg.Router.RateLimitBackoff != 45*time.Second {
		t.Errorf("router config = %+v", cfg.Router)
	}

	// Defaults fill what the file omits.
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("read timeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Router.AuthBanDuration != DefaultAuthBanDuration {
		t.Errorf("auth ban = %v", cfg.Router.AuthBanDuration)
	}

	// Unlabeled credentials get provider-index labels.
	if cfg.Providers["openai"].Credentials[0].Label != "openai-0" {
		t.Errorf("label = %q", cfg.Providers["openai"].Credentials[0].Label)
	}
	if cfg.Providers["openai"].Credentials[1].Label != "backup" {
		t.Errorf("explicit label = %q", cfg.Providers["openai"].Credentials[1].Label)
	}

	if cfg.ConfigPath() == "" {
		t.Error("SourcePath not recorded")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ROUTER_MASTER_KEY", "sk-from-env")
	t.Setenv("ROUTER_SERVER_LISTEN_ADDRESS", "127.0.0.1:7777")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MasterKey != "sk-from-env" {
		t.Errorf("master key = %q, want env override", cfg.MasterKey)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:7777" {
		t.Errorf("listen address = %q, want env override", cfg.Server.ListenAddress)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing master key", func(c *Config) { c.MasterKey = "" }},
		{"no providers", func(c *Config) { c.Providers = nil }},
		{"no models", func(c *Config) { c.Models = nil }},
		{"unknown provider tag", func(c *Config) {
			c.Providers["mystery"] = ProviderConfig{Credentials: []CredentialConfig{{Label: "x", APIKey: "k"}}}
		}},
		{"provider without credentials", func(c *Config) {
			c.Providers["openai"] = ProviderConfig{}
		}},
		{"vertex without project", func(c *Config) {
			pc := c.Providers["vertex"]
			pc.Credentials[0].ProjectID = ""
			c.Providers["vertex"] = pc
		}},
		{"duplicate alias", func(c *Config) {
			c.Models = append(c.Models, c.Models[0])
		}},
		{"binding references unknown provider", func(c *Config) {
			c.Models[0].Provider = "anthropic"
		}},
		{"unknown capability", func(c *Config) {
			c.Models[0].Capabilities = []string{"telepathy"}
		}},
		{"credential lists unknown alias", func(c *Config) {
			pc := c.Providers["openai"]
			pc.Credentials[0].Models = []string{"missing-model"}
			c.Providers["openai"] = pc
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(sampleConfig))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestModelBinding_Helpers(t *testing.T) {
	b := ModelBinding{Alias: "x", Capabilities: []string{CapStreaming}}
	if !b.HasCapability(CapStreaming) || b.HasCapability(CapTools) {
		t.Error("HasCapability wrong")
	}
	if b.NativeModel() != "x" {
		t.Errorf("NativeModel = %q, want alias fallback", b.NativeModel())
	}
	b.Model = "native-x"
	if b.NativeModel() != "native-x" {
		t.Errorf("NativeModel = %q", b.NativeModel())
	}
}
