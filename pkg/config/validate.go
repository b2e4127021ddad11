package config

import (
	"fmt"
	"net"
	"strings"
)

// knownProviders are the provider tags the gateway implements.
var knownProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"vertex":    true,
}

var knownCapabilities = map[string]bool{
	CapStreaming:       true,
	CapTools:           true,
	CapVision:          true,
	CapImageGeneration: true,
	CapEmbedding:       true,
	CapImageModality:   true,
}

// Validate checks the configuration for errors that would prevent the
// gateway from operating. It returns the first error found.
func Validate(cfg *Config) error {
	if cfg.MasterKey == "" {
		return fmt.Errorf("master_key is required")
	}

	if _, _, err := net.SplitHostPort(cfg.Server.ListenAddress); err != nil {
		return fmt.Errorf("server.listen_address %q is not host:port: %w", cfg.Server.ListenAddress, err)
	}

	if len(cfg.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	labels := make(map[string]bool)
	for tag, pc := range cfg.Providers {
		if !knownProviders[tag] {
			return fmt.Errorf("unknown provider %q (supported: openai, anthropic, vertex)", tag)
		}
		if len(pc.Credentials) == 0 {
			return fmt.Errorf("provider %q has no credentials", tag)
		}
		for i, cred := range pc.Credentials {
			if labels[cred.Label] {
				return fmt.Errorf("duplicate credential label %q", cred.Label)
			}
			labels[cred.Label] = true

			switch tag {
			case "vertex":
				if cred.ProjectID == "" || cred.Region == "" {
					return fmt.Errorf("vertex credential %d (%s): project_id and region are required", i, cred.Label)
				}
			default:
				if cred.APIKey == "" {
					return fmt.Errorf("%s credential %d (%s): api_key is required", tag, i, cred.Label)
				}
			}
		}
	}

	if len(cfg.Models) == 0 {
		return fmt.Errorf("at least one model binding must be configured")
	}

	aliases := make(map[string]bool)
	for i, b := range cfg.Models {
		if b.Alias == "" {
			return fmt.Errorf("models[%d]: alias is required", i)
		}
		if aliases[b.Alias] {
			return fmt.Errorf("duplicate model alias %q", b.Alias)
		}
		aliases[b.Alias] = true

		if _, ok := cfg.Providers[b.Provider]; !ok {
			return fmt.Errorf("model %q references unconfigured provider %q", b.Alias, b.Provider)
		}
		for _, c := range b.Capabilities {
			if !knownCapabilities[c] {
				return fmt.Errorf("model %q: unknown capability %q (supported: %s)",
					b.Alias, c, strings.Join(capabilityNames(), ", "))
			}
		}
	}

	// Every credential model restriction must reference a configured alias.
	for tag, pc := range cfg.Providers {
		for _, cred := range pc.Credentials {
			for _, m := range cred.Models {
				if !aliases[m] {
					return fmt.Errorf("%s credential %q lists unknown model alias %q", tag, cred.Label, m)
				}
			}
		}
	}

	return nil
}

func capabilityNames() []string {
	names := make([]string, 0, len(knownCapabilities))
	for name := range knownCapabilities {
		names = append(names, name)
	}
	return names
}
