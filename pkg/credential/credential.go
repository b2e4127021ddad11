// Package credential holds the in-memory credential pool shared by the
// router and the failover controller. Credentials are created at startup
// from configuration and live until process exit; only their bookkeeping
// state (failures, bans, last use) mutates, always under the pool lock.
package credential

import (
	"time"
)

// Credential is one authentication bundle for an upstream provider.
// Immutable identity fields are set at construction; mutable bookkeeping
// fields are guarded by the owning Store's mutex.
type Credential struct {
	// Label identifies the credential in logs, metrics and the dashboard.
	Label string

	// Provider is the provider tag ("openai", "anthropic", "vertex").
	Provider string

	// APIKey is the provider secret.
	APIKey string

	// ProjectID and Region select the Vertex AI project and location.
	ProjectID string
	Region    string

	// ServiceAccountFile is a path to a Google service-account JSON key.
	ServiceAccountFile string

	// models is the set of client-visible aliases this credential may serve.
	// Empty means every binding of the provider.
	models map[string]bool

	// Bookkeeping, guarded by Store.mu.
	consecutiveFailures int
	bannedUntil         time.Time
	banReason           BanReason
	lastUsed            time.Time
}

// New creates a credential. Models is the list of eligible aliases; empty
// means the credential serves every binding of its provider.
func New(label, provider, apiKey string, models []string) *Credential {
	c := &Credential{
		Label:    label,
		Provider: provider,
		APIKey:   apiKey,
	}
	c.setModels(models)
	return c
}

func (c *Credential) setModels(models []string) {
	if len(models) == 0 {
		c.models = nil
		return
	}
	c.models = make(map[string]bool, len(models))
	for _, m := range models {
		c.models[m] = true
	}
}

// serves reports whether the credential may serve the given model alias.
// Caller holds Store.mu.
func (c *Credential) serves(alias string) bool {
	if c.models == nil {
		return true
	}
	return c.models[alias]
}

// bannedAt reports whether the credential is banned at the given instant.
// Caller holds Store.mu.
func (c *Credential) bannedAt(now time.Time) bool {
	return c.bannedUntil.After(now)
}

// Info is a point-in-time snapshot of one credential's state, used by the
// health endpoint and the dashboard.
type Info struct {
	Label               string    `json:"label"`
	Provider            string    `json:"provider"`
	Banned              bool      `json:"banned"`
	BannedUntil         time.Time `json:"banned_until,omitempty"`
	BanReason           string    `json:"ban_reason,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastUsed            time.Time `json:"last_used,omitempty"`
	Models              []string  `json:"models,omitempty"`
}
