package credential

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Store is the in-memory credential pool. All state transitions happen
// under a single mutex; no lock is held across network calls.
type Store struct {
	mu     sync.Mutex
	creds  []*Credential
	policy BanPolicy

	// now is swappable for tests.
	now func() time.Time

	// onBan is invoked (outside the lock) after a ban is recorded.
	onBan func(provider string, reason BanReason)
}

// NewStore creates a pool over the given credentials.
func NewStore(creds []*Credential, policy BanPolicy) *Store {
	return &Store{
		creds:  creds,
		policy: policy,
		now:    time.Now,
	}
}

// SetBanHook registers a callback invoked after each recorded ban, used for
// metrics. Must be called before the pool is shared across goroutines.
func (s *Store) SetBanHook(fn func(provider string, reason BanReason)) {
	s.onBan = fn
}

// Pick selects a credential eligible for the given model alias.
//
// Selection is round-robin over healthy eligible credentials, realized as
// least-recently-used first: every successful pick stamps the credential,
// so repeated picks cycle through the eligible set and concurrent picks
// never double-assign while an alternative exists. Expired bans are cleared
// lazily here, so correctness does not depend on the sweep.
func (s *Store) Pick(alias string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	var eligible int
	var best *Credential
	for _, c := range s.creds {
		if !c.serves(alias) {
			continue
		}
		eligible++
		if c.bannedAt(now) {
			continue
		}
		if !c.bannedUntil.IsZero() {
			// Lazy expiry.
			c.bannedUntil = time.Time{}
			c.banReason = ""
		}
		if best == nil || c.lastUsed.Before(best.lastUsed) {
			best = c
		}
	}

	if best == nil {
		if eligible == 0 {
			return nil, &NoEligibleCredentialError{Model: alias}
		}
		return nil, &NoEligibleCredentialError{Model: alias, AllBanned: true}
	}

	best.lastUsed = now
	return best, nil
}

// Ban excludes the credential from selection. retryAfter carries the
// provider's rate-limit hint (zero when absent).
func (s *Store) Ban(c *Credential, reason BanReason, retryAfter time.Duration) {
	s.mu.Lock()
	c.consecutiveFailures++
	d := s.policy.Duration(reason, retryAfter, c.consecutiveFailures)
	c.bannedUntil = s.now().Add(d)
	c.banReason = reason
	failures := c.consecutiveFailures
	s.mu.Unlock()

	logFn := slog.Info
	if reason == BanAuth {
		logFn = slog.Warn
	}
	logFn("credential banned",
		"credential", c.Label,
		"provider", c.Provider,
		"reason", string(reason),
		"duration", d,
		"consecutive_failures", failures,
	)

	if s.onBan != nil {
		s.onBan(c.Provider, reason)
	}
}

// MarkSuccess resets failure bookkeeping after a 2xx upstream response and
// clears any stale ban.
func (s *Store) MarkSuccess(c *Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.consecutiveFailures = 0
	c.bannedUntil = time.Time{}
	c.banReason = ""
}

// SweepExpired clears bans whose expiry has passed and returns how many
// were cleared. Invoked periodically by the sweeper.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cleared := 0
	for _, c := range s.creds {
		if !c.bannedUntil.IsZero() && !c.bannedAt(now) {
			c.bannedUntil = time.Time{}
			c.banReason = ""
			cleared++
		}
	}
	return cleared
}

// Stats summarizes pool availability for the health endpoint.
type Stats struct {
	Total     int `json:"total_credentials"`
	Available int `json:"credentials_available"`
	Banned    int `json:"credentials_banned"`
}

// Stats returns current pool availability counts.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st := Stats{Total: len(s.creds)}
	for _, c := range s.creds {
		if c.bannedAt(now) {
			st.Banned++
		} else {
			st.Available++
		}
	}
	return st
}

// Snapshot returns a point-in-time view of every credential, sorted by
// provider then label, for the dashboard.
func (s *Store) Snapshot() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	infos := make([]Info, 0, len(s.creds))
	for _, c := range s.creds {
		info := Info{
			Label:               c.Label,
			Provider:            c.Provider,
			Banned:              c.bannedAt(now),
			ConsecutiveFailures: c.consecutiveFailures,
			LastUsed:            c.lastUsed,
		}
		if info.Banned {
			info.BannedUntil = c.bannedUntil
			info.BanReason = string(c.banReason)
		}
		for m := range c.models {
			info.Models = append(info.Models, m)
		}
		sort.Strings(info.Models)
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Provider != infos[j].Provider {
			return infos[i].Provider < infos[j].Provider
		}
		return infos[i].Label < infos[j].Label
	})
	return infos
}

// Reconcile applies a new credential list from a configuration reload.
// Credentials are matched by label: existing ones keep their bookkeeping
// state (and get updated identity fields), new ones are added, and missing
// ones are dropped.
func (s *Store) Reconcile(next []*Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]*Credential, len(s.creds))
	for _, c := range s.creds {
		existing[c.Label] = c
	}

	merged := make([]*Credential, 0, len(next))
	added, kept := 0, 0
	for _, n := range next {
		if old, ok := existing[n.Label]; ok && old.Provider == n.Provider {
			old.APIKey = n.APIKey
			old.ProjectID = n.ProjectID
			old.Region = n.Region
			old.ServiceAccountFile = n.ServiceAccountFile
			old.models = n.models
			merged = append(merged, old)
			kept++
		} else {
			merged = append(merged, n)
			added++
		}
	}
	dropped := len(s.creds) - kept
	s.creds = merged

	slog.Info("credential pool reconciled",
		"kept", kept, "added", added, "dropped", dropped)
}
