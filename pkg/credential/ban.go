package credential

import (
	"time"
)

// BanReason classifies why a credential was temporarily excluded from
// selection.
type BanReason string

const (
	BanRateLimit   BanReason = "rate_limit"
	BanAuth        BanReason = "auth"
	BanServerError BanReason = "server_error"
	BanQuota       BanReason = "quota"
)

// BanPolicy computes ban durations per failure class.
type BanPolicy struct {
	// AuthBanDuration applies to 401/403 upstream responses.
	AuthBanDuration time.Duration

	// RateLimitBackoff applies to 429 responses without a usable
	// Retry-After hint.
	RateLimitBackoff time.Duration

	// ServerErrorBase seeds the exponential backoff for 5xx and network
	// failures; the duration doubles with each consecutive failure up to
	// ServerErrorCap.
	ServerErrorBase time.Duration
	ServerErrorCap  time.Duration
}

// DefaultBanPolicy returns the policy used when configuration leaves the
// durations unset.
func DefaultBanPolicy() BanPolicy {
	return BanPolicy{
		AuthBanDuration:  time.Hour,
		RateLimitBackoff: 30 * time.Second,
		ServerErrorBase:  2 * time.Second,
		ServerErrorCap:   5 * time.Minute,
	}
}

// Duration returns the ban duration for the given reason. retryAfter is the
// provider's hint for rate-limit failures (zero when absent); attempt is the
// credential's consecutive failure count including the current failure.
func (p BanPolicy) Duration(reason BanReason, retryAfter time.Duration, attempt int) time.Duration {
	switch reason {
	case BanAuth:
		return p.AuthBanDuration
	case BanRateLimit, BanQuota:
		if retryAfter > 0 {
			return retryAfter
		}
		return p.RateLimitBackoff
	default:
		d := p.ServerErrorBase
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= p.ServerErrorCap {
				return p.ServerErrorCap
			}
		}
		if d > p.ServerErrorCap {
			d = p.ServerErrorCap
		}
		return d
	}
}
