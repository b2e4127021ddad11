package credential

import (
	"testing"
	"time"
)

func TestBanPolicy_Duration(t *testing.T) {
	policy := DefaultBanPolicy()

	tests := []struct {
		name       string
		reason     BanReason
		retryAfter time.Duration
		attempt    int
		want       time.Duration
	}{
		{"auth uses long fixed ban", BanAuth, 0, 1, time.Hour},
		{"rate limit honors retry-after", BanRateLimit, 45 * time.Second, 1, 45 * time.Second},
		{"rate limit falls back to backoff", BanRateLimit, 0, 1, 30 * time.Second},
		{"quota behaves like rate limit", BanQuota, 0, 3, 30 * time.Second},
		{"server error first attempt", BanServerError, 0, 1, 2 * time.Second},
		{"server error doubles", BanServerError, 0, 2, 4 * time.Second},
		{"server error third attempt", BanServerError, 0, 3, 8 * time.Second},
		{"server error capped", BanServerError, 0, 20, 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Duration(tt.reason, tt.retryAfter, tt.attempt)
			if got != tt.want {
				t.Errorf("Duration(%s, %v, %d) = %v, want %v",
					tt.reason, tt.retryAfter, tt.attempt, got, tt.want)
			}
		})
	}
}
