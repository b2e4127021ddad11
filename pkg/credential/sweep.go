package credential

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically clears expired bans in the background. The router
// also expires bans lazily at pick time, and Stats and Snapshot compare ban
// expiry against the current time, so the sweep only clears stale ban
// records; pick results and health counts do not depend on it.
type Sweeper struct {
	store *Store
	cron  *cron.Cron
}

// NewSweeper creates a sweeper that scans the store at the given interval.
func NewSweeper(store *Store, interval time.Duration) (*Sweeper, error) {
	c := cron.New()

	if interval < time.Second {
		interval = time.Second
	}
	spec := fmt.Sprintf("@every %s", interval)

	_, err := c.AddFunc(spec, func() {
		if cleared := store.SweepExpired(); cleared > 0 {
			slog.Debug("unban sweep cleared expired bans", "cleared", cleared)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule unban sweep: %w", err)
	}

	return &Sweeper{store: store, cron: c}, nil
}

// Start begins the background sweep.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the sweep and waits for an in-flight run to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
