package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store"
)

// CheckinPruner periodically deletes check-in history older than the
// retention period. A retention of 0 disables pruning entirely.
type CheckinPruner struct {
	store     store.CheckinStore
	retention time.Duration
	interval  time.Duration
	log       zerolog.Logger
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// PrunerConfig holds the parameters for NewCheckinPruner.
type PrunerConfig struct {
	// RetentionDays is how many days of history to keep; 0 keeps everything.
	RetentionDays int

	// IntervalHours is how often the pruner runs. Defaults to 6.
	IntervalHours int

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewCheckinPruner creates a pruner but does not start it.
func NewCheckinPruner(s store.CheckinStore, cfg PrunerConfig, logger zerolog.Logger) *CheckinPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &CheckinPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		log:       logger.With().Str("component", "checkin_pruner").Logger(),
		now:       now,
	}
}

// Enabled reports whether a retention period is configured.
func (p *CheckinPruner) Enabled() bool { return p.retention > 0 }

func (p *CheckinPruner) String() string { return "checkin-pruner" }

// Serve runs an immediate prune and then one per interval until ctx is
// done. It returns nil on cancellation.
func (p *CheckinPruner) Serve(ctx context.Context) error {
	if !p.Enabled() {
		p.log.Info().Msg("check-in pruner disabled (retention=0)")
		<-ctx.Done()
		return nil
	}

	p.log.Info().
		Int("retention_days", int(p.retention.Hours()/24)).
		Int("interval_hours", int(p.interval.Hours())).
		Msg("check-in pruner started")

	p.PruneOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.PruneOnce(ctx)
		}
	}
}

// Start runs Serve in a background goroutine. Stop cancels it.
func (p *CheckinPruner) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		_ = p.Serve(ctx)
	}(p.done)
}

// Stop signals the loop to exit and waits for it. Safe to call more than
// once, or without Start.
func (p *CheckinPruner) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// PruneOnce deletes history older than now minus the retention and returns
// the number of rows removed.
func (p *CheckinPruner) PruneOnce(ctx context.Context) int64 {
	cutoff := p.now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.log.Error().Err(err).Msg("check-in prune failed")
		return 0
	}
	if deleted > 0 {
		p.log.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("check-in history pruned")
	}
	return deleted
}
