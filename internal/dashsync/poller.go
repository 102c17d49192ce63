package dashsync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

const (
	DefaultListInterval   = 5 * time.Second
	DefaultStatusInterval = 30 * time.Second
)

// Source is the read side of the admin API. *Client implements it.
type Source interface {
	Users(ctx context.Context) ([]types.FingerprintUser, error)
	SecurityLogs(ctx context.Context) ([]types.SecurityLog, error)
	Status(ctx context.Context) (types.SystemStatus, error)
}

// Sink receives poll results. Methods may be called concurrently.
type Sink interface {
	NewUsers(users []types.FingerprintUser)
	NewSecurityLogs(logs []types.SecurityLog)
	Status(status types.SystemStatus)
	FetchFailed(resource string, err error)
}

type PollerConfig struct {
	ListInterval   time.Duration
	StatusInterval time.Duration
}

// Poller runs one fixed-interval loop per resource. Every tick starts its own
// fetch, so a slow response can overlap the next one; whichever response is
// applied last defines the remembered set.
type Poller struct {
	src  Source
	sink Sink
	cfg  PollerConfig
	log  zerolog.Logger

	users *Tracker[int]
	logs  *Tracker[string]

	inflight sync.WaitGroup
}

func NewPoller(src Source, sink Sink, cfg PollerConfig, logger zerolog.Logger) *Poller {
	if cfg.ListInterval <= 0 {
		cfg.ListInterval = DefaultListInterval
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultStatusInterval
	}
	return &Poller{
		src:   src,
		sink:  sink,
		cfg:   cfg,
		log:   logger.With().Str("component", "dashsync").Logger(),
		users: NewTracker[int](),
		logs:  NewTracker[string](),
	}
}

// Run polls until ctx is cancelled and waits for in-flight fetches to return.
func (p *Poller) Run(ctx context.Context) error {
	var loops sync.WaitGroup
	loops.Add(3)
	go p.loop(ctx, &loops, p.cfg.ListInterval, p.pollUsers)
	go p.loop(ctx, &loops, p.cfg.ListInterval, p.pollLogs)
	go p.loop(ctx, &loops, p.cfg.StatusInterval, p.pollStatus)

	loops.Wait()
	p.inflight.Wait()
	return ctx.Err()
}

func (p *Poller) loop(ctx context.Context, wg *sync.WaitGroup, every time.Duration, poll func(context.Context)) {
	defer wg.Done()

	p.spawn(ctx, poll)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.spawn(ctx, poll)
		}
	}
}

func (p *Poller) spawn(ctx context.Context, poll func(context.Context)) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		poll(ctx)
	}()
}

func (p *Poller) pollUsers(ctx context.Context) {
	users, err := p.src.Users(ctx)
	if err != nil {
		p.failed(ctx, "fingerprints", err)
		return
	}
	if added := NewItems(p.users, users, func(u types.FingerprintUser) int { return u.ID }); len(added) > 0 {
		p.sink.NewUsers(added)
	}
}

func (p *Poller) pollLogs(ctx context.Context) {
	logs, err := p.src.SecurityLogs(ctx)
	if err != nil {
		p.failed(ctx, "security-logs", err)
		return
	}
	if added := NewItems(p.logs, logs, func(l types.SecurityLog) string { return l.ID }); len(added) > 0 {
		p.sink.NewSecurityLogs(added)
	}
}

func (p *Poller) pollStatus(ctx context.Context) {
	st, err := p.src.Status(ctx)
	if err != nil {
		p.failed(ctx, "status", err)
		return
	}
	p.sink.Status(st)
}

func (p *Poller) failed(ctx context.Context, resource string, err error) {
	if ctx.Err() != nil {
		return
	}
	p.log.Debug().Err(err).Str("resource", resource).Msg("poll failed")
	p.sink.FetchFailed(resource, err)
}
