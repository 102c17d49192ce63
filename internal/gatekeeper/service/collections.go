// Package service holds the Domain Collections and the operations the HTTP
// layer exposes over them.
//
// Collections is the single source of truth while the process runs. Every
// mutation builds the next version of a collection, saves it through the
// snapshot store and only then swaps it in, so a failed save leaves memory
// untouched and the caller sees ErrPersist.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/photos"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

// Notifier receives every security log after it has been persisted.
// Implementations must not block for long.
type Notifier interface {
	SecurityLogCreated(ctx context.Context, entry types.SecurityLog)
}

// Observer is told about events worth counting.
type Observer interface {
	PersistFailed(collection string)
	SecurityLogRecorded(t types.LogType)
	Checkin(deviceID string)
	AccessDecision(method types.AccessMethod, granted bool)
}

type Options struct {
	Stores   store.Stores
	Photos   photos.Store
	Notifier Notifier // optional
	Observer Observer // optional
	Logger   zerolog.Logger
	Now      func() time.Time // defaults to time.Now
}

// Counts is a consistent view of the collection sizes.
type Counts struct {
	Cards        int
	Users        int
	Bluetooth    int
	SecurityLogs int
}

type Collections struct {
	mu sync.Mutex

	stores   store.Stores
	photos   photos.Store
	notifier Notifier
	observer Observer
	log      zerolog.Logger
	now      func() time.Time

	cards []types.Card
	users []types.FingerprintUser
	bt    []types.BluetoothDevice
	logs  []types.SecurityLog
}

// Open loads every collection from its store. A store that cannot be read is
// fatal; individual records that break an invariant are dropped with a warning.
func Open(ctx context.Context, opts Options) (*Collections, error) {
	c := &Collections{
		stores:   opts.Stores,
		photos:   opts.Photos,
		notifier: opts.Notifier,
		observer: opts.Observer,
		log:      opts.Logger.With().Str("component", "collections").Logger(),
		now:      opts.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}

	cards, err := c.stores.Cards.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	users, err := c.stores.Fingerprints.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load fingerprints: %w", err)
	}
	bt, err := c.stores.Bluetooth.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bluetooth devices: %w", err)
	}
	logs, err := c.stores.SecurityLogs.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load security logs: %w", err)
	}

	c.cards = sanitizeCards(cards, c.log)
	c.users = sanitizeUsers(users, c.log)
	c.bt = sanitizeBluetooth(bt, c.log)
	c.logs = sanitizeLogs(logs, c.now(), c.log)

	c.log.Info().
		Int("cards", len(c.cards)).
		Int("fingerprints", len(c.users)).
		Int("bluetooth", len(c.bt)).
		Int("security_logs", len(c.logs)).
		Msg("collections loaded")

	return c, nil
}

func (c *Collections) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counts{
		Cards:        len(c.cards),
		Users:        len(c.users),
		Bluetooth:    len(c.bt),
		SecurityLogs: len(c.logs),
	}
}

// timestamp returns the current time at the millisecond precision that both
// snapshot backends can represent.
func (c *Collections) timestamp() time.Time {
	return c.now().UTC().Truncate(time.Millisecond)
}

// save persists items through s. On failure it reports the collection to the
// observer and returns an error wrapping ErrPersist.
func save[T any](ctx context.Context, c *Collections, name string, s store.Snapshot[T], items []T) error {
	if err := s.Save(ctx, items); err != nil {
		c.observer.PersistFailed(name)
		c.log.Error().Err(err).Str("collection", name).Msg("snapshot save failed")
		return fmt.Errorf("%w: %s: %w", ErrPersist, name, err)
	}
	return nil
}

func (c *Collections) notify(ctx context.Context, entry types.SecurityLog) {
	c.observer.SecurityLogRecorded(entry.Type)
	if c.notifier != nil {
		c.notifier.SecurityLogCreated(ctx, entry)
	}
}

type nopObserver struct{}

func (nopObserver) PersistFailed(string)                    {}
func (nopObserver) SecurityLogRecorded(types.LogType)       {}
func (nopObserver) Checkin(string)                          {}
func (nopObserver) AccessDecision(types.AccessMethod, bool) {}
