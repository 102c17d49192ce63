package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/photos"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/service"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store/memory"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

// fakeClock starts at a fixed instant and only moves when told to.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu      sync.Mutex
	entries []types.SecurityLog
}

func (n *recordingNotifier) SecurityLogCreated(_ context.Context, e types.SecurityLog) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, e)
}

func (n *recordingNotifier) Entries() []types.SecurityLog {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.SecurityLog(nil), n.entries...)
}

type fixture struct {
	c        *service.Collections
	stores   store.Stores
	cards    *memory.Snapshot[types.Card]
	users    *memory.Snapshot[types.FingerprintUser]
	bt       *memory.Snapshot[types.BluetoothDevice]
	logs     *memory.Snapshot[types.SecurityLog]
	photos   *photos.Memory
	notifier *recordingNotifier
	clock    *fakeClock
}

// newFixture opens Collections over in-memory stores seeded with the given
// snapshots.
func newFixture(t *testing.T, seed ...func(*fixture)) *fixture {
	t.Helper()

	f := &fixture{
		cards:    memory.NewSnapshot[types.Card](),
		users:    memory.NewSnapshot[types.FingerprintUser](),
		bt:       memory.NewSnapshot[types.BluetoothDevice](),
		logs:     memory.NewSnapshot[types.SecurityLog](),
		photos:   photos.NewMemory(),
		notifier: &recordingNotifier{},
		clock:    newFakeClock(),
	}
	for _, fn := range seed {
		fn(f)
	}
	f.stores = store.Stores{
		Cards:        f.cards,
		Fingerprints: f.users,
		Bluetooth:    f.bt,
		SecurityLogs: f.logs,
		Checkins:     memory.NewCheckinStore(),
	}

	c, err := service.Open(context.Background(), service.Options{
		Stores:   f.stores,
		Photos:   f.photos,
		Notifier: f.notifier,
		Logger:   zerolog.Nop(),
		Now:      f.clock.Now,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.c = c
	return f
}

type failingSnapshot[T any] struct{ err error }

func (s failingSnapshot[T]) Load(context.Context) ([]T, error) { return nil, s.err }
func (s failingSnapshot[T]) Save(context.Context, []T) error   { return s.err }

func failingLoadStores(err error) store.Stores {
	return store.Stores{
		Cards:        failingSnapshot[types.Card]{err},
		Fingerprints: failingSnapshot[types.FingerprintUser]{err},
		Bluetooth:    failingSnapshot[types.BluetoothDevice]{err},
		SecurityLogs: failingSnapshot[types.SecurityLog]{err},
	}
}
