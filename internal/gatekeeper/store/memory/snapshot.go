package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

// Snapshot keeps the last saved collection in memory.
// It is intended for use in tests and dev environments.
type Snapshot[T any] struct {
	mu      sync.Mutex
	items   []T
	saves   int
	saveErr error
}

func NewSnapshot[T any](initial ...T) *Snapshot[T] {
	return &Snapshot[T]{items: append([]T(nil), initial...)}
}

func (s *Snapshot[T]) Load(_ context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *Snapshot[T]) Save(_ context.Context, items []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.items = append(s.items[:0:0], items...)
	s.saves++
	return nil
}

// FailSaves makes every following Save return err; nil restores normal
// behaviour. Test-only helper.
func (s *Snapshot[T]) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// Saves reports how many successful saves happened. Test-only helper.
func (s *Snapshot[T]) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// NewStores returns an empty in-memory bundle.
func NewStores() store.Stores {
	return store.Stores{
		Cards:        NewSnapshot[types.Card](),
		Fingerprints: NewSnapshot[types.FingerprintUser](),
		Bluetooth:    NewSnapshot[types.BluetoothDevice](),
		SecurityLogs: NewSnapshot[types.SecurityLog](),
		Checkins:     NewCheckinStore(),
	}
}
