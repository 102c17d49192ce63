// Package store defines the persistence contracts for the Domain Collections.
//
// Collections are persisted as full snapshots: Save always receives the whole
// collection and replaces whatever was stored before. Load on a store that has
// never been saved returns an empty slice, not an error.
package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

type Snapshot[T any] interface {
	Load(ctx context.Context) ([]T, error)
	Save(ctx context.Context, items []T) error
}

// CheckinStore keeps the append-only check-in history.
type CheckinStore interface {
	RecordCheckin(ctx context.Context, rec types.CheckinRecord) error
	ListCheckins(ctx context.Context, deviceID string, limit int) ([]types.CheckinRecord, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Stores bundles one snapshot per collection plus the check-in history.
type Stores struct {
	Cards        Snapshot[types.Card]
	Fingerprints Snapshot[types.FingerprintUser]
	Bluetooth    Snapshot[types.BluetoothDevice]
	SecurityLogs Snapshot[types.SecurityLog]
	Checkins     CheckinStore
}
