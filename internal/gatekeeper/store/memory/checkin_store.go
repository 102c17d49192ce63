package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

type CheckinStore struct {
	mu   sync.RWMutex
	recs []types.CheckinRecord
}

func NewCheckinStore() *CheckinStore {
	return &CheckinStore{}
}

func (s *CheckinStore) RecordCheckin(_ context.Context, rec types.CheckinRecord) error {
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

// ListCheckins returns the newest records for deviceID first. limit <= 0
// means no limit.
func (s *CheckinStore) ListCheckins(_ context.Context, deviceID string, limit int) ([]types.CheckinRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.CheckinRecord, 0)
	for i := len(s.recs) - 1; i >= 0; i-- {
		if s.recs[i].DeviceID != deviceID {
			continue
		}
		out = append(out, s.recs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *CheckinStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.recs[:0]
	var deleted int64
	for _, r := range s.recs {
		if r.ReceivedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.recs = kept
	return deleted, nil
}
