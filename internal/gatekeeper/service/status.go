package service

import (
	"time"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

// StatusService recomputes SystemStatus from the live collections on every
// call; nothing is cached.
type StatusService struct {
	collections *Collections
	checkins    *CheckinService
	now         func() time.Time
}

func NewStatusService(c *Collections, cs *CheckinService, now func() time.Time) *StatusService {
	if now == nil {
		now = time.Now
	}
	return &StatusService{collections: c, checkins: cs, now: now}
}

func (s *StatusService) Status() types.SystemStatus {
	now := s.now().UTC().Truncate(time.Millisecond)
	counts := s.collections.Counts()
	return types.SystemStatus{
		LastSync:          now,
		ActiveDevices:     s.checkins.ActiveDevices(now),
		TotalCards:        counts.Cards,
		TotalUsers:        counts.Users,
		TotalBtDevices:    counts.Bluetooth,
		TotalSecurityLogs: counts.SecurityLogs,
	}
}
