package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

// TimeFormat is the wire format for server-generated timestamps.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Connection state thresholds measured from a device's last check-in.
const (
	ConnectedWithin = 2 * time.Minute
	IdleWithin      = 10 * time.Minute
)

const unknownIP = "unknown"

type CheckinOptions struct {
	History  store.CheckinStore // optional
	Observer Observer           // optional
	Logger   zerolog.Logger
	Now      func() time.Time
}

// CheckinService keeps the active-device registry in memory, in first-seen
// order, and appends every check-in to the history store.
type CheckinService struct {
	history  store.CheckinStore
	observer Observer
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	devices []types.ActiveDevice
}

func NewCheckinService(opts CheckinOptions) *CheckinService {
	s := &CheckinService{
		history:  opts.History,
		observer: opts.Observer,
		log:      opts.Logger.With().Str("component", "checkins").Logger(),
		now:      opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	return s
}

// Checkin upserts the device's liveness entry. A known device gets a new
// lastSeen and ip; a new one starts with firstSeen = lastSeen = now.
func (s *CheckinService) Checkin(ctx context.Context, req types.CheckinRequest) (types.CheckinResponse, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return types.CheckinResponse{}, ErrDeviceIDRequired
	}
	ip := orDefault(req.IP, unknownIP)
	now := s.now().UTC().Truncate(time.Millisecond)

	s.mu.Lock()
	i := slices.IndexFunc(s.devices, func(d types.ActiveDevice) bool { return d.DeviceID == deviceID })
	if i >= 0 {
		s.devices[i].LastSeen = now
		s.devices[i].IP = ip
	} else {
		s.devices = append(s.devices, types.ActiveDevice{
			DeviceID:  deviceID,
			IP:        ip,
			FirstSeen: now,
			LastSeen:  now,
		})
		s.log.Info().Str("device_id", deviceID).Str("ip", ip).Msg("new device checked in")
	}
	s.mu.Unlock()

	s.observer.Checkin(deviceID)
	if s.history != nil {
		rec := types.CheckinRecord{DeviceID: deviceID, IP: ip, ReceivedAt: now}
		if err := s.history.RecordCheckin(ctx, rec); err != nil {
			s.log.Warn().Err(err).Str("device_id", deviceID).Msg("check-in history write failed")
		}
	}

	return types.CheckinResponse{Status: "success", Timestamp: now.Format(TimeFormat)}, nil
}

// ActiveDevices returns a copy of the registry with each device's connection
// state evaluated at now.
func (s *CheckinService) ActiveDevices(now time.Time) []types.ActiveDevice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.devices)
	if out == nil {
		out = []types.ActiveDevice{}
	}
	for i := range out {
		out[i].State = ConnectionStateAt(out[i].LastSeen, now)
	}
	return out
}

// History lists the newest check-ins of one device.
func (s *CheckinService) History(ctx context.Context, deviceID string, limit int) ([]types.CheckinRecord, error) {
	if s.history == nil {
		return []types.CheckinRecord{}, nil
	}
	return s.history.ListCheckins(ctx, strings.TrimSpace(deviceID), limit)
}

func ConnectionStateAt(lastSeen, now time.Time) types.ConnectionState {
	switch age := now.Sub(lastSeen); {
	case age <= ConnectedWithin:
		return types.StateConnected
	case age <= IdleWithin:
		return types.StateIdle
	default:
		return types.StateDisconnected
	}
}
