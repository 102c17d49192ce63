package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

// AccessService answers a device's "may this credential open the door"
// question from the allowlists and records the outcome as a security log.
type AccessService struct {
	collections *Collections
	log         zerolog.Logger
}

func NewAccessService(c *Collections, logger zerolog.Logger) *AccessService {
	return &AccessService{
		collections: c,
		log:         logger.With().Str("component", "access").Logger(),
	}
}

func (s *AccessService) Decide(ctx context.Context, req types.AccessRequest) (types.AccessResponse, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return types.AccessResponse{}, ErrDeviceIDRequired
	}

	credential := strings.TrimSpace(req.Credential)
	var granted bool
	switch req.Method {
	case types.MethodCard:
		if uid, ok := types.CanonicalUID(credential); ok {
			credential = uid
			granted = s.collections.HasCard(uid)
		}
	case types.MethodFingerprint:
		granted = credential != "" && s.collections.HasFingerprint(credential)
	case types.MethodBluetooth:
		if mac, ok := types.CanonicalMAC(credential); ok {
			credential = mac
			granted = s.collections.HasBluetooth(mac)
		}
	default:
		return types.AccessResponse{}, ErrInvalidAccessMethod
	}

	reason := string(req.Method) + "_not_allowed"
	logType := types.LogAccessDenied
	if granted {
		reason = string(req.Method) + "_allowed"
		logType = types.LogAccessGranted
	}
	s.collections.observer.AccessDecision(req.Method, granted)

	resp := types.AccessResponse{
		Granted:  granted,
		Reason:   reason,
		DeviceID: deviceID,
	}

	// A failed audit write does not change the decision sent to the device.
	entry, err := s.collections.RecordLog(ctx, LogInput{
		Type:        logType,
		Description: fmt.Sprintf("%s %s: %s", req.Method, credential, reason),
		DeviceID:    deviceID,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("device_id", deviceID).Msg("access decision not logged")
	} else {
		resp.LogID = entry.ID
	}
	resp.ServerTime = s.collections.timestamp().Format(TimeFormat)
	return resp, nil
}
