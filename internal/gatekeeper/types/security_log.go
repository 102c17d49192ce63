package types

import (
	"time"

	"github.com/goccy/go-json"
)

type LogType string

const (
	LogAccessDenied   LogType = "access_denied"
	LogMotionDetected LogType = "motion_detected"
	LogAccessGranted  LogType = "access_granted"
)

func (t LogType) Valid() bool {
	switch t {
	case LogAccessDenied, LogMotionDetected, LogAccessGranted:
		return true
	}
	return false
}

// SecurityLog is an append-only event record. PhotoFilename, when set, names a
// photo owned exclusively by this entry.
type SecurityLog struct {
	ID            string    `json:"id"`
	Type          LogType   `json:"type"`
	Description   string    `json:"description"`
	DeviceID      string    `json:"deviceId"`
	Timestamp     time.Time `json:"timestamp"`
	PhotoFilename string    `json:"photoFilename,omitempty"`
}

// UnmarshalJSON accepts entries whose timestamp was stored exactly as a device
// sent it. A timestamp that is not an RFC 3339 string decodes as the zero time.
func (l *SecurityLog) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID            string          `json:"id"`
		Type          LogType         `json:"type"`
		Description   string          `json:"description"`
		DeviceID      string          `json:"deviceId"`
		Timestamp     json.RawMessage `json:"timestamp"`
		PhotoFilename string          `json:"photoFilename"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var ts time.Time
	var s string
	if len(raw.Timestamp) > 0 && json.Unmarshal(raw.Timestamp, &s) == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			ts = t
		}
	}
	*l = SecurityLog{
		ID:            raw.ID,
		Type:          raw.Type,
		Description:   raw.Description,
		DeviceID:      raw.DeviceID,
		Timestamp:     ts,
		PhotoFilename: raw.PhotoFilename,
	}
	return nil
}

// SecurityLogRequest is a device or admin submission. Timestamp is the
// device's clock and is optional.
type SecurityLogRequest struct {
	Type        LogType `json:"type" validate:"required,logtype"`
	Description string  `json:"description,omitempty" validate:"max=512"`
	DeviceID    string  `json:"deviceId,omitempty" validate:"max=64"`
	Timestamp   string  `json:"timestamp,omitempty"`
}
