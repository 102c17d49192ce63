package types

import "time"

type CheckinRequest struct {
	DeviceID string `json:"deviceId" validate:"required,max=64"`
	IP       string `json:"ip,omitempty" validate:"max=64"`
}

type CheckinResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ConnectionState is derived from the time since a device last checked in.
type ConnectionState string

const (
	StateConnected    ConnectionState = "connected"
	StateIdle         ConnectionState = "idle"
	StateDisconnected ConnectionState = "disconnected"
)

// ActiveDevice is a controller's liveness entry, keyed by DeviceID.
type ActiveDevice struct {
	DeviceID  string          `json:"deviceId"`
	IP        string          `json:"ip"`
	FirstSeen time.Time       `json:"firstSeen"`
	LastSeen  time.Time       `json:"lastSeen"`
	State     ConnectionState `json:"state,omitempty"`
}

// CheckinRecord is one entry of a device's check-in history.
type CheckinRecord struct {
	DeviceID   string    `json:"deviceId"`
	IP         string    `json:"ip"`
	ReceivedAt time.Time `json:"receivedAt"`
}
