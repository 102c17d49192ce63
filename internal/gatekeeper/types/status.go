package types

import "time"

// SystemStatus is recomputed from the collections on every read.
type SystemStatus struct {
	LastSync          time.Time      `json:"lastSync"`
	ActiveDevices     []ActiveDevice `json:"activeDevices"`
	TotalCards        int            `json:"totalCards"`
	TotalUsers        int            `json:"totalUsers"`
	TotalBtDevices    int            `json:"totalBtDevices"`
	TotalSecurityLogs int            `json:"totalSecurityLogs"`
}
