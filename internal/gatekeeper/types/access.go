package types

// AccessMethod names the allowlist a credential is checked against.
type AccessMethod string

const (
	MethodCard        AccessMethod = "card"
	MethodFingerprint AccessMethod = "fingerprint"
	MethodBluetooth   AccessMethod = "bluetooth"
)

type AccessRequest struct {
	DeviceID   string       `json:"deviceId" validate:"required,max=64"`
	Method     AccessMethod `json:"method" validate:"required,oneof=card fingerprint bluetooth"`
	Credential string       `json:"credential" validate:"required,max=64"`
}

type AccessResponse struct {
	Granted    bool   `json:"granted"`
	Reason     string `json:"reason"`
	DeviceID   string `json:"deviceId"`
	LogID      string `json:"logId,omitempty"`
	ServerTime string `json:"serverTime"`
}
