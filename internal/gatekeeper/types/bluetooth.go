package types

import (
	"regexp"
	"strings"
)

var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}$`)

// BluetoothDevice is an allowed BLE peer. MAC is stored uppercase and
// colon-delimited.
type BluetoothDevice struct {
	MAC  string `json:"mac"`
	Name string `json:"name"`
}

// CanonicalMAC accepts six colon- or hyphen-delimited hex octets and returns
// the uppercase colon form.
func CanonicalMAC(mac string) (string, bool) {
	mac = strings.TrimSpace(mac)
	if !macPattern.MatchString(mac) {
		return "", false
	}
	return strings.ToUpper(strings.ReplaceAll(mac, "-", ":")), true
}

type CreateBluetoothRequest struct {
	MAC  string `json:"mac" validate:"required,btmac"`
	Name string `json:"name" validate:"required,max=64"`
}

type UpdateBluetoothRequest struct {
	Name string `json:"name,omitempty" validate:"max=64"`
}

type BluetoothList struct {
	Devices []BluetoothDevice `json:"devices"`
}
