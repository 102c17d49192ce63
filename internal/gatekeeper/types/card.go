package types

import (
	"regexp"
	"strings"
)

var hexUID = regexp.MustCompile(`^[0-9A-Fa-f]+$`)

// Card is an NFC credential. UID is stored in canonical (uppercase) form.
type Card struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// CanonicalUID trims and uppercases uid. ok is false when the result is not a
// non-empty hexadecimal string.
func CanonicalUID(uid string) (string, bool) {
	uid = strings.TrimSpace(uid)
	if !hexUID.MatchString(uid) {
		return "", false
	}
	return strings.ToUpper(uid), true
}

// DefaultCardName is the display name given to cards registered without one.
func DefaultCardName(uid string) string {
	if len(uid) > 6 {
		uid = uid[:6]
	}
	return "Card " + uid
}

type CreateCardRequest struct {
	UID  string `json:"uid" validate:"required,carduid"`
	Name string `json:"name,omitempty" validate:"max=64"`
}

type UpdateCardRequest struct {
	Name string `json:"name,omitempty" validate:"max=64"`
}

// CardUIDList is the device-facing allowlist shape: {"cards":[{"uid":"..."}]}.
type CardUIDList struct {
	Cards []CardUID `json:"cards"`
}

type CardUID struct {
	UID string `json:"uid"`
}
