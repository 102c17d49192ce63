package types

import (
	"fmt"
	"time"
)

// FingerprintUser is a person enrolled by fingerprint template reference.
// ID is allocated as max+1; gaps below the maximum are permanent.
type FingerprintUser struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	FingerprintID string    `json:"fingerprintId"`
	Registered    time.Time `json:"registered"`
}

// DefaultUserName names users enrolled from a device without a display name.
func DefaultUserName(id int) string {
	return fmt.Sprintf("User %d", id)
}

type CreateFingerprintRequest struct {
	Name          string `json:"name" validate:"required,max=64"`
	FingerprintID string `json:"fingerprintId" validate:"required,max=64"`
}

type UpdateFingerprintRequest struct {
	Name string `json:"name,omitempty" validate:"max=64"`
}

// RegisterUserRequest pairs an existing card with a new fingerprint user.
// UserName is required on the admin path and optional on the device path.
type RegisterUserRequest struct {
	CardUID       string `json:"cardUid" validate:"required,carduid"`
	FingerprintID string `json:"fingerprintId" validate:"required,max=64"`
	UserName      string `json:"userName,omitempty" validate:"max=64"`
}

type FingerprintIDList struct {
	Fingerprints []FingerprintRef `json:"fingerprints"`
}

type FingerprintRef struct {
	FingerprintID string `json:"fingerprintId"`
}
