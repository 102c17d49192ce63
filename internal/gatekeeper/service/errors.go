package service

import "errors"

// Root error kinds. Every error returned by this package that a caller is
// expected to handle wraps exactly one of these.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	// ErrPersist means the snapshot could not be written; the in-memory
	// collection was left as it was before the call.
	ErrPersist = errors.New("failed to save data")

	// ErrPhotoWrite means the photo could not be stored. For RecordLog the
	// entry itself was still persisted without the photo.
	ErrPhotoWrite = errors.New("failed to save photo")
)

// Error is a client-facing error: Error() is safe to show to API callers.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

var (
	ErrInvalidUID          = newError(ErrValidation, "Card UID must be a valid hexadecimal string")
	ErrInvalidMAC          = newError(ErrValidation, "Bluetooth MAC must be six hex octets separated by ':' or '-'")
	ErrNameRequired        = newError(ErrValidation, "Name is required")
	ErrFingerprintRequired = newError(ErrValidation, "Fingerprint ID is required")
	ErrInvalidLogType      = newError(ErrValidation, "Valid log type is required")
	ErrPhotoRequired       = newError(ErrValidation, "No photo uploaded")
	ErrDeviceIDRequired    = newError(ErrValidation, "Device ID is required")
	ErrInvalidAccessMethod = newError(ErrValidation, "Access method must be card, fingerprint or bluetooth")
	ErrCardNotFound        = newError(ErrNotFound, "Card not found")
	ErrUserNotFound        = newError(ErrNotFound, "Fingerprint user not found")
	ErrBluetoothNotFound   = newError(ErrNotFound, "Bluetooth MAC not found")
	ErrLogNotFound         = newError(ErrNotFound, "Security log not found")
	ErrPhotoNotFound       = newError(ErrNotFound, "Photo not found")
	ErrCardExists          = newError(ErrConflict, "Card already exists")
	ErrFingerprintExists   = newError(ErrConflict, "Fingerprint ID already exists")
	ErrBluetoothExists     = newError(ErrConflict, "Bluetooth MAC already exists")
)
