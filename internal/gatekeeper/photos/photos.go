// Package photos stores the images attached to security logs.
//
// A photo is owned by exactly one log entry and is addressed by a flat file
// name of the form <name>.jpg. Drivers never accept names outside that form.
package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
)

var (
	ErrNotFound    = errors.New("photo not found")
	ErrInvalidName = errors.New("invalid photo name")
)

// ContentType is served for every stored photo.
const ContentType = "image/jpeg"

// MaxSize bounds an uploaded photo.
const MaxSize = 10 << 20

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+\.jpg$`)

// Store persists photo bytes. Delete of a missing photo is not an error.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// ValidName reports whether name is an acceptable photo file name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// NameFor returns the file name owned by the log with the given id.
func NameFor(logID string) string {
	return logID + ".jpg"
}

func checkName(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
