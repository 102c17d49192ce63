package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/photos"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

const (
	defaultLogDescription    = "No description provided"
	defaultUploadDescription = "Unauthorized access attempt"
	unknownDevice            = "unknown"
)

// LogInput is a security log submission. Timestamp is the device's clock in
// RFC 3339; when empty or unparseable the server time is used. Photo is kept
// only for access_denied entries.
type LogInput struct {
	Type        types.LogType
	Description string
	DeviceID    string
	Timestamp   string
	Photo       []byte
}

// PhotoUpload is an intrusion report whose photo is mandatory. An empty Type
// means access_denied.
type PhotoUpload struct {
	Type        types.LogType
	Description string
	DeviceID    string
	Photo       []byte
}

// ParseLogFilter validates an optional ?type= value. The empty string means
// no filter.
func ParseLogFilter(s string) (types.LogType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	t := types.LogType(s)
	if !t.Valid() {
		return "", ErrInvalidLogType
	}
	return t, nil
}

// SecurityLogs lists entries in insertion order, optionally of one type.
func (c *Collections) SecurityLogs(filter types.LogType) []types.SecurityLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	if filter == "" {
		return slices.Clone(c.logs)
	}
	out := make([]types.SecurityLog, 0)
	for _, l := range c.logs {
		if l.Type == filter {
			out = append(out, l)
		}
	}
	return out
}

// RecordLog appends a security log. When a photo is attached to an
// access_denied entry it is stored after the entry itself; if that write
// fails the entry stays persisted without a photo and the returned error
// wraps ErrPhotoWrite alongside the saved entry.
func (c *Collections) RecordLog(ctx context.Context, in LogInput) (types.SecurityLog, error) {
	if !in.Type.Valid() {
		return types.SecurityLog{}, ErrInvalidLogType
	}

	c.mu.Lock()
	entry := types.SecurityLog{
		ID:          c.nextLogID(),
		Type:        in.Type,
		Description: orDefault(in.Description, defaultLogDescription),
		DeviceID:    orDefault(in.DeviceID, unknownDevice),
		Timestamp:   c.parseTimestamp(in.Timestamp),
	}
	next := append(slices.Clone(c.logs), entry)
	if err := save(ctx, c, "security_logs", c.stores.SecurityLogs, next); err != nil {
		c.mu.Unlock()
		return types.SecurityLog{}, err
	}
	c.logs = next

	var photoErr error
	if len(in.Photo) > 0 && in.Type == types.LogAccessDenied {
		entry, photoErr = c.attachPhoto(ctx, entry, in.Photo)
	}
	c.mu.Unlock()

	c.notify(ctx, entry)
	return entry, photoErr
}

// attachPhoto stores the photo for an already persisted entry and records the
// file name on it. Caller holds c.mu.
func (c *Collections) attachPhoto(ctx context.Context, entry types.SecurityLog, photo []byte) (types.SecurityLog, error) {
	name := photos.NameFor(entry.ID)
	if err := c.photos.Put(ctx, name, photo); err != nil {
		c.log.Error().Err(err).Str("id", entry.ID).Msg("photo write failed")
		return entry, fmt.Errorf("%w: %w", ErrPhotoWrite, err)
	}

	i := c.logIndex(entry.ID)
	next := slices.Clone(c.logs)
	next[i].PhotoFilename = name
	if err := save(ctx, c, "security_logs", c.stores.SecurityLogs, next); err != nil {
		c.removePhoto(ctx, name)
		return entry, fmt.Errorf("%w: %w", ErrPhotoWrite, err)
	}
	c.logs = next
	return next[i], nil
}

// UploadPhoto stores the photo first and appends the entry only when the
// photo is safely written.
func (c *Collections) UploadPhoto(ctx context.Context, in PhotoUpload) (types.SecurityLog, error) {
	if len(in.Photo) == 0 {
		return types.SecurityLog{}, ErrPhotoRequired
	}
	if in.Type == "" {
		in.Type = types.LogAccessDenied
	}
	if !in.Type.Valid() {
		return types.SecurityLog{}, ErrInvalidLogType
	}

	c.mu.Lock()
	id := c.nextLogID()
	name := photos.NameFor(id)
	if err := c.photos.Put(ctx, name, in.Photo); err != nil {
		c.mu.Unlock()
		c.log.Error().Err(err).Str("id", id).Msg("photo write failed")
		return types.SecurityLog{}, fmt.Errorf("%w: %w", ErrPhotoWrite, err)
	}

	entry := types.SecurityLog{
		ID:            id,
		Type:          in.Type,
		Description:   orDefault(in.Description, defaultUploadDescription),
		DeviceID:      orDefault(in.DeviceID, unknownDevice),
		Timestamp:     c.timestamp(),
		PhotoFilename: name,
	}
	next := append(slices.Clone(c.logs), entry)
	if err := save(ctx, c, "security_logs", c.stores.SecurityLogs, next); err != nil {
		c.removePhoto(ctx, name)
		c.mu.Unlock()
		return types.SecurityLog{}, err
	}
	c.logs = next
	c.mu.Unlock()

	c.notify(ctx, entry)
	return entry, nil
}

// DeleteLog removes one entry and then its owned photo.
func (c *Collections) DeleteLog(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.logIndex(id)
	if i < 0 {
		return ErrLogNotFound
	}
	removed := c.logs[i]
	next := slices.Delete(slices.Clone(c.logs), i, i+1)
	if err := save(ctx, c, "security_logs", c.stores.SecurityLogs, next); err != nil {
		return err
	}
	c.logs = next
	if removed.PhotoFilename != "" {
		c.removePhoto(ctx, removed.PhotoFilename)
	}
	return nil
}

// DeleteLogs removes every entry of the given type, or all entries when
// filter is empty, together with their photos. It returns how many entries
// were removed.
func (c *Collections) DeleteLogs(ctx context.Context, filter types.LogType) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []types.SecurityLog
	next := make([]types.SecurityLog, 0, len(c.logs))
	for _, l := range c.logs {
		if filter == "" || l.Type == filter {
			removed = append(removed, l)
			continue
		}
		next = append(next, l)
	}
	if err := save(ctx, c, "security_logs", c.stores.SecurityLogs, next); err != nil {
		return 0, err
	}
	c.logs = next
	for _, l := range removed {
		if l.PhotoFilename != "" {
			c.removePhoto(ctx, l.PhotoFilename)
		}
	}
	return len(removed), nil
}

// OpenPhoto returns a stored photo. Only names owned by a current entry are
// served.
func (c *Collections) OpenPhoto(ctx context.Context, name string) (io.ReadCloser, error) {
	if !photos.ValidName(name) {
		return nil, ErrPhotoNotFound
	}
	c.mu.Lock()
	owned := slices.ContainsFunc(c.logs, func(l types.SecurityLog) bool { return l.PhotoFilename == name })
	c.mu.Unlock()
	if !owned {
		return nil, ErrPhotoNotFound
	}

	rc, err := c.photos.Open(ctx, name)
	if errors.Is(err, photos.ErrNotFound) {
		return nil, ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	return rc, nil
}

func (c *Collections) removePhoto(ctx context.Context, name string) {
	if err := c.photos.Delete(ctx, name); err != nil {
		c.log.Warn().Err(err).Str("photo", name).Msg("photo delete failed")
	}
}

// nextLogID returns the current Unix time in milliseconds, bumped past any id
// already in use. Caller holds c.mu.
func (c *Collections) nextLogID() string {
	ms := c.now().UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if c.logIndex(id) < 0 {
			return id
		}
		ms++
	}
}

func (c *Collections) logIndex(id string) int {
	return slices.IndexFunc(c.logs, func(l types.SecurityLog) bool { return l.ID == id })
}

func (c *Collections) parseTimestamp(s string) time.Time {
	if t := parseOptionalTimestamp(s); t != nil {
		return t.Truncate(time.Millisecond)
	}
	return c.timestamp()
}

// parseOptionalTimestamp attempts to parse a device-reported timestamp.
// Returns nil if the string is empty or unparseable.
func parseOptionalTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		u := t.UTC()
		return &u
	}
	return nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
