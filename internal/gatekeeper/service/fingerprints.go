package service

import (
	"context"
	"slices"
	"strings"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

func (c *Collections) Users() []types.FingerprintUser {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.users)
}

// FingerprintIDs returns the device allowlist of fingerprint template ids.
func (c *Collections) FingerprintIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.users))
	for i, u := range c.users {
		out[i] = u.FingerprintID
	}
	return out
}

func (c *Collections) HasFingerprint(fingerprintID string) bool {
	fingerprintID = strings.TrimSpace(fingerprintID)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fingerprintIndex(fingerprintID) >= 0
}

// AddUser enrols a fingerprint user. Both fields are required.
func (c *Collections) AddUser(ctx context.Context, name, fingerprintID string) (types.FingerprintUser, error) {
	name = strings.TrimSpace(name)
	fingerprintID = strings.TrimSpace(fingerprintID)
	if name == "" {
		return types.FingerprintUser{}, ErrNameRequired
	}
	if fingerprintID == "" {
		return types.FingerprintUser{}, ErrFingerprintRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertUser(ctx, name, fingerprintID)
}

// RegisterUser pairs an existing card with a new fingerprint user. Nothing is
// created unless the card exists and the fingerprint id is unused. An empty
// userName is rejected unless defaultName is set, in which case the user is
// named "User <id>".
func (c *Collections) RegisterUser(ctx context.Context, cardUID, fingerprintID, userName string, defaultName bool) (types.FingerprintUser, error) {
	fingerprintID = strings.TrimSpace(fingerprintID)
	userName = strings.TrimSpace(userName)
	uid, ok := types.CanonicalUID(cardUID)
	if !ok {
		return types.FingerprintUser{}, ErrInvalidUID
	}
	if fingerprintID == "" {
		return types.FingerprintUser{}, ErrFingerprintRequired
	}
	if userName == "" && !defaultName {
		return types.FingerprintUser{}, ErrNameRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cardIndex(uid) < 0 {
		return types.FingerprintUser{}, ErrCardNotFound
	}
	return c.insertUser(ctx, userName, fingerprintID)
}

// insertUser allocates max(id)+1 and saves. An empty name becomes the default
// "User <id>". Caller holds c.mu.
func (c *Collections) insertUser(ctx context.Context, name, fingerprintID string) (types.FingerprintUser, error) {
	if c.fingerprintIndex(fingerprintID) >= 0 {
		return types.FingerprintUser{}, ErrFingerprintExists
	}

	id := 1
	for _, u := range c.users {
		if u.ID >= id {
			id = u.ID + 1
		}
	}
	if name == "" {
		name = types.DefaultUserName(id)
	}

	user := types.FingerprintUser{
		ID:            id,
		Name:          name,
		FingerprintID: fingerprintID,
		Registered:    c.timestamp(),
	}
	next := append(slices.Clone(c.users), user)
	if err := save(ctx, c, "fingerprints", c.stores.Fingerprints, next); err != nil {
		return types.FingerprintUser{}, err
	}
	c.users = next
	return user, nil
}

// UpdateUser renames a user. An empty name leaves the user unchanged.
func (c *Collections) UpdateUser(ctx context.Context, id int, name string) (types.FingerprintUser, error) {
	name = strings.TrimSpace(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.userIndex(id)
	if i < 0 {
		return types.FingerprintUser{}, ErrUserNotFound
	}
	if name == "" || name == c.users[i].Name {
		return c.users[i], nil
	}
	next := slices.Clone(c.users)
	next[i].Name = name
	if err := save(ctx, c, "fingerprints", c.stores.Fingerprints, next); err != nil {
		return types.FingerprintUser{}, err
	}
	c.users = next
	return next[i], nil
}

func (c *Collections) DeleteUser(ctx context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.userIndex(id)
	if i < 0 {
		return ErrUserNotFound
	}
	next := slices.Delete(slices.Clone(c.users), i, i+1)
	if err := save(ctx, c, "fingerprints", c.stores.Fingerprints, next); err != nil {
		return err
	}
	c.users = next
	return nil
}

func (c *Collections) userIndex(id int) int {
	return slices.IndexFunc(c.users, func(u types.FingerprintUser) bool { return u.ID == id })
}

func (c *Collections) fingerprintIndex(fingerprintID string) int {
	return slices.IndexFunc(c.users, func(u types.FingerprintUser) bool { return u.FingerprintID == fingerprintID })
}
