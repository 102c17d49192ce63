package service

import (
	"context"
	"slices"
	"strings"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

func (c *Collections) Cards() []types.Card {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.cards)
}

// CardUIDs returns the device allowlist of card UIDs.
func (c *Collections) CardUIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.cards))
	for i, card := range c.cards {
		out[i] = card.UID
	}
	return out
}

func (c *Collections) HasCard(uid string) bool {
	uid, ok := types.CanonicalUID(uid)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cardIndex(uid) >= 0
}

// AddCard inserts a card. The UID is canonicalised first, so "04a2" and
// "04A2" are the same card. An empty name becomes "Card <first 6 of uid>".
func (c *Collections) AddCard(ctx context.Context, uid, name string) (types.Card, error) {
	uid, ok := types.CanonicalUID(uid)
	if !ok {
		return types.Card{}, ErrInvalidUID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = types.DefaultCardName(uid)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cardIndex(uid) >= 0 {
		return types.Card{}, ErrCardExists
	}
	card := types.Card{UID: uid, Name: name}
	next := append(slices.Clone(c.cards), card)
	if err := save(ctx, c, "cards", c.stores.Cards, next); err != nil {
		return types.Card{}, err
	}
	c.cards = next
	return card, nil
}

// UpdateCard renames a card. An empty name leaves the card unchanged.
func (c *Collections) UpdateCard(ctx context.Context, uid, name string) (types.Card, error) {
	uid, ok := types.CanonicalUID(uid)
	if !ok {
		return types.Card{}, ErrCardNotFound
	}
	name = strings.TrimSpace(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.cardIndex(uid)
	if i < 0 {
		return types.Card{}, ErrCardNotFound
	}
	if name == "" || name == c.cards[i].Name {
		return c.cards[i], nil
	}
	next := slices.Clone(c.cards)
	next[i].Name = name
	if err := save(ctx, c, "cards", c.stores.Cards, next); err != nil {
		return types.Card{}, err
	}
	c.cards = next
	return next[i], nil
}

func (c *Collections) DeleteCard(ctx context.Context, uid string) error {
	uid, ok := types.CanonicalUID(uid)
	if !ok {
		return ErrCardNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.cardIndex(uid)
	if i < 0 {
		return ErrCardNotFound
	}
	next := slices.Delete(slices.Clone(c.cards), i, i+1)
	if err := save(ctx, c, "cards", c.stores.Cards, next); err != nil {
		return err
	}
	c.cards = next
	return nil
}

// EnsureCards adds every valid UID not already present, in one save. Invalid
// UIDs are skipped with a warning. It returns the number of cards added.
func (c *Collections) EnsureCards(ctx context.Context, uids []string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := slices.Clone(c.cards)
	added := 0
	for _, raw := range uids {
		uid, ok := types.CanonicalUID(raw)
		if !ok {
			c.log.Warn().Str("uid", raw).Msg("ignoring invalid bootstrap card UID")
			continue
		}
		if slices.ContainsFunc(next, func(card types.Card) bool { return card.UID == uid }) {
			continue
		}
		next = append(next, types.Card{UID: uid, Name: types.DefaultCardName(uid)})
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := save(ctx, c, "cards", c.stores.Cards, next); err != nil {
		return 0, err
	}
	c.cards = next
	return added, nil
}

func (c *Collections) cardIndex(uid string) int {
	return slices.IndexFunc(c.cards, func(card types.Card) bool { return card.UID == uid })
}
