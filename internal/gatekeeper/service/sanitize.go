package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/photos"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

func sanitizeCards(in []types.Card, log zerolog.Logger) []types.Card {
	out := make([]types.Card, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, card := range in {
		uid, ok := types.CanonicalUID(card.UID)
		if !ok {
			log.Warn().Str("uid", card.UID).Msg("skipping card with invalid UID format")
			continue
		}
		if _, dup := seen[uid]; dup {
			log.Warn().Str("uid", uid).Msg("skipping duplicate card")
			continue
		}
		seen[uid] = struct{}{}
		card.UID = uid
		if card.Name == "" {
			card.Name = types.DefaultCardName(uid)
		}
		out = append(out, card)
	}
	return out
}

func sanitizeUsers(in []types.FingerprintUser, log zerolog.Logger) []types.FingerprintUser {
	out := make([]types.FingerprintUser, 0, len(in))
	ids := make(map[int]struct{}, len(in))
	fps := make(map[string]struct{}, len(in))
	for _, u := range in {
		if u.ID <= 0 || u.FingerprintID == "" {
			log.Warn().Int("id", u.ID).Str("fingerprint_id", u.FingerprintID).Msg("skipping malformed fingerprint user")
			continue
		}
		if _, dup := ids[u.ID]; dup {
			log.Warn().Int("id", u.ID).Msg("skipping fingerprint user with duplicate id")
			continue
		}
		if _, dup := fps[u.FingerprintID]; dup {
			log.Warn().Str("fingerprint_id", u.FingerprintID).Msg("skipping duplicate fingerprint id")
			continue
		}
		ids[u.ID] = struct{}{}
		fps[u.FingerprintID] = struct{}{}
		out = append(out, u)
	}
	return out
}

func sanitizeBluetooth(in []types.BluetoothDevice, log zerolog.Logger) []types.BluetoothDevice {
	out := make([]types.BluetoothDevice, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, d := range in {
		mac, ok := types.CanonicalMAC(d.MAC)
		if !ok {
			log.Warn().Str("mac", d.MAC).Msg("skipping bluetooth device with invalid MAC format")
			continue
		}
		if _, dup := seen[mac]; dup {
			log.Warn().Str("mac", mac).Msg("skipping duplicate bluetooth device")
			continue
		}
		seen[mac] = struct{}{}
		d.MAC = mac
		out = append(out, d)
	}
	return out
}

// sanitizeLogs keeps the first entry per id. Entries without a usable
// timestamp are stamped with loadedAt.
func sanitizeLogs(in []types.SecurityLog, loadedAt time.Time, log zerolog.Logger) []types.SecurityLog {
	out := make([]types.SecurityLog, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, l := range in {
		if l.ID == "" || !l.Type.Valid() {
			log.Warn().Str("id", l.ID).Str("type", string(l.Type)).Msg("skipping malformed security log")
			continue
		}
		if _, dup := seen[l.ID]; dup {
			log.Warn().Str("id", l.ID).Msg("skipping duplicate security log")
			continue
		}
		if l.PhotoFilename != "" && !photos.ValidName(l.PhotoFilename) {
			log.Warn().Str("id", l.ID).Str("photo", l.PhotoFilename).Msg("dropping invalid photo reference")
			l.PhotoFilename = ""
		}
		if l.Timestamp.IsZero() {
			log.Warn().Str("id", l.ID).Msg("security log has no usable timestamp; using load time")
			l.Timestamp = loadedAt
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	return out
}
