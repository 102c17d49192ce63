// Package jsonfile persists each collection as one pretty-printed JSON array.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store/memory"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

// File names under the data directory.
const (
	CardsFile        = "nfc_cards.json"
	FingerprintsFile = "fingerprints.json"
	BluetoothFile    = "bt_devices.json"
	SecurityLogsFile = "security_logs.json"
)

// Snapshot reads and rewrites a single JSON file. Writes go to a temp file in
// the same directory and are renamed into place.
type Snapshot[T any] struct {
	path string
	log  zerolog.Logger
}

func NewSnapshot[T any](path string, logger zerolog.Logger) *Snapshot[T] {
	return &Snapshot[T]{path: path, log: logger}
}

func (s *Snapshot[T]) Path() string { return s.path }

// Load returns an empty slice when the file does not exist and an error when
// it exists but is not a JSON array. Elements that do not decode as T are
// skipped with a warning.
func (s *Snapshot[T]) Load(_ context.Context) ([]T, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	items := make([]T, 0, len(raw))
	for i, elem := range raw {
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			s.log.Warn().Err(err).Str("file", s.path).Int("index", i).Msg("skipping undecodable record")
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Snapshot[T]) Save(_ context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	return writeFileAtomic(s.path, b)
}

func writeFileAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// NewStores wires the four collection files under dataDir. Check-in history is
// not file-backed; it lives in memory for the life of the process.
func NewStores(dataDir string, logger zerolog.Logger) (store.Stores, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return store.Stores{}, fmt.Errorf("mkdir data dir: %w", err)
	}
	return store.Stores{
		Cards:        NewSnapshot[types.Card](filepath.Join(dataDir, CardsFile), logger),
		Fingerprints: NewSnapshot[types.FingerprintUser](filepath.Join(dataDir, FingerprintsFile), logger),
		Bluetooth:    NewSnapshot[types.BluetoothDevice](filepath.Join(dataDir, BluetoothFile), logger),
		SecurityLogs: NewSnapshot[types.SecurityLog](filepath.Join(dataDir, SecurityLogsFile), logger),
		Checkins:     memory.NewCheckinStore(),
	}, nil
}
