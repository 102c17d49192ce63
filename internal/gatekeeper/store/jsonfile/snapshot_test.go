package jsonfile_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store/jsonfile"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

func TestSnapshot_MissingFileLoadsEmpty(t *testing.T) {
	s := jsonfile.NewSnapshot[types.Card](filepath.Join(t.TempDir(), "nfc_cards.json"), zerolog.Nop())

	cards, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cards)
	assert.Empty(t, cards)
}

func TestSnapshot_MalformedFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nfc_cards.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"uid":`), 0o644))

	_, err := jsonfile.NewSnapshot[types.Card](path, zerolog.Nop()).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestSnapshot_ObjectInsteadOfArrayIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nfc_cards.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"uid":"04A21B6F","name":"Alice"}`), 0o644))

	_, err := jsonfile.NewSnapshot[types.Card](path, zerolog.Nop()).Load(context.Background())
	require.Error(t, err)
}

func TestSnapshot_SkipsUndecodableRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nfc_cards.json")
	data := `[{"uid":"04A21B6F","name":"Alice"},{"uid":12345,"name":"Numeric"},"junk",{"uid":"DEADBEEF","name":"Bob"}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	var buf bytes.Buffer
	cards, err := jsonfile.NewSnapshot[types.Card](path, zerolog.New(&buf)).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.Card{{UID: "04A21B6F", Name: "Alice"}, {UID: "DEADBEEF", Name: "Bob"}}, cards)
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("skipping undecodable record")))
}

func TestSnapshot_LogTimestampStoredVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "security_logs.json")
	data := `[
  {"id":"1","type":"access_denied","description":"bad card","deviceId":"door-1","timestamp":"12345"},
  {"id":"2","type":"motion_detected","description":"hall","deviceId":"door-1","timestamp":1772353800000},
  {"id":"3","type":"access_granted","description":"ok","deviceId":"door-1","timestamp":"2026-03-01T08:30:00.250Z"},
  {"id":"4","type":"access_granted","description":"none","deviceId":"door-1"}
]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	logs, err := jsonfile.NewSnapshot[types.SecurityLog](path, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 4)

	assert.Equal(t, "1", logs[0].ID)
	assert.Equal(t, types.LogAccessDenied, logs[0].Type)
	assert.Equal(t, "bad card", logs[0].Description)
	assert.True(t, logs[0].Timestamp.IsZero())
	assert.True(t, logs[1].Timestamp.IsZero())
	assert.True(t, logs[2].Timestamp.Equal(time.Date(2026, 3, 1, 8, 30, 0, 250_000_000, time.UTC)))
	assert.True(t, logs[3].Timestamp.IsZero())
}

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "security_logs.json")
	s := jsonfile.NewSnapshot[types.SecurityLog](path, zerolog.Nop())

	ts := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	logs := []types.SecurityLog{
		{ID: "1772353800000", Type: types.LogAccessDenied, Description: "bad card", DeviceID: "door-1", Timestamp: ts, PhotoFilename: "1772353800000.jpg"},
		{ID: "1772353800001", Type: types.LogMotionDetected, Description: "hall", DeviceID: "door-2", Timestamp: ts.Add(time.Second)},
	}
	require.NoError(t, s.Save(ctx, logs))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, logs, got)
}

func TestSnapshot_SaveOverwritesWholeFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bt_devices.json")
	s := jsonfile.NewSnapshot[types.BluetoothDevice](path, zerolog.Nop())

	require.NoError(t, s.Save(ctx, []types.BluetoothDevice{{MAC: "AA:BB:CC:DD:EE:01", Name: "a"}, {MAC: "AA:BB:CC:DD:EE:02", Name: "b"}}))
	require.NoError(t, s.Save(ctx, []types.BluetoothDevice{{MAC: "AA:BB:CC:DD:EE:02", Name: "b"}}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.BluetoothDevice{{MAC: "AA:BB:CC:DD:EE:02", Name: "b"}}, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSnapshot_SavesPrettyPrintedArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nfc_cards.json")
	s := jsonfile.NewSnapshot[types.Card](path, zerolog.Nop())
	require.NoError(t, s.Save(context.Background(), nil))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	require.NoError(t, s.Save(context.Background(), []types.Card{{UID: "04A21B6F", Name: "Alice"}}))
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"uid\": \"04A21B6F\",\n    \"name\": \"Alice\"\n  }\n]", string(b))
}

func TestNewStores_UsesFixedFileNames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	stores, err := jsonfile.NewStores(dir, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, stores.Cards.Save(context.Background(), []types.Card{{UID: "AB", Name: "x"}}))
	_, err = os.Stat(filepath.Join(dir, jsonfile.CardsFile))
	assert.NoError(t, err)
	assert.NotNil(t, stores.Checkins)
}
