package sqlite_test

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"time"

	sqlitestore "github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store/sqlite"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

// ═══════════════════════════════════════════════════════════════════════════
// Load: empty tables
// ═══════════════════════════════════════════════════════════════════════════

func TestSnapshot_Load_EmptyTable(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	stores := sqlitestore.NewStores(conn, w)

	cards, err := stores.Cards.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cards == nil || len(cards) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", cards)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Save / Load: round trip per collection
// ═══════════════════════════════════════════════════════════════════════════

func TestSnapshot_Cards_RoundTripKeepsOrder(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	s := sqlitestore.NewCardSnapshot(conn, w)
	ctx := context.Background()

	want := []types.Card{
		{UID: "DEADBEEF", Name: "Zed"},
		{UID: "04A21B6F", Name: "Alice"},
	}
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, want)
	}
}

func TestSnapshot_Fingerprints_RoundTrip(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	s := sqlitestore.NewFingerprintSnapshot(conn, w)
	ctx := context.Background()

	reg := time.Date(2026, 2, 15, 12, 0, 0, 123_000_000, time.UTC)
	want := []types.FingerprintUser{
		{ID: 1, Name: "Bob", FingerprintID: "FP100", Registered: reg},
		{ID: 4, Name: "Eve", FingerprintID: "FP104", Registered: reg.Add(time.Minute)},
	}
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, want)
	}
}

func TestSnapshot_SecurityLogs_PhotoColumnNullable(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	s := sqlitestore.NewSecurityLogSnapshot(conn, w)
	ctx := context.Background()

	ts := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	want := []types.SecurityLog{
		{ID: "1771156800000", Type: types.LogAccessDenied, Description: "x", DeviceID: "door-1", Timestamp: ts, PhotoFilename: "1771156800000.jpg"},
		{ID: "1771156800001", Type: types.LogMotionDetected, Description: "y", DeviceID: "door-1", Timestamp: ts},
	}
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var nulls int
	if err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM security_logs WHERE photo_filename IS NULL`,
	).Scan(&nulls); err != nil {
		t.Fatalf("count: %v", err)
	}
	if nulls != 1 {
		t.Errorf("expected 1 log without photo stored as NULL, got %d", nulls)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, want)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Save: full replacement
// ═══════════════════════════════════════════════════════════════════════════

func TestSnapshot_Save_ReplacesPreviousContents(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	s := sqlitestore.NewBluetoothSnapshot(conn, w)
	ctx := context.Background()

	first := []types.BluetoothDevice{
		{MAC: "AA:BB:CC:DD:EE:01", Name: "phone"},
		{MAC: "AA:BB:CC:DD:EE:02", Name: "watch"},
	}
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("Save 1: %v", err)
	}
	if err := s.Save(ctx, first[1:]); err != nil {
		t.Fatalf("Save 2: %v", err)
	}

	var count int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM bluetooth_devices`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row after replacement, got %d", count)
	}
}

func TestSnapshot_Save_DuplicateKeyRollsBack(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	s := sqlitestore.NewCardSnapshot(conn, w)
	ctx := context.Background()

	if err := s.Save(ctx, []types.Card{{UID: "AB", Name: "kept"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	err := s.Save(ctx, []types.Card{{UID: "CD", Name: "a"}, {UID: "CD", Name: "b"}})
	if err == nil {
		t.Fatal("expected primary key violation")
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].UID != "AB" {
		t.Errorf("failed save must leave previous snapshot intact, got %#v", got)
	}
}

func TestSnapshot_Save_AfterWorkerClosed(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	s := sqlitestore.NewCardSnapshot(conn, w)

	w.Close()
	err := s.Save(context.Background(), []types.Card{{UID: "AB", Name: "x"}})
	if err == nil {
		t.Fatal("expected error after worker close")
	}

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM cards`).Scan(&count); err != nil && err != sql.ErrNoRows {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no rows, got %d", count)
	}
}
