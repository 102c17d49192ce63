package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/photos"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/service"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store/jsonfile"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store/memory"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

// ── Load sanitation ──────────────────────────────────────────────────────────

func TestOpen_DropsInvalidAndDuplicateRecords(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.cards = memory.NewSnapshot(
			types.Card{UID: "04a21b6f", Name: "Alice"},
			types.Card{UID: "not-hex", Name: "Bad"},
			types.Card{UID: "04A21B6F", Name: "Alice again"},
			types.Card{UID: "DEADBEEF"},
		)
		f.bt = memory.NewSnapshot(
			types.BluetoothDevice{MAC: "aa-bb-cc-dd-ee-ff", Name: "phone"},
			types.BluetoothDevice{MAC: "AA:BB:CC:DD:EE:FF", Name: "dup"},
			types.BluetoothDevice{MAC: "AABBCCDDEEFF", Name: "bad"},
		)
		f.users = memory.NewSnapshot(
			types.FingerprintUser{ID: 1, Name: "Bob", FingerprintID: "FP1"},
			types.FingerprintUser{ID: 2, Name: "Dup", FingerprintID: "FP1"},
		)
		f.logs = memory.NewSnapshot(
			types.SecurityLog{ID: "1", Type: types.LogMotionDetected, PhotoFilename: "../../etc/passwd"},
			types.SecurityLog{ID: "2", Type: "door_opened"},
		)
	})

	cards := f.c.Cards()
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards after sanitation, got %+v", cards)
	}
	if cards[0].UID != "04A21B6F" || cards[0].Name != "Alice" {
		t.Errorf("expected first card canonicalised, got %+v", cards[0])
	}
	if cards[1].Name != "Card DEADBE" {
		t.Errorf("expected default name, got %q", cards[1].Name)
	}

	bt := f.c.BluetoothDevices()
	if len(bt) != 1 || bt[0].MAC != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("expected one canonical MAC, got %+v", bt)
	}
	if n := len(f.c.Users()); n != 1 {
		t.Errorf("expected 1 user, got %d", n)
	}

	logs := f.c.SecurityLogs("")
	if len(logs) != 1 || logs[0].PhotoFilename != "" {
		t.Errorf("expected one log with photo reference cleared, got %+v", logs)
	}
}

func TestOpen_LoadErrorIsFatal(t *testing.T) {
	boom := errors.New("disk on fire")
	_, err := service.Open(context.Background(), service.Options{
		Stores: failingLoadStores(boom),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestOpen_KeepsGoodRecordsFromDamagedFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(jsonfile.CardsFile, `[{"uid":"04A21B6F","name":"Alice"},{"uid":12345,"name":"Numeric"}]`)
	write(jsonfile.SecurityLogsFile, `[{"id":"1772353800000","type":"access_denied","description":"bad card","deviceId":"door-1","timestamp":"12345"}]`)

	stores, err := jsonfile.NewStores(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStores: %v", err)
	}
	clock := newFakeClock()
	c, err := service.Open(context.Background(), service.Options{
		Stores: stores,
		Photos: photos.NewMemory(),
		Logger: zerolog.Nop(),
		Now:    clock.Now,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	cards := c.Cards()
	if len(cards) != 1 || cards[0].UID != "04A21B6F" {
		t.Errorf("expected only the well-formed card, got %+v", cards)
	}
	logs := c.SecurityLogs("")
	if len(logs) != 1 {
		t.Fatalf("expected the log entry to survive, got %+v", logs)
	}
	if !logs[0].Timestamp.Equal(clock.Now()) {
		t.Errorf("expected load time for unparseable timestamp, got %v", logs[0].Timestamp)
	}
}

// ── Cards ────────────────────────────────────────────────────────────────────

func TestAddCard_ThenListContainsExactlyOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	card, err := f.c.AddCard(ctx, "04A21B6F", "Alice")
	if err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if card.UID != "04A21B6F" || card.Name != "Alice" {
		t.Errorf("unexpected card %+v", card)
	}

	n := 0
	for _, c := range f.c.Cards() {
		if c.UID == "04A21B6F" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("expected exactly one entry, got %d", n)
	}

	saved, _ := f.cards.Load(ctx)
	if len(saved) != 1 {
		t.Errorf("expected snapshot to hold the card, got %+v", saved)
	}
}

func TestAddCard_DefaultName(t *testing.T) {
	f := newFixture(t)
	card, err := f.c.AddCard(context.Background(), "abcdef0123", "  ")
	if err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if card.Name != "Card ABCDEF" {
		t.Errorf("expected default name, got %q", card.Name)
	}
}

func TestAddCard_DuplicateIsConflictAndCountUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.c.AddCard(ctx, "04A21B6F", "Alice"); err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	_, err := f.c.AddCard(ctx, "04a21b6f", "Mallory")
	if !errors.Is(err, service.ErrConflict) {
		t.Fatalf("expected conflict for lowercase twin, got %v", err)
	}
	if n := f.c.Counts().Cards; n != 1 {
		t.Errorf("expected 1 card, got %d", n)
	}
}

func TestAddCard_InvalidUID(t *testing.T) {
	f := newFixture(t)
	_, err := f.c.AddCard(context.Background(), "04:A2:1B", "x")
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.c.AddCard(ctx, "AB01", "Old"); err != nil {
		t.Fatalf("AddCard: %v", err)
	}

	card, err := f.c.UpdateCard(ctx, "ab01", "New")
	if err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}
	if card.Name != "New" {
		t.Errorf("expected rename, got %+v", card)
	}

	card, err = f.c.UpdateCard(ctx, "AB01", "")
	if err != nil || card.Name != "New" {
		t.Errorf("empty name must leave card unchanged, got %+v, %v", card, err)
	}

	if _, err := f.c.UpdateCard(ctx, "FFFF", "x"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDeleteMissing_IsNotFoundAndSizeUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.c.AddCard(ctx, "AB01", "x"); err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if _, err := f.c.AddUser(ctx, "Bob", "FP1"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if _, err := f.c.AddBluetooth(ctx, "AA:BB:CC:DD:EE:FF", "phone"); err != nil {
		t.Fatalf("AddBluetooth: %v", err)
	}
	before := f.c.Counts()

	if err := f.c.DeleteCard(ctx, "CD02"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("card: expected not found, got %v", err)
	}
	if err := f.c.DeleteUser(ctx, 99); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("user: expected not found, got %v", err)
	}
	if err := f.c.DeleteBluetooth(ctx, "11:22:33:44:55:66"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("bluetooth: expected not found, got %v", err)
	}
	if err := f.c.DeleteBluetooth(ctx, "garbage"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("bluetooth malformed: expected not found, got %v", err)
	}

	if after := f.c.Counts(); after != before {
		t.Errorf("counts changed: before %+v after %+v", before, after)
	}
}

func TestEnsureCards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.c.AddCard(ctx, "AB01", "kept"); err != nil {
		t.Fatalf("AddCard: %v", err)
	}

	added, err := f.c.EnsureCards(ctx, []string{"ab01", "cd02", "zz", "CD02"})
	if err != nil {
		t.Fatalf("EnsureCards: %v", err)
	}
	if added != 1 {
		t.Errorf("expected 1 card added, got %d", added)
	}
	if got := f.c.CardUIDs(); len(got) != 2 || got[1] != "CD02" {
		t.Errorf("unexpected uids %v", got)
	}
}

// ── Persistence failures ─────────────────────────────────────────────────────

func TestFailedSave_LeavesMemoryUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.c.AddCard(ctx, "AB01", "kept"); err != nil {
		t.Fatalf("AddCard: %v", err)
	}

	f.cards.FailSaves(errors.New("read-only filesystem"))

	if _, err := f.c.AddCard(ctx, "CD02", "lost"); !errors.Is(err, service.ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if _, err := f.c.UpdateCard(ctx, "AB01", "renamed"); !errors.Is(err, service.ErrPersist) {
		t.Fatalf("expected ErrPersist on update, got %v", err)
	}
	if err := f.c.DeleteCard(ctx, "AB01"); !errors.Is(err, service.ErrPersist) {
		t.Fatalf("expected ErrPersist on delete, got %v", err)
	}

	cards := f.c.Cards()
	if len(cards) != 1 || cards[0].Name != "kept" {
		t.Errorf("memory must be unchanged after failed saves, got %+v", cards)
	}
}
