// Package sqlite stores collection snapshots and check-in history in SQLite.
//
// Reads use the shared *sql.DB; every write goes through the db.Worker so the
// single connection never sees two writers.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	dbpkg "github.com/BrandonDHaskell/Gatekeeper/server/internal/db"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/store"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

// table describes how one collection maps onto its table. Every table has a
// leading position column that preserves collection order.
type table[T any] struct {
	name    string
	columns []string
	scan    func(rows *sql.Rows) (T, error)
	values  func(item T) []any
}

// Snapshot replaces the whole table on Save, inside one transaction.
type Snapshot[T any] struct {
	db     *sql.DB
	writer *dbpkg.Worker
	t      table[T]
}

func (s *Snapshot[T]) Load(ctx context.Context) ([]T, error) {
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY position;", strings.Join(s.t.columns, ", "), s.t.name)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.t.name, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		item, err := s.t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("load %s scan: %w", s.t.name, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", s.t.name, err)
	}
	return out, nil
}

func (s *Snapshot[T]) Save(ctx context.Context, items []T) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(s.t.columns)+1), ", ")
	insert := fmt.Sprintf("INSERT INTO %s(position, %s) VALUES (%s);",
		s.t.name, strings.Join(s.t.columns, ", "), placeholders)

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+s.t.name+";"); err != nil {
			return fmt.Errorf("save %s clear: %w", s.t.name, err)
		}
		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return fmt.Errorf("save %s prepare: %w", s.t.name, err)
		}
		defer stmt.Close()

		for i, item := range items {
			args := append([]any{i}, s.t.values(item)...)
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("save %s row %d: %w", s.t.name, i, err)
			}
		}
		return nil
	})
}

func NewCardSnapshot(db *sql.DB, writer *dbpkg.Worker) *Snapshot[types.Card] {
	return &Snapshot[types.Card]{db: db, writer: writer, t: table[types.Card]{
		name:    "cards",
		columns: []string{"uid", "name"},
		scan: func(rows *sql.Rows) (types.Card, error) {
			var c types.Card
			err := rows.Scan(&c.UID, &c.Name)
			return c, err
		},
		values: func(c types.Card) []any { return []any{c.UID, c.Name} },
	}}
}

func NewFingerprintSnapshot(db *sql.DB, writer *dbpkg.Worker) *Snapshot[types.FingerprintUser] {
	return &Snapshot[types.FingerprintUser]{db: db, writer: writer, t: table[types.FingerprintUser]{
		name:    "fingerprint_users",
		columns: []string{"id", "name", "fingerprint_id", "registered_ms"},
		scan: func(rows *sql.Rows) (types.FingerprintUser, error) {
			var (
				u  types.FingerprintUser
				ms int64
			)
			err := rows.Scan(&u.ID, &u.Name, &u.FingerprintID, &ms)
			u.Registered = fromMillis(ms)
			return u, err
		},
		values: func(u types.FingerprintUser) []any {
			return []any{u.ID, u.Name, u.FingerprintID, u.Registered.UTC().UnixMilli()}
		},
	}}
}

func NewBluetoothSnapshot(db *sql.DB, writer *dbpkg.Worker) *Snapshot[types.BluetoothDevice] {
	return &Snapshot[types.BluetoothDevice]{db: db, writer: writer, t: table[types.BluetoothDevice]{
		name:    "bluetooth_devices",
		columns: []string{"mac", "name"},
		scan: func(rows *sql.Rows) (types.BluetoothDevice, error) {
			var d types.BluetoothDevice
			err := rows.Scan(&d.MAC, &d.Name)
			return d, err
		},
		values: func(d types.BluetoothDevice) []any { return []any{d.MAC, d.Name} },
	}}
}

func NewSecurityLogSnapshot(db *sql.DB, writer *dbpkg.Worker) *Snapshot[types.SecurityLog] {
	return &Snapshot[types.SecurityLog]{db: db, writer: writer, t: table[types.SecurityLog]{
		name:    "security_logs",
		columns: []string{"id", "type", "description", "device_id", "timestamp_ms", "photo_filename"},
		scan: func(rows *sql.Rows) (types.SecurityLog, error) {
			var (
				l     types.SecurityLog
				ms    int64
				photo sql.NullString
			)
			err := rows.Scan(&l.ID, &l.Type, &l.Description, &l.DeviceID, &ms, &photo)
			l.Timestamp = fromMillis(ms)
			l.PhotoFilename = photo.String
			return l, err
		},
		values: func(l types.SecurityLog) []any {
			var photo any
			if l.PhotoFilename != "" {
				photo = l.PhotoFilename
			}
			return []any{l.ID, string(l.Type), l.Description, l.DeviceID, l.Timestamp.UTC().UnixMilli(), photo}
		},
	}}
}

// NewStores wires every collection and the check-in history onto one database.
func NewStores(db *sql.DB, writer *dbpkg.Worker) store.Stores {
	return store.Stores{
		Cards:        NewCardSnapshot(db, writer),
		Fingerprints: NewFingerprintSnapshot(db, writer),
		Bluetooth:    NewBluetoothSnapshot(db, writer),
		SecurityLogs: NewSecurityLogSnapshot(db, writer),
		Checkins:     NewCheckinStore(db, writer),
	}
}
