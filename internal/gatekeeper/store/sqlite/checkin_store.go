package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/Gatekeeper/server/internal/db"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

type CheckinStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewCheckinStore(db *sql.DB, writer *dbpkg.Worker) *CheckinStore {
	return &CheckinStore{db: db, writer: writer}
}

func (s *CheckinStore) RecordCheckin(ctx context.Context, rec types.CheckinRecord) error {
	deviceID := strings.TrimSpace(rec.DeviceID)
	if deviceID == "" {
		return nil
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	recvMs := rec.ReceivedAt.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO device_checkins(device_id, ip, received_at_ms)
VALUES (?, ?, ?);
`, deviceID, rec.IP, recvMs); err != nil {
			return fmt.Errorf("RecordCheckin insert: %w", err)
		}
		return nil
	})
}

// ListCheckins returns the newest check-ins for deviceID first. limit <= 0
// means no limit.
func (s *CheckinStore) ListCheckins(ctx context.Context, deviceID string, limit int) ([]types.CheckinRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT device_id, ip, received_at_ms
FROM device_checkins
WHERE device_id = ?
ORDER BY received_at_ms DESC, checkin_id DESC
LIMIT ?;
`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListCheckins: %w", err)
	}
	defer rows.Close()

	out := make([]types.CheckinRecord, 0)
	for rows.Next() {
		var (
			rec types.CheckinRecord
			ms  int64
		)
		if err := rows.Scan(&rec.DeviceID, &rec.IP, &ms); err != nil {
			return nil, fmt.Errorf("ListCheckins scan: %w", err)
		}
		rec.ReceivedAt = fromMillis(ms)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneOlderThan deletes check-ins received before cutoff and returns the
// number of rows removed. Uses idx_checkins_time.
func (s *CheckinStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM device_checkins
WHERE received_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
