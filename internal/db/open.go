package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5 * time.Second

type Config struct {
	Path        string        // e.g. "./data/gatekeeper.db"; ":memory:" for tests
	Env         string        // "dev" | "prod"
	BusyTimeout time.Duration // defaults to 5s
}

// Open connects to the SQLite file, creating its directory, and applies
// pending migrations before returning.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Path == "" {
		cfg.Path = "./data/gatekeeper.db"
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = defaultBusyTimeout
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	// Single connection; all writes go through Worker.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := Migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// dsn builds a modernc.org/sqlite DSN with per-connection pragmas. Production
// syncs every commit so a 2xx response means the write reached disk.
func dsn(cfg Config) string {
	sync := "NORMAL"
	if cfg.Env == "prod" {
		sync = "FULL"
	}
	pragmas := []string{
		"foreign_keys(1)",
		"journal_mode(WAL)",
		"synchronous(" + sync + ")",
		fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()),
	}
	return "file:" + cfg.Path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
}
