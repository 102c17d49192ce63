package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":3000", cfg.Server.HTTPAddr)
	assert.Equal(t, "json", cfg.Storage.Driver)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, "fs", cfg.Photos.Driver)
	assert.Equal(t, time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 30, cfg.Checkins.RetentionDays)
	assert.True(t, cfg.UsesDefaultCredentials())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gatekeeper.yaml")
	yaml := []byte(`
env: prod
server:
  http_addr: ":9000"
storage:
  driver: sqlite
  db_path: /var/lib/gatekeeper/gk.db
auth:
  session_ttl: 30m
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	t.Setenv("GATEKEEPER_HTTP_ADDR", ":9100")
	t.Setenv("GATEKEEPER_BOOTSTRAP_CARD_UIDS", "04a21b6f, DEADBEEF ,")
	t.Setenv("GATEKEEPER_CHECKIN_RETENTION_DAYS", "0")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, ":9100", cfg.Server.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/gatekeeper/gk.db", cfg.Storage.DBPath)
	assert.Equal(t, 30*time.Minute, cfg.Auth.SessionTTL)
	assert.Equal(t, []string{"04a21b6f", "DEADBEEF"}, cfg.Bootstrap.CardUIDs)
	assert.Equal(t, 0, cfg.Checkins.RetentionDays)
}

func TestLoad_UnknownEnvFallsBackToDev(t *testing.T) {
	t.Setenv("GATEKEEPER_ENV", "staging")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
}

func TestLoad_RejectsUnknownStorageDriver(t *testing.T) {
	t.Setenv("GATEKEEPER_STORAGE_DRIVER", "postgres")

	_, err := LoadFile("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.driver")
}

func TestLoad_S3RequiresBucket(t *testing.T) {
	t.Setenv("GATEKEEPER_PHOTOS_DRIVER", "s3")

	_, err := LoadFile("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3_bucket")
}

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, splitCSV("   "))
	assert.Equal(t, []string{"a", "b"}, splitCSV(" a ,, b "))
}
