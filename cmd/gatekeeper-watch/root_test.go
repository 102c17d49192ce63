package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

func TestStatusCommand_PrintsJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			http.SetCookie(w, &http.Cookie{Name: "gatekeeper_session", Value: "ok", Path: "/"})
			w.Write([]byte(`{"success":true}`))
		case "/api/status":
			if c, err := r.Cookie("gatekeeper_session"); err != nil || c.Value != "ok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"lastSync":"2026-02-15T12:00:00Z","activeDevices":[],"totalCards":2,"totalUsers":1,"totalBtDevices":0,"totalSecurityLogs":5}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"status", "--server", ts.URL, "--password", "pw"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), `"totalCards": 2`)
	assert.Contains(t, out.String(), `"totalSecurityLogs": 5`)
}

func TestStatusCommand_RequiresPassword(t *testing.T) {
	t.Setenv("GATEKEEPER_ADMIN_PASSWORD", "")
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"status"})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}

func TestLogSink_WritesOneLinePerItem(t *testing.T) {
	var buf bytes.Buffer
	s := &logSink{log: zerolog.New(&buf)}

	s.NewUsers([]types.FingerprintUser{{ID: 4, Name: "Bob", FingerprintID: "FP100"}})
	s.NewSecurityLogs([]types.SecurityLog{{ID: "a", Type: types.LogAccessDenied, Description: "Unauthorized access attempt"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"name":"Bob"`)
	assert.Contains(t, lines[1], `"level":"warn"`)
	assert.Contains(t, lines[1], "Unauthorized access attempt")
}
