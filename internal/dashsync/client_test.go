package dashsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

// fakeAPI accepts admin/secret and hands out a cookie; expire() invalidates
// the current session so the next fetch sees a 401.
type fakeAPI struct {
	session atomic.Int32
	logins  atomic.Int32
}

func (f *fakeAPI) expire() { f.session.Add(1) }

func (f *fakeAPI) token() string { return "s" + string(rune('0'+f.session.Load())) }

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Username, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.logins.Add(1)
		if req.Username != "admin" || req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Invalid username or password","code":"invalid_credentials"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "gatekeeper_session", Value: f.token(), Path: "/"})
		w.Write([]byte(`{"success":true}`))
	})
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie("gatekeeper_session")
			if err != nil || c.Value != f.token() {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"Authentication required","code":"unauthorized"}`))
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("GET /api/fingerprints", authed(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"id":1,"name":"Bob","fingerprintId":"FP1","registered":"2026-02-15T12:00:00Z"}]`))
	}))
	mux.HandleFunc("GET /api/security-logs", authed(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"id":"l1","type":"motion_detected","description":"x","deviceId":"d","timestamp":"2026-02-15T12:00:00Z"}]`))
	}))
	mux.HandleFunc("GET /api/status", authed(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to load status","code":"internal_error"}`))
	}))
	return mux
}

func newClient(t *testing.T, api *fakeAPI, password string) *Client {
	t.Helper()
	ts := httptest.NewServer(api.handler())
	t.Cleanup(ts.Close)
	c, err := NewClient(ClientConfig{BaseURL: ts.URL + "/", Username: "admin", Password: password})
	require.NoError(t, err)
	return c
}

func TestClient_LoginAndFetch(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(t, api, "secret")
	ctx := context.Background()

	require.NoError(t, c.Login(ctx))

	users, err := c.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Bob", users[0].Name)

	logs, err := c.SecurityLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, types.LogMotionDetected, logs[0].Type)
	assert.EqualValues(t, 1, api.logins.Load())
}

func TestClient_RelogsInAfterSessionExpiry(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(t, api, "secret")
	ctx := context.Background()

	require.NoError(t, c.Login(ctx))
	api.expire()

	users, err := c.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.EqualValues(t, 2, api.logins.Load())
}

func TestClient_BadCredentials(t *testing.T) {
	c := newClient(t, &fakeAPI{}, "wrong")
	ctx := context.Background()

	assert.ErrorIs(t, c.Login(ctx), ErrLoginFailed)

	_, err := c.Users(ctx)
	assert.ErrorIs(t, err, ErrLoginFailed)
}

func TestClient_APIErrorCarriesMessage(t *testing.T) {
	c := newClient(t, &fakeAPI{}, "secret")
	_, err := c.Status(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "Failed to load status", apiErr.Message)
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}
