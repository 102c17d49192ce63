package dashsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

var (
	ErrUnauthorized = errors.New("dashsync: unauthorized")
	ErrLoginFailed  = errors.New("dashsync: login rejected")
)

// APIError is a non-2xx response carrying the server's error payload.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("dashsync: HTTP %d", e.Status)
	}
	return fmt.Sprintf("dashsync: HTTP %d: %s", e.Status, e.Message)
}

type ClientConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client talks to the admin API with a cookie session. A 401 on a fetch
// triggers one re-login and retry.
type Client struct {
	base     *url.URL
	http     *http.Client
	username string
	password string
}

func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", cfg.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		base: base,
		http: &http.Client{
			Jar:     jar,
			Timeout: cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		username: cfg.Username,
		password: cfg.Password,
	}, nil
}

func (c *Client) Login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{"username": c.username, "password": c.password})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/login"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer drain(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrLoginFailed
	case resp.StatusCode != http.StatusOK:
		return apiError(resp)
	}
	return nil
}

func (c *Client) Users(ctx context.Context) ([]types.FingerprintUser, error) {
	var out []types.FingerprintUser
	return out, c.getJSON(ctx, "/api/fingerprints", &out)
}

func (c *Client) SecurityLogs(ctx context.Context) ([]types.SecurityLog, error) {
	var out []types.SecurityLog
	return out, c.getJSON(ctx, "/api/security-logs", &out)
}

func (c *Client) Status(ctx context.Context) (types.SystemStatus, error) {
	var out types.SystemStatus
	return out, c.getJSON(ctx, "/api/status", &out)
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	err := c.fetch(ctx, path, dst)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}
	if err := c.Login(ctx); err != nil {
		return err
	}
	return c.fetch(ctx, path, dst)
}

func (c *Client) fetch(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer drain(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) url(path string) string {
	return c.base.String() + path
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(b, &body)
	return &APIError{Status: resp.StatusCode, Code: body.Code, Message: body.Error}
}

func drain(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 64<<10))
	rc.Close()
}
