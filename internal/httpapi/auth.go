package httpapi

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookie = "gatekeeper_session"

// AuthConfig describes the single operator account.
type AuthConfig struct {
	Username string
	Password string
	Secret   []byte        // HMAC key; random per process when empty
	TTL      time.Duration // defaults to one hour

	// BcryptCost defaults to bcrypt.DefaultCost; tests lower it.
	BcryptCost int
}

var errSessionRevoked = errors.New("session revoked")

type sessionClaims struct {
	jwt.RegisteredClaims
}

// sessions issues and checks HS256 session tokens. Logged-out token ids are
// remembered until the token would have expired anyway.
type sessions struct {
	username string
	hash     []byte
	secret   []byte
	ttl      time.Duration
	revoked  *cache.Cache
	now      func() time.Time
}

func newSessions(cfg AuthConfig, now func() time.Time) (*sessions, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	secret := cfg.Secret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
	}

	return &sessions{
		username: cfg.Username,
		hash:     hash,
		secret:   secret,
		ttl:      cfg.TTL,
		revoked:  cache.New(cfg.TTL, 2*cfg.TTL),
		now:      now,
	}, nil
}

func (s *sessions) check(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(s.hash, []byte(password)) == nil
	return userOK && passOK
}

func (s *sessions) issue() (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   s.username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

func (s *sessions) validate(tokenString string) (*sessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if _, revoked := s.revoked.Get(claims.ID); revoked {
		return nil, errSessionRevoked
	}
	return claims, nil
}

func (s *sessions) revoke(c *sessionClaims) {
	if c.ExpiresAt == nil {
		return
	}
	remaining := c.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return
	}
	s.revoked.Set(c.ID, struct{}{}, remaining)
}

// ── Handlers ─────────────────────────────────────────────────────────────────

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" || !s.sessions.check(req.Username, req.Password) {
		s.logger.Warn().Str("from", r.RemoteAddr).Msg("failed login")
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
		return
	}

	token, exp, err := s.sessions.issue()
	if err != nil {
		s.logger.Error().Err(err).Msg("issue session")
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(s.sessions.ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Success: true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if claims, err := s.sessions.validate(c.Value); err == nil {
			s.sessions.revoke(claims)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login.html", http.StatusFound)
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		if _, err := s.sessions.validate(c.Value); err != nil {
			s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("session rejected")
			writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
