package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/service"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/metrics"
)

type Dependencies struct {
	Logger zerolog.Logger
	Addr   string

	Collections *service.Collections
	Checkins    *service.CheckinService
	Status      *service.StatusService
	Access      *service.AccessService

	Auth           AuthConfig
	CORSOrigins    []string
	LoginRateLimit int // attempts per minute per IP; 0 disables

	Metrics *metrics.Metrics // optional
	Now     func() time.Time // defaults to time.Now
}

type Server struct {
	httpServer  *http.Server
	logger      zerolog.Logger
	collections *service.Collections
	checkins    *service.CheckinService
	status      *service.StatusService
	access      *service.AccessService
	sessions    *sessions
	now         func() time.Time
}

func NewServer(d Dependencies) (*Server, error) {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	sess, err := newSessions(d.Auth, now)
	if err != nil {
		return nil, fmt.Errorf("session setup: %w", err)
	}

	s := &Server{
		logger:      d.Logger.With().Str("component", "httpapi").Logger(),
		collections: d.Collections,
		checkins:    d.Checkins,
		status:      d.Status,
		access:      d.Access,
		sessions:    sess,
		now:         now,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(loggingMiddleware(s.logger))
	r.Use(chimiddleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Group(func(r chi.Router) {
		if d.LoginRateLimit > 0 {
			r.Use(httprate.LimitByIP(d.LoginRateLimit, time.Minute))
		}
		r.Post("/api/login", s.handleLogin)
	})
	r.Get("/api/logout", s.handleLogout)

	// Door controllers hold no session cookie.
	r.Group(func(r chi.Router) {
		r.Get("/api/cards/uids", s.handleCardUIDs)
		r.Get("/api/fingerprints/data", s.handleFingerprintIDs)
		r.Get("/api/bluetooth/macs", s.handleBluetoothMACs)
		r.Post("/api/checkin", s.handleCheckin)
		r.Post("/api/security-logs", s.handleRecordLog)
		r.Post("/api/security-logs/upload-photo", s.handleUploadPhoto)
		r.Post("/api/esp32/cards", s.handleDeviceAddCard)
		r.Post("/api/register-fingerprint", s.handleDeviceRegisterUser)
		r.Post("/api/access-check", s.handleAccessCheck)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/api/cards", s.handleListCards)
		r.Post("/api/cards", s.handleAddCard)
		r.Put("/api/cards/{uid}", s.handleUpdateCard)
		r.Delete("/api/cards/{uid}", s.handleDeleteCard)

		r.Get("/api/fingerprints", s.handleListUsers)
		r.Post("/api/fingerprints", s.handleAddUser)
		r.Put("/api/fingerprints/{id}", s.handleUpdateUser)
		r.Delete("/api/fingerprints/{id}", s.handleDeleteUser)
		r.Post("/api/register-user", s.handleRegisterUser)

		r.Get("/api/bluetooth", s.handleListBluetooth)
		r.Post("/api/bluetooth", s.handleAddBluetooth)
		r.Put("/api/bluetooth/{mac}", s.handleUpdateBluetooth)
		r.Delete("/api/bluetooth/{mac}", s.handleDeleteBluetooth)

		r.Get("/api/security-logs", s.handleListLogs)
		r.Delete("/api/security-logs", s.handleDeleteLogs)
		r.Delete("/api/security-logs/{id}", s.handleDeleteLog)
		r.Get("/api/security-logs/photos/{filename}", s.handlePhoto)

		r.Get("/api/status", s.handleStatus)
		r.Get("/api/devices/{deviceID}/checkins", s.handleCheckinHistory)
	})

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s, nil
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
