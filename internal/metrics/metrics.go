// Package metrics exposes Prometheus collectors for the Gatekeeper server.
//
// Every Metrics value owns its registry so tests can build as many servers as
// they like without duplicate-registration panics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/service"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

const namespace = "gatekeeper"

type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	persistFailures *prometheus.CounterVec
	securityLogs    *prometheus.CounterVec
	checkins        prometheus.Counter
	accessDecisions *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route pattern and status code",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by method and route pattern",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "route"},
		),
		persistFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persist_failures_total",
				Help:      "Snapshot saves that failed, by collection",
			},
			[]string{"collection"},
		),
		securityLogs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "security_logs_recorded_total",
				Help:      "Security log entries recorded, by type",
			},
			[]string{"type"},
		),
		checkins: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_checkins_total",
			Help:      "Device check-ins received",
		}),
		accessDecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "access_decisions_total",
				Help:      "Access checks answered, by credential method and result",
			},
			[]string{"method", "result"},
		),
	}
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterCollectionSizes adds one gauge per collection, read from counts at
// scrape time.
func (m *Metrics) RegisterCollectionSizes(counts func() service.Counts) {
	gauge := func(name, help string, pick func(service.Counts) int) {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help},
			func() float64 { return float64(pick(counts())) },
		))
	}
	gauge("cards", "Authorised NFC cards", func(c service.Counts) int { return c.Cards })
	gauge("fingerprint_users", "Registered fingerprint users", func(c service.Counts) int { return c.Users })
	gauge("bluetooth_devices", "Allowed Bluetooth devices", func(c service.Counts) int { return c.Bluetooth })
	gauge("security_logs", "Security log entries kept", func(c service.Counts) int { return c.SecurityLogs })
}

// Middleware records request count and latency. The route label is chi's
// matched pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ── service.Observer ─────────────────────────────────────────────────────────

func (m *Metrics) PersistFailed(collection string) {
	m.persistFailures.WithLabelValues(collection).Inc()
}

func (m *Metrics) SecurityLogRecorded(t types.LogType) {
	m.securityLogs.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) Checkin(string) { m.checkins.Inc() }

func (m *Metrics) AccessDecision(method types.AccessMethod, granted bool) {
	result := "denied"
	if granted {
		result = "granted"
	}
	m.accessDecisions.WithLabelValues(string(method), result).Inc()
}

var _ service.Observer = (*Metrics)(nil)
