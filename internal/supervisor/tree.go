// Package supervisor runs the server's long-lived services under a suture tree.
//
// The tree has two layers: api (HTTP and gRPC listeners) and maintenance
// (background jobs such as check-in pruning). A crash in one layer is
// restarted without touching the other.
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64 // seconds
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

type Tree struct {
	root        *suture.Supervisor
	api         *suture.Supervisor
	maintenance *suture.Supervisor
}

func NewTree(logger zerolog.Logger, cfg TreeConfig) *Tree {
	d := DefaultTreeConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = d.FailureThreshold
	}
	if cfg.FailureDecay <= 0 {
		cfg.FailureDecay = d.FailureDecay
	}
	if cfg.FailureBackoff <= 0 {
		cfg.FailureBackoff = d.FailureBackoff
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = d.ShutdownTimeout
	}

	spec := suture.Spec{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	rootSpec := spec
	rootSpec.EventHook = EventHook(logger.With().Str("component", "supervisor").Logger())

	t := &Tree{
		root:        suture.New("gatekeeper", rootSpec),
		api:         suture.New("api", spec),
		maintenance: suture.New("maintenance", spec),
	}
	t.root.Add(t.api)
	t.root.Add(t.maintenance)
	return t
}

func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

func (t *Tree) AddMaintenanceService(svc suture.Service) suture.ServiceToken {
	return t.maintenance.Add(svc)
}

// Serve blocks until ctx is cancelled or the root gives up.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree and returns a channel that yields its exit error.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// Unstopped names the services that did not stop within ShutdownTimeout.
func (t *Tree) Unstopped() []string {
	report, err := t.root.UnstoppedServiceReport()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(report))
	for _, svc := range report {
		names = append(names, svc.Name)
	}
	return names
}

// EventHook logs supervisor events through zerolog.
func EventHook(logger zerolog.Logger) suture.EventHook {
	return func(e suture.Event) {
		level := zerolog.WarnLevel
		switch e.Type() {
		case suture.EventTypeServicePanic, suture.EventTypeStopTimeout:
			level = zerolog.ErrorLevel
		case suture.EventTypeResume:
			level = zerolog.InfoLevel
		}
		logger.WithLevel(level).Fields(e.Map()).Msg(e.String())
	}
}
