// Package grpcapi exposes the standard gRPC health protocol so process
// supervisors and load balancers can probe the server without a session.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall "" entry.
const ServiceName = "gatekeeper.v1.Gatekeeper"

type Server struct {
	addr   string
	grace  time.Duration
	health *health.Server
	log    zerolog.Logger
}

func NewServer(addr string, grace time.Duration, logger zerolog.Logger) *Server {
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &Server{
		addr:   addr,
		grace:  grace,
		health: health.NewServer(),
		log:    logger.With().Str("component", "grpc").Logger(),
	}
}

// SetServing flips both the overall and the named service status.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, lis)
}

// ServeListener serves on lis until ctx is cancelled. A fresh grpc.Server is
// built per call so the supervisor can restart it.
func (s *Server) ServeListener(ctx context.Context, lis net.Listener) error {
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(s.logUnary))
	healthpb.RegisterHealthServer(gs, s.health)
	reflection.Register(gs)

	s.health.Resume()
	s.SetServing(true)
	s.log.Info().Str("addr", lis.Addr().String()).Msg("grpc health endpoint listening")

	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(lis) }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.health.Shutdown()
		s.stop(gs)
		<-errCh
		return ctx.Err()
	}
}

// stop drains in-flight calls, forcing the close after the grace period.
func (s *Server) stop(gs *grpc.Server) {
	done := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.grace):
		s.log.Warn().Dur("grace", s.grace).Msg("grpc graceful stop timed out")
		gs.Stop()
		<-done
	}
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	ev := s.log.Debug()
	if err != nil {
		ev = s.log.Warn().Err(err)
	}
	ev.Str("method", info.FullMethod).Dur("dur", time.Since(start)).Msg("grpc call")
	return resp, err
}

func (s *Server) String() string { return "grpc-health" }
