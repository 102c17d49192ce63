package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockHTTPServer struct {
	listenErr error
	started   chan struct{}
	stopCh    chan struct{}
	shutdowns atomic.Int32
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{
		started: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

func (m *mockHTTPServer) ListenAndServe() error {
	select {
	case m.started <- struct{}{}:
	default:
	}
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	if m.shutdowns.Add(1) == 1 {
		close(m.stopCh)
	}
	return nil
}

var _ suture.Service = (*HTTPService)(nil)

func TestHTTPService_ShutsDownOnCancel(t *testing.T) {
	srv := newMockHTTPServer()
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if n := srv.shutdowns.Load(); n != 1 {
		t.Errorf("expected one Shutdown call, got %d", n)
	}
}

func TestHTTPService_ListenError(t *testing.T) {
	srv := newMockHTTPServer()
	srv.listenErr = errors.New("address in use")

	err := NewHTTPService(srv, time.Second).Serve(context.Background())
	if err == nil || !errors.Is(err, srv.listenErr) {
		t.Fatalf("expected wrapped listen error, got %v", err)
	}
}

func TestNewHTTPService_DefaultTimeout(t *testing.T) {
	if svc := NewHTTPService(newMockHTTPServer(), 0); svc.shutdownTimeout != 10*time.Second {
		t.Errorf("expected default 10s, got %v", svc.shutdownTimeout)
	}
}

type countingService struct {
	runs atomic.Int32
}

func (c *countingService) Serve(ctx context.Context) error {
	c.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestTree_RunsServicesUntilCancelled(t *testing.T) {
	tree := NewTree(zerolog.Nop(), TreeConfig{ShutdownTimeout: time.Second})

	api := &countingService{}
	maint := &countingService{}
	tree.AddAPIService(api)
	tree.AddMaintenanceService(maint)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for api.runs.Load() == 0 || maint.runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("services were not started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}
}

func TestNewTree_AppliesDefaults(t *testing.T) {
	tree := NewTree(zerolog.Nop(), TreeConfig{})
	if tree.root == nil || tree.api == nil || tree.maintenance == nil {
		t.Fatal("tree not fully built")
	}
}
