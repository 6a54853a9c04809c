// Package server runs the HTTP API next to a gRPC health service that
// reports the state of the backing stores.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServicePrefix prefixes the health service name of every dependency, e.g.
// "partsquote.postgres".
const ServicePrefix = "partsquote."

// Dependency is a backing store the health service reports on.
type Dependency interface {
	Name() string
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	HTTPAddr        string
	GRPCAddr        string
	ProbeInterval   time.Duration
	ProbeTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server owns the HTTP and gRPC listeners.
type Server struct {
	opts   Options
	http   *http.Server
	grpc   *grpc.Server
	health *health.Server
	deps   []Dependency
	logger *zap.Logger
}

func New(opts Options, handler http.Handler, deps []Dependency, logger *zap.Logger) *Server {
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = 30 * time.Second
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 5 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &Server{
		opts: opts,
		http: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		grpc:   grpcServer,
		health: healthServer,
		deps:   deps,
		logger: logger,
	}
}

// Run listens on the configured addresses and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.opts.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.HTTPAddr, err)
	}
	grpcLis, err := net.Listen("tcp", s.opts.GRPCAddr)
	if err != nil {
		httpLis.Close()
		return fmt.Errorf("failed to listen on %s: %w", s.opts.GRPCAddr, err)
	}
	return s.Serve(ctx, httpLis, grpcLis)
}

// Serve serves on the given listeners until ctx is done, then shuts both
// servers down gracefully.
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	s.logger.Info("Server starting",
		zap.String("http_addr", httpLis.Addr().String()),
		zap.String("grpc_addr", grpcLis.Addr().String()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		if err := s.http.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server failed: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := s.grpc.Serve(grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server failed: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		s.probeLoop(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		cancel()
	}

	s.logger.Info("Shutting down server...")
	s.health.Shutdown()

	shutdownCtx, stop := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer stop()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	s.grpc.GracefulStop()

	wg.Wait()
	s.logger.Info("Server stopped")
	return runErr
}

func (s *Server) probeLoop(ctx context.Context) {
	s.probe(ctx)

	ticker := time.NewTicker(s.opts.ProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

// probe pings every dependency and publishes its status. The overall ""
// service stays SERVING: a failing cloud store is covered by the local
// fallback.
func (s *Server) probe(ctx context.Context) {
	for _, dep := range s.deps {
		pingCtx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
		err := dep.Ping(pingCtx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.Warn("Dependency unhealthy", zap.String("dependency", dep.Name()), zap.Error(err))
		}
		s.health.SetServingStatus(ServicePrefix+dep.Name(), status)
	}
}
