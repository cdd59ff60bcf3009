// Package api runs the papertrader process servers: the game HTTP API and a
// gRPC listener exposing the standard health service.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"papertrader/internal/config"
)

// ServiceName is the gRPC health service name reported alongside the
// overall ("") status.
const ServiceName = "papertrader"

// Server is the main API server that hosts HTTP and gRPC endpoints.
type Server struct {
	httpAddr        string
	grpcAddr        string
	shutdownTimeout time.Duration
	handler         http.Handler
	health          *health.Server
	log             *slog.Logger
}

// NewServer creates a new Server configured from the given Config. A
// negative gRPC port disables the gRPC listener.
func NewServer(cfg *config.Config, handler http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		httpAddr:        net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		handler:         handler,
		health:          health.NewServer(),
		log:             log.With("component", "api"),
	}
	if cfg.Server.GRPCPort >= 0 {
		s.grpcAddr = net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.GRPCPort))
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 5 * time.Second
	}
	return s
}

// ListenAndServe starts the HTTP and gRPC listeners and blocks until the
// context is cancelled or a fatal error occurs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpAddr, err)
	}

	var grpcLn net.Listener
	if s.grpcAddr != "" {
		grpcLn, err = net.Listen("tcp", s.grpcAddr)
		if err != nil {
			httpLn.Close()
			return fmt.Errorf("listening on %s: %w", s.grpcAddr, err)
		}
	}
	return s.Serve(ctx, httpLn, grpcLn)
}

// Serve serves on the given listeners until ctx is done, then shuts both
// servers down gracefully. grpcLn may be nil.
func (s *Server) Serve(ctx context.Context, httpLn, grpcLn net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, s.health)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if grpcLn != nil {
		g.Go(func() error {
			s.log.Info("gRPC server listening", "addr", grpcLn.Addr().String())
			if err := grpcServer.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down servers")
		s.health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		if err != nil {
			s.log.Error("HTTP shutdown error", "error", err)
		}
		grpcServer.GracefulStop()
		return err
	})

	return g.Wait()
}

// Health returns the gRPC health server so callers can flip statuses.
func (s *Server) Health() *health.Server {
	return s.health
}
