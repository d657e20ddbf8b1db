// Package api hosts the HTTP and gRPC listeners for the backtest service and
// implements the gRPC BacktestService.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"tradingcase/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// Server is the main API server that hosts HTTP and gRPC endpoints.
type Server struct {
	httpAddr string
	grpcAddr string

	httpSrv *http.Server
	grpcSrv *grpc.Server
	health  *health.Server
	log     *slog.Logger
}

// NewServer creates a Server serving handler over HTTP on httpAddr and svc
// over gRPC on grpcAddr. An empty grpcAddr disables gRPC.
func NewServer(httpAddr, grpcAddr string, handler http.Handler, svc *BacktestService, m *metrics.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "api")

	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(unaryInterceptor(m, log)))
	svc.RegisterGRPC(gs)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{
		httpAddr: httpAddr,
		grpcAddr: grpcAddr,
		httpSrv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		grpcSrv: gs,
		health:  hs,
		log:     log,
	}
}

// GRPCServer exposes the underlying gRPC server.
func (s *Server) GRPCServer() *grpc.Server { return s.grpcSrv }

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

// Serve serves on already-open listeners until ctx is cancelled, then shuts
// both servers down gracefully. grpcLn may be nil.
func (s *Server) Serve(ctx context.Context, httpLn, grpcLn net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("http listening", "addr", httpLn.Addr().String())
		if err := s.httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if grpcLn != nil {
		g.Go(func() error {
			s.log.Info("grpc listening", "addr", grpcLn.Addr().String())
			if err := s.grpcSrv.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return s.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown performs a graceful shutdown of the HTTP and gRPC servers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down")
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		s.grpcSrv.GracefulStop()
		close(stopped)
	}()

	err := s.httpSrv.Shutdown(ctx)
	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpcSrv.Stop()
	}
	return err
}
