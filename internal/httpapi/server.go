package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tradingcase/internal/domain"
	"tradingcase/internal/engine"
	"tradingcase/internal/metrics"
	"tradingcase/internal/strategy"
)

// statusClientClosedRequest is the nginx convention for a client that went
// away before the response was written.
const statusClientClosedRequest = 499

const (
	maxBodyBytes        = 1 << 20
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// Backtests is the engine surface the HTTP API needs.
type Backtests interface {
	Run(ctx context.Context, req engine.Request) (*domain.Report, error)
	Strategies() []strategy.Descriptor
	History(ctx context.Context, limit int) ([]domain.Report, error)
	Get(ctx context.Context, id string) (*domain.Report, error)
}

// Server serves the backtest HTTP API.
type Server struct {
	backtests Backtests
	metrics   *metrics.Metrics
	timeout   time.Duration
	log       *slog.Logger
}

// NewServer creates a new HTTP API server. A zero timeout leaves requests
// bounded only by the client; m may be nil.
func NewServer(b Backtests, m *metrics.Metrics, timeout time.Duration, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		backtests: b,
		metrics:   m,
		timeout:   timeout,
		log:       log.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/strategies", s.handleStrategies)
	mux.HandleFunc("POST /api/backtest", s.handleBacktest)
	mux.HandleFunc("GET /api/backtests", s.handleHistory)
	mux.HandleFunc("GET /api/backtests/{id}", s.handleGetRun)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// Handler returns an http.Handler with instrumentation and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(s.instrument(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.ObserveRequest("http", route, strconv.Itoa(rec.status), elapsed)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", elapsed.Round(time.Microsecond),
		)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

// StatusFor maps an engine error to its HTTP status and client message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidParameters), errors.Is(err, domain.ErrEmptyInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrDataUnavailable), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Backtest execution failed: " + err.Error()
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "Request canceled"
	}
	return http.StatusInternalServerError, "Backtest execution failed: " + err.Error()
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, RootResponse{Message: "Trading Case API is running", Version: Version})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "healthy", Service: ServiceName})
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StrategiesFrom(s.backtests.Strategies()))
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.backtests.Run(ctx, req)
	if err != nil {
		status, msg := StatusFor(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, report)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be a positive integer, got %q", v))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := s.backtests.History(r.Context(), limit)
	if err != nil {
		status, msg := StatusFor(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, HistoryResponse{Runs: runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.backtests.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		status, msg := StatusFor(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, run)
}
