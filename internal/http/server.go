// Package http serves the authenticated RunMonkey JSON API.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/apperr"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/auth"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/limits"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/metrics"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/table"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/window"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type UserService interface {
	Verify(ctx context.Context, username, password string) (bool, error)
	Create(ctx context.Context, username, password string) error
	Revoke(ctx context.Context, username string) error
	List(ctx context.Context) ([]string, error)
}

type MetricService interface {
	FetchOne(ctx context.Context, name string, w window.Window) (*table.Frame, error)
	FetchAll(ctx context.Context, w window.Window) (map[string]metrics.Outcome, error)
}

type LimitsService interface {
	Get(ctx context.Context) (limits.Limits, error)
	Set(ctx context.Context, actor string, memory, cpu *string) error
}

type Server struct {
	users      UserService
	metrics    MetricService
	limits     LimitsService
	issuer     *auth.Issuer
	corsOrigin string
	logger     *slog.Logger
	now        func() time.Time

	mu         sync.Mutex
	httpServer *http.Server
}

func NewServer(users UserService, metricSvc MetricService, limitsSvc LimitsService, issuer *auth.Issuer, corsOrigin string, logger *slog.Logger) *Server {
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	return &Server{
		users:      users,
		metrics:    metricSvc,
		limits:     limitsSvc,
		issuer:     issuer,
		corsOrigin: corsOrigin,
		logger:     logger,
		now:        time.Now,
	}
}

// Handler builds the routed handler with CORS, request IDs and auth applied.
func (s *Server) Handler() http.Handler {
	protected := auth.Middleware(s.issuer, s.denyUnauthorized)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.Handle("POST /api/register_user", protected(http.HandlerFunc(s.handleRegisterUser)))
	mux.Handle("POST /api/revoke_user", protected(http.HandlerFunc(s.handleRevokeUser)))
	mux.Handle("POST /api/list_users", protected(http.HandlerFunc(s.handleListUsers)))
	mux.Handle("POST /api/system_metric", protected(http.HandlerFunc(s.handleSystemMetric)))
	mux.Handle("POST /api/all_system_metric", protected(http.HandlerFunc(s.handleAllSystemMetric)))
	mux.Handle("POST /api/cloud_run_upscale", protected(http.HandlerFunc(s.handleUpscale)))
	mux.Handle("POST /api/get_resources_limits", protected(http.HandlerFunc(s.handleGetLimits)))

	return s.withRequestID(s.enableCORS(mux))
}

func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("HTTP API listening", "addr", addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the HTTP server with a timeout.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP API")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	s.logger.Info("HTTP API stopped")
	return nil
}

func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		s.logger.Debug("Request received", "method", r.Method, "path", r.URL.Path, "request_id", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) denyUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Debug("Rejected request", "path", r.URL.Path, "error", err)
	s.writeError(w, r, apperr.New(apperr.KindUnauthorized, "missing or invalid bearer token", err))
}
