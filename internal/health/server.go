// Package health exposes liveness over HTTP and the standard gRPC health protocol.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/system"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	checkTimeout = 3 * time.Second
)

// Check probes one dependency. A nil return means the dependency is usable.
type Check func(ctx context.Context) error

type registeredCheck struct {
	name     string
	critical bool
	fn       Check
}

type Response struct {
	Status        string            `json:"status"`
	Service       string            `json:"service"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Timestamp     int64             `json:"timestamp"`
	Checks        map[string]string `json:"checks,omitempty"`
	System        *system.Metrics   `json:"system,omitempty"`
}

type Server struct {
	service string
	started time.Time
	logger  *slog.Logger

	mu     sync.RWMutex
	checks []registeredCheck

	httpServer *http.Server
	grpcServer *grpc.Server
	grpcHealth *grpchealth.Server
}

func NewServer(service string, logger *slog.Logger) *Server {
	srv := &Server{
		service:    service,
		started:    time.Now(),
		logger:     logger,
		grpcServer: grpc.NewServer(),
		grpcHealth: grpchealth.NewServer(),
	}
	healthpb.RegisterHealthServer(srv.grpcServer, srv.grpcHealth)
	return srv
}

// AddCheck registers a dependency probe. A failing critical check makes the
// service unhealthy; a failing optional one only degrades it.
func (s *Server) AddCheck(name string, critical bool, fn Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, registeredCheck{name: name, critical: critical, fn: fn})
}

// Evaluate runs every check and updates the gRPC serving status to match.
func (s *Server) Evaluate(ctx context.Context) *Response {
	s.mu.RLock()
	checks := make([]registeredCheck, len(s.checks))
	copy(checks, s.checks)
	s.mu.RUnlock()

	sort.Slice(checks, func(i, j int) bool { return checks[i].name < checks[j].name })

	resp := &Response{
		Status:        StatusHealthy,
		Service:       s.service,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Timestamp:     time.Now().Unix(),
		Checks:        make(map[string]string, len(checks)),
	}

	for _, c := range checks {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.fn(cctx)
		cancel()

		if err == nil {
			resp.Checks[c.name] = "ok"
			continue
		}

		resp.Checks[c.name] = err.Error()
		if c.critical {
			resp.Status = StatusUnhealthy
		} else if resp.Status == StatusHealthy {
			resp.Status = StatusDegraded
		}
	}

	servingStatus := healthpb.HealthCheckResponse_SERVING
	if resp.Status == StatusUnhealthy {
		servingStatus = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.grpcHealth.SetServingStatus("", servingStatus)
	s.grpcHealth.SetServingStatus(s.service, servingStatus)

	return resp
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := s.Evaluate(r.Context())
	resp.System = system.Collect()

	status := http.StatusOK
	if resp.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// StartHTTP blocks serving /health on addr until Stop is called.
func (s *Server) StartHTTP(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("Health check listening", "addr", addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// StartGRPC blocks serving grpc.health.v1.Health on addr until Stop is called.
func (s *Server) StartGRPC(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.logger.Info("gRPC health listening", "addr", addr)
	return s.grpcServer.Serve(lis)
}

func (s *Server) Stop() {
	s.grpcHealth.Shutdown()

	s.grpcServer.GracefulStop()

	s.mu.RLock()
	srv := s.httpServer
	s.mu.RUnlock()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Warn("Health server shutdown failed", "error", err)
		}
	}
}
