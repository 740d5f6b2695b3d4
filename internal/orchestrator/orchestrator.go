package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/apperr"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/auth"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/config"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/eventbus"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/health"
	httpserver "github.com/EricMurray-e-m-dev/RunMonkey/internal/http"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/limits"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/metrics"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/monitoring"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/table"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/users"
)

const (
	serviceName         = "runmonkey"
	healthCheckInterval = 30 * time.Second
)

// Orchestrator manages the RunMonkey lifecycle.
//
// Lifecycle:
//  1. Start() - connects the user store, event bus, monitoring and limits backends
//  2. Run() - serves the API and health endpoints until the context is cancelled
//  3. Stop() - shuts servers down and closes every connection
//
// NATS is optional: when it cannot be reached the API keeps serving and events are dropped.
type Orchestrator struct {
	config *config.Config
	logger *slog.Logger

	userStore   users.Store
	userService *users.Service

	monitoringClient *monitoring.Client
	metricService    *metrics.Service

	limitsController limits.Controller
	limitsService    *limits.Service

	publisher *eventbus.Publisher
	issuer    *auth.Issuer

	httpServer   *httpserver.Server
	healthServer *health.Server
}

func NewOrchestrator(cfg *config.Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		config: cfg,
		logger: logger,
	}
}

// Start initializes every component. Required components failing to start
// return an error; optional ones log a warning.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.logger.Info("Starting RunMonkey orchestrator")

	if err := o.initializeUsers(ctx); err != nil {
		return fmt.Errorf("failed to initialize user store: %w", err)
	}

	o.connectNATS()

	if err := o.initializeMetrics(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics backend: %w", err)
	}

	if err := o.initializeLimits(ctx); err != nil {
		return fmt.Errorf("failed to initialize limits backend: %w", err)
	}

	issuer, err := auth.NewIssuer(o.config.JWTSecret, o.config.JWTTTL)
	if err != nil {
		return err
	}
	o.issuer = issuer

	o.httpServer = httpserver.NewServer(o.userService, o.metricService, o.limitsService, o.issuer, o.config.CORSOrigin, o.logger)
	o.initializeHealth()

	o.logger.Info("RunMonkey orchestrator started")
	return nil
}

func (o *Orchestrator) initializeUsers(ctx context.Context) error {
	o.logger.Info("Connecting user store", "type", o.config.UserStore)

	store, err := users.NewStore(ctx, o.config.UserStore, o.config.UserStoreDSN)
	if err != nil {
		return err
	}
	o.userStore = store
	o.userService = users.NewService(store, o.config.AdminUsername, o.logger)

	return o.userService.EnsureAdmin(ctx, o.config.AdminPassword)
}

func (o *Orchestrator) connectNATS() {
	if !o.config.EnableEvents {
		o.logger.Info("Event publishing disabled")
		return
	}

	o.logger.Info("Connecting to NATS", "url", o.config.NatsURL)

	publisher, err := eventbus.NewPublisher(o.config.NatsURL, o.logger)
	if err != nil {
		o.logger.Warn("Failed to connect to NATS, events will not be published", "error", err)
		return
	}
	o.publisher = publisher
}

func (o *Orchestrator) initializeMetrics(ctx context.Context) error {
	var querier metrics.Querier

	switch o.config.MetricsBackend {
	case "monitoring":
		client := monitoring.NewClient(o.config.ProjectID, o.config.QueryTimeout, o.logger)
		if err := client.Connect(ctx); err != nil {
			return err
		}
		o.monitoringClient = client
		querier = client
	default:
		o.logger.Warn("Metrics backend disabled, metric endpoints will report a configuration error")
		querier = disabledQuerier{}
	}

	o.metricService = metrics.NewService(querier, o.config.MonitoredService(), o.logger)
	if o.publisher != nil {
		o.metricService.SetPublisher(o.publisher)
	}
	return nil
}

func (o *Orchestrator) initializeLimits(ctx context.Context) error {
	controller, err := limits.NewController(ctx, o.config.LimitsBackend, limits.Settings{
		ProjectID:     o.config.ProjectID,
		Region:        o.config.ServiceRegion,
		ServiceName:   o.config.ServiceName,
		ContainerName: o.config.DockerContainer,
	})
	if err != nil {
		return err
	}
	o.limitsController = controller
	o.logger.Info("Limits backend ready", "backend", o.config.LimitsBackend, "target", controller.Target())

	o.limitsService = limits.NewService(controller, o.logger)
	if o.publisher != nil {
		o.limitsService.SetPublisher(o.publisher)
	}
	return nil
}

func (o *Orchestrator) initializeHealth() {
	o.healthServer = health.NewServer(serviceName, o.logger)
	o.healthServer.AddCheck("user_store", true, o.userStore.Ping)

	if o.config.EnableEvents {
		o.healthServer.AddCheck("event_bus", false, func(ctx context.Context) error {
			if o.publisher == nil || !o.publisher.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		})
	}
}

// Run starts all servers and blocks until the context is cancelled or a server fails.
func (o *Orchestrator) Run(ctx context.Context) error {
	errChan := make(chan error, 3)

	go func() {
		if err := o.httpServer.Start(addr(o.config.HTTPPort)); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	go func() {
		if err := o.healthServer.StartHTTP(addr(o.config.HealthPort)); err != nil {
			errChan <- fmt.Errorf("health server error: %w", err)
		}
	}()

	go func() {
		if err := o.healthServer.StartGRPC(addr(o.config.GRPCHealthPort)); err != nil {
			errChan <- fmt.Errorf("gRPC health server error: %w", err)
		}
	}()

	o.healthServer.Evaluate(ctx)
	o.logger.Info("RunMonkey ready", "http_port", o.config.HTTPPort, "service", o.config.ServiceName)

	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			return err
		case <-ticker.C:
			if resp := o.healthServer.Evaluate(ctx); resp.Status != health.StatusHealthy {
				o.logger.Warn("Health degraded", "status", resp.Status, "checks", resp.Checks)
			}
		}
	}
}

// Stop gracefully closes all connections and releases resources.
func (o *Orchestrator) Stop() error {
	o.logger.Info("Stopping orchestrator")

	if o.httpServer != nil {
		if err := o.httpServer.Stop(); err != nil {
			o.logger.Warn("Error stopping HTTP server", "error", err)
		}
	}

	if o.healthServer != nil {
		o.healthServer.Stop()
	}

	if o.limitsController != nil {
		if err := o.limitsController.Close(); err != nil {
			o.logger.Warn("Error closing limits backend", "error", err)
		}
	}

	if o.monitoringClient != nil {
		if err := o.monitoringClient.Close(); err != nil {
			o.logger.Warn("Error closing monitoring client", "error", err)
		}
	}

	if o.userStore != nil {
		if err := o.userStore.Close(); err != nil {
			o.logger.Warn("Error closing user store", "error", err)
		}
	}

	if o.publisher != nil {
		o.publisher.Close()
	}

	o.logger.Info("Orchestrator stopped")
	return nil
}

func addr(port int) string {
	return ":" + strconv.Itoa(port)
}

// disabledQuerier backs the metric service when METRICS_BACKEND=none.
type disabledQuerier struct{}

func (disabledQuerier) QueryRaw(ctx context.Context, queryType, groupLabel, serviceName string, start, end time.Time) (*table.Raw, error) {
	return nil, apperr.Configuration("metrics backend is disabled")
}
