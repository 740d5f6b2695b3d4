package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/config"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/logger"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/orchestrator"
)

// main is the entry point for RunMonkey.
//
// RunMonkey is responsible for:
//   - Authenticating API users and managing the credential store
//   - Serving normalised Cloud Run metrics from Cloud Monitoring
//   - Reading and changing the service's CPU and memory limits
//   - Publishing limit changes and metric fetches to NATS when enabled
//
// Lifecycle:
//  1. Load configuration from environment variables
//  2. Initialize orchestrator with stores, backends and servers
//  3. Serve the API, /health and gRPC health until SIGINT or SIGTERM
//  4. Gracefully close all connections on shutdown
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	log.Info("RunMonkey starting",
		"http_port", cfg.HTTPPort,
		"health_port", cfg.HealthPort,
		"grpc_health_port", cfg.GRPCHealthPort,
		"user_store", cfg.UserStore,
		"metrics_backend", cfg.MetricsBackend,
		"limits_backend", cfg.LimitsBackend,
		"service", cfg.ServiceName,
		"monitored_service", cfg.MonitoredService(),
		"events", cfg.EnableEvents,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := orchestrator.NewOrchestrator(cfg, log)

	if err := orch.Start(ctx); err != nil {
		log.Error("Failed to start orchestrator", "error", err)
		orch.Stop()
		os.Exit(1)
	}

	if err := orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Orchestrator error", "error", err)
	}

	log.Info("Shutdown signal received, initiating graceful shutdown")

	if err := orch.Stop(); err != nil {
		log.Error("Error during shutdown", "error", err)
	}

	log.Info("RunMonkey stopped")
}
