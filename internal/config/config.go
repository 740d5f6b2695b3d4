package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Listeners
	HTTPPort       int
	HealthPort     int
	GRPCHealthPort int
	CORSOrigin     string

	// Auth
	JWTSecret     string
	JWTTTL        time.Duration
	AdminUsername string
	AdminPassword string

	// Credential store
	UserStore    string
	UserStoreDSN string

	// Target service. MonitoredServiceName filters the metric queries; empty
	// means ServiceName, the service whose limits are managed.
	ProjectID            string
	ServiceName          string
	MonitoredServiceName string
	ServiceRegion        string
	MetricsBackend       string
	QueryTimeout         time.Duration

	LimitsBackend   string
	DockerContainer string

	// Events
	NatsURL      string
	EnableEvents bool

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	// Try multiple .env locations
	envPaths := []string{
		".env",
		"../.env",
		"/app/.env", // Docker
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("Loaded config", "path", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		slog.Info("No .env file found, using environment variables")
	}

	config := &Config{
		CORSOrigin: getEnvOrDefault("CORS_ORIGIN", "*"),

		JWTSecret:     os.Getenv("JWT_SECRET_KEY"),
		AdminUsername: getEnvOrDefault("ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		UserStore:    strings.ToLower(getEnvOrDefault("USER_STORE", "memory")),
		UserStoreDSN: os.Getenv("USER_STORE_DSN"),

		ProjectID:            os.Getenv("PROJECT_ID"),
		ServiceName:          os.Getenv("SERVICE_NAME"),
		MonitoredServiceName: os.Getenv("MONITORED_SERVICE_NAME"),
		ServiceRegion:        os.Getenv("SERVICE_REGION"),
		MetricsBackend:       strings.ToLower(getEnvOrDefault("METRICS_BACKEND", "monitoring")),

		LimitsBackend:   strings.ToLower(getEnvOrDefault("LIMITS_BACKEND", "cloudrun")),
		DockerContainer: os.Getenv("DOCKER_CONTAINER"),

		NatsURL:      getEnvOrDefault("NATS_URL", "nats://localhost:4222"),
		EnableEvents: getEnvOrDefault("ENABLE_EVENTS", "false") == "true",

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}

	var err error
	if config.HTTPPort, err = parseIntOrDefault("HTTP_PORT", 5001); err != nil {
		return nil, err
	}
	if config.HealthPort, err = parseIntOrDefault("HEALTH_PORT", 8080); err != nil {
		return nil, err
	}
	if config.GRPCHealthPort, err = parseIntOrDefault("GRPC_HEALTH_PORT", 50055); err != nil {
		return nil, err
	}
	if config.JWTTTL, err = parseDurationOrDefault("JWT_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if config.QueryTimeout, err = parseDurationOrDefault("QUERY_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}

	switch c.MetricsBackend {
	case "monitoring":
		if c.ProjectID == "" {
			return fmt.Errorf("PROJECT_ID is required")
		}
		if c.MonitoredService() == "" {
			return fmt.Errorf("SERVICE_NAME or MONITORED_SERVICE_NAME is required")
		}
	case "none":
	default:
		return fmt.Errorf("METRICS_BACKEND must be one of monitoring, none (got %q)", c.MetricsBackend)
	}

	switch c.LimitsBackend {
	case "cloudrun", "cloud_run":
		required := []struct{ name, value string }{
			{"PROJECT_ID", c.ProjectID},
			{"SERVICE_REGION", c.ServiceRegion},
			{"SERVICE_NAME", c.ServiceName},
		}
		for _, r := range required {
			if r.value == "" {
				return fmt.Errorf("%s is required", r.name)
			}
		}
	case "docker":
		if c.DockerContainer == "" {
			return fmt.Errorf("DOCKER_CONTAINER is required")
		}
	default:
		return fmt.Errorf("LIMITS_BACKEND must be one of cloudrun, docker (got %q)", c.LimitsBackend)
	}

	switch c.UserStore {
	case "memory":
	case "redis", "postgres", "postgresql", "mysql", "mongo", "mongodb":
		if c.UserStoreDSN == "" {
			return fmt.Errorf("USER_STORE_DSN is required")
		}
	default:
		return fmt.Errorf("USER_STORE must be one of memory, redis, postgres, mysql, mongo (got %q)", c.UserStore)
	}

	ports := map[string]int{
		"HTTP_PORT":        c.HTTPPort,
		"HEALTH_PORT":      c.HealthPort,
		"GRPC_HEALTH_PORT": c.GRPCHealthPort,
	}
	for name, port := range ports {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s must be between 1 and 65535", name)
		}
	}

	if c.QueryTimeout < time.Second {
		return fmt.Errorf("QUERY_TIMEOUT must be at least 1 second")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}

	return nil
}

// MonitoredService is the service_name used to filter metric queries.
func (c *Config) MonitoredService() string {
	if c.MonitoredServiceName != "" {
		return c.MonitoredServiceName
	}
	return c.ServiceName
}

// Helper function for defaults
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
