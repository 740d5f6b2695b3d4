// Package limits reads and changes the CPU/memory limits of the managed service.
package limits

import (
	"context"
	"errors"
)

// NotSpecified is reported for a limit the backend has no value for.
const NotSpecified = "Not specified"

// Limits are the current resource limits in backend notation, e.g. "512Mi" and "1000m".
type Limits struct {
	Memory string `json:"memory_limit"`
	CPU    string `json:"cpu_limit"`
}

// Controller is a resource-limit backend. Set receives at least one non-nil value.
type Controller interface {
	Get(ctx context.Context) (Limits, error)
	Set(ctx context.Context, memory, cpu *string) error
	Target() string
	Close() error
}

var (
	// ErrNoContainers - the service definition has no container to read limits from
	ErrNoContainers = errors.New("limits: service has no containers")

	// ErrUnsupportedBackend - LIMITS_BACKEND names no known controller
	ErrUnsupportedBackend = errors.New("limits: unsupported backend")

	// ErrInvalidQuantity - a memory or cpu value could not be parsed
	ErrInvalidQuantity = errors.New("limits: invalid quantity")
)

// Settings identifies the workload whose limits are managed.
type Settings struct {
	ProjectID     string
	Region        string
	ServiceName   string
	ContainerName string
}

func NewController(ctx context.Context, backend string, s Settings) (Controller, error) {
	switch backend {
	case "cloudrun", "cloud_run":
		c, err := NewCloudRun(ctx, s.ProjectID, s.Region, s.ServiceName)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "docker":
		d, err := NewDocker(s.ContainerName)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, ErrUnsupportedBackend
	}
}
