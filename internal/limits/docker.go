package limits

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-units"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/apperr"
)

// Docker manages the limits of a local container, for running against a
// docker-compose deployment instead of Cloud Run.
type Docker struct {
	container string
	cli       *client.Client
}

func NewDocker(containerName string) (*Docker, error) {
	if containerName == "" {
		return nil, apperr.Configuration("DOCKER_CONTAINER is required")
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return &Docker{container: containerName, cli: cli}, nil
}

func (d *Docker) Target() string {
	return d.container
}

func (d *Docker) Get(ctx context.Context) (Limits, error) {
	inspect, err := d.cli.ContainerInspect(ctx, d.container)
	if err != nil {
		return Limits{}, apperr.Transport("failed to inspect container", err)
	}

	if inspect.HostConfig == nil {
		return Limits{Memory: NotSpecified, CPU: NotSpecified}, nil
	}
	return Limits{
		Memory: FormatMemory(inspect.HostConfig.Memory),
		CPU:    FormatCPU(inspect.HostConfig.NanoCPUs),
	}, nil
}

func (d *Docker) Set(ctx context.Context, memory, cpu *string) error {
	var update container.UpdateConfig

	if memory != nil {
		bytes, err := ParseMemory(*memory)
		if err != nil {
			return apperr.New(apperr.KindValidation, err.Error(), err)
		}
		update.Memory = bytes
		update.MemorySwap = bytes
	}
	if cpu != nil {
		nano, err := ParseCPU(*cpu)
		if err != nil {
			return apperr.New(apperr.KindValidation, err.Error(), err)
		}
		update.NanoCPUs = nano
	}

	if _, err := d.cli.ContainerUpdate(ctx, d.container, update); err != nil {
		return apperr.Transport("failed to update container", err)
	}
	return nil
}

func (d *Docker) Close() error {
	if d.cli != nil {
		err := d.cli.Close()
		d.cli = nil
		return err
	}
	return nil
}

// ParseMemory converts "512Mi", "1Gi" or "256m" into bytes.
func ParseMemory(s string) (int64, error) {
	s = strings.TrimSpace(s)
	// go-units wants "MiB"; Kubernetes-style quantities stop at "Mi".
	if strings.HasSuffix(s, "i") || strings.HasSuffix(s, "I") {
		s += "B"
	}

	bytes, err := units.RAMInBytes(s)
	if err != nil || bytes <= 0 {
		return 0, fmt.Errorf("%w: memory %q", ErrInvalidQuantity, s)
	}
	return bytes, nil
}

// ParseCPU converts whole or fractional cores ("2", "0.5") or millicores ("500m")
// into Docker NanoCPUs.
func ParseCPU(s string) (int64, error) {
	s = strings.TrimSpace(s)

	if milli, ok := strings.CutSuffix(s, "m"); ok {
		n, err := strconv.ParseInt(milli, 10, 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%w: cpu %q", ErrInvalidQuantity, s)
		}
		return n * 1_000_000, nil
	}

	cores, err := strconv.ParseFloat(s, 64)
	if err != nil || cores <= 0 {
		return 0, fmt.Errorf("%w: cpu %q", ErrInvalidQuantity, s)
	}
	return int64(cores * 1e9), nil
}

// FormatMemory renders bytes as Gi or Mi.
func FormatMemory(bytes int64) string {
	switch {
	case bytes <= 0:
		return NotSpecified
	case bytes%units.GiB == 0:
		return fmt.Sprintf("%dGi", bytes/units.GiB)
	default:
		return fmt.Sprintf("%dMi", bytes/units.MiB)
	}
}

// FormatCPU renders NanoCPUs as millicores.
func FormatCPU(nano int64) string {
	if nano <= 0 {
		return NotSpecified
	}
	return fmt.Sprintf("%dm", nano/1_000_000)
}
