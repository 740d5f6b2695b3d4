package limits

import (
	"context"
	"fmt"

	run "cloud.google.com/go/run/apiv2"
	"cloud.google.com/go/run/apiv2/runpb"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/apperr"
)

// CloudRun manages the limits of the first container of a Cloud Run service.
type CloudRun struct {
	name   string
	client *run.ServicesClient
}

func NewCloudRun(ctx context.Context, projectID, region, serviceName string) (*CloudRun, error) {
	name, err := ResourceName(projectID, region, serviceName)
	if err != nil {
		return nil, err
	}

	client, err := run.NewServicesClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud Run client: %w", err)
	}

	return &CloudRun{name: name, client: client}, nil
}

// ResourceName builds the fully qualified service name. Every part is required:
// mutation calls must never fall back to placeholder identifiers.
func ResourceName(projectID, region, serviceName string) (string, error) {
	required := []struct{ key, value string }{
		{"PROJECT_ID", projectID},
		{"SERVICE_REGION", region},
		{"SERVICE_NAME", serviceName},
	}
	for _, r := range required {
		if r.value == "" {
			return "", apperr.Configuration(fmt.Sprintf("%s is required", r.key))
		}
	}
	return fmt.Sprintf("projects/%s/locations/%s/services/%s", projectID, region, serviceName), nil
}

func (c *CloudRun) Target() string {
	return c.name
}

func (c *CloudRun) Get(ctx context.Context) (Limits, error) {
	svc, err := c.client.GetService(ctx, &runpb.GetServiceRequest{Name: c.name})
	if err != nil {
		return Limits{}, apperr.Transport("get service", err)
	}
	return readLimits(svc)
}

// Set rewrites the limits on the service template and waits for the rollout.
func (c *CloudRun) Set(ctx context.Context, memory, cpu *string) error {
	svc, err := c.client.GetService(ctx, &runpb.GetServiceRequest{Name: c.name})
	if err != nil {
		return apperr.Transport("get service", err)
	}

	if err := applyLimits(svc, memory, cpu); err != nil {
		return err
	}

	op, err := c.client.UpdateService(ctx, &runpb.UpdateServiceRequest{Service: svc})
	if err != nil {
		return apperr.Transport("update service", err)
	}

	if _, err := op.Wait(ctx); err != nil {
		return apperr.Transport("wait for service update", err)
	}
	return nil
}

func (c *CloudRun) Close() error {
	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}

func readLimits(svc *runpb.Service) (Limits, error) {
	containers := svc.GetTemplate().GetContainers()
	if len(containers) == 0 {
		return Limits{}, ErrNoContainers
	}

	l := Limits{Memory: NotSpecified, CPU: NotSpecified}
	limits := containers[0].GetResources().GetLimits()
	if v, ok := limits["memory"]; ok {
		l.Memory = v
	}
	if v, ok := limits["cpu"]; ok {
		l.CPU = v
	}
	return l, nil
}

func applyLimits(svc *runpb.Service, memory, cpu *string) error {
	containers := svc.GetTemplate().GetContainers()
	if len(containers) == 0 {
		return ErrNoContainers
	}

	c := containers[0]
	if c.Resources == nil {
		c.Resources = &runpb.ResourceRequirements{}
	}
	if c.Resources.Limits == nil {
		c.Resources.Limits = make(map[string]string)
	}

	if memory != nil {
		c.Resources.Limits["memory"] = *memory
	}
	if cpu != nil {
		c.Resources.Limits["cpu"] = *cpu
	}
	return nil
}
