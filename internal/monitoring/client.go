// Package monitoring fetches raw metric time series from Google Cloud Monitoring.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/apperr"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/table"
)

var (
	// ErrNotConnected - Connect() not called or failed
	ErrNotConnected = errors.New("monitoring: not connected")
)

// Client queries Cloud Monitoring for one project.
type Client struct {
	projectID string
	timeout   time.Duration
	logger    *slog.Logger
	client    *monitoring.MetricClient
}

func NewClient(projectID string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		projectID: projectID,
		timeout:   timeout,
		logger:    logger,
	}
}

// Connect creates the underlying API client using application default credentials.
func (c *Client) Connect(ctx context.Context) error {
	if c.projectID == "" {
		return apperr.Configuration("PROJECT_ID is required for the monitoring backend")
	}

	client, err := monitoring.NewMetricClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create metric client: %w", err)
	}

	c.client = client
	c.logger.Info("Connected to Cloud Monitoring", "project", c.projectID)
	return nil
}

// QueryRaw lists every series of queryType for serviceName inside [start, end)
// and lays them out as a raw table with one column per series, labelled by groupLabel.
func (c *Client) QueryRaw(ctx context.Context, queryType, groupLabel, serviceName string, start, end time.Time) (*table.Raw, error) {
	if c.client == nil {
		return nil, apperr.Transport("monitoring client unavailable", ErrNotConnected)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := &monitoringpb.ListTimeSeriesRequest{
		Name:   "projects/" + c.projectID,
		Filter: Filter(queryType, serviceName),
		Interval: &monitoringpb.TimeInterval{
			StartTime: timestamppb.New(start),
			EndTime:   timestamppb.New(end),
		},
		View: monitoringpb.ListTimeSeriesRequest_FULL,
	}

	var series []*monitoringpb.TimeSeries
	it := c.client.ListTimeSeries(ctx, req)
	for {
		ts, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, apperr.Transport(fmt.Sprintf("failed to list %s", queryType), err)
		}
		series = append(series, ts)
	}

	c.logger.Debug("Listed time series", "type", queryType, "series", len(series))

	return ToRaw(series, groupLabel), nil
}

func (c *Client) Close() error {
	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}

// Filter builds the Monitoring filter selecting one metric type for one service.
func Filter(queryType, serviceName string) string {
	return fmt.Sprintf(`metric.type = %q AND resource.labels.service_name = %q`, queryType, serviceName)
}
