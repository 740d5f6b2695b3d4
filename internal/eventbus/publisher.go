package eventbus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectMetricsFetched = "metrics.fetched"
	SubjectLimitsUpdated  = "limits.updated"
)

// MetricsFetchedEvent summarises one all-metrics fetch.
type MetricsFetchedEvent struct {
	WindowStart int64             `json:"window_start"`
	WindowEnd   int64             `json:"window_end"`
	Rows        map[string]int    `json:"rows"`
	Failures    map[string]string `json:"failures,omitempty"`
	Timestamp   int64             `json:"timestamp"`
}

// LimitsUpdatedEvent records a successful resource-limit change.
type LimitsUpdatedEvent struct {
	Service   string  `json:"service"`
	Memory    *string `json:"memory_limit,omitempty"`
	CPU       *string `json:"cpu_limit,omitempty"`
	Actor     string  `json:"actor,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(natsURL string, logger *slog.Logger) (*Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("runmonkey"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("Connected to NATS", "url", natsURL)

	return &Publisher{
		conn:   conn,
		logger: logger,
	}, nil
}

func (p *Publisher) PublishMetricsFetched(event *MetricsFetchedEvent) error {
	if err := p.publish(SubjectMetricsFetched, event); err != nil {
		return err
	}

	p.logger.Debug("Published metrics summary", "failures", len(event.Failures))
	return nil
}

func (p *Publisher) PublishLimitsUpdated(event *LimitsUpdatedEvent) error {
	if err := p.publish(SubjectLimitsUpdated, event); err != nil {
		return err
	}

	p.logger.Info("Published limits update", "service", event.Service)
	return nil
}

func (p *Publisher) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", subject, err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
		p.logger.Info("Disconnected from NATS")
	}
}

func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}
