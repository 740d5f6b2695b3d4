// Package metrics orchestrates metric fetches: window resolution, raw query,
// normalisation and the concurrent all-metrics fan-out.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/apperr"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/catalog"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/eventbus"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/normaliser"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/table"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/window"
)

// Querier fetches one raw metric table from the monitoring backend.
type Querier interface {
	QueryRaw(ctx context.Context, queryType, groupLabel, serviceName string, start, end time.Time) (*table.Raw, error)
}

// EventPublisher receives a summary after each all-metrics fetch.
type EventPublisher interface {
	PublishMetricsFetched(event *eventbus.MetricsFetchedEvent) error
}

// Outcome is one metric's result inside FetchAll: either a frame or an error.
type Outcome struct {
	Name  string
	Frame *table.Frame
	Err   error
}

// MarshalJSON encodes the frame, or the public error message as a JSON string.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Err != nil {
		return json.Marshal(o.Message())
	}
	if o.Frame == nil {
		return json.Marshal(table.EmptyFrame())
	}
	return json.Marshal(o.Frame)
}

// Message describes Err the way the API reports errors: kind and message of the
// typed error only. Backend error text stays in the logs.
func (o Outcome) Message() string {
	if o.Err == nil {
		return ""
	}

	msg := "internal error"
	if ae := apperr.As(o.Err); ae != nil {
		msg = fmt.Sprintf("%s: %s", ae.Kind, ae.Message)
	}
	if o.Name != "" {
		msg = fmt.Sprintf("metric %s: %s", o.Name, msg)
	}
	return msg
}

type Service struct {
	querier     Querier
	serviceName string
	events      EventPublisher
	logger      *slog.Logger
}

func NewService(querier Querier, serviceName string, logger *slog.Logger) *Service {
	return &Service{
		querier:     querier,
		serviceName: serviceName,
		logger:      logger,
	}
}

// SetPublisher enables metrics.fetched events. A nil publisher disables them.
func (s *Service) SetPublisher(p EventPublisher) {
	s.events = p
}

// FetchOne returns the normalised frame for one metric. An empty window returns an
// empty frame without touching the monitoring backend.
func (s *Service) FetchOne(ctx context.Context, name string, w window.Window) (*table.Frame, error) {
	desc, err := catalog.Describe(name)
	if err != nil {
		return nil, err
	}

	if w.Empty {
		return table.EmptyFrame(), nil
	}

	raw, err := s.querier.QueryRaw(ctx, desc.QueryType, desc.GroupLabel, s.serviceName, w.Start, w.End)
	if err != nil {
		if apperr.As(err) == nil {
			err = apperr.Transport("raw query failed", err)
		}
		return nil, fmt.Errorf("metric %s: %w", desc.Name, err)
	}

	frame := normaliser.Normalise(raw, desc)
	s.logger.Debug("Normalised metric", "metric", desc.Name, "raw_rows", raw.Len(), "rows", frame.Len(), "columns", len(frame.Columns))

	return frame, nil
}

// FetchAll fetches every catalog metric concurrently and waits for all of them.
// Each metric fails independently; the result always has one entry per metric.
// If ctx is cancelled the partial result is discarded.
func (s *Service) FetchAll(ctx context.Context, w window.Window) (map[string]Outcome, error) {
	names := catalog.Names()
	outcomes := make([]Outcome, len(names))

	p := pool.New()
	for i, name := range names {
		p.Go(func() {
			outcomes[i] = s.fetchGuarded(ctx, name, w)
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make(map[string]Outcome, len(names))
	event := &eventbus.MetricsFetchedEvent{
		WindowStart: w.Start.Unix(),
		WindowEnd:   w.End.Unix(),
		Rows:        make(map[string]int, len(names)),
		Failures:    make(map[string]string),
		Timestamp:   time.Now().Unix(),
	}
	for i, name := range names {
		result[name] = outcomes[i]
		if outcomes[i].Err != nil {
			s.logger.Warn("Metric fetch failed", "metric", name, "error", outcomes[i].Err)
			event.Failures[name] = outcomes[i].Err.Error()
			continue
		}
		event.Rows[name] = outcomes[i].Frame.Len()
	}

	s.publish(event)
	return result, nil
}

// fetchGuarded runs FetchOne and converts a panic into a per-metric error.
func (s *Service) fetchGuarded(ctx context.Context, name string, w window.Window) Outcome {
	out := Outcome{Name: name}
	var pc panics.Catcher
	pc.Try(func() {
		out.Frame, out.Err = s.FetchOne(ctx, name, w)
	})
	if r := pc.Recovered(); r != nil {
		out = Outcome{Name: name, Err: fmt.Errorf("metric %s: %w", name, r.AsError())}
	}
	return out
}

func (s *Service) publish(event *eventbus.MetricsFetchedEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishMetricsFetched(event); err != nil {
		s.logger.Warn("Failed to publish metrics event", "error", err)
	}
}
