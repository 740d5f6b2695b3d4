package limits

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/apperr"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/eventbus"
)

type EventPublisher interface {
	PublishLimitsUpdated(event *eventbus.LimitsUpdatedEvent) error
}

// Service validates limit requests before handing them to a Controller.
type Service struct {
	controller Controller
	events     EventPublisher
	logger     *slog.Logger
}

func NewService(controller Controller, logger *slog.Logger) *Service {
	return &Service{
		controller: controller,
		logger:     logger,
	}
}

// SetPublisher enables limits.updated events. A nil publisher disables them.
func (s *Service) SetPublisher(p EventPublisher) {
	s.events = p
}

func (s *Service) Get(ctx context.Context) (Limits, error) {
	l, err := s.controller.Get(ctx)
	if err != nil {
		return Limits{}, fmt.Errorf("failed to fetch resource limits: %w", err)
	}
	return l, nil
}

// Set changes the memory and/or cpu limit. Blank values count as absent; with
// both absent the call fails before the backend is contacted.
func (s *Service) Set(ctx context.Context, actor string, memory, cpu *string) error {
	memory, cpu = blankToNil(memory), blankToNil(cpu)
	if memory == nil && cpu == nil {
		return apperr.Validation("at least one of memory_limit or cpu_limit is required")
	}

	s.logger.Info("Updating resource limits", "target", s.controller.Target(), "memory", deref(memory), "cpu", deref(cpu))

	if err := s.controller.Set(ctx, memory, cpu); err != nil {
		return fmt.Errorf("failed to update %s: %w", s.controller.Target(), err)
	}

	s.logger.Info("Resource limits updated", "target", s.controller.Target())

	if s.events != nil {
		event := &eventbus.LimitsUpdatedEvent{
			Service:   s.controller.Target(),
			Memory:    memory,
			CPU:       cpu,
			Actor:     actor,
			Timestamp: time.Now().Unix(),
		}
		if err := s.events.PublishLimitsUpdated(event); err != nil {
			s.logger.Warn("Failed to publish limits event", "error", err)
		}
	}

	return nil
}

func blankToNil(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
