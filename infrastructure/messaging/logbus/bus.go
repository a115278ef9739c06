package logbus

import (
	"context"
	"fmt"
	"sync"

	"flowbuilder/application/ports"
	"flowbuilder/domain/events"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// EventMetrics records the outcome of each published event
type EventMetrics interface {
	ObserveEvent(eventType string, err error)
}

// Bus is the in-process event bus. Every event is logged, handed to the
// local subscribers and then forwarded to an optional downstream publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]ports.EventHandler
	forward  ports.EventPublisher
	metrics  EventMetrics
	logger   *zap.Logger
}

// New creates a bus. forward and metrics may be nil.
func New(forward ports.EventPublisher, metrics EventMetrics, logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]ports.EventHandler),
		forward:  forward,
		metrics:  metrics,
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type. "*" subscribes to all
// event types. Subscriptions last for the life of the bus.
func (b *Bus) Subscribe(eventType string, handler ports.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Publish delivers a single event
func (b *Bus) Publish(ctx context.Context, event events.DomainEvent) error {
	return b.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch delivers events in order. Handler errors do not stop
// delivery; all of them are returned together.
func (b *Bus) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	var errs error
	for _, event := range domainEvents {
		b.logger.Info("Domain event",
			zap.String("eventType", event.GetEventType()),
			zap.String("flowID", event.GetAggregateID()),
			zap.Int("version", event.GetVersion()),
		)

		err := b.dispatch(ctx, event)
		if b.metrics != nil {
			b.metrics.ObserveEvent(event.GetEventType(), err)
		}
		errs = multierr.Append(errs, err)
	}

	if b.forward != nil {
		if err := b.forward.PublishBatch(ctx, domainEvents); err != nil {
			b.logger.Warn("Failed to forward events", zap.Error(err), zap.Int("count", len(domainEvents)))
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

func (b *Bus) dispatch(ctx context.Context, event events.DomainEvent) error {
	b.mu.RLock()
	handlers := append(append([]ports.EventHandler{}, b.handlers[event.GetEventType()]...), b.handlers["*"]...)
	b.mu.RUnlock()

	var errs error
	for _, h := range handlers {
		if !h.CanHandle(event.GetEventType()) {
			continue
		}
		if err := h.Handle(ctx, event); err != nil {
			b.logger.Error("Event handler failed",
				zap.String("eventType", event.GetEventType()),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
