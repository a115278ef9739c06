package ports

import (
	"context"

	"flowbuilder/domain/core/aggregates"
	"flowbuilder/domain/core/valueobjects"
	"flowbuilder/domain/events"
)

// FlowRepository defines the interface for saved-flow persistence.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type FlowRepository interface {
	// Save persists a snapshot, replacing any earlier save of the same flow
	Save(ctx context.Context, snapshot aggregates.FlowSnapshot) error

	// Load retrieves the last saved snapshot of a flow
	Load(ctx context.Context, id valueobjects.FlowID) (aggregates.FlowSnapshot, error)

	// Delete removes a saved flow
	Delete(ctx context.Context, id valueobjects.FlowID) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for publishing domain events
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for an event type
	Subscribe(eventType string, handler EventHandler) error
}

// EventHandler defines the interface for handling domain events
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event
	CanHandle(eventType string) bool
}
