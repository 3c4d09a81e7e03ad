package shared

import "context"

// EventHandler handles domain events
type EventHandler interface {
	// Handle processes a domain event. A returned error makes the outbox retry the event.
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes returns the event types this handler is interested in.
	// An empty slice means the handler receives all events.
	EventTypes() []string
}

// NamedHandler is implemented by handlers that need a stable identity,
// e.g. for per-handler idempotency keys.
type NamedHandler interface {
	EventHandler
	Name() string
}

// EventPublisher hands events to the subscribed handlers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// TxEventSaver writes events to the outbox inside an open database transaction.
// tx is the transaction handle of the persistence layer (*gorm.DB).
type TxEventSaver interface {
	SaveEvents(ctx context.Context, tx any, events ...DomainEvent) error
}
