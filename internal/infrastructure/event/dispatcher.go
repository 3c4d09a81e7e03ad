package event

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// HandlerError names the handler that rejected an event
type HandlerError struct {
	Handler string
	Err     error
}

func (e *HandlerError) Error() string { return e.Handler + ": " + e.Err.Error() }
func (e *HandlerError) Unwrap() error { return e.Err }

// Dispatcher delivers events to in-process handlers, synchronously and in
// subscription order. Handlers subscribed without event types see every event.
type Dispatcher struct {
	logger *zap.Logger

	mu       sync.RWMutex
	byType   map[string][]shared.EventHandler
	catchAll []shared.EventHandler
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{logger: logger, byType: make(map[string][]shared.EventHandler)}
}

// Subscribe registers h for eventTypes, or for h.EventTypes() when none are given
func (d *Dispatcher) Subscribe(h shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = h.EventTypes()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(eventTypes) == 0 {
		d.catchAll = append(d.catchAll, h)
	}
	for _, t := range eventTypes {
		d.byType[t] = append(d.byType[t], h)
	}
	d.logger.Debug("Event handler subscribed",
		zap.String("handler", handlerName(h)),
		zap.Strings("event_types", eventTypes),
	)
}

func (d *Dispatcher) handlersFor(eventType string) []shared.EventHandler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Concat(d.byType[eventType], d.catchAll)
}

// Publish runs every matching handler even when an earlier one fails. The
// returned error joins one *HandlerError per failed handler.
func (d *Dispatcher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, ev := range events {
		for _, h := range d.handlersFor(ev.EventType()) {
			if err := d.deliver(ctx, h, ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	name := handlerName(h)
	ctx, span := telemetry.StartSpan(ctx, "event.handle",
		telemetry.AttrEventType.String(ev.EventType()),
		telemetry.AttrHandler.String(name),
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			err = &HandlerError{Handler: name, Err: err}
			telemetry.RecordError(span, err)
			d.logger.Error("Event handler failed",
				zap.String("handler", name),
				zap.String("event_type", ev.EventType()),
				zap.String("event_id", ev.EventID().String()),
				zap.Error(err),
			)
		}
		span.End()
	}()
	return h.Handle(ctx, ev)
}

func handlerName(h shared.EventHandler) string {
	if n, ok := h.(shared.NamedHandler); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

var _ shared.EventPublisher = (*Dispatcher)(nil)
