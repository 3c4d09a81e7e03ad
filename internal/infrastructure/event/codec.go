package event

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dronehub/backend/internal/domain/catalog"
	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/shared"
)

// ErrUnknownEventType is returned for event types the codec has no Go type for
var ErrUnknownEventType = shared.NewDomainError("UNKNOWN_EVENT_TYPE", "event type is not registered")

// Codec turns domain events into outbox payloads and back. Only registered
// types are encoded, so every stored payload can be decoded by the relay.
type Codec struct {
	mu    sync.RWMutex
	types map[string]func() shared.DomainEvent
}

func NewCodec() *Codec {
	return &Codec{types: make(map[string]func() shared.DomainEvent)}
}

// Register binds eventType to the struct E. *E must implement shared.DomainEvent.
func Register[E any, P interface {
	*E
	shared.DomainEvent
}](c *Codec, eventType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[eventType] = func() shared.DomainEvent { return P(new(E)) }
}

// NewShopCodec knows every event the shop writes to the outbox
func NewShopCodec() *Codec {
	c := NewCodec()
	Register[order.OrderPlacedEvent](c, order.EventTypeOrderPlaced)
	Register[order.OrderPaidEvent](c, order.EventTypeOrderPaid)
	Register[order.OrderStatusChangedEvent](c, order.EventTypeOrderStatusChanged)
	Register[order.OrderShippedEvent](c, order.EventTypeOrderShipped)
	Register[order.PaymentFailedEvent](c, order.EventTypePaymentFailed)
	Register[order.StockShortageEvent](c, order.EventTypeStockShortage)
	Register[catalog.ProductChangedEvent](c, catalog.EventTypeProductChanged)
	return c
}

func (c *Codec) Encode(e shared.DomainEvent) ([]byte, error) {
	if !c.Knows(e.EventType()) {
		return nil, ErrUnknownEventType.WithMessage("cannot encode %s: type is not registered", e.EventType())
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.EventType(), err)
	}
	return payload, nil
}

func (c *Codec) Decode(eventType string, payload []byte) (shared.DomainEvent, error) {
	c.mu.RLock()
	newEvent, ok := c.types[eventType]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownEventType.WithMessage("cannot decode %s: type is not registered", eventType)
	}
	e := newEvent()
	if err := json.Unmarshal(payload, e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return e, nil
}

func (c *Codec) Knows(eventType string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.types[eventType]
	return ok
}

// Types lists the registered event types in name order
func (c *Codec) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.types))
	for t := range c.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
