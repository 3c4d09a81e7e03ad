// Package messaging forwards order lifecycle events to Kafka for downstream
// consumers (warehouse, analytics). Delivery rides on the outbox: a failed
// write is retried by the outbox processor.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the forwarder uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter builds a synchronous writer for cfg.Topic. Messages with the same
// key (the order id) land on the same partition, keeping per-order ordering.
func NewWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
}

// OrderEventForwarder publishes order events to Kafka
type OrderEventForwarder struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewOrderEventForwarder creates a forwarder writing through w
func NewOrderEventForwarder(w MessageWriter, logger *zap.Logger) *OrderEventForwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderEventForwarder{writer: w, logger: logger}
}

// Name identifies the forwarder for idempotency keys
func (f *OrderEventForwarder) Name() string { return "kafka-order-forwarder" }

// EventTypes returns the forwarded order events
func (f *OrderEventForwarder) EventTypes() []string {
	return []string{
		order.EventTypeOrderPlaced,
		order.EventTypeOrderPaid,
		order.EventTypeOrderStatusChanged,
		order.EventTypeOrderShipped,
		order.EventTypePaymentFailed,
		order.EventTypeStockShortage,
	}
}

// Handle writes one message keyed by the order id
func (f *OrderEventForwarder) Handle(ctx context.Context, ev shared.DomainEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.EventType(), err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.AggregateID().String()),
		Value: value,
		Time:  ev.OccurredAt(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.EventType())},
			{Key: "event_id", Value: []byte(ev.EventID().String())},
			{Key: "aggregate_type", Value: []byte(ev.AggregateType())},
		},
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", ev.EventType(), err)
	}
	f.logger.Debug("Order event forwarded",
		zap.String("event_type", ev.EventType()),
		zap.String("order_id", ev.AggregateID().String()))
	return nil
}

// Close flushes and closes the writer
func (f *OrderEventForwarder) Close() error {
	return f.writer.Close()
}
