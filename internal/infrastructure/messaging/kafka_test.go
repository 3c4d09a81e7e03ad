package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

type paidEvent struct {
	shared.BaseDomainEvent
	Number int64 `json:"number"`
}

func newPaidEvent() *paidEvent {
	return &paidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(order.EventTypeOrderPaid, order.AggregateTypeOrder, uuid.New()),
		Number:          42,
	}
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestOrderEventForwarder_Handle(t *testing.T) {
	w := &recordingWriter{}
	f := NewOrderEventForwarder(w, nil)
	ev := newPaidEvent()

	require.NoError(t, f.Handle(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	m := w.msgs[0]
	assert.Equal(t, ev.AggregateID().String(), string(m.Key))
	assert.Equal(t, order.EventTypeOrderPaid, header(m, "event_type"))
	assert.Equal(t, ev.EventID().String(), header(m, "event_id"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(m.Value, &body))
	assert.Equal(t, float64(42), body["number"])
	assert.Equal(t, order.EventTypeOrderPaid, body["type"])
}

func TestOrderEventForwarder_WriteErrorIsReturned(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	f := NewOrderEventForwarder(w, nil)

	err := f.Handle(context.Background(), newPaidEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestOrderEventForwarder_Subscription(t *testing.T) {
	f := NewOrderEventForwarder(&recordingWriter{}, nil)
	assert.Contains(t, f.EventTypes(), order.EventTypeOrderShipped)
	assert.Equal(t, "kafka-order-forwarder", f.Name())
	var _ shared.NamedHandler = f
}

func TestNewWriter(t *testing.T) {
	w := NewWriter(config.KafkaConfig{Brokers: []string{"kafka:9092"}, Topic: "shop.orders"})
	assert.Equal(t, "shop.orders", w.Topic)
	assert.Equal(t, "kafka:9092", w.Addr.String())
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)

	rw := &recordingWriter{}
	require.NoError(t, NewOrderEventForwarder(rw, nil).Close())
	assert.True(t, rw.closed)
}
