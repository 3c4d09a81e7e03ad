package event

import (
	"context"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultDedupTTL outlives the relay's longest backoff and Stripe's retry window
const DefaultDedupTTL = 72 * time.Hour

// IdempotentHandler lets the wrapped handler see each event at most once per
// TTL. The relay retries a whole event when any handler fails, so handlers
// that already succeeded must skip the redelivery.
type IdempotentHandler struct {
	inner   shared.EventHandler
	store   shared.IdempotencyStore
	ttl     time.Duration
	metrics *telemetry.BusinessMetrics
	logger  *zap.Logger
}

type IdempotentOption func(*IdempotentHandler)

// WithDuplicateMetrics counts skipped redeliveries
func WithDuplicateMetrics(m *telemetry.BusinessMetrics) IdempotentOption {
	return func(h *IdempotentHandler) { h.metrics = m }
}

// NewIdempotentHandler wraps inner; ttl <= 0 means DefaultDedupTTL
func NewIdempotentHandler(inner shared.EventHandler, store shared.IdempotencyStore, ttl time.Duration, logger *zap.Logger, opts ...IdempotentOption) *IdempotentHandler {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{inner: inner, store: store, ttl: ttl, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) Name() string         { return handlerName(h.inner) }
func (h *IdempotentHandler) EventTypes() []string { return h.inner.EventTypes() }

// Unwrap returns the wrapped handler
func (h *IdempotentHandler) Unwrap() shared.EventHandler { return h.inner }

func dedupKey(handler string, ev shared.DomainEvent) string {
	return "handler:" + handler + ":" + ev.EventID().String()
}

func (h *IdempotentHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	name := h.Name()
	key := dedupKey(name, ev)

	first, err := h.store.MarkProcessed(ctx, key, h.ttl)
	switch {
	case err != nil:
		// a duplicate email beats a lost one
		h.logger.Warn("Idempotency store unavailable, handling anyway",
			zap.String("handler", name),
			zap.String("event_id", ev.EventID().String()),
			zap.Error(err),
		)
	case !first:
		h.metrics.RecordEventDuplicate(ctx, name, ev.EventType())
		h.logger.Debug("Skipping event already handled",
			zap.String("handler", name),
			zap.String("event_type", ev.EventType()),
			zap.String("event_id", ev.EventID().String()),
		)
		return nil
	}

	if herr := h.inner.Handle(ctx, ev); herr != nil {
		if err == nil {
			if rerr := h.store.Release(ctx, key); rerr != nil {
				h.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(rerr))
			}
		}
		return herr
	}
	return nil
}

var _ shared.NamedHandler = (*IdempotentHandler)(nil)
