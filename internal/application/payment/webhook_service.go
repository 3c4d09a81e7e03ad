// Package payment applies payment provider webhooks to orders.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/payment"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultEventTTL is how long processed event ids are remembered. Stripe retries for three days.
const DefaultEventTTL = 72 * time.Hour

// Outcome describes what a webhook delivery did
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeNoop      Outcome = "noop"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID     string  `json:"event_id"`
	EventType   string  `json:"event_type"`
	Outcome     Outcome `json:"outcome"`
	OrderNumber int64   `json:"order_number,omitempty"`
	Message     string  `json:"message,omitempty"`
}

// WebhookServiceConfig contains configuration for WebhookService
type WebhookServiceConfig struct {
	Gateway     payment.Gateway
	Scope       order.TransactionScope
	Idempotency shared.IdempotencyStore
	EventTTL    time.Duration
	Metrics     *telemetry.BusinessMetrics
	Logger      *zap.Logger
}

// WebhookService handles payment provider webhook events
type WebhookService struct {
	gateway     payment.Gateway
	scope       order.TransactionScope
	idempotency shared.IdempotencyStore
	eventTTL    time.Duration
	metrics     *telemetry.BusinessMetrics
	now         func() time.Time
	logger      *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	s := &WebhookService{
		gateway:     cfg.Gateway,
		scope:       cfg.Scope,
		idempotency: cfg.Idempotency,
		eventTTL:    cfg.EventTTL,
		metrics:     cfg.Metrics,
		now:         time.Now,
		logger:      cfg.Logger,
	}
	if s.eventTTL <= 0 {
		s.eventTTL = DefaultEventTTL
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// ProcessWebhook verifies and applies one webhook delivery.
// Only signature failures and transient errors are returned; the provider retries on those.
func (s *WebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_webhook", "process")
	defer span.End()

	if s.gateway == nil {
		return nil, payment.ErrGatewayUnavailable
	}
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("Rejected webhook", zap.Error(err))
		s.metrics.RecordWebhook(ctx, telemetry.OutcomeFailed)
		return nil, err
	}
	telemetry.SetAttributes(span, "event_id", ev.ID, "event_type", ev.Type)

	log := s.logger.With(
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.Type),
		zap.String("order_id", ev.OrderID.String()))

	result := &WebhookResult{EventID: ev.ID, EventType: ev.Type}
	if ev.Kind == payment.EventIgnored {
		log.Debug("Unhandled webhook event type")
		result.Outcome = OutcomeIgnored
		s.metrics.RecordWebhook(ctx, telemetry.OutcomeIgnored)
		return result, nil
	}

	key := "payment-webhook:" + ev.ID
	if s.idempotency != nil {
		first, err := s.idempotency.MarkProcessed(ctx, key, s.eventTTL)
		if err != nil {
			// the order status guard still makes the handler safe to repeat
			log.Warn("Idempotency store unavailable", zap.Error(err))
		} else if !first {
			log.Info("Duplicate webhook delivery skipped")
			result.Outcome = OutcomeDuplicate
			s.metrics.RecordWebhook(ctx, telemetry.OutcomeDuplicate)
			return result, nil
		}
	}

	if ev.OrderID == uuid.Nil {
		log.Warn("Webhook event carries no order id")
		result.Outcome = OutcomeIgnored
		result.Message = payment.ErrMissingOrderID.Message
		s.metrics.RecordWebhook(ctx, telemetry.OutcomeIgnored)
		return result, nil
	}

	switch ev.Kind {
	case payment.EventCheckoutCompleted:
		err = s.handleCompleted(ctx, ev, result)
	case payment.EventCheckoutExpired:
		err = s.handleExpired(ctx, ev, result)
	case payment.EventPaymentFailed:
		err = s.handleFailed(ctx, ev, result)
	}

	if errors.Is(err, order.ErrOrderNotFound) {
		// acknowledged so the provider stops retrying an order that does not exist here
		log.Warn("Webhook refers to an unknown order")
		result.Outcome = OutcomeIgnored
		result.Message = "order not found"
		s.metrics.RecordWebhook(ctx, telemetry.OutcomeIgnored)
		return result, nil
	}
	if err != nil {
		log.Error("Failed to process webhook event", zap.Error(err))
		telemetry.RecordError(span, err)
		if s.idempotency != nil {
			if rerr := s.idempotency.Release(ctx, key); rerr != nil {
				log.Error("Failed to release idempotency key", zap.Error(rerr))
			}
		}
		s.metrics.RecordWebhook(ctx, telemetry.OutcomeFailed)
		return result, err
	}

	log.Info("Webhook processed",
		zap.String("outcome", string(result.Outcome)),
		zap.Int64("order_number", result.OrderNumber))
	s.metrics.RecordWebhook(ctx, telemetry.OutcomeSuccess)
	return result, nil
}

func (s *WebhookService) handleCompleted(ctx context.Context, ev *payment.Event, result *WebhookResult) error {
	if !ev.Paid {
		result.Outcome = OutcomeNoop
		result.Message = "payment not settled yet"
		return nil
	}

	var shortage []order.ShortageLine
	var method order.PaymentMethod
	err := s.scope.Execute(ctx, func(repos order.TxRepositories) error {
		o, err := repos.Orders().FindByIDForUpdate(ctx, ev.OrderID)
		if err != nil {
			return err
		}
		result.OrderNumber = o.Number
		method = o.PaymentMethod
		if !o.CanMarkPaid() {
			result.Outcome = OutcomeNoop
			result.Message = "order is " + string(o.Status)
			return nil
		}
		if ev.SessionID != "" && o.PaymentSessionID == "" {
			o.PaymentSessionID = ev.SessionID
		}
		if err := o.MarkPaid(ev.PaymentID, s.now()); err != nil {
			return err
		}

		lines := make([]order.StockLine, 0, len(o.Items))
		for _, it := range o.Items {
			lines = append(lines, order.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		results, err := repos.Stock().Decrement(ctx, lines)
		if err != nil {
			return err
		}
		shortage = shortageLines(o, results)
		o.RecordStockShortage(shortage)

		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		result.Outcome = OutcomeApplied
		return nil
	})
	if err != nil {
		return err
	}
	if result.Outcome == OutcomeApplied {
		s.metrics.RecordPayment(ctx, string(method), telemetry.OutcomeSuccess)
		s.metrics.RecordStockShortage(ctx, len(shortage))
		if len(shortage) > 0 {
			s.logger.Warn("Order paid with stock shortage",
				zap.Int64("order_number", result.OrderNumber),
				zap.Int("lines", len(shortage)))
		}
	}
	return nil
}

func shortageLines(o *order.Order, results []order.StockResult) []order.ShortageLine {
	var out []order.ShortageLine
	for _, r := range results {
		if !r.Short {
			continue
		}
		name := r.ProductID.String()
		if it := o.ItemByProduct(r.ProductID); it != nil {
			name = it.Name
		}
		out = append(out, order.ShortageLine{
			ProductID: r.ProductID,
			Name:      name,
			Requested: r.Requested,
			Available: r.Available,
		})
	}
	return out
}

func (s *WebhookService) handleExpired(ctx context.Context, ev *payment.Event, result *WebhookResult) error {
	return s.scope.Execute(ctx, func(repos order.TxRepositories) error {
		o, err := repos.Orders().FindByIDForUpdate(ctx, ev.OrderID)
		if err != nil {
			return err
		}
		result.OrderNumber = o.Number
		if o.Status != order.StatusPending || o.IsPaid {
			result.Outcome = OutcomeNoop
			result.Message = "order is " + string(o.Status)
			return nil
		}
		if err := o.Cancel("system", "payment session expired"); err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		result.Outcome = OutcomeApplied
		return nil
	})
}

func (s *WebhookService) handleFailed(ctx context.Context, ev *payment.Event, result *WebhookResult) error {
	var method order.PaymentMethod
	err := s.scope.Execute(ctx, func(repos order.TxRepositories) error {
		o, err := repos.Orders().FindByIDForUpdate(ctx, ev.OrderID)
		if err != nil {
			return err
		}
		result.OrderNumber = o.Number
		method = o.PaymentMethod
		if !o.RecordPaymentFailure(ev.FailureReason) {
			result.Outcome = OutcomeNoop
			result.Message = "order is " + string(o.Status)
			return nil
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		result.Outcome = OutcomeApplied
		return nil
	})
	if err == nil && result.Outcome == OutcomeApplied {
		s.metrics.RecordPayment(ctx, string(method), telemetry.OutcomeFailed)
	}
	return err
}
