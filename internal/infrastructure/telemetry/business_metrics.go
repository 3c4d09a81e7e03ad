package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/dronehub/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks the shop funnel: orders, payments, webhooks,
// shipments and notifications. A nil *BusinessMetrics records nothing.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	orderCreatedTotal   *Counter
	orderAmountTotal    *Counter
	paymentTotal        *Counter
	webhookEventTotal   *Counter
	stockShortageTotal  *Counter
	notificationTotal   *Counter
	shipmentTotal       *Counter
	outboxDeliveryTotal *Counter
	eventDuplicateTotal *Counter
	integrationDuration *Histogram
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// IntegrationBuckets are bucket boundaries for calls to carriers, VIES, FX and Stripe (seconds).
var IntegrationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	counters := []struct {
		dst         **Counter
		name        string
		description string
		unit        string
	}{
		{&bm.orderCreatedTotal, "shop_order_created_total", "Total number of orders placed at checkout", "{orders}"},
		{&bm.orderAmountTotal, "shop_order_amount_total", "Total gross order value in grosze", "{grosze}"},
		{&bm.paymentTotal, "shop_payment_total", "Payment outcomes reported by the provider", "{payments}"},
		{&bm.webhookEventTotal, "shop_webhook_event_total", "Payment webhook deliveries by outcome", "{events}"},
		{&bm.stockShortageTotal, "shop_stock_shortage_total", "Order lines oversold at payment time", "{lines}"},
		{&bm.notificationTotal, "shop_notification_total", "Notifications by channel, template and outcome", "{messages}"},
		{&bm.shipmentTotal, "shop_shipment_total", "Carrier shipments by outcome", "{shipments}"},
		{&bm.outboxDeliveryTotal, "shop_outbox_delivery_total", "Outbox delivery attempts by event type and outcome", "{events}"},
		{&bm.eventDuplicateTotal, "shop_event_duplicate_total", "Events a handler had already processed", "{events}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	var err error
	bm.integrationDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "shop_integration_duration_seconds",
		Description: "Latency of calls to external services",
		Unit:        "s",
		Boundaries:  IntegrationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// Outcome labels
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeDead      = "dead"
)

// RecordOrderCreated counts an order and adds its gross total
func (bm *BusinessMetrics) RecordOrderCreated(ctx context.Context, paymentMethod, shippingMethod string, total decimal.Decimal) {
	if bm == nil {
		return
	}
	bm.orderCreatedTotal.Inc(ctx,
		AttrPaymentMethod.String(paymentMethod),
		AttrShippingMethod.String(shippingMethod),
	)
	bm.orderAmountTotal.Add(ctx, valueobject.NewPLN(total).MinorUnits(),
		AttrPaymentMethod.String(paymentMethod),
	)
}

// RecordPayment counts a payment outcome
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, paymentMethod, outcome string) {
	if bm == nil {
		return
	}
	bm.paymentTotal.Inc(ctx,
		AttrPaymentMethod.String(paymentMethod),
		AttrOutcome.String(outcome),
	)
}

// RecordWebhook counts a webhook delivery
func (bm *BusinessMetrics) RecordWebhook(ctx context.Context, outcome string) {
	if bm == nil {
		return
	}
	bm.webhookEventTotal.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordStockShortage counts oversold lines
func (bm *BusinessMetrics) RecordStockShortage(ctx context.Context, lines int) {
	if bm == nil || lines == 0 {
		return
	}
	bm.stockShortageTotal.Add(ctx, int64(lines))
}

// RecordNotification counts a delivery attempt
func (bm *BusinessMetrics) RecordNotification(ctx context.Context, channel, template, outcome string) {
	if bm == nil {
		return
	}
	bm.notificationTotal.Inc(ctx,
		AttrChannel.String(channel),
		AttrTemplate.String(template),
		AttrOutcome.String(outcome),
	)
}

// RecordShipment counts a carrier shipment attempt
func (bm *BusinessMetrics) RecordShipment(ctx context.Context, carrier, outcome string) {
	if bm == nil {
		return
	}
	bm.shipmentTotal.Inc(ctx,
		AttrCarrier.String(carrier),
		AttrOutcome.String(outcome),
	)
}

// RecordOutboxDelivery counts one relay attempt
func (bm *BusinessMetrics) RecordOutboxDelivery(ctx context.Context, eventType, outcome string) {
	if bm == nil {
		return
	}
	bm.outboxDeliveryTotal.Inc(ctx,
		AttrEventType.String(eventType),
		AttrOutcome.String(outcome),
	)
}

// RecordEventDuplicate counts a redelivery skipped by a handler
func (bm *BusinessMetrics) RecordEventDuplicate(ctx context.Context, handler, eventType string) {
	if bm == nil {
		return
	}
	bm.eventDuplicateTotal.Inc(ctx,
		AttrHandler.String(handler),
		AttrEventType.String(eventType),
	)
}

// ObserveIntegration records the latency of one external call
func (bm *BusinessMetrics) ObserveIntegration(ctx context.Context, service string, d time.Duration, err error) {
	if bm == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailed
	}
	bm.integrationDuration.RecordDuration(ctx, d,
		AttrIntegration.String(service),
		AttrOutcome.String(outcome),
	)
}

// ErrMeterNil is returned by NewBusinessMetrics without a meter
var ErrMeterNil = errors.New("business metrics need a meter")
