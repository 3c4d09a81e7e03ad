package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/payment"
	"github.com/dronehub/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// Metadata keys written on sessions and payment intents
const (
	metaOrderID     = "order_id"
	metaOrderNumber = "order_number"
)

var shippingLineNames = map[order.ShippingMethod]string{
	order.ShippingInPostLocker:  "Dostawa: InPost Paczkomat",
	order.ShippingInPostCourier: "Dostawa: Kurier InPost",
	order.ShippingGLSCourier:    "Dostawa: Kurier GLS",
}

// StripeGateway opens hosted checkout sessions and verifies Stripe webhooks
type StripeGateway struct {
	config *StripeConfig
	api    *client.API
	logger *zap.Logger
}

// NewStripeGateway creates a gateway with its own API client
func NewStripeGateway(config *StripeConfig, logger *zap.Logger) (*StripeGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &StripeGateway{
		config: config,
		api:    client.New(config.SecretKey, config.backends()),
		logger: logger,
	}, nil
}

// CreateCheckoutSession opens a hosted payment page for the order.
// The order id travels in both session and payment intent metadata so that
// every webhook type can be mapped back to the order.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	o := req.Order
	if o == nil || !o.PaymentMethod.IsOnline() {
		return nil, fmt.Errorf("stripe: order does not use an online payment method")
	}

	g.logger.Debug("Creating Stripe checkout session",
		zap.String("order_id", o.ID.String()),
		zap.Int64("order_number", o.Number),
		zap.String("payment_method", string(o.PaymentMethod)))

	metadata := map[string]string{
		metaOrderID:     o.ID.String(),
		metaOrderNumber: o.DisplayNumber(),
	}
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{string(o.PaymentMethod)}),
		LineItems:          g.lineItems(o),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		CustomerEmail:      stripe.String(o.CustomerEmail()),
		ClientReferenceID:  stripe.String(o.ID.String()),
		Locale:             stripe.String(g.config.Locale),
		ExpiresAt:          stripe.Int64(time.Now().Add(g.config.SessionTTL).Unix()),
		Metadata:           metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Description: stripe.String("Zamówienie " + o.DisplayNumber()),
			Metadata:    metadata,
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + o.ID.String())

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe checkout session",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	g.logger.Info("Created Stripe checkout session",
		zap.String("order_id", o.ID.String()),
		zap.String("session_id", sess.ID))

	out := &payment.Session{ID: sess.ID, URL: sess.URL}
	if sess.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(sess.ExpiresAt, 0)
	}
	return out, nil
}

// lineItems renders one line per product, a shipping line and a VAT line.
// Their sum equals the order total.
func (g *StripeGateway) lineItems(o *order.Order) []*stripe.CheckoutSessionLineItemParams {
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(o.Items)+2)
	for _, it := range o.Items {
		name := it.Name
		if it.Variant != "" {
			name += " (" + it.Variant + ")"
		}
		items = append(items, g.line(name, it.UnitPrice, int64(it.Quantity)))
	}
	if o.ShippingCost.IsPositive() {
		name, ok := shippingLineNames[o.ShippingMethod]
		if !ok {
			name = "Dostawa"
		}
		items = append(items, g.line(name, o.ShippingCost, 1))
	}
	if o.Tax.IsPositive() {
		items = append(items, g.line("VAT", o.Tax, 1))
	}
	return items
}

func (g *StripeGateway) line(name string, amount decimal.Decimal, qty int64) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(qty),
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(g.config.Currency),
			UnitAmount: stripe.Int64(ToMinorUnits(amount)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
		},
	}
}

// ExpireCheckoutSession closes an open session so that it can no longer be paid
func (g *StripeGateway) ExpireCheckoutSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	if _, err := g.api.CheckoutSessions.Expire(sessionID, params); err != nil {
		g.logger.Warn("Failed to expire Stripe checkout session",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return fmt.Errorf("stripe: failed to expire checkout session: %w", err)
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and maps the event
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if signature == "" {
		return nil, payment.ErrInvalidSignature.WithMessage("missing Stripe-Signature header")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		g.logger.Warn("Failed to verify webhook signature", zap.Error(err))
		return nil, payment.ErrInvalidSignature.Wrap(err)
	}
	return mapStripeEvent(event)
}

func mapStripeEvent(event stripe.Event) (*payment.Event, error) {
	out := &payment.Event{ID: event.ID, Type: string(event.Type), Kind: payment.EventIgnored}
	if event.Data == nil {
		return out, nil
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded",
		"checkout.session.expired", "checkout.session.async_payment_failed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("stripe: failed to unmarshal checkout session: %w", err)
		}
		out.SessionID = sess.ID
		out.OrderID = orderIDFrom(sess.Metadata, sess.ClientReferenceID)
		if sess.PaymentIntent != nil {
			out.PaymentID = sess.PaymentIntent.ID
		}
		switch event.Type {
		case "checkout.session.expired":
			out.Kind = payment.EventCheckoutExpired
		case "checkout.session.async_payment_failed":
			out.Kind = payment.EventPaymentFailed
			out.FailureReason = "asynchronous payment failed"
		default:
			out.Kind = payment.EventCheckoutCompleted
			out.Paid = sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
				sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
		}
		if out.PaymentID == "" {
			out.PaymentID = sess.ID
		}

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("stripe: failed to unmarshal payment intent: %w", err)
		}
		out.Kind = payment.EventPaymentFailed
		out.PaymentID = pi.ID
		out.OrderID = orderIDFrom(pi.Metadata, "")
		out.FailureReason = "payment failed"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			out.FailureReason = pi.LastPaymentError.Msg
		}
	}
	return out, nil
}

func orderIDFrom(metadata map[string]string, fallback string) uuid.UUID {
	raw := strings.TrimSpace(metadata[metaOrderID])
	if raw == "" {
		raw = fallback
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// ToMinorUnits converts a PLN amount to grosze
func ToMinorUnits(amount decimal.Decimal) int64 {
	return valueobject.NewPLN(amount).MinorUnits()
}

var _ payment.Gateway = (*StripeGateway)(nil)
