package notification

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dronehub/backend/internal/domain/notification"
	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/setting"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/domain/shipping"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	channelEmail = "email"
	channelSMS   = "sms"
)

// MessageData is what every template receives
type MessageData struct {
	Order       *order.Order
	Number      string
	AddressLine string
	Carrier     string
	TrackingURL string
	TrackURL    string
	AdminURL    string
	Reason      string
	Shortage    []order.ShortageLine
}

// Config holds the dependencies shared by the notification handlers
type Config struct {
	Orders   order.Repository
	Settings setting.Reader
	Mailer   notification.Mailer
	SMS      notification.SMSSender
	Renderer *Renderer
	// PublicURL is the storefront origin, AdminURL the admin panel origin
	PublicURL string
	AdminURL  string
	Metrics   *telemetry.BusinessMetrics
	Logger    *zap.Logger
}

type sender struct {
	Config
}

func newSender(cfg Config) sender {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	cfg.AdminURL = strings.TrimRight(cfg.AdminURL, "/")
	return sender{Config: cfg}
}

// load returns nil without error when the order no longer exists
func (s *sender) load(ctx context.Context, ev shared.DomainEvent) (*order.Order, error) {
	o, err := s.Orders.FindByID(ctx, ev.AggregateID())
	if errors.Is(err, order.ErrOrderNotFound) {
		s.Logger.Warn("Order of event no longer exists",
			zap.String("event_type", ev.EventType()),
			zap.String("order_id", ev.AggregateID().String()))
		return nil, nil
	}
	return o, err
}

func (s *sender) data(o *order.Order) *MessageData {
	return &MessageData{
		Order:       o,
		Number:      o.DisplayNumber(),
		AddressLine: addressLine(o.Address),
		Carrier:     carrierLabel(o.Carrier),
		TrackingURL: shipping.TrackingURL(o.Carrier, o.TrackingNumber),
		TrackURL:    fmt.Sprintf("%s/orders/track/%d?email=%s", s.PublicURL, o.Number, url.QueryEscape(o.CustomerEmail())),
		AdminURL:    fmt.Sprintf("%s/orders/%s", s.AdminURL, o.ID),
	}
}

// send renders and delivers one email. Missing configuration and recipients are
// permanent conditions: they are logged and not retried.
func (s *sender) send(ctx context.Context, template string, to []string, data *MessageData) error {
	msg, err := s.Renderer.Render(template, to, data)
	if err != nil {
		return err
	}
	err = s.Mailer.Send(ctx, msg)
	switch {
	case err == nil:
		s.Metrics.RecordNotification(ctx, channelEmail, template, telemetry.OutcomeSuccess)
		return nil
	case errors.Is(err, notification.ErrNotConfigured), errors.Is(err, notification.ErrNoRecipient):
		s.Logger.Warn("Email skipped", zap.String("template", template), zap.Error(err))
		s.Metrics.RecordNotification(ctx, channelEmail, template, telemetry.OutcomeIgnored)
		return nil
	default:
		s.Metrics.RecordNotification(ctx, channelEmail, template, telemetry.OutcomeFailed)
		return fmt.Errorf("send %s to %s: %w", template, strings.Join(to, ","), err)
	}
}

func addressLine(a order.ShippingAddress) string {
	if a.Kind == order.AddressKindLocker {
		return "Paczkomat " + a.LockerID
	}
	if a.Street == nil {
		return ""
	}
	return fmt.Sprintf("%s, %s %s", a.Street.Line1(), a.Street.PostalCode, a.Street.City)
}

func carrierLabel(c order.Carrier) string {
	switch c {
	case order.CarrierInPost:
		return "InPost"
	case order.CarrierGLS:
		return "GLS"
	}
	return string(c)
}

// CustomerNotifier emails the buyer about their order and texts them when it ships
type CustomerNotifier struct {
	sender
}

// NewCustomerNotifier creates the customer notification handler
func NewCustomerNotifier(cfg Config) *CustomerNotifier {
	return &CustomerNotifier{sender: newSender(cfg)}
}

// Name is the idempotency scope of the handler
func (h *CustomerNotifier) Name() string { return "customer-notifier" }

// EventTypes returns the handled order events
func (h *CustomerNotifier) EventTypes() []string {
	return []string{
		order.EventTypeOrderPlaced,
		order.EventTypeOrderPaid,
		order.EventTypeOrderShipped,
		order.EventTypeOrderStatusChanged,
		order.EventTypePaymentFailed,
	}
}

// Handle sends the message that matches the event
func (h *CustomerNotifier) Handle(ctx context.Context, ev shared.DomainEvent) error {
	var template, reason string
	switch e := ev.(type) {
	case *order.OrderPlacedEvent:
		// online orders are confirmed once the payment arrives
		if e.PaymentMethod.IsOnline() {
			return nil
		}
		template = TemplateOrderReceived
	case *order.OrderPaidEvent:
		template = TemplatePaymentConfirmed
	case *order.OrderShippedEvent:
		template = TemplateOrderShipped
	case *order.OrderStatusChangedEvent:
		// SHIPPED and PROCESSING have their own messages
		if e.To != order.StatusDelivered && e.To != order.StatusCancelled {
			return nil
		}
		template, reason = TemplateStatusChanged, e.Reason
	case *order.PaymentFailedEvent:
		template, reason = TemplatePaymentFailed, e.Reason
	default:
		return nil
	}

	o, err := h.load(ctx, ev)
	if err != nil || o == nil {
		return err
	}
	data := h.data(o)
	data.Reason = reason
	if err := h.send(ctx, template, []string{o.CustomerEmail()}, data); err != nil {
		return err
	}
	if template == TemplateOrderShipped {
		h.sendShippedSMS(ctx, o, data)
	}
	return nil
}

// sendShippedSMS is best effort; a failed text never retries the email
func (h *CustomerNotifier) sendShippedSMS(ctx context.Context, o *order.Order, data *MessageData) {
	if h.SMS == nil || !h.SMS.Enabled(ctx) {
		return
	}
	text := fmt.Sprintf("DroneHub: zamowienie %s wyslane (%s), nr przesylki %s.", data.Number, data.Carrier, o.TrackingNumber)
	if data.TrackingURL != "" {
		text += " " + data.TrackingURL
	}
	outcome := telemetry.OutcomeSuccess
	if err := h.SMS.Send(ctx, notification.SMS{To: o.Address.Recipient.Phone, Text: text}); err != nil {
		outcome = telemetry.OutcomeFailed
		h.Logger.Warn("Failed to send shipment SMS", zap.Int64("order_number", o.Number), zap.Error(err))
	}
	h.Metrics.RecordNotification(ctx, channelSMS, TemplateOrderShipped, outcome)
}

// AdminNotifier emails the shop operator about new, paid and oversold orders
type AdminNotifier struct {
	sender
}

// NewAdminNotifier creates the admin notification handler
func NewAdminNotifier(cfg Config) *AdminNotifier {
	return &AdminNotifier{sender: newSender(cfg)}
}

// Name is the idempotency scope of the handler
func (h *AdminNotifier) Name() string { return "admin-notifier" }

// EventTypes returns the handled order events
func (h *AdminNotifier) EventTypes() []string {
	return []string{
		order.EventTypeOrderPlaced,
		order.EventTypeOrderPaid,
		order.EventTypeStockShortage,
	}
}

// Handle sends the admin message that matches the event
func (h *AdminNotifier) Handle(ctx context.Context, ev shared.DomainEvent) error {
	var template string
	var shortage []order.ShortageLine
	switch e := ev.(type) {
	case *order.OrderPlacedEvent:
		template = TemplateAdminNewOrder
	case *order.OrderPaidEvent:
		template = TemplateAdminOrderPaid
	case *order.StockShortageEvent:
		template, shortage = TemplateAdminStockShortage, e.Lines
	default:
		return nil
	}

	admin, ok, err := h.Settings.Get(ctx, setting.EmailAdminAddress)
	if err != nil {
		return fmt.Errorf("read %s: %w", setting.EmailAdminAddress, err)
	}
	if !ok || strings.TrimSpace(admin) == "" {
		h.Logger.Warn("Admin email skipped, no admin address configured",
			zap.String("template", template),
			zap.String("setting", setting.EmailAdminAddress))
		return nil
	}

	o, err := h.load(ctx, ev)
	if err != nil || o == nil {
		return err
	}
	data := h.data(o)
	data.Shortage = shortage
	return h.send(ctx, template, splitAddresses(admin), data)
}

func splitAddresses(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' || r == ' ' })
}

var (
	_ shared.NamedHandler = (*CustomerNotifier)(nil)
	_ shared.NamedHandler = (*AdminNotifier)(nil)
)
