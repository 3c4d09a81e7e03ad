package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateTypeOrder = "Order"

// Order is the aggregate root of the checkout/payment/shipping lifecycle
type Order struct {
	shared.BaseAggregateRoot
	Number           int64
	UserID           *uuid.UUID
	Items            []Item
	Subtotal         decimal.Decimal
	ShippingCost     decimal.Decimal
	Tax              decimal.Decimal
	Total            decimal.Decimal
	Currency         string
	VATNumber        string
	VATExempt        bool
	ShippingMethod   ShippingMethod
	Address          ShippingAddress
	Status           Status
	PaymentMethod    PaymentMethod
	PaymentSessionID string
	PaymentID        string
	IsPaid           bool
	PaidAt           *time.Time
	Carrier          Carrier
	ShipmentID       string
	TrackingNumber   string
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
	CancelledAt      *time.Time
	Notes            string
}

// LineInput is a validated cart line priced from the catalog
type LineInput struct {
	ProductID uuid.UUID
	Name      string
	SKU       string
	Variant   string
	UnitPrice decimal.Decimal
	Quantity  int
}

// PlaceParams carries everything needed to create an order
type PlaceParams struct {
	UserID         *uuid.UUID
	Lines          []LineInput
	Address        ShippingAddress
	ShippingMethod ShippingMethod
	PaymentMethod  PaymentMethod
	VATNumber      string
	VATExempt      bool
	Notes          string
	Pricing        PricingPolicy
}

// New builds an unnumbered order. Cash on delivery starts in PROCESSING,
// every other payment method starts in PENDING.
func New(p PlaceParams) (*Order, error) {
	if len(p.Lines) == 0 {
		return nil, ErrEmptyOrder
	}
	if !p.ShippingMethod.IsValid() {
		return nil, ErrInvalidShippingMethod
	}
	if !p.PaymentMethod.IsValid() {
		return nil, ErrInvalidPaymentMethod
	}
	if err := p.Address.Validate(); err != nil {
		return nil, err
	}
	if err := p.Address.CompatibleWith(p.ShippingMethod); err != nil {
		return nil, err
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            p.UserID,
		Currency:          "PLN",
		VATNumber:         p.VATNumber,
		VATExempt:         p.VATExempt,
		ShippingMethod:    p.ShippingMethod,
		Address:           p.Address,
		Status:            StatusPending,
		PaymentMethod:     p.PaymentMethod,
		Notes:             strings.TrimSpace(p.Notes),
	}
	if p.PaymentMethod == PaymentMethodCOD {
		o.Status = StatusProcessing
	}

	subtotal := decimal.Zero
	for _, l := range p.Lines {
		if l.Quantity <= 0 {
			return nil, shared.ErrInvalidInput.WithMessage("quantity of %s must be positive", l.Name)
		}
		if l.UnitPrice.IsNegative() {
			return nil, shared.ErrInvalidInput.WithMessage("price of %s cannot be negative", l.Name)
		}
		item := Item{
			ID:        uuid.New(),
			OrderID:   o.ID,
			ProductID: l.ProductID,
			Name:      l.Name,
			SKU:       l.SKU,
			Variant:   l.Variant,
			UnitPrice: l.UnitPrice.Round(2),
			Quantity:  l.Quantity,
		}
		o.Items = append(o.Items, item)
		subtotal = subtotal.Add(item.LineTotal())
	}

	t := p.Pricing.Quote(subtotal, p.ShippingMethod, p.VATExempt)
	o.Subtotal, o.ShippingCost, o.Tax, o.Total = t.Subtotal, t.ShippingCost, t.Tax, t.Total
	return o, nil
}

// Place assigns the order number and records the OrderPlaced event
func (o *Order) Place(number int64) error {
	if number <= 0 {
		return shared.ErrInvalidInput.WithMessage("order number must be positive")
	}
	if o.Number != 0 {
		return shared.ErrInvalidState.WithMessage("order %d is already numbered", o.Number)
	}
	o.Number = number
	o.AddDomainEvent(NewOrderPlacedEvent(o))
	return nil
}

// Totals returns the money fields
func (o *Order) Totals() Totals {
	return Totals{Subtotal: o.Subtotal, ShippingCost: o.ShippingCost, Tax: o.Tax, Total: o.Total}
}

// CustomerEmail is where notifications go
func (o *Order) CustomerEmail() string {
	return o.Address.Recipient.Email
}

// DisplayNumber renders the number the customer sees, e.g. "DH-000123"
func (o *Order) DisplayNumber() string {
	return FormatNumber(o.Number)
}

// FormatNumber renders an order number for humans
func FormatNumber(n int64) string {
	return fmt.Sprintf("DH-%06d", n)
}

// AttachPaymentSession stores the provider session used to pay this order
func (o *Order) AttachPaymentSession(sessionID string) error {
	if o.Status != StatusPending {
		return ErrInvalidTransition.WithMessage("cannot attach a payment session to a %s order", o.Status)
	}
	o.PaymentSessionID = sessionID
	o.touch()
	return nil
}

// MarkPaid confirms payment: PENDING -> PROCESSING.
// Callers use CanMarkPaid to treat redelivered confirmations as no-ops.
func (o *Order) MarkPaid(paymentID string, at time.Time) error {
	if !o.CanMarkPaid() {
		return ErrInvalidTransition.WithMessage("order %s is %s, cannot mark as paid", o.DisplayNumber(), o.Status)
	}
	from := o.Status
	o.Status = StatusProcessing
	o.IsPaid = true
	o.PaymentID = paymentID
	o.PaidAt = &at
	o.touch()
	o.AddDomainEvent(NewOrderPaidEvent(o))
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from, "system", "", false))
	return nil
}

// CanMarkPaid reports whether a payment confirmation still applies
func (o *Order) CanMarkPaid() bool {
	return o.Status == StatusPending && !o.IsPaid
}

// RecordPaymentFailure notes a failed payment attempt without changing state.
// It returns false when the order is no longer waiting for payment.
func (o *Order) RecordPaymentFailure(reason string) bool {
	if o.Status != StatusPending {
		return false
	}
	o.AddDomainEvent(NewPaymentFailedEvent(o, reason))
	return true
}

// Cancel moves a PENDING or PROCESSING order to CANCELLED
func (o *Order) Cancel(actor, reason string) error {
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return ErrInvalidTransition.WithMessage("cannot cancel a %s order", o.Status)
	}
	o.setStatus(StatusCancelled, actor, reason, false)
	return nil
}

// Ship records the carrier shipment: PROCESSING -> SHIPPED
func (o *Order) Ship(carrier Carrier, shipmentID, trackingNumber string) error {
	if !o.Status.CanTransitionTo(StatusShipped) {
		return ErrInvalidTransition.WithMessage("cannot ship a %s order", o.Status)
	}
	if !carrier.IsValid() {
		return shared.ErrInvalidInput.WithMessage("unknown carrier %q", carrier)
	}
	if shipmentID == "" && trackingNumber == "" {
		return shared.ErrInvalidInput.WithMessage("shipment id or tracking number is required")
	}
	o.Carrier = carrier
	o.ShipmentID = shipmentID
	o.TrackingNumber = trackingNumber
	o.setStatus(StatusShipped, "system", "", false)
	o.AddDomainEvent(NewOrderShippedEvent(o))
	return nil
}

// ChangeStatus applies an admin status change validated against the transition table.
func (o *Order) ChangeStatus(to Status, actor, reason string) (StatusAudit, error) {
	if !to.IsValid() {
		return StatusAudit{}, ErrInvalidStatus.WithMessage("unknown status %q", to)
	}
	if !o.Status.CanTransitionTo(to) {
		return StatusAudit{}, ErrInvalidTransition.WithMessage("cannot change status from %s to %s", o.Status, to)
	}
	// the payment webhook owns this step: it marks the order paid and takes the stock
	if o.Status == StatusPending && to == StatusProcessing && o.PaymentMethod.IsOnline() && !o.IsPaid {
		return StatusAudit{}, ErrAwaitingPayment
	}
	from := o.Status
	o.setStatus(to, actor, reason, false)
	return newStatusAudit(o.ID, from, to, actor, reason, false), nil
}

// ForceStatus sets any status, bypassing the transition table. A reason is mandatory.
func (o *Order) ForceStatus(to Status, actor, reason string) (StatusAudit, error) {
	if !to.IsValid() {
		return StatusAudit{}, ErrInvalidStatus.WithMessage("unknown status %q", to)
	}
	if strings.TrimSpace(reason) == "" {
		return StatusAudit{}, ErrForceReasonRequired
	}
	if to == o.Status {
		return StatusAudit{}, ErrInvalidTransition.WithMessage("order is already %s", to)
	}
	from := o.Status
	o.setStatus(to, actor, reason, true)
	return newStatusAudit(o.ID, from, to, actor, reason, true), nil
}

func (o *Order) setStatus(to Status, actor, reason string, forced bool) {
	from := o.Status
	now := time.Now()
	o.Status = to
	switch to {
	case StatusShipped:
		if o.ShippedAt == nil {
			o.ShippedAt = &now
		}
	case StatusDelivered:
		o.DeliveredAt = &now
	case StatusCancelled:
		o.CancelledAt = &now
		if reason != "" {
			o.AppendNote("Cancelled: " + reason)
		}
	}
	o.touch()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from, actor, reason, forced))
}

// RecordStockShortage notes items that were oversold by the time payment arrived
func (o *Order) RecordStockShortage(lines []ShortageLine) {
	if len(lines) == 0 {
		return
	}
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%s: ordered %d, available %d", l.Name, l.Requested, l.Available))
	}
	o.AppendNote("Stock shortage at payment: " + strings.Join(parts, "; "))
	o.AddDomainEvent(NewStockShortageEvent(o, lines))
}

// UpdateDetails lets an admin fix notes and the address before shipping
func (o *Order) UpdateDetails(notes *string, address *ShippingAddress) error {
	if o.Status != StatusPending && o.Status != StatusProcessing {
		return ErrInvalidTransition.WithMessage("a %s order can no longer be edited", o.Status)
	}
	if address != nil {
		a, err := address.normalized()
		if err != nil {
			return err
		}
		if err := a.CompatibleWith(o.ShippingMethod); err != nil {
			return err
		}
		o.Address = a
	}
	if notes != nil {
		o.Notes = strings.TrimSpace(*notes)
	}
	o.touch()
	return nil
}

// AppendNote adds a line to the order notes
func (o *Order) AppendNote(line string) {
	if o.Notes == "" {
		o.Notes = line
		return
	}
	o.Notes += "\n" + line
}

// ItemByProduct returns the item for a product id
func (o *Order) ItemByProduct(productID uuid.UUID) *Item {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i]
		}
	}
	return nil
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now()
}

// Order errors
var (
	ErrOrderNotFound         = shared.NewDomainError("ORDER_NOT_FOUND", "Order not found")
	ErrEmptyOrder            = shared.NewDomainError("EMPTY_CART", "Cart is empty")
	ErrInvalidTransition     = shared.NewDomainError("INVALID_STATUS_TRANSITION", "Status transition is not allowed")
	ErrInvalidStatus         = shared.NewDomainError("INVALID_STATUS", "Unknown order status")
	ErrForceReasonRequired   = shared.NewDomainError("REASON_REQUIRED", "A reason is required to force a status")
	ErrAwaitingPayment       = shared.NewDomainError("AWAITING_PAYMENT", "An unpaid online order moves to PROCESSING when its payment settles; force the change to override")
	ErrInvalidShippingMethod = shared.NewDomainError("INVALID_SHIPPING_METHOD", "Unsupported shipping method")
	ErrInvalidPaymentMethod  = shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unsupported payment method")
)
