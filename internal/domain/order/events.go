package order

import (
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeOrderPlaced        = "OrderPlaced"
	EventTypeOrderPaid          = "OrderPaid"
	EventTypeOrderStatusChanged = "OrderStatusChanged"
	EventTypeOrderShipped       = "OrderShipped"
	EventTypePaymentFailed      = "OrderPaymentFailed"
	EventTypeStockShortage      = "OrderStockShortage"
)

// OrderPlacedEvent is raised when checkout persists a new order
type OrderPlacedEvent struct {
	shared.BaseDomainEvent
	OrderNumber   int64           `json:"order_number"`
	Email         string          `json:"email"`
	Status        Status          `json:"status"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	ItemCount     int             `json:"item_count"`
}

func NewOrderPlacedEvent(o *Order) *OrderPlacedEvent {
	count := 0
	for _, it := range o.Items {
		count += it.Quantity
	}
	return &OrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPlaced, AggregateTypeOrder, o.ID),
		OrderNumber:     o.Number,
		Email:           o.CustomerEmail(),
		Status:          o.Status,
		PaymentMethod:   o.PaymentMethod,
		Total:           o.Total,
		ItemCount:       count,
	}
}

// OrderPaidEvent is raised when the payment provider confirms payment
type OrderPaidEvent struct {
	shared.BaseDomainEvent
	OrderNumber int64           `json:"order_number"`
	Email       string          `json:"email"`
	PaymentID   string          `json:"payment_id"`
	Total       decimal.Decimal `json:"total"`
}

func NewOrderPaidEvent(o *Order) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaid, AggregateTypeOrder, o.ID),
		OrderNumber:     o.Number,
		Email:           o.CustomerEmail(),
		PaymentID:       o.PaymentID,
		Total:           o.Total,
	}
}

// OrderStatusChangedEvent is raised on every status change
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderNumber int64  `json:"order_number"`
	Email       string `json:"email"`
	From        Status `json:"from"`
	To          Status `json:"to"`
	Actor       string `json:"actor"`
	Reason      string `json:"reason,omitempty"`
	Forced      bool   `json:"forced"`
}

func NewOrderStatusChangedEvent(o *Order, from Status, actor, reason string, forced bool) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, o.ID),
		OrderNumber:     o.Number,
		Email:           o.CustomerEmail(),
		From:            from,
		To:              o.Status,
		Actor:           actor,
		Reason:          reason,
		Forced:          forced,
	}
}

// OrderShippedEvent is raised when a carrier shipment is created
type OrderShippedEvent struct {
	shared.BaseDomainEvent
	OrderNumber    int64   `json:"order_number"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Carrier        Carrier `json:"carrier"`
	TrackingNumber string  `json:"tracking_number"`
}

func NewOrderShippedEvent(o *Order) *OrderShippedEvent {
	return &OrderShippedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderShipped, AggregateTypeOrder, o.ID),
		OrderNumber:     o.Number,
		Email:           o.CustomerEmail(),
		Phone:           o.Address.Recipient.Phone,
		Carrier:         o.Carrier,
		TrackingNumber:  o.TrackingNumber,
	}
}

// PaymentFailedEvent is raised when the provider reports a failed payment attempt
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	OrderNumber int64  `json:"order_number"`
	Email       string `json:"email"`
	Reason      string `json:"reason"`
}

func NewPaymentFailedEvent(o *Order, reason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentFailed, AggregateTypeOrder, o.ID),
		OrderNumber:     o.Number,
		Email:           o.CustomerEmail(),
		Reason:          reason,
	}
}

// ShortageLine is one oversold item
type ShortageLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// StockShortageEvent tells the admin that a paid order could not be fully covered by stock
type StockShortageEvent struct {
	shared.BaseDomainEvent
	OrderNumber int64          `json:"order_number"`
	Lines       []ShortageLine `json:"lines"`
}

func NewStockShortageEvent(o *Order, lines []ShortageLine) *StockShortageEvent {
	return &StockShortageEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockShortage, AggregateTypeOrder, o.ID),
		OrderNumber:     o.Number,
		Lines:           lines,
	}
}
