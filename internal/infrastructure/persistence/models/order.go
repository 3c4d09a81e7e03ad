package models

import (
	"time"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate.
// The shipping address is flattened into columns.
type OrderModel struct {
	AggregateModel
	OrderNumber  int64           `gorm:"not null;uniqueIndex"`
	UserID       *uuid.UUID      `gorm:"type:uuid;index"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ShippingCost decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Tax          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency     string          `gorm:"type:varchar(3);not null;default:'PLN'"`
	VATNumber    string          `gorm:"column:vat_number;type:varchar(20)"`
	VATExempt    bool            `gorm:"column:vat_exempt;not null;default:false"`

	ShippingMethod order.ShippingMethod `gorm:"type:varchar(30);not null"`
	AddressKind    order.AddressKind    `gorm:"type:varchar(10);not null"`
	RecipientName  string               `gorm:"type:varchar(200);not null"`
	Company        string               `gorm:"type:varchar(200)"`
	Email          string               `gorm:"type:varchar(200);not null;index"`
	Phone          string               `gorm:"type:varchar(30);not null"`
	Street         string               `gorm:"type:varchar(200)"`
	BuildingNumber string               `gorm:"type:varchar(20)"`
	FlatNumber     string               `gorm:"type:varchar(20)"`
	PostalCode     string               `gorm:"type:varchar(12)"`
	City           string               `gorm:"type:varchar(100)"`
	CountryCode    string               `gorm:"type:varchar(2)"`
	LockerID       string               `gorm:"type:varchar(20)"`

	Status           order.Status        `gorm:"type:varchar(20);not null;index"`
	PaymentMethod    order.PaymentMethod `gorm:"type:varchar(10);not null"`
	PaymentSessionID string              `gorm:"type:varchar(255);index"`
	PaymentID        string              `gorm:"type:varchar(255)"`
	IsPaid           bool                `gorm:"not null;default:false"`
	PaidAt           *time.Time
	Carrier          order.Carrier `gorm:"type:varchar(10)"`
	ShipmentID       string        `gorm:"type:varchar(100)"`
	TrackingNumber   string        `gorm:"type:varchar(100)"`
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
	CancelledAt      *time.Time
	Notes            string `gorm:"type:text"`

	Items []OrderItemModel `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Number:            m.OrderNumber,
		UserID:            m.UserID,
		Subtotal:          m.Subtotal,
		ShippingCost:      m.ShippingCost,
		Tax:               m.Tax,
		Total:             m.Total,
		Currency:          m.Currency,
		VATNumber:         m.VATNumber,
		VATExempt:         m.VATExempt,
		ShippingMethod:    m.ShippingMethod,
		Address: order.ShippingAddress{
			Kind: m.AddressKind,
			Recipient: order.Recipient{
				Name:    m.RecipientName,
				Company: m.Company,
				Email:   m.Email,
				Phone:   m.Phone,
			},
			LockerID: m.LockerID,
		},
		Status:           m.Status,
		PaymentMethod:    m.PaymentMethod,
		PaymentSessionID: m.PaymentSessionID,
		PaymentID:        m.PaymentID,
		IsPaid:           m.IsPaid,
		PaidAt:           m.PaidAt,
		Carrier:          m.Carrier,
		ShipmentID:       m.ShipmentID,
		TrackingNumber:   m.TrackingNumber,
		ShippedAt:        m.ShippedAt,
		DeliveredAt:      m.DeliveredAt,
		CancelledAt:      m.CancelledAt,
		Notes:            m.Notes,
	}
	if m.AddressKind == order.AddressKindStreet {
		o.Address.Street = &order.StreetAddress{
			Street:         m.Street,
			BuildingNumber: m.BuildingNumber,
			FlatNumber:     m.FlatNumber,
			PostalCode:     m.PostalCode,
			City:           m.City,
			CountryCode:    m.CountryCode,
		}
	}
	for i := range m.Items {
		o.Items = append(o.Items, m.Items[i].ToDomain())
	}
	return o
}

// FromDomain populates the persistence model from a domain Order, items included.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.Number
	m.UserID = o.UserID
	m.Subtotal = o.Subtotal
	m.ShippingCost = o.ShippingCost
	m.Tax = o.Tax
	m.Total = o.Total
	m.Currency = o.Currency
	m.VATNumber = o.VATNumber
	m.VATExempt = o.VATExempt
	m.ShippingMethod = o.ShippingMethod
	m.AddressKind = o.Address.Kind
	m.RecipientName = o.Address.Recipient.Name
	m.Company = o.Address.Recipient.Company
	m.Email = o.Address.Recipient.Email
	m.Phone = o.Address.Recipient.Phone
	m.LockerID = o.Address.LockerID
	m.Street, m.BuildingNumber, m.FlatNumber, m.PostalCode, m.City, m.CountryCode = "", "", "", "", "", ""
	if s := o.Address.Street; s != nil {
		m.Street = s.Street
		m.BuildingNumber = s.BuildingNumber
		m.FlatNumber = s.FlatNumber
		m.PostalCode = s.PostalCode
		m.City = s.City
		m.CountryCode = s.CountryCode
	}
	m.Status = o.Status
	m.PaymentMethod = o.PaymentMethod
	m.PaymentSessionID = o.PaymentSessionID
	m.PaymentID = o.PaymentID
	m.IsPaid = o.IsPaid
	m.PaidAt = o.PaidAt
	m.Carrier = o.Carrier
	m.ShipmentID = o.ShipmentID
	m.TrackingNumber = o.TrackingNumber
	m.ShippedAt = o.ShippedAt
	m.DeliveredAt = o.DeliveredAt
	m.CancelledAt = o.CancelledAt
	m.Notes = o.Notes

	m.Items = make([]OrderItemModel, 0, len(o.Items))
	for _, it := range o.Items {
		m.Items = append(m.Items, *OrderItemModelFromDomain(it))
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is an order line. Name, SKU and price are snapshots taken at checkout.
type OrderItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name      string          `gorm:"type:varchar(200);not null"`
	SKU       string          `gorm:"column:sku;type:varchar(64)"`
	Variant   string          `gorm:"type:varchar(100)"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity  int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

func (m *OrderItemModel) ToDomain() order.Item {
	return order.Item{
		ID:        m.ID,
		OrderID:   m.OrderID,
		ProductID: m.ProductID,
		Name:      m.Name,
		SKU:       m.SKU,
		Variant:   m.Variant,
		UnitPrice: m.UnitPrice,
		Quantity:  m.Quantity,
	}
}

func OrderItemModelFromDomain(it order.Item) *OrderItemModel {
	return &OrderItemModel{
		ID:        it.ID,
		OrderID:   it.OrderID,
		ProductID: it.ProductID,
		Name:      it.Name,
		SKU:       it.SKU,
		Variant:   it.Variant,
		UnitPrice: it.UnitPrice,
		Quantity:  it.Quantity,
	}
}

// OrderStatusAuditModel records admin status changes
type OrderStatusAuditModel struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID    `gorm:"type:uuid;not null;index"`
	FromStatus order.Status `gorm:"type:varchar(20);not null"`
	ToStatus   order.Status `gorm:"type:varchar(20);not null"`
	Actor      string       `gorm:"type:varchar(200);not null"`
	Reason     string       `gorm:"type:text"`
	Forced     bool         `gorm:"not null;default:false"`
	CreatedAt  time.Time    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderStatusAuditModel) TableName() string {
	return "order_status_audits"
}

func (m *OrderStatusAuditModel) ToDomain() order.StatusAudit {
	return order.StatusAudit{
		ID:        m.ID,
		OrderID:   m.OrderID,
		From:      m.FromStatus,
		To:        m.ToStatus,
		Actor:     m.Actor,
		Reason:    m.Reason,
		Forced:    m.Forced,
		CreatedAt: m.CreatedAt,
	}
}

func OrderStatusAuditModelFromDomain(a order.StatusAudit) *OrderStatusAuditModel {
	return &OrderStatusAuditModel{
		ID:         a.ID,
		OrderID:    a.OrderID,
		FromStatus: a.From,
		ToStatus:   a.To,
		Actor:      a.Actor,
		Reason:     a.Reason,
		Forced:     a.Forced,
		CreatedAt:  a.CreatedAt,
	}
}

// OrderSequenceModel is a named counter row used to allocate order numbers
type OrderSequenceModel struct {
	Name  string `gorm:"type:varchar(50);primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderSequenceModel) TableName() string {
	return "order_sequences"
}
