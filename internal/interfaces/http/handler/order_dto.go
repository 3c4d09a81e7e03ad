package handler

import (
	"time"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecipientRequest identifies who receives the parcel
type RecipientRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Company string `json:"company" binding:"max=150"`
	Email   string `json:"email" binding:"required,email,max=254"`
	Phone   string `json:"phone" binding:"required,phone"`
}

// AddressRequest is a tagged union: kind "street" needs the street fields, kind "locker" needs locker_id
type AddressRequest struct {
	Kind           string           `json:"kind" binding:"required,oneof=street locker"`
	Recipient      RecipientRequest `json:"recipient" binding:"required"`
	Street         string           `json:"street" binding:"max=150"`
	BuildingNumber string           `json:"building_number" binding:"max=20"`
	FlatNumber     string           `json:"flat_number" binding:"max=20"`
	PostalCode     string           `json:"postal_code" binding:"max=12"`
	City           string           `json:"city" binding:"max=100"`
	CountryCode    string           `json:"country_code" binding:"omitempty,len=2"`
	LockerID       string           `json:"locker_id" binding:"max=20"`
}

// toDomain runs the domain constructor so every rule lives in one place
func (r AddressRequest) toDomain() (order.ShippingAddress, error) {
	recipient := order.Recipient{
		Name:    r.Recipient.Name,
		Company: r.Recipient.Company,
		Email:   r.Recipient.Email,
		Phone:   r.Recipient.Phone,
	}
	if r.Kind == string(order.AddressKindLocker) {
		return order.NewLockerShippingAddress(recipient, r.LockerID)
	}
	return order.NewStreetShippingAddress(recipient, order.StreetAddress{
		Street:         r.Street,
		BuildingNumber: r.BuildingNumber,
		FlatNumber:     r.FlatNumber,
		PostalCode:     r.PostalCode,
		City:           r.City,
		CountryCode:    r.CountryCode,
	})
}

// AddressResponse mirrors AddressRequest
type AddressResponse struct {
	Kind           string           `json:"kind"`
	Recipient      RecipientRequest `json:"recipient"`
	Street         string           `json:"street,omitempty"`
	BuildingNumber string           `json:"building_number,omitempty"`
	FlatNumber     string           `json:"flat_number,omitempty"`
	PostalCode     string           `json:"postal_code,omitempty"`
	City           string           `json:"city,omitempty"`
	CountryCode    string           `json:"country_code,omitempty"`
	LockerID       string           `json:"locker_id,omitempty"`
}

func toAddressResponse(a order.ShippingAddress) AddressResponse {
	resp := AddressResponse{
		Kind: string(a.Kind),
		Recipient: RecipientRequest{
			Name:    a.Recipient.Name,
			Company: a.Recipient.Company,
			Email:   a.Recipient.Email,
			Phone:   a.Recipient.Phone,
		},
		LockerID: a.LockerID,
	}
	if s := a.Street; s != nil {
		resp.Street = s.Street
		resp.BuildingNumber = s.BuildingNumber
		resp.FlatNumber = s.FlatNumber
		resp.PostalCode = s.PostalCode
		resp.City = s.City
		resp.CountryCode = s.CountryCode
	}
	return resp
}

// OrderItemResponse is one ordered product
type OrderItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku,omitempty"`
	Variant   string          `json:"variant,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderResponse is the full order view shared by customer and admin endpoints
type OrderResponse struct {
	ID             uuid.UUID           `json:"id"`
	Number         int64               `json:"number"`
	DisplayNumber  string              `json:"display_number"`
	UserID         *uuid.UUID          `json:"user_id,omitempty"`
	Status         order.Status        `json:"status"`
	AllowedNext    []order.Status      `json:"allowed_next"`
	Items          []OrderItemResponse `json:"items"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	ShippingCost   decimal.Decimal     `json:"shipping_cost"`
	Tax            decimal.Decimal     `json:"tax"`
	Total          decimal.Decimal     `json:"total"`
	Currency       string              `json:"currency"`
	VATNumber      string              `json:"vat_number,omitempty"`
	VATExempt      bool                `json:"vat_exempt"`
	ShippingMethod order.ShippingMethod `json:"shipping_method"`
	Address        AddressResponse     `json:"address"`
	PaymentMethod  order.PaymentMethod `json:"payment_method"`
	IsPaid         bool                `json:"is_paid"`
	PaidAt         *time.Time          `json:"paid_at,omitempty"`
	Carrier        order.Carrier       `json:"carrier,omitempty"`
	TrackingNumber string              `json:"tracking_number,omitempty"`
	ShippedAt      *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
	Notes          string              `json:"notes,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func toOrderResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		ID:             o.ID,
		Number:         o.Number,
		DisplayNumber:  o.DisplayNumber(),
		UserID:         o.UserID,
		Status:         o.Status,
		AllowedNext:    o.Status.AllowedTransitions(),
		Items:          make([]OrderItemResponse, 0, len(o.Items)),
		Subtotal:       o.Subtotal,
		ShippingCost:   o.ShippingCost,
		Tax:            o.Tax,
		Total:          o.Total,
		Currency:       o.Currency,
		VATNumber:      o.VATNumber,
		VATExempt:      o.VATExempt,
		ShippingMethod: o.ShippingMethod,
		Address:        toAddressResponse(o.Address),
		PaymentMethod:  o.PaymentMethod,
		IsPaid:         o.IsPaid,
		PaidAt:         o.PaidAt,
		Carrier:        o.Carrier,
		TrackingNumber: o.TrackingNumber,
		ShippedAt:      o.ShippedAt,
		DeliveredAt:    o.DeliveredAt,
		CancelledAt:    o.CancelledAt,
		Notes:          o.Notes,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			SKU:       it.SKU,
			Variant:   it.Variant,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
		})
	}
	return resp
}

func toOrderResponses(orders []*order.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}
