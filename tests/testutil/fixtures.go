package testutil

import (
	"context"
	"testing"

	"github.com/dronehub/backend/internal/domain/catalog"
	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/infrastructure/event"
	"github.com/dronehub/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewOutbox returns a publisher that knows every shop event
func NewOutbox() *event.OutboxPublisher {
	codec := event.NewShopCodec()
	return event.NewOutboxPublisher(codec, 0)
}

// SeedProduct saves an active product; price is a decimal string in PLN
func SeedProduct(t *testing.T, repo catalog.ProductRepository, name, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(catalog.ProductInput{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), p))
	return p
}

// LineFor snapshots p into an order line
func LineFor(p *catalog.Product, qty int) order.LineInput {
	return order.LineInput{ProductID: p.ID, Name: p.Name, SKU: p.SKU, UnitPrice: p.Price, Quantity: qty}
}

// LockerOrder builds an unplaced card order shipped to parcel locker KRA12A
func LockerOrder(t *testing.T, lines ...order.LineInput) *order.Order {
	t.Helper()
	addr, err := order.NewLockerShippingAddress(order.Recipient{
		Name:  "Anna Nowak",
		Email: "anna@example.pl",
		Phone: "+48600100200",
	}, "KRA12A")
	require.NoError(t, err)
	o, err := order.New(order.PlaceParams{
		Lines:          lines,
		Address:        addr,
		ShippingMethod: order.ShippingInPostLocker,
		PaymentMethod:  order.PaymentMethodCard,
		Pricing:        order.DefaultPricingPolicy(),
	})
	require.NoError(t, err)
	return o
}

// CountOutbox counts outbox rows of one event type
func CountOutbox(t *testing.T, db *gorm.DB, eventType string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.OutboxEntryModel{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}
