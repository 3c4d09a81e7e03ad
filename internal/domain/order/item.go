package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a frozen snapshot of a product at the time the order was placed.
// Name and UnitPrice never follow later catalog changes.
type Item struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Name      string
	SKU       string
	Variant   string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal is UnitPrice × Quantity
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
