package catalog

import (
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const EventTypeProductChanged = "ProductChanged"

// ProductChange tells consumers what happened to the product
type ProductChange string

const (
	ProductChangeCreated ProductChange = "created"
	ProductChangeUpdated ProductChange = "updated"
	ProductChangeDeleted ProductChange = "deleted"
)

// ProductChangedEvent carries a snapshot used by the search indexer
type ProductChangedEvent struct {
	shared.BaseDomainEvent
	Change      ProductChange   `json:"change"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	SKU         string          `json:"sku"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	IsActive    bool            `json:"is_active"`
	CategoryID  string          `json:"category_id,omitempty"`
	BrandID     string          `json:"brand_id,omitempty"`
}

// NewProductChangedEvent snapshots p
func NewProductChangedEvent(p *Product, change ProductChange) *ProductChangedEvent {
	ev := &ProductChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductChanged, AggregateTypeProduct, p.ID),
		Change:          change,
		Name:            p.Name,
		Slug:            p.Slug,
		Description:     p.Description,
		SKU:             p.SKU,
		Price:           p.Price,
		Stock:           p.Stock,
		IsActive:        p.IsActive,
	}
	if p.CategoryID != nil {
		ev.CategoryID = p.CategoryID.String()
	}
	if p.BrandID != nil {
		ev.BrandID = p.BrandID.String()
	}
	return ev
}
