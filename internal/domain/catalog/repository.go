package catalog

import (
	"context"

	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductFilter narrows product listings
type ProductFilter struct {
	shared.Filter
	CategorySlug string
	BrandSlug    string
	FeaturedOnly bool
	InStockOnly  bool
	ActiveOnly   bool
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	IDs          []uuid.UUID
}

// ProductRepository persists products with their images
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*Product, int64, error)
	// Save inserts or updates the product and writes its events to the outbox
	Save(ctx context.Context, p *Product) error
	// SaveImages replaces the product's images wholesale
	SaveImages(ctx context.Context, p *Product) error
	Delete(ctx context.Context, p *Product) error
}

// CategoryRepository persists categories
type CategoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	FindBySlug(ctx context.Context, slug string) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
	Save(ctx context.Context, c *Category) error
	// Delete removes the category and clears category_id on its products
	Delete(ctx context.Context, id uuid.UUID) error
}

// BrandRepository persists brands
type BrandRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Brand, error)
	FindBySlug(ctx context.Context, slug string) (*Brand, error)
	List(ctx context.Context) ([]*Brand, error)
	Save(ctx context.Context, b *Brand) error
	// Delete removes the brand and clears brand_id on its products
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReviewRepository persists reviews
type ReviewRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, approvedOnly bool) ([]*Review, error)
	ListPending(ctx context.Context, filter shared.Filter) ([]*Review, int64, error)
	Save(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id uuid.UUID) error
}
