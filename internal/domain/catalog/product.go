package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateTypeProduct = "Product"

// Product is a sellable drone part.
// Price is net of VAT, in PLN. Stock only moves through confirmed payments or admin edits.
type Product struct {
	shared.BaseAggregateRoot
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	SKU         string
	Stock       int
	IsActive    bool
	IsFeatured  bool
	CategoryID  *uuid.UUID
	BrandID     *uuid.UUID
	Images      []ProductImage
}

// ProductImage is owned by a product. Position 0 is the primary image.
type ProductImage struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	URL       string
	Alt       string
	Position  int
}

// ProductInput carries the editable fields of a product
type ProductInput struct {
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	SKU         string
	Stock       int
	IsActive    bool
	IsFeatured  bool
	CategoryID  *uuid.UUID
	BrandID     *uuid.UUID
}

// NewProduct validates input and creates a product
func NewProduct(in ProductInput) (*Product, error) {
	p := &Product{BaseAggregateRoot: shared.NewBaseAggregateRoot()}
	if err := p.apply(in); err != nil {
		return nil, err
	}
	p.AddDomainEvent(NewProductChangedEvent(p, ProductChangeCreated))
	return p, nil
}

// Update replaces the editable fields
func (p *Product) Update(in ProductInput) error {
	if err := p.apply(in); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()
	p.AddDomainEvent(NewProductChangedEvent(p, ProductChangeUpdated))
	return nil
}

func (p *Product) apply(in ProductInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ErrProductNameRequired
	}
	if len(name) > 200 {
		return shared.ErrInvalidInput.WithMessage("product name cannot exceed 200 characters")
	}
	if in.Price.IsNegative() {
		return ErrNegativePrice
	}
	if in.Stock < 0 {
		return ErrNegativeStock
	}
	slug := in.Slug
	if slug == "" {
		slug = Slugify(name)
	}
	if !IsValidSlug(slug) {
		return ErrInvalidSlug
	}

	p.Name = name
	p.Slug = slug
	p.Description = in.Description
	p.Price = in.Price.Round(2)
	p.SKU = strings.ToUpper(strings.TrimSpace(in.SKU))
	p.Stock = in.Stock
	p.IsActive = in.IsActive
	p.IsFeatured = in.IsFeatured
	p.CategoryID = in.CategoryID
	p.BrandID = in.BrandID
	return nil
}

// IsPurchasable reports whether qty units can be ordered right now
func (p *Product) IsPurchasable(qty int) bool {
	return p.IsActive && qty > 0 && p.Stock >= qty
}

// DecreaseStock removes qty units. It fails without mutating when stock is short.
func (p *Product) DecreaseStock(qty int) error {
	if qty <= 0 {
		return shared.ErrInvalidInput.WithMessage("quantity must be positive")
	}
	if p.Stock < qty {
		return shared.ErrInsufficientStock.WithMessage("only %d units of %s left", p.Stock, p.Name)
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now()
	return nil
}

// ReplaceImages swaps the whole gallery. Positions are renumbered from 0 in the given order.
func (p *Product) ReplaceImages(images []ProductImage) error {
	out := make([]ProductImage, 0, len(images))
	for _, img := range images {
		if strings.TrimSpace(img.URL) == "" {
			return shared.ErrInvalidInput.WithMessage("image url is required")
		}
		out = append(out, img)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	for i := range out {
		out[i].ID = uuid.New()
		out[i].ProductID = p.ID
		out[i].Position = i
	}
	p.Images = out
	p.UpdatedAt = time.Now()
	p.AddDomainEvent(NewProductChangedEvent(p, ProductChangeUpdated))
	return nil
}

// MarkDeleted records the deletion so downstream indexes can drop the product
func (p *Product) MarkDeleted() {
	p.AddDomainEvent(NewProductChangedEvent(p, ProductChangeDeleted))
}

// PrimaryImage returns the image at position 0, if any
func (p *Product) PrimaryImage() *ProductImage {
	for i := range p.Images {
		if p.Images[i].Position == 0 {
			return &p.Images[i]
		}
	}
	return nil
}

// Catalog errors
var (
	ErrProductNotFound     = shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	ErrProductNameRequired = shared.NewDomainError("INVALID_INPUT", "Product name is required")
	ErrNegativePrice       = shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	ErrNegativeStock       = shared.NewDomainError("INVALID_INPUT", "Stock cannot be negative")
	ErrInvalidSlug         = shared.NewDomainError("INVALID_SLUG", "Slug may contain only lowercase letters, digits and dashes")
	ErrSlugTaken           = shared.NewDomainError("ALREADY_EXISTS", "Slug is already in use")
	ErrCategoryNotFound    = shared.NewDomainError("CATEGORY_NOT_FOUND", "Category not found")
	ErrBrandNotFound       = shared.NewDomainError("BRAND_NOT_FOUND", "Brand not found")
	ErrReviewNotFound      = shared.NewDomainError("REVIEW_NOT_FOUND", "Review not found")
	ErrInvalidRating       = shared.NewDomainError("INVALID_RATING", "Rating must be between 1 and 5")
)
