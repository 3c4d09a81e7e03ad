package catalog

import (
	"time"

	"github.com/dronehub/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductRequest is the admin payload for creating or replacing a product
type ProductRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=200"`
	Slug        string          `json:"slug" binding:"omitempty,max=220"`
	Description string          `json:"description" binding:"max=20000"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	SKU         string          `json:"sku" binding:"max=64"`
	Stock       int             `json:"stock" binding:"min=0"`
	IsActive    bool            `json:"is_active"`
	IsFeatured  bool            `json:"is_featured"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	BrandID     *uuid.UUID      `json:"brand_id"`
}

func (r ProductRequest) input() catalog.ProductInput {
	return catalog.ProductInput{
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Price:       r.Price,
		SKU:         r.SKU,
		Stock:       r.Stock,
		IsActive:    r.IsActive,
		IsFeatured:  r.IsFeatured,
		CategoryID:  r.CategoryID,
		BrandID:     r.BrandID,
	}
}

// ProductListQuery holds the public listing query parameters
type ProductListQuery struct {
	Search       string           `form:"q" binding:"max=200"`
	Category     string           `form:"category"`
	Brand        string           `form:"brand"`
	Featured     bool             `form:"featured"`
	InStock      bool             `form:"in_stock"`
	MinPrice     *decimal.Decimal `form:"min_price"`
	MaxPrice     *decimal.Decimal `form:"max_price"`
	Page         int              `form:"page" binding:"omitempty,min=1"`
	PageSize     int              `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy      string           `form:"order_by" binding:"omitempty,oneof=created_at updated_at name price stock"`
	OrderDir     string           `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
	WithInactive bool             `form:"-"`
}

// ImageRequest is one entry of a gallery replacement
type ImageRequest struct {
	URL      string `json:"url" binding:"required,url,max=1000"`
	Alt      string `json:"alt" binding:"max=200"`
	Position int    `json:"position" binding:"min=0"`
}

// ReplaceImagesRequest replaces the whole gallery of a product
type ReplaceImagesRequest struct {
	Images []ImageRequest `json:"images" binding:"max=30,dive"`
}

// UploadURLRequest asks for a presigned image upload
type UploadURLRequest struct {
	FileName    string `json:"file_name" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"required"`
}

// UploadURLResponse is where the browser PUTs the file and where it is served from afterwards
type UploadURLResponse struct {
	UploadURL string    `json:"upload_url"`
	PublicURL string    `json:"public_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ImageResponse is a product image
type ImageResponse struct {
	URL      string `json:"url"`
	Alt      string `json:"alt"`
	Position int    `json:"position"`
}

// ProductResponse is a product in API responses
type ProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	SKU         string          `json:"sku"`
	Stock       int             `json:"stock"`
	InStock     bool            `json:"in_stock"`
	IsActive    bool            `json:"is_active"`
	IsFeatured  bool            `json:"is_featured"`
	CategoryID  *uuid.UUID      `json:"category_id,omitempty"`
	BrandID     *uuid.UUID      `json:"brand_id,omitempty"`
	Images      []ImageResponse `json:"images"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

// ProductDetailResponse adds taxonomy and approved reviews to a product
type ProductDetailResponse struct {
	ProductResponse
	Category      *TaxonomyResponse `json:"category,omitempty"`
	Brand         *TaxonomyResponse `json:"brand,omitempty"`
	Reviews       []ReviewResponse  `json:"reviews"`
	AverageRating float64           `json:"average_rating"`
}

// ToProductResponse converts a domain product
func ToProductResponse(p *catalog.Product) ProductResponse {
	images := make([]ImageResponse, len(p.Images))
	for i, img := range p.Images {
		images[i] = ImageResponse{URL: img.URL, Alt: img.Alt, Position: img.Position}
	}
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price,
		SKU:         p.SKU,
		Stock:       p.Stock,
		InStock:     p.Stock > 0,
		IsActive:    p.IsActive,
		IsFeatured:  p.IsFeatured,
		CategoryID:  p.CategoryID,
		BrandID:     p.BrandID,
		Images:      images,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Version:     p.Version,
	}
}

// ToProductResponses converts a page of products
func ToProductResponses(products []*catalog.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = ToProductResponse(p)
	}
	return out
}

// TaxonomyRequest creates or updates a category or a brand
type TaxonomyRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Slug        string `json:"slug" binding:"omitempty,max=120"`
	Description string `json:"description" binding:"max=2000"`
}

// TaxonomyResponse is a category or a brand
type TaxonomyResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
}

// ToCategoryResponse converts a category
func ToCategoryResponse(c *catalog.Category) TaxonomyResponse {
	return TaxonomyResponse{ID: c.ID, Name: c.Name, Slug: c.Slug, Description: c.Description}
}

// ToBrandResponse converts a brand
func ToBrandResponse(b *catalog.Brand) TaxonomyResponse {
	return TaxonomyResponse{ID: b.ID, Name: b.Name, Slug: b.Slug, Description: b.Description}
}

// ReviewRequest is a customer review
type ReviewRequest struct {
	AuthorName string `json:"author_name" binding:"required,min=1,max=100"`
	Rating     int    `json:"rating" binding:"required,min=1,max=5"`
	Comment    string `json:"comment" binding:"max=4000"`
}

// ReviewResponse is a review in API responses
type ReviewResponse struct {
	ID         uuid.UUID `json:"id"`
	ProductID  uuid.UUID `json:"product_id"`
	AuthorName string    `json:"author_name"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToReviewResponse converts a review
func ToReviewResponse(r *catalog.Review) ReviewResponse {
	return ReviewResponse{
		ID:         r.ID,
		ProductID:  r.ProductID,
		AuthorName: r.AuthorName,
		Rating:     r.Rating,
		Comment:    r.Comment,
		IsApproved: r.IsApproved,
		CreatedAt:  r.CreatedAt,
	}
}

func toReviewResponses(reviews []*catalog.Review) []ReviewResponse {
	out := make([]ReviewResponse, len(reviews))
	for i, r := range reviews {
		out[i] = ToReviewResponse(r)
	}
	return out
}
