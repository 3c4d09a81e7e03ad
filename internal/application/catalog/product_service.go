// Package catalog contains the product, taxonomy and review use cases.
package catalog

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/catalog"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllowedImageTypes is the upload whitelist. SVG is excluded because it can carry scripts.
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/avif": ".avif",
}

// ErrUnsupportedImageType is returned for uploads outside AllowedImageTypes
var ErrUnsupportedImageType = shared.NewDomainError("UNSUPPORTED_MEDIA_TYPE", "Only JPEG, PNG, WebP, GIF and AVIF images can be uploaded")

// ProductSearcher answers full-text queries with matching product ids, best match first
type ProductSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error)
}

// ProductServiceConfig holds ProductService dependencies
type ProductServiceConfig struct {
	Products   catalog.ProductRepository
	Categories catalog.CategoryRepository
	Brands     catalog.BrandRepository
	Reviews    catalog.ReviewRepository
	// Storage issues presigned image uploads; optional
	Storage shared.ObjectStorage
	// Searcher replaces SQL LIKE matching when set
	Searcher        ProductSearcher
	UploadURLExpiry time.Duration
	Logger          *zap.Logger
}

// ProductService handles product operations
type ProductService struct {
	products     catalog.ProductRepository
	categories   catalog.CategoryRepository
	brands       catalog.BrandRepository
	reviews      catalog.ReviewRepository
	storage      shared.ObjectStorage
	searcher     ProductSearcher
	uploadExpiry time.Duration
	logger       *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(cfg ProductServiceConfig) *ProductService {
	s := &ProductService{
		products:     cfg.Products,
		categories:   cfg.Categories,
		brands:       cfg.Brands,
		reviews:      cfg.Reviews,
		storage:      cfg.Storage,
		searcher:     cfg.Searcher,
		uploadExpiry: cfg.UploadURLExpiry,
		logger:       cfg.Logger,
	}
	if s.uploadExpiry <= 0 {
		s.uploadExpiry = 15 * time.Minute
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, req ProductRequest) (*ProductResponse, error) {
	if err := s.checkTaxonomy(ctx, req.CategoryID, req.BrandID); err != nil {
		return nil, err
	}
	p, err := catalog.NewProduct(req.input())
	if err != nil {
		return nil, err
	}
	if err := s.products.Save(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Product created", zap.String("product_id", p.ID.String()), zap.String("slug", p.Slug))
	resp := ToProductResponse(p)
	return &resp, nil
}

// Update replaces the editable fields of a product
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req ProductRequest) (*ProductResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTaxonomy(ctx, req.CategoryID, req.BrandID); err != nil {
		return nil, err
	}
	if err := p.Update(req.input()); err != nil {
		return nil, err
	}
	if err := s.products.Save(ctx, p); err != nil {
		return nil, err
	}
	resp := ToProductResponse(p)
	return &resp, nil
}

func (s *ProductService) checkTaxonomy(ctx context.Context, categoryID, brandID *uuid.UUID) error {
	if categoryID != nil {
		if _, err := s.categories.FindByID(ctx, *categoryID); err != nil {
			return err
		}
	}
	if brandID != nil {
		if _, err := s.brands.FindByID(ctx, *brandID); err != nil {
			return err
		}
	}
	return nil
}

// GetByID returns a product regardless of its visibility
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(p)
	return &resp, nil
}

// GetBySlug returns the public detail of an active product with its approved reviews
func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*ProductDetailResponse, error) {
	p, err := s.products.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, catalog.ErrProductNotFound
	}

	detail := &ProductDetailResponse{ProductResponse: ToProductResponse(p)}
	if p.CategoryID != nil {
		if c, err := s.categories.FindByID(ctx, *p.CategoryID); err == nil {
			resp := ToCategoryResponse(c)
			detail.Category = &resp
		}
	}
	if p.BrandID != nil {
		if b, err := s.brands.FindByID(ctx, *p.BrandID); err == nil {
			resp := ToBrandResponse(b)
			detail.Brand = &resp
		}
	}

	reviews, err := s.reviews.ListByProduct(ctx, p.ID, true)
	if err != nil {
		return nil, err
	}
	detail.Reviews = toReviewResponses(reviews)
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		detail.AverageRating = float64(sum) / float64(len(reviews))
	}
	return detail, nil
}

// List returns one page of products and the total count
func (s *ProductService) List(ctx context.Context, q ProductListQuery) ([]ProductResponse, int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog", "list_products")
	defer span.End()

	filter := catalog.ProductFilter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  q.OrderBy,
			OrderDir: q.OrderDir,
			Search:   strings.TrimSpace(q.Search),
		},
		CategorySlug: q.Category,
		BrandSlug:    q.Brand,
		FeaturedOnly: q.Featured,
		InStockOnly:  q.InStock,
		ActiveOnly:   !q.WithInactive,
		MinPrice:     q.MinPrice,
		MaxPrice:     q.MaxPrice,
	}

	if s.searcher != nil && filter.Search != "" {
		ids, err := s.searcher.Search(ctx, filter.Search, shared.MaxPageSize*10)
		switch {
		case err != nil:
			s.logger.Warn("Product search unavailable, falling back to SQL", zap.Error(err))
		case len(ids) == 0:
			return []ProductResponse{}, 0, nil
		default:
			filter.IDs = ids
			filter.Search = ""
		}
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, err
	}
	return ToProductResponses(products), total, nil
}

// Delete removes a product; order items keep their snapshots
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return err
	}
	p.MarkDeleted()
	if err := s.products.Delete(ctx, p); err != nil {
		return err
	}
	s.logger.Info("Product deleted", zap.String("product_id", id.String()), zap.String("slug", p.Slug))
	return nil
}

// ReplaceImages swaps the whole gallery of a product
func (s *ProductService) ReplaceImages(ctx context.Context, id uuid.UUID, req ReplaceImagesRequest) (*ProductResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	images := make([]catalog.ProductImage, len(req.Images))
	for i, img := range req.Images {
		images[i] = catalog.ProductImage{URL: img.URL, Alt: img.Alt, Position: img.Position}
	}
	if err := p.ReplaceImages(images); err != nil {
		return nil, err
	}
	if err := s.products.SaveImages(ctx, p); err != nil {
		return nil, err
	}
	resp := ToProductResponse(p)
	return &resp, nil
}

// CreateUploadURL issues a presigned PUT for a new product image.
// The returned public URL is what ReplaceImages expects once the upload finished.
func (s *ProductService) CreateUploadURL(ctx context.Context, id uuid.UUID, req UploadURLRequest) (*UploadURLResponse, error) {
	if s.storage == nil {
		return nil, shared.ErrUpstreamUnavailable.WithMessage("image storage is not configured")
	}
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	ext, ok := AllowedImageTypes[contentType]
	if !ok {
		return nil, ErrUnsupportedImageType
	}
	if fileExt := strings.ToLower(path.Ext(req.FileName)); fileExt == ".jpeg" || fileExt == ext {
		ext = fileExt
	}

	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("products/%s/%s%s", p.ID, uuid.New(), ext)
	uploadURL, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, contentType, s.uploadExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign %s: %w", key, err)
	}
	return &UploadURLResponse{
		UploadURL: uploadURL,
		PublicURL: s.storage.PublicURL(key),
		Key:       key,
		ExpiresAt: expiresAt,
	}, nil
}
