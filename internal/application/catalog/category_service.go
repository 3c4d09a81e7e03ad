package catalog

import (
	"context"

	"github.com/dronehub/backend/internal/domain/catalog"
	"github.com/google/uuid"
)

// TaxonomyService manages categories and brands
type TaxonomyService struct {
	categories catalog.CategoryRepository
	brands     catalog.BrandRepository
}

// NewTaxonomyService creates a new TaxonomyService
func NewTaxonomyService(categories catalog.CategoryRepository, brands catalog.BrandRepository) *TaxonomyService {
	return &TaxonomyService{categories: categories, brands: brands}
}

// ListCategories returns all categories ordered by name
func (s *TaxonomyService) ListCategories(ctx context.Context) ([]TaxonomyResponse, error) {
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TaxonomyResponse, len(cats))
	for i, c := range cats {
		out[i] = ToCategoryResponse(c)
	}
	return out, nil
}

// GetCategory returns a category by slug
func (s *TaxonomyService) GetCategory(ctx context.Context, slug string) (*TaxonomyResponse, error) {
	c, err := s.categories.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(c)
	return &resp, nil
}

// CreateCategory creates a category
func (s *TaxonomyService) CreateCategory(ctx context.Context, req TaxonomyRequest) (*TaxonomyResponse, error) {
	c, err := catalog.NewCategory(req.Name, req.Slug, req.Description)
	if err != nil {
		return nil, err
	}
	if err := s.categories.Save(ctx, c); err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(c)
	return &resp, nil
}

// UpdateCategory renames a category
func (s *TaxonomyService) UpdateCategory(ctx context.Context, id uuid.UUID, req TaxonomyRequest) (*TaxonomyResponse, error) {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.Update(req.Name, req.Slug, req.Description); err != nil {
		return nil, err
	}
	if err := s.categories.Save(ctx, c); err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(c)
	return &resp, nil
}

// DeleteCategory removes a category; its products stay, uncategorized
func (s *TaxonomyService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categories.Delete(ctx, id)
}

// ListBrands returns all brands ordered by name
func (s *TaxonomyService) ListBrands(ctx context.Context) ([]TaxonomyResponse, error) {
	brands, err := s.brands.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TaxonomyResponse, len(brands))
	for i, b := range brands {
		out[i] = ToBrandResponse(b)
	}
	return out, nil
}

// GetBrand returns a brand by slug
func (s *TaxonomyService) GetBrand(ctx context.Context, slug string) (*TaxonomyResponse, error) {
	b, err := s.brands.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	resp := ToBrandResponse(b)
	return &resp, nil
}

// CreateBrand creates a brand
func (s *TaxonomyService) CreateBrand(ctx context.Context, req TaxonomyRequest) (*TaxonomyResponse, error) {
	b, err := catalog.NewBrand(req.Name, req.Slug, req.Description)
	if err != nil {
		return nil, err
	}
	if err := s.brands.Save(ctx, b); err != nil {
		return nil, err
	}
	resp := ToBrandResponse(b)
	return &resp, nil
}

// UpdateBrand renames a brand
func (s *TaxonomyService) UpdateBrand(ctx context.Context, id uuid.UUID, req TaxonomyRequest) (*TaxonomyResponse, error) {
	b, err := s.brands.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := b.Update(req.Name, req.Slug, req.Description); err != nil {
		return nil, err
	}
	if err := s.brands.Save(ctx, b); err != nil {
		return nil, err
	}
	resp := ToBrandResponse(b)
	return &resp, nil
}

// DeleteBrand removes a brand and detaches its products
func (s *TaxonomyService) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	return s.brands.Delete(ctx, id)
}
