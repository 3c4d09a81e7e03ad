package persistence

import (
	"context"
	"errors"

	"github.com/dronehub/backend/internal/domain/catalog"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCategoryRepository implements catalog.CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	var m models.CategoryModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrCategoryNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *GormCategoryRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Category, error) {
	var m models.CategoryModel
	if err := r.db.WithContext(ctx).First(&m, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrCategoryNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// List returns all categories ordered by name
func (r *GormCategoryRepository) List(ctx context.Context) ([]*catalog.Category, error) {
	var rows []models.CategoryModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*catalog.Category, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save upserts a category
func (r *GormCategoryRepository) Save(ctx context.Context, c *catalog.Category) error {
	if err := r.db.WithContext(ctx).Save(models.CategoryModelFromDomain(c)).Error; err != nil {
		if isDuplicate(err) {
			return catalog.ErrSlugTaken
		}
		return err
	}
	return nil
}

// Delete removes a category and detaches its products
func (r *GormCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Model(&models.ProductModel{}).Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.CategoryModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return catalog.ErrCategoryNotFound
		}
		return nil
	})
}

// GormBrandRepository implements catalog.BrandRepository using GORM
type GormBrandRepository struct {
	db *gorm.DB
}

// NewGormBrandRepository creates a new GormBrandRepository
func NewGormBrandRepository(db *gorm.DB) *GormBrandRepository {
	return &GormBrandRepository{db: db}
}

func (r *GormBrandRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Brand, error) {
	var m models.BrandModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrBrandNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *GormBrandRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Brand, error) {
	var m models.BrandModel
	if err := r.db.WithContext(ctx).First(&m, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrBrandNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// List returns all brands ordered by name
func (r *GormBrandRepository) List(ctx context.Context) ([]*catalog.Brand, error) {
	var rows []models.BrandModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*catalog.Brand, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save upserts a brand
func (r *GormBrandRepository) Save(ctx context.Context, b *catalog.Brand) error {
	if err := r.db.WithContext(ctx).Save(models.BrandModelFromDomain(b)).Error; err != nil {
		if isDuplicate(err) {
			return catalog.ErrSlugTaken
		}
		return err
	}
	return nil
}

// Delete removes a brand and detaches its products
func (r *GormBrandRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Model(&models.ProductModel{}).Where("brand_id = ?", id).
			Update("brand_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.BrandModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return catalog.ErrBrandNotFound
		}
		return nil
	})
}

// GormReviewRepository implements catalog.ReviewRepository using GORM
type GormReviewRepository struct {
	db *gorm.DB
}

// NewGormReviewRepository creates a new GormReviewRepository
func NewGormReviewRepository(db *gorm.DB) *GormReviewRepository {
	return &GormReviewRepository{db: db}
}

func (r *GormReviewRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Review, error) {
	var m models.ReviewModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrReviewNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// ListByProduct returns the reviews of a product, newest first
func (r *GormReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID, approvedOnly bool) ([]*catalog.Review, error) {
	q := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if approvedOnly {
		q = q.Where("is_approved = ?", true)
	}
	var rows []models.ReviewModel
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toReviews(rows), nil
}

// ListPending returns reviews waiting for moderation
func (r *GormReviewRepository) ListPending(ctx context.Context, filter shared.Filter) ([]*catalog.Review, int64, error) {
	filter = filter.Normalize()
	q := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.ReviewModel{}).Where("is_approved = ?", false)
	}
	var total int64
	if err := q().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.ReviewModel
	if err := q().Order("created_at ASC").Offset(filter.Offset()).Limit(filter.PageSize).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toReviews(rows), total, nil
}

// Save upserts a review
func (r *GormReviewRepository) Save(ctx context.Context, rv *catalog.Review) error {
	return r.db.WithContext(ctx).Save(models.ReviewModelFromDomain(rv)).Error
}

func (r *GormReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ReviewModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalog.ErrReviewNotFound
	}
	return nil
}

func toReviews(rows []models.ReviewModel) []*catalog.Review {
	out := make([]*catalog.Review, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

var (
	_ catalog.CategoryRepository = (*GormCategoryRepository)(nil)
	_ catalog.BrandRepository    = (*GormBrandRepository)(nil)
	_ catalog.ReviewRepository   = (*GormReviewRepository)(nil)
)
