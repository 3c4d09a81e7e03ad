package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/catalog"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db          *gorm.DB
	outboxSaver shared.TxEventSaver
}

// NewGormProductRepository creates a new GormProductRepository.
// outboxSaver may be nil, in which case product events are dropped.
func NewGormProductRepository(db *gorm.DB, outboxSaver shared.TxEventSaver) *GormProductRepository {
	return &GormProductRepository{db: db, outboxSaver: outboxSaver}
}

func (r *GormProductRepository) withImages(db *gorm.DB) *gorm.DB {
	return db.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// FindByID finds a product by ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.withImages(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySlug finds a product by its URL slug
func (r *GormProductRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.withImages(r.db.WithContext(ctx)).First(&model, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs returns the products that exist among ids, in no particular order
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*catalog.Product, error) {
	if len(ids) == 0 {
		return []*catalog.Product{}, nil
	}
	var rows []models.ProductModel
	if err := r.withImages(r.db.WithContext(ctx)).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toProducts(rows), nil
}

// List returns one page of products and the total count matching the filter
func (r *GormProductRepository) List(ctx context.Context, filter catalog.ProductFilter) ([]*catalog.Product, int64, error) {
	filter.Filter = filter.Filter.Normalize()
	query := func() *gorm.DB {
		return r.applyFilter(r.db.WithContext(ctx).Model(&models.ProductModel{}), filter)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ProductModel
	err := r.withImages(query()).
		Order(productSorting.orderBy(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return toProducts(rows), total, nil
}

func (r *GormProductRepository) applyFilter(query *gorm.DB, f catalog.ProductFilter) *gorm.DB {
	if f.ActiveOnly {
		query = query.Where("products.is_active = ?", true)
	}
	if f.FeaturedOnly {
		query = query.Where("products.is_featured = ?", true)
	}
	if f.InStockOnly {
		query = query.Where("products.stock > 0")
	}
	if f.CategorySlug != "" {
		query = query.Where("products.category_id IN (?)",
			r.db.Model(&models.CategoryModel{}).Select("id").Where("slug = ?", f.CategorySlug))
	}
	if f.BrandSlug != "" {
		query = query.Where("products.brand_id IN (?)",
			r.db.Model(&models.BrandModel{}).Select("id").Where("slug = ?", f.BrandSlug))
	}
	if f.MinPrice != nil {
		query = query.Where("products.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query = query.Where("products.price <= ?", *f.MaxPrice)
	}
	if len(f.IDs) > 0 {
		query = query.Where("products.id IN ?", f.IDs)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("(LOWER(products.name) LIKE ? OR LOWER(products.sku) LIKE ? OR LOWER(products.description) LIKE ?)",
			like, like, like)
	}
	return query
}

// Save inserts a new product or updates an existing one with an optimistic version check.
// Pending domain events go to the outbox in the same transaction.
func (r *GormProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		version, found, err := currentVersion(tx, &models.ProductModel{}, p.ID)
		if err != nil {
			return err
		}

		model := models.ProductModelFromDomain(p)
		if !found {
			if err := tx.Omit("Images").Create(model).Error; err != nil {
				if isDuplicate(err) {
					return catalog.ErrSlugTaken
				}
				return err
			}
			if err := r.replaceImages(tx, p); err != nil {
				return err
			}
			return flushEvents(ctx, r.outboxSaver, tx, p)
		}

		if version != p.Version {
			return shared.ErrConcurrencyConflict.WithMessage("product %s was modified by another request", p.Slug)
		}
		p.UpdatedAt = time.Now()
		result := tx.Model(&models.ProductModel{}).
			Where("id = ? AND version = ?", p.ID, version).
			Updates(map[string]any{
				"name":        p.Name,
				"slug":        p.Slug,
				"description": p.Description,
				"price":       p.Price,
				"sku":         p.SKU,
				"stock":       p.Stock,
				"is_active":   p.IsActive,
				"is_featured": p.IsFeatured,
				"category_id": p.CategoryID,
				"brand_id":    p.BrandID,
				"version":     version + 1,
				"updated_at":  p.UpdatedAt,
			})
		if result.Error != nil {
			if isDuplicate(result.Error) {
				return catalog.ErrSlugTaken
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict.WithMessage("product %s was modified by another request", p.Slug)
		}
		p.Version = version + 1
		return flushEvents(ctx, r.outboxSaver, tx, p)
	})
}

// SaveImages replaces the product gallery and bumps the product version
func (r *GormProductRepository) SaveImages(ctx context.Context, p *catalog.Product) error {
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := r.replaceImages(tx, p); err != nil {
			return err
		}
		result := tx.Model(&models.ProductModel{}).
			Where("id = ?", p.ID).
			Updates(map[string]any{"version": gorm.Expr("version + 1"), "updated_at": time.Now()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return catalog.ErrProductNotFound
		}
		p.Version++
		return flushEvents(ctx, r.outboxSaver, tx, p)
	})
}

func (r *GormProductRepository) replaceImages(tx *gorm.DB, p *catalog.Product) error {
	if err := tx.Where("product_id = ?", p.ID).Delete(&models.ProductImageModel{}).Error; err != nil {
		return err
	}
	for _, img := range p.Images {
		if err := tx.Create(models.ProductImageModelFromDomain(img)).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a product and its images. Order items keep their snapshots.
func (r *GormProductRepository) Delete(ctx context.Context, p *catalog.Product) error {
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", p.ID).Delete(&models.ProductImageModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.ProductModel{}, "id = ?", p.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return catalog.ErrProductNotFound
		}
		return flushEvents(ctx, r.outboxSaver, tx, p)
	})
}

func toProducts(rows []models.ProductModel) []*catalog.Product {
	out := make([]*catalog.Product, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// Ensure GormProductRepository implements catalog.ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
