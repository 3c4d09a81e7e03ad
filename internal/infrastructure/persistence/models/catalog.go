package models

import (
	"github.com/dronehub/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product aggregate.
type ProductModel struct {
	AggregateModel
	Name        string          `gorm:"type:varchar(200);not null"`
	Slug        string          `gorm:"type:varchar(220);not null;uniqueIndex"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	SKU         string          `gorm:"column:sku;type:varchar(64);index"`
	Stock       int             `gorm:"not null;default:0"`
	IsActive    bool            `gorm:"not null;index"`
	IsFeatured  bool            `gorm:"not null;default:false"`
	CategoryID  *uuid.UUID      `gorm:"type:uuid;index"`
	BrandID     *uuid.UUID      `gorm:"type:uuid;index"`

	Images []ProductImageModel `gorm:"foreignKey:ProductID"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product.
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		Slug:              m.Slug,
		Description:       m.Description,
		Price:             m.Price,
		SKU:               m.SKU,
		Stock:             m.Stock,
		IsActive:          m.IsActive,
		IsFeatured:        m.IsFeatured,
		CategoryID:        m.CategoryID,
		BrandID:           m.BrandID,
	}
	for i := range m.Images {
		p.Images = append(p.Images, m.Images[i].ToDomain())
	}
	return p
}

// FromDomain populates the persistence model from a domain Product. Images are saved separately.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Name = p.Name
	m.Slug = p.Slug
	m.Description = p.Description
	m.Price = p.Price
	m.SKU = p.SKU
	m.Stock = p.Stock
	m.IsActive = p.IsActive
	m.IsFeatured = p.IsFeatured
	m.CategoryID = p.CategoryID
	m.BrandID = p.BrandID
}

// ProductModelFromDomain creates a new persistence model from a domain Product.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// ProductImageModel is one gallery image of a product
type ProductImageModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	URL       string    `gorm:"column:url;type:varchar(1000);not null"`
	Alt       string    `gorm:"type:varchar(200)"`
	Position  int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductImageModel) TableName() string {
	return "product_images"
}

func (m *ProductImageModel) ToDomain() catalog.ProductImage {
	return catalog.ProductImage{ID: m.ID, ProductID: m.ProductID, URL: m.URL, Alt: m.Alt, Position: m.Position}
}

func ProductImageModelFromDomain(img catalog.ProductImage) *ProductImageModel {
	return &ProductImageModel{ID: img.ID, ProductID: img.ProductID, URL: img.URL, Alt: img.Alt, Position: img.Position}
}

// CategoryModel is the persistence model for product categories.
type CategoryModel struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);not null"`
	Slug        string `gorm:"type:varchar(120);not null;uniqueIndex"`
	Description string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

func (m *CategoryModel) ToDomain() *catalog.Category {
	return &catalog.Category{
		BaseEntity:  m.BaseModel.ToDomain(),
		Name:        m.Name,
		Slug:        m.Slug,
		Description: m.Description,
	}
}

func CategoryModelFromDomain(c *catalog.Category) *CategoryModel {
	m := &CategoryModel{Name: c.Name, Slug: c.Slug, Description: c.Description}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// BrandModel is the persistence model for brands.
type BrandModel struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);not null"`
	Slug        string `gorm:"type:varchar(120);not null;uniqueIndex"`
	Description string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (BrandModel) TableName() string {
	return "brands"
}

func (m *BrandModel) ToDomain() *catalog.Brand {
	return &catalog.Brand{
		BaseEntity:  m.BaseModel.ToDomain(),
		Name:        m.Name,
		Slug:        m.Slug,
		Description: m.Description,
	}
}

func BrandModelFromDomain(b *catalog.Brand) *BrandModel {
	m := &BrandModel{Name: b.Name, Slug: b.Slug, Description: b.Description}
	m.FromDomainBaseEntity(b.BaseEntity)
	return m
}

// ReviewModel is the persistence model for product reviews.
type ReviewModel struct {
	BaseModel
	ProductID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	UserID     *uuid.UUID `gorm:"type:uuid;index"`
	AuthorName string     `gorm:"type:varchar(100);not null"`
	Rating     int        `gorm:"not null"`
	Comment    string     `gorm:"type:text"`
	IsApproved bool       `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (ReviewModel) TableName() string {
	return "reviews"
}

func (m *ReviewModel) ToDomain() *catalog.Review {
	return &catalog.Review{
		BaseEntity: m.BaseModel.ToDomain(),
		ProductID:  m.ProductID,
		UserID:     m.UserID,
		AuthorName: m.AuthorName,
		Rating:     m.Rating,
		Comment:    m.Comment,
		IsApproved: m.IsApproved,
	}
}

func ReviewModelFromDomain(r *catalog.Review) *ReviewModel {
	m := &ReviewModel{
		ProductID:  r.ProductID,
		UserID:     r.UserID,
		AuthorName: r.AuthorName,
		Rating:     r.Rating,
		Comment:    r.Comment,
		IsApproved: r.IsApproved,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}
