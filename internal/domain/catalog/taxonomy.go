package catalog

import (
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
)

// Category groups products (frames, motors, ESCs, ...)
type Category struct {
	shared.BaseEntity
	Name        string
	Slug        string
	Description string
}

// Brand is a product manufacturer
type Brand struct {
	shared.BaseEntity
	Name        string
	Slug        string
	Description string
}

// NewCategory creates a category, deriving the slug from the name when empty
func NewCategory(name, slug, description string) (*Category, error) {
	c := &Category{BaseEntity: shared.NewBaseEntity()}
	if err := c.Update(name, slug, description); err != nil {
		return nil, err
	}
	return c, nil
}

// Update changes name, slug and description
func (c *Category) Update(name, slug, description string) error {
	n, s, err := normalizeNamed(name, slug)
	if err != nil {
		return err
	}
	c.Name, c.Slug, c.Description = n, s, description
	c.UpdatedAt = time.Now()
	return nil
}

// NewBrand creates a brand, deriving the slug from the name when empty
func NewBrand(name, slug, description string) (*Brand, error) {
	b := &Brand{BaseEntity: shared.NewBaseEntity()}
	if err := b.Update(name, slug, description); err != nil {
		return nil, err
	}
	return b, nil
}

// Update changes name, slug and description
func (b *Brand) Update(name, slug, description string) error {
	n, s, err := normalizeNamed(name, slug)
	if err != nil {
		return err
	}
	b.Name, b.Slug, b.Description = n, s, description
	b.UpdatedAt = time.Now()
	return nil
}

func normalizeNamed(name, slug string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", shared.ErrInvalidInput.WithMessage("name is required")
	}
	if slug == "" {
		slug = Slugify(name)
	}
	if !IsValidSlug(slug) {
		return "", "", ErrInvalidSlug
	}
	return name, slug, nil
}
