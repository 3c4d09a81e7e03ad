package persistence

import (
	"context"
	"errors"

	"github.com/dronehub/backend/internal/domain/identity"
	"github.com/dronehub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) findOne(ctx context.Context, query string, arg any) (*identity.User, error) {
	var m models.UserModel
	err := r.db.WithContext(ctx).Preload("Addresses").Where(query, arg).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identity.ErrUserNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByID finds a user with the address book
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByEmail finds a user by normalized email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	return r.findOne(ctx, "email = ?", identity.NormalizeEmail(email))
}

// ExistsByEmail checks whether an email is registered
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("email = ?", identity.NormalizeEmail(email)).
		Count(&count).Error
	return count > 0, err
}

// Save upserts the user and replaces the address book
func (r *GormUserRepository) Save(ctx context.Context, u *identity.User) error {
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Omit("Addresses").Save(models.UserModelFromDomain(u)).Error; err != nil {
			if isDuplicate(err) {
				return identity.ErrEmailTaken
			}
			return err
		}
		if err := tx.Where("user_id = ?", u.ID).Delete(&models.UserAddressModel{}).Error; err != nil {
			return err
		}
		for _, a := range u.Addresses {
			a.UserID = u.ID
			if err := tx.Create(models.UserAddressModelFromDomain(a)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Ensure GormUserRepository implements identity.UserRepository
var _ identity.UserRepository = (*GormUserRepository)(nil)
