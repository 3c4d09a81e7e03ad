package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/dronehub/backend/internal/domain/setting"
	"github.com/dronehub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSettingRepository implements setting.Repository using GORM
type GormSettingRepository struct {
	db *gorm.DB
}

// NewGormSettingRepository creates a new GormSettingRepository
func NewGormSettingRepository(db *gorm.DB) *GormSettingRepository {
	return &GormSettingRepository{db: db}
}

// Get returns one setting or setting.ErrSettingNotFound
func (r *GormSettingRepository) Get(ctx context.Context, key string) (*setting.Setting, error) {
	var m models.SettingModel
	if err := r.db.WithContext(ctx).First(&m, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, setting.ErrSettingNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// List returns all settings ordered by key
func (r *GormSettingRepository) List(ctx context.Context) ([]*setting.Setting, error) {
	var rows []models.SettingModel
	if err := r.db.WithContext(ctx).Order("key ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*setting.Setting, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Upsert inserts or overwrites a setting
func (r *GormSettingRepository) Upsert(ctx context.Context, s *setting.Setting) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at", "updated_by"}),
	}).Create(models.SettingModelFromDomain(s)).Error
}

// Delete removes a setting
func (r *GormSettingRepository) Delete(ctx context.Context, key string) error {
	result := r.db.WithContext(ctx).Delete(&models.SettingModel{}, "key = ?", key)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return setting.ErrSettingNotFound
	}
	return nil
}

// Ensure GormSettingRepository implements setting.Repository
var _ setting.Repository = (*GormSettingRepository)(nil)
