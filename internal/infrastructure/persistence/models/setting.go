package models

import (
	"time"

	"github.com/dronehub/backend/internal/domain/setting"
)

// SettingModel is a runtime key/value setting
type SettingModel struct {
	Key       string    `gorm:"type:varchar(100);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
	UpdatedBy string    `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (SettingModel) TableName() string {
	return "settings"
}

func (m *SettingModel) ToDomain() *setting.Setting {
	return &setting.Setting{Key: m.Key, Value: m.Value, UpdatedAt: m.UpdatedAt, UpdatedBy: m.UpdatedBy}
}

func SettingModelFromDomain(s *setting.Setting) *SettingModel {
	return &SettingModel{Key: s.Key, Value: s.Value, UpdatedAt: s.UpdatedAt, UpdatedBy: s.UpdatedBy}
}
