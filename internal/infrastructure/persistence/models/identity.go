package models

import (
	"time"

	"github.com/dronehub/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// UserModel is the persistence model for the User aggregate.
type UserModel struct {
	AggregateModel
	Email        string        `gorm:"type:varchar(200);not null;uniqueIndex"`
	PasswordHash string        `gorm:"type:varchar(255);not null"`
	Name         string        `gorm:"type:varchar(200)"`
	Phone        string        `gorm:"type:varchar(30)"`
	Role         identity.Role `gorm:"type:varchar(20);not null;default:'CUSTOMER'"`
	IsActive     bool          `gorm:"not null"`
	LastLoginAt  *time.Time

	Addresses []UserAddressModel `gorm:"foreignKey:UserID"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User.
func (m *UserModel) ToDomain() *identity.User {
	u := &identity.User{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		Name:              m.Name,
		Phone:             m.Phone,
		Role:              m.Role,
		IsActive:          m.IsActive,
		LastLoginAt:       m.LastLoginAt,
	}
	for i := range m.Addresses {
		u.Addresses = append(u.Addresses, m.Addresses[i].ToDomain())
	}
	return u
}

// FromDomain populates the persistence model from a domain User. Addresses are saved separately.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Email = u.Email
	m.PasswordHash = u.PasswordHash
	m.Name = u.Name
	m.Phone = u.Phone
	m.Role = u.Role
	m.IsActive = u.IsActive
	m.LastLoginAt = u.LastLoginAt
}

// UserModelFromDomain creates a new persistence model from a domain User.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}

// UserAddressModel is a saved address book entry
type UserAddressModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Label       string    `gorm:"type:varchar(100)"`
	Street      string    `gorm:"type:varchar(200)"`
	Building    string    `gorm:"type:varchar(20)"`
	Flat        string    `gorm:"type:varchar(20)"`
	PostalCode  string    `gorm:"type:varchar(12)"`
	City        string    `gorm:"type:varchar(100)"`
	CountryCode string    `gorm:"type:varchar(2)"`
	LockerID    string    `gorm:"type:varchar(20)"`
	IsDefault   bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (UserAddressModel) TableName() string {
	return "user_addresses"
}

func (m *UserAddressModel) ToDomain() identity.Address {
	return identity.Address{
		ID:          m.ID,
		UserID:      m.UserID,
		Label:       m.Label,
		Street:      m.Street,
		Building:    m.Building,
		Flat:        m.Flat,
		PostalCode:  m.PostalCode,
		City:        m.City,
		CountryCode: m.CountryCode,
		LockerID:    m.LockerID,
		IsDefault:   m.IsDefault,
	}
}

func UserAddressModelFromDomain(a identity.Address) *UserAddressModel {
	return &UserAddressModel{
		ID:          a.ID,
		UserID:      a.UserID,
		Label:       a.Label,
		Street:      a.Street,
		Building:    a.Building,
		Flat:        a.Flat,
		PostalCode:  a.PostalCode,
		City:        a.City,
		CountryCode: a.CountryCode,
		LockerID:    a.LockerID,
		IsDefault:   a.IsDefault,
	}
}
