package identity

import (
	"time"

	"github.com/dronehub/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// RegisterRequest creates a customer account
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"max=100"`
	Phone    string `json:"phone" binding:"max=20"`
}

// LoginRequest contains credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest exchanges a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ProfileRequest updates name and phone
type ProfileRequest struct {
	Name  string `json:"name" binding:"max=100"`
	Phone string `json:"phone" binding:"max=20"`
}

// ChangePasswordRequest replaces the password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// AddressRequest is an address book entry
type AddressRequest struct {
	Label       string `json:"label" binding:"max=50"`
	Street      string `json:"street" binding:"max=200"`
	Building    string `json:"building_number" binding:"max=20"`
	Flat        string `json:"flat_number" binding:"max=20"`
	PostalCode  string `json:"postal_code" binding:"max=12,postcode_pl"`
	City        string `json:"city" binding:"max=100"`
	CountryCode string `json:"country_code" binding:"omitempty,len=2"`
	LockerID    string `json:"locker_id" binding:"max=20"`
	IsDefault   bool   `json:"is_default"`
}

// AddressesRequest replaces the whole address book
type AddressesRequest struct {
	Addresses []AddressRequest `json:"addresses" binding:"max=20,dive"`
}

// UserResponse is the public view of an account
type UserResponse struct {
	ID          uuid.UUID         `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Phone       string            `json:"phone"`
	Role        string            `json:"role"`
	LastLoginAt *time.Time        `json:"last_login_at,omitempty"`
	Addresses   []AddressResponse `json:"addresses"`
	CreatedAt   time.Time         `json:"created_at"`
}

// AddressResponse is a saved address
type AddressResponse struct {
	ID          uuid.UUID `json:"id"`
	Label       string    `json:"label"`
	Street      string    `json:"street"`
	Building    string    `json:"building_number"`
	Flat        string    `json:"flat_number"`
	PostalCode  string    `json:"postal_code"`
	City        string    `json:"city"`
	CountryCode string    `json:"country_code"`
	LockerID    string    `json:"locker_id,omitempty"`
	IsDefault   bool      `json:"is_default"`
}

// AuthResponse is returned by register, login and refresh
type AuthResponse struct {
	AccessToken           string        `json:"access_token"`
	RefreshToken          string        `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time     `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time     `json:"refresh_token_expires_at"`
	TokenType             string        `json:"token_type"`
	User                  *UserResponse `json:"user,omitempty"`
}

// ToUserResponse converts a domain user
func ToUserResponse(u *identity.User) *UserResponse {
	addrs := make([]AddressResponse, len(u.Addresses))
	for i, a := range u.Addresses {
		addrs[i] = AddressResponse{
			ID:          a.ID,
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
	return &UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Phone:       u.Phone,
		Role:        string(u.Role),
		LastLoginAt: u.LastLoginAt,
		Addresses:   addrs,
		CreatedAt:   u.CreatedAt,
	}
}
