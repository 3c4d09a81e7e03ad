package identity

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Role is the authorization level of a user
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// User is a registered customer or administrator. Guests check out without one.
type User struct {
	shared.BaseAggregateRoot
	Email        string
	PasswordHash string
	Name         string
	Phone        string
	Role         Role
	IsActive     bool
	LastLoginAt  *time.Time
	Addresses    []Address
}

// Address is a saved address book entry
type Address struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Label       string
	Street      string
	Building    string
	Flat        string
	PostalCode  string
	City        string
	CountryCode string
	LockerID    string
	IsDefault   bool
}

// NewUser creates an active user with an already hashed password
func NewUser(email, passwordHash, name string, role Role) (*User, error) {
	email = NormalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if passwordHash == "" {
		return nil, shared.ErrInvalidInput.WithMessage("password is required")
	}
	if !role.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("unknown role %q", role)
	}
	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		PasswordHash:      passwordHash,
		Name:              strings.TrimSpace(name),
		Role:              role,
		IsActive:          true,
	}, nil
}

// IsAdmin reports whether the user may call admin endpoints
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RecordLogin stamps the last login time
func (u *User) RecordLogin(at time.Time) {
	u.LastLoginAt = &at
	u.UpdatedAt = at
}

// UpdateProfile changes the display name and phone
func (u *User) UpdateProfile(name, phone string) {
	u.Name = strings.TrimSpace(name)
	u.Phone = strings.TrimSpace(phone)
	u.Touch()
}

// SetAddresses replaces the address book. At most one entry is the default.
func (u *User) SetAddresses(addrs []Address) error {
	defaults := 0
	for i := range addrs {
		if addrs[i].Street == "" && addrs[i].LockerID == "" {
			return shared.ErrInvalidInput.WithMessage("address %d needs a street or a locker id", i+1)
		}
		if addrs[i].IsDefault {
			defaults++
		}
		addrs[i].ID = uuid.New()
		addrs[i].UserID = u.ID
	}
	if defaults > 1 {
		return shared.ErrInvalidInput.WithMessage("only one address can be the default")
	}
	u.Addresses = addrs
	u.Touch()
	return nil
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRepository persists users with their address book
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, u *User) error
}

var (
	ErrUserNotFound       = shared.NewDomainError("USER_NOT_FOUND", "User not found")
	ErrInvalidEmail       = shared.NewDomainError("INVALID_EMAIL", "Invalid email address")
	ErrEmailTaken         = shared.NewDomainError("ALREADY_EXISTS", "Email is already registered")
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	ErrUserInactive       = shared.NewDomainError("USER_INACTIVE", "Account is disabled")
)
