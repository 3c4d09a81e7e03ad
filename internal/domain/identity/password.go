package identity

import (
	"unicode/utf8"

	"github.com/dronehub/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Password cost for bcrypt
const bcryptCost = 12

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

// HashPassword validates and hashes a plain text password
func HashPassword(password string) (string, error) {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	// bcrypt ignores input beyond 72 bytes
	if len(password) > 72 {
		return "", shared.ErrInvalidInput.WithMessage("password must be at most 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangePassword replaces the hash after checking the current password
func (u *User) ChangePassword(current, next string) error {
	if !u.VerifyPassword(current) {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.Touch()
	return nil
}

var ErrWeakPassword = shared.NewDomainError("WEAK_PASSWORD", "Password must have at least 8 characters")
