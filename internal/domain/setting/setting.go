package setting

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
)

// Setting is an operator-editable key/value pair
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
	UpdatedBy string
}

// Repository persists settings
type Repository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	List(ctx context.Context) ([]*Setting, error)
	Upsert(ctx context.Context, s *Setting) error
	Delete(ctx context.Context, key string) error
}

// Reader is the read side used by integrations
type Reader interface {
	Get(ctx context.Context, key string) (string, bool, error)
	// GetPrefix returns every setting whose key starts with prefix
	GetPrefix(ctx context.Context, prefix string) (Values, error)
}

// Values is a snapshot of settings
type Values map[string]string

// String returns the value or def when missing or blank
func (v Values) String(key, def string) string {
	if s, ok := v[key]; ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return def
}

// Bool parses "true", "1", "yes", "on" as true
func (v Values) Bool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(v[key])) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// Int parses an integer or returns def
func (v Values) Int(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v[key]))
	if err != nil {
		return def
	}
	return n
}

// Missing returns the keys that are absent or blank
func (v Values) Missing(keys ...string) []string {
	var out []string
	for _, k := range keys {
		if strings.TrimSpace(v[k]) == "" {
			out = append(out, k)
		}
	}
	return out
}

func validKey(k string) bool {
	if k == "" || len(k) > 100 {
		return false
	}
	for _, r := range k {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '.' && r != '_' {
			return false
		}
	}
	return true
}

// ValidateKey checks the key format: lowercase dotted identifiers such as "inpost.api_token"
func ValidateKey(key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	return nil
}

// IsSecret reports whether a key holds a credential that must not be echoed back
func IsSecret(key string) bool {
	for _, marker := range []string{"password", "token", "secret", "api_key"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

// Mask hides all but the last four characters of a secret
func Mask(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

var (
	ErrSettingNotFound = shared.NewDomainError("SETTING_NOT_FOUND", "Setting not found")
	ErrInvalidKey      = shared.NewDomainError("INVALID_SETTING_KEY", "Setting keys are lowercase dotted identifiers")
)

// Invalidator fans out setting changes to other processes so their caches drop stale values.
// An empty key means every key changed.
type Invalidator interface {
	PublishChange(ctx context.Context, key string) error
	Subscribe(ctx context.Context, onChange func(key string)) error
	Close() error
}
