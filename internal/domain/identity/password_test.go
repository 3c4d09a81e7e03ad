package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = HashPassword(strings.Repeat("x", 73))
	assert.Error(t, err)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	u, err := NewUser("Pilot@Example.PL ", hash, "Pilot", RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, "pilot@example.pl", u.Email)
	assert.True(t, u.VerifyPassword("correct horse"))
	assert.False(t, u.VerifyPassword("wrong horse"))
}

func TestUser_ChangePassword(t *testing.T) {
	hash, err := HashPassword("first-password")
	require.NoError(t, err)
	u, err := NewUser("pilot@example.pl", hash, "", RoleCustomer)
	require.NoError(t, err)

	assert.ErrorIs(t, u.ChangePassword("nope", "second-password"), ErrInvalidCredentials)
	require.NoError(t, u.ChangePassword("first-password", "second-password"))
	assert.True(t, u.VerifyPassword("second-password"))
}
