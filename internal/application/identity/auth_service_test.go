package identity

import (
	"context"
	"testing"
	"time"

	"github.com/dronehub/backend/internal/domain/identity"
	"github.com/dronehub/backend/internal/infrastructure/auth"
	"github.com/dronehub/backend/internal/infrastructure/config"
	"github.com/dronehub/backend/internal/infrastructure/persistence"
	"github.com/dronehub/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*AuthService, identity.UserRepository, *auth.InMemoryTokenBlacklist) {
	t.Helper()
	users := persistence.NewGormUserRepository(testutil.NewSQLiteDB(t))
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		Issuer:                 "dronehub-test",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		MaxRefreshCount:        5,
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	return NewAuthService(users, jwtService, blacklist, zap.NewNop()), users, blacklist
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{Email: " Pilot@Example.PL ", Password: "smigla-5cali", Name: "Jan Pilot"})
	require.NoError(t, err)
	assert.Equal(t, "pilot@example.pl", reg.User.Email)
	assert.Equal(t, string(identity.RoleCustomer), reg.User.Role)
	assert.NotEmpty(t, reg.AccessToken)

	_, err = svc.Register(ctx, RegisterRequest{Email: "pilot@example.pl", Password: "another-pass"})
	assert.ErrorIs(t, err, identity.ErrEmailTaken)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid", "PILOT@example.pl", "smigla-5cali", nil},
		{"wrong password", "pilot@example.pl", "smigla-3cale", identity.ErrInvalidCredentials},
		{"unknown email", "nikt@example.pl", "smigla-5cali", identity.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Login(ctx, LoginRequest{Email: tt.email, Password: tt.password})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, reg.User.ID, resp.User.ID)
			assert.NotNil(t, resp.User.LastLoginAt)

			claims, err := svc.Authenticate(ctx, resp.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, reg.User.ID.String(), claims.UserID)
		})
	}
}

func TestAuthService_WeakPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.pl", Password: "krótkie"})
	assert.ErrorIs(t, err, identity.ErrWeakPassword)
}

func TestAuthService_InactiveUser(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, RegisterRequest{Email: "blokada@example.pl", Password: "haslo-12345"})
	require.NoError(t, err)

	u, err := users.FindByID(ctx, reg.User.ID)
	require.NoError(t, err)
	u.IsActive = false
	require.NoError(t, users.Save(ctx, u))

	_, err = svc.Login(ctx, LoginRequest{Email: "blokada@example.pl", Password: "haslo-12345"})
	assert.ErrorIs(t, err, identity.ErrUserInactive)
	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: reg.RefreshToken})
	assert.ErrorIs(t, err, identity.ErrUserInactive)
}

func TestAuthService_RefreshPicksUpRole(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, RegisterRequest{Email: "szef@dronehub.pl", Password: "haslo-admina"})
	require.NoError(t, err)

	require.NoError(t, svc.EnsureAdmin(ctx, "szef@dronehub.pl", "ignored-password"))

	refreshed, err := svc.Refresh(ctx, RefreshRequest{RefreshToken: reg.RefreshToken})
	require.NoError(t, err)
	claims, err := svc.Authenticate(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, string(identity.RoleAdmin), claims.Role)

	// the old refresh token was used up
	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: reg.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: "garbage"})
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthService_Logout(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, RegisterRequest{Email: "wyloguj@example.pl", Password: "haslo-12345"})
	require.NoError(t, err)

	svc.Logout(ctx, reg.AccessToken, reg.RefreshToken)

	_, err = svc.Authenticate(ctx, reg.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: reg.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthService_ChangePassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, RegisterRequest{Email: "zmiana@example.pl", Password: "stare-haslo"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, reg.User.ID, ChangePasswordRequest{CurrentPassword: "zle-haslo", NewPassword: "nowe-haslo-1"})
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, reg.User.ID, ChangePasswordRequest{CurrentPassword: "stare-haslo", NewPassword: "nowe-haslo-1"}))
	_, err = svc.Authenticate(ctx, reg.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = svc.Login(ctx, LoginRequest{Email: "zmiana@example.pl", Password: "stare-haslo"})
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestAuthService_Addresses(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, RegisterRequest{Email: "adresy@example.pl", Password: "haslo-12345"})
	require.NoError(t, err)

	resp, err := svc.ReplaceAddresses(ctx, reg.User.ID, AddressesRequest{Addresses: []AddressRequest{
		{Label: "Dom", Street: "Długa", Building: "5", PostalCode: "80-831", City: "Gdańsk", CountryCode: "pl", IsDefault: true},
		{Label: "Paczkomat", LockerID: " gda01m "},
	}})
	require.NoError(t, err)
	require.Len(t, resp.Addresses, 2)
	assert.Equal(t, "PL", resp.Addresses[0].CountryCode)
	assert.Equal(t, "GDA01M", resp.Addresses[1].LockerID)

	me, err := svc.Me(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Len(t, me.Addresses, 2)

	_, err = svc.ReplaceAddresses(ctx, reg.User.ID, AddressesRequest{Addresses: []AddressRequest{
		{Street: "A", IsDefault: true}, {Street: "B", IsDefault: true},
	}})
	assert.Error(t, err)

	_, err = svc.ReplaceAddresses(ctx, reg.User.ID, AddressesRequest{Addresses: []AddressRequest{{Label: "pusty"}}})
	assert.Error(t, err)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@dronehub.pl", "bootstrap-pass"))
	require.NoError(t, svc.EnsureAdmin(ctx, "admin@dronehub.pl", "other-pass"))

	u, err := users.FindByEmail(ctx, "admin@dronehub.pl")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
	assert.True(t, u.VerifyPassword("bootstrap-pass"))
}
