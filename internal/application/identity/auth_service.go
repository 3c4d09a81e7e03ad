// Package identity contains account, login and address book use cases.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/identity"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Token errors as seen by API clients
var (
	ErrTokenExpired    = shared.NewDomainError("TOKEN_EXPIRED", "Token has expired")
	ErrTokenInvalid    = shared.NewDomainError("TOKEN_INVALID", "Invalid token")
	ErrTokenMaxRefresh = shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	ErrTokenRevoked    = shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked")
)

// AuthService handles registration, login and the account of the current user
type AuthService struct {
	users     identity.UserRepository
	jwt       *auth.JWTService
	blacklist auth.TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService creates a new authentication service. blacklist may be nil.
func NewAuthService(users identity.UserRepository, jwt *auth.JWTService, blacklist auth.TokenBlacklist, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, jwt: jwt, blacklist: blacklist, logger: logger}
}

// Register creates a customer account and logs it in
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := identity.NormalizeEmail(req.Email)
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, identity.ErrEmailTaken
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user, err := identity.NewUser(email, hash, req.Name, identity.RoleCustomer)
	if err != nil {
		return nil, err
	}
	user.UpdateProfile(req.Name, req.Phone)
	user.RecordLogin(time.Now())
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Customer registered", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

// Login authenticates by email and password
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.FindByEmail(ctx, identity.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			s.logger.Warn("Login for unknown email")
			return nil, identity.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.VerifyPassword(req.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, identity.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, identity.ErrUserInactive
	}

	user.RecordLogin(time.Now())
	if err := s.users.Save(ctx, user); err != nil {
		// the login itself succeeded
		s.logger.Error("Failed to record login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))
	return s.issue(user)
}

func (s *AuthService) issue(user *identity.User) (*AuthResponse, error) {
	pair, err := s.jwt.GenerateTokenPair(auth.GenerateTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		return nil, err
	}
	resp := pairResponse(pair)
	resp.User = ToUserResponse(user)
	return resp, nil
}

func pairResponse(pair *auth.TokenPair) *AuthResponse {
	return &AuthResponse{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}
}

// Refresh exchanges a refresh token for a new pair carrying the user's current role
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, mapTokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, ErrTokenInvalid
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, identity.ErrUserInactive
	}

	pair, err := s.jwt.RefreshTokenPair(req.RefreshToken, string(user.Role))
	if err != nil {
		return nil, mapTokenError(err)
	}
	// one refresh token, one use
	s.revoke(ctx, claims)
	return pairResponse(pair), nil
}

// Logout revokes the given tokens until they expire. Without a blacklist it is a no-op.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) {
	if claims, err := s.jwt.ValidateAccessToken(accessToken); err == nil {
		s.revoke(ctx, claims)
	}
	if refreshToken != "" {
		if claims, err := s.jwt.ValidateRefreshToken(refreshToken); err == nil {
			s.revoke(ctx, claims)
		}
	}
}

// Authenticate validates an access token, including revocation
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := s.jwt.ValidateAccessToken(strings.TrimSpace(accessToken))
	if err != nil {
		return nil, mapTokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) revoke(ctx context.Context, claims *auth.Claims) {
	if s.blacklist == nil || claims.ID == "" {
		return
	}
	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		s.logger.Warn("Failed to revoke token", zap.String("user_id", claims.UserID), zap.Error(err))
	}
}

// checkRevoked fails open when the blacklist store is unreachable
func (s *AuthService) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	if s.blacklist == nil {
		return nil
	}
	revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err == nil && !revoked {
		revoked, err = s.blacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.GetIssuedAtTime())
	}
	if err != nil {
		s.logger.Warn("Token blacklist unavailable", zap.Error(err))
		return nil
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return ErrTokenExpired
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return ErrTokenMaxRefresh
	default:
		return ErrTokenInvalid.Wrap(err)
	}
}

// Me returns the current user with the address book
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToUserResponse(user), nil
}

// UpdateProfile changes name and phone
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req ProfileRequest) (*UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.UpdateProfile(req.Name, req.Phone)
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return ToUserResponse(user), nil
}

// ChangePassword replaces the password and signs out every other session
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.ChangePassword(req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	if s.blacklist != nil {
		if err := s.blacklist.AddUserTokensToBlacklist(ctx, userID.String(), s.jwt.GetRefreshTokenExpiration()); err != nil {
			s.logger.Warn("Failed to invalidate sessions after password change", zap.Error(err))
		}
	}
	s.logger.Info("User password changed", zap.String("user_id", userID.String()))
	return nil
}

// ReplaceAddresses swaps the whole address book
func (s *AuthService) ReplaceAddresses(ctx context.Context, userID uuid.UUID, req AddressesRequest) (*UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	addrs := make([]identity.Address, len(req.Addresses))
	for i, a := range req.Addresses {
		addrs[i] = identity.Address{
			Label:       strings.TrimSpace(a.Label),
			Street:      strings.TrimSpace(a.Street),
			Building:    strings.TrimSpace(a.Building),
			Flat:        strings.TrimSpace(a.Flat),
			PostalCode:  strings.TrimSpace(a.PostalCode),
			City:        strings.TrimSpace(a.City),
			CountryCode: strings.ToUpper(a.CountryCode),
			LockerID:    strings.ToUpper(strings.TrimSpace(a.LockerID)),
			IsDefault:   a.IsDefault,
		}
	}
	if err := user.SetAddresses(addrs); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return ToUserResponse(user), nil
}

// EnsureAdmin creates the bootstrap administrator when no account uses the email yet.
// An existing account is promoted but its password is left alone.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	user, err := s.users.FindByEmail(ctx, identity.NormalizeEmail(email))
	switch {
	case err == nil:
		if user.IsAdmin() {
			return nil
		}
		user.Role = identity.RoleAdmin
		user.Touch()
		s.logger.Info("Promoted user to admin", zap.String("user_id", user.ID.String()))
		return s.users.Save(ctx, user)
	case !errors.Is(err, identity.ErrUserNotFound):
		return err
	}

	hash, err := identity.HashPassword(password)
	if err != nil {
		return err
	}
	admin, err := identity.NewUser(email, hash, "Administrator", identity.RoleAdmin)
	if err != nil {
		return err
	}
	if err := s.users.Save(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("Bootstrap admin created", zap.String("user_id", admin.ID.String()))
	return nil
}
