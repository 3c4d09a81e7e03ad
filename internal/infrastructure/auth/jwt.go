package auth

import (
	"errors"
	"time"

	"github.com/dronehub/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrMissingUserID      = errors.New("missing user_id in claims")
	ErrMaxRefreshExceeded = errors.New("maximum refresh count exceeded")
	ErrTokenBlacklisted   = errors.New("token has been revoked")
)

// Claims is the payload of both token kinds. The refresh token carries the
// role too, so a refresh can be answered without a user lookup.
type Claims struct {
	jwt.RegisteredClaims
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	TokenType    TokenType `json:"token_type"`
	RefreshCount int       `json:"refresh_count,omitempty"`
}

func (c *Claims) GetUserUUID() (uuid.UUID, error) { return uuid.Parse(c.UserID) }

func (c *Claims) HasRole(role string) bool { return c.Role == role }

func (c *Claims) GetIssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// GetRemainingTTL is how long a revoked token must stay blacklisted
func (c *Claims) GetRemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}

type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

type GenerateTokenInput struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// tokenKind signs one kind of token with its own secret and lifetime
type tokenKind struct {
	typ    TokenType
	secret []byte
	ttl    time.Duration
}

// JWTService issues HS256 token pairs and checks them. Access and refresh
// tokens use separate secrets when a refresh secret is configured.
type JWTService struct {
	access     tokenKind
	refresh    tokenKind
	issuer     string
	maxRefresh int
	now        func() time.Time
}

func NewJWTService(cfg config.JWTConfig) *JWTService {
	refreshSecret := cfg.RefreshSecret
	if refreshSecret == "" {
		refreshSecret = cfg.Secret
	}
	return &JWTService{
		access:     tokenKind{typ: TokenTypeAccess, secret: []byte(cfg.Secret), ttl: cfg.AccessTokenExpiration},
		refresh:    tokenKind{typ: TokenTypeRefresh, secret: []byte(refreshSecret), ttl: cfg.RefreshTokenExpiration},
		issuer:     cfg.Issuer,
		maxRefresh: cfg.MaxRefreshCount,
		now:        time.Now,
	}
}

func (s *JWTService) GetRefreshTokenExpiration() time.Duration { return s.refresh.ttl }

func (s *JWTService) GenerateTokenPair(in GenerateTokenInput) (*TokenPair, error) {
	return s.pair(in, 0)
}

// RefreshTokenPair trades a refresh token for a new pair. role is the user's
// current role; empty keeps the one in the token.
func (s *JWTService) RefreshTokenPair(refreshToken, role string) (*TokenPair, error) {
	claims, err := s.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if s.maxRefresh > 0 && claims.RefreshCount >= s.maxRefresh {
		return nil, ErrMaxRefreshExceeded
	}
	id, err := claims.GetUserUUID()
	if err != nil {
		return nil, ErrInvalidToken
	}
	if role == "" {
		role = claims.Role
	}
	return s.pair(GenerateTokenInput{UserID: id, Email: claims.Email, Role: role}, claims.RefreshCount+1)
}

func (s *JWTService) pair(in GenerateTokenInput, refreshCount int) (*TokenPair, error) {
	now := s.now()
	access, err := s.sign(s.access, in, 0, now)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(s.refresh, in, refreshCount, now)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  now.Add(s.access.ttl),
		RefreshTokenExpiresAt: now.Add(s.refresh.ttl),
		TokenType:             "Bearer",
	}, nil
}

func (s *JWTService) sign(k tokenKind, in GenerateTokenInput, refreshCount int, now time.Time) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   in.UserID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
		},
		UserID:       in.UserID.String(),
		Email:        in.Email,
		Role:         in.Role,
		TokenType:    k.typ,
		RefreshCount: refreshCount,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
}

func (s *JWTService) ValidateAccessToken(token string) (*Claims, error) {
	return s.parse(s.access, token)
}

func (s *JWTService) ValidateRefreshToken(token string) (*Claims, error) {
	return s.parse(s.refresh, token)
}

func (s *JWTService) parse(k tokenKind, token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	claims := &Claims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return k.secret, nil })
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	case claims.TokenType != k.typ:
		return nil, ErrInvalidTokenType
	case claims.UserID == "":
		return nil, ErrMissingUserID
	}
	return claims, nil
}
