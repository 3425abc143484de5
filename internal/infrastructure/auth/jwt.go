// Package auth issues and validates the HS256 access tokens of the admin and payment surfaces.
package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/erp/ordersync/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType represents the type of JWT token
type TokenType string

const TokenTypeAccess TokenType = "access"

// Roles understood by the HTTP surface
const (
	// RoleAdmin may additionally force pushes and manage the ERP configuration
	RoleAdmin = "admin"
	// RoleOperator may trigger syncs, push orders and read sync logs
	RoleOperator = "operator"
	// RoleService is held by internal callers posting payment results
	RoleService = "service"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingSubject   = errors.New("missing subject in claims")
	ErrMissingSecret    = errors.New("jwt secret is not configured")
)

// Claims represents custom JWT claims
type Claims struct {
	jwt.RegisteredClaims
	Roles     []string  `json:"roles,omitempty"`
	TokenType TokenType `json:"token_type"`
}

// HasRole checks if the claims carry role
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasAnyRole checks if the claims carry any of roles
func (c *Claims) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}

// GetExpiresAtTime returns the token's expiration time as time.Time
func (c *Claims) GetExpiresAtTime() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}

// JWTService handles JWT token operations
type JWTService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	expiration := cfg.AccessTokenExpiration
	if expiration == 0 {
		expiration = time.Hour
	}
	return &JWTService{
		secret:     []byte(cfg.Secret),
		expiration: expiration,
		issuer:     cfg.Issuer,
	}
}

// GenerateToken signs an access token for subject with the given roles
func (s *JWTService) GenerateToken(subject string, roles []string, ttl time.Duration) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrMissingSecret
	}
	if subject == "" {
		return "", time.Time{}, ErrMissingSubject
	}
	if ttl == 0 {
		ttl = s.expiration
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Roles:     roles,
		TokenType: TokenTypeAccess,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ValidateAccessToken validates an access token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrMissingSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrInvalidTokenType
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

// GetAccessTokenExpiration returns the default token lifetime
func (s *JWTService) GetAccessTokenExpiration() time.Duration {
	return s.expiration
}
