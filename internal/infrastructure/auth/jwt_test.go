package auth

import (
	"testing"
	"time"

	"github.com/erp/ordersync/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "ordersync-test",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

func TestNewJWTService_DefaultExpiration(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "s"})
	assert.Equal(t, time.Hour, svc.GetAccessTokenExpiration())
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestJWTService()

	token, expiresAt, err := svc.GenerateToken("ops@example.com", []string{RoleAdmin}, 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, "ordersync-test", claims.Issuer)
	assert.True(t, claims.HasRole(RoleAdmin))
	assert.False(t, claims.HasRole(RoleService))
	assert.True(t, claims.HasAnyRole(RoleService, RoleAdmin))
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestValidateAccessToken_Errors(t *testing.T) {
	svc := newTestJWTService()

	expired, _, err := svc.GenerateToken("svc", []string{RoleService}, -time.Hour)
	require.NoError(t, err)

	otherSigner := NewJWTService(config.JWTConfig{Secret: "another-secret-key-32-characters!", Issuer: "ordersync-test"})
	foreign, _, err := otherSigner.GenerateToken("svc", nil, 0)
	require.NoError(t, err)

	otherIssuer := NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "elsewhere"})
	wrongIssuer, _, err := otherIssuer.GenerateToken("svc", nil, 0)
	require.NoError(t, err)

	wrongType := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "svc",
			Issuer:    "ordersync-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TokenType: "refresh",
	})
	wrongTypeToken, err := wrongType.SignedString([]byte("test-secret-key-at-least-32-chars"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"expired", expired, ErrExpiredToken},
		{"signed with another secret", foreign, ErrInvalidToken},
		{"issued by another service", wrongIssuer, ErrInvalidToken},
		{"wrong token type", wrongTypeToken, ErrInvalidTokenType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGenerateToken_Validation(t *testing.T) {
	_, _, err := newTestJWTService().GenerateToken("", nil, 0)
	assert.ErrorIs(t, err, ErrMissingSubject)

	_, _, err = NewJWTService(config.JWTConfig{}).GenerateToken("svc", nil, 0)
	assert.ErrorIs(t, err, ErrMissingSecret)
}
