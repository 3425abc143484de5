package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/ordersync/internal/infrastructure/auth"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTSubjectKey = "jwt_subject"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultJWTConfig returns default JWT middleware configuration
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/health", "/ready"},
	}
}

// JWTAuth creates JWT authentication middleware
func JWTAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthWithConfig(DefaultJWTConfig(jwtService))
}

// JWTAuthWithConfig creates JWT authentication middleware with custom config
func JWTAuthWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, skip := range cfg.SkipPaths {
			if c.Request.URL.Path == skip {
				c.Next()
				return
			}
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			handleAuthError(c, cfg, auth.ErrInvalidToken, "Missing or malformed authorization header")
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(tokenString)
		if err != nil {
			handleAuthError(c, cfg, err, "Token validation failed")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTSubjectKey, claims.Subject)

		ctx, _ := logger.WithActor(c.Request.Context(), logger.FromContext(c.Request.Context()), claims.Subject)
		c.Request = c.Request.WithContext(ctx)

		if cfg.Logger != nil {
			cfg.Logger.Debug("JWT authentication successful",
				zap.String("subject", claims.Subject),
				zap.Strings("roles", claims.Roles),
			)
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

// handleAuthError aborts with 401
func handleAuthError(c *gin.Context, cfg JWTMiddlewareConfig, err error, message string) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("JWT authentication failed",
			zap.Error(err),
			zap.String("message", message),
			zap.String("path", c.Request.URL.Path),
		)
	}

	code := dto.ErrCodeUnauthorized
	msg := "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, msg = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidTokenType),
		errors.Is(err, auth.ErrTokenNotYetValid), errors.Is(err, auth.ErrInvalidClaims):
		code, msg = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, msg, getRequestID(c)))
}

// RequireRole allows the request only if the token carries one of roles.
// Must run after JWTAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", getRequestID(c)))
			return
		}
		if !claims.HasAnyRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Insufficient role", getRequestID(c)))
			return
		}
		c.Next()
	}
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTSubject retrieves the token subject from context
func GetJWTSubject(c *gin.Context) string {
	return c.GetString(JWTSubjectKey)
}

// HasRole reports whether the authenticated caller has role
func HasRole(c *gin.Context, role string) bool {
	claims := GetJWTClaims(c)
	return claims != nil && claims.HasRole(role)
}
