package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in and out
const RequestIDHeader = "X-Request-ID"

// MaxRequestIDLength bounds client-supplied request ids
const MaxRequestIDLength = 128

// CORSConfig holds CORS middleware configuration
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       time.Duration
}

// DefaultCORSConfig returns default CORS configuration.
// AllowOrigins is empty: cross-origin requests are rejected until configured.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization", RequestIDHeader},
		MaxAge:       12 * time.Hour,
	}
}

// CORSWithConfig returns a CORS middleware
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowOrigin := ""
		switch {
		case allowed["*"]:
			allowOrigin = "*"
		case origin != "" && allowed[origin]:
			allowOrigin = origin
		}

		if allowOrigin != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowMethods, ", "))
			h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowHeaders, ", "))
			h.Set("Access-Control-Expose-Headers", RequestIDHeader)
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge.Seconds())))
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestID adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > MaxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(logger.RequestIDContextKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Next()
	}
}

// Secure adds the usual security headers for a JSON API
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		c.Next()
	}
}

func getRequestID(c *gin.Context) string {
	if id := c.GetString(logger.RequestIDContextKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDHeader)
}
