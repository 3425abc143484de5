package middleware

import (
	"net/http"

	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit rejects declared bodies over maxBytes with 413 and caps chunked ones.
// maxBytes <= 0 disables the limit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeBodyTooLarge, "Request body exceeds maximum allowed size", getRequestID(c)))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
