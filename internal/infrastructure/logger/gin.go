package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestIDContextKey is the gin key the request id middleware writes
const RequestIDContextKey = "request_id"

// GinMiddleware logs each request and puts a request-scoped logger into the request context
func GinMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetString(RequestIDContextKey)

		ctx, reqLogger := WithRequestID(c.Request.Context(), base, requestID)
		reqLogger = reqLogger.With(
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Request = c.Request.WithContext(WithContext(ctx, reqLogger))

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if route := c.FullPath(); route != "" {
			fields = append(fields, zap.String("route", route))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		l := WithTraceContext(c.Request.Context(), reqLogger)
		switch {
		case status >= http.StatusInternalServerError:
			l.Error("HTTP request", fields...)
		case status >= http.StatusBadRequest:
			l.Warn("HTTP request", fields...)
		default:
			l.Info("HTTP request", fields...)
		}
	}
}

// Recovery turns panics into 500 responses and logs them with the stack
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				base.Error("Panic recovered",
					zap.String("request_id", c.GetString(RequestIDContextKey)),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
					zap.Stack("stacktrace"),
				)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}
