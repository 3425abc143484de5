// Package middleware provides the gin middleware of the sync service HTTP surface.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing returns the otelgin server span middleware followed by one that
// tags the span with the request id and, once authenticated, the token subject.
// Spans of 5xx responses are marked as errors.
func Tracing(serviceName string, enabled bool) []gin.HandlerFunc {
	if !enabled {
		return nil
	}
	return []gin.HandlerFunc{otelgin.Middleware(serviceName), spanAttributes()}
}

// spanAttributes must run inside the otelgin handler; otelgin restores the
// original request context once its chain returns.
func spanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if id := getRequestID(c); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if sub := GetJWTSubject(c); sub != "" {
			span.SetAttributes(attribute.String("enduser.id", sub))
		}
		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
