package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// httpMetrics holds the HTTP server instruments
type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requests, err := meter.Int64Counter("http_server_request_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("http_server_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30))
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	return &httpMetrics{requests: requests, duration: duration, active: active}, nil
}

// HTTPMetrics records request count, latency and in-flight requests.
// A nil meter or instrument failure yields a pass-through middleware.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.active.Add(ctx, 1)

		c.Next()

		m.active.Add(ctx, -1)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		base := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
		}
		m.requests.Add(ctx, 1, metric.WithAttributes(append(base, attribute.Int("http.status_code", c.Writer.Status()))...))
		m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(base...))
	}
}
