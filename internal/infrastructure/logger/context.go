package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	actorKey     contextKey = "actor"
)

// WithContext attaches a logger to ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the attached logger or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// WithRequestID records the request id and returns the enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	l := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, l), l
}

// WithActor records who issued the request (JWT subject)
func WithActor(ctx context.Context, logger *zap.Logger, actor string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, actorKey, actor)
	l := logger.With(zap.String("actor", actor))
	return WithContext(ctx, l), l
}

// GetRequestID returns the request id or ""
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetActor returns the actor or ""
func GetActor(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey).(string)
	return actor
}

// L returns the context logger with trace correlation added.
// Request id and actor are already on it when set through the helpers above.
func L(ctx context.Context) *zap.Logger {
	return WithTraceContext(ctx, FromContext(ctx))
}

// WithTraceContext adds trace_id and span_id when ctx carries a valid span
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

// Sync run fields used across the sync components
func SyncLogID(id string) zap.Field   { return zap.String("sync_log_id", id) }
func SyncJobID(id string) zap.Field   { return zap.String("sync_job_id", id) }
func OrderID(id string) zap.Field     { return zap.String("order_id", id) }
func ErpMethod(name string) zap.Field { return zap.String("erp_method", name) }
