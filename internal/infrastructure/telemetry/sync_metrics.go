package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMetrics holds the instruments of the ERP client, the sync runs and the job worker
type SyncMetrics struct {
	erpCalls        metric.Int64Counter
	erpCallDuration metric.Float64Histogram
	rateLimitWait   metric.Float64Histogram
	syncRuns        metric.Int64Counter
	syncRunDuration metric.Float64Histogram
	syncItems       metric.Int64Counter
	jobs            metric.Int64Counter
}

// NewSyncMetrics registers the instruments on meter
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	m := &SyncMetrics{}
	var err error

	if m.erpCalls, err = meter.Int64Counter("erp.client.calls",
		metric.WithDescription("ERP RPC calls by method and outcome"),
		metric.WithUnit("{call}")); err != nil {
		return nil, err
	}
	if m.erpCallDuration, err = meter.Float64Histogram("erp.client.duration",
		metric.WithDescription("ERP RPC call duration including retries"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.rateLimitWait, err = meter.Float64Histogram("erp.client.rate_limit_wait",
		metric.WithDescription("Time spent waiting on the token bucket or Retry-After"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.syncRuns, err = meter.Int64Counter("sync.runs",
		metric.WithDescription("Finished sync runs by type and status"),
		metric.WithUnit("{run}")); err != nil {
		return nil, err
	}
	if m.syncRunDuration, err = meter.Float64Histogram("sync.run.duration",
		metric.WithDescription("Sync run duration"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.syncItems, err = meter.Int64Counter("sync.items",
		metric.WithDescription("Items processed by sync runs"),
		metric.WithUnit("{item}")); err != nil {
		return nil, err
	}
	if m.jobs, err = meter.Int64Counter("sync.jobs",
		metric.WithDescription("Processed queue jobs by type and outcome"),
		metric.WithUnit("{job}")); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordErpCall records one finished client call
func (m *SyncMetrics) RecordErpCall(ctx context.Context, method, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("erp.method", method),
		attribute.String("outcome", outcome),
	)
	m.erpCalls.Add(ctx, 1, attrs)
	m.erpCallDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordRateLimitWait records time spent waiting before a call
func (m *SyncMetrics) RecordRateLimitWait(ctx context.Context, method string, wait time.Duration) {
	m.rateLimitWait.Record(ctx, wait.Seconds(), metric.WithAttributes(attribute.String("erp.method", method)))
}

// RecordSyncRun records a finished sync run
func (m *SyncMetrics) RecordSyncRun(ctx context.Context, syncType, status string, d time.Duration, processed, skipped int) {
	attrs := metric.WithAttributes(
		attribute.String("sync.type", syncType),
		attribute.String("status", status),
	)
	m.syncRuns.Add(ctx, 1, attrs)
	m.syncRunDuration.Record(ctx, d.Seconds(), attrs)
	m.syncItems.Add(ctx, int64(processed-skipped), metric.WithAttributes(
		attribute.String("sync.type", syncType), attribute.String("result", "processed")))
	if skipped > 0 {
		m.syncItems.Add(ctx, int64(skipped), metric.WithAttributes(
			attribute.String("sync.type", syncType), attribute.String("result", "skipped")))
	}
}

// RecordJob records one worker outcome (done, retry, dead)
func (m *SyncMetrics) RecordJob(ctx context.Context, jobType, outcome string) {
	m.jobs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job.type", jobType),
		attribute.String("outcome", outcome),
	))
}
