// Package telemetry wires OpenTelemetry traces, metrics and logs for the sync engine.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ScopeName is the instrumentation scope of everything this service emits
const ScopeName = "github.com/erp/ordersync"

// Config holds the collector settings
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	Insecure          bool
	ServiceName       string
	ServiceVersion    string
	SamplingRatio     float64
	MetricsInterval   time.Duration
}

// Providers owns the SDK providers. The zero value (telemetry disabled) is usable:
// Meter returns a no-op meter and LogCore a no-op core.
type Providers struct {
	tracer *sdktrace.TracerProvider
	meter  *sdkmetric.MeterProvider
	logs   *sdklog.LoggerProvider
}

// Setup creates OTLP/gRPC exporters for all three signals and installs them globally
func Setup(ctx context.Context, cfg Config, logger *zap.Logger) (*Providers, error) {
	p := &Providers{}
	if !cfg.Enabled {
		logger.Info("Telemetry disabled")
		return p, nil
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}

	traceExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	p.tracer = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SamplingRatio))),
	)

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create OTLP metric exporter: %w", err), p.Shutdown(ctx))
	}
	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = time.Minute
	}
	p.meter = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
	)

	logExporter, err := otlploggrpc.New(ctx, logOpts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create OTLP log exporter: %w", err), p.Shutdown(ctx))
	}
	p.logs = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)

	otel.SetTracerProvider(p.tracer)
	otel.SetMeterProvider(p.meter)
	global.SetLoggerProvider(p.logs)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Telemetry initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.Duration("metrics_interval", interval),
	)
	return p, nil
}

// Enabled reports whether exporters are running
func (p *Providers) Enabled() bool {
	return p.tracer != nil
}

// Meter returns the service meter
func (p *Providers) Meter() metric.Meter {
	if p.meter == nil {
		return noop.NewMeterProvider().Meter(ScopeName)
	}
	return p.meter.Meter(ScopeName)
}

// LogCore returns a zap core that forwards entries at or above level to the collector
func (p *Providers) LogCore(level zapcore.Level) zapcore.Core {
	if p.logs == nil {
		return zapcore.NewNopCore()
	}
	return &levelCore{
		Core: otelzap.NewCore(ScopeName, otelzap.WithLoggerProvider(p.logs)),
		min:  level,
	}
}

// Shutdown flushes and stops every provider
func (p *Providers) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []error
	if p.tracer != nil {
		errs = append(errs, p.tracer.Shutdown(ctx))
	}
	if p.meter != nil {
		errs = append(errs, p.meter.Shutdown(ctx))
	}
	if p.logs != nil {
		errs = append(errs, p.logs.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func newResource(cfg Config) (*resource.Resource, error) {
	version := cfg.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

// levelCore drops entries below min; the otelzap core has no level of its own
type levelCore struct {
	zapcore.Core
	min zapcore.Level
}

func (c *levelCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.min && c.Core.Enabled(lvl)
}

func (c *levelCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), min: c.min}
}
