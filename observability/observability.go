// Package observability provides structured logging, OpenTelemetry
// tracing, and OpenTelemetry metrics around caching-policy decisions. It is
// a pure instrumentation package: it never influences whether a response is
// cached or replayed, only observes it.
package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/cachingpolicy/observability/exporters"
)

// Config holds configuration for the instrumentation bundle.
type Config struct {
	ServiceName string
	Version     string
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig
}

// TracingConfig configures the tracing subsystem.
type TracingConfig struct {
	Enabled   bool
	Exporter  string // otlp|stdout|none
	SamplePct float64
}

// MetricsConfig configures the metrics subsystem.
type MetricsConfig struct {
	Enabled  bool
	Exporter string // otlp|prometheus|stdout|none
}

// LoggingConfig configures the logging subsystem.
type LoggingConfig struct {
	Enabled bool
	Level   string // debug|info|warn|error
}

var validTracingExporters = map[string]bool{
	"otlp": true, "stdout": true, "none": true, "": true,
}

var validMetricsExporters = map[string]bool{
	"otlp": true, "prometheus": true, "stdout": true, "none": true, "": true,
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return errors.New("observability: service name is required")
	}
	if c.Tracing.Enabled {
		if !validTracingExporters[c.Tracing.Exporter] {
			return fmt.Errorf("observability: unknown tracing exporter: %q", c.Tracing.Exporter)
		}
		if c.Tracing.SamplePct < 0 || c.Tracing.SamplePct > 1.0 {
			return fmt.Errorf("observability: sample percentage must be between 0.0 and 1.0, got: %f", c.Tracing.SamplePct)
		}
	}
	if c.Metrics.Enabled && !validMetricsExporters[c.Metrics.Exporter] {
		return fmt.Errorf("observability: unknown metrics exporter: %q", c.Metrics.Exporter)
	}
	if c.Logging.Enabled && !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("observability: unknown log level: %q", c.Logging.Level)
	}
	return nil
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

// Logger is a minimal structured logging interface, scoped per
// caching-policy decision.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
}

// Bundle bundles the three instrumentation primitives plus lifecycle.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Shutdown shuts down every provider and returns all of their
//   errors joined.
type Bundle interface {
	Tracer() Tracer
	Metrics() Metrics
	Logger() Logger
	Shutdown(ctx context.Context) error
}

type bundle struct {
	tracer         Tracer
	metrics        Metrics
	logger         Logger
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// NewBundle wires tracing, metrics, and logging per cfg.
func NewBundle(ctx context.Context, cfg Config) (Bundle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &bundle{}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to create resource: %w", err)
	}

	if cfg.Tracing.Enabled {
		tp, t, err := setupTracing(ctx, cfg, res)
		if err != nil {
			return nil, fmt.Errorf("observability: failed to set up tracing: %w", err)
		}
		b.tracerProvider = tp
		b.tracer = newTracer(t)
	} else {
		b.tracer = newNoopTracer()
	}

	if cfg.Metrics.Enabled {
		mp, m, err := setupMetrics(ctx, cfg, res)
		if err != nil {
			return nil, fmt.Errorf("observability: failed to set up metrics: %w", err)
		}
		b.meterProvider = mp
		metrics, err := newMetrics(m)
		if err != nil {
			return nil, fmt.Errorf("observability: failed to build metric instruments: %w", err)
		}
		b.metrics = metrics
	} else {
		b.metrics = &noopMetrics{}
	}

	if cfg.Logging.Enabled {
		b.logger = NewLogger(cfg.Logging.Level)
	} else {
		b.logger = &noopLogger{}
	}

	return b, nil
}

func setupTracing(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, trace.Tracer, error) {
	exporter, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.Tracing.SamplePct >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.Tracing.SamplePct <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.Tracing.SamplePct)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp, tp.Tracer(cfg.ServiceName), nil
}

func setupMetrics(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, metric.Meter, error) {
	reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create metrics reader: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if reader != nil {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	return mp, mp.Meter(cfg.ServiceName), nil
}

func (b *bundle) Tracer() Tracer   { return b.tracer }
func (b *bundle) Metrics() Metrics { return b.metrics }
func (b *bundle) Logger() Logger   { return b.logger }

func (b *bundle) Shutdown(ctx context.Context) error {
	var errs []error
	if b.tracerProvider != nil {
		if err := b.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if b.meterProvider != nil {
		if err := b.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// NewNoopLogger returns a Logger that discards everything, for callers that
// want instrumentation disabled entirely rather than wired to a Bundle.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (l *noopLogger) Info(ctx context.Context, msg string, fields ...Field)  {}
func (l *noopLogger) Warn(ctx context.Context, msg string, fields ...Field)  {}
func (l *noopLogger) Error(ctx context.Context, msg string, fields ...Field) {}
func (l *noopLogger) Debug(ctx context.Context, msg string, fields ...Field) {}

var (
	_ Bundle = (*bundle)(nil)
	_ Logger = (*noopLogger)(nil)
)
