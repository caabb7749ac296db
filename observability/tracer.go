package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// DecisionMeta describes the caching-policy decision a span covers.
type DecisionMeta struct {
	Phase   string // "request" or "response"
	CacheID string
	Hit     bool
}

// SpanName returns the deterministic span name for this decision.
func (m DecisionMeta) SpanName() string {
	return "cachingpolicy." + m.Phase
}

// Tracer wraps OpenTelemetry tracing with caching-policy-specific span
// management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, meta DecisionMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta DecisionMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("cache.id", meta.CacheID),
		attribute.Bool("cache.hit", meta.Hit),
		attribute.Bool("cache.error", false), // updated in EndSpan if error
	}
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("cache.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

// NewNoopTracer returns a Tracer that records nothing, for callers that
// want instrumentation disabled entirely rather than wired to a Bundle.
func NewNoopTracer() Tracer {
	return newNoopTracer()
}

func (t *noopTracer) StartSpan(ctx context.Context, meta DecisionMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}

var (
	_ Tracer = (*tracerImpl)(nil)
	_ Tracer = (*noopTracer)(nil)
)
