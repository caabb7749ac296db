package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records execution metrics for caching-policy decisions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records one request-phase lookup outcome: hit, miss, or
	// error (mutually exclusive per call).
	RecordLookup(ctx context.Context, cacheID string, hit bool, err error)

	// RecordTee records the duration of a completed response-phase tee,
	// and whether the cache side committed successfully.
	RecordTee(ctx context.Context, cacheID string, duration time.Duration, committed bool)
}

type metricsImpl struct {
	lookupTotal  metric.Int64Counter
	lookupHit    metric.Int64Counter
	lookupErrors metric.Int64Counter
	teeDuration  metric.Float64Histogram
	teeCommits   metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	lookupTotal, err := meter.Int64Counter(
		"cachingpolicy.lookup.total",
		metric.WithDescription("Total number of cache lookups performed"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	lookupHit, err := meter.Int64Counter(
		"cachingpolicy.lookup.hit",
		metric.WithDescription("Number of cache lookups that hit"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	lookupErrors, err := meter.Int64Counter(
		"cachingpolicy.lookup.errors",
		metric.WithDescription("Number of cache lookups that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	teeDuration, err := meter.Float64Histogram(
		"cachingpolicy.tee.duration_ms",
		metric.WithDescription("Duration of the response-phase write-through tee"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	teeCommits, err := meter.Int64Counter(
		"cachingpolicy.tee.commits",
		metric.WithDescription("Number of tee-written entries successfully committed to the cache"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		lookupTotal:  lookupTotal,
		lookupHit:    lookupHit,
		lookupErrors: lookupErrors,
		teeDuration:  teeDuration,
		teeCommits:   teeCommits,
	}, nil
}

func (m *metricsImpl) RecordLookup(ctx context.Context, cacheID string, hit bool, err error) {
	opt := metric.WithAttributes(attribute.Bool("cache.hit", hit))
	m.lookupTotal.Add(ctx, 1, opt)
	if err != nil {
		m.lookupErrors.Add(ctx, 1)
		return
	}
	if hit {
		m.lookupHit.Add(ctx, 1)
	}
}

func (m *metricsImpl) RecordTee(ctx context.Context, cacheID string, duration time.Duration, committed bool) {
	opt := metric.WithAttributes(attribute.Bool("cache.committed", committed))
	m.teeDuration.Record(ctx, float64(duration.Milliseconds()), opt)
	if committed {
		m.teeCommits.Add(ctx, 1)
	}
}

// NewNoopMetrics returns a Metrics that discards everything, for callers
// that want instrumentation disabled entirely rather than wired to a Bundle.
func NewNoopMetrics() Metrics {
	return &noopMetrics{}
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordLookup(ctx context.Context, cacheID string, hit bool, err error) {}
func (m *noopMetrics) RecordTee(ctx context.Context, cacheID string, duration time.Duration, committed bool) {
}

var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = (*noopMetrics)(nil)
)
