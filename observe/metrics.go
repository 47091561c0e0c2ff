package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LookupResult classifies how a call was answered.
type LookupResult string

const (
	// LookupHit means a live store entry answered the call.
	LookupHit LookupResult = "hit"
	// LookupMiss means the call started a new producer invocation.
	LookupMiss LookupResult = "miss"
	// LookupCoalesced means the call joined an in-flight invocation.
	LookupCoalesced LookupResult = "coalesced"
)

// Metrics records memoization metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records how one call was answered.
	RecordLookup(ctx context.Context, meta FuncMeta, result LookupResult)

	// RecordInvocation records one producer invocation.
	RecordInvocation(ctx context.Context, meta FuncMeta, duration time.Duration, err error)

	// RecordEviction records entries evicted to restore the size bound.
	RecordEviction(ctx context.Context, meta FuncMeta, n int)
}

type metricsImpl struct {
	lookups      metric.Int64Counter
	invocations  metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	evictions    metric.Int64Counter
}

// NewMetrics creates Metrics instruments on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	lookups, err := meter.Int64Counter(
		"memo.lookups",
		metric.WithDescription("Calls to memoized functions by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	invocations, err := meter.Int64Counter(
		"memo.invocations",
		metric.WithDescription("Producer invocations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"memo.invocation.errors",
		metric.WithDescription("Failed producer invocations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"memo.invocation.duration_ms",
		metric.WithDescription("Producer invocation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"memo.evictions",
		metric.WithDescription("Entries evicted by the size bound"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		lookups:      lookups,
		invocations:  invocations,
		errorCount:   errorCount,
		durationHist: durationHist,
		evictions:    evictions,
	}, nil
}

func (m *metricsImpl) RecordLookup(ctx context.Context, meta FuncMeta, result LookupResult) {
	attrs := append(meta.attributes(), attribute.String("memo.result", string(result)))
	m.lookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordInvocation(ctx context.Context, meta FuncMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.invocations.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordEviction(ctx context.Context, meta FuncMeta, n int) {
	if n <= 0 {
		return
	}
	m.evictions.Add(ctx, int64(n), metric.WithAttributes(meta.attributes()...))
}

type noopMetrics struct{}

func (noopMetrics) RecordLookup(context.Context, FuncMeta, LookupResult)             {}
func (noopMetrics) RecordInvocation(context.Context, FuncMeta, time.Duration, error) {}
func (noopMetrics) RecordEviction(context.Context, FuncMeta, int)                    {}
