package observe

import (
	"context"
	"time"
)

// Middleware bundles tracing, metrics, and logging for memoized functions.
//
// Contract:
//   - Concurrency: safe for concurrent use; Instrument values are too.
//   - Errors: errors from wrapped producers are recorded and propagated unchanged.
//   - Ownership: results are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a Middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Instrument binds the middleware to one memoized function.
func (m *Middleware) Instrument(meta FuncMeta) *Instrument {
	return &Instrument{
		meta:    meta,
		tracer:  m.tracer,
		metrics: m.metrics,
		logger:  m.logger.WithFunc(meta),
	}
}

// Instrument records telemetry for a single memoized function.
type Instrument struct {
	meta    FuncMeta
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// Meta returns the function metadata the instrument is bound to.
func (i *Instrument) Meta() FuncMeta {
	return i.meta
}

// Logger returns the function-scoped logger.
func (i *Instrument) Logger() Logger {
	return i.logger
}

// Invoke runs one producer invocation inside a span and records its
// duration and outcome.
func (i *Instrument) Invoke(ctx context.Context, keyHash uint64, fn func(context.Context) error) error {
	ctx, span := i.tracer.StartSpan(ctx, i.meta, keyHash)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	i.tracer.EndSpan(span, err)
	i.metrics.RecordInvocation(ctx, i.meta, duration, err)

	fields := []Field{
		{Key: "key_hash", Value: formatHash(keyHash)},
		{Key: "duration_ms", Value: float64(duration.Milliseconds())},
	}
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		i.logger.Warn(ctx, "producer invocation failed", fields...)
	} else {
		i.logger.Debug(ctx, "producer invocation completed", fields...)
	}

	return err
}

// Lookup records how a call was answered.
func (i *Instrument) Lookup(ctx context.Context, keyHash uint64, result LookupResult) {
	i.metrics.RecordLookup(ctx, i.meta, result)
	i.logger.Debug(ctx, "memo lookup",
		Field{Key: "key_hash", Value: formatHash(keyHash)},
		Field{Key: "result", Value: string(result)},
	)
}

// Evicted records n entries evicted by the size bound.
func (i *Instrument) Evicted(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	i.metrics.RecordEviction(ctx, i.meta, n)
	i.logger.Debug(ctx, "memo eviction", Field{Key: "evicted", Value: n})
}
