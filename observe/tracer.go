package observe

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// FuncMeta identifies a memoized function for telemetry purposes.
type FuncMeta struct {
	Namespace string // Function namespace (may be empty)
	Name      string // Function name
	Instance  string // Per-instance identifier; distinct memoized values never share one
}

// SpanName returns the deterministic span name for producer invocations.
// Format: memo.produce.<namespace>.<name> or memo.produce.<name>
func (m FuncMeta) SpanName() string {
	return "memo.produce." + m.ID()
}

// ID returns the fully qualified function identifier.
func (m FuncMeta) ID() string {
	if m.Namespace != "" {
		return m.Namespace + "." + m.Name
	}
	return m.Name
}

func (m FuncMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("memo.id", m.ID()),
		attribute.String("memo.name", m.Name),
	}
	if m.Namespace != "" {
		attrs = append(attrs, attribute.String("memo.namespace", m.Namespace))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing for producer invocations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a span for one producer invocation. keyHash is the
	// fingerprint of the argument key, never the arguments themselves.
	StartSpan(ctx context.Context, meta FuncMeta, keyHash uint64) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer backed by the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta FuncMeta, keyHash uint64) (context.Context, trace.Span) {
	attrs := meta.attributes()
	attrs = append(attrs,
		attribute.String("memo.key_hash", formatHash(keyHash)),
		attribute.Bool("memo.error", false),
	)
	if meta.Instance != "" {
		attrs = append(attrs, attribute.String("memo.instance", meta.Instance))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("memo.error", true))
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
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta FuncMeta, _ uint64) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}

// formatHash renders a key fingerprint as fixed-width hex.
func formatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}
