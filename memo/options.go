package memo

import (
	"time"

	"github.com/jonwraymond/toolmemo/observe"
)

// Option configures a Memoized value.
type Option interface {
	apply(*settings)
}

type settings struct {
	clock      func() time.Time
	clone      any
	name       string
	namespace  string
	middleware *observe.Middleware
	observer   observe.Observer
	logger     observe.Logger
}

type optionFunc func(*settings)

func (f optionFunc) apply(s *settings) { f(s) }

// WithClock sets the time source used for TTL decisions.
// Default: time.Now
func WithClock(now func() time.Time) Option {
	return optionFunc(func(s *settings) {
		if now != nil {
			s.clock = now
		}
	})
}

// WithClone sets a function applied to every value before it is returned to
// a caller, so callers never share a mutable value. The value type of clone
// must match the Memoized value type or New fails with ErrCloneType.
func WithClone[V any](clone func(V) V) Option {
	return optionFunc(func(s *settings) {
		s.clone = clone
	})
}

// WithName sets the name used in telemetry.
// Default: "memo"
func WithName(name string) Option {
	return optionFunc(func(s *settings) {
		s.name = name
	})
}

// WithNamespace sets the namespace used in telemetry.
func WithNamespace(namespace string) Option {
	return optionFunc(func(s *settings) {
		s.namespace = namespace
	})
}

// WithObserver records traces, metrics, and logs through obs.
// It takes precedence over WithLogger.
func WithObserver(obs observe.Observer) Option {
	return optionFunc(func(s *settings) {
		s.observer = obs
	})
}

// WithMiddleware records telemetry through an existing middleware.
// It takes precedence over WithObserver and WithLogger.
func WithMiddleware(mw *observe.Middleware) Option {
	return optionFunc(func(s *settings) {
		s.middleware = mw
	})
}

// WithLogger logs lookups, invocations, and evictions without tracing or metrics.
func WithLogger(logger observe.Logger) Option {
	return optionFunc(func(s *settings) {
		s.logger = logger
	})
}

// middlewareFor resolves the telemetry options into one middleware.
func (s *settings) middlewareFor() (*observe.Middleware, error) {
	switch {
	case s.middleware != nil:
		return s.middleware, nil
	case s.observer != nil:
		return observe.MiddlewareFromObserver(s.observer)
	case s.logger != nil:
		return observe.NewMiddleware(nil, nil, s.logger), nil
	default:
		return observe.NopMiddleware(), nil
	}
}
