package observe

import "errors"

var (
	// ErrMissingServiceName is returned by Validate when ServiceName is empty.
	ErrMissingServiceName = errors.New("observe: service name is required")
	// ErrInvalidSamplePct is returned for a sample rate outside [0, 1].
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be between 0.0 and 1.0")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")
	ErrInvalidLogFormat       = errors.New("observe: invalid log format")

	// ErrNilObserver is returned when a Middleware is requested for a nil Observer.
	ErrNilObserver = errors.New("observe: observer is nil")
)
