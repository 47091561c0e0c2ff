package observe

import (
	"errors"
	"fmt"
	"io"
	"slices"
)

// Config selects the telemetry a process emits for its memoized functions.
// The zero value of each sub-config disables that signal.
type Config struct {
	ServiceName string
	Version     string
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig

	// Output receives stdout exporter data and JSON logs.
	// Default: os.Stderr
	Output io.Writer `json:"-" mapstructure:"-"`
}

// TracingConfig configures producer spans.
type TracingConfig struct {
	Enabled   bool
	Exporter  string  // otlp|jaeger|stdout|none
	SamplePct float64 // 0.0-1.0
}

// MetricsConfig configures lookup and invocation counters.
type MetricsConfig struct {
	Enabled  bool
	Exporter string // otlp|prometheus|stdout|none
}

// LoggingConfig configures the logger handed to memoized functions.
type LoggingConfig struct {
	Enabled bool
	Level   string // debug|info|warn|error
	Format  string // json|zap
}

var (
	tracingExporters = []string{"otlp", "jaeger", "stdout", "none", ""}
	metricsExporters = []string{"otlp", "prometheus", "stdout", "none", ""}
	logLevels        = []string{"debug", "info", "warn", "error", ""}
	logFormats       = []string{"json", "zap", ""}
)

// Validate reports every invalid setting of an enabled signal. The result
// matches the sentinel of each problem found.
func (c *Config) Validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, ErrMissingServiceName)
	}

	if c.Tracing.Enabled {
		errs = append(errs, oneOf(c.Tracing.Exporter, tracingExporters, ErrInvalidTracingExporter))
		if c.Tracing.SamplePct < 0 || c.Tracing.SamplePct > 1 {
			errs = append(errs, fmt.Errorf("%w: got %v", ErrInvalidSamplePct, c.Tracing.SamplePct))
		}
	}
	if c.Metrics.Enabled {
		errs = append(errs, oneOf(c.Metrics.Exporter, metricsExporters, ErrInvalidMetricsExporter))
	}
	if c.Logging.Enabled {
		errs = append(errs,
			oneOf(c.Logging.Level, logLevels, ErrInvalidLogLevel),
			oneOf(c.Logging.Format, logFormats, ErrInvalidLogFormat),
		)
	}

	return errors.Join(errs...)
}

func oneOf(value string, allowed []string, sentinel error) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%w: %q", sentinel, value)
}
