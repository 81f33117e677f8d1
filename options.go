package meshadapt

import (
	"log/slog"

	"github.com/hupe1980/meshadapt/hilbert"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	hilbertDepth     int
	autoRenumber     bool
	conflictCheck    bool
}

// Option configures an Adaptor.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &meshadapt.BasicMetricsCollector{}
//	a, _ := meshadapt.New(m, t, meshadapt.WithMetricsCollector(metrics))
//	// ... adapt ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithHilbertDepth sets the recursion depth of the spatial hasher used for
// duplicate detection, conflict checks and renumbering.
//
// Deeper hashing separates closer points; the leaf cell diagonal relative to
// the bounding box diagonal is 2^-depth. depth*dim must not exceed 64.
func WithHilbertDepth(depth int) Option {
	return func(o *options) {
		o.hilbertDepth = depth
	}
}

// WithAutoRenumber makes the adaptor reassign partition-agnostic ids when
// global ids disagree across ranks, instead of failing with
// ErrRenumberingRequired.
func WithAutoRenumber(enabled bool) Option {
	return func(o *options) {
		o.autoRenumber = enabled
	}
}

// WithConflictCheck enables or disables the collective renumbering conflict
// check after MoveElements and GrowOverlap. Enabled by default.
func WithConflictCheck(enabled bool) Option {
	return func(o *options) {
		o.conflictCheck = enabled
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		hilbertDepth:     hilbert.DefaultDepth,
		conflictCheck:    true,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
