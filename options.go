package region

import (
	"log/slog"

	"github.com/hupe1980/region/internal/osmem"
)

type options struct {
	backend          osmem.Backend
	memoryLimit      int64
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a Space.
type Option func(*options)

// WithMemoryLimit caps the total number of bytes a Space may hold reserved
// at once. Reservations beyond the cap fail with ErrOutOfMemory.
//
// If limit <= 0, reservations are only tracked.
func WithMemoryLimit(limit int64) Option {
	return func(o *options) {
		o.memoryLimit = limit
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &region.BasicMetricsCollector{}
//	space := region.NewSpace(region.WithMetricsCollector(metrics))
//	// ... use space ...
//	stats := metrics.GetStats()
//	fmt.Printf("Allocs: %d, Avg latency: %dns\n", stats.AllocCount, stats.AllocAvgNanos)
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
//
// Example with JSON logging:
//
//	logger := region.NewJSONLogger(slog.LevelDebug)
//	space := region.NewSpace(region.WithLogger(logger))
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

// withBackend replaces the operating-system backend.
func withBackend(b osmem.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.backend == nil {
		o.backend = osmem.New()
	}
	return o
}
