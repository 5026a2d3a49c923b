package xmatch

import "runtime"

const (
	// DefaultShardSize is the number of primary points handled per goroutine
	// when a Matcher runs in parallel.
	DefaultShardSize = 4096
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	workers          int
	shardSize        int
}

func defaultOptions() options {
	return options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		workers:          runtime.GOMAXPROCS(0),
		shardSize:        DefaultShardSize,
	}
}

// Option configures a Matcher.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &xmatch.BasicMetricsCollector{}
//	m := xmatch.New(xmatch.WithMetricsCollector(metrics))
//	// ... use m ...
//	stats := metrics.GetStats()
//	fmt.Printf("Associations: %d, match rate: %.2f\n", stats.AssociateCount, stats.MatchRate())
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
//	logger := xmatch.NewJSONLogger(slog.LevelInfo)
//	m := xmatch.New(xmatch.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithWorkers sets the maximum number of goroutines a single match call may
// use. Values <= 1 force sequential matching.
//
// Defaults to runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithShardSize sets how many primary points each goroutine processes.
// Inputs no larger than one shard are matched sequentially.
// Values <= 0 restore DefaultShardSize.
func WithShardSize(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = DefaultShardSize
		}
		o.shardSize = n
	}
}
