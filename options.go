package lexgo

import (
	"log/slog"

	"github.com/hupe1980/lexgo/internal/segment"
	"github.com/hupe1980/lexgo/scoring"
)

// Compression selects the codec for segment term dictionaries.
type Compression = segment.Compression

// Available compression codecs.
const (
	CompressionNone = segment.CompressionNone
	CompressionS2   = segment.CompressionS2
	CompressionLZ4  = segment.CompressionLZ4
)

type options struct {
	similarity         scoring.Similarity
	compression        Compression
	ioLimitBytesPerSec int
	metricsCollector   MetricsCollector
	logger             *Logger
}

// Option configures Index constructor behavior.
type Option func(*options)

// WithSimilarity configures the similarity model used for scoring.
//
// The model name is persisted in the manifest; reopening an index with a
// different model fails. If nil is passed, scoring.Default is used.
func WithSimilarity(sim scoring.Similarity) Option {
	return func(o *options) {
		if sim == nil {
			sim = scoring.Default
		}
		o.similarity = sim
	}
}

// WithCompression configures the codec applied to segment term
// dictionaries. Postings are always stored raw so individual lists can
// be read without decompressing the segment.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithIOLimitBytesPerSec throttles segment writes (flush and merge) to
// the given rate. Zero or negative disables throttling.
//
// Useful when the index shares disk or network bandwidth with a
// latency-sensitive workload.
func WithIOLimitBytesPerSec(n int) Option {
	return func(o *options) {
		o.ioLimitBytesPerSec = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &lexgo.BasicMetricsCollector{}
//	idx, _ := lexgo.Open(ctx, store, lexgo.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := lexgo.NewJSONLogger(slog.LevelInfo)
//	idx, _ := lexgo.Open(ctx, store, lexgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
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

func applyOptions(optFns []Option) options {
	o := options{
		similarity:       nil,
		compression:      CompressionS2,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
