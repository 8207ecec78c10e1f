package lexgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordAdd is called after each document add.
	// duration is the total time taken, err is nil if successful.
	RecordAdd(duration time.Duration, err error)

	// RecordFlush is called after each segment flush.
	// docs is the number of documents written, bytes the segment size.
	RecordFlush(docs uint32, bytes int64, duration time.Duration, err error)

	// RecordSearch is called after each search operation.
	// results is the number of hits returned, err is nil if successful.
	RecordSearch(results int, duration time.Duration, err error)

	// RecordDelete is called after each delete operation.
	RecordDelete(duration time.Duration, err error)

	// RecordMerge is called after each merge operation.
	// sources is the number of input segments, docs the surviving count.
	RecordMerge(sources int, docs uint32, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)                  {}
func (NoopMetricsCollector) RecordFlush(uint32, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)          {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)               {}
func (NoopMetricsCollector) RecordMerge(int, uint32, time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount         atomic.Int64
	AddErrors        atomic.Int64
	FlushCount       atomic.Int64
	FlushErrors      atomic.Int64
	FlushDocs        atomic.Int64
	FlushBytes       atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	DeleteCount      atomic.Int64
	DeleteErrors     atomic.Int64
	MergeCount       atomic.Int64
	MergeErrors      atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(duration time.Duration, err error) {
	b.AddCount.Add(1)
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(docs uint32, bytes int64, duration time.Duration, err error) {
	b.FlushCount.Add(1)
	if err != nil {
		b.FlushErrors.Add(1)
		return
	}
	b.FlushDocs.Add(int64(docs))
	b.FlushBytes.Add(bytes)
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(results int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordMerge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMerge(sources int, docs uint32, duration time.Duration, err error) {
	b.MergeCount.Add(1)
	if err != nil {
		b.MergeErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:       b.AddCount.Load(),
		AddErrors:      b.AddErrors.Load(),
		FlushCount:     b.FlushCount.Load(),
		FlushErrors:    b.FlushErrors.Load(),
		FlushDocs:      b.FlushDocs.Load(),
		FlushBytes:     b.FlushBytes.Load(),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchAvgNanos: b.getAvgSearchNanos(),
		DeleteCount:    b.DeleteCount.Load(),
		DeleteErrors:   b.DeleteErrors.Load(),
		MergeCount:     b.MergeCount.Load(),
		MergeErrors:    b.MergeErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgSearchNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount       int64
	AddErrors      int64
	FlushCount     int64
	FlushErrors    int64
	FlushDocs      int64
	FlushBytes     int64
	SearchCount    int64
	SearchErrors   int64
	SearchAvgNanos int64
	DeleteCount    int64
	DeleteErrors   int64
	MergeCount     int64
	MergeErrors    int64
}
