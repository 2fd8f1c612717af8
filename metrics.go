package region

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    allocCounter   prometheus.Counter
//	    reservedGauge  prometheus.Gauge
//	}
//
//	func (p *PrometheusCollector) RecordAlloc(size uintptr, duration time.Duration, err error) {
//	    p.allocCounter.Inc()
//	    if err == nil {
//	        p.reservedGauge.Add(float64(size))
//	    }
//	}
type MetricsCollector interface {
	// RecordAlloc is called after each Alloc or AllocAt.
	// size is the requested size, err is nil if successful.
	RecordAlloc(size uintptr, duration time.Duration, err error)

	// RecordFree is called after a reservation has been released.
	RecordFree(size uintptr, duration time.Duration)

	// RecordProtect is called after each protection change.
	RecordProtect(duration time.Duration, err error)

	// RecordQuery is called after a query has been started.
	RecordQuery(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAlloc(uintptr, time.Duration, error) {}
func (NoopMetricsCollector) RecordFree(uintptr, time.Duration)         {}
func (NoopMetricsCollector) RecordProtect(time.Duration, error)        {}
func (NoopMetricsCollector) RecordQuery(time.Duration, error)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocCount      atomic.Int64
	AllocErrors     atomic.Int64
	AllocBytes      atomic.Int64
	AllocTotalNanos atomic.Int64
	FreeCount       atomic.Int64
	FreeBytes       atomic.Int64
	ProtectCount    atomic.Int64
	ProtectErrors   atomic.Int64
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(size uintptr, duration time.Duration, err error) {
	b.AllocCount.Add(1)
	b.AllocTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AllocErrors.Add(1)
		return
	}
	b.AllocBytes.Add(int64(size)) //nolint:gosec // sizes fit the address space
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(size uintptr, duration time.Duration) {
	b.FreeCount.Add(1)
	b.FreeBytes.Add(int64(size)) //nolint:gosec // sizes fit the address space
}

// RecordProtect implements MetricsCollector.
func (b *BasicMetricsCollector) RecordProtect(duration time.Duration, err error) {
	b.ProtectCount.Add(1)
	if err != nil {
		b.ProtectErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(duration time.Duration, err error) {
	b.QueryCount.Add(1)
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AllocCount:    b.AllocCount.Load(),
		AllocErrors:   b.AllocErrors.Load(),
		AllocBytes:    b.AllocBytes.Load(),
		AllocAvgNanos: b.getAvgAllocNanos(),
		FreeCount:     b.FreeCount.Load(),
		FreeBytes:     b.FreeBytes.Load(),
		ProtectCount:  b.ProtectCount.Load(),
		ProtectErrors: b.ProtectErrors.Load(),
		QueryCount:    b.QueryCount.Load(),
		QueryErrors:   b.QueryErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgAllocNanos() int64 {
	count := b.AllocCount.Load()
	if count == 0 {
		return 0
	}
	return b.AllocTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocCount    int64
	AllocErrors   int64
	AllocBytes    int64
	AllocAvgNanos int64
	FreeCount     int64
	FreeBytes     int64
	ProtectCount  int64
	ProtectErrors int64
	QueryCount    int64
	QueryErrors   int64
}
