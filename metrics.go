package meshadapt

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see
// package prommetrics for a Prometheus implementation.
type MetricsCollector interface {
	// RecordOperation is called after each composite operation (move_elements,
	// grow_overlap, combine_mesh, remove_duplicates, renumber).
	// err is nil if successful.
	RecordOperation(op string, duration time.Duration, err error)

	// RecordExchange is called after each exchange round. kind is "elements"
	// or "nodes"; bytes counts packed payload bytes.
	RecordExchange(kind string, sent, received, bytes int)

	// RecordDuplicates is called after a duplicate removal pass.
	RecordDuplicates(elements, nodes int)

	// RecordRenumber is called after ids of count entities were reassigned.
	RecordRenumber(kind string, count int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOperation(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordExchange(string, int, int, int)         {}
func (NoopMetricsCollector) RecordDuplicates(int, int)                    {}
func (NoopMetricsCollector) RecordRenumber(string, int)                   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	OperationCount      atomic.Int64
	OperationErrors     atomic.Int64
	OperationTotalNanos atomic.Int64
	ExchangeRounds      atomic.Int64
	RecordsSent         atomic.Int64
	RecordsReceived     atomic.Int64
	BytesSent           atomic.Int64
	DuplicateElements   atomic.Int64
	DuplicateNodes      atomic.Int64
	Renumbered          atomic.Int64
}

// RecordOperation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOperation(op string, duration time.Duration, err error) {
	b.OperationCount.Add(1)
	b.OperationTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.OperationErrors.Add(1)
	}
}

// RecordExchange implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExchange(kind string, sent, received, bytes int) {
	b.ExchangeRounds.Add(1)
	b.RecordsSent.Add(int64(sent))
	b.RecordsReceived.Add(int64(received))
	b.BytesSent.Add(int64(bytes))
}

// RecordDuplicates implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDuplicates(elements, nodes int) {
	b.DuplicateElements.Add(int64(elements))
	b.DuplicateNodes.Add(int64(nodes))
}

// RecordRenumber implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRenumber(kind string, count int) {
	b.Renumbered.Add(int64(count))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		OperationCount:    b.OperationCount.Load(),
		OperationErrors:   b.OperationErrors.Load(),
		OperationAvgNanos: b.getAvgOperationNanos(),
		ExchangeRounds:    b.ExchangeRounds.Load(),
		RecordsSent:       b.RecordsSent.Load(),
		RecordsReceived:   b.RecordsReceived.Load(),
		BytesSent:         b.BytesSent.Load(),
		DuplicateElements: b.DuplicateElements.Load(),
		DuplicateNodes:    b.DuplicateNodes.Load(),
		Renumbered:        b.Renumbered.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgOperationNanos() int64 {
	count := b.OperationCount.Load()
	if count == 0 {
		return 0
	}
	return b.OperationTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	OperationCount    int64
	OperationErrors   int64
	OperationAvgNanos int64
	ExchangeRounds    int64
	RecordsSent       int64
	RecordsReceived   int64
	BytesSent         int64
	DuplicateElements int64
	DuplicateNodes    int64
	Renumbered        int64
}
