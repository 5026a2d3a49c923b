package xmatch

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// prommetrics package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordMatch is called after each match call.
	// primary and secondary are the input sizes, pairs the number of pairs
	// produced, err is nil if successful.
	RecordMatch(primary, secondary, pairs int, duration time.Duration, err error)

	// RecordAssociate is called after each truth association.
	RecordAssociate(matched, total int, duration time.Duration, err error)

	// RecordJob is called after each batch job, including skipped ones.
	RecordJob(skipped bool, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordMatch(int, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordAssociate(int, int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordJob(bool, time.Duration, error)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	MatchCount          atomic.Int64
	MatchErrors         atomic.Int64
	MatchPairs          atomic.Int64
	MatchTotalNanos     atomic.Int64
	AssociateCount      atomic.Int64
	AssociateErrors     atomic.Int64
	AssociateMatched    atomic.Int64
	AssociateTotal      atomic.Int64
	AssociateTotalNanos atomic.Int64
	JobCount            atomic.Int64
	JobSkipped          atomic.Int64
	JobErrors           atomic.Int64
}

// RecordMatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMatch(_, _, pairs int, duration time.Duration, err error) {
	b.MatchCount.Add(1)
	b.MatchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MatchErrors.Add(1)
		return
	}
	b.MatchPairs.Add(int64(pairs))
}

// RecordAssociate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAssociate(matched, total int, duration time.Duration, err error) {
	b.AssociateCount.Add(1)
	b.AssociateTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AssociateErrors.Add(1)
		return
	}
	b.AssociateMatched.Add(int64(matched))
	b.AssociateTotal.Add(int64(total))
}

// RecordJob implements MetricsCollector.
func (b *BasicMetricsCollector) RecordJob(skipped bool, _ time.Duration, err error) {
	b.JobCount.Add(1)
	if skipped {
		b.JobSkipped.Add(1)
	}
	if err != nil {
		b.JobErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		MatchCount:        b.MatchCount.Load(),
		MatchErrors:       b.MatchErrors.Load(),
		MatchPairs:        b.MatchPairs.Load(),
		MatchAvgNanos:     avgNanos(b.MatchTotalNanos.Load(), b.MatchCount.Load()),
		AssociateCount:    b.AssociateCount.Load(),
		AssociateErrors:   b.AssociateErrors.Load(),
		AssociateMatched:  b.AssociateMatched.Load(),
		AssociateTotal:    b.AssociateTotal.Load(),
		AssociateAvgNanos: avgNanos(b.AssociateTotalNanos.Load(), b.AssociateCount.Load()),
		JobCount:          b.JobCount.Load(),
		JobSkipped:        b.JobSkipped.Load(),
		JobErrors:         b.JobErrors.Load(),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	MatchCount        int64
	MatchErrors       int64
	MatchPairs        int64
	MatchAvgNanos     int64
	AssociateCount    int64
	AssociateErrors   int64
	AssociateMatched  int64
	AssociateTotal    int64
	AssociateAvgNanos int64
	JobCount          int64
	JobSkipped        int64
	JobErrors         int64
}

// MatchRate returns the overall fraction of detections that found a truth
// counterpart across all associations.
func (s BasicMetricsStats) MatchRate() float64 {
	if s.AssociateTotal == 0 {
		return 0
	}
	return float64(s.AssociateMatched) / float64(s.AssociateTotal)
}
