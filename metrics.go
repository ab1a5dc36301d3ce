package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricVerifyCacheHit counts verifications answered by a fresh record.
	MetricVerifyCacheHit MetricID = iota
	// MetricVerifySuccess counts verifications confirmed by the server.
	MetricVerifySuccess
	// MetricVerifyDegraded counts verifications answered by an expired record
	// while the server was unreachable.
	MetricVerifyDegraded
	MetricVerifyRejected
	MetricVerifyMalformed
	MetricVerifyUnreachable
	MetricInitialize
	MetricInitializeTrusted
	MetricInitializeCleared
	MetricLoginSuccess
	MetricLoginFailure
	MetricLogout
	MetricLogoutServerFailure
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricPropertiesHit
	MetricPropertiesFetch
	MetricPropertiesStale
	MetricSyncAdopt
	MetricSyncLogout
	MetricSyncProperties
	MetricStorageError
	// MetricVerifyLatency is the histogram of verify-token round trips.
	MetricVerifyLatency
	metricIDCount
)

const histBucketCount = 8

// latencyBounds are the inclusive upper bounds of the first seven buckets; the
// eighth takes everything slower.
var latencyBounds = [histBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

// paddedCounter keeps each counter on its own cache line.
type paddedCounter struct {
	atomic.Uint64
	_ [56]byte
}

// Metrics holds lock-free counters and the verify latency histogram. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	verifyLatency [histBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of Metrics. Histograms holds raw
// (non-cumulative) bucket counts keyed by histogram ID.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool { return m != nil && m.enabled }

func (m *Metrics) LatencyEnabled() bool { return m != nil && m.enableLatency }

// Inc adds one to id. Safe for concurrent use.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= MetricVerifyLatency {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d in the histogram of id. Only MetricVerifyLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricVerifyLatency {
		return
	}
	m.verifyLatency[bucketIndex(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricVerifyLatency {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter. A disabled Metrics yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}
	for id := MetricID(0); id < MetricVerifyLatency; id++ {
		s.Counters[id] = m.counters[id].Load()
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = m.verifyLatency[i].Load()
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
