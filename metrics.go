package fitAuth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies an engine counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins on either path.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins rejected for bad credentials.
	MetricLoginFailure
	// MetricLoginRemote counts logins served by the remote service.
	MetricLoginRemote
	// MetricLoginFallback counts logins served by the local table.
	MetricLoginFallback
	MetricDemoDenied
	MetricRegisterSuccess
	MetricRegisterFailure
	MetricLogout
	// MetricSessionRestored counts sessions recovered by Restore.
	MetricSessionRestored
	MetricRestoreFailure
	// MetricLifecycleEnd counts sessions ended by tab close or hide.
	MetricLifecycleEnd
	MetricProfileUpdate
	// MetricRemoteUnavailable counts remote calls that failed for any reason.
	MetricRemoteUnavailable
	// MetricRemoteLatency is the remote call latency histogram.
	MetricRemoteLatency
	metricIDCount
)

// LatencyBounds are the finite upper bounds of the remote latency buckets.
// One more bucket holds everything slower.
var LatencyBounds = [...]time.Duration{
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2500 * time.Millisecond,
}

// LatencyBucketCount includes the overflow bucket.
const LatencyBucketCount = len(LatencyBounds) + 1

// counter occupies one cache line.
type counter struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics holds lock-free engine counters and the remote latency histogram.
type Metrics struct {
	enabled bool
	latency bool

	counters      [metricIDCount]counter
	remoteLatency [LatencyBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of the metrics. Histograms hold
// per-bucket (not cumulative) counts aligned with LatencyBounds.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics honoring cfg. A disabled Metrics ignores
// every update.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.latency
}

func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || id == MetricRemoteLatency {
		return
	}
	m.counters[id].n.Add(1)
}

// Observe records d in the histogram of id. Only MetricRemoteLatency has a
// histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricRemoteLatency {
		return
	}
	m.remoteLatency[latencyBucket(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].n.Load()
}

// Snapshot copies the current values. A disabled Metrics yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := range metricIDCount {
		if id != MetricRemoteLatency {
			s.Counters[id] = m.counters[id].n.Load()
		}
	}
	if m.latency {
		buckets := make([]uint64, LatencyBucketCount)
		for i := range buckets {
			buckets[i] = m.remoteLatency[i].Load()
		}
		s.Histograms[MetricRemoteLatency] = buckets
	}
	return s
}

func latencyBucket(d time.Duration) int {
	for i, bound := range LatencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(LatencyBounds)
}
