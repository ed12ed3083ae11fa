package telemetry

import (
	"age-of-war/server/logging"
)

// Metrics exposes the telemetry methods required by server components.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// Metric keys shared across packages.
const (
	MetricActionsApplied     = "actions_applied_total"
	MetricActionsRejected    = "actions_rejected_total"
	MetricActionBuffer       = "action_buffer_occupancy"
	MetricActionOverflow     = "action_buffer_overflow_total"
	MetricTicks              = "ticks_total"
	MetricUnitsAlive         = "units_alive"
	MetricSnapshotsSent      = "snapshots_sent_total"
	MetricSnapshotBytes      = "snapshot_bytes_total"
	MetricSubscriberDrops    = "subscriber_drops_total"
	MetricActionsThrottled   = "actions_throttled_total"
	MetricActionsDuplicate   = "actions_duplicate_total"
	MetricBacklogClamped     = "backlog_clamped_total"
	MetricDatagramsReceived  = "datagrams_received_total"
	MetricDatagramDecodeErrs = "datagram_decode_errors_total"
)

// WrapMetrics adapts the in-process registry into the Metrics interface.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	return &metricsAdapter{metrics: metrics}
}

type metricsAdapter struct {
	metrics *logging.Metrics
}

func (m *metricsAdapter) Add(key string, delta uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Add(key, delta)
}

func (m *metricsAdapter) Store(key string, value uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Store(key, value)
}

// Multi fans every call out to each non-nil backend.
func Multi(backends ...Metrics) Metrics {
	filtered := make(multi, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			filtered = append(filtered, b)
		}
	}
	return filtered
}

type multi []Metrics

func (m multi) Add(key string, delta uint64) {
	for _, b := range m {
		b.Add(key, delta)
	}
}

func (m multi) Store(key string, value uint64) {
	for _, b := range m {
		b.Store(key, value)
	}
}

type nopMetrics struct{}

func (nopMetrics) Add(string, uint64)   {}
func (nopMetrics) Store(string, uint64) {}

// Nop discards every metric.
func Nop() Metrics { return nopMetrics{} }
