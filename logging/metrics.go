package logging

import (
	"sort"
	"sync"
)

// Metrics is an in-process counter and gauge registry surfaced by the
// diagnostics endpoint.
type Metrics struct {
	mu     sync.RWMutex
	values map[string]uint64
}

// NewMetrics returns an empty registry.
func NewMetrics() *Metrics {
	return &Metrics{values: make(map[string]uint64)}
}

// Add increments a counter.
func (m *Metrics) Add(key string, delta uint64) {
	if m == nil || key == "" {
		return
	}
	m.mu.Lock()
	if m.values == nil {
		m.values = make(map[string]uint64)
	}
	m.values[key] += delta
	m.mu.Unlock()
}

// Store overwrites a gauge.
func (m *Metrics) Store(key string, value uint64) {
	if m == nil || key == "" {
		return
	}
	m.mu.Lock()
	if m.values == nil {
		m.values = make(map[string]uint64)
	}
	m.values[key] = value
	m.mu.Unlock()
}

// Value reads a single key.
func (m *Metrics) Value(key string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key]
}

// Snapshot copies every key.
func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]uint64, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Keys lists registered keys in order.
func (m *Metrics) Keys() []string {
	snap := m.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
