package sim

import (
	"sync"

	"age-of-war/server/internal/telemetry"
	"age-of-war/server/internal/world"
)

// ActionBuffer stages actions in a fixed-size ring. It is safe for
// concurrent producers and a single consumer.
type ActionBuffer struct {
	mu      sync.Mutex
	data    []world.Action
	head    int
	tail    int
	count   int
	metrics telemetry.Metrics
}

// NewActionBuffer constructs a ring buffer with the provided capacity.
func NewActionBuffer(capacity int, metrics telemetry.Metrics) *ActionBuffer {
	if capacity < 1 {
		capacity = 1
	}
	if metrics == nil {
		metrics = telemetry.Nop()
	}
	return &ActionBuffer{
		data:    make([]world.Action, capacity),
		metrics: metrics,
	}
}

// Capacity reports the maximum number of actions the buffer can hold.
func (b *ActionBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Push stages an action, returning false if the buffer is full.
func (b *ActionBuffer) Push(a world.Action) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == len(b.data) {
		b.metrics.Add(telemetry.MetricActionOverflow, 1)
		return false
	}
	b.data[b.tail] = a
	b.tail = (b.tail + 1) % len(b.data)
	b.count++
	b.metrics.Store(telemetry.MetricActionBuffer, uint64(b.count))
	return true
}

// Drain returns all staged actions in FIFO order and clears the buffer.
func (b *ActionBuffer) Drain() []world.Action {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	out := make([]world.Action, b.count)
	for i := 0; i < b.count; i++ {
		idx := (b.head + i) % len(b.data)
		out[i] = b.data[idx]
		b.data[idx] = world.Action{}
	}
	b.head = 0
	b.tail = 0
	b.count = 0
	b.metrics.Store(telemetry.MetricActionBuffer, 0)
	return out
}

// Len reports the number of staged actions.
func (b *ActionBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
