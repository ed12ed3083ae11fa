package sinks

import (
	"context"
	"sync"

	"age-of-war/server/logging"
)

// MemorySink keeps events for tests and the diagnostics endpoint.
type MemorySink struct {
	mu     sync.RWMutex
	events []logging.Event
	limit  int
}

func NewMemorySink() *MemorySink {
	return &MemorySink{events: make([]logging.Event, 0)}
}

// NewBoundedMemorySink keeps at most limit recent events.
func NewBoundedMemorySink(limit int) *MemorySink {
	return &MemorySink{events: make([]logging.Event, 0, limit), limit: limit}
}

func (s *MemorySink) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if s.limit > 0 && len(s.events) > s.limit {
		s.events = append(s.events[:0], s.events[len(s.events)-s.limit:]...)
	}
	return nil
}

func (s *MemorySink) Events() []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]logging.Event, len(s.events))
	copy(copied, s.events)
	return copied
}

// OfType filters recorded events by type.
func (s *MemorySink) OfType(eventType logging.EventType) []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []logging.Event
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}
