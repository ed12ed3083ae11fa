package match

import "sync"

// Slot holds the match a host is currently serving. A reset replaces it.
type Slot struct {
	mu      sync.RWMutex
	current *Match
}

// Current returns the active match or nil.
func (s *Slot) Current() *Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Swap installs next and returns the previous match.
func (s *Slot) Swap(next *Match) *Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current
	s.current = next
	return prev
}
