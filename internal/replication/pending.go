package replication

import (
	"sync"
	"time"
)

// PendingTTL is how long an unconfirmed spawn request stays on screen.
const PendingTTL = 5 * time.Second

// PendingRequest is an optimistic spawn the local player has paid for but the
// host has not yet echoed back in its queue.
type PendingRequest struct {
	RequestID string
	UnitID    string
	Cost      float64
	IssuedAt  time.Time
}

// PendingQueue tracks optimistic spawn requests on a client. Input handlers
// add entries while the render loop confirms and expires them.
type PendingQueue struct {
	mu    sync.Mutex
	ttl   time.Duration
	items []PendingRequest
}

// NewPendingQueue builds a queue; ttl <= 0 uses PendingTTL.
func NewPendingQueue(ttl time.Duration) *PendingQueue {
	if ttl <= 0 {
		ttl = PendingTTL
	}
	return &PendingQueue{ttl: ttl}
}

// Add records a request.
func (q *PendingQueue) Add(req PendingRequest) {
	q.mu.Lock()
	q.items = append(q.items, req)
	q.mu.Unlock()
}

// Confirm drops every request whose id the host now reports.
func (q *PendingQueue) Confirm(ids map[string]struct{}) int {
	if len(ids) == 0 {
		return 0
	}
	return q.filter(func(r PendingRequest) bool {
		_, ok := ids[r.RequestID]
		return !ok
	})
}

// Expire drops requests older than the ttl.
func (q *PendingQueue) Expire(now time.Time) int {
	return q.filter(func(r PendingRequest) bool {
		return now.Sub(r.IssuedAt) < q.ttl
	})
}

func (q *PendingQueue) filter(keep func(PendingRequest) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.items[:0]
	for _, r := range q.items {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	removed := len(q.items) - len(kept)
	q.items = kept
	return removed
}

// Items returns a copy of the outstanding requests.
func (q *PendingQueue) Items() []PendingRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]PendingRequest(nil), q.items...)
}

// Len reports the outstanding request count.
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// DisplayGold subtracts outstanding costs from the host-reported gold.
func (q *PendingQueue) DisplayGold(gold float64) float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range q.items {
		gold -= r.Cost
	}
	return gold
}
