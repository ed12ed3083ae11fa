package world

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out monotonic unit ids.
type IDGenerator struct {
	next atomic.Uint64
}

// Next returns the next id with the given prefix.
func (g *IDGenerator) Next(prefix string) string {
	n := g.next.Add(1)
	return prefix + "-" + strconv.FormatUint(n, 10)
}

// NewRequestID returns a unique id for a client spawn request.
func NewRequestID() string {
	return uuid.NewString()
}

// NewMatchID returns a unique id for a match.
func NewMatchID() string {
	return uuid.NewString()
}
