// Package intake stages client submissions for the host loop. It owns the
// checks that happen before an action reaches the simulation: session
// ownership, duplicate suppression, and per-player rate limiting.
package intake

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"age-of-war/server"
	"age-of-war/server/internal/net/proto"
	"age-of-war/server/internal/telemetry"
	"age-of-war/server/internal/world"
	"age-of-war/server/logging"
	"age-of-war/server/logging/network"
)

// Enqueuer accepts actions for the next host frame.
type Enqueuer interface {
	Enqueue(world.Action) (bool, string)
}

// Config tunes an Intake. Zero values fall back to defaults.
type Config struct {
	// Rate is the sustained number of actions per second allowed per player.
	Rate float64
	// Burst is the number of actions a player may submit back to back.
	Burst int
	// DedupeWindow is how many recent request ids are remembered.
	DedupeWindow int

	HasPlayer func(string) bool
	Clock     logging.Clock
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// DefaultConfig returns the limits used by the host.
func DefaultConfig() Config {
	return Config{Rate: 20, Burst: 10, DedupeWindow: 512}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.Rate <= 0 {
		c.Rate = def.Rate
	}
	if c.Burst <= 0 {
		c.Burst = def.Burst
	}
	if c.DedupeWindow <= 0 {
		c.DedupeWindow = def.DedupeWindow
	}
	if c.Clock == nil {
		c.Clock = logging.SystemClock{}
	}
	if c.Metrics == nil {
		c.Metrics = telemetry.Nop()
	}
	if c.Publisher == nil {
		c.Publisher = logging.NopPublisher()
	}
	return c
}

// Intake is safe for concurrent use by every transport.
type Intake struct {
	target Enqueuer
	config Config

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	recent   map[string]int
	order    []string
	next     int
}

// New binds an intake to the host loop.
func New(target Enqueuer, cfg Config) *Intake {
	cfg = cfg.normalized()
	return &Intake{
		target:   target,
		config:   cfg,
		limiters: make(map[string]*rate.Limiter),
		recent:   make(map[string]int, cfg.DedupeWindow),
		order:    make([]string, cfg.DedupeWindow),
	}
}

// StageClientMessage converts a wire message into an action owned by
// playerID and submits it.
func (i *Intake) StageClientMessage(playerID, transport string, msg proto.ClientMessage) (world.Action, bool, string) {
	action, ok := proto.ClientAction(msg, playerID)
	if !ok {
		return world.Action{}, false, server.CommandRejectInvalidAction
	}
	if ok, reason := i.Submit(action, transport); !ok {
		return action, false, reason
	}
	return action, true, ""
}

// Submit runs the pre-simulation checks and enqueues the action.
func (i *Intake) Submit(a world.Action, transport string) (bool, string) {
	if !a.Valid() {
		return false, server.CommandRejectInvalidAction
	}
	if i.config.HasPlayer != nil && !i.config.HasPlayer(a.PlayerID) {
		return false, server.CommandRejectUnknownActor
	}
	if i.target == nil {
		return false, server.CommandRejectNoMatch
	}

	key := ""
	if a.RequestID != "" {
		key = a.PlayerID + "/" + a.RequestID
	}
	i.mu.Lock()
	if key != "" {
		if _, seen := i.recent[key]; seen {
			i.mu.Unlock()
			i.config.Metrics.Add(telemetry.MetricActionsDuplicate, 1)
			return false, server.CommandRejectDuplicate
		}
		i.remember(key)
	}
	allowed := i.limiter(a.PlayerID).AllowN(i.config.Clock.Now(), 1)
	if !allowed && key != "" {
		i.forget(key)
	}
	i.mu.Unlock()

	if !allowed {
		i.config.Metrics.Add(telemetry.MetricActionsThrottled, 1)
		network.ActionThrottled(context.Background(), i.config.Publisher, logging.PlayerRef(a.PlayerID), a.RequestID, network.ActionThrottledPayload{
			Action:    string(a.Kind),
			Transport: transport,
		})
		return false, server.CommandRejectThrottled
	}
	ok, reason := i.target.Enqueue(a)
	if !ok && key != "" {
		// A refused action never reached the simulation, so a retry with the
		// same request id is a new attempt.
		i.mu.Lock()
		i.forget(key)
		i.mu.Unlock()
	}
	return ok, reason
}

// Forget drops the limiter of a departed player.
func (i *Intake) Forget(playerID string) {
	i.mu.Lock()
	delete(i.limiters, playerID)
	i.mu.Unlock()
}

func (i *Intake) limiter(playerID string) *rate.Limiter {
	limiter, ok := i.limiters[playerID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(i.config.Rate), i.config.Burst)
		i.limiters[playerID] = limiter
	}
	return limiter
}

// remember stores key in a fixed ring, evicting the oldest entry.
func (i *Intake) remember(key string) {
	if old := i.order[i.next]; old != "" {
		delete(i.recent, old)
	}
	i.order[i.next] = key
	i.recent[key] = i.next
	i.next = (i.next + 1) % len(i.order)
}

func (i *Intake) forget(key string) {
	if slot, ok := i.recent[key]; ok {
		delete(i.recent, key)
		i.order[slot] = ""
	}
}
