package sim

import (
	"context"
	"sync"
	"time"

	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/telemetry"
	"age-of-war/server/internal/world"
	"age-of-war/server/logging/simulation"
)

const (
	// ActionRejectQueueLimit indicates an action was dropped due to per-player throttling.
	ActionRejectQueueLimit = "queue_limit"
	// ActionRejectQueueFull indicates the action buffer is saturated.
	ActionRejectQueueFull = "queue_full"
)

// LoopConfig tunes the action buffer and accumulator.
type LoopConfig struct {
	FrameRate      int
	MaxFrameDelta  float64
	MaxBacklog     float64
	ActionCapacity int
	PerPlayerLimit int
	WarningStep    int
}

// DefaultLoopConfig returns the host defaults.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		FrameRate:      60,
		MaxFrameDelta:  0.25,
		MaxBacklog:     1.0,
		ActionCapacity: 1024,
		PerPlayerLimit: 32,
	}
}

func (c LoopConfig) normalized() LoopConfig {
	def := DefaultLoopConfig()
	if c.FrameRate <= 0 {
		c.FrameRate = def.FrameRate
	}
	if c.MaxFrameDelta <= 0 {
		c.MaxFrameDelta = def.MaxFrameDelta
	}
	if c.MaxBacklog <= 0 {
		c.MaxBacklog = def.MaxBacklog
	}
	if c.ActionCapacity <= 0 {
		c.ActionCapacity = def.ActionCapacity
	}
	return c
}

// LoopHooks observe the loop without owning it.
type LoopHooks struct {
	AfterFrame     func(FrameResult)
	OnActionDrop   func(reason string, a world.Action)
	OnQueueWarning func(length int)
}

// FrameResult summarizes one frame callback.
type FrameResult struct {
	Tick      uint64
	Now       time.Time
	Delta     float64
	Ticks     int
	Applied   int
	Rejected  int
	Duration  time.Duration
	Budget    time.Duration
	Discarded float64
	Suspended bool
	Actions   []world.Action
}

// HostLoop is the fixed-step accumulator driving an authoritative engine.
// Frame, Suspend and Resume must be called from a single goroutine.
type HostLoop struct {
	engine *Engine
	buffer *ActionBuffer
	hooks  LoopHooks
	config LoopConfig

	queueMu        sync.Mutex
	perPlayerCount map[string]int

	started     bool
	suspended   bool
	last        time.Time
	accumulator float64
}

// NewHostLoop wraps the engine with an action buffer and accumulator.
func NewHostLoop(engine *Engine, cfg LoopConfig, hooks LoopHooks) *HostLoop {
	cfg = cfg.normalized()
	return &HostLoop{
		engine:         engine,
		buffer:         NewActionBuffer(cfg.ActionCapacity, engine.deps.Metrics),
		hooks:          hooks,
		config:         cfg,
		perPlayerCount: make(map[string]int),
	}
}

// Engine returns the wrapped engine.
func (l *HostLoop) Engine() *Engine { return l.engine }

// Pending reports the number of staged actions.
func (l *HostLoop) Pending() int { return l.buffer.Len() }

// Enqueue stages an action for the next frame. Safe for concurrent use.
func (l *HostLoop) Enqueue(a world.Action) (bool, string) {
	reason := ""
	l.queueMu.Lock()
	if l.config.PerPlayerLimit > 0 && a.PlayerID != "" {
		count := l.perPlayerCount[a.PlayerID]
		if count >= l.config.PerPlayerLimit {
			reason = ActionRejectQueueLimit
		} else {
			l.perPlayerCount[a.PlayerID] = count + 1
		}
	}
	if reason == "" && !l.buffer.Push(a) {
		reason = ActionRejectQueueFull
	}
	length := l.buffer.Len()
	l.queueMu.Unlock()

	if reason != "" {
		if l.hooks.OnActionDrop != nil {
			l.hooks.OnActionDrop(reason, a)
		}
		return false, reason
	}
	if step := l.config.WarningStep; step > 0 && length >= step && length%step == 0 && l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(length)
	}
	return true, ""
}

// Suspend stops tick advancement and timestamp tracking.
func (l *HostLoop) Suspend() {
	l.suspended = true
}

// Resume rebases the clock on now so suspended time is not replayed.
func (l *HostLoop) Resume(now time.Time) {
	l.suspended = false
	l.last = now
	l.started = true
	l.accumulator = 0
}

// Suspended reports whether the loop is paused.
func (l *HostLoop) Suspended() bool { return l.suspended }

// Frame drains staged actions once, then runs as many fixed ticks as the
// accumulated wall time allows.
func (l *HostLoop) Frame(now time.Time) FrameResult {
	result := FrameResult{Now: now, Budget: time.Second / time.Duration(l.config.FrameRate)}
	if l.suspended {
		result.Suspended = true
		result.Tick = l.engine.world.Tick
		return result
	}
	if !l.started {
		l.started = true
		l.last = now
	}
	dt := now.Sub(l.last).Seconds()
	l.last = now
	if dt < 0 {
		dt = 0
	}
	if dt > l.config.MaxFrameDelta {
		dt = l.config.MaxFrameDelta
	}
	result.Delta = dt
	l.accumulator += dt
	if l.accumulator > l.config.MaxBacklog {
		result.Discarded = l.accumulator - l.config.MaxBacklog
		l.accumulator = l.config.MaxBacklog
		l.engine.deps.Metrics.Add(telemetry.MetricBacklogClamped, 1)
		simulation.BacklogClamped(l.engine.ctx, l.engine.deps.Publisher, l.engine.world.Tick, simulation.BacklogClampedPayload{DiscardedSeconds: result.Discarded})
	}

	clock := l.engine.deps.Clock
	start := clock.Now()

	actions := l.drain()
	for _, a := range actions {
		if ok, _ := l.engine.Apply(a); ok {
			result.Applied++
		} else {
			result.Rejected++
		}
	}
	result.Actions = actions

	for l.accumulator >= catalog.TickRate {
		l.engine.Tick(catalog.TickRate, true)
		l.accumulator -= catalog.TickRate
		result.Ticks++
	}

	result.Duration = clock.Now().Sub(start)
	result.Tick = l.engine.world.Tick
	if result.Budget > 0 && result.Duration > result.Budget {
		simulation.TickBudgetOverrun(l.engine.ctx, l.engine.deps.Publisher, result.Tick, simulation.TickBudgetOverrunPayload{
			DurationMillis: result.Duration.Milliseconds(),
			BudgetMillis:   result.Budget.Milliseconds(),
			Ratio:          float64(result.Duration) / float64(result.Budget),
			Ticks:          result.Ticks,
		})
	}
	if l.hooks.AfterFrame != nil {
		l.hooks.AfterFrame(result)
	}
	return result
}

// Run drives Frame from a ticker and executes jobs between frames on the same
// goroutine until ctx is cancelled.
func (l *HostLoop) Run(ctx context.Context, jobs <-chan func()) {
	ticker := time.NewTicker(time.Second / time.Duration(l.config.FrameRate))
	defer ticker.Stop()
	clock := l.engine.deps.Clock
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				jobs = nil
				continue
			}
			if job != nil {
				job()
			}
		case <-ticker.C:
			l.Frame(clock.Now())
		}
	}
}

func (l *HostLoop) drain() []world.Action {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	actions := l.buffer.Drain()
	if len(l.perPlayerCount) > 0 {
		l.perPlayerCount = make(map[string]int)
	}
	return actions
}
