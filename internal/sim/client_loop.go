package sim

import (
	"time"

	"age-of-war/server/internal/world"
)

const (
	// MaxRenderDelta bounds a client frame; longer gaps are treated as a stall.
	MaxRenderDelta = 0.5
	// StallRenderDelta replaces a stalled frame delta.
	StallRenderDelta = 0.016
)

// ClientHooks let the replication layer run alongside prediction.
type ClientHooks struct {
	BeforePredict func(now time.Time, dt float64)
	AfterFrame    func(now time.Time, dt float64)
}

// ClientLoop is the variable-step prediction driver for a mirror world.
// All calls must come from the goroutine that also applies snapshots.
type ClientLoop struct {
	engine    *Engine
	hooks     ClientHooks
	last      time.Time
	predicted uint64
}

// NewClientLoop wraps a mirror engine.
func NewClientLoop(engine *Engine, hooks ClientHooks) *ClientLoop {
	return &ClientLoop{engine: engine, hooks: hooks}
}

// Predicted counts the prediction steps run so far.
func (c *ClientLoop) Predicted() uint64 { return c.predicted }

// Engine returns the mirror engine.
func (c *ClientLoop) Engine() *Engine { return c.engine }

// Frame decays local timers and, while playing, predicts one variable step.
func (c *ClientLoop) Frame(now time.Time) float64 {
	dt := StallRenderDelta
	if !c.last.IsZero() {
		dt = now.Sub(c.last).Seconds()
	}
	c.last = now
	if dt > MaxRenderDelta || dt <= 0 {
		dt = StallRenderDelta
	}

	if c.hooks.BeforePredict != nil {
		c.hooks.BeforePredict(now, dt)
	}

	w := c.engine.world
	gameDt := dt * w.Settings.GameSpeed
	for _, p := range w.Players {
		if p.VisualTimer > 0 {
			p.VisualTimer = max(0, p.VisualTimer-gameDt)
		}
		if p.SpecialCooldown > 0 {
			p.SpecialCooldown = max(0, p.SpecialCooldown-gameDt)
		}
	}
	if w.Phase == world.PhasePlaying {
		c.engine.Tick(dt, false)
		c.predicted++
	}

	if c.hooks.AfterFrame != nil {
		c.hooks.AfterFrame(now, dt)
	}
	return dt
}
