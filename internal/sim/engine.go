// Package sim advances a world by fixed ticks. The same tick function runs on
// the host (authoritative) and on client mirrors (prediction only).
package sim

import (
	"context"

	"age-of-war/server/internal/telemetry"
	"age-of-war/server/internal/world"
	"age-of-war/server/logging"
	"age-of-war/server/logging/lifecycle"
)

// Engine owns the rules applied to a single world.
type Engine struct {
	world *world.World
	deps  Deps
	ctx   context.Context
}

// NewEngine binds rules to a world.
func NewEngine(w *world.World, deps Deps) *Engine {
	return &Engine{world: w, deps: deps.normalized(), ctx: context.Background()}
}

// World exposes the aggregate the engine mutates.
func (e *Engine) World() *world.World { return e.world }

// Deps returns the injected dependencies.
func (e *Engine) Deps() Deps { return e.deps }

// Start seats the roster and enters the playing phase.
func (e *Engine) Start(roster []world.Seat) bool {
	w := e.world
	if w.Phase != world.PhaseWaiting || len(roster) == 0 {
		return false
	}
	w.SeatPlayers(roster)
	if !w.SetPhase(world.PhasePlaying) {
		return false
	}
	ids := make([]string, 0, len(w.Players))
	for _, p := range w.Players {
		ids = append(ids, p.ID)
	}
	lifecycle.MatchStarted(e.ctx, e.deps.Publisher, w.Tick, lifecycle.MatchStartedPayload{
		Mode:    string(w.Settings.Mode),
		Players: ids,
	})
	e.deps.Logger.Info().Str("match", w.MatchID).Int("players", len(ids)).Str("mode", string(w.Settings.Mode)).Msg("match started")
	return true
}

// Pause suspends a playing match.
func (e *Engine) Pause() bool {
	if !e.world.SetPhase(world.PhasePaused) {
		return false
	}
	lifecycle.MatchPaused(e.ctx, e.deps.Publisher, e.world.Tick)
	return true
}

// Resume continues a paused match.
func (e *Engine) Resume() bool {
	if e.world.Phase != world.PhasePaused || !e.world.SetPhase(world.PhasePlaying) {
		return false
	}
	lifecycle.MatchResumed(e.ctx, e.deps.Publisher, e.world.Tick)
	return true
}

// Tick advances the world by dt seconds of wall time, scaled by game speed.
// Only an authoritative tick applies damage, spawns, bots, turrets and the
// win rule; a non-authoritative tick predicts movement and visuals.
func (e *Engine) Tick(dt float64, authoritative bool) {
	w := e.world
	if w.Phase != world.PhasePlaying || dt <= 0 {
		return
	}
	gameDt := dt * w.Settings.GameSpeed
	// Mirrors take their tick from host snapshots.
	if authoritative {
		w.Tick++
	}

	if authoritative {
		e.stepPlayers(gameDt)
		e.decayOrphans(gameDt)
		w.PruneDeadUnits()
	}

	for _, u := range w.Units {
		if u.Alive() {
			e.updateUnit(u, gameDt, authoritative)
		}
	}

	if authoritative {
		e.stepTurrets(gameDt)
	}
	e.stepProjectiles(gameDt, authoritative)
	e.stepEffects(gameDt)

	if authoritative {
		w.PruneDeadUnits()
		e.evaluateWin()
		e.deps.Metrics.Add(telemetry.MetricTicks, 1)
		e.deps.Metrics.Store(telemetry.MetricUnitsAlive, uint64(len(w.Units)))
	}
}

func (e *Engine) stepEffects(gameDt float64) {
	w := e.world
	kept := w.Effects[:0]
	for _, fx := range w.Effects {
		fx.Timer -= gameDt
		if fx.Timer > 0 {
			kept = append(kept, fx)
		}
	}
	for i := len(kept); i < len(w.Effects); i++ {
		w.Effects[i] = nil
	}
	w.Effects = kept
}

// emitEffect records a visual locally and in the sync event log.
func (e *Engine) emitEffect(fx world.Effect) {
	e.world.AddEffect(fx)
	e.world.Emit(world.EffectEvent(fx))
}

func playerRef(p *world.Player) logging.EntityRef {
	if p == nil {
		return logging.EntityRef{Kind: logging.EntityKindUnknown}
	}
	if p.Bot {
		return logging.EntityRef{ID: p.ID, Kind: logging.EntityKindBot}
	}
	return logging.PlayerRef(p.ID)
}
