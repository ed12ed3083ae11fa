package replication

import (
	"time"

	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/sim"
	"age-of-war/server/internal/world"
)

// MirrorConfig describes a client-side copy of a hosted match.
type MirrorConfig struct {
	MatchID  string
	LocalID  string
	Settings world.Settings
	Profile  Profile
	Ports    world.Ports
	Deps     sim.Deps
}

// Mirror is a predicted replica of a host world. Snapshots and frames must be
// fed from one goroutine.
type Mirror struct {
	world      *world.World
	engine     *sim.Engine
	loop       *sim.ClientLoop
	reconciler *Reconciler
	pending    *PendingQueue
	localID    string
}

// NewMirror builds an empty mirror waiting for its first snapshot.
func NewMirror(cfg MirrorConfig) *Mirror {
	w := world.New(world.Config{MatchID: cfg.MatchID, Settings: cfg.Settings, Ports: cfg.Ports})
	engine := sim.NewEngine(w, cfg.Deps)
	pending := NewPendingQueue(PendingTTL)
	m := &Mirror{
		world:      w,
		engine:     engine,
		reconciler: NewReconciler(w, cfg.LocalID, cfg.Profile, pending),
		pending:    pending,
		localID:    cfg.LocalID,
	}
	m.loop = sim.NewClientLoop(engine, sim.ClientHooks{
		BeforePredict: func(now time.Time, _ float64) { pending.Expire(now) },
	})
	return m
}

// World exposes the mirror world for rendering.
func (m *Mirror) World() *world.World { return m.world }

// Pending exposes the optimistic request queue.
func (m *Mirror) Pending() *PendingQueue { return m.pending }

// ApplySnapshot reconciles a host snapshot.
func (m *Mirror) ApplySnapshot(s Snapshot) { m.reconciler.ApplySnapshot(s) }

// ApplyPhase follows a host phase broadcast.
func (m *Mirror) ApplyPhase(p world.Phase) bool { return m.reconciler.ApplyPhase(p) }

// Frame advances local prediction.
func (m *Mirror) Frame(now time.Time) float64 { return m.loop.Frame(now) }

// DisplayGold is the local player's gold minus optimistic spends.
func (m *Mirror) DisplayGold() float64 {
	me := m.world.Player(m.localID)
	if me == nil {
		return 0
	}
	return m.pending.DisplayGold(me.Gold)
}

// RequestUnit checks affordability against display gold and records an
// optimistic request. The caller sends the returned action to the host.
func (m *Mirror) RequestUnit(unitID string, now time.Time) (world.Action, bool) {
	me := m.world.Player(m.localID)
	if me == nil || !me.Alive() || m.world.Phase != world.PhasePlaying {
		return world.Action{}, false
	}
	stats, ok := catalog.Unit(me.Age, unitID)
	if !ok {
		return world.Action{}, false
	}
	cost := float64(stats.Cost) * m.world.Settings.UnitCost
	if m.DisplayGold() < cost {
		return world.Action{}, false
	}
	action := world.Action{
		Kind:      world.ActionQueueUnit,
		PlayerID:  m.localID,
		UnitID:    unitID,
		RequestID: world.NewRequestID(),
	}
	m.pending.Add(PendingRequest{RequestID: action.RequestID, UnitID: unitID, Cost: cost, IssuedAt: now})
	return action, true
}
