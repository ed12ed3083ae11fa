package replication

import (
	"math"

	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/geom"
	"age-of-war/server/internal/world"
)

// visualResyncTolerance is how far the local build bar may drift from the
// host spawn timer before it is reset.
const visualResyncTolerance = 0.3

// Reconciler folds host snapshots into a client mirror world. It must run on
// the same goroutine as the client loop.
type Reconciler struct {
	world   *world.World
	localID string
	drift   float64
	pending *PendingQueue
	lastSeq uint64
}

// NewReconciler binds a mirror world to the local player's pending queue.
func NewReconciler(w *world.World, localID string, profile Profile, pending *PendingQueue) *Reconciler {
	if pending == nil {
		pending = NewPendingQueue(0)
	}
	return &Reconciler{
		world:   w,
		localID: localID,
		drift:   profile.Tuning().DriftThreshold,
		pending: pending,
	}
}

// Pending returns the optimistic request queue.
func (r *Reconciler) Pending() *PendingQueue { return r.pending }

// ApplyPhase follows an explicit host phase transition. A finished mirror
// never changes again.
func (r *Reconciler) ApplyPhase(next world.Phase) bool {
	w := r.world
	if w.Phase == next || w.Phase.Terminal() {
		return false
	}
	if w.Phase == world.PhaseWaiting && next != world.PhasePlaying {
		w.SetPhase(world.PhasePlaying)
	}
	return w.SetPhase(next)
}

// ApplySnapshot overwrites mirrored player records, replays events and
// reconciles unit mirrors. Snapshots arriving after the mirror finished are
// ignored.
func (r *Reconciler) ApplySnapshot(s Snapshot) {
	w := r.world
	if w.Phase.Terminal() {
		return
	}
	if s.Seq != 0 {
		if s.Seq <= r.lastSeq {
			return
		}
		r.lastSeq = s.Seq
	}
	if s.Tick > w.Tick {
		w.Tick = s.Tick
	}
	r.applyPlayers(s.Players)
	r.confirmPending()
	for _, ev := range s.Events {
		if ev.Kind == world.EventShoot {
			w.AddProjectile(ev.Projectile())
			continue
		}
		w.AddEffect(ev.Effect())
	}
	r.applyUnits(s.Units)
	if s.Phase != "" {
		r.ApplyPhase(s.Phase)
	}
}

func (r *Reconciler) applyPlayers(players []world.Player) {
	w := r.world
	for i := range players {
		server := &players[i]
		local := w.Player(server.ID)
		if local == nil {
			clone := server.Clone()
			clone.VisualTimer = clone.SpawnTimer
			w.AddPlayer(&clone)
			continue
		}
		local.Gold = server.Gold
		local.XP = server.XP
		local.HP = server.HP
		local.MaxHP = server.MaxHP
		local.Age = server.Age
		local.TargetID = server.TargetID
		local.SpawnQueue = append([]world.QueueItem(nil), server.SpawnQueue...)
		local.SpawnTimer = server.SpawnTimer
		local.SpecialCooldown = server.SpecialCooldown
		local.Turrets = append([]world.Turret(nil), server.Turrets...)
		if len(server.SpawnQueue) > 0 && math.Abs(local.VisualTimer-server.SpawnTimer) > visualResyncTolerance {
			local.VisualTimer = server.SpawnTimer
		}
	}
}

func (r *Reconciler) confirmPending() {
	me := r.world.Player(r.localID)
	if me == nil || len(me.SpawnQueue) == 0 {
		return
	}
	ids := make(map[string]struct{}, len(me.SpawnQueue))
	for _, item := range me.SpawnQueue {
		if item.RequestID != "" {
			ids[item.RequestID] = struct{}{}
		}
	}
	r.pending.Confirm(ids)
}

func (r *Reconciler) applyUnits(units []UnitState) {
	w := r.world
	seen := make(map[string]struct{}, len(units))
	threshold := r.drift * r.drift
	for _, su := range units {
		seen[su.ID] = struct{}{}
		pos := geom.Vec2{X: su.X, Y: su.Y}
		if u := w.Unit(su.ID); u != nil {
			u.HP = su.HP
			u.MaxHP = su.MaxHP
			u.TargetID = su.TargetID
			if su.Scale > 0 {
				u.Scale = su.Scale
			}
			if geom.DistSq(u.Pos, pos) > threshold {
				u.Pos = pos
			}
			continue
		}
		w.AddUnit(mirrorUnit(su, pos))
	}

	var stale []string
	for _, u := range w.Units {
		if _, ok := seen[u.ID]; !ok {
			stale = append(stale, u.ID)
		}
	}
	for _, id := range stale {
		w.RemoveUnit(id)
	}
}

func mirrorUnit(su UnitState, pos geom.Vec2) *world.Unit {
	var u *world.Unit
	if stats, ok := catalog.LookupUnit(su.TypeID); ok {
		u = world.NewUnit(su.ID, su.OwnerID, su.TargetID, stats, pos)
	} else {
		u = &world.Unit{ID: su.ID, OwnerID: su.OwnerID, TypeID: su.TypeID, Pos: pos, TargetID: su.TargetID}
	}
	u.HP = su.HP
	u.MaxHP = su.MaxHP
	if su.Icon != "" {
		u.Icon = su.Icon
	}
	u.Scale = su.Scale
	if u.Scale <= 0 {
		u.Scale = 1
	}
	return u
}
