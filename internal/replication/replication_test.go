package replication

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/geom"
	"age-of-war/server/internal/sim"
	"age-of-war/server/internal/world"
)

func newHost(t *testing.T) *sim.Engine {
	t.Helper()
	w := world.New(world.Config{MatchID: "sync-test", Settings: world.DefaultSettings(), Seed: "sync"})
	engine := sim.NewEngine(w, sim.Deps{})
	if !engine.Start([]world.Seat{{ID: "a", Name: "Ann"}, {ID: "b", Name: "Bo"}}) {
		t.Fatalf("expected host start")
	}
	return engine
}

func hostUnit(t *testing.T, w *world.World, owner, typeID, target string, pos geom.Vec2) *world.Unit {
	t.Helper()
	stats, ok := catalog.LookupUnit(typeID)
	if !ok {
		t.Fatalf("unknown unit %s", typeID)
	}
	u := world.NewUnit(w.NextUnitID(), owner, target, stats, pos)
	w.AddUnit(u)
	return u
}

func newMirrorWorld() *world.World {
	return world.New(world.Config{MatchID: "sync-test", Settings: world.DefaultSettings()})
}

func TestProfileTuning(t *testing.T) {
	cases := map[string]Tuning{
		"local":   {Interval: 0.05, DriftThreshold: 20},
		"PEER":    {Interval: 0.2, DriftThreshold: 50},
		" relay ": {Interval: 1.0, DriftThreshold: 100},
		"carrier": {Interval: 0.8, DriftThreshold: 100},
	}
	for input, want := range cases {
		if got := ParseProfile(input).Tuning(); got != want {
			t.Fatalf("profile %q: expected %+v, got %+v", input, want, got)
		}
	}
}

func TestSnapshotterCadenceAndEventDrain(t *testing.T) {
	host := newHost(t)
	w := host.World()
	w.Emit(world.EffectEvent(world.Effect{Kind: world.EffectHit, Pos: geom.Vec2{X: 1, Y: 2}, Timer: 0.2}))

	s := NewSnapshotter(ProfileLocal, 0, nil)
	if _, ok := s.Advance(w, 0.03); ok {
		t.Fatalf("expected no snapshot before the interval elapsed")
	}
	snap, ok := s.Advance(w, 0.03)
	if !ok {
		t.Fatalf("expected snapshot once the interval elapsed")
	}
	if len(snap.Events) != 1 || snap.Events[0].Kind != world.EventHit {
		t.Fatalf("expected drained hit event, got %+v", snap.Events)
	}
	if w.PendingEvents() != 0 {
		t.Fatalf("expected event log cleared after capture")
	}
	if _, ok := s.Advance(w, 0.01); ok {
		t.Fatalf("expected elapsed time reset after a snapshot")
	}

	w.SetPhase(world.PhaseFinished)
	if _, ok := s.Advance(w, 5); ok {
		t.Fatalf("finished matches must not emit snapshots")
	}
}

func TestSnapshotterOverride(t *testing.T) {
	s := NewSnapshotter(ProfileRelay, 0.1, nil)
	if s.Interval() != 0.1 {
		t.Fatalf("expected override interval, got %v", s.Interval())
	}
}

func TestSnapshotRoundTripPreservesUnitMirrors(t *testing.T) {
	host := newHost(t)
	hw := host.World()
	hostUnit(t, hw, "a", "u1_3", "b", geom.Vec2{X: 10.4, Y: -3.6})
	damaged := hostUnit(t, hw, "b", "u1_2", "a", geom.Vec2{X: 123.45, Y: 67.89})
	damaged.Damage(7.5)

	payload, err := json.Marshal(Capture(hw))
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}

	mirror := newMirrorWorld()
	NewReconciler(mirror, "a", ProfileRelay, nil).ApplySnapshot(decoded)

	if len(mirror.Units) != len(hw.Units) {
		t.Fatalf("expected %d mirrors, got %d", len(hw.Units), len(mirror.Units))
	}
	for _, hu := range hw.Units {
		mu := mirror.Unit(hu.ID)
		if mu == nil {
			t.Fatalf("missing mirror for %s", hu.ID)
		}
		if mu.HP != hu.HP || mu.MaxHP != hu.MaxHP || mu.TargetID != hu.TargetID || mu.Scale != hu.Scale {
			t.Fatalf("mirror %s diverged: %+v vs %+v", hu.ID, mu, hu)
		}
		if geom.Dist(mu.Pos, hu.Pos) > ProfileRelay.Tuning().DriftThreshold {
			t.Fatalf("mirror %s position outside tolerance", hu.ID)
		}
		if mu.MeleeRange != hu.MeleeRange || mu.RangedRange != hu.RangedRange {
			t.Fatalf("expected combat stats restored from the catalog for %s", hu.ID)
		}
	}
	if mirror.Phase != world.PhasePlaying {
		t.Fatalf("expected mirror to follow host phase, got %s", mirror.Phase)
	}
	if p := mirror.Player("a"); p == nil || p.Name != "Ann" || p.Pos != hw.Player("a").Pos {
		t.Fatalf("expected player record mirrored, got %+v", p)
	}
}

func TestReconcilerSnapsOnlyBeyondDrift(t *testing.T) {
	mirror := newMirrorWorld()
	rec := NewReconciler(mirror, "a", ProfileLocal, nil)
	stats, _ := catalog.LookupUnit("u1_1")
	near := world.NewUnit("unit-1", "a", "b", stats, geom.Vec2{X: 10, Y: 0})
	far := world.NewUnit("unit-2", "a", "b", stats, geom.Vec2{X: 30, Y: 0})
	stale := world.NewUnit("unit-3", "a", "b", stats, geom.Vec2{})
	mirror.AddUnit(near)
	mirror.AddUnit(far)
	mirror.AddUnit(stale)

	rec.ApplySnapshot(Snapshot{
		Phase: world.PhasePlaying,
		Units: []UnitState{
			{ID: "unit-1", OwnerID: "a", TypeID: "u1_1", HP: 40, MaxHP: 55, Scale: 1, TargetID: "c"},
			{ID: "unit-2", OwnerID: "a", TypeID: "u1_1", HP: 55, MaxHP: 55, Scale: 1, TargetID: "b"},
		},
	})
	if near.Pos != (geom.Vec2{X: 10, Y: 0}) {
		t.Fatalf("expected small drift left to prediction, got %+v", near.Pos)
	}
	if near.HP != 40 || near.TargetID != "c" {
		t.Fatalf("expected hp and target overwritten, got %+v", near)
	}
	if far.Pos != (geom.Vec2{}) {
		t.Fatalf("expected large drift snapped, got %+v", far.Pos)
	}
	if mirror.Unit("unit-3") != nil || len(mirror.Units) != 2 {
		t.Fatalf("expected absent mirror removed")
	}
}

func TestReconcilerReplaysEvents(t *testing.T) {
	mirror := newMirrorWorld()
	rec := NewReconciler(mirror, "a", ProfileLocal, nil)
	shot := world.ShootEvent(world.Projectile{Pos: geom.Vec2{X: 5}, Vel: geom.Vec2{X: 1}, Damage: 10, OwnerID: "a", MaxDistance: 150})
	boom := world.EffectEvent(world.Effect{Kind: world.EffectExplosion, Pos: geom.Vec2{X: 9}, Radius: 100, Timer: 1})
	rec.ApplySnapshot(Snapshot{Phase: world.PhasePlaying, Events: []world.Event{shot, boom}})
	if len(mirror.Projectiles) != 1 || mirror.Projectiles[0].Origin != (geom.Vec2{X: 5}) {
		t.Fatalf("expected shoot event materialized as a projectile, got %+v", mirror.Projectiles)
	}
	if len(mirror.Effects) != 1 || mirror.Effects[0].Kind != world.EffectExplosion || mirror.Effects[0].Radius != 100 {
		t.Fatalf("expected explosion effect, got %+v", mirror.Effects)
	}
}

func TestReconcilerOverwritesPlayersAndResyncsVisualTimer(t *testing.T) {
	mirror := newMirrorWorld()
	rec := NewReconciler(mirror, "a", ProfileLocal, nil)
	server := world.Player{ID: "a", Gold: 100, HP: 2500, MaxHP: 2500, SpawnQueue: []world.QueueItem{{UnitID: "u1_1"}}, SpawnTimer: 0.8}
	rec.ApplySnapshot(Snapshot{Phase: world.PhasePlaying, Players: []world.Player{server}})

	local := mirror.Player("a")
	local.VisualTimer = 0.7
	server.Gold = 55
	server.SpawnTimer = 0.6
	rec.ApplySnapshot(Snapshot{Phase: world.PhasePlaying, Players: []world.Player{server}})
	if local.Gold != 55 {
		t.Fatalf("expected gold overwritten, got %v", local.Gold)
	}
	if local.VisualTimer != 0.7 {
		t.Fatalf("expected visual timer kept within tolerance, got %v", local.VisualTimer)
	}
	server.SpawnTimer = 0.2
	rec.ApplySnapshot(Snapshot{Phase: world.PhasePlaying, Players: []world.Player{server}})
	if local.VisualTimer != 0.2 {
		t.Fatalf("expected visual timer resynced, got %v", local.VisualTimer)
	}
}

func TestReconcilerIgnoresSnapshotsOnceFinished(t *testing.T) {
	mirror := newMirrorWorld()
	rec := NewReconciler(mirror, "a", ProfileLocal, nil)
	rec.ApplySnapshot(Snapshot{Phase: world.PhasePlaying, Players: []world.Player{{ID: "a", HP: 10}}})
	if !rec.ApplyPhase(world.PhaseFinished) {
		t.Fatalf("expected finished transition")
	}
	rec.ApplySnapshot(Snapshot{Phase: world.PhasePlaying, Players: []world.Player{{ID: "a", HP: 99}}})
	if mirror.Player("a").HP != 10 || mirror.Phase != world.PhaseFinished {
		t.Fatalf("finished mirror must be immutable")
	}
	if rec.ApplyPhase(world.PhasePlaying) {
		t.Fatalf("finished is terminal")
	}
}

func TestReconcilerDropsDuplicateAndStaleSnapshots(t *testing.T) {
	mirror := newMirrorWorld()
	rec := NewReconciler(mirror, "a", ProfileLocal, nil)
	shot := world.ShootEvent(world.Projectile{Pos: geom.Vec2{X: 5}, Vel: geom.Vec2{X: 1}, Damage: 10, OwnerID: "a", MaxDistance: 150})
	fresh := Snapshot{Seq: 2, Tick: 20, Phase: world.PhasePlaying, Players: []world.Player{{ID: "a", HP: 50}}, Events: []world.Event{shot}}

	rec.ApplySnapshot(fresh)
	rec.ApplySnapshot(fresh)
	if len(mirror.Projectiles) != 1 {
		t.Fatalf("expected a repeated snapshot to replay its events once, got %d projectiles", len(mirror.Projectiles))
	}

	rec.ApplySnapshot(Snapshot{Seq: 1, Tick: 10, Phase: world.PhasePlaying, Players: []world.Player{{ID: "a", HP: 90}}})
	if mirror.Player("a").HP != 50 || mirror.Tick != 20 {
		t.Fatalf("expected late snapshot ignored, got hp %v tick %d", mirror.Player("a").HP, mirror.Tick)
	}

	rec.ApplySnapshot(Snapshot{Seq: 3, Tick: 21, Phase: world.PhasePlaying, Players: []world.Player{{ID: "a", HP: 45}}})
	if mirror.Player("a").HP != 45 {
		t.Fatalf("expected newer snapshot applied, got hp %v", mirror.Player("a").HP)
	}
}

func TestSnapshotsCarryIncreasingSeq(t *testing.T) {
	host := newHost(t)
	w := host.World()
	join := State(w)
	first := Capture(w)
	second := Capture(w)
	if join.Seq == 0 || first.Seq <= join.Seq || second.Seq <= first.Seq {
		t.Fatalf("expected strictly increasing seq, got %d %d %d", join.Seq, first.Seq, second.Seq)
	}
}

func TestMirrorTickFollowsHost(t *testing.T) {
	host := newHost(t)
	hw := host.World()
	for i := 0; i < 5; i++ {
		host.Tick(catalog.TickRate, true)
	}
	m := NewMirror(MirrorConfig{MatchID: hw.MatchID, LocalID: "a", Settings: hw.Settings, Profile: ProfileLocal})
	m.ApplySnapshot(Capture(hw))
	base := time.Unix(1000, 0)
	m.Frame(base)
	for i := 1; i <= 10; i++ {
		m.Frame(base.Add(time.Duration(i) * 33 * time.Millisecond))
	}
	if m.World().Tick != hw.Tick {
		t.Fatalf("expected mirror tick %d to match host, got %d", hw.Tick, m.World().Tick)
	}
	host.Tick(catalog.TickRate, true)
	m.ApplySnapshot(Capture(hw))
	if m.World().Tick != hw.Tick {
		t.Fatalf("expected mirror tick to advance with the host, got %d want %d", m.World().Tick, hw.Tick)
	}
}

func TestReconcilerFollowsPause(t *testing.T) {
	mirror := newMirrorWorld()
	rec := NewReconciler(mirror, "a", ProfileLocal, nil)
	if !rec.ApplyPhase(world.PhasePaused) || mirror.Phase != world.PhasePaused {
		t.Fatalf("expected waiting mirror to accept paused, got %s", mirror.Phase)
	}
	if !rec.ApplyPhase(world.PhasePlaying) {
		t.Fatalf("expected resume")
	}
}

func TestPendingQueueConfirmAndExpire(t *testing.T) {
	base := time.Unix(1000, 0)
	q := NewPendingQueue(0)
	q.Add(PendingRequest{RequestID: "r1", UnitID: "u1_1", Cost: 15, IssuedAt: base})
	q.Add(PendingRequest{RequestID: "r2", UnitID: "u1_2", Cost: 25, IssuedAt: base.Add(time.Second)})
	if got := q.DisplayGold(175); got != 135 {
		t.Fatalf("expected display gold 135, got %v", got)
	}
	if n := q.Confirm(map[string]struct{}{"r1": {}}); n != 1 {
		t.Fatalf("expected one confirmation, got %d", n)
	}
	if n := q.Expire(base.Add(5500 * time.Millisecond)); n != 0 {
		t.Fatalf("expected r2 still fresh, expired %d", n)
	}
	if n := q.Expire(base.Add(6 * time.Second)); n != 1 || q.Len() != 0 {
		t.Fatalf("expected r2 expired at its 5s mark, expired %d", n)
	}
}

func TestReconcilerConfirmsPendingByRequestID(t *testing.T) {
	mirror := newMirrorWorld()
	pending := NewPendingQueue(0)
	pending.Add(PendingRequest{RequestID: "req-1", Cost: 15, IssuedAt: time.Now()})
	pending.Add(PendingRequest{RequestID: "req-2", Cost: 15, IssuedAt: time.Now()})
	rec := NewReconciler(mirror, "a", ProfileLocal, pending)
	rec.ApplySnapshot(Snapshot{
		Phase:   world.PhasePlaying,
		Players: []world.Player{{ID: "a", HP: 1, SpawnQueue: []world.QueueItem{{UnitID: "u1_1", RequestID: "req-1"}}}},
	})
	items := pending.Items()
	if len(items) != 1 || items[0].RequestID != "req-2" {
		t.Fatalf("expected only req-2 outstanding, got %+v", items)
	}
}

func TestMirrorPredictsBetweenSnapshots(t *testing.T) {
	host := newHost(t)
	hw := host.World()
	u := hostUnit(t, hw, "a", "u1_1", "b", geom.Vec2{})

	m := NewMirror(MirrorConfig{MatchID: hw.MatchID, LocalID: "a", Settings: hw.Settings, Profile: ProfileRelay})
	m.ApplySnapshot(Capture(hw))
	base := time.Unix(1000, 0)
	m.Frame(base)
	for i := 1; i <= 30; i++ {
		m.Frame(base.Add(time.Duration(i) * 33 * time.Millisecond))
	}
	mu := m.World().Unit(u.ID)
	if mu == nil {
		t.Fatalf("expected mirror unit")
	}
	moved := geom.Dist(mu.Pos, u.Pos)
	if moved < 40 || moved > 60 {
		t.Fatalf("expected about one second of predicted marching, moved %v", moved)
	}
	if mu.HP != u.HP {
		t.Fatalf("prediction must not change hp")
	}
}

func TestMirrorRequestUnitUsesDisplayGold(t *testing.T) {
	host := newHost(t)
	m := NewMirror(MirrorConfig{LocalID: "a", Settings: host.World().Settings, Profile: ProfileLocal})
	m.ApplySnapshot(Capture(host.World()))
	now := time.Unix(1000, 0)

	if _, ok := m.RequestUnit("u1_3", now); !ok {
		t.Fatalf("expected first heavy request affordable")
	}
	if got := m.DisplayGold(); math.Abs(got-75) > 1e-9 {
		t.Fatalf("expected display gold 75, got %v", got)
	}
	if _, ok := m.RequestUnit("u1_3", now); ok {
		t.Fatalf("expected second heavy request rejected by display gold")
	}
	action, ok := m.RequestUnit("u1_1", now)
	if !ok || action.RequestID == "" || action.Kind != world.ActionQueueUnit {
		t.Fatalf("expected cheap request with a request id, got %+v", action)
	}
}

func TestStateLeavesEventLogIntact(t *testing.T) {
	host := newHost(t)
	w := host.World()
	w.Emit(world.EffectEvent(world.Effect{Kind: world.EffectHit, Pos: geom.Vec2{X: 3, Y: 4}, Timer: 0.2}))

	snap := State(w)
	if len(snap.Events) != 0 {
		t.Fatalf("expected no events in state snapshot, got %d", len(snap.Events))
	}
	if w.PendingEvents() != 1 {
		t.Fatalf("expected event log to survive, got %d", w.PendingEvents())
	}
	if len(snap.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(snap.Players))
	}
}
