// Package replication carries host state to client mirrors: the host side
// builds periodic snapshots, the client side reconciles them into a predicted
// world.
package replication

import (
	"age-of-war/server/internal/geom"
	"age-of-war/server/internal/telemetry"
	"age-of-war/server/internal/world"
)

// UnitState is the compact per-unit record carried in a snapshot.
type UnitState struct {
	ID       string  `json:"id"`
	OwnerID  string  `json:"ownerId"`
	TypeID   string  `json:"typeId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	HP       float64 `json:"hp"`
	MaxHP    float64 `json:"maxHp"`
	Icon     string  `json:"icon"`
	Scale    float64 `json:"scale"`
	TargetID string  `json:"targetId"`
}

// Snapshot is one host sync payload. Projectiles are never included; clients
// rebuild them from shoot events.
type Snapshot struct {
	MatchID string `json:"matchId"`
	// Seq increases with every snapshot the host builds, join states
	// included. Zero means unsequenced.
	Seq     uint64         `json:"seq,omitempty"`
	Tick    uint64         `json:"t"`
	Phase   world.Phase    `json:"phase"`
	Players []world.Player `json:"players"`
	Units   []UnitState    `json:"units"`
	Events  []world.Event  `json:"events,omitempty"`
}

// Capture serializes the world and drains its event log.
func Capture(w *world.World) Snapshot {
	snap := State(w)
	snap.Events = w.DrainEvents()
	return snap
}

// State serializes the world without touching the event log. Used for join
// snapshots so late subscribers do not steal events from everyone else.
func State(w *world.World) Snapshot {
	snap := Snapshot{
		MatchID: w.MatchID,
		Seq:     w.NextSnapshotSeq(),
		Tick:    w.Tick,
		Phase:   w.Phase,
		Players: make([]world.Player, 0, len(w.Players)),
		Units:   make([]UnitState, 0, len(w.Units)),
	}
	for _, p := range w.Players {
		snap.Players = append(snap.Players, p.Clone())
	}
	for _, u := range w.Units {
		pos := geom.Round(u.Pos)
		snap.Units = append(snap.Units, UnitState{
			ID:       u.ID,
			OwnerID:  u.OwnerID,
			TypeID:   u.TypeID,
			X:        pos.X,
			Y:        pos.Y,
			HP:       u.HP,
			MaxHP:    u.MaxHP,
			Icon:     u.Icon,
			Scale:    u.Scale,
			TargetID: u.TargetID,
		})
	}
	return snap
}

// Snapshotter decides when the host emits a snapshot. It is driven from the
// match goroutine only.
type Snapshotter struct {
	interval float64
	elapsed  float64
	metrics  telemetry.Metrics
}

// NewSnapshotter uses the profile interval unless override is positive.
func NewSnapshotter(profile Profile, override float64, metrics telemetry.Metrics) *Snapshotter {
	interval := profile.Tuning().Interval
	if override > 0 {
		interval = override
	}
	if metrics == nil {
		metrics = telemetry.Nop()
	}
	return &Snapshotter{interval: interval, metrics: metrics}
}

// Interval reports the active cadence in seconds.
func (s *Snapshotter) Interval() float64 { return s.interval }

// Advance accumulates dt seconds of wall time and returns a snapshot once the
// interval has elapsed. Finished matches never produce snapshots.
func (s *Snapshotter) Advance(w *world.World, dt float64) (Snapshot, bool) {
	if w.Phase.Terminal() {
		return Snapshot{}, false
	}
	if dt > 0 {
		s.elapsed += dt
	}
	if s.elapsed <= s.interval {
		return Snapshot{}, false
	}
	s.elapsed = 0
	s.metrics.Add(telemetry.MetricSnapshotsSent, 1)
	return Capture(w), true
}
