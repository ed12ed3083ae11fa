// Package world holds the match aggregate: players, units, projectiles,
// effects, the pending event log, and the outbound ports the simulation
// reports through. A World is owned by a single goroutine.
package world

import (
	"math/rand"
	"sync"

	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/geom"
)

// Config constructs a World.
type Config struct {
	MatchID  string
	Settings Settings
	Seed     string
	Ports    Ports
}

// World is the explicit simulation aggregate.
type World struct {
	MatchID     string
	Settings    Settings
	Phase       Phase
	Tick        uint64
	Players     []*Player
	Units       []*Unit
	Projectiles []*Projectile
	Effects     []*Effect

	playerIndex map[string]*Player
	unitIndex   map[string]*Unit
	events      []Event
	ids         IDGenerator
	rng         *rand.Rand
	ports       Ports
	startCount  int
	snapshotSeq uint64

	observerMu   sync.RWMutex
	observers    map[int]Observer
	nextObserver int
}

// New returns an empty world in the waiting phase.
func New(cfg Config) *World {
	matchID := cfg.MatchID
	if matchID == "" {
		matchID = NewMatchID()
	}
	seed := cfg.Seed
	if seed == "" {
		seed = matchID
	}
	return &World{
		MatchID:     matchID,
		Settings:    cfg.Settings.Normalized(),
		Phase:       PhaseWaiting,
		playerIndex: make(map[string]*Player),
		unitIndex:   make(map[string]*Unit),
		rng:         NewDeterministicRNG(seed, "match"),
		ports:       cfg.Ports.normalized(),
		observers:   make(map[int]Observer),
	}
}

// NextSnapshotSeq numbers an outgoing snapshot. Every capture gets its own
// value so receivers can drop duplicates and late arrivals.
func (w *World) NextSnapshotSeq() uint64 {
	w.snapshotSeq++
	return w.snapshotSeq
}

// RNG exposes the match-scoped deterministic random source.
func (w *World) RNG() *rand.Rand { return w.rng }

// Audio returns the audio port, never nil.
func (w *World) Audio() AudioPort { return w.ports.Audio }

// Results returns the result sink, never nil.
func (w *World) Results() ResultSink { return w.ports.Results }

// StartCount is how many players were seated when the match began.
func (w *World) StartCount() int { return w.startCount }

// AddPlayer registers a player, replacing any existing record with the same id.
func (w *World) AddPlayer(p *Player) {
	if p == nil || p.ID == "" {
		return
	}
	if existing, ok := w.playerIndex[p.ID]; ok {
		*existing = *p
		return
	}
	w.Players = append(w.Players, p)
	w.playerIndex[p.ID] = p
}

// Player resolves a player by id.
func (w *World) Player(id string) *Player {
	if id == "" {
		return nil
	}
	return w.playerIndex[id]
}

// IsTeammate reports whether two player ids share a team. Only TEAMS
// matches have teammates; unknown ids are never teammates.
func (w *World) IsTeammate(a, b string) bool {
	if w.Settings.Mode != ModeTeams {
		return false
	}
	pa := w.Player(a)
	pb := w.Player(b)
	if pa == nil || pb == nil {
		return false
	}
	return pa.Team != 0 && pa.Team == pb.Team
}

// Opposing reports whether entities owned by a and b may fight.
func (w *World) Opposing(a, b string) bool {
	return a != b && !w.IsTeammate(a, b)
}

// NextUnitID allocates a monotonic unit id.
func (w *World) NextUnitID() string {
	return w.ids.Next("unit")
}

// SpawnUnit creates a unit from catalog stats with a fresh id.
func (w *World) SpawnUnit(owner *Player, stats catalog.UnitStats, pos geom.Vec2) *Unit {
	u := NewUnit(w.NextUnitID(), owner.ID, owner.TargetID, stats, pos)
	w.AddUnit(u)
	return u
}

// AddUnit inserts a unit. Duplicate ids are ignored.
func (w *World) AddUnit(u *Unit) {
	if u == nil || u.ID == "" {
		return
	}
	if _, exists := w.unitIndex[u.ID]; exists {
		return
	}
	w.Units = append(w.Units, u)
	w.unitIndex[u.ID] = u
}

// Unit resolves a unit by id.
func (w *World) Unit(id string) *Unit {
	return w.unitIndex[id]
}

// RemoveUnit deletes a unit by id.
func (w *World) RemoveUnit(id string) {
	if _, ok := w.unitIndex[id]; !ok {
		return
	}
	delete(w.unitIndex, id)
	kept := w.Units[:0]
	for _, u := range w.Units {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	w.Units = kept
}

// PruneDeadUnits removes every unit with hp <= 0.
func (w *World) PruneDeadUnits() int {
	kept := w.Units[:0]
	removed := 0
	for _, u := range w.Units {
		if u.Alive() {
			kept = append(kept, u)
			continue
		}
		delete(w.unitIndex, u.ID)
		removed++
	}
	for i := len(kept); i < len(w.Units); i++ {
		w.Units[i] = nil
	}
	w.Units = kept
	return removed
}

// AddProjectile appends a projectile.
func (w *World) AddProjectile(p Projectile) {
	w.Projectiles = append(w.Projectiles, &p)
}

// AddEffect appends a local effect.
func (w *World) AddEffect(e Effect) {
	w.Effects = append(w.Effects, &e)
}

// Emit appends an event to the pending sync log.
func (w *World) Emit(e Event) {
	w.events = append(w.events, e)
}

// PendingEvents reports the number of undrained events.
func (w *World) PendingEvents() int { return len(w.events) }

// DrainEvents returns and clears the pending event log.
func (w *World) DrainEvents() []Event {
	if len(w.events) == 0 {
		return nil
	}
	drained := w.events
	w.events = nil
	return drained
}

// Subscribe registers an observer and returns a function that removes it.
func (w *World) Subscribe(o Observer) func() {
	if o == nil {
		return func() {}
	}
	w.observerMu.Lock()
	id := w.nextObserver
	w.nextObserver++
	w.observers[id] = o
	w.observerMu.Unlock()
	return func() {
		w.observerMu.Lock()
		delete(w.observers, id)
		w.observerMu.Unlock()
	}
}

// Notify fans a notification out to every observer.
func (w *World) Notify(n Notification) {
	if n.Tick == 0 {
		n.Tick = w.Tick
	}
	w.observerMu.RLock()
	observers := make([]Observer, 0, len(w.observers))
	for _, o := range w.observers {
		observers = append(observers, o)
	}
	w.observerMu.RUnlock()
	for _, o := range observers {
		o.Notify(n)
	}
}

// SetPhase applies a legal phase transition and notifies observers.
func (w *World) SetPhase(next Phase) bool {
	if !w.Phase.CanTransition(next) {
		return false
	}
	w.Phase = next
	w.Notify(Notification{Kind: NotifyPhase, Phase: next})
	return true
}

// AlivePlayers returns alive players in seat order.
func (w *World) AlivePlayers() []*Player {
	alive := make([]*Player, 0, len(w.Players))
	for _, p := range w.Players {
		if p.Alive() {
			alive = append(alive, p)
		}
	}
	return alive
}
