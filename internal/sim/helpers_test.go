package sim

import (
	"testing"

	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/geom"
	"age-of-war/server/internal/world"
)

type recordingResults struct {
	results []world.Result
}

func (r *recordingResults) MatchFinished(res world.Result) {
	r.results = append(r.results, res)
}

type countingAudio struct {
	played map[world.Sound]int
}

func (a *countingAudio) Play(s world.Sound) {
	if a.played == nil {
		a.played = make(map[world.Sound]int)
	}
	a.played[s]++
}

func newStartedEngine(t *testing.T, mode world.Mode, ports world.Ports, seats ...world.Seat) *Engine {
	t.Helper()
	settings := world.DefaultSettings()
	settings.Mode = mode
	w := world.New(world.Config{MatchID: "test-match", Settings: settings, Seed: "seed", Ports: ports})
	engine := NewEngine(w, Deps{})
	if !engine.Start(seats) {
		t.Fatalf("expected match to start")
	}
	return engine
}

func placeUnit(t *testing.T, w *world.World, ownerID, unitID, targetID string, pos geom.Vec2) *world.Unit {
	t.Helper()
	stats, ok := catalog.LookupUnit(unitID)
	if !ok {
		t.Fatalf("unknown unit %s", unitID)
	}
	u := world.NewUnit(w.NextUnitID(), ownerID, targetID, stats, pos)
	w.AddUnit(u)
	return u
}

func tickN(e *Engine, n int, authoritative bool) {
	for i := 0; i < n; i++ {
		e.Tick(catalog.TickRate, authoritative)
	}
}
