package ai

import (
	"fmt"
	"testing"

	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/geom"
	"age-of-war/server/internal/sim"
	"age-of-war/server/internal/world"
)

type recordingCommander struct {
	actions []world.Action
}

func (r *recordingCommander) Apply(a world.Action) (bool, string) {
	r.actions = append(r.actions, a)
	return true, ""
}

func (r *recordingCommander) kinds(kind world.ActionKind) []world.Action {
	var out []world.Action
	for _, a := range r.actions {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

func newWorld(t *testing.T, seats ...world.Seat) *world.World {
	t.Helper()
	return newSeededWorld(t, "bots", seats...)
}

func newSeededWorld(t *testing.T, seed string, seats ...world.Seat) *world.World {
	t.Helper()
	w := world.New(world.Config{MatchID: "bot-test", Settings: world.DefaultSettings(), Seed: seed})
	w.SeatPlayers(seats)
	if !w.SetPhase(world.PhasePlaying) {
		t.Fatalf("expected playing phase")
	}
	return w
}

func addUnit(t *testing.T, w *world.World, owner, unitID, target string, pos geom.Vec2) *world.Unit {
	t.Helper()
	stats, ok := catalog.LookupUnit(unitID)
	if !ok {
		t.Fatalf("unknown unit %s", unitID)
	}
	u := world.NewUnit(w.NextUnitID(), owner, target, stats, pos)
	w.AddUnit(u)
	return u
}

func TestBotRetargetsToThreatOwner(t *testing.T) {
	w := newWorld(t, world.Seat{ID: "a", Bot: true}, world.Seat{ID: "b"}, world.Seat{ID: "c"})
	bot := w.Player("a")
	bot.TargetID = "c"
	toward := geom.Toward(bot.Pos, geom.Vec2{}, 200)
	addUnit(t, w, "b", "u1_1", "a", toward)
	addUnit(t, w, "b", "u1_1", "a", toward.Add(geom.Vec2{X: 10}))
	addUnit(t, w, "c", "u1_1", "a", toward.Add(geom.Vec2{Y: 10}))

	cmd := &recordingCommander{}
	NewBrain().Think(w, bot, cmd)
	targets := cmd.kinds(world.ActionSetTarget)
	if len(targets) != 1 || targets[0].TargetID != "b" {
		t.Fatalf("expected retarget to b, got %+v", targets)
	}
	specials := cmd.kinds(world.ActionSpecial)
	if len(specials) != 1 {
		t.Fatalf("expected defensive special with three threats, got %d", len(specials))
	}
	queued := cmd.kinds(world.ActionQueueUnit)
	if len(queued) != 1 || queued[0].UnitID != "u1_2" {
		t.Fatalf("expected ranged defender queued, got %+v", queued)
	}
}

func TestBotDefensiveSpecialAimsAtCentroid(t *testing.T) {
	w := newWorld(t, world.Seat{ID: "a", Bot: true}, world.Seat{ID: "b"})
	bot := w.Player("a")
	base := geom.Toward(bot.Pos, geom.Vec2{}, 150)
	points := []geom.Vec2{base, base.Add(geom.Vec2{X: 30}), base.Add(geom.Vec2{Y: 30})}
	for _, pos := range points {
		addUnit(t, w, "b", "u1_1", "a", pos)
	}
	cmd := &recordingCommander{}
	NewBrain().Think(w, bot, cmd)
	specials := cmd.kinds(world.ActionSpecial)
	if len(specials) != 1 {
		t.Fatalf("expected one special, got %d", len(specials))
	}
	want := geom.Centroid(points)
	if specials[0].X != want.X || specials[0].Y != want.Y {
		t.Fatalf("expected special at %+v, got (%v,%v)", want, specials[0].X, specials[0].Y)
	}
}

func TestBotSkipsSpecialOnCooldown(t *testing.T) {
	w := newWorld(t, world.Seat{ID: "a", Bot: true}, world.Seat{ID: "b"})
	bot := w.Player("a")
	bot.SpecialCooldown = 5
	base := geom.Toward(bot.Pos, geom.Vec2{}, 150)
	for i := 0; i < 3; i++ {
		addUnit(t, w, "b", "u1_1", "a", base.Add(geom.Vec2{X: float64(i * 10)}))
	}
	cmd := &recordingCommander{}
	NewBrain().Think(w, bot, cmd)
	if len(cmd.kinds(world.ActionSpecial)) != 0 {
		t.Fatalf("expected no special while on cooldown")
	}
}

func TestBotOffensiveSpecialOnClusteredBase(t *testing.T) {
	w := newWorld(t, world.Seat{ID: "a", Bot: true}, world.Seat{ID: "b"})
	bot := w.Player("a")
	enemy := w.Player("b")
	for i := 0; i < 3; i++ {
		addUnit(t, w, "b", "u1_1", "a", enemy.Pos.Add(geom.Vec2{X: float64(i * 20), Y: 50}))
	}
	cmd := &recordingCommander{}
	NewBrain().Think(w, bot, cmd)
	specials := cmd.kinds(world.ActionSpecial)
	if len(specials) != 1 || specials[0].X != enemy.Pos.X || specials[0].Y != enemy.Pos.Y {
		t.Fatalf("expected special on enemy base, got %+v", specials)
	}
}

func TestBotRespectsQueueLimit(t *testing.T) {
	w := newWorld(t, world.Seat{ID: "a", Bot: true}, world.Seat{ID: "b"})
	bot := w.Player("a")
	for i := 0; i < QueueLimit; i++ {
		bot.SpawnQueue = append(bot.SpawnQueue, world.QueueItem{UnitID: "u1_1"})
	}
	cmd := &recordingCommander{}
	NewBrain().Think(w, bot, cmd)
	if len(cmd.kinds(world.ActionQueueUnit)) != 0 {
		t.Fatalf("expected no queue action at the limit")
	}
}

func TestBotAgesUpWhenXPAllows(t *testing.T) {
	w := newWorld(t, world.Seat{ID: "a", Bot: true}, world.Seat{ID: "b"})
	bot := w.Player("a")
	next, _ := catalog.NextAge(0)
	bot.XP = float64(next.XPRequired)
	cmd := &recordingCommander{}
	NewBrain().Think(w, bot, cmd)
	if len(cmd.kinds(world.ActionUpgrade)) != 1 {
		t.Fatalf("expected upgrade request")
	}

	bot.XP = float64(next.XPRequired) - 1
	cmd = &recordingCommander{}
	NewBrain().Think(w, bot, cmd)
	if len(cmd.kinds(world.ActionUpgrade)) != 0 {
		t.Fatalf("expected no upgrade below the requirement")
	}
}

func TestBotPicksWeakestNearbyTargetWhenTargetDies(t *testing.T) {
	w := newWorld(t, world.Seat{ID: "a", Bot: true}, world.Seat{ID: "b"}, world.Seat{ID: "c"}, world.Seat{ID: "d"})
	bot := w.Player("a")
	w.Player(bot.TargetID).HP = 0
	for _, id := range []string{"b", "c", "d"} {
		if p := w.Player(id); p.Alive() {
			p.HP = 500
		}
	}
	w.Player("c").HP = 10

	cmd := &recordingCommander{}
	NewBrain().Think(w, bot, cmd)
	targets := cmd.kinds(world.ActionSetTarget)
	if len(targets) != 1 || targets[0].TargetID != "c" {
		t.Fatalf("expected weakest base c chosen, got %+v", targets)
	}
}

func TestBotPlaysThroughEngine(t *testing.T) {
	w := world.New(world.Config{MatchID: "bot-match", Settings: world.DefaultSettings(), Seed: "bots"})
	engine := sim.NewEngine(w, sim.Deps{Brain: NewBrain()})
	if !engine.Start([]world.Seat{{ID: "bot-1", Bot: true}, {ID: "bot-2", Bot: true}}) {
		t.Fatalf("expected start")
	}
	for i := 0; i < 300; i++ {
		engine.Tick(catalog.TickRate, true)
	}
	if len(w.Units) == 0 {
		t.Fatalf("expected bots to field units")
	}
	for _, p := range w.Players {
		if p.Gold < 0 {
			t.Fatalf("bot %s overspent: %v", p.ID, p.Gold)
		}
		if len(p.SpawnQueue) > QueueLimit {
			t.Fatalf("bot %s exceeded queue limit", p.ID)
		}
	}
}

// nextRoll returns the first match RNG draw a fresh world seeded with seed
// would produce after seating a bot duel.
func nextRoll(t *testing.T, seed string) float64 {
	t.Helper()
	twin := newSeededWorld(t, seed, world.Seat{ID: "a", Bot: true}, world.Seat{ID: "b"})
	return twin.RNG().Float64()
}

func TestBotSpawnRollPicksByWeight(t *testing.T) {
	seen := make(map[string]int)
	for i := 0; i < 200; i++ {
		seed := fmt.Sprintf("spawn-%d", i)
		roll := nextRoll(t, seed)
		want := "u1_1"
		switch {
		case roll < HeavyChance:
			want = "u1_3"
		case roll < MiddleChance:
			want = "u1_2"
		}

		w := newSeededWorld(t, seed, world.Seat{ID: "a", Bot: true}, world.Seat{ID: "b"})
		bot := w.Player("a")
		bot.Gold = 1000
		cmd := &recordingCommander{}
		NewBrain().Think(w, bot, cmd)
		queued := cmd.kinds(world.ActionQueueUnit)
		if len(queued) != 1 || queued[0].UnitID != want {
			t.Fatalf("seed %s roll %v: expected %s, got %+v", seed, roll, want, queued)
		}
		seen[want]++
	}
	for _, id := range []string{"u1_1", "u1_2", "u1_3"} {
		if seen[id] == 0 {
			t.Fatalf("expected every tier rolled at least once, got %v", seen)
		}
	}
}

func TestBotSkipsUnaffordableRoll(t *testing.T) {
	checked := 0
	for i := 0; i < 200 && checked < 5; i++ {
		seed := fmt.Sprintf("broke-%d", i)
		if nextRoll(t, seed) >= HeavyChance {
			continue
		}
		w := newSeededWorld(t, seed, world.Seat{ID: "a", Bot: true}, world.Seat{ID: "b"})
		bot := w.Player("a")
		bot.Gold = 50
		cmd := &recordingCommander{}
		NewBrain().Think(w, bot, cmd)
		if queued := cmd.kinds(world.ActionQueueUnit); len(queued) != 0 {
			t.Fatalf("seed %s: expected no cheaper fallback after an unaffordable heavy roll, got %+v", seed, queued)
		}
		if bot.Gold != 50 {
			t.Fatalf("seed %s: expected gold untouched, got %v", seed, bot.Gold)
		}
		checked++
	}
	if checked == 0 {
		t.Fatalf("expected at least one heavy roll")
	}
}

func TestBotFinisherSpecialIsRare(t *testing.T) {
	cast, held := 0, 0
	for i := 0; i < 400; i++ {
		seed := fmt.Sprintf("finisher-%d", i)
		roll := nextRoll(t, seed)

		w := newSeededWorld(t, seed, world.Seat{ID: "a", Bot: true}, world.Seat{ID: "b"})
		bot := w.Player("a")
		enemy := w.Player("b")
		bot.TargetID = enemy.ID
		enemy.HP = enemy.MaxHP * (FinisherHPFraction - 0.1)
		cmd := &recordingCommander{}
		NewBrain().Think(w, bot, cmd)

		specials := cmd.kinds(world.ActionSpecial)
		if roll < FinisherChance {
			if len(specials) != 1 || specials[0].X != enemy.Pos.X || specials[0].Y != enemy.Pos.Y {
				t.Fatalf("seed %s roll %v: expected finisher on enemy base, got %+v", seed, roll, specials)
			}
			cast++
			continue
		}
		if len(specials) != 0 {
			t.Fatalf("seed %s roll %v: expected no special, got %+v", seed, roll, specials)
		}
		held++
	}
	if cast == 0 || held == 0 {
		t.Fatalf("expected both outcomes across seeds, cast %d held %d", cast, held)
	}
}

func TestBotNeverFinishesHealthyBase(t *testing.T) {
	for i := 0; i < 100; i++ {
		w := newSeededWorld(t, fmt.Sprintf("healthy-%d", i), world.Seat{ID: "a", Bot: true}, world.Seat{ID: "b"})
		bot := w.Player("a")
		bot.TargetID = "b"
		cmd := &recordingCommander{}
		NewBrain().Think(w, bot, cmd)
		if len(cmd.kinds(world.ActionSpecial)) != 0 {
			t.Fatalf("expected no special against a healthy uncluttered base")
		}
	}
}
