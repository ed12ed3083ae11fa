// Package ai drives bot-controlled players. A Brain runs inside the host tick
// and submits through the same validation entry point as human players.
package ai

import (
	"math"
	"math/rand"

	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/geom"
	"age-of-war/server/internal/sim"
	"age-of-war/server/internal/world"
)

// Tuning constants for the bot heuristics.
const (
	ThreatRadius           = catalog.ThreatRadius
	QueueLimit             = catalog.BotQueueLimit
	DefensiveSpecialCount  = 3
	OffensiveClusterCount  = 3
	OffensiveClusterFactor = 1.5
	FinisherHPFraction     = 0.3
	FinisherChance         = 0.05
	HeavyChance            = 0.3
	MiddleChance           = 0.6
	distanceWeight         = 0.5
)

// Brain implements sim.Brain with the five-stage heuristic. Randomness is
// drawn from the world's match RNG so seeded matches replay identically.
type Brain struct{}

// NewBrain returns a stateless brain shared by every bot in a match.
func NewBrain() *Brain {
	return &Brain{}
}

var _ sim.Brain = (*Brain)(nil)

type threatScan struct {
	units   []*world.Unit
	primary string
}

// Think runs one decision pass for bot p.
func (b *Brain) Think(w *world.World, p *world.Player, cmd sim.Commander) {
	if !p.Alive() {
		return
	}
	rng := w.RNG()
	threats := scanThreats(w, p)

	b.chooseTarget(w, p, threats, cmd)
	b.ageUp(w, p, cmd)
	b.useSpecial(w, p, threats, rng, cmd)
	b.spawn(w, p, threats, rng, cmd)
}

func scanThreats(w *world.World, p *world.Player) threatScan {
	var scan threatScan
	counts := make(map[string]int)
	var order []string
	for _, u := range w.Units {
		if !u.Alive() || !w.Opposing(p.ID, u.OwnerID) {
			continue
		}
		if geom.Dist(u.Pos, p.Pos) >= ThreatRadius {
			continue
		}
		scan.units = append(scan.units, u)
		if counts[u.OwnerID] == 0 {
			order = append(order, u.OwnerID)
		}
		counts[u.OwnerID]++
	}
	best := 0
	for _, owner := range order {
		if counts[owner] > best {
			best = counts[owner]
			scan.primary = owner
		}
	}
	return scan
}

func (b *Brain) chooseTarget(w *world.World, p *world.Player, threats threatScan, cmd sim.Commander) {
	if threats.primary != "" {
		if threats.primary != p.TargetID {
			cmd.Apply(world.Action{Kind: world.ActionSetTarget, PlayerID: p.ID, TargetID: threats.primary})
		}
		return
	}
	if w.Player(p.TargetID).Alive() {
		return
	}
	var pick *world.Player
	bestScore := math.Inf(1)
	for _, other := range w.Players {
		if !other.Alive() || !w.Opposing(p.ID, other.ID) {
			continue
		}
		score := other.HP + distanceWeight*geom.Dist(p.Pos, other.Pos)
		if score < bestScore {
			bestScore = score
			pick = other
		}
	}
	if pick != nil {
		cmd.Apply(world.Action{Kind: world.ActionSetTarget, PlayerID: p.ID, TargetID: pick.ID})
	}
}

func (b *Brain) ageUp(w *world.World, p *world.Player, cmd sim.Commander) {
	next, ok := catalog.NextAge(p.Age)
	if !ok || p.XP < float64(next.XPRequired)*w.Settings.XPReq {
		return
	}
	cmd.Apply(world.Action{Kind: world.ActionUpgrade, PlayerID: p.ID})
}

func (b *Brain) useSpecial(w *world.World, p *world.Player, threats threatScan, rng *rand.Rand, cmd sim.Commander) {
	special, ok := catalog.Special(p.Age)
	if !ok || p.SpecialCooldown > 0 {
		return
	}
	if len(threats.units) >= DefensiveSpecialCount {
		points := make([]geom.Vec2, 0, len(threats.units))
		for _, u := range threats.units {
			points = append(points, u.Pos)
		}
		c := geom.Centroid(points)
		cmd.Apply(world.Action{Kind: world.ActionSpecial, PlayerID: p.ID, X: c.X, Y: c.Y})
		return
	}
	target := w.Player(p.TargetID)
	if target == nil {
		return
	}
	near := 0
	for _, u := range w.Units {
		if u.OwnerID == target.ID && geom.Dist(u.Pos, target.Pos) < special.Radius*OffensiveClusterFactor {
			near++
		}
	}
	if near >= OffensiveClusterCount || (target.HP < target.MaxHP*FinisherHPFraction && rng.Float64() < FinisherChance) {
		cmd.Apply(world.Action{Kind: world.ActionSpecial, PlayerID: p.ID, X: target.Pos.X, Y: target.Pos.Y})
	}
}

func (b *Brain) spawn(w *world.World, p *world.Player, threats threatScan, rng *rand.Rand, cmd sim.Commander) {
	if len(p.SpawnQueue) >= QueueLimit {
		return
	}
	age, ok := catalog.AgeAt(p.Age)
	if !ok || len(age.Units) == 0 {
		return
	}
	units := age.Units
	affordable := func(u catalog.UnitStats) bool {
		return p.Gold >= float64(u.Cost)*w.Settings.UnitCost
	}

	var pick *catalog.UnitStats
	if len(threats.units) > 0 {
		if len(units) > 1 && affordable(units[1]) {
			pick = &units[1]
		} else if affordable(units[0]) {
			pick = &units[0]
		}
	} else {
		var candidate catalog.UnitStats
		switch r := rng.Float64(); {
		case r < HeavyChance:
			candidate = units[len(units)-1]
		case r < MiddleChance:
			candidate = units[len(units)/2]
		default:
			candidate = units[0]
		}
		if affordable(candidate) {
			pick = &candidate
		}
	}
	if pick == nil {
		return
	}
	cmd.Apply(world.Action{
		Kind:      world.ActionQueueUnit,
		PlayerID:  p.ID,
		UnitID:    pick.ID,
		RequestID: "bot-" + world.NewRequestID(),
	})
}
