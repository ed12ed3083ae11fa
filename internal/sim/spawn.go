package sim

import (
	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/geom"
	"age-of-war/server/internal/world"
)

// stepPlayers runs bots, cooldowns and spawn queues for every player.
func (e *Engine) stepPlayers(gameDt float64) {
	w := e.world
	for _, p := range w.Players {
		if !p.Alive() {
			p.SpawnQueue = nil
			p.SpawnTimer = 0
			continue
		}
		if p.Bot && e.deps.Brain != nil {
			e.deps.Brain.Think(w, p, e)
		}
		if p.SpecialCooldown > 0 {
			p.SpecialCooldown -= gameDt
			if p.SpecialCooldown < 0 {
				p.SpecialCooldown = 0
			}
		}
		e.stepQueue(p, gameDt)
	}
}

func (e *Engine) stepQueue(p *world.Player, gameDt float64) {
	if len(p.SpawnQueue) == 0 {
		return
	}
	p.SpawnTimer -= gameDt
	if p.SpawnTimer > 0 {
		return
	}
	head := p.SpawnQueue[0]
	p.SpawnQueue = p.SpawnQueue[1:]
	if len(p.SpawnQueue) == 0 {
		p.SpawnQueue = nil
		p.SpawnTimer = 0
	} else if next, ok := catalog.LookupUnit(p.SpawnQueue[0].UnitID); ok {
		p.SpawnTimer = next.Delay
	} else {
		p.SpawnTimer = 0
	}
	stats, ok := catalog.LookupUnit(head.UnitID)
	if !ok {
		return
	}
	e.spawn(p, stats)
}

func (e *Engine) spawn(p *world.Player, stats catalog.UnitStats) *world.Unit {
	w := e.world
	u := w.SpawnUnit(p, stats, SpawnPosition(w, p))
	e.emitEffect(world.Effect{Kind: world.EffectSpawn, Pos: u.Pos, Timer: 0.5})
	w.Audio().Play(world.SoundSpawn)
	w.Notify(world.Notification{Kind: world.NotifySpawn, PlayerID: p.ID, UnitID: u.ID, TypeID: u.TypeID})
	return u
}

// SpawnPosition offsets a new unit from its base toward the owner's target,
// or toward the arena centre when the target is missing or a teammate.
func SpawnPosition(w *world.World, p *world.Player) geom.Vec2 {
	aim := geom.Vec2{}
	if t := w.Player(p.TargetID); t != nil && t.ID != p.ID && !w.IsTeammate(p.ID, t.ID) {
		aim = t.Pos
	}
	return geom.Toward(p.Pos, aim, catalog.SpawnOffset)
}

// decayOrphans drains units whose owner's base has fallen.
func (e *Engine) decayOrphans(gameDt float64) {
	w := e.world
	for _, u := range w.Units {
		if owner := w.Player(u.OwnerID); owner.Alive() {
			continue
		}
		u.HP -= u.MaxHP * catalog.DecayFraction * gameDt
	}
}
