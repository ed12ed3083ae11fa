package sim

import (
	"math"

	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/geom"
	"age-of-war/server/internal/world"
	"age-of-war/server/logging"
	"age-of-war/server/logging/combat"
	"age-of-war/server/logging/economy"
)

const turretShotSoundChance = 0.3

func (e *Engine) fire(p world.Projectile) {
	e.world.AddProjectile(p)
	e.world.Emit(world.ShootEvent(p))
}

func (e *Engine) stepTurrets(gameDt float64) {
	w := e.world
	for _, p := range w.Players {
		if !p.Alive() {
			continue
		}
		for i := range p.Turrets {
			t := &p.Turrets[i]
			if t.Cooldown > 0 {
				t.Cooldown -= gameDt * catalog.CooldownTicksPerSec
			}
			if t.Cooldown > 0 {
				continue
			}
			stats, ok := catalog.Turret(t.TypeID)
			if !ok {
				continue
			}
			target := w.NearestOpponentUnit(p.ID, p.Pos, stats.Range)
			if target == nil {
				continue
			}
			e.fire(world.Projectile{
				Pos:         p.Pos,
				Vel:         geom.FromAngle(geom.Bearing(p.Pos, target.Pos), 1),
				Damage:      stats.Damage,
				OwnerID:     p.ID,
				Origin:      p.Pos,
				MaxDistance: stats.Range * catalog.ProjectileRangeMult,
			})
			if w.RNG().Float64() < turretShotSoundChance {
				w.Audio().Play(world.SoundShoot)
			}
			t.Cooldown = stats.Cooldown
		}
	}
}

// stepProjectiles advances every projectile and resolves its first hit.
// Non-authoritative ticks only consume projectiles; damage arrives from the host.
func (e *Engine) stepProjectiles(gameDt float64, authoritative bool) {
	w := e.world
	kept := w.Projectiles[:0]
	for _, pr := range w.Projectiles {
		if e.advanceProjectile(pr, gameDt, authoritative) {
			kept = append(kept, pr)
		}
	}
	for i := len(kept); i < len(w.Projectiles); i++ {
		w.Projectiles[i] = nil
	}
	w.Projectiles = kept
}

// advanceProjectile reports whether the projectile survives this tick.
func (e *Engine) advanceProjectile(pr *world.Projectile, gameDt float64, authoritative bool) bool {
	w := e.world
	pr.Pos = pr.Pos.Add(pr.Vel.Scale(gameDt * catalog.ProjectileSpeed))
	if geom.Dist(pr.Pos, pr.Origin) > pr.MaxDistance {
		return false
	}

	for _, u := range w.Units {
		if !u.Alive() || !w.Opposing(pr.OwnerID, u.OwnerID) {
			continue
		}
		if pr.TruceTarget != "" && inTruce(w, pr.TruceTarget, u.TargetID) {
			continue
		}
		if geom.Dist(pr.Pos, u.Pos) >= u.Radius()+catalog.ProjectileHitBuffer {
			continue
		}
		if authoritative {
			if u.Damage(pr.Damage) {
				e.awardKill(pr.OwnerID, u, "projectile")
			}
			e.emitEffect(world.Effect{Kind: world.EffectHit, Pos: u.Pos, Timer: catalog.HitEffectProjectile})
		}
		return false
	}

	for _, p := range w.Players {
		if !p.Alive() || !w.Opposing(pr.OwnerID, p.ID) {
			continue
		}
		if geom.Dist(pr.Pos, p.Pos) >= catalog.BaseRadius {
			continue
		}
		if authoritative {
			e.damageBase(pr.OwnerID, p, pr.Damage, "projectile")
			e.emitEffect(world.Effect{Kind: world.EffectHit, Pos: pr.Pos, Timer: catalog.HitEffectProjectile})
		}
		return false
	}

	return math.Abs(pr.Pos.X) < catalog.WorldBound && math.Abs(pr.Pos.Y) < catalog.WorldBound
}

// CastSpecial triggers the caster's age special centred on (x, y). Unknown
// players, missing specials and active cooldowns are ignored. A destroyed
// base keeps its special until the match ends.
func (e *Engine) CastSpecial(playerID string, x, y float64) bool {
	w := e.world
	p := w.Player(playerID)
	if p == nil {
		return false
	}
	special, ok := catalog.Special(p.Age)
	if !ok || p.SpecialCooldown > 0 {
		return false
	}
	p.SpecialCooldown = special.Cooldown
	center := geom.Vec2{X: x, Y: y}
	e.emitEffect(world.Effect{Kind: world.EffectExplosion, Pos: center, Radius: special.Radius, Timer: catalog.ExplosionDuration})
	w.Audio().Play(world.SoundExplosion)

	hits, kills := 0, 0
	for _, u := range w.Units {
		if !u.Alive() || !w.Opposing(p.ID, u.OwnerID) {
			continue
		}
		if geom.Dist(center, u.Pos) >= special.Radius {
			continue
		}
		hits++
		if u.Damage(special.Damage) {
			kills++
			e.awardKill(p.ID, u, "special")
		}
	}
	combat.SpecialCast(e.ctx, e.deps.Publisher, w.Tick, playerRef(p), combat.SpecialCastPayload{
		Special: special.Name,
		X:       x,
		Y:       y,
		Hits:    hits,
		Kills:   kills,
	})
	w.Notify(world.Notification{Kind: world.NotifySpecial, PlayerID: p.ID, Amount: float64(kills)})
	return true
}

// awardKill credits the killer once per unit death.
func (e *Engine) awardKill(killerID string, victim *world.Unit, source string) {
	w := e.world
	killer := w.Player(killerID)
	if killer == nil {
		return
	}
	base := float64(victim.BaseCost)
	gold := math.Ceil(base * catalog.KillGoldFactor * w.Settings.GoldMult)
	xp := math.Floor(base * catalog.KillXPFactor * w.Settings.XPMult)
	killer.Gold += gold
	killer.XP += xp

	combat.UnitKilled(e.ctx, e.deps.Publisher, w.Tick, playerRef(killer), logging.UnitRef(victim.ID), combat.UnitKilledPayload{
		UnitType: victim.TypeID,
		Source:   source,
	})
	economy.KillAward(e.ctx, e.deps.Publisher, w.Tick, playerRef(killer), economy.KillAwardPayload{
		UnitType: victim.TypeID,
		Gold:     gold,
		XP:       xp,
	})
	w.Notify(world.Notification{Kind: world.NotifyKill, PlayerID: killer.ID, TargetID: victim.OwnerID, UnitID: victim.ID, TypeID: victim.TypeID})
}
