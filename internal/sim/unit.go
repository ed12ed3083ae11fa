package sim

import (
	"math"

	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/geom"
	"age-of-war/server/internal/world"
	"age-of-war/server/logging"
	"age-of-war/server/logging/combat"
)

func (e *Engine) updateUnit(u *world.Unit, gameDt float64, authoritative bool) {
	w := e.world
	if u.Cooldown > 0 {
		u.Cooldown -= gameDt * catalog.CooldownTicksPerSec
	}

	target := w.Player(u.TargetID)
	if !target.Alive() || w.IsTeammate(u.OwnerID, target.ID) {
		if next := w.NearestOpponentPlayer(u.OwnerID, u.Pos); next != nil {
			u.TargetID = next.ID
		}
		return
	}

	engagement := e.findEngagement(u, target)
	if engagement == nil {
		stop := catalog.BaseRadius + u.Radius() + u.MaxRange()*catalog.FallbackStopFactor
		if geom.Dist(u.Pos, target.Pos) > stop {
			e.moveUnit(u, target.Pos, gameDt)
		}
		return
	}

	var (
		aim          geom.Vec2
		targetRadius float64
	)
	switch eng := engagement.(type) {
	case world.UnitEngagement:
		enemy := w.Unit(eng.UnitID)
		aim = enemy.Pos
		targetRadius = enemy.Radius()
	case world.BaseEngagement:
		aim = w.Player(eng.PlayerID).Pos
		targetRadius = eng.Radius
	}

	d := geom.Dist(u.Pos, aim)
	reach := u.Radius() + targetRadius

	if authoritative && u.Cooldown <= 0 {
		e.attack(u, engagement, aim, d, reach)
	}

	stop := reach
	if u.RangedDamage > 0 {
		stop = u.RangedRange + reach - catalog.RangedStopBuffer
	}
	if d > stop {
		e.moveUnit(u, aim, gameDt)
	}
}

// findEngagement picks the nearest opposing unit inside acquisition range
// honoring the truce, falling back to the target base when in reach.
func (e *Engine) findEngagement(u *world.Unit, target *world.Player) world.Engagement {
	w := e.world
	maxRange := u.MaxRange()
	radius := u.Radius()

	var best *world.Unit
	bestDist := math.Inf(1)
	for _, other := range w.Units {
		if other == u || !other.Alive() || !w.Opposing(u.OwnerID, other.OwnerID) {
			continue
		}
		if inTruce(w, u.TargetID, other.TargetID) {
			continue
		}
		d := geom.Dist(u.Pos, other.Pos)
		limit := math.Max(maxRange+radius+other.Radius(), catalog.AcquisitionRadius)
		if d <= limit && d < bestDist {
			best = other
			bestDist = d
		}
	}
	if best != nil {
		return world.UnitEngagement{UnitID: best.ID}
	}

	if geom.Dist(u.Pos, target.Pos) <= maxRange+radius+catalog.BaseRadius {
		return world.BaseEngagement{PlayerID: target.ID, Radius: catalog.BaseRadius}
	}
	return nil
}

// inTruce reports whether two attackers share a living strategic target and
// should ignore each other.
func inTruce(w *world.World, ourTarget, theirTarget string) bool {
	if ourTarget == "" || ourTarget != theirTarget {
		return false
	}
	return w.Player(ourTarget).Alive()
}

func (e *Engine) attack(u *world.Unit, engagement world.Engagement, aim geom.Vec2, d, reach float64) {
	w := e.world
	if u.MeleeDamage > 0 && d <= u.MeleeRange+reach {
		switch eng := engagement.(type) {
		case world.UnitEngagement:
			enemy := w.Unit(eng.UnitID)
			if enemy.Damage(u.MeleeDamage) {
				e.awardKill(u.OwnerID, enemy, "melee")
			}
		case world.BaseEngagement:
			e.damageBase(u.OwnerID, w.Player(eng.PlayerID), u.MeleeDamage, "melee")
			w.Audio().Play(world.SoundHit)
		}
		e.emitEffect(world.Effect{Kind: world.EffectHit, Pos: aim, Timer: catalog.HitEffectMelee})
		u.Cooldown = catalog.AttackCooldownTicks
		return
	}
	if u.RangedDamage > 0 && d <= u.RangedRange+reach {
		e.fire(world.Projectile{
			Pos:         u.Pos,
			Vel:         geom.FromAngle(geom.Bearing(u.Pos, aim), 1),
			Damage:      u.RangedDamage,
			OwnerID:     u.OwnerID,
			Origin:      u.Pos,
			MaxDistance: u.RangedRange * catalog.ProjectileRangeMult,
			TruceTarget: u.TargetID,
		})
		w.Audio().Play(world.SoundShoot)
		u.Cooldown = catalog.AttackCooldownTicks
	}
}

// moveUnit steps toward dest unless another unit ahead would overlap the
// next position.
func (e *Engine) moveUnit(u *world.Unit, dest geom.Vec2, gameDt float64) {
	step := catalog.UnitSpeed * e.world.Settings.GameSpeed * gameDt
	dir := geom.FromAngle(geom.Bearing(u.Pos, dest), 1)
	next := u.Pos.Add(dir.Scale(step))
	radius := u.Radius()
	for _, other := range e.world.Units {
		if other == u || !other.Alive() {
			continue
		}
		if geom.Dist(next, other.Pos) < radius+other.Radius() && other.Pos.Sub(u.Pos).Dot(dir) > 0 {
			return
		}
	}
	u.Pos = next
}

func (e *Engine) damageBase(attackerID string, base *world.Player, amount float64, source string) {
	if !base.Alive() {
		return
	}
	destroyed := base.Damage(amount)
	w := e.world
	combat.BaseDamaged(e.ctx, e.deps.Publisher, w.Tick, logging.PlayerRef(attackerID), logging.BaseRef(base.ID), combat.BaseDamagedPayload{
		Amount:    amount,
		Remaining: base.HP,
		Source:    source,
	})
	w.Notify(world.Notification{Kind: world.NotifyBaseHit, PlayerID: attackerID, TargetID: base.ID, Amount: amount})
	if destroyed {
		combat.BaseDestroyed(e.ctx, e.deps.Publisher, w.Tick, logging.PlayerRef(attackerID), logging.BaseRef(base.ID))
	}
}
