package world

import (
	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/geom"
)

// Unit is a spawned combatant marching on its owner's target.
type Unit struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	TypeID       string    `json:"typeId"`
	Pos          geom.Vec2 `json:"pos"`
	HP           float64   `json:"hp"`
	MaxHP        float64   `json:"maxHp"`
	MeleeDamage  float64   `json:"meleeDmg"`
	RangedDamage float64   `json:"rangedDmg"`
	MeleeRange   float64   `json:"meleeRange"`
	RangedRange  float64   `json:"rangedRange"`
	Cooldown     float64   `json:"cooldown"`
	TargetID     string    `json:"targetId"`
	Scale        float64   `json:"scale"`
	Icon         string    `json:"icon"`
	BaseCost     int       `json:"baseCost"`
}

// NewUnit builds a unit from catalog stats.
func NewUnit(id, ownerID, targetID string, stats catalog.UnitStats, pos geom.Vec2) *Unit {
	scale := stats.Scale
	if scale <= 0 {
		scale = 1
	}
	return &Unit{
		ID:           id,
		OwnerID:      ownerID,
		TypeID:       stats.ID,
		Pos:          pos,
		HP:           stats.HP,
		MaxHP:        stats.HP,
		MeleeDamage:  stats.MeleeDamage,
		RangedDamage: stats.RangedDamage,
		MeleeRange:   stats.MeleeRange,
		RangedRange:  stats.RangedRange,
		TargetID:     targetID,
		Scale:        scale,
		Icon:         stats.Icon,
		BaseCost:     stats.Cost,
	}
}

// Alive reports whether the unit still has hp.
func (u *Unit) Alive() bool {
	return u != nil && u.HP > 0
}

// Radius is the collision radius after scaling.
func (u *Unit) Radius() float64 {
	scale := u.Scale
	if scale <= 0 {
		scale = 1
	}
	return catalog.UnitCollisionRadius * scale
}

// MaxRange is the larger of the melee and ranged reach.
func (u *Unit) MaxRange() float64 {
	if u.RangedRange > u.MeleeRange {
		return u.RangedRange
	}
	return u.MeleeRange
}

// Damage subtracts hp and reports whether this hit crossed from alive to dead.
func (u *Unit) Damage(amount float64) bool {
	if u == nil || u.HP <= 0 {
		return false
	}
	u.HP -= amount
	return u.HP <= 0
}

// Projectile is a moving shot. Vel is a unit direction vector.
type Projectile struct {
	Pos         geom.Vec2 `json:"pos"`
	Vel         geom.Vec2 `json:"vel"`
	Damage      float64   `json:"damage"`
	OwnerID     string    `json:"ownerId"`
	Origin      geom.Vec2 `json:"origin"`
	MaxDistance float64   `json:"maxDist"`
	// TruceTarget carries the shooter's strategic target so a projectile
	// respects the same truce as its shooter. Empty for turrets.
	TruceTarget string `json:"truceTarget,omitempty"`
}

// EffectKind names a transient visual.
type EffectKind string

const (
	EffectHit       EffectKind = "hit"
	EffectExplosion EffectKind = "explosion"
	EffectSpawn     EffectKind = "spawn"
)

// Effect is a timed visual marker.
type Effect struct {
	Kind   EffectKind `json:"type"`
	Pos    geom.Vec2  `json:"pos"`
	Radius float64    `json:"radius,omitempty"`
	Timer  float64    `json:"timer"`
}
