package world

import (
	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/geom"
)

// QueueItem is a paid spawn request waiting on its build delay.
type QueueItem struct {
	UnitID    string `json:"unitId"`
	RequestID string `json:"reqId,omitempty"`
}

// Turret occupies a base slot. Cooldown counts down in 60ths of a second.
type Turret struct {
	ID       string  `json:"id"`
	TypeID   string  `json:"typeId"`
	Cooldown float64 `json:"cooldown"`
	Slot     int     `json:"slot"`
}

// Player is a participant and their base.
type Player struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Bot             bool        `json:"isBot"`
	Team            int         `json:"team"`
	Color           string      `json:"color"`
	Age             int         `json:"age"`
	Gold            float64     `json:"gold"`
	XP              float64     `json:"xp"`
	HP              float64     `json:"hp"`
	MaxHP           float64     `json:"maxHp"`
	Pos             geom.Vec2   `json:"pos"`
	TargetID        string      `json:"targetId"`
	Turrets         []Turret    `json:"turrets"`
	SpawnQueue      []QueueItem `json:"spawnQueue"`
	SpawnTimer      float64     `json:"spawnTimer"`
	SpecialCooldown float64     `json:"specialCooldown"`
	// VisualTimer is only advanced by client mirrors.
	VisualTimer float64 `json:"-"`
}

// Alive reports whether the base still stands.
func (p *Player) Alive() bool {
	return p != nil && p.HP > 0
}

// Damage removes hp and clamps at zero. It reports whether this hit destroyed the base.
func (p *Player) Damage(amount float64) bool {
	if p == nil || p.HP <= 0 {
		return false
	}
	p.HP -= amount
	if p.HP <= 0 {
		p.HP = 0
		return true
	}
	return false
}

// ResetTurret installs the turret belonging to the player's current age.
func (p *Player) ResetTurret() {
	age, ok := catalog.AgeAt(p.Age)
	if !ok {
		p.Turrets = nil
		return
	}
	p.Turrets = []Turret{{ID: "base_turret", TypeID: age.Turret.ID}}
}

// Clone returns a deep copy safe to hand to other goroutines.
func (p *Player) Clone() Player {
	c := *p
	c.Turrets = append([]Turret(nil), p.Turrets...)
	c.SpawnQueue = append([]QueueItem(nil), p.SpawnQueue...)
	return c
}
