// Package catalog holds the immutable age, unit, turret and special tables.
package catalog

// UnitStats describes a spawnable unit type.
type UnitStats struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Icon         string  `json:"icon"`
	Cost         int     `json:"cost"`
	Delay        float64 `json:"delay"`
	HP           float64 `json:"hp"`
	MeleeDamage  float64 `json:"meleeDamage"`
	RangedDamage float64 `json:"rangedDamage"`
	MeleeRange   float64 `json:"meleeRange"`
	RangedRange  float64 `json:"rangedRange"`
	Scale        float64 `json:"scale"`
}

// MaxRange is the larger of the melee and ranged reach.
func (u UnitStats) MaxRange() float64 {
	if u.RangedRange > u.MeleeRange {
		return u.RangedRange
	}
	return u.MeleeRange
}

// TurretStats describes a base turret. Cooldown is expressed in 60ths of a second.
type TurretStats struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Cost     int     `json:"cost"`
	Damage   float64 `json:"damage"`
	Range    float64 `json:"range"`
	Cooldown float64 `json:"cooldown"`
}

// SpecialStats describes an age's area ability. Cooldown is in seconds.
type SpecialStats struct {
	Name     string  `json:"name"`
	Damage   float64 `json:"damage"`
	Radius   float64 `json:"radius"`
	Cooldown float64 `json:"cooldown"`
}

// Age is one technology tier.
type Age struct {
	Name       string       `json:"name"`
	XPRequired int          `json:"xpRequired"`
	Units      []UnitStats  `json:"units"`
	Turret     TurretStats  `json:"turret"`
	Special    SpecialStats `json:"special"`
}

func unit(id, name, icon string, cost int, delay, hp, melee, ranged, meleeRange, rangedRange, scale float64) UnitStats {
	return UnitStats{
		ID:           id,
		Name:         name,
		Icon:         icon,
		Cost:         cost,
		Delay:        delay,
		HP:           hp,
		MeleeDamage:  melee,
		RangedDamage: ranged,
		MeleeRange:   meleeRange,
		RangedRange:  rangedRange,
		Scale:        scale,
	}
}

var ages = []Age{
	{
		Name:       "Stone Age",
		XPRequired: 0,
		Units: []UnitStats{
			unit("u1_1", "Club Man", "🪨", 15, 1, 55, 16, 0, 20, 0, 1),
			unit("u1_2", "Slingshot Man", "🧶", 25, 1, 42, 10, 8, 20, 100, 1),
			unit("u1_3", "Dino Rider", "🦖", 100, 3, 160, 40, 0, 45, 0, 1.5),
		},
		Turret:  TurretStats{ID: "t1", Name: "Rock Catapult", Cost: 100, Damage: 20, Range: 180, Cooldown: 120},
		Special: SpecialStats{Name: "Meteor Strike", Damage: 200, Radius: 100, Cooldown: 60},
	},
	{
		Name:       "Medieval Age",
		XPRequired: 1000,
		Units: []UnitStats{
			unit("u2_1", "Sword Man", "⚔️", 50, 2, 100, 32, 0, 20, 0, 1),
			unit("u2_2", "Archer", "🏹", 75, 1, 80, 20, 9, 20, 130, 1),
			unit("u2_3", "Knight", "🐴", 500, 3, 300, 60, 0, 60, 0, 1.5),
		},
		Turret:  TurretStats{ID: "t2", Name: "Ballista", Cost: 400, Damage: 35, Range: 220, Cooldown: 100},
		Special: SpecialStats{Name: "Arrow Rain", Damage: 400, Radius: 120, Cooldown: 70},
	},
	{
		Name:       "Renaissance",
		XPRequired: 4000,
		Units: []UnitStats{
			unit("u3_1", "Duelist", "🗡️", 200, 3, 200, 79, 0, 25, 0, 1),
			unit("u3_2", "Musketeer", "🔫", 400, 3, 160, 40, 20, 25, 130, 1),
			unit("u3_3", "Cannoneer", "💣", 1000, 5, 600, 120, 0, 25, 0, 1),
		},
		Turret:  TurretStats{ID: "t3", Name: "Cannon Turret", Cost: 1000, Damage: 90, Range: 260, Cooldown: 160},
		Special: SpecialStats{Name: "Artillery Strike", Damage: 800, Radius: 150, Cooldown: 80},
	},
	{
		Name:       "Modern Age",
		XPRequired: 16000,
		Units: []UnitStats{
			unit("u4_1", "Melee Infantry", "🎖️", 1500, 3, 300, 100, 0, 25, 0, 1),
			unit("u4_2", "Machine Gunner", "🔫", 2000, 3, 350, 60, 30, 25, 130, 1),
			unit("u4_3", "Tank", "🚜", 7000, 8, 1200, 300, 0, 100, 0, 1.5),
		},
		Turret:  TurretStats{ID: "t4", Name: "Machine Gun", Cost: 4000, Damage: 35, Range: 280, Cooldown: 15},
		Special: SpecialStats{Name: "Airstrike", Damage: 1500, Radius: 180, Cooldown: 90},
	},
	{
		Name:       "Future",
		XPRequired: 60000,
		Units: []UnitStats{
			unit("u5_1", "Alien Blade", "👽", 5000, 3, 1000, 250, 0, 40, 0, 1),
			unit("u5_2", "Alien Blaster", "⚡", 6000, 3, 800, 130, 80, 40, 130, 1),
			unit("u5_3", "War Machine", "👹", 20000, 8, 3000, 600, 0, 100, 0, 1.5),
			unit("u5_4", "Super Soldier", "🦸", 150000, 3, 4000, 400, 400, 40, 150, 1),
		},
		Turret:  TurretStats{ID: "t5", Name: "Laser Battery", Cost: 15000, Damage: 500, Range: 350, Cooldown: 80},
		Special: SpecialStats{Name: "Ion Cannon", Damage: 6000, Radius: 250, Cooldown: 120},
	},
}

var (
	unitIndex   = make(map[string]UnitStats)
	turretIndex = make(map[string]TurretStats)
)

func init() {
	for _, age := range ages {
		for _, u := range age.Units {
			unitIndex[u.ID] = u
		}
		turretIndex[age.Turret.ID] = age.Turret
	}
}

func cloneAge(a Age) Age {
	a.Units = append([]UnitStats(nil), a.Units...)
	return a
}

// Ages returns a copy of every age in tier order.
func Ages() []Age {
	out := make([]Age, len(ages))
	for i, a := range ages {
		out[i] = cloneAge(a)
	}
	return out
}

// AgeCount reports the number of tiers.
func AgeCount() int {
	return len(ages)
}

// AgeAt returns the age at index.
func AgeAt(index int) (Age, bool) {
	if index < 0 || index >= len(ages) {
		return Age{}, false
	}
	return cloneAge(ages[index]), true
}

// Unit resolves a unit id within a single age only.
func Unit(ageIndex int, unitID string) (UnitStats, bool) {
	if ageIndex < 0 || ageIndex >= len(ages) {
		return UnitStats{}, false
	}
	for _, u := range ages[ageIndex].Units {
		if u.ID == unitID {
			return u, true
		}
	}
	return UnitStats{}, false
}

// LookupUnit resolves a unit id across every age.
func LookupUnit(unitID string) (UnitStats, bool) {
	u, ok := unitIndex[unitID]
	return u, ok
}

// Turret resolves a turret id regardless of age ordering.
func Turret(turretID string) (TurretStats, bool) {
	t, ok := turretIndex[turretID]
	return t, ok
}

// Special returns the special ability of an age.
func Special(ageIndex int) (SpecialStats, bool) {
	if ageIndex < 0 || ageIndex >= len(ages) {
		return SpecialStats{}, false
	}
	return ages[ageIndex].Special, true
}

// NextAge returns the tier after index, if any.
func NextAge(index int) (Age, bool) {
	return AgeAt(index + 1)
}
