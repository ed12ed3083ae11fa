package combat

import (
	"context"

	"age-of-war/server/logging"
)

const (
	// EventUnitKilled is emitted when a unit's hp crosses zero.
	EventUnitKilled logging.EventType = "combat.unit_killed"
	// EventBaseDamaged is emitted when a base takes damage.
	EventBaseDamaged logging.EventType = "combat.base_damaged"
	// EventBaseDestroyed is emitted once when a base falls.
	EventBaseDestroyed logging.EventType = "combat.base_destroyed"
	// EventSpecialCast is emitted when a player triggers their age special.
	EventSpecialCast logging.EventType = "combat.special_cast"
)

// UnitKilledPayload describes a kill.
type UnitKilledPayload struct {
	UnitType string `json:"unitType"`
	Source   string `json:"source"`
}

// BaseDamagedPayload describes damage dealt to a base.
type BaseDamagedPayload struct {
	Amount    float64 `json:"amount"`
	Remaining float64 `json:"remaining"`
	Source    string  `json:"source"`
}

// SpecialCastPayload describes a special ability use.
type SpecialCastPayload struct {
	Special string  `json:"special"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Hits    int     `json:"hits"`
	Kills   int     `json:"kills"`
}

// UnitKilled publishes a kill event crediting actor.
func UnitKilled(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload UnitKilledPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventUnitKilled,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// BaseDamaged publishes base damage.
func BaseDamaged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, base logging.EntityRef, payload BaseDamagedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBaseDamaged,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{base},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// BaseDestroyed publishes the fall of a base.
func BaseDestroyed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, base logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBaseDestroyed,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{base},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
	})
}

// SpecialCast publishes a special ability use.
func SpecialCast(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SpecialCastPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSpecialCast,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}
