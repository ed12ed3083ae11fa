package economy

import (
	"context"

	"age-of-war/server/logging"
)

const (
	// EventUnitQueued is emitted when a spawn request is paid for.
	EventUnitQueued logging.EventType = "economy.unit_queued"
	// EventKillAward is emitted when gold and xp are granted for a kill.
	EventKillAward logging.EventType = "economy.kill_award"
	// EventAgeUpgraded is emitted when a player advances an age.
	EventAgeUpgraded logging.EventType = "economy.age_upgraded"
	// EventActionRejected is emitted when an action is silently dropped.
	EventActionRejected logging.EventType = "economy.action_rejected"
)

// UnitQueuedPayload describes a paid spawn request.
type UnitQueuedPayload struct {
	UnitID    string  `json:"unitId"`
	Cost      float64 `json:"cost"`
	Remaining float64 `json:"remaining"`
	Queue     int     `json:"queue"`
}

// KillAwardPayload describes the bounty granted.
type KillAwardPayload struct {
	UnitType string  `json:"unitType"`
	Gold     float64 `json:"gold"`
	XP       float64 `json:"xp"`
}

// AgeUpgradedPayload describes an age advance.
type AgeUpgradedPayload struct {
	Age  int    `json:"age"`
	Name string `json:"name"`
}

// ActionRejectedPayload explains a dropped action.
type ActionRejectedPayload struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// UnitQueued publishes a paid spawn request.
func UnitQueued(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, reqID string, payload UnitQueuedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:      EventUnitQueued,
		Tick:      tick,
		Actor:     actor,
		Severity:  logging.SeverityDebug,
		Category:  logging.CategoryEconomy,
		Payload:   payload,
		RequestID: reqID,
	})
}

// KillAward publishes a bounty grant.
func KillAward(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload KillAwardPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventKillAward,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryEconomy,
		Payload:  payload,
	})
}

// AgeUpgraded publishes an age advance.
func AgeUpgraded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AgeUpgradedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAgeUpgraded,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryEconomy,
		Payload:  payload,
	})
}

// ActionRejected records a silently dropped action.
func ActionRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, reqID string, payload ActionRejectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:      EventActionRejected,
		Tick:      tick,
		Actor:     actor,
		Severity:  logging.SeverityDebug,
		Category:  logging.CategoryEconomy,
		Payload:   payload,
		RequestID: reqID,
	})
}
