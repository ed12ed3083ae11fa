package sim

import (
	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/telemetry"
	"age-of-war/server/internal/world"
	"age-of-war/server/logging/economy"
)

// Reasons an action was dropped. They are never surfaced to the submitter.
const (
	RejectNotPlaying    = "not_playing"
	RejectMalformed     = "malformed"
	RejectUnknownPlayer = "unknown_player"
	RejectDeadPlayer    = "dead_player"
	RejectUnknownUnit   = "unknown_unit"
	RejectInsufficient  = "insufficient_funds"
	RejectTeammate      = "teammate_target"
	RejectSelfTarget    = "self_target"
	RejectMaxAge        = "max_age"
	RejectXP            = "insufficient_xp"
	RejectCooldown      = "special_unavailable"
)

// Apply validates and executes a player intent. Invalid actions change nothing.
func (e *Engine) Apply(a world.Action) (bool, string) {
	ok, reason := e.apply(a)
	if ok {
		e.deps.Metrics.Add(telemetry.MetricActionsApplied, 1)
		return true, ""
	}
	e.deps.Metrics.Add(telemetry.MetricActionsRejected, 1)
	economy.ActionRejected(e.ctx, e.deps.Publisher, e.world.Tick, playerRef(e.world.Player(a.PlayerID)), a.RequestID, economy.ActionRejectedPayload{
		Action: string(a.Kind),
		Reason: reason,
	})
	return false, reason
}

func (e *Engine) apply(a world.Action) (bool, string) {
	w := e.world
	if w.Phase != world.PhasePlaying {
		return false, RejectNotPlaying
	}
	if !a.Valid() {
		return false, RejectMalformed
	}
	p := w.Player(a.PlayerID)
	if p == nil {
		return false, RejectUnknownPlayer
	}

	switch a.Kind {
	case world.ActionQueueUnit:
		return e.queueUnit(p, a)
	case world.ActionSetTarget:
		if a.TargetID == p.ID {
			return false, RejectSelfTarget
		}
		if w.IsTeammate(p.ID, a.TargetID) {
			return false, RejectTeammate
		}
		p.TargetID = a.TargetID
		return true, ""
	case world.ActionUpgrade:
		return e.upgrade(p)
	case world.ActionSpecial:
		if !e.CastSpecial(p.ID, a.X, a.Y) {
			return false, RejectCooldown
		}
		return true, ""
	}
	return false, RejectMalformed
}

func (e *Engine) queueUnit(p *world.Player, a world.Action) (bool, string) {
	if !p.Alive() {
		return false, RejectDeadPlayer
	}
	stats, ok := catalog.Unit(p.Age, a.UnitID)
	if !ok {
		return false, RejectUnknownUnit
	}
	cost := float64(stats.Cost) * e.world.Settings.UnitCost
	if p.Gold < cost {
		return false, RejectInsufficient
	}
	p.Gold -= cost
	if len(p.SpawnQueue) == 0 {
		p.SpawnTimer = stats.Delay
	}
	p.SpawnQueue = append(p.SpawnQueue, world.QueueItem{UnitID: stats.ID, RequestID: a.RequestID})
	economy.UnitQueued(e.ctx, e.deps.Publisher, e.world.Tick, playerRef(p), a.RequestID, economy.UnitQueuedPayload{
		UnitID:    stats.ID,
		Cost:      cost,
		Remaining: p.Gold,
		Queue:     len(p.SpawnQueue),
	})
	return true, ""
}

func (e *Engine) upgrade(p *world.Player) (bool, string) {
	next, ok := catalog.NextAge(p.Age)
	if !ok {
		return false, RejectMaxAge
	}
	if p.XP < float64(next.XPRequired)*e.world.Settings.XPReq {
		return false, RejectXP
	}
	p.Age++
	p.MaxHP = float64(e.world.Settings.BaseHP)
	p.ResetTurret()
	e.world.Audio().Play(world.SoundLevelUp)
	economy.AgeUpgraded(e.ctx, e.deps.Publisher, e.world.Tick, playerRef(p), economy.AgeUpgradedPayload{Age: p.Age, Name: next.Name})
	e.world.Notify(world.Notification{Kind: world.NotifyUpgrade, PlayerID: p.ID, Amount: float64(p.Age)})
	return true, ""
}
