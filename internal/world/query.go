package world

import (
	"math"

	"age-of-war/server/internal/geom"
)

// NearestOpponentPlayer finds the closest alive player that is neither
// ownerID nor a teammate of it.
func (w *World) NearestOpponentPlayer(ownerID string, from geom.Vec2) *Player {
	var best *Player
	bestDist := math.Inf(1)
	for _, p := range w.Players {
		if !p.Alive() || !w.Opposing(ownerID, p.ID) {
			continue
		}
		if d := geom.Dist(from, p.Pos); d < bestDist {
			bestDist = d
			best = p
		}
	}
	return best
}

// NearestOpponentUnit finds the closest live unit not owned by ownerID or
// its teammates within maxDist (exclusive).
func (w *World) NearestOpponentUnit(ownerID string, from geom.Vec2, maxDist float64) *Unit {
	var best *Unit
	bestDist := maxDist
	for _, u := range w.Units {
		if !u.Alive() || !w.Opposing(ownerID, u.OwnerID) {
			continue
		}
		if d := geom.Dist(from, u.Pos); d < bestDist {
			bestDist = d
			best = u
		}
	}
	return best
}

// ValidTarget reports whether targetID is an alive, opposing player for ownerID.
func (w *World) ValidTarget(ownerID, targetID string) bool {
	t := w.Player(targetID)
	return t.Alive() && w.Opposing(ownerID, targetID)
}
