package world

import "age-of-war/server/internal/geom"

// EventKind names a discrete sync event.
type EventKind string

const (
	EventShoot     EventKind = "shoot"
	EventHit       EventKind = "hit"
	EventExplosion EventKind = "explosion"
	EventSpawn     EventKind = "spawn"
)

// Event is a host-side occurrence replayed by clients: shoots become
// projectiles, everything else becomes an effect.
type Event struct {
	Kind        EventKind `json:"type" msgpack:"type"`
	Pos         geom.Vec2 `json:"pos" msgpack:"pos"`
	Radius      float64   `json:"radius,omitempty" msgpack:"radius,omitempty"`
	Timer       float64   `json:"timer,omitempty" msgpack:"timer,omitempty"`
	Vel         geom.Vec2 `json:"vel,omitempty" msgpack:"vel,omitempty"`
	Damage      float64   `json:"damage,omitempty" msgpack:"damage,omitempty"`
	OwnerID     string    `json:"ownerId,omitempty" msgpack:"ownerId,omitempty"`
	MaxDistance float64   `json:"maxDist,omitempty" msgpack:"maxDist,omitempty"`
	TruceTarget string    `json:"truceTarget,omitempty" msgpack:"truceTarget,omitempty"`
}

// EffectEvent wraps an effect for the event log.
func EffectEvent(e Effect) Event {
	return Event{Kind: EventKind(e.Kind), Pos: e.Pos, Radius: e.Radius, Timer: e.Timer}
}

// ShootEvent wraps a projectile for the event log.
func ShootEvent(p Projectile) Event {
	return Event{
		Kind:        EventShoot,
		Pos:         p.Pos,
		Vel:         p.Vel,
		Damage:      p.Damage,
		OwnerID:     p.OwnerID,
		MaxDistance: p.MaxDistance,
		TruceTarget: p.TruceTarget,
	}
}

// Projectile rebuilds the projectile a shoot event describes.
func (e Event) Projectile() Projectile {
	return Projectile{
		Pos:         e.Pos,
		Vel:         e.Vel,
		Damage:      e.Damage,
		OwnerID:     e.OwnerID,
		Origin:      e.Pos,
		MaxDistance: e.MaxDistance,
		TruceTarget: e.TruceTarget,
	}
}

// Effect rebuilds the effect a non-shoot event describes.
func (e Event) Effect() Effect {
	return Effect{Kind: EffectKind(e.Kind), Pos: e.Pos, Radius: e.Radius, Timer: e.Timer}
}
