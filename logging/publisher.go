package logging

import (
	"context"
	"time"
)

type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

// String renders the severity for sinks.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity maps a config string to a severity, defaulting to info.
func ParseSeverity(value string) Severity {
	switch value {
	case "debug":
		return SeverityDebug
	case "warn", "warning":
		return SeverityWarn
	case "error":
		return SeverityError
	default:
		return SeverityInfo
	}
}

type EntityKind string

const (
	EntityKindUnknown EntityKind = "unknown"
	EntityKindPlayer  EntityKind = "player"
	EntityKindBot     EntityKind = "bot"
	EntityKindUnit    EntityKind = "unit"
	EntityKindBase    EntityKind = "base"
	EntityKindMatch   EntityKind = "match"
	EntityKindSession EntityKind = "session"
)

type Event struct {
	Type      EventType      `json:"type"`
	Tick      uint64         `json:"tick"`
	Time      time.Time      `json:"time"`
	Actor     EntityRef      `json:"actor"`
	Targets   []EntityRef    `json:"targets,omitempty"`
	Severity  Severity       `json:"severity"`
	Category  string         `json:"category,omitempty"`
	Payload   any            `json:"payload,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
	MatchID   string         `json:"matchId,omitempty"`
	RequestID string         `json:"reqId,omitempty"`
}

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// PlayerRef is shorthand for a player entity reference.
func PlayerRef(id string) EntityRef {
	return EntityRef{ID: id, Kind: EntityKindPlayer}
}

// UnitRef is shorthand for a unit entity reference.
func UnitRef(id string) EntityRef {
	return EntityRef{ID: id, Kind: EntityKindUnit}
}

// BaseRef refers to the base owned by a player.
func BaseRef(playerID string) EntityRef {
	return EntityRef{ID: playerID, Kind: EntityKindBase}
}

const (
	CategoryGameplay = "gameplay"
	CategoryCombat   = "combat"
	CategoryEconomy  = "economy"
	CategoryNetwork  = "network"
	CategorySystem   = "system"
)

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

func NopPublisher() Publisher {
	return nopPublisher{}
}

type matchPublisher struct {
	next    Publisher
	matchID string
	fields  map[string]any
}

func (p *matchPublisher) Publish(ctx context.Context, event Event) {
	if p.next == nil {
		return
	}
	if event.MatchID == "" {
		event.MatchID = p.matchID
	}
	if len(p.fields) > 0 {
		event = cloneEvent(event)
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(p.fields))
		}
		for k, v := range p.fields {
			if _, exists := event.Extra[k]; !exists {
				event.Extra[k] = v
			}
		}
	}
	p.next.Publish(ctx, event)
}

// ForMatch stamps every event with matchID and the provided static fields.
func ForMatch(p Publisher, matchID string, fields map[string]any) Publisher {
	if p == nil {
		return NopPublisher()
	}
	var copied map[string]any
	if len(fields) > 0 {
		copied = make(map[string]any, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
	}
	return &matchPublisher{next: p, matchID: matchID, fields: copied}
}

func cloneEvent(event Event) Event {
	cloned := event
	if len(event.Targets) > 0 {
		cloned.Targets = append([]EntityRef(nil), event.Targets...)
	}
	if event.Extra != nil {
		copied := make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			copied[k] = v
		}
		cloned.Extra = copied
	}
	return cloned
}

func (e Event) WithExtra(key string, value any) Event {
	e = cloneEvent(e)
	if e.Extra == nil {
		e.Extra = make(map[string]any, 1)
	}
	e.Extra[key] = value
	return e
}
