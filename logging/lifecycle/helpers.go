package lifecycle

import (
	"context"

	"age-of-war/server/logging"
)

const (
	EventMatchStarted  logging.EventType = "lifecycle.match_started"
	EventMatchPaused   logging.EventType = "lifecycle.match_paused"
	EventMatchResumed  logging.EventType = "lifecycle.match_resumed"
	EventMatchFinished logging.EventType = "lifecycle.match_finished"
	// EventPlayerJoined is emitted when a player joins the lobby.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerLeft is emitted when a player leaves or is kicked.
	EventPlayerLeft logging.EventType = "lifecycle.player_left"
)

// MatchStartedPayload summarizes the roster at start.
type MatchStartedPayload struct {
	Mode    string   `json:"mode"`
	Players []string `json:"players"`
	Seed    string   `json:"seed,omitempty"`
}

// MatchFinishedPayload summarizes the outcome.
type MatchFinishedPayload struct {
	WinnerID    string `json:"winnerId,omitempty"`
	WinningTeam int    `json:"winningTeam,omitempty"`
	Draw        bool   `json:"draw"`
}

// PlayerJoinedPayload describes a new lobby member.
type PlayerJoinedPayload struct {
	Name string `json:"name"`
	Team int    `json:"team"`
	Bot  bool   `json:"bot"`
}

// PlayerLeftPayload explains a departure.
type PlayerLeftPayload struct {
	Reason string `json:"reason"`
}

func matchEvent(eventType logging.EventType, tick uint64, severity logging.Severity, payload any) logging.Event {
	return logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindMatch},
		Severity: severity,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	}
}

// MatchStarted publishes the start of a match.
func MatchStarted(ctx context.Context, pub logging.Publisher, tick uint64, payload MatchStartedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, matchEvent(EventMatchStarted, tick, logging.SeverityInfo, payload))
}

// MatchPaused publishes a suspension.
func MatchPaused(ctx context.Context, pub logging.Publisher, tick uint64) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, matchEvent(EventMatchPaused, tick, logging.SeverityInfo, nil))
}

// MatchResumed publishes a resumption.
func MatchResumed(ctx context.Context, pub logging.Publisher, tick uint64) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, matchEvent(EventMatchResumed, tick, logging.SeverityInfo, nil))
}

// MatchFinished publishes the terminal outcome.
func MatchFinished(ctx context.Context, pub logging.Publisher, tick uint64, payload MatchFinishedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, matchEvent(EventMatchFinished, tick, logging.SeverityInfo, payload))
}

// PlayerJoined publishes a lobby join.
func PlayerJoined(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload PlayerJoinedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerJoined,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

// PlayerLeft publishes a lobby departure.
func PlayerLeft(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload PlayerLeftPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerLeft,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}
