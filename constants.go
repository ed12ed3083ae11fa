// Package server holds transport constants shared by the websocket sessions,
// the match hub and command intake.
package server

import "time"

const (
	writeWait         = 10 * time.Second
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval
)

// WriteWait bounds a single websocket write.
const WriteWait = writeWait

// HeartbeatInterval is how often clients are expected to ping.
const HeartbeatInterval = heartbeatInterval

// DisconnectAfter is the silence after which a session is dropped.
const DisconnectAfter = disconnectAfter

// Reasons a command is refused before it reaches the simulation. These are
// surfaced to the submitter, unlike simulation-level rejections.
const (
	CommandRejectInvalidAction = "invalid_action"
	CommandRejectUnknownActor  = "unknown_actor"
	CommandRejectThrottled     = "throttled"
	CommandRejectDuplicate     = "duplicate"
	CommandRejectNoMatch       = "no_match"
)
