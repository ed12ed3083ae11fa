package proto

import (
	"encoding/json"
	"fmt"

	"age-of-war/server/internal/replication"
	"age-of-war/server/internal/world"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
	typeHeartbeat     = "heartbeat"
	typeSnapshot      = "snapshot"
	typeStart         = "start"
	typePhase         = "phase"
	typeResult        = "result"
)

// Client message type identifiers.
const (
	TypeAction    = "action"
	TypeHeartbeat = "heartbeat"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeSnapshot      = typeSnapshot
	TypeStart         = typeStart
	TypePhase         = typePhase
	TypeResult        = typeResult
	TypeCommandAck    = typeCommandAck
	TypeCommandReject = typeCommandReject
)

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver        int     `json:"ver,omitempty"`
	Type       string  `json:"type"`
	Action     string  `json:"action,omitempty"`
	UnitID     string  `json:"unitId,omitempty"`
	TargetID   string  `json:"targetId,omitempty"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	RequestID  string  `json:"reqId,omitempty"`
	SentAt     int64   `json:"sentAt,omitempty"`
	CommandSeq *uint64 `json:"seq,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// ClientAction converts an action message into a simulation action owned by
// playerID. The player id always comes from the session, never the payload.
func ClientAction(msg ClientMessage, playerID string) (world.Action, bool) {
	if msg.Type != TypeAction || msg.Action == "" {
		return world.Action{}, false
	}
	action := world.Action{
		Kind:      world.ActionKind(msg.Action),
		PlayerID:  playerID,
		UnitID:    msg.UnitID,
		TargetID:  msg.TargetID,
		X:         msg.X,
		Y:         msg.Y,
		RequestID: msg.RequestID,
	}
	if !action.Valid() {
		return world.Action{}, false
	}
	return action, true
}

// ActionMessage is the inverse of ClientAction, used by clients.
func ActionMessage(a world.Action) ClientMessage {
	return ClientMessage{
		Ver:       Version,
		Type:      TypeAction,
		Action:    string(a.Kind),
		UnitID:    a.UnitID,
		TargetID:  a.TargetID,
		X:         a.X,
		Y:         a.Y,
		RequestID: a.RequestID,
	}
}

// CommandAck describes an acknowledgement of a processed command.
type CommandAck struct {
	Seq  uint64
	Tick uint64
}

// EncodeCommandAck renders a command acknowledgement response.
func EncodeCommandAck(msg CommandAck) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Seq  uint64 `json:"seq"`
		Tick uint64 `json:"tick,omitempty"`
	}{
		Ver:  Version,
		Type: typeCommandAck,
		Seq:  msg.Seq,
		Tick: msg.Tick,
	}
	return json.Marshal(frame)
}

// CommandReject notifies the client that a command was refused before it
// reached the simulation.
type CommandReject struct {
	Seq    uint64
	Reason string
	Retry  bool
	Tick   uint64
}

// EncodeCommandReject renders a command rejection response.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Seq    uint64 `json:"seq"`
		Reason string `json:"reason"`
		Retry  bool   `json:"retry,omitempty"`
		Tick   uint64 `json:"tick,omitempty"`
	}{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    msg.Seq,
		Reason: msg.Reason,
		Retry:  msg.Retry,
		Tick:   msg.Tick,
	}
	return json.Marshal(frame)
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTTMillis:  msg.RTTMillis,
	}
	return json.Marshal(frame)
}

// SnapshotV1 is the websocket framing of a replication snapshot.
type SnapshotV1 struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	replication.Snapshot
}

// EncodeSnapshot renders a snapshot payload.
func EncodeSnapshot(snap replication.Snapshot) ([]byte, error) {
	return json.Marshal(SnapshotV1{Ver: Version, Type: typeSnapshot, Snapshot: snap})
}

// StartV1 tells a client which match it joined and the settings to mirror.
type StartV1 struct {
	Ver      int            `json:"ver"`
	Type     string         `json:"type"`
	MatchID  string         `json:"matchId"`
	PlayerID string         `json:"playerId"`
	Settings world.Settings `json:"settings"`
	Profile  string         `json:"profile"`
	Datagram string         `json:"datagram,omitempty"`
}

// EncodeStart renders a start payload.
func EncodeStart(msg StartV1) ([]byte, error) {
	msg.Ver = Version
	msg.Type = typeStart
	return json.Marshal(msg)
}

// PhaseV1 broadcasts a discrete lifecycle transition.
type PhaseV1 struct {
	Ver   int         `json:"ver"`
	Type  string      `json:"type"`
	Phase world.Phase `json:"phase"`
	Tick  uint64      `json:"t"`
}

// EncodePhase renders a phase transition payload.
func EncodePhase(phase world.Phase, tick uint64) ([]byte, error) {
	return json.Marshal(PhaseV1{Ver: Version, Type: typePhase, Phase: phase, Tick: tick})
}

// ResultV1 carries the terminal match outcome.
type ResultV1 struct {
	Ver    int          `json:"ver"`
	Type   string       `json:"type"`
	Result world.Result `json:"result"`
}

// EncodeResult renders a result payload.
func EncodeResult(result world.Result) ([]byte, error) {
	return json.Marshal(ResultV1{Ver: Version, Type: typeResult, Result: result})
}

// ServerMessage is a decoded outbound payload as seen by a client. Exactly
// one of the typed fields is set, matching Type.
type ServerMessage struct {
	Type     string
	Snapshot *replication.Snapshot
	Start    *StartV1
	Phase    *PhaseV1
	Result   *world.Result
	Raw      json.RawMessage
}

// DecodeServerMessage inspects the type tag and decodes the matching payload.
// Unknown types are returned with only Raw populated.
func DecodeServerMessage(payload []byte) (ServerMessage, error) {
	var head struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return ServerMessage{}, err
	}
	if head.Ver != 0 && head.Ver != Version {
		return ServerMessage{}, fmt.Errorf("unsupported server protocol version %d", head.Ver)
	}
	msg := ServerMessage{Type: head.Type, Raw: append(json.RawMessage(nil), payload...)}
	switch head.Type {
	case typeSnapshot:
		var frame SnapshotV1
		if err := json.Unmarshal(payload, &frame); err != nil {
			return msg, fmt.Errorf("decode snapshot: %w", err)
		}
		msg.Snapshot = &frame.Snapshot
	case typeStart:
		var frame StartV1
		if err := json.Unmarshal(payload, &frame); err != nil {
			return msg, fmt.Errorf("decode start: %w", err)
		}
		msg.Start = &frame
	case typePhase:
		var frame PhaseV1
		if err := json.Unmarshal(payload, &frame); err != nil {
			return msg, fmt.Errorf("decode phase: %w", err)
		}
		msg.Phase = &frame
	case typeResult:
		var frame ResultV1
		if err := json.Unmarshal(payload, &frame); err != nil {
			return msg, fmt.Errorf("decode result: %w", err)
		}
		msg.Result = &frame.Result
	}
	return msg, nil
}
