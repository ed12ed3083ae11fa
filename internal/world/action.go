package world

// ActionKind names a player intent.
type ActionKind string

const (
	ActionQueueUnit ActionKind = "queueUnit"
	ActionSetTarget ActionKind = "setTarget"
	ActionUpgrade   ActionKind = "upgrade"
	ActionSpecial   ActionKind = "special"
)

// Action is a player intent routed through the validation entry point.
type Action struct {
	Kind      ActionKind `json:"type" msgpack:"type"`
	PlayerID  string     `json:"playerId" msgpack:"playerId"`
	UnitID    string     `json:"unitId,omitempty" msgpack:"unitId,omitempty"`
	TargetID  string     `json:"targetId,omitempty" msgpack:"targetId,omitempty"`
	X         float64    `json:"x,omitempty" msgpack:"x,omitempty"`
	Y         float64    `json:"y,omitempty" msgpack:"y,omitempty"`
	RequestID string     `json:"reqId,omitempty" msgpack:"reqId,omitempty"`
}

// Valid reports whether the action names a known kind and a player.
func (a Action) Valid() bool {
	if a.PlayerID == "" {
		return false
	}
	switch a.Kind {
	case ActionQueueUnit:
		return a.UnitID != ""
	case ActionSetTarget, ActionUpgrade, ActionSpecial:
		return true
	default:
		return false
	}
}
