package world

// Sound is an audio cue emitted by the simulation.
type Sound string

const (
	SoundSpawn     Sound = "spawn"
	SoundShoot     Sound = "shoot"
	SoundHit       Sound = "hit"
	SoundExplosion Sound = "explosion"
	SoundLevelUp   Sound = "levelUp"
)

// AudioPort plays cues. Implementations must not block.
type AudioPort interface {
	Play(Sound)
}

// Result describes a finished match. WinnerID is set in FFA, WinningTeam in
// TEAMS. Draw is set when nobody survived.
type Result struct {
	MatchID     string   `json:"matchId"`
	Mode        Mode     `json:"mode"`
	WinnerID    string   `json:"winnerId,omitempty"`
	WinnerName  string   `json:"winnerName,omitempty"`
	WinningTeam int      `json:"winningTeam,omitempty"`
	Draw        bool     `json:"draw"`
	Tick        uint64   `json:"tick"`
	Players     []Player `json:"players"`
}

// ResultSink is notified exactly once when a match finishes.
type ResultSink interface {
	MatchFinished(Result)
}

// NotificationKind names a state change observers can react to.
type NotificationKind string

const (
	NotifyPhase   NotificationKind = "phase"
	NotifyKill    NotificationKind = "kill"
	NotifyUpgrade NotificationKind = "upgrade"
	NotifySpawn   NotificationKind = "spawn"
	NotifyBaseHit NotificationKind = "base_hit"
	NotifySpecial NotificationKind = "special"
	NotifyFinish  NotificationKind = "finish"
)

// Notification is delivered synchronously to observers from the tick path.
type Notification struct {
	Kind     NotificationKind
	Tick     uint64
	Phase    Phase
	PlayerID string
	TargetID string
	UnitID   string
	TypeID   string
	Amount   float64
	Result   *Result
}

// Observer receives notifications. Implementations must not block or mutate the world.
type Observer interface {
	Notify(Notification)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Notification)

func (f ObserverFunc) Notify(n Notification) {
	if f != nil {
		f(n)
	}
}

type nopAudio struct{}

func (nopAudio) Play(Sound) {}

type nopResults struct{}

func (nopResults) MatchFinished(Result) {}

// Ports are the optional outbound collaborators of a world.
type Ports struct {
	Audio   AudioPort
	Results ResultSink
}

func (p Ports) normalized() Ports {
	if p.Audio == nil {
		p.Audio = nopAudio{}
	}
	if p.Results == nil {
		p.Results = nopResults{}
	}
	return p
}
