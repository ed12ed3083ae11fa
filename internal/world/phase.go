package world

// Phase is the match lifecycle state.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhasePaused   Phase = "paused"
	PhaseFinished Phase = "finished"
)

// Terminal reports whether no further transitions are allowed.
func (p Phase) Terminal() bool {
	return p == PhaseFinished
}

// CanTransition enforces waiting -> playing <-> paused -> finished.
func (p Phase) CanTransition(next Phase) bool {
	switch p {
	case PhaseWaiting:
		return next == PhasePlaying
	case PhasePlaying:
		return next == PhasePaused || next == PhaseFinished
	case PhasePaused:
		return next == PhasePlaying || next == PhaseFinished
	default:
		return false
	}
}
