package sim

import (
	"age-of-war/server/internal/world"
	"age-of-war/server/logging/lifecycle"
)

// evaluateWin finishes the match once the mode's end condition holds.
func (e *Engine) evaluateWin() {
	w := e.world
	if w.Phase != world.PhasePlaying {
		return
	}
	result, done := e.decide()
	if !done {
		return
	}
	e.finish(result)
}

func (e *Engine) decide() (world.Result, bool) {
	w := e.world
	result := world.Result{MatchID: w.MatchID, Mode: w.Settings.Mode}

	if w.Settings.Mode == world.ModeTeams {
		oneAlive, twoAlive := false, false
		for _, p := range w.Players {
			if !p.Alive() {
				continue
			}
			switch p.Team {
			case 1:
				oneAlive = true
			case 2:
				twoAlive = true
			}
		}
		switch {
		case oneAlive && twoAlive:
			return result, false
		case oneAlive:
			result.WinningTeam = 1
		case twoAlive:
			result.WinningTeam = 2
		default:
			result.Draw = true
		}
		return result, true
	}

	if w.StartCount() <= 1 {
		return result, false
	}
	alive := w.AlivePlayers()
	switch len(alive) {
	case 0:
		result.Draw = true
	case 1:
		result.WinnerID = alive[0].ID
		result.WinnerName = alive[0].Name
	default:
		return result, false
	}
	return result, true
}

func (e *Engine) finish(result world.Result) {
	w := e.world
	if !w.SetPhase(world.PhaseFinished) {
		return
	}
	result.Tick = w.Tick
	result.Players = make([]world.Player, 0, len(w.Players))
	for _, p := range w.Players {
		result.Players = append(result.Players, p.Clone())
	}
	lifecycle.MatchFinished(e.ctx, e.deps.Publisher, w.Tick, lifecycle.MatchFinishedPayload{
		WinnerID:    result.WinnerID,
		WinningTeam: result.WinningTeam,
		Draw:        result.Draw,
	})
	e.deps.Logger.Info().Str("match", w.MatchID).Str("winner", result.WinnerID).Int("team", result.WinningTeam).Bool("draw", result.Draw).Msg("match finished")
	w.Results().MatchFinished(result)
	w.Notify(world.Notification{Kind: world.NotifyFinish, Result: &result})
}
