package world

import (
	"math"
	"sort"

	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/geom"
)

// Seat is a roster entry handed to the match at start.
type Seat struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Bot   bool   `json:"isBot"`
	Team  int    `json:"team"`
	Color string `json:"color"`
}

// SeatPlayers places the roster around the arena and resets every player to
// starting values. Existing players, units, projectiles and effects are dropped.
func (w *World) SeatPlayers(roster []Seat) {
	ordered := orderSeats(roster, w.Settings)

	w.Players = nil
	w.playerIndex = make(map[string]*Player, len(ordered))
	w.Units = nil
	w.unitIndex = make(map[string]*Unit)
	w.Projectiles = nil
	w.Effects = nil
	w.events = nil

	n := len(ordered)
	seatRadius := catalog.MapRadius * catalog.SeatRadiusFactor
	for i, seat := range ordered {
		angle := 0.0
		if n > 0 {
			angle = 2 * math.Pi * float64(i) / float64(n)
		}
		color := seat.Color
		team := seat.Team
		if w.Settings.Mode == ModeTeams {
			switch team {
			case 1:
				color = catalog.TeamOneColor
			case 2:
				color = catalog.TeamTwoColor
			}
		} else {
			team = 0
		}
		p := &Player{
			ID:    seat.ID,
			Name:  seat.Name,
			Bot:   seat.Bot,
			Team:  team,
			Color: color,
			Gold:  catalog.StartingGold,
			HP:    float64(w.Settings.BaseHP),
			MaxHP: float64(w.Settings.BaseHP),
			Pos:   geom.FromAngle(angle, seatRadius),
		}
		p.ResetTurret()
		w.AddPlayer(p)
	}

	for i, p := range w.Players {
		if w.Settings.Mode == ModeTeams {
			if enemy := w.NearestOpponentPlayer(p.ID, p.Pos); enemy != nil {
				p.TargetID = enemy.ID
			}
			continue
		}
		if n > 1 {
			p.TargetID = w.Players[(i+1)%n].ID
		}
	}
	w.startCount = n
}

func orderSeats(roster []Seat, settings Settings) []Seat {
	sorted := append([]Seat(nil), roster...)
	if settings.Mode != ModeTeams {
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
		return sorted
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Team != sorted[j].Team {
			return sorted[i].Team < sorted[j].Team
		}
		return sorted[i].ID < sorted[j].ID
	})
	if settings.Layout != LayoutAlternating {
		return sorted
	}
	var one, two []Seat
	for _, s := range sorted {
		if s.Team == 1 {
			one = append(one, s)
		} else {
			two = append(two, s)
		}
	}
	interleaved := make([]Seat, 0, len(sorted))
	for i := 0; i < len(one) || i < len(two); i++ {
		if i < len(one) {
			interleaved = append(interleaved, one[i])
		}
		if i < len(two) {
			interleaved = append(interleaved, two[i])
		}
	}
	return interleaved
}
