// Package tui draws a mirrored match on a terminal with tcell and maps
// keystrokes to player commands.
package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/gdamore/tcell/v2"

	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/geom"
	"age-of-war/server/internal/world"
)

// hudRows are reserved at the bottom of the screen.
const hudRows = 3

var palette = []tcell.Color{
	tcell.ColorRoyalBlue, tcell.ColorCrimson, tcell.ColorForestGreen, tcell.ColorGold,
	tcell.ColorDarkOrchid, tcell.ColorDarkCyan, tcell.ColorOrangeRed, tcell.ColorHotPink,
	tcell.ColorSlateGray, tcell.ColorYellowGreen,
}

// Renderer paints one world per frame.
type Renderer struct {
	screen  tcell.Screen
	localID string
}

func NewRenderer(screen tcell.Screen, localID string) *Renderer {
	return &Renderer{screen: screen, localID: localID}
}

// Project maps a world position onto the arena area of a width×height
// screen. Terminal cells are about twice as tall as wide, so x is stretched.
func Project(pos geom.Vec2, width, height int) (int, int) {
	arenaH := height - hudRows
	if arenaH < 1 {
		arenaH = 1
	}
	scale := math.Min(float64(width)/2, float64(arenaH)) / (2 * catalog.MapRadius)
	cx := float64(width) / 2
	cy := float64(arenaH) / 2
	x := int(math.Round(cx + pos.X*scale*2))
	y := int(math.Round(cy + pos.Y*scale))
	return clamp(x, 0, width-1), clamp(y, 0, arenaH-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Draw renders w. displayGold is the local player's gold after optimistic spends.
func (r *Renderer) Draw(w *world.World, displayGold float64) {
	s := r.screen
	s.Clear()
	width, height := s.Size()

	colors := make(map[string]tcell.Color, len(w.Players))
	for i, p := range w.Players {
		colors[p.ID] = playerColor(p, i)
	}

	for _, e := range w.Effects {
		x, y := Project(e.Pos, width, height)
		s.SetContent(x, y, '*', nil, tcell.StyleDefault.Foreground(tcell.ColorOrange))
	}
	for _, pr := range w.Projectiles {
		x, y := Project(pr.Pos, width, height)
		s.SetContent(x, y, '.', nil, tcell.StyleDefault.Foreground(colors[pr.OwnerID]))
	}
	for _, u := range w.Units {
		x, y := Project(u.Pos, width, height)
		glyph := 'o'
		if u.RangedDamage > 0 {
			glyph = '>'
		}
		if u.Scale > 1.2 {
			glyph = 'O'
		}
		s.SetContent(x, y, glyph, nil, tcell.StyleDefault.Foreground(colors[u.OwnerID]))
	}
	for i, p := range w.Players {
		x, y := Project(p.Pos, width, height)
		style := tcell.StyleDefault.Foreground(colors[p.ID]).Bold(true)
		glyph := rune('A' + i%26)
		if !p.Alive() {
			glyph = 'x'
			style = style.Dim(true)
		}
		if p.ID == r.localID {
			style = style.Reverse(true)
		}
		s.SetContent(x, y, glyph, nil, style)
	}

	r.drawHUD(w, displayGold, width, height)
	s.Show()
}

func (r *Renderer) drawHUD(w *world.World, displayGold float64, width, height int) {
	top := height - hudRows
	if top < 0 {
		top = 0
	}
	me := w.Player(r.localID)
	status := fmt.Sprintf("%s  tick %d", w.Phase, w.Tick)
	r.text(0, top, width, status, tcell.StyleDefault.Bold(true))

	if me == nil {
		r.text(0, top+1, width, "spectating", tcell.StyleDefault)
		return
	}
	ageName := ""
	var units []catalog.UnitStats
	if age, ok := catalog.AgeAt(me.Age); ok {
		ageName = age.Name
		units = age.Units
	}
	line := fmt.Sprintf("%s | hp %.0f/%.0f | gold %.0f | xp %.0f | target %s | queue %d | special %.1fs",
		ageName, me.HP, me.MaxHP, displayGold, me.XP, me.TargetID, len(me.SpawnQueue), math.Max(0, me.SpecialCooldown))
	r.text(0, top+1, width, line, tcell.StyleDefault)

	var keys strings.Builder
	for i, u := range units {
		fmt.Fprintf(&keys, "[%d] %s %d  ", i+1, u.Name, int(math.Round(float64(u.Cost)*w.Settings.UnitCost)))
	}
	keys.WriteString("[u] age  [s] special  [t] target  [q] quit")
	r.text(0, top+2, width, keys.String(), tcell.StyleDefault.Dim(true))
}

func (r *Renderer) text(x, y, width int, s string, style tcell.Style) {
	for _, ch := range s {
		if x >= width {
			return
		}
		r.screen.SetContent(x, y, ch, nil, style)
		x++
	}
}

// playerColor honours #rrggbb colors and falls back to a seat palette.
func playerColor(p *world.Player, seat int) tcell.Color {
	if strings.HasPrefix(p.Color, "#") {
		if c := tcell.GetColor(p.Color); c != tcell.ColorDefault {
			return c
		}
	}
	return palette[seat%len(palette)]
}
