package tui

import (
	"github.com/gdamore/tcell/v2"

	"age-of-war/server/internal/catalog"
	"age-of-war/server/internal/world"
)

// CommandKind is what a keystroke asks for.
type CommandKind int

const (
	CmdNone CommandKind = iota
	CmdQueue
	CmdUpgrade
	CmdSpecial
	CmdCycleTarget
	CmdQuit
)

// Command is a decoded keystroke. Slot is the zero-based unit slot for CmdQueue.
type Command struct {
	Kind CommandKind
	Slot int
}

// KeyCommand decodes a key event.
func KeyCommand(ev *tcell.EventKey) Command {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Command{Kind: CmdQuit}
	case tcell.KeyRune:
	default:
		return Command{}
	}
	switch r := ev.Rune(); {
	case r >= '1' && r <= '9':
		return Command{Kind: CmdQueue, Slot: int(r - '1')}
	case r == 'u':
		return Command{Kind: CmdUpgrade}
	case r == 's':
		return Command{Kind: CmdSpecial}
	case r == 't':
		return Command{Kind: CmdCycleTarget}
	case r == 'q':
		return Command{Kind: CmdQuit}
	}
	return Command{}
}

// UnitForSlot resolves a queue slot against the player's age.
func UnitForSlot(p *world.Player, slot int) (string, bool) {
	if p == nil {
		return "", false
	}
	age, ok := catalog.AgeAt(p.Age)
	if !ok || slot < 0 || slot >= len(age.Units) {
		return "", false
	}
	return age.Units[slot].ID, true
}

// NextTarget returns the living opponent after current in seat order,
// wrapping around. It returns "" when no opponent is alive.
func NextTarget(w *world.World, localID, current string) string {
	var candidates []string
	for _, p := range w.Players {
		if p.Alive() && w.Opposing(localID, p.ID) {
			candidates = append(candidates, p.ID)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	for i, id := range candidates {
		if id == current {
			return candidates[(i+1)%len(candidates)]
		}
	}
	return candidates[0]
}
