package lobby

import (
	"errors"
	"testing"

	"age-of-war/server/internal/world"
)

func newLobby(t *testing.T) *Lobby {
	t.Helper()
	l := New(Config{ID: "ABC123", Seed: "lobby-test"})
	if _, err := l.Join("host", "Host", "#ff0000"); err != nil {
		t.Fatalf("host join: %v", err)
	}
	return l
}

func TestFirstJoinerHostsAndTeamsAlternate(t *testing.T) {
	l := newLobby(t)
	for _, id := range []string{"b", "c", "d"} {
		if _, err := l.Join(id, "", ""); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	view := l.View()
	if view.HostID != "host" {
		t.Fatalf("expected host to host, got %q", view.HostID)
	}
	teams := []int{}
	for _, m := range view.Members {
		teams = append(teams, m.Team)
	}
	want := []int{1, 2, 1, 2}
	for i := range want {
		if teams[i] != want[i] {
			t.Fatalf("expected teams %v, got %v", want, teams)
		}
	}
	if view.Members[1].Name != "Player 2" {
		t.Fatalf("expected default name, got %q", view.Members[1].Name)
	}
	if view.Members[1].Color == "" {
		t.Fatalf("expected generated color")
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	l := newLobby(t)
	if _, err := l.Join("host", "Again", ""); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if got := len(l.View().Members); got != 1 {
		t.Fatalf("expected 1 member, got %d", got)
	}
}

func TestLobbyFullIncludesBots(t *testing.T) {
	l := newLobby(t)
	for i := 0; i < MaxPlayers-1; i++ {
		if _, err := l.AddBot("host"); err != nil {
			t.Fatalf("bot %d: %v", i, err)
		}
	}
	if _, err := l.AddBot("host"); !errors.Is(err, ErrLobbyFull) {
		t.Fatalf("expected ErrLobbyFull, got %v", err)
	}
	if _, err := l.Join("late", "Late", ""); !errors.Is(err, ErrLobbyFull) {
		t.Fatalf("expected ErrLobbyFull on join, got %v", err)
	}
}

func TestBotsAreBalancedAndNamed(t *testing.T) {
	l := newLobby(t)
	bot, err := l.AddBot("host")
	if err != nil {
		t.Fatalf("add bot: %v", err)
	}
	if bot.ID != "bot-1" || bot.Name != "Bot 1" || !bot.Bot || bot.Team != 2 {
		t.Fatalf("unexpected bot %+v", bot)
	}
	if _, err := l.AddBot("someone"); !errors.Is(err, ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
}

func TestKickAndSwitchTeam(t *testing.T) {
	l := newLobby(t)
	l.Join("b", "Bo", "")
	l.Join("c", "Cy", "")

	if err := l.Kick("b", "c"); !errors.Is(err, ErrNotHost) {
		t.Fatalf("expected non-host kick to fail, got %v", err)
	}
	if err := l.Kick("host", "host"); !errors.Is(err, ErrKickHost) {
		t.Fatalf("expected ErrKickHost, got %v", err)
	}
	if err := l.Kick("host", "c"); err != nil {
		t.Fatalf("kick: %v", err)
	}
	if err := l.Kick("host", "c"); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("expected ErrUnknownPlayer, got %v", err)
	}

	if err := l.SwitchTeam("b", "b", 1); err != nil {
		t.Fatalf("self switch: %v", err)
	}
	if err := l.SwitchTeam("b", "host", 2); !errors.Is(err, ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
	if err := l.SwitchTeam("host", "b", 3); !errors.Is(err, ErrInvalidTeam) {
		t.Fatalf("expected ErrInvalidTeam, got %v", err)
	}
	if got := l.View().Members[1].Team; got != 1 {
		t.Fatalf("expected team 1, got %d", got)
	}
}

func TestStartValidatesRoster(t *testing.T) {
	l := newLobby(t)
	if _, _, err := l.Start("host"); !errors.Is(err, ErrNotEnough) {
		t.Fatalf("expected ErrNotEnough, got %v", err)
	}
	l.Join("b", "Bo", "")
	l.SwitchTeam("host", "b", 1)
	if _, err := l.UpdateSettings("host", world.Settings{Mode: world.ModeTeams, GameSpeed: 2}); err != nil {
		t.Fatalf("settings: %v", err)
	}
	if _, _, err := l.Start("host"); !errors.Is(err, ErrTeamsUneven) {
		t.Fatalf("expected ErrTeamsUneven, got %v", err)
	}
	l.SwitchTeam("host", "b", 2)

	seats, settings, err := l.Start("host")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(seats) != 2 || seats[1].ID != "b" || seats[1].Team != 2 {
		t.Fatalf("unexpected seats %+v", seats)
	}
	if settings.Mode != world.ModeTeams || settings.GameSpeed != 2 || settings.BaseHP != 2500 {
		t.Fatalf("expected normalized settings, got %+v", settings)
	}
	if l.View().Status != StatusPlaying {
		t.Fatalf("expected playing")
	}
	if _, err := l.Join("late", "Late", ""); !errors.Is(err, ErrNotWaiting) {
		t.Fatalf("expected ErrNotWaiting, got %v", err)
	}
	if _, err := l.AddBot("host"); !errors.Is(err, ErrNotWaiting) {
		t.Fatalf("expected ErrNotWaiting for bot, got %v", err)
	}
}

func TestFinishAndReset(t *testing.T) {
	l := newLobby(t)
	l.AddBot("host")
	if err := l.Reset("host"); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("expected ErrNotFinished, got %v", err)
	}
	if _, _, err := l.Start("host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	l.MatchFinished(world.Result{WinnerID: "bot-1"})
	view := l.View()
	if view.Status != StatusFinished || view.WinnerID != "bot-1" {
		t.Fatalf("unexpected finished view %+v", view)
	}
	if err := l.Reset("bot-1"); !errors.Is(err, ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
	if err := l.Reset("host"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	view = l.View()
	if view.Status != StatusWaiting || view.WinnerID != "" || len(view.Members) != 2 {
		t.Fatalf("unexpected reset view %+v", view)
	}
}

func TestLeaveMigratesHostAndCloses(t *testing.T) {
	l := newLobby(t)
	l.AddBot("host")
	l.Join("b", "Bo", "")

	closed, err := l.Leave("host")
	if err != nil || closed {
		t.Fatalf("expected open lobby, closed=%v err=%v", closed, err)
	}
	if got := l.View().HostID; got != "b" {
		t.Fatalf("expected host to migrate to b, got %q", got)
	}

	closed, err = l.Leave("b")
	if err != nil || !closed {
		t.Fatalf("expected lobby to close with only bots left, closed=%v err=%v", closed, err)
	}
	if _, err := l.Join("c", "Cy", ""); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := l.Leave("x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed on leave, got %v", err)
	}
}

func TestShortCode(t *testing.T) {
	l := New(Config{})
	if len(l.ID()) != 6 {
		t.Fatalf("expected six character code, got %q", l.ID())
	}
}
