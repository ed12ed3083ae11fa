package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"age-of-war/server/internal/lobby"
	"age-of-war/server/internal/match"
	"age-of-war/server/internal/replication"
	"age-of-war/server/internal/store"
	"age-of-war/server/internal/world"
	"age-of-war/server/logging"
	"age-of-war/server/logging/lifecycle"
)

type resultSpy struct {
	results chan world.Result
}

func (s resultSpy) MatchFinished(result world.Result) { s.results <- result }

func newTestHost(t *testing.T, cfg HostConfig) *Host {
	t.Helper()
	if cfg.Lobby.ID == "" {
		cfg.Lobby.ID = "ABC123"
	}
	cfg.Match.Profile = replication.ProfileLocal
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHost(ctx, cfg)
	t.Cleanup(func() {
		h.Close()
		cancel()
	})
	return h
}

func phaseOf(t *testing.T, m *match.Match) world.Phase {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	diag, err := m.Diagnostics(ctx)
	require.NoError(t, err)
	return diag.Phase
}

func TestHostStartsLobbyRosterInWaitingMatch(t *testing.T) {
	var created []*match.Match
	h := newTestHost(t, HostConfig{OnMatch: func(m *match.Match) { created = append(created, m) }})
	require.Len(t, created, 1)
	assert.Same(t, created[0], h.Current())
	assert.Equal(t, world.PhaseWaiting, phaseOf(t, h.Current()))

	_, err := h.Join("host", "Host", "")
	require.NoError(t, err)
	bot, err := h.AddBot("host")
	require.NoError(t, err)

	settings := h.Lobby().Settings
	settings.GameSpeed = 2
	_, err = h.UpdateSettings("host", settings)
	require.NoError(t, err)

	require.NoError(t, h.StartMatch(context.Background(), "host"))
	m := h.Current()
	assert.Equal(t, world.PhasePlaying, phaseOf(t, m))
	assert.True(t, m.HasPlayer("host"))
	assert.True(t, m.HasPlayer(bot.ID))
	assert.Equal(t, 2.0, m.Settings().GameSpeed)
	assert.Equal(t, lobby.StatusPlaying, h.Lobby().Status)

	_, err = h.Join("late", "Late", "")
	assert.ErrorIs(t, err, lobby.ErrNotWaiting)
}

func TestHostRejectsStartFromGuest(t *testing.T) {
	h := newTestHost(t, HostConfig{})
	_, err := h.Join("host", "Host", "")
	require.NoError(t, err)
	_, err = h.Join("guest", "Guest", "")
	require.NoError(t, err)

	assert.ErrorIs(t, h.StartMatch(context.Background(), "guest"), lobby.ErrNotHost)
	assert.Equal(t, world.PhaseWaiting, phaseOf(t, h.Current()))
}

func TestHostResetReplacesFinishedMatch(t *testing.T) {
	spy := resultSpy{results: make(chan world.Result, 1)}
	var created []*match.Match
	h := newTestHost(t, HostConfig{
		Results: spy,
		OnMatch: func(m *match.Match) { created = append(created, m) },
	})
	_, err := h.Join("host", "Host", "")
	require.NoError(t, err)
	_, err = h.AddBot("host")
	require.NoError(t, err)
	require.NoError(t, h.StartMatch(context.Background(), "host"))

	assert.ErrorIs(t, h.ResetLobby(context.Background(), "host"), lobby.ErrNotFinished)

	first := h.Current()
	result := world.Result{MatchID: first.ID(), WinnerID: "host"}
	resultFanout{h.lobby, spy}.MatchFinished(result)
	select {
	case got := <-spy.results:
		assert.Equal(t, "host", got.WinnerID)
	case <-time.After(time.Second):
		t.Fatal("result not forwarded")
	}
	assert.Equal(t, lobby.StatusFinished, h.Lobby().Status)

	require.NoError(t, h.ResetLobby(context.Background(), "host"))
	require.Len(t, created, 2)
	second := h.Current()
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, world.PhaseWaiting, phaseOf(t, second))
	assert.Equal(t, lobby.StatusWaiting, h.Lobby().Status)

	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatal("previous match still running")
	}
}

func TestHostLeaveAndKickPublishLifecycle(t *testing.T) {
	var events []logging.EventType
	h := newTestHost(t, HostConfig{Publisher: logging.PublisherFunc(func(_ context.Context, e logging.Event) {
		events = append(events, e.Type)
	})})
	_, err := h.Join("host", "Host", "")
	require.NoError(t, err)
	_, err = h.Join("guest", "Guest", "")
	require.NoError(t, err)

	require.NoError(t, h.Kick("host", "guest"))
	assert.ErrorIs(t, h.Kick("host", "guest"), lobby.ErrUnknownPlayer)
	assert.ErrorIs(t, h.Leave(context.Background(), "ghost"), lobby.ErrUnknownPlayer)
	require.NoError(t, h.Leave(context.Background(), "host"))
	assert.Equal(t, lobby.StatusClosed, h.Lobby().Status)

	assert.Equal(t, []logging.EventType{
		lifecycle.EventPlayerJoined,
		lifecycle.EventPlayerJoined,
		lifecycle.EventPlayerLeft,
		lifecycle.EventPlayerLeft,
	}, events)
}

func TestHostRecentResults(t *testing.T) {
	h := newTestHost(t, HostConfig{})
	_, err := h.RecentResults(context.Background(), 5)
	assert.ErrorIs(t, err, store.ErrDisabled)

	s, err := store.Open(store.Config{Driver: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.SaveResult(context.Background(), world.Result{MatchID: "m-1", WinnerID: "host"}))

	h = newTestHost(t, HostConfig{Store: s})
	records, err := h.RecentResults(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "m-1", records[0].MatchID)
}
