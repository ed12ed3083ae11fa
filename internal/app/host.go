package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"age-of-war/server/internal/lobby"
	"age-of-war/server/internal/match"
	servernet "age-of-war/server/internal/net"
	"age-of-war/server/internal/store"
	"age-of-war/server/internal/world"
	"age-of-war/server/logging"
	"age-of-war/server/logging/lifecycle"
)

// HostConfig wires a lobby to the matches it starts.
type HostConfig struct {
	Lobby lobby.Config
	// Slot holds the current match; one is allocated when nil.
	Slot *match.Slot
	// Match is the template for every match; MatchID and Settings are filled in.
	Match match.Config
	// Results receives every finished match in addition to the lobby.
	Results   world.ResultSink
	Store     *store.Store
	Publisher logging.Publisher
	Logger    zerolog.Logger
	// OnMatch is called with each new match before it is published.
	OnMatch func(*match.Match)
}

// Host owns the lobby and the match slot. It implements the HTTP controller.
type Host struct {
	cfg    HostConfig
	lobby  *lobby.Lobby
	slot   *match.Slot
	logger zerolog.Logger
	pub    logging.Publisher

	// mu serializes match lifecycle transitions.
	mu        sync.Mutex
	ctx       context.Context
	stopMatch context.CancelFunc
}

// NewHost creates the lobby and a waiting match that runs until ctx ends.
func NewHost(ctx context.Context, cfg HostConfig) *Host {
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Slot == nil {
		cfg.Slot = &match.Slot{}
	}
	h := &Host{
		cfg:    cfg,
		slot:   cfg.Slot,
		lobby:  lobby.New(cfg.Lobby),
		logger: cfg.Logger,
		pub:    cfg.Publisher,
		ctx:    ctx,
	}
	h.mu.Lock()
	h.replaceMatchLocked()
	h.mu.Unlock()
	return h
}

// Slot exposes the current match holder to transports.
func (h *Host) Slot() *match.Slot { return h.slot }

func (h *Host) Current() *match.Match { return h.slot.Current() }

func (h *Host) Lobby() lobby.View { return h.lobby.View() }

func (h *Host) Join(id, name, color string) (lobby.View, error) {
	before := len(h.lobby.View().Members)
	view, err := h.lobby.Join(id, name, color)
	if err != nil {
		return view, err
	}
	if len(view.Members) > before {
		for _, m := range view.Members {
			if m.ID == id {
				lifecycle.PlayerJoined(context.Background(), h.pub, logging.PlayerRef(id), lifecycle.PlayerJoinedPayload{Name: m.Name, Team: m.Team})
			}
		}
	}
	return view, nil
}

func (h *Host) AddBot(requester string) (lobby.Member, error) {
	bot, err := h.lobby.AddBot(requester)
	if err != nil {
		return bot, err
	}
	lifecycle.PlayerJoined(context.Background(), h.pub, logging.PlayerRef(bot.ID), lifecycle.PlayerJoinedPayload{Name: bot.Name, Team: bot.Team, Bot: true})
	return bot, nil
}

func (h *Host) Kick(requester, target string) error {
	if err := h.lobby.Kick(requester, target); err != nil {
		return err
	}
	lifecycle.PlayerLeft(context.Background(), h.pub, logging.PlayerRef(target), lifecycle.PlayerLeftPayload{Reason: "kicked"})
	return nil
}

func (h *Host) SwitchTeam(requester, target string, team int) error {
	return h.lobby.SwitchTeam(requester, target, team)
}

func (h *Host) UpdateSettings(requester string, settings world.Settings) (world.Settings, error) {
	return h.lobby.UpdateSettings(requester, settings)
}

// StartMatch seats the lobby roster in the waiting match.
func (h *Host) StartMatch(ctx context.Context, requester string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	seats, settings, err := h.lobby.Start(requester)
	if err != nil {
		return err
	}
	m := h.slot.Current()
	if m == nil {
		return match.ErrStopped
	}
	if err := m.Configure(ctx, settings); err != nil {
		return fmt.Errorf("configure match %s: %w", m.ID(), err)
	}
	if err := m.Start(ctx, seats); err != nil {
		return fmt.Errorf("start match %s: %w", m.ID(), err)
	}
	h.logger.Info().Str("match", m.ID()).Int("players", len(seats)).Str("mode", string(settings.Mode)).Msg("match started")
	return nil
}

// ResetLobby returns a finished lobby to waiting and replaces the match.
func (h *Host) ResetLobby(_ context.Context, requester string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.lobby.Reset(requester); err != nil {
		return err
	}
	h.replaceMatchLocked()
	return nil
}

// Leave removes id from the lobby. A running match keeps its base.
func (h *Host) Leave(_ context.Context, id string) error {
	closed, err := h.lobby.Leave(id)
	if err != nil {
		return err
	}
	lifecycle.PlayerLeft(context.Background(), h.pub, logging.PlayerRef(id), lifecycle.PlayerLeftPayload{Reason: "left"})
	if closed {
		h.logger.Info().Str("lobby", h.lobby.ID()).Msg("lobby closed, no humans remain")
	}
	return nil
}

func (h *Host) RecentResults(ctx context.Context, limit int) ([]store.MatchRecord, error) {
	if h.cfg.Store == nil {
		return nil, store.ErrDisabled
	}
	return h.cfg.Store.Recent(ctx, limit)
}

// Close stops the current match.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopMatch != nil {
		h.stopMatch()
		h.stopMatch = nil
	}
	if m := h.slot.Swap(nil); m != nil {
		<-m.Done()
	}
}

func (h *Host) replaceMatchLocked() {
	cfg := h.cfg.Match
	cfg.MatchID = ""
	cfg.Settings = h.lobby.View().Settings
	cfg.Ports.Results = resultFanout{h.lobby, h.cfg.Results}

	m := match.New(cfg)
	ctx, cancel := context.WithCancel(h.ctx)
	go m.Run(ctx)
	if h.cfg.OnMatch != nil {
		h.cfg.OnMatch(m)
	}

	previous := h.slot.Swap(m)
	if h.stopMatch != nil {
		h.stopMatch()
	}
	h.stopMatch = cancel
	if previous != nil {
		h.logger.Info().Str("previous", previous.ID()).Str("match", m.ID()).Msg("match replaced")
	}
}

// resultFanout delivers a result to every non-nil sink.
type resultFanout []world.ResultSink

func (f resultFanout) MatchFinished(result world.Result) {
	for _, sink := range f {
		if sink != nil {
			sink.MatchFinished(result)
		}
	}
}

var _ servernet.Controller = (*Host)(nil)
