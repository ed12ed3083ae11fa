package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"age-of-war/server/internal/config"
	"age-of-war/server/internal/lobby"
	"age-of-war/server/internal/net/client"
	"age-of-war/server/internal/net/proto"
	"age-of-war/server/internal/replication"
	"age-of-war/server/internal/sim"
	"age-of-war/server/internal/tui"
	"age-of-war/server/internal/world"
)

const clientFrameRate = 60

// ClientConfig drives a player process.
type ClientConfig struct {
	Settings config.ClientConfig
	Logger   zerolog.Logger
	// Screen renders the mirror; nil runs headless.
	Screen tcell.Screen
	Audio  world.AudioPort
	HTTP   *http.Client
}

// HTTPBase converts a server URL of any scheme into its http(s) origin.
func HTTPBase(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "http", "":
		u.Scheme = "http"
	case "wss", "https":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server URL %q has no host", serverURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// JoinLobby registers playerID with the host lobby.
func JoinLobby(ctx context.Context, httpClient *http.Client, serverURL, playerID, name string) (lobby.View, error) {
	base, err := HTTPBase(serverURL)
	if err != nil {
		return lobby.View{}, err
	}
	body, err := json.Marshal(map[string]string{"playerId": playerID, "name": name})
	if err != nil {
		return lobby.View{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/lobby/join", bytes.NewReader(body))
	if err != nil {
		return lobby.View{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return lobby.View{}, fmt.Errorf("join lobby: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return lobby.View{}, fmt.Errorf("join lobby: %s", resp.Status)
	}
	var view lobby.View
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return lobby.View{}, fmt.Errorf("decode lobby: %w", err)
	}
	return view, nil
}

// session is the client-side state of one connection.
type session struct {
	id       string
	logger   zerolog.Logger
	conn     *client.Client
	audio    world.AudioPort
	mirror   *replication.Mirror
	matchID  string
	renderer *tui.Renderer
	result   *world.Result
}

// RunClient joins the lobby, mirrors the match and, with a screen, renders
// it and turns keystrokes into actions. It returns when ctx ends, the player
// quits or the connection gives up.
func RunClient(ctx context.Context, cfg ClientConfig) error {
	settings := cfg.Settings
	playerID := settings.PlayerID
	if playerID == "" {
		playerID = "p-" + uuid.NewString()[:8]
	}
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	logger := cfg.Logger.With().Str("player", playerID).Logger()

	if view, err := JoinLobby(ctx, httpClient, settings.ServerURL, playerID, settings.Name); err != nil {
		logger.Warn().Err(err).Msg("could not join lobby, connecting as spectator")
	} else {
		logger.Info().Str("lobby", view.ID).Int("players", len(view.Members)).Msg("joined lobby")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &session{
		id:     playerID,
		logger: logger,
		audio:  cfg.Audio,
		conn: client.New(client.Config{
			ServerURL: settings.ServerURL,
			PlayerID:  playerID,
			Datagram:  settings.Datagram,
			Fallback:  settings.Fallback,
			Logger:    logger,
		}),
	}
	runErr := make(chan error, 1)
	go func() { runErr <- s.conn.Run(ctx) }()

	events := make(chan tcell.Event, 16)
	if cfg.Screen != nil {
		s.renderer = tui.NewRenderer(cfg.Screen, playerID)
		go func() {
			for {
				ev := cfg.Screen.PollEvent()
				if ev == nil {
					return
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	ticker := time.NewTicker(time.Second / clientFrameRate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-runErr:
			if err != nil {
				return fmt.Errorf("connection: %w", err)
			}
			return nil
		case msg := <-s.conn.Messages():
			s.handleMessage(msg)
		case now := <-ticker.C:
			if s.mirror == nil {
				continue
			}
			s.mirror.Frame(now)
			if s.renderer != nil {
				s.renderer.Draw(s.mirror.World(), s.mirror.DisplayGold())
			}
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				cfg.Screen.Sync()
			case *tcell.EventKey:
				if !s.handleKey(tui.KeyCommand(ev), time.Now()) {
					return nil
				}
			}
		}
	}
}

func (s *session) handleMessage(msg proto.ServerMessage) {
	switch {
	case msg.Start != nil:
		if s.mirror != nil && s.matchID == msg.Start.MatchID {
			// Resent when the host starts; settings may have been configured since.
			s.mirror.World().Settings = msg.Start.Settings.Normalized()
			return
		}
		s.matchID = msg.Start.MatchID
		s.result = nil
		s.mirror = replication.NewMirror(replication.MirrorConfig{
			MatchID:  msg.Start.MatchID,
			LocalID:  s.id,
			Settings: msg.Start.Settings,
			Profile:  replication.ParseProfile(msg.Start.Profile),
			Ports:    world.Ports{Audio: s.audio},
			Deps:     sim.Deps{Logger: s.logger},
		})
		s.logger.Info().Str("match", s.matchID).Str("profile", msg.Start.Profile).Msg("mirroring match")
	case msg.Snapshot != nil:
		if s.mirror != nil && msg.Snapshot.MatchID == s.matchID {
			s.mirror.ApplySnapshot(*msg.Snapshot)
		}
	case msg.Phase != nil:
		if s.mirror != nil {
			s.mirror.ApplyPhase(msg.Phase.Phase)
		}
	case msg.Result != nil:
		s.result = msg.Result
		event := s.logger.Info().Str("match", msg.Result.MatchID).Bool("draw", msg.Result.Draw)
		if msg.Result.WinnerID != "" {
			event = event.Str("winner", msg.Result.WinnerID).Bool("won", msg.Result.WinnerID == s.id)
		}
		if msg.Result.WinningTeam != 0 {
			event = event.Int("winningTeam", msg.Result.WinningTeam)
		}
		event.Msg("match finished")
	}
}

// handleKey turns a command into an action. It returns false on quit.
func (s *session) handleKey(cmd tui.Command, now time.Time) bool {
	if cmd.Kind == tui.CmdQuit {
		return false
	}
	if s.mirror == nil {
		return true
	}
	w := s.mirror.World()
	me := w.Player(s.id)
	if me == nil {
		return true
	}

	var (
		action world.Action
		ok     bool
	)
	switch cmd.Kind {
	case tui.CmdQueue:
		var unitID string
		if unitID, ok = tui.UnitForSlot(me, cmd.Slot); ok {
			action, ok = s.mirror.RequestUnit(unitID, now)
		}
	case tui.CmdUpgrade:
		action, ok = world.Action{Kind: world.ActionUpgrade, PlayerID: s.id}, true
	case tui.CmdSpecial:
		if target := w.Player(me.TargetID); target != nil {
			action, ok = world.Action{Kind: world.ActionSpecial, PlayerID: s.id, X: target.Pos.X, Y: target.Pos.Y}, true
		}
	case tui.CmdCycleTarget:
		if next := tui.NextTarget(w, s.id, me.TargetID); next != "" && next != me.TargetID {
			action, ok = world.Action{Kind: world.ActionSetTarget, PlayerID: s.id, TargetID: next}, true
		}
	}
	if !ok {
		return true
	}
	if err := s.conn.Send(action); err != nil {
		s.logger.Debug().Err(err).Str("action", string(action.Kind)).Msg("send failed")
	}
	return true
}
