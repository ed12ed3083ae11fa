package net

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"age-of-war/server"
	"age-of-war/server/internal/lobby"
	"age-of-war/server/internal/match"
	"age-of-war/server/internal/observability"
	"age-of-war/server/internal/store"
	"age-of-war/server/internal/world"
	"age-of-war/server/logging"
)

// Controller is the host surface the HTTP API drives.
type Controller interface {
	Lobby() lobby.View
	Join(id, name, color string) (lobby.View, error)
	AddBot(requester string) (lobby.Member, error)
	Kick(requester, target string) error
	SwitchTeam(requester, target string, team int) error
	UpdateSettings(requester string, settings world.Settings) (world.Settings, error)
	StartMatch(ctx context.Context, requester string) error
	ResetLobby(ctx context.Context, requester string) error
	Leave(ctx context.Context, id string) error
	Current() *match.Match
	RecentResults(ctx context.Context, limit int) ([]store.MatchRecord, error)
}

type HTTPHandlerConfig struct {
	Logger        zerolog.Logger
	Observability observability.Config
	// Router, when set, contributes its drop counters to /diagnostics.
	Router *logging.Router
	// Websocket serves /ws.
	Websocket nethttp.HandlerFunc
}

type lobbyRequest struct {
	PlayerID string          `json:"playerId"`
	Name     string          `json:"name,omitempty"`
	Color    string          `json:"color,omitempty"`
	Target   string          `json:"target,omitempty"`
	Team     int             `json:"team,omitempty"`
	Settings *world.Settings `json:"settings,omitempty"`
}

const requestTimeout = 5 * time.Second

func NewHTTPHandler(ctrl Controller, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string               `json:"status"`
			ServerTime int64                `json:"serverTime"`
			Heartbeat  int64                `json:"heartbeatMillis"`
			Lobby      lobby.View           `json:"lobby"`
			Match      *match.Diagnostics   `json:"match,omitempty"`
			Router     *logging.RouterStats `json:"router,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Heartbeat:  server.HeartbeatInterval.Milliseconds(),
			Lobby:      ctrl.Lobby(),
		}
		if m := ctrl.Current(); m != nil {
			ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
			diag, err := m.Diagnostics(ctx)
			cancel()
			if err == nil {
				payload.Match = &diag
			}
		}
		if cfg.Router != nil {
			stats := cfg.Router.Stats()
			payload.Router = &stats
		}
		writeJSON(w, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/lobby", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, nethttp.StatusOK, ctrl.Lobby())
	})

	lobbyAction := func(path string, fn func(r *nethttp.Request, req lobbyRequest) (any, error)) {
		mux.HandleFunc(path, func(w nethttp.ResponseWriter, r *nethttp.Request) {
			if r.Method != nethttp.MethodPost {
				httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
				return
			}
			var req lobbyRequest
			if r.Body != nil {
				defer r.Body.Close()
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
					httpError(w, "invalid payload", nethttp.StatusBadRequest)
					return
				}
			}
			if req.PlayerID == "" {
				httpError(w, "missing playerId", nethttp.StatusBadRequest)
				return
			}
			result, err := fn(r, req)
			if err != nil {
				code := statusFor(err)
				if code == nethttp.StatusInternalServerError {
					logger.Error().Err(err).Str("path", path).Msg("lobby request failed")
				}
				httpError(w, err.Error(), code)
				return
			}
			if result == nil {
				result = ctrl.Lobby()
			}
			writeJSON(w, nethttp.StatusOK, result)
		})
	}

	lobbyAction("/lobby/join", func(_ *nethttp.Request, req lobbyRequest) (any, error) {
		return ctrl.Join(req.PlayerID, req.Name, req.Color)
	})
	lobbyAction("/lobby/bot", func(_ *nethttp.Request, req lobbyRequest) (any, error) {
		return ctrl.AddBot(req.PlayerID)
	})
	lobbyAction("/lobby/kick", func(_ *nethttp.Request, req lobbyRequest) (any, error) {
		return nil, ctrl.Kick(req.PlayerID, req.Target)
	})
	lobbyAction("/lobby/team", func(_ *nethttp.Request, req lobbyRequest) (any, error) {
		target := req.Target
		if target == "" {
			target = req.PlayerID
		}
		return nil, ctrl.SwitchTeam(req.PlayerID, target, req.Team)
	})
	lobbyAction("/lobby/settings", func(_ *nethttp.Request, req lobbyRequest) (any, error) {
		if req.Settings == nil {
			return nil, errMissingSettings
		}
		return ctrl.UpdateSettings(req.PlayerID, *req.Settings)
	})
	lobbyAction("/lobby/start", func(r *nethttp.Request, req lobbyRequest) (any, error) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		return nil, ctrl.StartMatch(ctx, req.PlayerID)
	})
	lobbyAction("/lobby/reset", func(r *nethttp.Request, req lobbyRequest) (any, error) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		return nil, ctrl.ResetLobby(ctx, req.PlayerID)
	})
	lobbyAction("/lobby/leave", func(r *nethttp.Request, req lobbyRequest) (any, error) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		return nil, ctrl.Leave(ctx, req.PlayerID)
	})

	matchControl := func(path string, fn func(ctx context.Context, m *match.Match) error) {
		mux.HandleFunc(path, func(w nethttp.ResponseWriter, r *nethttp.Request) {
			if r.Method != nethttp.MethodPost {
				httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
				return
			}
			m := ctrl.Current()
			if m == nil {
				httpError(w, "no active match", nethttp.StatusServiceUnavailable)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
			defer cancel()
			if err := fn(ctx, m); err != nil {
				httpError(w, err.Error(), statusFor(err))
				return
			}
			diag, err := m.Diagnostics(ctx)
			if err != nil {
				httpError(w, err.Error(), statusFor(err))
				return
			}
			writeJSON(w, nethttp.StatusOK, diag)
		})
	}
	matchControl("/match/pause", func(ctx context.Context, m *match.Match) error { return m.Pause(ctx) })
	matchControl("/match/resume", func(ctx context.Context, m *match.Match) error { return m.Resume(ctx) })

	mux.HandleFunc("/results", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil || value <= 0 {
				httpError(w, "invalid limit", nethttp.StatusBadRequest)
				return
			}
			limit = value
		}
		records, err := ctrl.RecentResults(r.Context(), limit)
		if err != nil {
			code := statusFor(err)
			if code == nethttp.StatusInternalServerError {
				logger.Error().Err(err).Msg("failed to load results")
			}
			httpError(w, err.Error(), code)
			return
		}
		writeJSON(w, nethttp.StatusOK, struct {
			Results []store.MatchRecord `json:"results"`
		}{Results: records})
	})

	if cfg.Websocket != nil {
		mux.HandleFunc("/ws", cfg.Websocket)
	}

	if cfg.Observability.EnablePprofTrace {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	return mux
}

var errMissingSettings = errors.New("missing settings")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lobby.ErrUnknownPlayer), errors.Is(err, match.ErrUnknownPlayer):
		return nethttp.StatusNotFound
	case errors.Is(err, lobby.ErrNotHost):
		return nethttp.StatusForbidden
	case errors.Is(err, lobby.ErrLobbyFull), errors.Is(err, lobby.ErrNotWaiting),
		errors.Is(err, lobby.ErrNotFinished), errors.Is(err, lobby.ErrClosed),
		errors.Is(err, match.ErrInvalidPhase):
		return nethttp.StatusConflict
	case errors.Is(err, lobby.ErrNotEnough), errors.Is(err, lobby.ErrTeamsUneven),
		errors.Is(err, lobby.ErrInvalidTeam), errors.Is(err, lobby.ErrKickHost),
		errors.Is(err, match.ErrEmptyRoster), errors.Is(err, errMissingSettings):
		return nethttp.StatusBadRequest
	case errors.Is(err, store.ErrDisabled), errors.Is(err, match.ErrStopped),
		errors.Is(err, context.DeadlineExceeded):
		return nethttp.StatusServiceUnavailable
	default:
		return nethttp.StatusInternalServerError
	}
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
