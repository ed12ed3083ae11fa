package ws

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"age-of-war/server/internal/match"
)

// Source resolves the match a new session attaches to.
type Source interface {
	Current() *match.Match
}

type HandlerConfig struct {
	Logger           zerolog.Logger
	SubscribeTimeout time.Duration
}

// Handler upgrades HTTP requests into match sessions.
type Handler struct {
	source   Source
	logger   zerolog.Logger
	timeout  time.Duration
	upgrader websocket.Upgrader
}

func NewHandler(source Source, cfg HandlerConfig) *Handler {
	timeout := cfg.SubscribeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		source:   source,
		logger:   cfg.Logger,
		timeout:  timeout,
		upgrader: upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	playerID := r.URL.Query().Get("id")
	if playerID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}
	m := h.source.Current()
	if m == nil {
		nethttp.Error(w, "no match", nethttp.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("player", playerID).Msg("upgrade failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	sub, err := m.Subscribe(ctx, playerID, "ws", conn)
	cancel()
	if err != nil {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	h.Serve(m, sub, conn)
}
