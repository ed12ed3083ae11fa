// Package client connects a player to a hosted match. The websocket is the
// reliable channel and reconnects with exponential backoff; when the host
// advertises a datagram address, actions and snapshots also travel over UDP
// and unconfirmed actions are resent over the websocket.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"age-of-war/server/internal/net/proto"
	"age-of-war/server/internal/replication"
	"age-of-war/server/internal/world"
)

const (
	sendBufferSize  = 256
	inboxSize       = 256
	writeWait       = 10 * time.Second
	helloRetry      = 250 * time.Millisecond
	helloAttempts   = 8
	defaultFallback = 500 * time.Millisecond
)

// ErrGaveUp is returned by Run once MaxAttempts consecutive dials failed.
var ErrGaveUp = errors.New("client: reconnect attempts exhausted")

type Config struct {
	// ServerURL is the http(s) or ws(s) base of the host.
	ServerURL string
	PlayerID  string
	// Datagram enables the UDP channel when the host advertises one.
	Datagram bool
	// Fallback is how long a datagram action may stay unconfirmed before it
	// is resent over the websocket.
	Fallback       time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxAttempts bounds consecutive failed dials. Zero retries forever.
	MaxAttempts int
	Heartbeat   time.Duration
	Logger      zerolog.Logger
	Dialer      *websocket.Dialer
}

func (c Config) withDefaults() Config {
	if c.Fallback <= 0 {
		c.Fallback = defaultFallback
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 2 * time.Second
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
	return c
}

// Client owns the connections of one player. Decoded server messages are
// delivered on Messages in arrival order.
type Client struct {
	cfg    Config
	logger zerolog.Logger

	inbox  chan proto.ServerMessage
	sendCh chan []byte
	seq    atomic.Uint64

	mu          sync.Mutex
	udp         net.Conn
	registered  bool
	outstanding map[string]world.Action
	matchID     string

	connected atomic.Bool
}

func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:         cfg,
		logger:      cfg.Logger.With().Str("player", cfg.PlayerID).Logger(),
		inbox:       make(chan proto.ServerMessage, inboxSize),
		sendCh:      make(chan []byte, sendBufferSize),
		outstanding: make(map[string]world.Action),
	}
}

// Messages yields server messages from both channels.
func (c *Client) Messages() <-chan proto.ServerMessage { return c.inbox }

// Connected reports whether a websocket session is live.
func (c *Client) Connected() bool { return c.connected.Load() }

// DatagramReady reports whether the host acknowledged our hello.
func (c *Client) DatagramReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registered
}

// Run dials and serves sessions until ctx is cancelled, reconnecting with
// exponential backoff after each failure.
func (c *Client) Run(ctx context.Context) error {
	defer c.closeDatagram()
	backoff := c.cfg.InitialBackoff
	failures := 0
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			if c.cfg.MaxAttempts > 0 && failures >= c.cfg.MaxAttempts {
				return fmt.Errorf("%w: %v", ErrGaveUp, err)
			}
			c.logger.Warn().Err(err).Int("attempt", failures).Dur("backoff", backoff).Msg("dial failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.cfg.MaxBackoff {
				backoff = c.cfg.MaxBackoff
			}
			continue
		}

		failures = 0
		backoff = c.cfg.InitialBackoff
		c.logger.Info().Msg("connected")
		c.session(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn().Msg("connection lost, reconnecting")
	}
}

// Send submits an action. With a registered datagram channel the action goes
// over UDP first and is resent over the websocket unless a snapshot confirms
// it within the fallback delay; the host drops the duplicate by request id.
func (c *Client) Send(a world.Action) error {
	if a.RequestID == "" {
		a.RequestID = world.NewRequestID()
	}

	c.mu.Lock()
	udp, registered := c.udp, c.registered
	if registered {
		c.outstanding[a.RequestID] = a
	}
	c.mu.Unlock()

	if registered {
		data, err := proto.EncodeFrame(proto.FrameAction, a)
		if err != nil {
			return fmt.Errorf("encode datagram action: %w", err)
		}
		if _, err := udp.Write(data); err != nil {
			c.logger.Debug().Err(err).Msg("datagram write failed")
		}
		time.AfterFunc(c.cfg.Fallback, func() { c.fallback(a.RequestID) })
		return nil
	}
	return c.sendReliable(a)
}

func (c *Client) fallback(requestID string) {
	c.mu.Lock()
	a, ok := c.outstanding[requestID]
	delete(c.outstanding, requestID)
	c.mu.Unlock()
	if !ok {
		return
	}
	if err := c.sendReliable(a); err != nil {
		c.logger.Debug().Err(err).Str("reqId", requestID).Msg("fallback send failed")
	}
}

func (c *Client) sendReliable(a world.Action) error {
	msg := proto.ActionMessage(a)
	seq := c.seq.Add(1)
	msg.CommandSeq = &seq
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) error {
	select {
	case c.sendCh <- data:
		return nil
	default:
		return errors.New("client: send buffer full")
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	target, err := WebsocketURL(c.cfg.ServerURL, c.cfg.PlayerID)
	if err != nil {
		return nil, err
	}
	conn, resp, err := c.cfg.Dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *Client) session(ctx context.Context, conn *websocket.Conn) {
	c.connected.Store(true)
	defer c.connected.Store(false)

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-sessionCtx.Done()
		conn.Close()
	}()
	go c.writeLoop(sessionCtx, conn, cancel)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := proto.DecodeServerMessage(payload)
		if err != nil {
			c.logger.Debug().Err(err).Msg("discarding malformed server message")
			continue
		}
		switch {
		case msg.Start != nil:
			c.mu.Lock()
			c.matchID = msg.Start.MatchID
			c.mu.Unlock()
			if c.cfg.Datagram && msg.Start.Datagram != "" {
				c.openDatagram(sessionCtx, msg.Start.Datagram, msg.Start.MatchID)
			}
		case msg.Snapshot != nil:
			c.confirm(*msg.Snapshot)
		}
		select {
		case c.inbox <- msg:
		case <-sessionCtx.Done():
			return
		}
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	heartbeat := time.NewTicker(c.cfg.Heartbeat)
	defer heartbeat.Stop()
	write := func(data []byte) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			c.logger.Debug().Err(err).Msg("websocket write failed")
			cancel()
			return false
		}
		return true
	}
	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case data := <-c.sendCh:
			if !write(data) {
				return
			}
		case now := <-heartbeat.C:
			data, _ := json.Marshal(proto.ClientMessage{
				Ver:    proto.Version,
				Type:   proto.TypeHeartbeat,
				SentAt: now.UnixMilli(),
			})
			if !write(data) {
				return
			}
		}
	}
}

// confirm clears outstanding actions the host has queued.
func (c *Client) confirm(snap replication.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.outstanding) == 0 {
		return
	}
	for _, p := range snap.Players {
		for _, item := range p.SpawnQueue {
			delete(c.outstanding, item.RequestID)
		}
	}
}

func (c *Client) openDatagram(ctx context.Context, advertised, matchID string) {
	addr, err := DatagramAddr(c.cfg.ServerURL, advertised)
	if err != nil {
		c.logger.Warn().Err(err).Msg("ignoring datagram address")
		return
	}
	c.closeDatagram()
	udp, err := net.Dial("udp", addr)
	if err != nil {
		c.logger.Warn().Err(err).Str("addr", addr).Msg("datagram dial failed")
		return
	}
	c.mu.Lock()
	c.udp = udp
	c.registered = false
	c.mu.Unlock()

	go c.datagramLoop(ctx, udp)
	go c.hello(ctx, udp, matchID)
}

func (c *Client) hello(ctx context.Context, udp net.Conn, matchID string) {
	data, err := proto.EncodeFrame(proto.FrameHello, proto.Hello{PlayerID: c.cfg.PlayerID, MatchID: matchID})
	if err != nil {
		return
	}
	for i := 0; i < helloAttempts; i++ {
		if c.DatagramReady() {
			return
		}
		udp.Write(data)
		select {
		case <-ctx.Done():
			return
		case <-time.After(helloRetry):
		}
	}
	c.logger.Info().Msg("datagram hello unanswered, staying on websocket")
}

func (c *Client) datagramLoop(ctx context.Context, udp net.Conn) {
	buf := make([]byte, proto.MaxDatagramSize)
	for {
		n, err := udp.Read(buf)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				c.logger.Debug().Err(err).Msg("datagram read failed")
			}
			c.mu.Lock()
			if c.udp == udp {
				c.registered = false
			}
			c.mu.Unlock()
			return
		}
		frame, err := proto.DecodeFrame(buf[:n])
		if err != nil {
			continue
		}
		switch frame.Kind {
		case proto.FrameHello:
			c.mu.Lock()
			if c.udp == udp {
				c.registered = true
			}
			c.mu.Unlock()
			c.logger.Debug().Msg("datagram channel registered")
		case proto.FrameSnapshot:
			var snap replication.Snapshot
			if err := frame.Decode(&snap); err != nil {
				continue
			}
			c.confirm(snap)
			select {
			case c.inbox <- proto.ServerMessage{Type: proto.TypeSnapshot, Snapshot: &snap}:
			default:
			}
		}
	}
}

func (c *Client) closeDatagram() {
	c.mu.Lock()
	udp := c.udp
	c.udp = nil
	c.registered = false
	c.mu.Unlock()
	if udp != nil {
		udp.Close()
	}
}

// WebsocketURL turns a server base URL into the /ws endpoint for playerID.
func WebsocketURL(base, playerID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server URL %q has no host", base)
	}
	u.Path = "/ws"
	q := u.Query()
	q.Set("id", playerID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DatagramAddr resolves an advertised datagram address against the server
// URL. Hosts advertising only a port (":9001") are reached on the server host.
func DatagramAddr(base, advertised string) (string, error) {
	host, port, err := net.SplitHostPort(advertised)
	if err != nil {
		return "", fmt.Errorf("invalid datagram address %q: %w", advertised, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		u, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("invalid server URL: %w", err)
		}
		host = u.Hostname()
	}
	return net.JoinHostPort(host, port), nil
}
