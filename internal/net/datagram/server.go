// Package datagram carries actions and snapshots over UDP. It is the
// unreliable transport: clients register with a hello frame, submit actions
// that funnel into the same intake as the websocket, and receive snapshot
// frames at the match cadence.
package datagram

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"age-of-war/server/internal/match"
	"age-of-war/server/internal/net/proto"
	"age-of-war/server/internal/replication"
	"age-of-war/server/internal/telemetry"
	"age-of-war/server/internal/world"
)

// Source resolves the match datagrams are routed to.
type Source interface {
	Current() *match.Match
}

type Config struct {
	Logger  zerolog.Logger
	Metrics telemetry.Metrics
}

// Server owns a UDP socket. Registration is keyed by sender address.
type Server struct {
	conn    net.PacketConn
	source  Source
	logger  zerolog.Logger
	metrics telemetry.Metrics

	mu      sync.RWMutex
	players map[string]string
	addrs   map[string]net.Addr
}

// Listen binds addr.
func Listen(addr string, source Source, cfg Config) (*Server, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}
	return NewServer(conn, source, cfg), nil
}

// NewServer wraps an existing socket.
func NewServer(conn net.PacketConn, source Source, cfg Config) *Server {
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.Nop()
	}
	return &Server{
		conn:    conn,
		source:  source,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		players: make(map[string]string),
		addrs:   make(map[string]net.Addr),
	}
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr { return s.conn.LocalAddr() }

// Attach forwards every snapshot of m to registered clients and forgets
// registrations from the previous match.
func (s *Server) Attach(m *match.Match) {
	s.mu.Lock()
	s.players = make(map[string]string)
	s.addrs = make(map[string]net.Addr)
	s.mu.Unlock()
	m.OnSnapshot(s.push)
}

// Registered reports how many clients are registered.
func (s *Server) Registered() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.addrs)
}

// Serve reads datagrams until ctx is cancelled or the socket fails.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()
	buf := make([]byte, proto.MaxDatagramSize)
	for {
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.metrics.Add(telemetry.MetricDatagramsReceived, 1)
		s.handle(buf[:n], addr)
	}
}

// Close releases the socket.
func (s *Server) Close() error { return s.conn.Close() }

func (s *Server) handle(data []byte, addr net.Addr) {
	frame, err := proto.DecodeFrame(data)
	if err != nil {
		s.metrics.Add(telemetry.MetricDatagramDecodeErrs, 1)
		return
	}
	m := s.source.Current()
	if m == nil {
		return
	}

	switch frame.Kind {
	case proto.FrameHello:
		var hello proto.Hello
		if err := frame.Decode(&hello); err != nil || hello.PlayerID == "" {
			s.metrics.Add(telemetry.MetricDatagramDecodeErrs, 1)
			return
		}
		if hello.MatchID != "" && hello.MatchID != m.ID() {
			return
		}
		s.register(hello.PlayerID, addr)
		reply, err := proto.EncodeFrame(proto.FrameHello, proto.Hello{PlayerID: hello.PlayerID, MatchID: m.ID()})
		if err == nil {
			s.conn.WriteTo(reply, addr)
		}
	case proto.FrameAction:
		playerID, ok := s.playerFor(addr)
		if !ok {
			return
		}
		var action world.Action
		if err := frame.Decode(&action); err != nil {
			s.metrics.Add(telemetry.MetricDatagramDecodeErrs, 1)
			return
		}
		action.PlayerID = playerID
		if ok, reason := m.Intake().Submit(action, "udp"); !ok {
			s.logger.Debug().Str("player", playerID).Str("reason", reason).Msg("datagram action refused")
		}
	default:
		s.metrics.Add(telemetry.MetricDatagramDecodeErrs, 1)
	}
}

func (s *Server) register(playerID string, addr net.Addr) {
	key := addr.String()
	s.mu.Lock()
	for k, id := range s.players {
		if id == playerID && k != key {
			delete(s.players, k)
			delete(s.addrs, k)
		}
	}
	s.players[key] = playerID
	s.addrs[key] = addr
	s.mu.Unlock()
	s.logger.Debug().Str("player", playerID).Str("addr", key).Msg("datagram client registered")
}

func (s *Server) playerFor(addr net.Addr) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.players[addr.String()]
	return id, ok
}

func (s *Server) push(snap replication.Snapshot) {
	s.mu.RLock()
	targets := make([]net.Addr, 0, len(s.addrs))
	for _, addr := range s.addrs {
		targets = append(targets, addr)
	}
	s.mu.RUnlock()
	if len(targets) == 0 {
		return
	}
	data, err := proto.EncodeFrame(proto.FrameSnapshot, snap)
	if err != nil {
		s.logger.Warn().Err(err).Msg("snapshot does not fit a datagram")
		return
	}
	for _, addr := range targets {
		if _, err := s.conn.WriteTo(data, addr); err != nil {
			s.logger.Debug().Err(err).Str("addr", addr.String()).Msg("datagram write failed")
		}
	}
}
