package match

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"age-of-war/server"
	"age-of-war/server/internal/telemetry"
	"age-of-war/server/logging"
	"age-of-war/server/logging/network"
)

// DefaultSendBuffer is the per-subscriber outbound queue length.
const DefaultSendBuffer = 64

// Conn is the subset of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Subscriber is one attached participant stream. Writes happen on a single
// goroutine; Send never blocks.
type Subscriber struct {
	PlayerID  string
	Transport string

	hub     *Hub
	conn    Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
	lastSeq atomic.Uint64
}

// Send queues data for the writer goroutine. A full queue drops the message.
func (s *Subscriber) Send(kind string, data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
	}
	dropped := s.dropped.Add(1)
	s.hub.metrics.Add(telemetry.MetricSubscriberDrops, 1)
	network.MessageDropped(context.Background(), s.hub.publisher, 0, logging.PlayerRef(s.PlayerID), network.MessageDroppedPayload{
		Transport: s.Transport,
		Message:   kind,
		Dropped:   dropped,
	})
	return false
}

// Dropped reports how many messages were discarded for this subscriber.
func (s *Subscriber) Dropped() uint64 { return s.dropped.Load() }

// LastCommandSeq returns the highest acknowledged command sequence.
func (s *Subscriber) LastCommandSeq() uint64 { return s.lastSeq.Load() }

// StoreLastCommandSeq records an acknowledged command sequence.
func (s *Subscriber) StoreLastCommandSeq(seq uint64) { s.lastSeq.Store(seq) }

// Done is closed once the subscriber is detached.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *Subscriber) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(server.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.hub.logger.Debug().Err(err).Str("player", s.PlayerID).Msg("subscriber write failed")
				s.hub.Detach(s, "write_failed")
				return
			}
		}
	}
}

// Hub fans host messages out to every attached subscriber.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber

	buffer    int
	logger    zerolog.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
}

// HubConfig wires the hub's ambient dependencies.
type HubConfig struct {
	Buffer    int
	Logger    zerolog.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// NewHub constructs an empty hub.
func NewHub(cfg HubConfig) *Hub {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultSendBuffer
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.Nop()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		buffer:      cfg.Buffer,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		publisher:   cfg.Publisher,
	}
}

// Attach registers conn for playerID, replacing and closing any previous
// stream for the same player.
func (h *Hub) Attach(playerID, transport string, conn Conn) *Subscriber {
	sub := &Subscriber{
		PlayerID:  playerID,
		Transport: transport,
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, h.buffer),
		done:      make(chan struct{}),
	}
	h.mu.Lock()
	existing := h.subscribers[playerID]
	h.subscribers[playerID] = sub
	h.mu.Unlock()
	if existing != nil {
		existing.close()
	}
	go sub.writeLoop()
	network.SubscriberConnected(context.Background(), h.publisher, logging.PlayerRef(playerID), network.SubscriberPayload{Transport: transport})
	return sub
}

// Detach removes sub if it is still the active stream for its player.
func (h *Hub) Detach(sub *Subscriber, reason string) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	if current, ok := h.subscribers[sub.PlayerID]; ok && current == sub {
		delete(h.subscribers, sub.PlayerID)
	}
	h.mu.Unlock()
	sub.close()
	network.SubscriberDisconnected(context.Background(), h.publisher, logging.PlayerRef(sub.PlayerID), network.SubscriberPayload{
		Transport: sub.Transport,
		Reason:    reason,
	})
}

// Broadcast queues data on every subscriber.
func (h *Hub) Broadcast(kind string, data []byte) int {
	delivered := 0
	for _, sub := range h.Subscribers() {
		if sub.Send(kind, data) {
			delivered++
		}
	}
	return delivered
}

// Subscribers returns a copy of the attached subscribers.
func (h *Hub) Subscribers() []*Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	return subs
}

// Count reports attached subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close detaches every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[string]*Subscriber)
	h.mu.Unlock()
	for _, sub := range subs {
		sub.close()
	}
}
