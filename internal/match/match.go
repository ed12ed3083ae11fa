// Package match runs one authoritative match: it owns the world, drives the
// host loop on a single goroutine, and publishes snapshots, phase changes and
// the final result to attached subscribers.
package match

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"age-of-war/server/internal/net/intake"
	"age-of-war/server/internal/net/proto"
	"age-of-war/server/internal/replication"
	"age-of-war/server/internal/sim"
	"age-of-war/server/internal/telemetry"
	"age-of-war/server/internal/world"
	"age-of-war/server/logging"
)

var (
	// ErrStopped is returned once the match goroutine has exited.
	ErrStopped = errors.New("match stopped")
	// ErrInvalidPhase is returned when a lifecycle call does not fit the current phase.
	ErrInvalidPhase = errors.New("invalid phase for operation")
	// ErrUnknownPlayer is returned when a non-seated player subscribes to a running match.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrEmptyRoster is returned when a match is started without players.
	ErrEmptyRoster = errors.New("empty roster")
)

// Config describes a match.
type Config struct {
	MatchID          string
	Seed             string
	Settings         world.Settings
	Profile          replication.Profile
	SnapshotInterval float64
	Loop             sim.LoopConfig
	Intake           intake.Config
	Hub              HubConfig
	Deps             sim.Deps
	Ports            world.Ports
	// Datagram is the advertised UDP endpoint, empty when disabled.
	Datagram string
}

// Diagnostics is a point-in-time summary of a match.
type Diagnostics struct {
	MatchID          string      `json:"matchId"`
	Phase            world.Phase `json:"phase"`
	Tick             uint64      `json:"tick"`
	Players          int         `json:"players"`
	Alive            int         `json:"alive"`
	Units            int         `json:"units"`
	Projectiles      int         `json:"projectiles"`
	Subscribers      int         `json:"subscribers"`
	PendingActions   int         `json:"pendingActions"`
	SnapshotInterval float64     `json:"snapshotInterval"`
	Suspended        bool        `json:"suspended"`
}

// Match is the host-side actor for one world.
type Match struct {
	config      Config
	world       *world.World
	engine      *sim.Engine
	loop        *sim.HostLoop
	snapshotter *replication.Snapshotter
	hub         *Hub
	intake      *intake.Intake
	logger      zerolog.Logger
	metrics     telemetry.Metrics

	jobs     chan func()
	done     chan struct{}
	running  atomic.Bool
	seats    atomic.Pointer[map[string]struct{}]
	settings atomic.Pointer[world.Settings]

	listenersMu sync.RWMutex
	listeners   []func(replication.Snapshot)
}

// New builds a match in the waiting phase. Call Run to start its goroutine.
func New(cfg Config) *Match {
	deps := cfg.Deps
	if deps.Metrics == nil {
		deps.Metrics = telemetry.Nop()
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	w := world.New(world.Config{MatchID: cfg.MatchID, Settings: cfg.Settings, Seed: cfg.Seed, Ports: cfg.Ports})
	cfg.MatchID = w.MatchID
	deps.Publisher = logging.ForMatch(deps.Publisher, w.MatchID, nil)
	deps.Logger = deps.Logger.With().Str("match", w.MatchID).Logger()

	m := &Match{
		config:  cfg,
		world:   w,
		engine:  sim.NewEngine(w, deps),
		logger:  deps.Logger,
		metrics: deps.Metrics,
		jobs:    make(chan func(), 16),
		done:    make(chan struct{}),
	}
	empty := map[string]struct{}{}
	m.seats.Store(&empty)
	settings := w.Settings
	m.settings.Store(&settings)

	hubCfg := cfg.Hub
	hubCfg.Logger = deps.Logger
	if hubCfg.Metrics == nil {
		hubCfg.Metrics = deps.Metrics
	}
	if hubCfg.Publisher == nil {
		hubCfg.Publisher = deps.Publisher
	}
	m.hub = NewHub(hubCfg)

	m.loop = sim.NewHostLoop(m.engine, cfg.Loop, sim.LoopHooks{
		AfterFrame: m.afterFrame,
		OnActionDrop: func(reason string, a world.Action) {
			m.logger.Debug().Str("player", a.PlayerID).Str("reason", reason).Msg("action dropped")
		},
		OnQueueWarning: func(length int) {
			m.logger.Warn().Int("pending", length).Msg("action queue growing")
		},
	})
	m.snapshotter = replication.NewSnapshotter(cfg.Profile, cfg.SnapshotInterval, deps.Metrics)

	intakeCfg := cfg.Intake
	intakeCfg.HasPlayer = m.HasPlayer
	if intakeCfg.Metrics == nil {
		intakeCfg.Metrics = deps.Metrics
	}
	if intakeCfg.Publisher == nil {
		intakeCfg.Publisher = deps.Publisher
	}
	if intakeCfg.Clock == nil {
		intakeCfg.Clock = deps.Clock
	}
	m.intake = intake.New(m.loop, intakeCfg)

	w.Subscribe(world.ObserverFunc(m.observe))
	return m
}

// ID returns the match identifier.
func (m *Match) ID() string { return m.config.MatchID }

// Settings returns the normalized match settings. Safe for concurrent use.
func (m *Match) Settings() world.Settings { return *m.settings.Load() }

// Hub returns the subscriber fan-out.
func (m *Match) Hub() *Hub { return m.hub }

// Intake returns the submission entry point shared by every transport.
func (m *Match) Intake() *intake.Intake { return m.intake }

// Done is closed when Run returns.
func (m *Match) Done() <-chan struct{} { return m.done }

// HasPlayer reports whether id holds a seat. Safe for concurrent use.
func (m *Match) HasPlayer(id string) bool {
	_, ok := (*m.seats.Load())[id]
	return ok
}

// OnSnapshot registers fn to receive every periodic snapshot on the match
// goroutine. fn must not block.
func (m *Match) OnSnapshot(fn func(replication.Snapshot)) {
	if fn == nil {
		return
	}
	m.listenersMu.Lock()
	m.listeners = append(m.listeners, fn)
	m.listenersMu.Unlock()
}

// Run drives the host loop until ctx is cancelled. It may be called once.
func (m *Match) Run(ctx context.Context) {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	defer close(m.done)
	defer m.hub.Close()
	m.logger.Info().Str("profile", string(m.config.Profile)).Float64("snapshotInterval", m.snapshotter.Interval()).Msg("match loop running")
	m.loop.Run(ctx, m.jobs)
}

// Start seats roster and enters the playing phase.
func (m *Match) Start(ctx context.Context, roster []world.Seat) error {
	if len(roster) == 0 {
		return ErrEmptyRoster
	}
	return m.do(ctx, func() error {
		if !m.engine.Start(roster) {
			return ErrInvalidPhase
		}
		seats := make(map[string]struct{}, len(roster))
		for _, s := range roster {
			seats[s.ID] = struct{}{}
		}
		m.seats.Store(&seats)
		m.loop.Resume(m.engine.Deps().Clock.Now())
		// Lobby subscribers got their start message before Configure could
		// run, so resend it with the settings the match actually plays with.
		for _, sub := range m.hub.Subscribers() {
			start, err := m.startMessage(sub.PlayerID)
			if err != nil {
				return err
			}
			sub.Send(proto.TypeStart, start)
		}
		m.publish(replication.State(m.world))
		return nil
	})
}

// Pause suspends a playing match and stops tick advancement.
func (m *Match) Pause(ctx context.Context) error {
	return m.do(ctx, func() error {
		if !m.engine.Pause() {
			return ErrInvalidPhase
		}
		m.loop.Suspend()
		return nil
	})
}

// Resume continues a paused match without replaying the paused interval.
func (m *Match) Resume(ctx context.Context) error {
	return m.do(ctx, func() error {
		if !m.engine.Resume() {
			return ErrInvalidPhase
		}
		m.loop.Resume(m.engine.Deps().Clock.Now())
		return nil
	})
}

// Configure replaces the settings of a match that has not started.
func (m *Match) Configure(ctx context.Context, settings world.Settings) error {
	return m.do(ctx, func() error {
		if m.world.Phase != world.PhaseWaiting {
			return ErrInvalidPhase
		}
		normalized := settings.Normalized()
		m.world.Settings = normalized
		m.settings.Store(&normalized)
		return nil
	})
}

// Subscribe attaches conn and queues the start message plus a full state
// snapshot ahead of any later broadcast.
func (m *Match) Subscribe(ctx context.Context, playerID, transport string, conn Conn) (*Subscriber, error) {
	var sub *Subscriber
	err := m.do(ctx, func() error {
		if m.world.Phase != world.PhaseWaiting && m.world.Player(playerID) == nil {
			return ErrUnknownPlayer
		}
		start, err := m.startMessage(playerID)
		if err != nil {
			return err
		}
		state, err := proto.EncodeSnapshot(replication.State(m.world))
		if err != nil {
			return err
		}
		sub = m.hub.Attach(playerID, transport, conn)
		sub.Send(proto.TypeStart, start)
		sub.Send(proto.TypeSnapshot, state)
		return nil
	})
	return sub, err
}

func (m *Match) startMessage(playerID string) ([]byte, error) {
	return proto.EncodeStart(proto.StartV1{
		MatchID:  m.world.MatchID,
		PlayerID: playerID,
		Settings: m.world.Settings,
		Profile:  string(m.config.Profile),
		Datagram: m.config.Datagram,
	})
}

// Unsubscribe detaches sub and forgets the player's rate limiter.
func (m *Match) Unsubscribe(sub *Subscriber, reason string) {
	if sub == nil {
		return
	}
	m.hub.Detach(sub, reason)
	m.intake.Forget(sub.PlayerID)
}

// Diagnostics collects a summary on the match goroutine.
func (m *Match) Diagnostics(ctx context.Context) (Diagnostics, error) {
	var d Diagnostics
	err := m.do(ctx, func() error {
		w := m.world
		d = Diagnostics{
			MatchID:          w.MatchID,
			Phase:            w.Phase,
			Tick:             w.Tick,
			Players:          len(w.Players),
			Alive:            len(w.AlivePlayers()),
			Units:            len(w.Units),
			Projectiles:      len(w.Projectiles),
			Subscribers:      m.hub.Count(),
			PendingActions:   m.loop.Pending(),
			SnapshotInterval: m.snapshotter.Interval(),
			Suspended:        m.loop.Suspended(),
		}
		return nil
	})
	return d, err
}

// Snapshot returns a non-draining copy of the current state.
func (m *Match) Snapshot(ctx context.Context) (replication.Snapshot, error) {
	var snap replication.Snapshot
	err := m.do(ctx, func() error {
		snap = replication.State(m.world)
		return nil
	})
	return snap, err
}

// do runs fn on the match goroutine and waits for its result.
func (m *Match) do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	job := func() { result <- fn() }
	select {
	case m.jobs <- job:
	case <-m.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-m.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Match) afterFrame(res sim.FrameResult) {
	snap, ok := m.snapshotter.Advance(m.world, res.Delta)
	if !ok {
		return
	}
	m.publish(snap)
}

func (m *Match) publish(snap replication.Snapshot) {
	data, err := proto.EncodeSnapshot(snap)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to encode snapshot")
		return
	}
	m.metrics.Add(telemetry.MetricSnapshotBytes, uint64(len(data)))
	m.hub.Broadcast(proto.TypeSnapshot, data)

	m.listenersMu.RLock()
	listeners := m.listeners
	m.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

func (m *Match) observe(n world.Notification) {
	switch n.Kind {
	case world.NotifyPhase:
		data, err := proto.EncodePhase(n.Phase, n.Tick)
		if err != nil {
			m.logger.Error().Err(err).Msg("failed to encode phase")
			return
		}
		m.hub.Broadcast(proto.TypePhase, data)
	case world.NotifyFinish:
		if n.Result == nil {
			return
		}
		data, err := proto.EncodeResult(*n.Result)
		if err != nil {
			m.logger.Error().Err(err).Msg("failed to encode result")
			return
		}
		m.hub.Broadcast(proto.TypeResult, data)
	}
}
