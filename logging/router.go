package logging

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads wall time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

// Router fans published events out to sink workers without blocking publishers.
type Router struct {
	cfg          Config
	queue        chan Event
	sinks        []*sinkWorker
	clock        Clock
	fallback     zerolog.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	closed       atomic.Bool
	fields       map[string]any
	wg           sync.WaitGroup
	dispatchOnce sync.Once

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
	lastDropLog  atomic.Int64

	categoryMu     sync.Mutex
	categoryCounts map[string]uint64
}

type RouterStats struct {
	EventsTotal  uint64            `json:"eventsTotal"`
	DroppedTotal uint64            `json:"droppedTotal"`
	SinkDrops    map[string]uint64 `json:"sinkDrops,omitempty"`
	ByCategory   map[string]uint64 `json:"byCategory,omitempty"`
}

// Option customizes a Router.
type Option func(*Router)

// WithFallback replaces the stderr logger used for router diagnostics.
func WithFallback(logger zerolog.Logger) Option {
	return func(r *Router) {
		r.fallback = logger
	}
}

func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink, opts ...Option) (*Router, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 512
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		cfg:            cfg,
		queue:          make(chan Event, bufferSize),
		clock:          clock,
		fallback:       zerolog.New(os.Stderr).With().Timestamp().Str("component", "logging").Logger(),
		ctx:            ctx,
		cancel:         cancel,
		fields:         cfg.CloneFields(),
		categoryCounts: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}

	sinkBuffer := bufferSize
	if sinkBuffer > 1024 {
		sinkBuffer = 1024
	}
	if sinkBuffer < 32 {
		sinkBuffer = 32
	}

	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		r.sinks = append(r.sinks, newSinkWorker(named.Name, named.Sink, sinkBuffer, r.fallback))
	}

	r.start()
	return r, nil
}

func (r *Router) start() {
	r.dispatchOnce.Do(func() {
		r.wg.Add(1)
		go func() {
			defer func() {
				for _, worker := range r.sinks {
					close(worker.events)
				}
				r.wg.Done()
			}()
			for {
				select {
				case <-r.ctx.Done():
					r.drain()
					return
				case event := <-r.queue:
					r.forward(event)
				}
			}
		}()

		for _, worker := range r.sinks {
			r.wg.Add(1)
			go func(w *sinkWorker) {
				defer r.wg.Done()
				w.run()
			}(worker)
		}
	})
}

func (r *Router) drain() {
	for {
		select {
		case event := <-r.queue:
			r.forward(event)
		default:
			return
		}
	}
}

func (r *Router) forward(event Event) {
	if event.Severity < r.cfg.Threshold(event.Category) {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	if len(r.fields) > 0 {
		event = cloneEvent(event)
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(r.fields))
		}
		for k, v := range r.fields {
			if _, exists := event.Extra[k]; !exists {
				event.Extra[k] = v
			}
		}
	}
	r.eventsTotal.Add(1)
	category := event.Category
	if category == "" {
		category = "uncategorized"
	}
	r.categoryMu.Lock()
	r.categoryCounts[category]++
	r.categoryMu.Unlock()
	for _, worker := range r.sinks {
		worker.enqueue(event)
	}
}

// Publish queues an event. Events are dropped when the queue is full.
func (r *Router) Publish(ctx context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.handleDrop(event)
	}
}

func (r *Router) handleDrop(event Event) {
	r.droppedTotal.Add(1)
	interval := r.cfg.DropWarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := time.Now().UnixNano()
	next := r.lastDropLog.Load()
	if next == 0 || now >= next {
		if r.lastDropLog.CompareAndSwap(next, now+interval.Nanoseconds()) {
			r.fallback.Warn().Str("type", string(event.Type)).Uint64("tick", event.Tick).Msg("dropping event")
		}
	}
}

func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, worker := range r.sinks {
		if err := worker.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	stats := RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
	}
	for _, worker := range r.sinks {
		if drops := worker.drops.Load(); drops > 0 {
			if stats.SinkDrops == nil {
				stats.SinkDrops = make(map[string]uint64)
			}
			stats.SinkDrops[worker.name] = drops
		}
	}
	r.categoryMu.Lock()
	if len(r.categoryCounts) > 0 {
		stats.ByCategory = make(map[string]uint64, len(r.categoryCounts))
		for k, v := range r.categoryCounts {
			stats.ByCategory[k] = v
		}
	}
	r.categoryMu.Unlock()
	return stats
}

func (r *Router) Sink(name string) Sink {
	for _, worker := range r.sinks {
		if worker.name == name {
			return worker.sink
		}
	}
	return nil
}

type sinkWorker struct {
	name      string
	sink      Sink
	events    chan Event
	fallback  zerolog.Logger
	failures  int
	nextRetry time.Time
	drops     atomic.Uint64
}

func newSinkWorker(name string, sink Sink, buffer int, fallback zerolog.Logger) *sinkWorker {
	if buffer <= 0 {
		buffer = 32
	}
	return &sinkWorker{
		name:     name,
		sink:     sink,
		events:   make(chan Event, buffer),
		fallback: fallback,
	}
}

func (w *sinkWorker) enqueue(event Event) {
	select {
	case w.events <- cloneEvent(event):
	default:
		if w.drops.Add(1)&63 == 1 {
			w.fallback.Warn().Str("sink", w.name).Str("type", string(event.Type)).Msg("sink backlog full")
		}
	}
}

func (w *sinkWorker) run() {
	for event := range w.events {
		w.waitUntilReady()
		if err := w.sink.Write(event); err != nil {
			w.fail(err)
		} else {
			w.failures = 0
			w.nextRetry = time.Time{}
		}
	}
}

func (w *sinkWorker) waitUntilReady() {
	if w.failures == 0 || w.nextRetry.IsZero() {
		return
	}
	if wait := time.Until(w.nextRetry); wait > 0 {
		time.Sleep(wait)
	}
}

func (w *sinkWorker) fail(err error) {
	w.failures++
	delay := time.Duration(1<<min(w.failures, 5)) * time.Second
	w.nextRetry = time.Now().Add(delay)
	w.fallback.Error().Err(err).Str("sink", w.name).Dur("retry", delay).Msg("sink write failed")
}
