package store

import (
	"context"
	"sync"
	"time"

	"age-of-war/server/internal/world"
)

// Saver is the write side of a Store.
type Saver interface {
	SaveResult(ctx context.Context, result world.Result) error
}

// Recorder is a world.ResultSink that writes results off the tick path.
type Recorder struct {
	saver   Saver
	results chan world.Result
	timeout time.Duration
	wg      sync.WaitGroup
	once    sync.Once
	onSaved func(world.Result, error)
}

// NewRecorder starts the writer goroutine. onSaved may be nil.
func NewRecorder(saver Saver, buffer int, onSaved func(world.Result, error)) *Recorder {
	if buffer <= 0 {
		buffer = 8
	}
	r := &Recorder{
		saver:   saver,
		results: make(chan world.Result, buffer),
		timeout: 5 * time.Second,
		onSaved: onSaved,
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// MatchFinished queues result. A full queue drops it.
func (r *Recorder) MatchFinished(result world.Result) {
	select {
	case r.results <- result:
	default:
		if r.onSaved != nil {
			r.onSaved(result, context.DeadlineExceeded)
		}
	}
}

// Close flushes queued results and stops the writer.
func (r *Recorder) Close() {
	r.once.Do(func() { close(r.results) })
	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for result := range r.results {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.saver.SaveResult(ctx, result)
		cancel()
		if r.onSaved != nil {
			r.onSaved(result, err)
		}
	}
}
