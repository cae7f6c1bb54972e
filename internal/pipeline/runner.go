package pipeline

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dayuer/guardbot-go/internal/bus"
)

// Runner feeds events into a Dispatcher, one goroutine per event.
// Traversals of different events may interleave; stages within one
// traversal never do.
type Runner struct {
	dispatcher *Dispatcher
	sem        chan struct{}
	wg         sync.WaitGroup
	inFlight   atomic.Int64
	processed  atomic.Int64
	latency    *latencyWindow
}

// NewRunner creates a runner with at most maxInFlight concurrent traversals.
func NewRunner(d *Dispatcher, maxInFlight int) *Runner {
	if maxInFlight <= 0 {
		maxInFlight = 64
	}
	return &Runner{
		dispatcher: d,
		sem:        make(chan struct{}, maxInFlight),
		latency:    newLatencyWindow(time.Minute),
	}
}

// Run consumes events until ctx is cancelled or the channel is closed.
// It does not wait for in-flight traversals; call Wait for that.
func (r *Runner) Run(ctx context.Context, events <-chan bus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !r.Submit(ctx, ev) {
				return
			}
		}
	}
}

// Submit starts a traversal for ev. It blocks while the in-flight limit is
// reached and returns false if ctx is cancelled first.
func (r *Runner) Submit(ctx context.Context, ev bus.Event) bool {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return false
	}

	r.wg.Add(1)
	r.inFlight.Add(1)
	go func() {
		start := time.Now()
		defer func() {
			r.latency.Record(time.Since(start))
			<-r.sem
			r.inFlight.Add(-1)
			r.processed.Add(1)
			r.wg.Done()
		}()
		r.dispatcher.Dispatch(ctx, &ev)
	}()
	return true
}

// Wait blocks until all traversals finish or the timeout elapses.
// Returns true if everything finished.
func (r *Runner) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		log.Printf("[Runner] ⚠️ %d traversals still running after %s", r.inFlight.Load(), timeout)
		return false
	}
}

// InFlight returns the number of running traversals.
func (r *Runner) InFlight() int64 {
	return r.inFlight.Load()
}

// Processed returns the number of completed traversals.
func (r *Runner) Processed() int64 {
	return r.processed.Load()
}

// Stats returns runner statistics. Latency covers the last minute.
func (r *Runner) Stats() map[string]any {
	avg, n := r.latency.Avg()
	return map[string]any{
		"inFlight":     r.inFlight.Load(),
		"processed":    r.processed.Load(),
		"avgLatencyMs": avg.Milliseconds(),
		"recentEvents": n,
		"maxInFlight":  cap(r.sem),
	}
}
