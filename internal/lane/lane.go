// Package lane runs jobs one at a time per key, in submission order.
// Each key gets its own worker goroutine, which exits after sitting idle.
package lane

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Job is a unit of work queued on a lane.
type Job func()

// lane is a single key's queue and worker.
type lane struct {
	key   int64
	queue chan Job
}

// Manager owns the lanes for all keys.
type Manager struct {
	mu          sync.RWMutex
	lanes       map[int64]*lane
	queueSize   int
	idleTimeout time.Duration

	created   atomic.Int64
	completed atomic.Int64
}

// ManagerConfig configures a lane Manager.
type ManagerConfig struct {
	QueueSize   int           // Per-lane buffer (default 100)
	IdleTimeout time.Duration // Worker exits after this long without work (default 1m)
}

// NewManager creates a lane manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = time.Minute
	}
	return &Manager{
		lanes:       make(map[int64]*lane),
		queueSize:   cfg.QueueSize,
		idleTimeout: cfg.IdleTimeout,
	}
}

// Submit queues job on key's lane. Jobs on the same key run sequentially in
// the order Submit returned; jobs on different keys run concurrently.
// It blocks while the lane's queue is full and returns ctx.Err() if ctx is
// cancelled first, in which case job never runs.
func (m *Manager) Submit(ctx context.Context, key int64, job Job) error {
	m.mu.RLock()
	l, ok := m.lanes[key]
	if ok {
		// the worker cannot retire while we hold the read lock
		err := enqueue(ctx, l, job)
		m.mu.RUnlock()
		return err
	}
	m.mu.RUnlock()

	m.mu.Lock()
	l, ok = m.lanes[key]
	if !ok {
		l = &lane{key: key, queue: make(chan Job, m.queueSize)}
		m.lanes[key] = l
		m.created.Add(1)
		go m.runWorker(l)
	}
	err := enqueue(ctx, l, job)
	m.mu.Unlock()
	return err
}

func enqueue(ctx context.Context, l *lane, job Job) error {
	select {
	case l.queue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runWorker drains one lane until it has been idle for idleTimeout.
func (m *Manager) runWorker(l *lane) {
	idle := time.NewTimer(m.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case job := <-l.queue:
			job()
			m.completed.Add(1)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(m.idleTimeout)
		case <-idle.C:
			m.mu.Lock()
			if len(l.queue) == 0 {
				delete(m.lanes, l.key)
				m.mu.Unlock()
				return
			}
			m.mu.Unlock()
			idle.Reset(m.idleTimeout)
		}
	}
}

// Len returns the number of live lanes.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lanes)
}

// Stats returns lane statistics.
func (m *Manager) Stats() map[string]any {
	m.mu.RLock()
	queued := 0
	for _, l := range m.lanes {
		queued += len(l.queue)
	}
	live := len(m.lanes)
	m.mu.RUnlock()

	return map[string]any{
		"liveLanes":    live,
		"queued":       queued,
		"lanesCreated": m.created.Load(),
		"jobsDone":     m.completed.Load(),
	}
}
