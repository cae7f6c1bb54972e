package pipeline

import (
	"sync"
	"time"
)

// latencyWindow tracks traversal latencies over a sliding window.
type latencyWindow struct {
	mu      sync.Mutex
	window  time.Duration
	entries []latencyEntry
}

type latencyEntry struct {
	ts      time.Time
	latency time.Duration
}

func newLatencyWindow(window time.Duration) *latencyWindow {
	return &latencyWindow{
		window:  window,
		entries: make([]latencyEntry, 0, 128),
	}
}

// Record adds a latency sample.
func (w *latencyWindow) Record(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.trim(time.Now())
	w.entries = append(w.entries, latencyEntry{ts: time.Now(), latency: d})
}

// Avg returns the average latency and the sample count within the window.
func (w *latencyWindow) Avg() (avg time.Duration, count int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.trim(time.Now())
	if len(w.entries) == 0 {
		return 0, 0
	}
	var total time.Duration
	for _, e := range w.entries {
		total += e.latency
	}
	n := int64(len(w.entries))
	return total / time.Duration(n), n
}

// trim drops samples older than the window. Callers hold mu.
func (w *latencyWindow) trim(now time.Time) {
	cutoff := now.Add(-w.window)
	start := 0
	for start < len(w.entries) && w.entries[start].ts.Before(cutoff) {
		start++
	}
	if start > 0 {
		w.entries = append(w.entries[:0], w.entries[start:]...)
	}
}
