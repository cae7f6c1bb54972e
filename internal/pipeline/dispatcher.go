package pipeline

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/dayuer/guardbot-go/internal/bus"
)

type entry struct {
	stage    Stage
	priority int
}

// StageInfo describes a registered stage.
type StageInfo struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

// Dispatcher holds the ordered stage chain.
// Stages run in ascending priority; equal priorities keep registration order.
type Dispatcher struct {
	mu       sync.RWMutex
	entries  []entry
	reporter FaultReporter
	debug    bool

	// Stats
	totalEvents  atomic.Int64
	totalStopped atomic.Int64
	totalFaults  atomic.Int64
	statsMu      sync.Mutex
	invocations  map[string]int64
}

// NewDispatcher creates an empty dispatcher. reporter may be nil.
func NewDispatcher(reporter FaultReporter) *Dispatcher {
	return &Dispatcher{
		reporter:    reporter,
		invocations: make(map[string]int64),
	}
}

// SetDebug enables per-stage trace logging.
func (d *Dispatcher) SetDebug(on bool) {
	d.mu.Lock()
	d.debug = on
	d.mu.Unlock()
}

// Register inserts stage at priority. Registration happens at bootstrap,
// before the first Dispatch.
func (d *Dispatcher) Register(stage Stage, priority int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries = append(d.entries, entry{stage: stage, priority: priority})
	// insertion step, strictly-greater keeps equal priorities in registration order
	for j := len(d.entries) - 1; j > 0 && d.entries[j-1].priority > d.entries[j].priority; j-- {
		d.entries[j], d.entries[j-1] = d.entries[j-1], d.entries[j]
	}
}

// Stages returns the chain in execution order.
func (d *Dispatcher) Stages() []StageInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]StageInfo, len(d.entries))
	for i, e := range d.entries {
		out[i] = StageInfo{Name: e.stage.Name(), Priority: e.priority}
	}
	return out
}

// Dispatch runs the chain for one event and returns Stop if a stage stopped it.
// If ctx is cancelled the current stage finishes and no further stage starts.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *bus.Event) Result {
	d.mu.RLock()
	chain := make([]entry, len(d.entries))
	copy(chain, d.entries)
	debugOn := d.debug
	d.mu.RUnlock()

	d.totalEvents.Add(1)

	// stages see a context that survives shutdown so the running one can finish
	stageCtx := context.WithoutCancel(ctx)

	for _, e := range chain {
		if ctx.Err() != nil {
			log.Printf("[Dispatcher] ⚠️ shutdown, skipping remaining stages for %s", ev.Summary())
			return Continue
		}
		if !e.stage.Accepts(ev) {
			continue
		}
		d.countInvocation(e.stage.Name())

		res := d.runStage(stageCtx, e.stage, ev)
		if debugOn {
			log.Printf("[Dispatcher] %s (%d) → %s", e.stage.Name(), e.priority, res)
		}
		if res == Stop {
			d.totalStopped.Add(1)
			return Stop
		}
	}
	return Continue
}

// runStage invokes one stage, turning panics and errors into reported faults.
func (d *Dispatcher) runStage(ctx context.Context, stage Stage, ev *bus.Event) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			d.fault(ctx, Fault{
				Stage: stage.Name(),
				Event: ev,
				Err:   fmt.Errorf("panic: %v", p),
				Panic: p,
				Stack: debug.Stack(),
			})
			res = Continue
		}
	}()

	res, err := stage.Handle(ctx, ev)
	if err != nil {
		d.fault(ctx, Fault{Stage: stage.Name(), Event: ev, Err: err})
		return Continue
	}
	return res
}

func (d *Dispatcher) fault(ctx context.Context, f Fault) {
	d.totalFaults.Add(1)
	log.Printf("[Dispatcher] ❌ stage %s faulted on %s: %v", f.Stage, f.Event.Summary(), f.Err)
	if d.reporter != nil {
		d.reporter.Report(ctx, f)
	}
}

func (d *Dispatcher) countInvocation(name string) {
	d.statsMu.Lock()
	d.invocations[name]++
	d.statsMu.Unlock()
}

// Stats returns dispatcher statistics.
func (d *Dispatcher) Stats() map[string]any {
	d.statsMu.Lock()
	perStage := make(map[string]int64, len(d.invocations))
	for k, v := range d.invocations {
		perStage[k] = v
	}
	d.statsMu.Unlock()

	d.mu.RLock()
	count := len(d.entries)
	d.mu.RUnlock()

	return map[string]any{
		"totalStages":  count,
		"totalEvents":  d.totalEvents.Load(),
		"totalStopped": d.totalStopped.Load(),
		"totalFaults":  d.totalFaults.Load(),
		"invocations":  perStage,
	}
}
