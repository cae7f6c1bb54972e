// Package pipeline runs rule stages over inbound events in a fixed priority
// order. Any stage may stop processing for the event; a faulting stage is
// reported and skipped without affecting the rest of the chain.
package pipeline

import (
	"context"

	"github.com/dayuer/guardbot-go/internal/bus"
)

// Result is the outcome of one stage for one event.
type Result int

const (
	// Continue lets the next stage run.
	Continue Result = iota
	// Stop ends the traversal for this event.
	Stop
)

func (r Result) String() string {
	if r == Stop {
		return "stop"
	}
	return "continue"
}

// Stage is one rule in the chain.
type Stage interface {
	Name() string
	// Accepts is the stage's event filter. Only accepted events reach Handle.
	Accepts(ev *bus.Event) bool
	Handle(ctx context.Context, ev *bus.Event) (Result, error)
}

// Func adapts plain functions into a Stage.
type Func struct {
	StageName string
	Filter    func(ev *bus.Event) bool
	Fn        func(ctx context.Context, ev *bus.Event) (Result, error)
}

func (f Func) Name() string { return f.StageName }

func (f Func) Accepts(ev *bus.Event) bool {
	if f.Filter == nil {
		return true
	}
	return f.Filter(ev)
}

func (f Func) Handle(ctx context.Context, ev *bus.Event) (Result, error) {
	return f.Fn(ctx, ev)
}

// Fault describes a stage or command body that panicked or returned an error.
type Fault struct {
	Stage string
	Event *bus.Event
	Err   error
	Panic any
	Stack []byte
}

// FaultReporter receives recovered faults. Implementations must not block for long.
type FaultReporter interface {
	Report(ctx context.Context, f Fault)
}

// FaultReporterFunc adapts a function into a FaultReporter.
type FaultReporterFunc func(ctx context.Context, f Fault)

func (fn FaultReporterFunc) Report(ctx context.Context, f Fault) { fn(ctx, f) }
