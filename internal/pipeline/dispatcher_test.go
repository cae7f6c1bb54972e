package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/guardbot-go/internal/bus"
)

// recorder collects the names of stages as they run.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	r.order = append(r.order, name)
	r.mu.Unlock()
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func stage(rec *recorder, name string, res Result) Func {
	return Func{
		StageName: name,
		Fn: func(ctx context.Context, ev *bus.Event) (Result, error) {
			rec.add(name)
			return res, nil
		},
	}
}

func testEvent() *bus.Event {
	return &bus.Event{Kind: bus.KindMessage, Chat: bus.Chat{ID: -1, Type: bus.ChatGroup}, Text: "hi"}
}

func TestDispatch_AscendingPriority(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(nil)
	d.Register(stage(rec, "logger", Continue), 10)
	d.Register(stage(rec, "security", Continue), -100)
	d.Register(stage(rec, "router", Continue), -1)
	d.Register(stage(rec, "notes", Continue), 0)

	res := d.Dispatch(context.Background(), testEvent())

	assert.Equal(t, Continue, res)
	assert.Equal(t, []string{"security", "router", "notes", "logger"}, rec.get())
}

func TestDispatch_EqualPriorityKeepsRegistrationOrder(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(nil)
	d.Register(stage(rec, "a", Continue), -10)
	d.Register(stage(rec, "b", Continue), 5)
	d.Register(stage(rec, "c", Continue), -10)
	d.Register(stage(rec, "d", Continue), -10)

	d.Dispatch(context.Background(), testEvent())
	assert.Equal(t, []string{"a", "c", "d", "b"}, rec.get())

	infos := d.Stages()
	require.Len(t, infos, 4)
	assert.Equal(t, "a", infos[0].Name)
	assert.Equal(t, 5, infos[3].Priority)
}

func TestDispatch_StopShortCircuits(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(nil)
	d.Register(stage(rec, "first", Continue), -20)
	d.Register(stage(rec, "blocker", Stop), -10)
	d.Register(stage(rec, "never", Continue), 0)

	res := d.Dispatch(context.Background(), testEvent())

	assert.Equal(t, Stop, res)
	assert.Equal(t, []string{"first", "blocker"}, rec.get())
	assert.Equal(t, int64(1), d.Stats()["totalStopped"])
}

func TestDispatch_FilterSkipsStage(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(nil)
	s := stage(rec, "joins-only", Stop)
	s.Filter = func(ev *bus.Event) bool { return ev.Kind == bus.KindMemberJoined }
	d.Register(s, -20)
	d.Register(stage(rec, "after", Continue), 0)

	res := d.Dispatch(context.Background(), testEvent())
	assert.Equal(t, Continue, res)
	assert.Equal(t, []string{"after"}, rec.get())
}

func TestDispatch_PanicIsIsolated(t *testing.T) {
	rec := &recorder{}
	var reported []Fault
	var mu sync.Mutex
	d := NewDispatcher(FaultReporterFunc(func(ctx context.Context, f Fault) {
		mu.Lock()
		reported = append(reported, f)
		mu.Unlock()
	}))

	d.Register(Func{StageName: "boom", Fn: func(ctx context.Context, ev *bus.Event) (Result, error) {
		var m map[string]int
		m["x"] = 1 // nil map write
		return Stop, nil
	}}, -5)
	d.Register(stage(rec, "next", Continue), 0)

	res := d.Dispatch(context.Background(), testEvent())

	assert.Equal(t, Continue, res)
	assert.Equal(t, []string{"next"}, rec.get())
	require.Len(t, reported, 1)
	assert.Equal(t, "boom", reported[0].Stage)
	assert.NotNil(t, reported[0].Panic)
	assert.NotEmpty(t, reported[0].Stack)
	assert.Equal(t, int64(1), d.Stats()["totalFaults"])
}

func TestDispatch_ErrorTreatedAsContinue(t *testing.T) {
	rec := &recorder{}
	var faults atomic.Int32
	d := NewDispatcher(FaultReporterFunc(func(ctx context.Context, f Fault) {
		faults.Add(1)
	}))
	d.Register(Func{StageName: "flaky", Fn: func(ctx context.Context, ev *bus.Event) (Result, error) {
		return Stop, errors.New("db down")
	}}, 1)
	d.Register(stage(rec, "next", Continue), 2)

	assert.Equal(t, Continue, d.Dispatch(context.Background(), testEvent()))
	assert.Equal(t, []string{"next"}, rec.get())
	assert.Equal(t, int32(1), faults.Load())
}

func TestDispatch_ShutdownFinishesCurrentStageOnly(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(nil)

	d.Register(Func{StageName: "slow", Fn: func(stageCtx context.Context, ev *bus.Event) (Result, error) {
		cancel()
		// the running stage keeps a live context
		assert.NoError(t, stageCtx.Err())
		rec.add("slow")
		return Continue, nil
	}}, 0)
	d.Register(stage(rec, "later", Continue), 1)

	d.Dispatch(ctx, testEvent())
	assert.Equal(t, []string{"slow"}, rec.get())
}

func TestDispatch_StatsCountsInvocations(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(nil)
	d.Register(stage(rec, "a", Continue), 0)

	for i := 0; i < 3; i++ {
		d.Dispatch(context.Background(), testEvent())
	}
	stats := d.Stats()
	assert.Equal(t, int64(3), stats["totalEvents"])
	assert.Equal(t, int64(3), stats["invocations"].(map[string]int64)["a"])
	assert.Equal(t, 1, stats["totalStages"])
}

func TestRunner_ConcurrentTraversals(t *testing.T) {
	var running, peak atomic.Int32
	release := make(chan struct{})
	d := NewDispatcher(nil)
	d.Register(Func{StageName: "wait", Fn: func(ctx context.Context, ev *bus.Event) (Result, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		running.Add(-1)
		return Continue, nil
	}}, 0)

	r := NewRunner(d, 4)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		ev := bus.Event{Kind: bus.KindMessage, Chat: bus.Chat{ID: int64(-1 - i)}}
		require.True(t, r.Submit(ctx, ev))
	}

	assert.Eventually(t, func() bool { return running.Load() == 4 }, time.Second, 5*time.Millisecond)
	close(release)
	assert.True(t, r.Wait(time.Second))
	assert.Equal(t, int32(4), peak.Load())
	assert.Equal(t, int64(4), r.Processed())
	assert.Equal(t, int64(0), r.InFlight())
}

func TestRunner_SlowEventDoesNotBlockSameChat(t *testing.T) {
	release := make(chan struct{})
	fast := make(chan struct{})
	d := NewDispatcher(nil)
	d.Register(Func{StageName: "lookup", Fn: func(ctx context.Context, ev *bus.Event) (Result, error) {
		if ev.Text == "slow" {
			<-release
		} else {
			close(fast)
		}
		return Continue, nil
	}}, 0)

	r := NewRunner(d, 8)
	ctx := context.Background()
	require.True(t, r.Submit(ctx, bus.Event{Chat: bus.Chat{ID: -9}, Text: "slow"}))
	require.True(t, r.Submit(ctx, bus.Event{Chat: bus.Chat{ID: -9}, Text: "ban me"}))

	select {
	case <-fast:
	case <-time.After(time.Second):
		t.Fatal("second event waited for the first")
	}
	close(release)
	assert.True(t, r.Wait(time.Second))
}

func TestRunner_RunStopsOnClosedChannel(t *testing.T) {
	var count atomic.Int32
	d := NewDispatcher(nil)
	d.Register(Func{StageName: "count", Fn: func(ctx context.Context, ev *bus.Event) (Result, error) {
		count.Add(1)
		return Continue, nil
	}}, 0)

	events := make(chan bus.Event, 3)
	events <- bus.Event{}
	events <- bus.Event{}
	events <- bus.Event{}
	close(events)

	r := NewRunner(d, 2)
	r.Run(context.Background(), events)
	require.True(t, r.Wait(time.Second))
	assert.Equal(t, int32(3), count.Load())
}

func TestRunner_SubmitAfterCancel(t *testing.T) {
	d := NewDispatcher(nil)
	r := NewRunner(d, 1)
	r.sem <- struct{}{} // saturate

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, r.Submit(ctx, bus.Event{}))
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "stop", Stop.String())
	assert.Equal(t, "continue", Continue.String())
}
