// Package reporting is the operator error channel: recovered faults are
// logged with their stack and a short notice goes to the operator chat.
package reporting

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/pipeline"
)

// Reporter implements pipeline.FaultReporter.
type Reporter struct {
	bus     *bus.MessageBus
	channel string
	chatID  int64
	window  time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
	total    int64
}

// New creates a reporter that notifies chatID on channel. chatID 0 disables notices.
// window is the minimum gap between notices for the same stage.
func New(msgBus *bus.MessageBus, channel string, chatID int64, window time.Duration) *Reporter {
	if window <= 0 {
		window = time.Minute
	}
	return &Reporter{
		bus:      msgBus,
		channel:  channel,
		chatID:   chatID,
		window:   window,
		lastSent: make(map[string]time.Time),
	}
}

// Report logs the fault and, unless rate-limited, notifies the operator chat.
func (r *Reporter) Report(ctx context.Context, f pipeline.Fault) {
	id := uuid.NewString()[:8]
	log.Printf("[Fault] ❌ %s stage=%s event=%s err=%v", id, f.Stage, f.Event.Summary(), f.Err)
	if len(f.Stack) > 0 {
		log.Printf("[Fault] %s stack:\n%s", id, f.Stack)
	}

	r.mu.Lock()
	r.total++
	now := time.Now()
	if last, ok := r.lastSent[f.Stage]; ok && now.Sub(last) < r.window {
		r.mu.Unlock()
		return
	}
	r.lastSent[f.Stage] = now
	r.mu.Unlock()

	r.Notify(fmt.Sprintf("⚠️ Fault %s in %s\nChat: %d\nError: %v", id, f.Stage, chatOf(f.Event), f.Err))
}

// Notify sends an operational notice to the operator chat without blocking.
func (r *Reporter) Notify(text string) {
	if r.bus == nil || r.chatID == 0 {
		return
	}
	select {
	case r.bus.Outbound <- bus.OutboundMessage{Channel: r.channel, ChatID: r.chatID, Content: text}:
	default:
		log.Printf("[Fault] ⚠️ outbound queue full, dropping operator notice")
	}
}

// Total returns the number of faults reported.
func (r *Reporter) Total() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

func chatOf(ev *bus.Event) int64 {
	if ev == nil {
		return 0
	}
	return ev.Chat.ID
}
