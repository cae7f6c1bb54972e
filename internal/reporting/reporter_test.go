package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/pipeline"
)

func TestReport_NotifiesOperatorChat(t *testing.T) {
	mb := bus.NewMessageBus()
	r := New(mb, "telegram", 100, time.Minute)

	r.Report(context.Background(), pipeline.Fault{
		Stage: "notes",
		Event: &bus.Event{Chat: bus.Chat{ID: -5}},
		Err:   errors.New("boom"),
	})

	require.Equal(t, 1, mb.OutboundSize())
	msg := <-mb.Outbound
	assert.Equal(t, int64(100), msg.ChatID)
	assert.Contains(t, msg.Content, "notes")
	assert.Contains(t, msg.Content, "boom")
	assert.Contains(t, msg.Content, "-5")
}

func TestReport_RateLimitedPerStage(t *testing.T) {
	mb := bus.NewMessageBus()
	r := New(mb, "telegram", 100, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r.Report(ctx, pipeline.Fault{Stage: "filters", Err: errors.New("x")})
	}
	r.Report(ctx, pipeline.Fault{Stage: "afk", Err: errors.New("y")})

	assert.Equal(t, 2, mb.OutboundSize())
	assert.Equal(t, int64(4), r.Total())
}

func TestReport_NoChatConfigured(t *testing.T) {
	mb := bus.NewMessageBus()
	r := New(mb, "telegram", 0, time.Minute)
	r.Report(context.Background(), pipeline.Fault{Stage: "x", Err: errors.New("e")})
	assert.Equal(t, 0, mb.OutboundSize())
	assert.Equal(t, int64(1), r.Total())
}
