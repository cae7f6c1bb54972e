package channels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dayuer/guardbot-go/internal/bus"
)

// RunChannelContractTests runs the standard contract tests that ALL channels must pass.
func RunChannelContractTests(t *testing.T, ch Channel) {
	t.Helper()

	t.Run("Contract/Name_NonEmpty", func(t *testing.T) {
		assert.NotEmpty(t, ch.Name(), "Channel.Name() must return non-empty string")
	})
	t.Run("Contract/NotRunningBeforeStart", func(t *testing.T) {
		assert.False(t, ch.IsRunning())
	})
	t.Run("Contract/StopBeforeStart", func(t *testing.T) {
		assert.NoError(t, ch.Stop())
	})
}

func TestBaseChannel_IsAllowed_EmptyList(t *testing.T) {
	b := &BaseChannel{}
	assert.True(t, b.IsAllowed(bus.Chat{ID: -100, Type: bus.ChatSupergroup}))
}

func TestBaseChannel_IsAllowed_InList(t *testing.T) {
	b := &BaseChannel{AllowChats: []int64{-100, -200}}
	assert.True(t, b.IsAllowed(bus.Chat{ID: -100, Type: bus.ChatSupergroup}))
	assert.True(t, b.IsAllowed(bus.Chat{ID: -200, Type: bus.ChatGroup}))
	assert.False(t, b.IsAllowed(bus.Chat{ID: -300, Type: bus.ChatSupergroup}))
}

func TestBaseChannel_IsAllowed_PrivateAlwaysAllowed(t *testing.T) {
	b := &BaseChannel{AllowChats: []int64{-100}}
	assert.True(t, b.IsAllowed(bus.Chat{ID: 42, Type: bus.ChatPrivate}))
}

func TestBaseChannel_Publish_Allowed(t *testing.T) {
	mb := bus.NewMessageBus()
	b := &BaseChannel{ChannelName: "test", Bus: mb}

	ok := b.Publish(context.Background(), &bus.Event{Channel: "test", Chat: bus.Chat{ID: -1, Type: bus.ChatGroup}, Text: "hello"})
	assert.True(t, ok)
	assert.Equal(t, 1, mb.InboundSize())

	ev := <-mb.Inbound
	assert.Equal(t, "test", ev.Channel)
	assert.Equal(t, "hello", ev.Text)
}

func TestBaseChannel_Publish_Denied(t *testing.T) {
	mb := bus.NewMessageBus()
	b := &BaseChannel{ChannelName: "test", Bus: mb, AllowChats: []int64{-1}}

	ok := b.Publish(context.Background(), &bus.Event{Chat: bus.Chat{ID: -2, Type: bus.ChatGroup}})
	assert.False(t, ok)
	assert.Equal(t, 0, mb.InboundSize())
}

func TestBaseChannel_Publish_GivesUpOnCancel(t *testing.T) {
	mb := bus.NewMessageBus()
	b := &BaseChannel{Bus: mb}
	for i := 0; i < cap(mb.Inbound); i++ {
		mb.Inbound <- bus.Event{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, b.Publish(ctx, &bus.Event{}))
}
