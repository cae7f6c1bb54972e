package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewMessageBus(t *testing.T) {
	bus := NewMessageBus()
	assert.NotNil(t, bus)
	assert.Equal(t, 0, bus.InboundSize())
	assert.Equal(t, 0, bus.OutboundSize())
}

func TestMessageBus_PublishConsumeInbound(t *testing.T) {
	bus := NewMessageBus()
	bus.PublishInbound(Event{Channel: "telegram", Kind: KindMessage, Text: "hello"})
	assert.Equal(t, 1, bus.InboundSize())

	received := <-bus.Inbound
	assert.Equal(t, "hello", received.Text)
	assert.Equal(t, "telegram", received.Channel)
}

func TestMessageBus_Reply(t *testing.T) {
	bus := NewMessageBus()
	ev := &Event{Channel: "telegram", Chat: Chat{ID: -5}, MessageID: 12}
	bus.Reply(ev, "pong")

	msg := <-bus.Outbound
	assert.Equal(t, "telegram", msg.Channel)
	assert.Equal(t, int64(-5), msg.ChatID)
	assert.Equal(t, int64(12), msg.ReplyTo)
	assert.Equal(t, "pong", msg.Content)
}

func TestMessageBus_SubscribeAndDispatch(t *testing.T) {
	bus := NewMessageBus()

	var received []OutboundMessage
	var mu sync.Mutex

	bus.Subscribe("telegram", func(msg OutboundMessage) {
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go bus.DispatchOutbound(ctx)

	bus.Send("telegram", 1, "reply")

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, received, 1)
	assert.Equal(t, "reply", received[0].Content)
}

func TestMessageBus_SubscribeDoesNotReceiveOtherChannels(t *testing.T) {
	bus := NewMessageBus()

	var received []OutboundMessage
	var mu sync.Mutex

	bus.Subscribe("telegram", func(msg OutboundMessage) {
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go bus.DispatchOutbound(ctx)

	bus.Send("discord", 1, "wrong")
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, received, 0)
}

func TestMessageBus_ConcurrentPublish(t *testing.T) {
	bus := NewMessageBus()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.PublishInbound(Event{Channel: "test", Text: "msg"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, bus.InboundSize())
}
