package bus

import (
	"context"
	"sync"
)

// MessageBus routes inbound events from channels to the pipeline and
// outbound replies from pipeline stages back to channels.
type MessageBus struct {
	Inbound  chan Event
	Outbound chan OutboundMessage

	mu          sync.RWMutex
	subscribers map[string][]func(OutboundMessage)
}

// NewMessageBus creates a new message bus with buffered channels.
func NewMessageBus() *MessageBus {
	return &MessageBus{
		Inbound:     make(chan Event, 100),
		Outbound:    make(chan OutboundMessage, 100),
		subscribers: make(map[string][]func(OutboundMessage)),
	}
}

// PublishInbound hands an event to the pipeline. Blocks when the buffer is full.
func (b *MessageBus) PublishInbound(ev Event) {
	b.Inbound <- ev
}

// PublishOutbound queues a message for delivery by its channel.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	b.Outbound <- msg
}

// Reply queues a text reply to the given event in the same chat.
func (b *MessageBus) Reply(ev *Event, text string) {
	b.PublishOutbound(OutboundMessage{
		Channel: ev.Channel,
		ChatID:  ev.Chat.ID,
		Content: text,
		ReplyTo: ev.MessageID,
	})
}

// Send queues a plain message to a chat on the given channel.
func (b *MessageBus) Send(channel string, chatID int64, text string) {
	b.PublishOutbound(OutboundMessage{Channel: channel, ChatID: chatID, Content: text})
}

// Subscribe registers a callback for outbound messages on a specific channel.
func (b *MessageBus) Subscribe(channel string, callback func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[channel] = append(b.subscribers[channel], callback)
}

// DispatchOutbound runs the outbound dispatch loop. Blocks until ctx is cancelled.
func (b *MessageBus) DispatchOutbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.Outbound:
			b.mu.RLock()
			subs := b.subscribers[msg.Channel]
			b.mu.RUnlock()
			for _, cb := range subs {
				cb(msg)
			}
		}
	}
}

// InboundSize returns the number of pending inbound events.
func (b *MessageBus) InboundSize() int {
	return len(b.Inbound)
}

// OutboundSize returns the number of pending outbound messages.
func (b *MessageBus) OutboundSize() int {
	return len(b.Outbound)
}
