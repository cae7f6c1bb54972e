// Package channels connects chat platforms to the message bus: each channel
// turns platform updates into bus events and delivers outbound replies.
package channels

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/dayuer/guardbot-go/internal/bus"
)

// Channel is the interface that all chat platform integrations must implement.
type Channel interface {
	// Name returns the channel identifier (e.g., "telegram").
	Name() string

	// Start connects to the platform and begins listening. Blocks until ctx is cancelled.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop() error

	// Send delivers an outbound message through this channel.
	Send(msg bus.OutboundMessage) error

	// IsRunning returns whether the channel is active.
	IsRunning() bool
}

// BaseChannel provides shared logic for all channel implementations.
type BaseChannel struct {
	ChannelName string
	Bus         *bus.MessageBus
	// AllowChats restricts group traffic to these chat ids. Empty allows all.
	AllowChats []int64

	running atomic.Bool
}

// IsAllowed reports whether events from chat may enter the pipeline.
// Private chats are always allowed.
func (b *BaseChannel) IsAllowed(chat bus.Chat) bool {
	if len(b.AllowChats) == 0 || chat.Type == bus.ChatPrivate {
		return true
	}
	return slices.Contains(b.AllowChats, chat.ID)
}

// Publish checks the allowlist and hands ev to the bus. It gives up when ctx
// is cancelled while the inbound buffer is full.
func (b *BaseChannel) Publish(ctx context.Context, ev *bus.Event) bool {
	if ev == nil || !b.IsAllowed(ev.Chat) {
		return false
	}
	select {
	case b.Bus.Inbound <- *ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// IsRunning returns whether the channel is active.
func (b *BaseChannel) IsRunning() bool { return b.running.Load() }

func (b *BaseChannel) setRunning(on bool) { b.running.Store(on) }
