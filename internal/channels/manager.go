package channels

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/lane"
)

// Manager manages all channel instances and routes outbound messages.
// Messages to one chat are sent in the order they were published; a chat
// held back by a rate limit does not delay the others.
type Manager struct {
	Bus      *bus.MessageBus
	channels map[string]Channel
	mu       sync.RWMutex
	outbound *lane.Manager
}

// NewManager creates a channel manager.
func NewManager(msgBus *bus.MessageBus) *Manager {
	return &Manager{
		Bus:      msgBus,
		channels: make(map[string]Channel),
		outbound: lane.NewManager(lane.ManagerConfig{}),
	}
}

// Register adds a channel to the manager.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

// Get returns a channel by name.
func (m *Manager) Get(name string) Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.channels[name]
}

// EnabledChannels returns the registered channel names, sorted.
func (m *Manager) EnabledChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartAll starts all channels concurrently and dispatches outbound messages.
// Blocks until every channel has returned. Sends are fire-and-forget: errors
// are logged and the message is dropped.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	channels := make(map[string]Channel, len(m.channels))
	for name, ch := range m.channels {
		channels[name] = ch
	}
	m.mu.RUnlock()

	if len(channels) == 0 {
		return errors.New("no channels enabled")
	}

	for name, ch := range channels {
		name, ch := name, ch // per-iteration copy (go directive < 1.22)
		m.Bus.Subscribe(name, func(msg bus.OutboundMessage) {
			err := m.outbound.Submit(ctx, msg.ChatID, func() {
				if err := ch.Send(msg); err != nil {
					log.Printf("[Channels] ⚠️ send to %s chat %d failed: %v", name, msg.ChatID, err)
				}
			})
			if err != nil {
				log.Printf("[Channels] ⚠️ dropped message to %s chat %d: %v", name, msg.ChatID, err)
			}
		})
	}

	go m.Bus.DispatchOutbound(ctx)

	var wg sync.WaitGroup
	errs := make(chan error, len(channels))
	for name, ch := range channels {
		name, ch := name, ch // per-iteration copy (go directive < 1.22)
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("[Channels] starting %s channel", name)
			if err := ch.Start(ctx); err != nil {
				log.Printf("[Channels] ❌ %s: %v", name, err)
				errs <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	wg.Wait()
	close(errs)
	var all []error
	for err := range errs {
		all = append(all, err)
	}
	return errors.Join(all...)
}

// StopAll stops all channels.
func (m *Manager) StopAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, ch := range m.channels {
		if err := ch.Stop(); err != nil {
			log.Printf("[Channels] ⚠️ stopping %s: %v", name, err)
		}
	}
}

// OutboundStats reports the per-chat send queues.
func (m *Manager) OutboundStats() map[string]any {
	return m.outbound.Stats()
}

// GetStatus returns the running status of all channels.
func (m *Manager) GetStatus() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := make(map[string]bool, len(m.channels))
	for name, ch := range m.channels {
		status[name] = ch.IsRunning()
	}
	return status
}
