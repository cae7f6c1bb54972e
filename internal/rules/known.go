package rules

import (
	"context"
	"log"
	"sort"
	"sync"
)

// KnownChats is the in-memory set of chat ids the bot has state for. It is
// loaded from storage at most once and then kept in sync on join and leave.
type KnownChats struct {
	load func(ctx context.Context) ([]int64, error)
	once sync.Once

	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewKnownChats creates the set. load runs lazily on first use.
func NewKnownChats(load func(ctx context.Context) ([]int64, error)) *KnownChats {
	return &KnownChats{load: load, ids: make(map[int64]struct{})}
}

func (k *KnownChats) ensure(ctx context.Context) {
	k.once.Do(func() {
		if k.load == nil {
			return
		}
		ids, err := k.load(ctx)
		if err != nil {
			// False negatives only cost an extra write.
			log.Printf("[KnownChats] ⚠️ initial load failed: %v", err)
			return
		}
		k.mu.Lock()
		for _, id := range ids {
			k.ids[id] = struct{}{}
		}
		k.mu.Unlock()
		log.Printf("[KnownChats] loaded %d chats", len(ids))
	})
}

// Load forces the initial load and returns the set size.
func (k *KnownChats) Load(ctx context.Context) int {
	k.ensure(ctx)
	return k.Len()
}

// Has reports whether chatID is known.
func (k *KnownChats) Has(ctx context.Context, chatID int64) bool {
	k.ensure(ctx)
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.ids[chatID]
	return ok
}

// Add records chatID and reports whether it was new.
func (k *KnownChats) Add(ctx context.Context, chatID int64) bool {
	k.ensure(ctx)
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.ids[chatID]; ok {
		return false
	}
	k.ids[chatID] = struct{}{}
	return true
}

// Remove forgets chatID.
func (k *KnownChats) Remove(ctx context.Context, chatID int64) {
	k.ensure(ctx)
	k.mu.Lock()
	delete(k.ids, chatID)
	k.mu.Unlock()
}

// Len returns the set size.
func (k *KnownChats) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.ids)
}

// IDs returns the known chat ids, sorted.
func (k *KnownChats) IDs() []int64 {
	k.mu.RLock()
	out := make([]int64, 0, len(k.ids))
	for id := range k.ids {
		out = append(out, id)
	}
	k.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
