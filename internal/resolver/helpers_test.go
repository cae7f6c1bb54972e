package resolver

import (
	"context"
	"errors"
	"sync"

	"github.com/dayuer/guardbot-go/internal/bus"
)

// memCache is an in-memory Cache that counts writes.
type memCache struct {
	mu       sync.Mutex
	byID     map[int64]bus.Identity
	byHandle map[string]int64
	puts     int
}

func newMemCache() *memCache {
	return &memCache{byID: map[int64]bus.Identity{}, byHandle: map[string]int64{}}
}

func (m *memCache) ByID(ctx context.Context, id int64) (bus.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ident, ok := m.byID[id]
	return ident, ok
}

func (m *memCache) ByHandle(ctx context.Context, handle string) (bus.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byHandle[bus.NormalizeHandle(handle)]
	if !ok {
		return bus.Identity{}, false
	}
	return m.byID[id], true
}

func (m *memCache) Put(ctx context.Context, ident bus.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.byID[ident.ID] = ident
	if h := bus.NormalizeHandle(ident.Handle); h != "" {
		m.byHandle[h] = ident.ID
	}
	return nil
}

func (m *memCache) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

// fakeDirectory answers from a map and counts calls.
type fakeDirectory struct {
	mu      sync.Mutex
	entries map[string]bus.Identity
	err     error
	block   bool
	calls   []string
}

var errDirectoryDown = errors.New("directory down")

func (f *fakeDirectory) Lookup(ctx context.Context, ref string) (bus.Identity, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ref)
	block, err := f.block, f.err
	ident, ok := f.entries[ref]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return bus.Identity{}, ctx.Err()
	}
	if err != nil {
		return bus.Identity{}, err
	}
	if !ok {
		return bus.Identity{}, errors.New("not found")
	}
	return ident, nil
}

func (f *fakeDirectory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
