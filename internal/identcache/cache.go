// Package identcache is the local Identity Cache: a relational table of
// known participants with an optional Redis tier in front of it.
package identcache

import (
	"context"
	"log"
	"time"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/redis"
)

// Store is the durable tier.
type Store interface {
	UpsertUser(ctx context.Context, ident bus.Identity) error
	GetUser(ctx context.Context, id int64) (*bus.Identity, error)
	GetUserByHandle(ctx context.Context, handle string) (*bus.Identity, error)
}

// Cache looks identities up by id or handle.
// Redis is consulted first when available; the store is the source of truth.
type Cache struct {
	store Store
	ttl   time.Duration
}

// New creates a cache. ttl bounds how long Redis keeps a snapshot.
func New(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{store: store, ttl: ttl}
}

// ByID returns the identity stored for id.
func (c *Cache) ByID(ctx context.Context, id int64) (bus.Identity, bool) {
	var ident bus.Identity
	if redis.GetIdentity(ctx, id, &ident) && ident.ID == id {
		return ident, true
	}
	found, err := c.store.GetUser(ctx, id)
	if err != nil {
		log.Printf("[IdentityCache] ⚠️ lookup %d failed: %v", id, err)
		return bus.Identity{}, false
	}
	if found == nil {
		return bus.Identity{}, false
	}
	c.warm(ctx, *found)
	return *found, true
}

// ByHandle returns the identity currently holding handle.
func (c *Cache) ByHandle(ctx context.Context, handle string) (bus.Identity, bool) {
	h := bus.NormalizeHandle(handle)
	if h == "" {
		return bus.Identity{}, false
	}
	if id, ok := redis.LookupHandle(ctx, h); ok {
		var ident bus.Identity
		// the snapshot may have moved on to another handle
		if redis.GetIdentity(ctx, id, &ident) && bus.NormalizeHandle(ident.Handle) == h {
			return ident, true
		}
	}
	found, err := c.store.GetUserByHandle(ctx, h)
	if err != nil {
		log.Printf("[IdentityCache] ⚠️ lookup @%s failed: %v", h, err)
		return bus.Identity{}, false
	}
	if found == nil {
		return bus.Identity{}, false
	}
	c.warm(ctx, *found)
	return *found, true
}

// Put writes ident to the store and refreshes Redis. The latest Put for a
// handle wins.
func (c *Cache) Put(ctx context.Context, ident bus.Identity) error {
	if ident.LastSeen.IsZero() {
		ident.LastSeen = time.Now()
	}
	if err := c.store.UpsertUser(ctx, ident); err != nil {
		return err
	}
	c.warm(ctx, ident)
	return nil
}

// warm copies a store row into Redis. Redis failures are ignored.
func (c *Cache) warm(ctx context.Context, ident bus.Identity) {
	redis.SetIdentity(ctx, ident.ID, bus.NormalizeHandle(ident.Handle), ident, c.ttl)
}
