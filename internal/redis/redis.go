// Package redis provides the optional Redis tier in front of the relational
// identity store: identity snapshots by id and a handle → id index.
//
// Graceful fallback: if Redis is unavailable, operations silently return
// zero values and callers go to the store instead.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes.
const (
	KeyIdentity = "ident:"  // Identity snapshot by id
	KeyHandle   = "handle:" // Lower-cased handle → id
)

// Config holds Redis connection settings.
type Config struct {
	URL      string // redis://host:port
	Password string
	DB       int
}

var (
	client    *redis.Client
	connected bool
	mu        sync.RWMutex
)

// Init initializes the Redis connection. Returns true if connected.
func Init(cfg Config) bool {
	if cfg.URL == "" {
		log.Println("[Redis] URL not configured, skipping init")
		return false
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.Printf("[Redis] ❌ Invalid URL: %v", err)
		return false
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.MaxRetries = 3

	c := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		log.Printf("[Redis] ❌ Connection failed: %v", err)
		c.Close()
		return false
	}

	mu.Lock()
	client = c
	connected = true
	mu.Unlock()

	log.Println("[Redis] ✅ Connected")
	return true
}

// Close closes the Redis connection.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if client != nil {
		client.Close()
		client = nil
		connected = false
		log.Println("[Redis] Connection closed")
	}
}

// Client returns the Redis client. Returns nil if not available.
func Client() *redis.Client {
	mu.RLock()
	defer mu.RUnlock()
	if connected {
		return client
	}
	return nil
}

// IsAvailable checks if Redis is connected.
func IsAvailable() bool {
	mu.RLock()
	defer mu.RUnlock()
	return connected && client != nil
}

// --- Identity tier (with graceful fallback) ---

// GetIdentity decodes the snapshot stored for id into out.
// Returns false when Redis is unavailable, the key is missing or unreadable.
func GetIdentity(ctx context.Context, id int64, out any) bool {
	c := Client()
	if c == nil {
		return false
	}
	raw, err := c.Get(ctx, IdentityKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[Redis] get identity %d failed: %v", id, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Printf("[Redis] identity %d unreadable: %v", id, err)
		return false
	}
	return true
}

// LookupHandle returns the id the handle index points at.
func LookupHandle(ctx context.Context, handle string) (int64, bool) {
	c := Client()
	if c == nil {
		return 0, false
	}
	id, err := c.Get(ctx, HandleKey(handle)).Int64()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[Redis] lookup handle %s failed: %v", handle, err)
		}
		return 0, false
	}
	return id, true
}

// SetIdentity writes an identity snapshot and, when handle is set, points the
// handle index at it. Both keys are written in one MULTI block so a reader
// never sees the handle pointing at a missing snapshot.
func SetIdentity(ctx context.Context, id int64, handle string, value any, ttl time.Duration) bool {
	c := Client()
	if c == nil {
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("[Redis] set identity %d: %v", id, err)
		return false
	}
	_, err = c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, IdentityKey(id), data, ttl)
		if handle != "" {
			p.Set(ctx, HandleKey(handle), id, ttl)
		}
		return nil
	})
	if err != nil {
		log.Printf("[Redis] set identity %d failed: %v", id, err)
		return false
	}
	return true
}

// IdentityKey returns the Redis key for an identity snapshot.
func IdentityKey(id int64) string {
	return fmt.Sprintf("%s%d", KeyIdentity, id)
}

// HandleKey returns the Redis key for a handle index entry.
func HandleKey(handle string) string {
	return KeyHandle + strings.ToLower(strings.TrimPrefix(handle, "@"))
}
