// Package resolver turns a loose participant reference (numeric id, @handle,
// reply context, inline mention) into a canonical identity.
//
// Sources are tried from cheapest to most expensive:
//
//  1. hints carried by the triggering event
//  2. the local identity cache
//  3. the primary directory (bot session)
//  4. the secondary directory (user session), staff callers only
//
// Every step that fails falls through to the next; the first success wins.
// Identities obtained from a hint or a directory are written back to the cache.
package resolver

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/privilege"
)

// ErrNotFound is returned when no source could resolve the reference.
var ErrNotFound = errors.New("resolver: entity not found")

// Directory is a remote lookup service. ref is "123" or "@handle".
type Directory interface {
	Lookup(ctx context.Context, ref string) (bus.Identity, error)
}

// Cache is the local identity cache.
type Cache interface {
	ByID(ctx context.Context, id int64) (bus.Identity, bool)
	ByHandle(ctx context.Context, handle string) (bus.Identity, bool)
	Put(ctx context.Context, ident bus.Identity) error
}

// Source names where a resolution came from.
type Source string

const (
	SourceHint      Source = "hint"
	SourceCache     Source = "cache"
	SourcePrimary   Source = "primary"
	SourceSecondary Source = "secondary"
)

// Request is one resolution request.
type Request struct {
	// Ref is the raw reference; empty means "the replied-to sender".
	Ref string
	// Event is the triggering event, consulted for hints. May be nil.
	Event *bus.Event
	// Privilege is the caller's level; it gates the secondary directory.
	Privilege privilege.Level
}

// Config wires a Resolver.
type Config struct {
	Cache            Cache
	Primary          Directory
	Secondary        Directory
	PrimaryTimeout   time.Duration
	SecondaryTimeout time.Duration
	// MinSecondaryLevel is the lowest caller level allowed to reach the secondary directory.
	MinSecondaryLevel privilege.Level
}

// Resolver implements the cascade.
type Resolver struct {
	cache            Cache
	primary          Directory
	secondary        Directory
	primaryTimeout   time.Duration
	secondaryTimeout time.Duration
	minSecondary     privilege.Level

	hits   [4]atomic.Int64
	misses atomic.Int64
}

// New creates a resolver. Nil directories are treated as unconfigured.
func New(cfg Config) *Resolver {
	r := &Resolver{
		cache:            cfg.Cache,
		primary:          cfg.Primary,
		secondary:        cfg.Secondary,
		primaryTimeout:   cfg.PrimaryTimeout,
		secondaryTimeout: cfg.SecondaryTimeout,
		minSecondary:     cfg.MinSecondaryLevel,
	}
	if r.primaryTimeout <= 0 {
		r.primaryTimeout = 5 * time.Second
	}
	if r.secondaryTimeout <= 0 {
		r.secondaryTimeout = 15 * time.Second
	}
	if r.minSecondary == privilege.None {
		r.minSecondary = privilege.Support
	}
	return r
}

// Resolve runs the cascade for req.
func (r *Resolver) Resolve(ctx context.Context, req Request) (bus.Identity, error) {
	ident, _, err := r.ResolveSource(ctx, req)
	return ident, err
}

// ResolveSource is Resolve that also reports which source answered.
func (r *Resolver) ResolveSource(ctx context.Context, req Request) (bus.Identity, Source, error) {
	// 1. in-message hint
	if ident, ok := hint(req); ok {
		r.remember(ctx, ident)
		return r.hit(ident, SourceHint)
	}

	// 2. normalize
	id, handle, ok := Normalize(req.Ref)
	if !ok {
		r.misses.Add(1)
		return bus.Identity{}, "", ErrNotFound
	}

	// 3. cache, no write-back
	if r.cache != nil {
		var ident bus.Identity
		var found bool
		if handle != "" {
			ident, found = r.cache.ByHandle(ctx, handle)
		} else {
			ident, found = r.cache.ByID(ctx, id)
		}
		if found {
			return r.hit(ident, SourceCache)
		}
	}

	ref := directoryRef(id, handle)

	// 4. primary directory
	if r.primary != nil {
		pctx, cancel := context.WithTimeout(ctx, r.primaryTimeout)
		ident, err := r.primary.Lookup(pctx, ref)
		cancel()
		if err == nil && ident.ID != 0 {
			r.remember(ctx, ident)
			return r.hit(ident, SourcePrimary)
		}
		if err != nil {
			log.Printf("[Resolver] primary lookup %s failed: %v", ref, err)
		}
	}

	// 5. privilege gate
	if req.Privilege < r.minSecondary || r.secondary == nil {
		r.misses.Add(1)
		return bus.Identity{}, "", ErrNotFound
	}

	// 6. secondary directory
	sctx, cancel := context.WithTimeout(ctx, r.secondaryTimeout)
	ident, err := r.secondary.Lookup(sctx, ref)
	cancel()
	if err != nil || ident.ID == 0 {
		if err != nil {
			log.Printf("[Resolver] secondary lookup %s failed: %v", ref, err)
		}
		r.misses.Add(1)
		return bus.Identity{}, "", ErrNotFound
	}
	r.remember(ctx, ident)
	return r.hit(ident, SourceSecondary)
}

// Normalize parses ref as a signed integer id, otherwise as a handle
// (lower-cased, leading '@' stripped). ok is false for empty references.
func Normalize(ref string) (id int64, handle string, ok bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, "", false
	}
	if n, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return n, "", n != 0
	}
	h := bus.NormalizeHandle(ref)
	if h == "" {
		return 0, "", false
	}
	return 0, h, true
}

// hint looks for the target in the event itself: the replied-to sender when
// no reference was given, or a text mention whose visible text is the reference.
func hint(req Request) (bus.Identity, bool) {
	ev := req.Event
	if ev == nil {
		return bus.Identity{}, false
	}
	ref := strings.TrimSpace(req.Ref)

	if ref == "" {
		if ev.ReplyTo == nil {
			return bus.Identity{}, false
		}
		if ev.ReplyTo.SenderChat != nil {
			return bus.IdentityFromChat(*ev.ReplyTo.SenderChat), true
		}
		if ev.ReplyTo.Sender != nil {
			return bus.IdentityFromUser(*ev.ReplyTo.Sender), true
		}
		return bus.Identity{}, false
	}

	want := bus.NormalizeHandle(ref)
	for _, ent := range ev.Entities {
		if ent.Type != bus.EntityTextMention || ent.User == nil {
			continue
		}
		if bus.NormalizeHandle(ev.EntityText(ent)) == want {
			return bus.IdentityFromUser(*ent.User), true
		}
	}
	return bus.Identity{}, false
}

func directoryRef(id int64, handle string) string {
	if handle != "" {
		return "@" + handle
	}
	return strconv.FormatInt(id, 10)
}

func (r *Resolver) remember(ctx context.Context, ident bus.Identity) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Put(ctx, ident); err != nil {
		log.Printf("[Resolver] ⚠️ cache write for %d failed: %v", ident.ID, err)
	}
}

func (r *Resolver) hit(ident bus.Identity, src Source) (bus.Identity, Source, error) {
	switch src {
	case SourceHint:
		r.hits[0].Add(1)
	case SourceCache:
		r.hits[1].Add(1)
	case SourcePrimary:
		r.hits[2].Add(1)
	case SourceSecondary:
		r.hits[3].Add(1)
	}
	return ident, src, nil
}

// Stats returns per-source hit counts.
func (r *Resolver) Stats() map[string]any {
	return map[string]any{
		"hint":      r.hits[0].Load(),
		"cache":     r.hits[1].Load(),
		"primary":   r.hits[2].Load(),
		"secondary": r.hits[3].Load(),
		"notFound":  r.misses.Load(),
	}
}
