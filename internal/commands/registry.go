// Package commands holds the command registry, the router stage that
// dispatches prefixed commands, and the built-in command bodies.
//
// The registry is produced by a single Build call at bootstrap and is
// read-only afterwards.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/privilege"
)

// Context is what a command body sees.
type Context struct {
	Event   *bus.Event
	Name    string // canonical command name
	Invoked string // name as typed
	Args    []string
	ArgText string // raw text after the command token
	Level   privilege.Level
}

// Handler is a command body.
type Handler func(ctx context.Context, c *Context) error

// Entry describes one command.
type Entry struct {
	// Names are case-folded; the first is canonical, the rest are aliases.
	Names      []string
	Module     string
	Manageable bool
	MinLevel   privilege.Level
	Help       string
	Handler    Handler
}

// Name returns the canonical name.
func (e *Entry) Name() string { return e.Names[0] }

// Registry maps command names and aliases to entries.
type Registry struct {
	byName  map[string]*Entry
	entries []*Entry
}

// Build validates and indexes entries. Duplicate names are an error.
func Build(groups ...[]Entry) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Entry)}
	for _, group := range groups {
		for i := range group {
			e := group[i]
			if len(e.Names) == 0 || e.Handler == nil {
				return nil, fmt.Errorf("command entry %d in module %q: missing name or handler", i, e.Module)
			}
			names := make([]string, len(e.Names))
			for j, n := range e.Names {
				names[j] = strings.ToLower(n)
			}
			e.Names = names
			e.Module = strings.ToLower(e.Module)
			entry := &e
			for _, n := range names {
				if prev, dup := r.byName[n]; dup {
					return nil, fmt.Errorf("command %q registered by %q and %q", n, prev.Module, entry.Module)
				}
				r.byName[n] = entry
			}
			r.entries = append(r.entries, entry)
		}
	}
	return r, nil
}

// Lookup finds an entry by name or alias.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	e, ok := r.byName[strings.ToLower(name)]
	return e, ok
}

// Len returns the number of distinct commands.
func (r *Registry) Len() int { return len(r.entries) }

// Entries returns the commands in registration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = *e
	}
	return out
}

// Modules returns the sorted module names.
func (r *Registry) Modules() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range r.entries {
		if e.Module != "" && !seen[e.Module] {
			seen[e.Module] = true
			out = append(out, e.Module)
		}
	}
	sort.Strings(out)
	return out
}

// HasModule reports whether any command belongs to module.
func (r *Registry) HasModule(module string) bool {
	module = strings.ToLower(module)
	for _, e := range r.entries {
		if e.Module == module {
			return true
		}
	}
	return false
}

// Manageable returns the canonical name of a command that may be disabled per chat.
func (r *Registry) Manageable(name string) (string, bool) {
	e, ok := r.Lookup(name)
	if !ok || !e.Manageable {
		return "", false
	}
	return e.Name(), true
}

// ManageableNames returns canonical names of per-chat manageable commands, sorted.
func (r *Registry) ManageableNames() []string {
	var out []string
	for _, e := range r.entries {
		if e.Manageable {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}
