package rules

import (
	"context"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/pipeline"
	"github.com/dayuer/guardbot-go/internal/store"
)

// DefaultFilterTTL bounds how long a chat's filters are cached.
const DefaultFilterTTL = 60 * time.Second

// FilterStore loads a chat's filters.
type FilterStore interface {
	Filters(ctx context.Context, chatID int64) ([]store.Filter, error)
}

// compiledFilter is a filter ready to match.
type compiledFilter struct {
	store.Filter
	words string
	re    *regexp.Regexp
}

type filterEntry struct {
	loaded  time.Time
	filters []compiledFilter
}

// FilterCache caches compiled filters per chat.
type FilterCache struct {
	store FilterStore
	ttl   time.Duration

	mu      sync.Mutex
	entries map[int64]filterEntry
}

// NewFilterCache creates a cache with the given ttl.
func NewFilterCache(st FilterStore, ttl time.Duration) *FilterCache {
	if ttl <= 0 {
		ttl = DefaultFilterTTL
	}
	return &FilterCache{store: st, ttl: ttl, entries: make(map[int64]filterEntry)}
}

// Get returns the chat's compiled filters, loading them when stale.
func (c *FilterCache) Get(ctx context.Context, chatID int64) ([]compiledFilter, error) {
	c.mu.Lock()
	e, ok := c.entries[chatID]
	c.mu.Unlock()
	if ok && time.Since(e.loaded) < c.ttl {
		return e.filters, nil
	}

	raw, err := c.store.Filters(ctx, chatID)
	if err != nil {
		return nil, err
	}
	compiled := make([]compiledFilter, 0, len(raw))
	for _, f := range raw {
		cf, err := compileFilter(f)
		if err != nil {
			log.Printf("[Filters] ⚠️ skipping filter %q in %d: %v", f.Keyword, chatID, err)
			continue
		}
		compiled = append(compiled, cf)
	}

	c.mu.Lock()
	c.entries[chatID] = filterEntry{loaded: time.Now(), filters: compiled}
	c.mu.Unlock()
	return compiled, nil
}

// Invalidate drops the cached filters of chatID.
func (c *FilterCache) Invalidate(chatID int64) {
	c.mu.Lock()
	delete(c.entries, chatID)
	c.mu.Unlock()
}

func compileFilter(f store.Filter) (compiledFilter, error) {
	cf := compiledFilter{Filter: f}
	switch f.Type {
	case store.FilterRegex:
		re, err := regexp.Compile("(?i)" + f.Keyword)
		if err != nil {
			return cf, err
		}
		cf.re = re
	case store.FilterWildcard:
		parts := strings.Split(f.Keyword, "*")
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		re, err := regexp.Compile("(?i)" + strings.Join(parts, ".*"))
		if err != nil {
			return cf, err
		}
		cf.re = re
	default:
		cf.words = normalizeWords(f.Keyword)
	}
	return cf, nil
}

// normalizeWords lower-cases text, turns punctuation into spaces and pads the
// word sequence with spaces so that containment means whole-word matching.
func normalizeWords(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return unicode.ToLower(r)
	}, text)
	return " " + strings.Join(strings.Fields(mapped), " ") + " "
}

// matchFilter returns the first filter matching text.
func matchFilter(filters []compiledFilter, text string) (store.Filter, bool) {
	var words string
	for _, f := range filters {
		if f.re != nil {
			if f.re.MatchString(text) {
				return f.Filter, true
			}
			continue
		}
		if strings.TrimSpace(f.words) == "" {
			continue
		}
		if words == "" {
			words = normalizeWords(text)
		}
		if strings.Contains(words, f.words) {
			return f.Filter, true
		}
	}
	return store.Filter{}, false
}

func (r *Rules) filterStage() pipeline.Stage {
	return pipeline.Func{
		StageName: "filters",
		Filter: func(ev *bus.Event) bool {
			return isMessage(ev) && ev.HasText() && ev.Chat.IsGroup()
		},
		Fn: func(ctx context.Context, ev *bus.Event) (pipeline.Result, error) {
			if r.isCommand(ev) {
				return pipeline.Continue, nil
			}
			filters, err := r.Filters.Get(ctx, ev.Chat.ID)
			if err != nil || len(filters) == 0 {
				return pipeline.Continue, err
			}
			if f, ok := matchFilter(filters, ev.Text); ok {
				r.Bus.Reply(ev, f.ReplyText)
			}
			return pipeline.Continue, nil
		},
	}
}

var hashtagNote = regexp.MustCompile(`^#([^\s#]+)`)

func (r *Rules) noteHashtagStage() pipeline.Stage {
	return pipeline.Func{
		StageName: "note-hashtag",
		Filter: func(ev *bus.Event) bool {
			return isMessage(ev) && strings.HasPrefix(ev.Text, "#")
		},
		Fn: func(ctx context.Context, ev *bus.Event) (pipeline.Result, error) {
			m := hashtagNote.FindStringSubmatch(ev.Text)
			if m == nil {
				return pipeline.Continue, nil
			}
			content, ok, err := r.Store.GetNote(ctx, ev.Chat.ID, m[1])
			if err != nil || !ok {
				return pipeline.Continue, err
			}
			target := ev
			if ev.ReplyTo != nil && ev.ReplyTo.MessageID != 0 {
				target = &bus.Event{Channel: ev.Channel, Chat: ev.Chat, MessageID: ev.ReplyTo.MessageID}
			}
			r.Bus.Reply(target, content)
			return pipeline.Continue, nil
		},
	}
}
