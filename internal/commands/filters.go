package commands

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dayuer/guardbot-go/internal/store"
)

// FilterInvalidator drops cached filters of a chat after they change.
type FilterInvalidator interface {
	Invalidate(chatID int64)
}

func (b *Builtins) filterCommands() []Entry {
	return []Entry{
		{Names: []string{"filter", "addfilter"}, Module: "filters", Help: "[-w|-r] <keyword> <reply>: auto-reply to a keyword, wildcard or regex", Handler: b.addFilter},
		{Names: []string{"stop", "rmfilter"}, Module: "filters", Help: "<keyword>: remove a filter", Handler: b.removeFilter},
		{Names: []string{"filters"}, Module: "filters", Manageable: true, Help: "list filters in this chat", Handler: b.listFilters},
	}
}

// splitFilterArgs parses `[-w|-r] <keyword|"quoted keyword"> <reply>`.
func splitFilterArgs(argText string) (kind, keyword, reply string, ok bool) {
	kind = store.FilterKeyword
	rest := strings.TrimSpace(argText)
	switch {
	case strings.HasPrefix(rest, "-w "):
		kind, rest = store.FilterWildcard, strings.TrimSpace(rest[3:])
	case strings.HasPrefix(rest, "-r "):
		kind, rest = store.FilterRegex, strings.TrimSpace(rest[3:])
	}
	if rest == "" {
		return "", "", "", false
	}
	if rest[0] == '"' {
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			return "", "", "", false
		}
		keyword = rest[1 : end+1]
		reply = strings.TrimSpace(rest[end+2:])
	} else {
		fields := strings.SplitN(rest, " ", 2)
		keyword = fields[0]
		if len(fields) == 2 {
			reply = strings.TrimSpace(fields[1])
		}
	}
	if keyword == "" {
		return "", "", "", false
	}
	return kind, keyword, reply, true
}

func (b *Builtins) addFilter(ctx context.Context, c *Context) error {
	if !b.requireGroup(c) || !b.requireAdmin(ctx, c, false) {
		return nil
	}
	kind, keyword, reply, ok := splitFilterArgs(c.ArgText)
	if ok && reply == "" && c.Event.ReplyTo != nil {
		reply = c.Event.ReplyTo.Text
	}
	if !ok || reply == "" {
		b.reply(c, `Usage: /filter [-w|-r] <keyword> <reply>. Quote multi-word keywords: /filter "good morning" hi!`)
		return nil
	}
	if kind == store.FilterRegex {
		if _, err := regexp.Compile(keyword); err != nil {
			b.reply(c, fmt.Sprintf("Invalid regex: %v", err))
			return nil
		}
	}
	err := b.Store.AddFilter(ctx, store.Filter{
		ChatID:    c.Event.Chat.ID,
		Keyword:   keyword,
		ReplyText: reply,
		Type:      kind,
		CreatedBy: c.Event.SenderID(),
	})
	if err != nil {
		return err
	}
	b.invalidateFilters(c.Event.Chat.ID)
	b.reply(c, fmt.Sprintf("Saved %s filter %q.", kind, keyword))
	return nil
}

func (b *Builtins) removeFilter(ctx context.Context, c *Context) error {
	if !b.requireGroup(c) || !b.requireAdmin(ctx, c, false) {
		return nil
	}
	_, keyword, _, ok := splitFilterArgs(c.ArgText)
	if !ok {
		b.reply(c, "Usage: /stop <keyword>")
		return nil
	}
	removed, err := b.Store.RemoveFilter(ctx, c.Event.Chat.ID, keyword)
	if err != nil {
		return err
	}
	if !removed {
		b.reply(c, fmt.Sprintf("No filter for %q.", keyword))
		return nil
	}
	b.invalidateFilters(c.Event.Chat.ID)
	b.reply(c, fmt.Sprintf("Stopped filtering %q.", keyword))
	return nil
}

func (b *Builtins) listFilters(ctx context.Context, c *Context) error {
	fs, err := b.Store.Filters(ctx, c.Event.Chat.ID)
	if err != nil {
		return err
	}
	if len(fs) == 0 {
		b.reply(c, "No filters in this chat.")
		return nil
	}
	lines := make([]string, len(fs))
	for i, f := range fs {
		lines[i] = fmt.Sprintf("- %s (%s)", f.Keyword, f.Type)
	}
	b.reply(c, "Filters in this chat:\n"+strings.Join(lines, "\n"))
	return nil
}

func (b *Builtins) invalidateFilters(chatID int64) {
	if b.Filters != nil {
		b.Filters.Invalidate(chatID)
	}
}
