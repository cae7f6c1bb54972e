package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/privilege"
	"github.com/dayuer/guardbot-go/internal/resolver"
	"github.com/dayuer/guardbot-go/internal/store"
	"github.com/dayuer/guardbot-go/internal/telegram"
)

// Platform is the subset of the chat platform the command bodies drive.
type Platform interface {
	BotID() int64
	GetChatMember(ctx context.Context, chatID, userID int64) (telegram.ChatMember, error)
	BanChatMember(ctx context.Context, chatID, userID int64) error
	UnbanChatMember(ctx context.Context, chatID, userID int64) error
	RestrictChatMember(ctx context.Context, chatID, userID int64, perms telegram.ChatPermissions) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// Deps are the collaborators of the built-in commands.
type Deps struct {
	Bus       *bus.MessageBus
	Store     *store.Store
	Resolver  *resolver.Resolver
	Privilege *privilege.Checker
	Platform  Platform
	Filters   FilterInvalidator
	Started   time.Time
}

// Builtins holds the built-in command bodies.
type Builtins struct {
	Deps
	registry *Registry
}

// BuildDefault builds the registry of built-in commands. aliases maps extra
// names to canonical command names.
func BuildDefault(d Deps, aliases map[string]string) (*Registry, error) {
	if d.Started.IsZero() {
		d.Started = time.Now()
	}
	b := &Builtins{Deps: d}
	reg, err := Build(
		b.coreCommands(),
		b.disableCommands(),
		b.afkCommands(),
		b.moderationCommands(),
		b.warnCommands(),
		b.staffCommands(),
		b.noteCommands(),
		b.filterCommands(),
		b.greetingCommands(),
	)
	if err != nil {
		return nil, err
	}
	for alias, name := range aliases {
		if err := reg.alias(alias, name); err != nil {
			return nil, err
		}
	}
	b.registry = reg
	return reg, nil
}

func (r *Registry) alias(alias, name string) error {
	alias = strings.ToLower(strings.TrimSpace(alias))
	e, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("alias %q: unknown command %q", alias, name)
	}
	if alias == "" {
		return fmt.Errorf("alias for %q is empty", name)
	}
	if prev, dup := r.byName[alias]; dup && prev != e {
		return fmt.Errorf("alias %q already names /%s", alias, prev.Name())
	}
	r.byName[alias] = e
	return nil
}

// --- helpers shared by command bodies ---

func (b *Builtins) reply(c *Context, text string) {
	b.Bus.Reply(c.Event, text)
}

// requireGroup replies and returns false outside group chats.
func (b *Builtins) requireGroup(c *Context) bool {
	if c.Event.Chat.IsGroup() {
		return true
	}
	b.reply(c, "This command only works in groups.")
	return false
}

// requireAdmin checks that the sender administers the chat. Sudo and above bypass.
// needRestrict additionally requires the ban permission.
func (b *Builtins) requireAdmin(ctx context.Context, c *Context, needRestrict bool) bool {
	if c.Level.AtLeast(privilege.Sudo) {
		return true
	}
	m, err := b.Platform.GetChatMember(ctx, c.Event.Chat.ID, c.Event.SenderID())
	if err != nil {
		log.Printf("[Commands] ⚠️ admin check in %d failed: %v", c.Event.Chat.ID, err)
		b.reply(c, "I couldn't verify your admin status.")
		return false
	}
	if !m.IsAdmin() || (needRestrict && !m.CanRestrict()) {
		b.reply(c, "You need to be an admin with the right permissions to do this.")
		return false
	}
	return true
}

// botCanRestrict reports whether the bot may ban in chatID.
func (b *Builtins) botCanRestrict(ctx context.Context, chatID int64) bool {
	m, err := b.Platform.GetChatMember(ctx, chatID, b.Platform.BotID())
	return err == nil && m.CanRestrict()
}

var errNoTarget = errors.New("no target")

// target resolves the command's subject from a reply or the first argument.
// The remaining argument text is returned as the reason.
func (b *Builtins) target(ctx context.Context, c *Context) (bus.Identity, string, error) {
	req := resolver.Request{Event: c.Event, Privilege: c.Level}
	reason := c.ArgText
	switch {
	case c.Event.ReplyTo != nil:
	case len(c.Args) > 0:
		req.Ref = c.Args[0]
		reason = strings.TrimSpace(strings.TrimPrefix(c.ArgText, c.Args[0]))
	default:
		return bus.Identity{}, "", errNoTarget
	}
	ident, err := b.Resolver.Resolve(ctx, req)
	return ident, reason, err
}

// senderIdentity is the identity of whoever sent ev.
func senderIdentity(ev *bus.Event) (bus.Identity, error) {
	switch {
	case ev.SenderChat != nil:
		return bus.IdentityFromChat(*ev.SenderChat), nil
	case ev.Sender != nil:
		return bus.IdentityFromUser(*ev.Sender), nil
	}
	return bus.Identity{}, resolver.ErrNotFound
}

// targetOrReply resolves the target and answers the caller on failure.
func (b *Builtins) targetOrReply(ctx context.Context, c *Context) (bus.Identity, string, bool) {
	ident, reason, err := b.target(ctx, c)
	switch {
	case errors.Is(err, errNoTarget):
		b.reply(c, fmt.Sprintf("Reply to a user or give a user ID or @username: /%s <user> [reason]", c.Name))
		return ident, "", false
	case errors.Is(err, resolver.ErrNotFound):
		b.reply(c, "I couldn't find that user.")
		return ident, "", false
	case err != nil:
		b.reply(c, "Lookup failed, try again later.")
		log.Printf("[Commands] ⚠️ resolve for /%s failed: %v", c.Name, err)
		return ident, "", false
	}
	return ident, reason, true
}

// parseToggle reads "on"/"off" style arguments.
func parseToggle(arg string) (on bool, ok bool) {
	switch strings.ToLower(arg) {
	case "on", "yes", "true", "enable", "1":
		return true, true
	case "off", "no", "false", "disable", "0":
		return false, true
	}
	return false, false
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// ReadableDuration renders d as "1d 2h 3m 4s", omitting zero leading units.
func ReadableDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	secs := int64(d / time.Second)
	days, secs := secs/86400, secs%86400
	hours, secs := secs/3600, secs%3600
	mins, secs := secs/60, secs%60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	if secs > 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}
