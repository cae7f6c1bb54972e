// Package rules holds the policy stages of the moderation pipeline and the
// bootstrap that registers them, together with the command router, at their
// priority bands.
package rules

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/commands"
	"github.com/dayuer/guardbot-go/internal/pipeline"
	"github.com/dayuer/guardbot-go/internal/privilege"
	"github.com/dayuer/guardbot-go/internal/store"
	"github.com/dayuer/guardbot-go/internal/telegram"
)

// Priority bands. Lower runs first.
const (
	PriorityBlacklistedChat = -200
	PriorityBotRemoved      = -100
	PriorityEditedCommand   = -50
	PriorityGbanJoin        = -20
	PriorityBlacklist       = -10
	PriorityGbanMessage     = -10
	PriorityBRB             = -6
	PriorityAFKReturn       = -5
	PriorityAFKMention      = -4
	PriorityCommands        = -1
	PriorityNoteHashtag     = 0
	PriorityFilters         = 3
	PriorityMembership      = 5
	PriorityUserLogger      = 10
)

// Platform is what the stages drive on the chat platform.
type Platform interface {
	commands.Platform
	LeaveChat(ctx context.Context, chatID int64) error
}

// IdentityCache is the local identity cache.
type IdentityCache interface {
	ByHandle(ctx context.Context, handle string) (bus.Identity, bool)
	Put(ctx context.Context, ident bus.Identity) error
}

// Notifier sends operator notices.
type Notifier interface {
	Notify(text string)
}

// Deps are the collaborators shared by the stages.
type Deps struct {
	Bus       *bus.MessageBus
	Store     *store.Store
	Cache     IdentityCache
	Privilege *privilege.Checker
	Platform  Platform
	Router    *commands.Router
	Known     *KnownChats
	Filters   *FilterCache
	Notifier  Notifier
}

// Options tune stage behaviour.
type Options struct {
	// GbanStops makes global-ban enforcement end the traversal.
	GbanStops bool
	// AppealChat is a chat id or @handle shown in ban notices. Blacklisted
	// users may still use /id there.
	AppealChat string
	// BlacklistAllowed are commands blacklisted senders may still run.
	BlacklistAllowed []string
}

// DefaultBlacklistAllowed is the always-allowed list for blacklisted senders.
var DefaultBlacklistAllowed = []string{"help", "info", "rules"}

// Rules is the set of policy stages.
type Rules struct {
	Deps
	opts    Options
	allowed map[string]bool
}

// New creates the stages.
func New(deps Deps, opts Options) *Rules {
	if deps.Known == nil {
		deps.Known = NewKnownChats(deps.Store.ChatIDs)
	}
	if deps.Filters == nil {
		deps.Filters = NewFilterCache(deps.Store, DefaultFilterTTL)
	}
	if opts.BlacklistAllowed == nil {
		opts.BlacklistAllowed = DefaultBlacklistAllowed
	}
	allowed := make(map[string]bool, len(opts.BlacklistAllowed))
	for _, name := range opts.BlacklistAllowed {
		allowed[strings.ToLower(name)] = true
	}
	return &Rules{Deps: deps, opts: opts, allowed: allowed}
}

// Register adds every stage and the command router to d. Passive logging is
// registered last so that it observes every event nothing stopped.
func (r *Rules) Register(d *pipeline.Dispatcher) {
	d.Register(r.blacklistedChatStage(), PriorityBlacklistedChat)
	d.Register(r.botRemovedStage(), PriorityBotRemoved)
	d.Register(r.editedCommandStage(), PriorityEditedCommand)
	d.Register(r.gbanJoinStage(), PriorityGbanJoin)
	d.Register(r.blacklistStage(), PriorityBlacklist)
	d.Register(r.gbanMessageStage(), PriorityGbanMessage)
	d.Register(r.brbStage(), PriorityBRB)
	d.Register(r.afkReturnStage(), PriorityAFKReturn)
	d.Register(r.afkMentionStage(), PriorityAFKMention)
	if r.Router != nil {
		d.Register(r.Router, PriorityCommands)
	}
	d.Register(r.noteHashtagStage(), PriorityNoteHashtag)
	d.Register(r.filterStage(), PriorityFilters)
	d.Register(r.membershipStage(), PriorityMembership)
	d.Register(r.userLoggerStage(), PriorityUserLogger)
	log.Printf("[Rules] ✅ registered %d stages", len(d.Stages()))
}

func (r *Rules) notify(text string) {
	if r.Notifier != nil {
		r.Notifier.Notify(text)
	}
}

func (r *Rules) isCommand(ev *bus.Event) bool {
	return r.Router != nil && r.Router.LooksLikeCommand(ev)
}

func (r *Rules) commandName(ev *bus.Event) (string, bool) {
	if r.Router == nil {
		return "", false
	}
	return r.Router.CommandName(ev)
}

func (r *Rules) isAppealChat(chat bus.Chat) bool {
	appeal := strings.TrimSpace(r.opts.AppealChat)
	if appeal == "" {
		return false
	}
	if strings.HasPrefix(appeal, "@") {
		return chat.Username != "" && strings.EqualFold(chat.Username, appeal[1:])
	}
	return appeal == strconv.FormatInt(chat.ID, 10)
}

func isMessage(ev *bus.Event) bool {
	return ev.Kind == bus.KindMessage
}

// isBotActive reports whether a member status means the bot is in the chat.
func isBotActive(status string) bool {
	switch status {
	case telegram.StatusMember, telegram.StatusAdministrator, telegram.StatusCreator, telegram.StatusRestricted:
		return true
	}
	return false
}
