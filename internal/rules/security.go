package rules

import (
	"context"
	"fmt"
	"log"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/pipeline"
	"github.com/dayuer/guardbot-go/internal/store"
)

// botAdded reports whether ev is the bot being added to its chat.
func botAdded(ev *bus.Event) bool {
	return ev.Kind == bus.KindMyChatMember && ev.MemberUpdate != nil &&
		isBotActive(ev.MemberUpdate.NewStatus) && !isBotActive(ev.MemberUpdate.OldStatus)
}

// botRemoved reports whether ev is the bot leaving or being removed.
func (r *Rules) botRemoved(ev *bus.Event) bool {
	switch ev.Kind {
	case bus.KindMyChatMember:
		return ev.MemberUpdate != nil && !isBotActive(ev.MemberUpdate.NewStatus)
	case bus.KindMemberLeft:
		return ev.LeftMember != nil && ev.LeftMember.ID == r.Platform.BotID()
	}
	return false
}

func (r *Rules) blacklistedChatStage() pipeline.Stage {
	return pipeline.Func{
		StageName: "blacklisted-chat",
		Filter:    botAdded,
		Fn: func(ctx context.Context, ev *bus.Event) (pipeline.Result, error) {
			listed, err := r.Store.IsChatBlacklisted(ctx, ev.Chat.ID)
			if err != nil || !listed {
				return pipeline.Continue, err
			}
			log.Printf("[Rules] leaving blacklisted chat %d (%s)", ev.Chat.ID, ev.Chat.Title)
			if err := r.Platform.LeaveChat(ctx, ev.Chat.ID); err != nil {
				log.Printf("[Rules] ⚠️ leave %d failed: %v", ev.Chat.ID, err)
			}
			if _, err := r.Store.RemoveChat(ctx, ev.Chat.ID); err != nil {
				log.Printf("[Rules] ⚠️ remove chat %d failed: %v", ev.Chat.ID, err)
			}
			r.Known.Remove(ctx, ev.Chat.ID)
			r.notify(fmt.Sprintf("🚫 Left blacklisted chat %s (%d)", ev.Chat.Title, ev.Chat.ID))
			return pipeline.Stop, nil
		},
	}
}

func (r *Rules) botRemovedStage() pipeline.Stage {
	return pipeline.Func{
		StageName: "bot-removed",
		Filter:    r.botRemoved,
		Fn: func(ctx context.Context, ev *bus.Event) (pipeline.Result, error) {
			if _, err := r.Store.RemoveChat(ctx, ev.Chat.ID); err != nil {
				log.Printf("[Rules] ⚠️ remove chat %d failed: %v", ev.Chat.ID, err)
			}
			r.Known.Remove(ctx, ev.Chat.ID)
			log.Printf("[Rules] removed from chat %d (%s)", ev.Chat.ID, ev.Chat.Title)
			r.notify(fmt.Sprintf("👋 Removed from %s (%d)", ev.Chat.Title, ev.Chat.ID))
			return pipeline.Stop, nil
		},
	}
}

func (r *Rules) editedCommandStage() pipeline.Stage {
	return pipeline.Func{
		StageName: "edited-command",
		Filter: func(ev *bus.Event) bool {
			return ev.Kind == bus.KindEditedMessage && r.isCommand(ev)
		},
		Fn: func(ctx context.Context, ev *bus.Event) (pipeline.Result, error) {
			return pipeline.Stop, nil
		},
	}
}

// blacklistStage silently drops commands from blacklisted senders except a
// few always-allowed ones. Plain text still flows to AFK, triggers and
// logging. The owner is never blocked.
func (r *Rules) blacklistStage() pipeline.Stage {
	return pipeline.Func{
		StageName: "blacklist",
		Filter: func(ev *bus.Event) bool {
			return isMessage(ev) && ev.Sender != nil && r.isCommand(ev)
		},
		Fn: func(ctx context.Context, ev *bus.Event) (pipeline.Result, error) {
			if r.Privilege != nil && r.Privilege.IsOwner(ev.Sender.ID) {
				return pipeline.Continue, nil
			}
			rec, err := r.Store.Blacklisted(ctx, ev.Sender.ID)
			if err != nil || rec == nil {
				return pipeline.Continue, err
			}
			if name, ok := r.commandName(ev); ok {
				if r.allowed[name] || (name == "id" && r.isAppealChat(ev.Chat)) {
					return pipeline.Continue, nil
				}
			}
			return pipeline.Stop, nil
		},
	}
}

// gbanned returns the ban record when userID must be banned in chatID.
func (r *Rules) gbanned(ctx context.Context, chatID, userID int64) (*store.BanRecord, error) {
	rec, err := r.Store.GlobalBan(ctx, userID)
	if err != nil || rec == nil {
		return nil, err
	}
	if r.Privilege.IsPrivileged(ctx, userID) {
		return nil, nil
	}
	policy, err := r.Store.Policy(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !policy.EnforceGban {
		return nil, nil
	}
	return rec, nil
}

func (r *Rules) gbanNotice(user bus.User, rec *store.BanRecord) string {
	text := fmt.Sprintf("%s is globally banned and has been removed.\nReason: %s",
		bus.IdentityFromUser(user).DisplayName(), rec.Reason)
	if r.opts.AppealChat != "" {
		text += "\nAppeal in " + r.opts.AppealChat
	}
	return text
}

func (r *Rules) enforcementResult() pipeline.Result {
	if r.opts.GbanStops {
		return pipeline.Stop
	}
	return pipeline.Continue
}

func (r *Rules) gbanMessageStage() pipeline.Stage {
	return pipeline.Func{
		StageName: "gban-message",
		Filter: func(ev *bus.Event) bool {
			return isMessage(ev) && ev.Sender != nil && ev.Chat.IsGroup()
		},
		Fn: func(ctx context.Context, ev *bus.Event) (pipeline.Result, error) {
			rec, err := r.gbanned(ctx, ev.Chat.ID, ev.Sender.ID)
			if err != nil || rec == nil {
				return pipeline.Continue, err
			}
			sender, err := r.Platform.GetChatMember(ctx, ev.Chat.ID, ev.Sender.ID)
			if err == nil && sender.IsAdmin() {
				return pipeline.Continue, nil
			}
			bot, err := r.Platform.GetChatMember(ctx, ev.Chat.ID, r.Platform.BotID())
			if err != nil || !bot.CanRestrict() {
				return pipeline.Continue, err
			}
			if err := r.Platform.BanChatMember(ctx, ev.Chat.ID, ev.Sender.ID); err != nil {
				return pipeline.Continue, fmt.Errorf("gban enforcement in %d: %w", ev.Chat.ID, err)
			}
			if bot.CanDelete() {
				if err := r.Platform.DeleteMessage(ctx, ev.Chat.ID, ev.MessageID); err != nil {
					log.Printf("[Rules] ⚠️ delete gbanned message in %d failed: %v", ev.Chat.ID, err)
				}
			}
			log.Printf("[Rules] enforced gban on %d in %d", ev.Sender.ID, ev.Chat.ID)
			r.Bus.Send(ev.Channel, ev.Chat.ID, r.gbanNotice(*ev.Sender, rec))
			return r.enforcementResult(), nil
		},
	}
}

func (r *Rules) gbanJoinStage() pipeline.Stage {
	return pipeline.Func{
		StageName: "gban-join",
		Filter: func(ev *bus.Event) bool {
			return ev.Kind == bus.KindMemberJoined && len(ev.NewMembers) > 0
		},
		Fn: func(ctx context.Context, ev *bus.Event) (pipeline.Result, error) {
			enforced := false
			var canRestrict *bool
			for _, u := range ev.NewMembers {
				if u.ID == r.Platform.BotID() {
					continue
				}
				rec, err := r.gbanned(ctx, ev.Chat.ID, u.ID)
				if err != nil {
					return pipeline.Continue, err
				}
				if rec == nil {
					continue
				}
				if canRestrict == nil {
					bot, err := r.Platform.GetChatMember(ctx, ev.Chat.ID, r.Platform.BotID())
					ok := err == nil && bot.CanRestrict()
					canRestrict = &ok
				}
				if !*canRestrict {
					return pipeline.Continue, nil
				}
				if err := r.Platform.BanChatMember(ctx, ev.Chat.ID, u.ID); err != nil {
					log.Printf("[Rules] ⚠️ gban on join of %d in %d failed: %v", u.ID, ev.Chat.ID, err)
					continue
				}
				enforced = true
				r.Bus.Send(ev.Channel, ev.Chat.ID, r.gbanNotice(u, rec))
			}
			if enforced {
				return r.enforcementResult(), nil
			}
			return pipeline.Continue, nil
		},
	}
}
