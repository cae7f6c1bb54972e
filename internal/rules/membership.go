package rules

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/commands"
	"github.com/dayuer/guardbot-go/internal/pipeline"
)

// FormatGreeting substitutes member and chat placeholders in a greeting template.
func FormatGreeting(tmpl string, u bus.User, chat bus.Chat) string {
	username := "@" + u.Username
	if u.Username == "" {
		username = u.FullName()
	}
	return strings.NewReplacer(
		"{first}", u.FirstName,
		"{last}", u.LastName,
		"{fullname}", u.FullName(),
		"{username}", username,
		"{id}", strconv.FormatInt(u.ID, 10),
		"{chat}", chat.Title,
	).Replace(tmpl)
}

func (r *Rules) membershipStage() pipeline.Stage {
	return pipeline.Func{
		StageName: "membership",
		Filter: func(ev *bus.Event) bool {
			switch ev.Kind {
			case bus.KindMemberJoined, bus.KindMemberLeft:
				return true
			case bus.KindMyChatMember:
				return botAdded(ev)
			}
			return false
		},
		Fn: func(ctx context.Context, ev *bus.Event) (pipeline.Result, error) {
			switch ev.Kind {
			case bus.KindMyChatMember:
				return pipeline.Continue, r.onBotAdded(ctx, ev)
			case bus.KindMemberJoined:
				return pipeline.Continue, r.onJoined(ctx, ev)
			default:
				return pipeline.Continue, r.onLeft(ctx, ev)
			}
		},
	}
}

func (r *Rules) onBotAdded(ctx context.Context, ev *bus.Event) error {
	if err := r.Store.AddChat(ctx, ev.Chat); err != nil {
		return err
	}
	r.Known.Add(ctx, ev.Chat.ID)
	by := "unknown"
	if ev.MemberUpdate != nil {
		by = bus.IdentityFromUser(ev.MemberUpdate.From).DisplayName()
	}
	log.Printf("[Rules] ✅ added to chat %d (%s) by %s", ev.Chat.ID, ev.Chat.Title, by)
	r.notify(fmt.Sprintf("➕ Added to %s (%d) by %s", ev.Chat.Title, ev.Chat.ID, by))
	return nil
}

func (r *Rules) onJoined(ctx context.Context, ev *bus.Event) error {
	policy, err := r.Store.Policy(ctx, ev.Chat.ID)
	if err != nil {
		return err
	}
	r.cleanService(ctx, ev, policy.CleanService)
	if !policy.WelcomeEnabled {
		return nil
	}
	tmpl := policy.WelcomeText
	if tmpl == "" {
		tmpl = commands.DefaultWelcome
	}
	for _, u := range ev.NewMembers {
		if u.ID == r.Platform.BotID() {
			continue
		}
		if rec, err := r.gbanned(ctx, ev.Chat.ID, u.ID); err == nil && rec != nil {
			continue
		}
		r.Bus.Send(ev.Channel, ev.Chat.ID, FormatGreeting(tmpl, u, ev.Chat))
	}
	return nil
}

func (r *Rules) onLeft(ctx context.Context, ev *bus.Event) error {
	if ev.LeftMember == nil || ev.LeftMember.ID == r.Platform.BotID() {
		return nil
	}
	if r.Cache != nil {
		if err := r.Cache.Put(ctx, bus.IdentityFromUser(*ev.LeftMember)); err != nil {
			log.Printf("[Rules] ⚠️ identity refresh for %d failed: %v", ev.LeftMember.ID, err)
		}
	}
	policy, err := r.Store.Policy(ctx, ev.Chat.ID)
	if err != nil {
		return err
	}
	r.cleanService(ctx, ev, policy.CleanService)
	if !policy.GoodbyeEnabled {
		return nil
	}
	tmpl := policy.GoodbyeText
	if tmpl == "" {
		tmpl = commands.DefaultGoodbye
	}
	r.Bus.Send(ev.Channel, ev.Chat.ID, FormatGreeting(tmpl, *ev.LeftMember, ev.Chat))
	return nil
}

func (r *Rules) cleanService(ctx context.Context, ev *bus.Event, enabled bool) {
	if !enabled || ev.MessageID == 0 {
		return
	}
	if err := r.Platform.DeleteMessage(ctx, ev.Chat.ID, ev.MessageID); err != nil {
		log.Printf("[Rules] ⚠️ clean service message in %d failed: %v", ev.Chat.ID, err)
	}
}
