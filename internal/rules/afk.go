package rules

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/commands"
	"github.com/dayuer/guardbot-go/internal/pipeline"
)

// brbReason returns the reason after a leading "brb" word.
func brbReason(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.EqualFold(fields[0], "brb") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimSpace(text)[len(fields[0]):]), true
}

func (r *Rules) brbStage() pipeline.Stage {
	return pipeline.Func{
		StageName: "brb",
		Filter: func(ev *bus.Event) bool {
			if !isMessage(ev) {
				return false
			}
			_, ok := brbReason(ev.Text)
			return ok
		},
		Fn: func(ctx context.Context, ev *bus.Event) (pipeline.Result, error) {
			reason, _ := brbReason(ev.Text)
			if err := commands.MarkAFK(ctx, r.Store, r.Bus, ev, reason); err != nil {
				return pipeline.Stop, err
			}
			return pipeline.Stop, nil
		},
	}
}

func (r *Rules) afkReturnStage() pipeline.Stage {
	return pipeline.Func{
		StageName: "afk-return",
		Filter: func(ev *bus.Event) bool {
			return isMessage(ev) && ev.Sender != nil && ev.SenderChat == nil
		},
		Fn: func(ctx context.Context, ev *bus.Event) (pipeline.Result, error) {
			if name, ok := r.commandName(ev); ok && name == "afk" {
				return pipeline.Continue, nil
			}
			st, err := r.Store.AFK(ctx, ev.Sender.ID)
			if err != nil || st == nil {
				return pipeline.Continue, err
			}
			if _, err := r.Store.ClearAFK(ctx, ev.Sender.ID); err != nil {
				return pipeline.Continue, err
			}
			r.Bus.Reply(ev, fmt.Sprintf("Welcome back, %s! You've been AFK for: %s",
				bus.IdentityFromUser(*ev.Sender).DisplayName(), commands.ReadableDuration(time.Since(st.Since))))
			return pipeline.Continue, nil
		},
	}
}

// afkTargets collects the users ev refers to: the replied-to sender,
// text mentions, and @mentions known to the identity cache.
func (r *Rules) afkTargets(ctx context.Context, ev *bus.Event) []bus.Identity {
	seen := map[int64]bool{ev.SenderID(): true}
	var out []bus.Identity
	add := func(ident bus.Identity) {
		if ident.ID == 0 || seen[ident.ID] {
			return
		}
		seen[ident.ID] = true
		out = append(out, ident)
	}

	if ev.ReplyTo != nil && ev.ReplyTo.Sender != nil && ev.ReplyTo.SenderChat == nil {
		add(bus.IdentityFromUser(*ev.ReplyTo.Sender))
	}
	for _, ent := range ev.Mentions() {
		switch {
		case ent.Type == bus.EntityTextMention && ent.User != nil:
			add(bus.IdentityFromUser(*ent.User))
		case ent.Type == bus.EntityMention && r.Cache != nil:
			if ident, ok := r.Cache.ByHandle(ctx, ev.EntityText(ent)); ok {
				add(ident)
			}
		}
	}
	return out
}

func (r *Rules) afkMentionStage() pipeline.Stage {
	return pipeline.Func{
		StageName: "afk-mention",
		Filter: func(ev *bus.Event) bool {
			return isMessage(ev) && ev.HasText() && (ev.ReplyTo != nil || len(ev.Mentions()) > 0)
		},
		Fn: func(ctx context.Context, ev *bus.Event) (pipeline.Result, error) {
			if r.isCommand(ev) {
				return pipeline.Continue, nil
			}
			for _, target := range r.afkTargets(ctx, ev) {
				st, err := r.Store.AFK(ctx, target.ID)
				if err != nil {
					return pipeline.Continue, err
				}
				if st == nil {
					continue
				}
				if ev.Chat.IsGroup() {
					m, err := r.Platform.GetChatMember(ctx, ev.Chat.ID, target.ID)
					if err != nil {
						log.Printf("[Rules] ⚠️ member lookup for afk %d failed: %v", target.ID, err)
					} else if !m.Present() {
						continue
					}
				}
				r.Bus.Reply(ev, fmt.Sprintf("Hey! %s is currently AFK!\nLast seen: %s ago\nReason: %s",
					target.DisplayName(), commands.ReadableDuration(time.Since(st.Since)), st.Reason))
			}
			return pipeline.Continue, nil
		},
	}
}
