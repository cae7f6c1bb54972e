package rules

import (
	"context"
	"log"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/pipeline"
)

// userLoggerStage keeps the identity cache and the known-chats set warm.
// It sees every kind of event except edits, service messages included, and
// never stops the traversal.
func (r *Rules) userLoggerStage() pipeline.Stage {
	return pipeline.Func{
		StageName: "user-logger",
		Filter: func(ev *bus.Event) bool {
			return ev.Kind != bus.KindEditedMessage
		},
		Fn: func(ctx context.Context, ev *bus.Event) (pipeline.Result, error) {
			if r.Cache != nil {
				for _, ident := range observedIdentities(ev) {
					if err := r.Cache.Put(ctx, ident); err != nil {
						log.Printf("[Rules] ⚠️ identity refresh for %d failed: %v", ident.ID, err)
					}
				}
			}
			if ev.Chat.IsGroup() && !r.Known.Has(ctx, ev.Chat.ID) {
				if err := r.Store.AddChat(ctx, ev.Chat); err != nil {
					return pipeline.Continue, err
				}
				r.Known.Add(ctx, ev.Chat.ID)
				log.Printf("[Rules] discovered chat %d (%s)", ev.Chat.ID, ev.Chat.Title)
			}
			return pipeline.Continue, nil
		},
	}
}

// observedIdentities lists the sender, reply-target and joining member
// identities of ev.
func observedIdentities(ev *bus.Event) []bus.Identity {
	var out []bus.Identity
	collect := func(e *bus.Event) {
		if e == nil {
			return
		}
		if e.SenderChat != nil && e.SenderChat.Type == bus.ChatChannel {
			out = append(out, bus.IdentityFromChat(*e.SenderChat))
		} else if e.Sender != nil {
			out = append(out, bus.IdentityFromUser(*e.Sender))
		}
	}
	collect(ev)
	collect(ev.ReplyTo)
	for _, u := range ev.NewMembers {
		if ev.Sender == nil || u.ID != ev.Sender.ID {
			out = append(out, bus.IdentityFromUser(u))
		}
	}
	return out
}
