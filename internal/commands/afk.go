package commands

import (
	"context"
	"fmt"

	"github.com/dayuer/guardbot-go/internal/bus"
)

// DefaultAFKReason is used when no reason is given.
const DefaultAFKReason = "No reason"

// AFKStore persists AFK statuses.
type AFKStore interface {
	SetAFK(ctx context.Context, userID int64, reason string) error
}

// MarkAFK sets the sender of ev as AFK and announces it. Used by /afk and the brb shortcut.
func MarkAFK(ctx context.Context, st AFKStore, msgBus *bus.MessageBus, ev *bus.Event, reason string) error {
	if ev.SenderChat != nil || ev.Sender == nil {
		msgBus.Reply(ev, "Channels cannot be AFK.")
		return nil
	}
	if reason == "" {
		reason = DefaultAFKReason
	}
	if err := st.SetAFK(ctx, ev.Sender.ID, reason); err != nil {
		return err
	}
	msgBus.Reply(ev, fmt.Sprintf("%s is now AFK!\nReason: %s", bus.IdentityFromUser(*ev.Sender).DisplayName(), reason))
	return nil
}

func (b *Builtins) afkCommands() []Entry {
	return []Entry{
		{Names: []string{"afk"}, Module: "afk", Manageable: true, Help: "[reason]: mark yourself away", Handler: b.afk},
	}
}

func (b *Builtins) afk(ctx context.Context, c *Context) error {
	return MarkAFK(ctx, b.Store, b.Bus, c.Event, c.ArgText)
}
