package commands

import (
	"context"
	"fmt"
	"log"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/telegram"
)

// restrictTarget runs the checks shared by kick, ban and mute: group chat,
// caller and bot may restrict, target is resolvable and not protected, and
// the target is not a chat admin. needPresent also requires the target to be
// in the chat. verb is used in refusals.
func (b *Builtins) restrictTarget(ctx context.Context, c *Context, verb string, needPresent bool) (bus.Identity, string, bool) {
	if !b.requireGroup(c) || !b.requireAdmin(ctx, c, true) {
		return bus.Identity{}, "", false
	}
	ident, reason, ok := b.targetOrReply(ctx, c)
	if !ok {
		return ident, "", false
	}
	if why := b.protectedReason(ctx, ident); why != "" {
		b.reply(c, why)
		return ident, "", false
	}
	chatID := c.Event.Chat.ID
	if m, err := b.Platform.GetChatMember(ctx, chatID, ident.ID); err == nil {
		if m.IsAdmin() {
			b.reply(c, fmt.Sprintf("I can't %s an admin.", verb))
			return ident, "", false
		}
		if needPresent && !m.Present() {
			b.reply(c, fmt.Sprintf("%s is not in this chat.", ident.DisplayName()))
			return ident, "", false
		}
	}
	if !b.botCanRestrict(ctx, chatID) {
		b.reply(c, fmt.Sprintf("I need ban permissions to %s users.", verb))
		return ident, "", false
	}
	return ident, reason, true
}

// liftTarget runs the checks shared by unban and unmute.
func (b *Builtins) liftTarget(ctx context.Context, c *Context) (bus.Identity, bool) {
	if !b.requireGroup(c) || !b.requireAdmin(ctx, c, true) {
		return bus.Identity{}, false
	}
	ident, _, ok := b.targetOrReply(ctx, c)
	if !ok {
		return ident, false
	}
	if !b.botCanRestrict(ctx, c.Event.Chat.ID) {
		b.reply(c, "I need ban permissions to do that.")
		return ident, false
	}
	return ident, true
}

func withReason(text, reason string) string {
	if reason == "" {
		return text
	}
	return text + "\nReason: " + reason
}

func (b *Builtins) ban(ctx context.Context, c *Context) error {
	ident, reason, ok := b.restrictTarget(ctx, c, "ban", false)
	if !ok {
		return nil
	}
	chatID := c.Event.Chat.ID
	if err := b.Platform.BanChatMember(ctx, chatID, ident.ID); err != nil {
		return fmt.Errorf("ban %d in %d: %w", ident.ID, chatID, err)
	}
	log.Printf("[Commands] %d banned %d in %d", c.Event.SenderID(), ident.ID, chatID)
	b.reply(c, withReason(fmt.Sprintf("Banned %s.", ident.DisplayName()), reason))
	return nil
}

func (b *Builtins) unban(ctx context.Context, c *Context) error {
	ident, ok := b.liftTarget(ctx, c)
	if !ok {
		return nil
	}
	chatID := c.Event.Chat.ID
	if err := b.Platform.UnbanChatMember(ctx, chatID, ident.ID); err != nil {
		return fmt.Errorf("unban %d in %d: %w", ident.ID, chatID, err)
	}
	b.reply(c, fmt.Sprintf("Unbanned %s. They can join again.", ident.DisplayName()))
	return nil
}

func (b *Builtins) mute(ctx context.Context, c *Context) error {
	ident, reason, ok := b.restrictTarget(ctx, c, "mute", true)
	if !ok {
		return nil
	}
	if ident.Kind == bus.IdentityChannel {
		b.reply(c, "Only users can be muted.")
		return nil
	}
	chatID := c.Event.Chat.ID
	if err := b.Platform.RestrictChatMember(ctx, chatID, ident.ID, telegram.SendPermissions(false)); err != nil {
		return fmt.Errorf("mute %d in %d: %w", ident.ID, chatID, err)
	}
	log.Printf("[Commands] %d muted %d in %d", c.Event.SenderID(), ident.ID, chatID)
	b.reply(c, withReason(fmt.Sprintf("Muted %s.", ident.DisplayName()), reason))
	return nil
}

func (b *Builtins) unmute(ctx context.Context, c *Context) error {
	ident, ok := b.liftTarget(ctx, c)
	if !ok {
		return nil
	}
	chatID := c.Event.Chat.ID
	if m, err := b.Platform.GetChatMember(ctx, chatID, ident.ID); err == nil && m.Status != telegram.StatusRestricted {
		b.reply(c, fmt.Sprintf("%s is not muted.", ident.DisplayName()))
		return nil
	}
	if err := b.Platform.RestrictChatMember(ctx, chatID, ident.ID, telegram.SendPermissions(true)); err != nil {
		return fmt.Errorf("unmute %d in %d: %w", ident.ID, chatID, err)
	}
	b.reply(c, fmt.Sprintf("Unmuted %s.", ident.DisplayName()))
	return nil
}
