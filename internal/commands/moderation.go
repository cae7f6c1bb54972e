package commands

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/privilege"
)

func (b *Builtins) moderationCommands() []Entry {
	return []Entry{
		{Names: []string{"kick"}, Module: "bans", Help: "<user>: remove a user from this chat", Handler: b.kick},
		{Names: []string{"ban"}, Module: "bans", Help: "<user> [reason]: ban a user from this chat", Handler: b.ban},
		{Names: []string{"unban"}, Module: "bans", Help: "<user>: lift a ban in this chat", Handler: b.unban},
		{Names: []string{"mute"}, Module: "mutes", Help: "<user> [reason]: stop a user from sending messages", Handler: b.mute},
		{Names: []string{"unmute"}, Module: "mutes", Help: "<user>: let a muted user talk again", Handler: b.unmute},
		{Names: []string{"blacklist", "blist"}, Module: "blacklist", MinLevel: privilege.Sudo, Help: "<user> [reason]: make the bot ignore a user", Handler: b.blacklist},
		{Names: []string{"unblacklist", "unblist"}, Module: "blacklist", MinLevel: privilege.Sudo, Help: "<user>: lift a blacklist", Handler: b.unblacklist},
		{Names: []string{"blacklistchat"}, Module: "blacklist", MinLevel: privilege.Sudo, Help: "<chat id> [reason]: refuse to stay in a chat", Handler: b.blacklistChat},
		{Names: []string{"unblacklistchat"}, Module: "blacklist", MinLevel: privilege.Sudo, Help: "<chat id>: allow a chat again", Handler: b.unblacklistChat},
		{Names: []string{"gban"}, Module: "globalbans", MinLevel: privilege.Support, Help: "<user> [reason]: ban a user from every chat", Handler: b.gban},
		{Names: []string{"ungban"}, Module: "globalbans", MinLevel: privilege.Support, Help: "<user>: lift a global ban", Handler: b.ungban},
		{Names: []string{"gbanstat"}, Module: "globalbans", Help: "on|off: enforce global bans in this chat", Handler: b.gbanStat},
	}
}

// protectedReason explains why ident may not be moderated, or returns "".
func (b *Builtins) protectedReason(ctx context.Context, ident bus.Identity) string {
	if ident.ID == b.Platform.BotID() {
		return "I'm not going to do that to myself."
	}
	if b.Privilege.IsPrivileged(ctx, ident.ID) {
		return "That user is bot staff."
	}
	return ""
}

func (b *Builtins) kick(ctx context.Context, c *Context) error {
	ident, _, ok := b.restrictTarget(ctx, c, "kick", true)
	if !ok {
		return nil
	}
	chatID := c.Event.Chat.ID
	if err := b.Platform.BanChatMember(ctx, chatID, ident.ID); err != nil {
		return fmt.Errorf("kick %d from %d: %w", ident.ID, chatID, err)
	}
	if err := b.Platform.UnbanChatMember(ctx, chatID, ident.ID); err != nil {
		log.Printf("[Commands] ⚠️ unban after kick of %d in %d failed: %v", ident.ID, chatID, err)
	}
	b.reply(c, fmt.Sprintf("Kicked %s.", ident.DisplayName()))
	return nil
}

func (b *Builtins) blacklist(ctx context.Context, c *Context) error {
	ident, reason, ok := b.targetOrReply(ctx, c)
	if !ok {
		return nil
	}
	if why := b.protectedReason(ctx, ident); why != "" {
		b.reply(c, why)
		return nil
	}
	if reason == "" {
		reason = "No reason given"
	}
	added, err := b.Store.AddBlacklist(ctx, ident.ID, reason, c.Event.SenderID())
	if err != nil {
		return err
	}
	if !added {
		b.reply(c, fmt.Sprintf("%s is already blacklisted.", ident.DisplayName()))
		return nil
	}
	log.Printf("[Commands] %d blacklisted %d: %s", c.Event.SenderID(), ident.ID, reason)
	b.reply(c, fmt.Sprintf("Blacklisted %s.\nReason: %s", ident.DisplayName(), reason))
	return nil
}

func (b *Builtins) unblacklist(ctx context.Context, c *Context) error {
	ident, _, ok := b.targetOrReply(ctx, c)
	if !ok {
		return nil
	}
	removed, err := b.Store.RemoveBlacklist(ctx, ident.ID)
	if err != nil {
		return err
	}
	if !removed {
		b.reply(c, fmt.Sprintf("%s is not blacklisted.", ident.DisplayName()))
		return nil
	}
	b.reply(c, fmt.Sprintf("Removed %s from the blacklist.", ident.DisplayName()))
	return nil
}

func (b *Builtins) chatIDArg(c *Context) (int64, bool) {
	if len(c.Args) == 0 {
		if c.Event.Chat.IsGroup() {
			return c.Event.Chat.ID, true
		}
		b.reply(c, fmt.Sprintf("Usage: /%s <chat id>", c.Name))
		return 0, false
	}
	id, err := strconv.ParseInt(c.Args[0], 10, 64)
	if err != nil || id == 0 {
		b.reply(c, fmt.Sprintf("%q is not a chat ID.", c.Args[0]))
		return 0, false
	}
	return id, true
}

func (b *Builtins) blacklistChat(ctx context.Context, c *Context) error {
	chatID, ok := b.chatIDArg(c)
	if !ok {
		return nil
	}
	reason := "No reason given"
	if len(c.Args) > 1 {
		reason = strings.TrimSpace(strings.TrimPrefix(c.ArgText, c.Args[0]))
	}
	added, err := b.Store.BlacklistChat(ctx, chatID, reason, c.Event.SenderID())
	if err != nil {
		return err
	}
	if !added {
		b.reply(c, fmt.Sprintf("Chat %d is already blacklisted.", chatID))
		return nil
	}
	b.reply(c, fmt.Sprintf("Chat %d blacklisted. I'll leave it next time I'm added.", chatID))
	return nil
}

func (b *Builtins) unblacklistChat(ctx context.Context, c *Context) error {
	chatID, ok := b.chatIDArg(c)
	if !ok {
		return nil
	}
	removed, err := b.Store.UnblacklistChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !removed {
		b.reply(c, fmt.Sprintf("Chat %d is not blacklisted.", chatID))
		return nil
	}
	b.reply(c, fmt.Sprintf("Chat %d removed from the blacklist.", chatID))
	return nil
}

func (b *Builtins) gban(ctx context.Context, c *Context) error {
	ident, reason, ok := b.targetOrReply(ctx, c)
	if !ok {
		return nil
	}
	if why := b.protectedReason(ctx, ident); why != "" {
		b.reply(c, why)
		return nil
	}
	if reason == "" {
		reason = "No reason given"
	}
	added, err := b.Store.AddGlobalBan(ctx, ident.ID, reason, c.Event.SenderID())
	if err != nil {
		return err
	}
	if !added {
		b.reply(c, fmt.Sprintf("%s is already globally banned.", ident.DisplayName()))
		return nil
	}
	log.Printf("[Commands] %d gbanned %d: %s", c.Event.SenderID(), ident.ID, reason)

	if c.Event.Chat.IsGroup() && b.botCanRestrict(ctx, c.Event.Chat.ID) {
		if err := b.Platform.BanChatMember(ctx, c.Event.Chat.ID, ident.ID); err != nil {
			log.Printf("[Commands] ⚠️ local ban of %d in %d failed: %v", ident.ID, c.Event.Chat.ID, err)
		}
	}
	b.reply(c, fmt.Sprintf("%s has been globally banned.\nReason: %s", ident.DisplayName(), reason))
	return nil
}

func (b *Builtins) ungban(ctx context.Context, c *Context) error {
	ident, _, ok := b.targetOrReply(ctx, c)
	if !ok {
		return nil
	}
	removed, err := b.Store.RemoveGlobalBan(ctx, ident.ID)
	if err != nil {
		return err
	}
	if !removed {
		b.reply(c, fmt.Sprintf("%s is not globally banned.", ident.DisplayName()))
		return nil
	}
	if c.Event.Chat.IsGroup() {
		if err := b.Platform.UnbanChatMember(ctx, c.Event.Chat.ID, ident.ID); err != nil {
			log.Printf("[Commands] ⚠️ local unban of %d in %d failed: %v", ident.ID, c.Event.Chat.ID, err)
		}
	}
	b.reply(c, fmt.Sprintf("Lifted the global ban on %s.", ident.DisplayName()))
	return nil
}

func (b *Builtins) gbanStat(ctx context.Context, c *Context) error {
	if !b.requireGroup(c) {
		return nil
	}
	if len(c.Args) == 0 {
		p, err := b.Store.Policy(ctx, c.Event.Chat.ID)
		if err != nil {
			return err
		}
		b.reply(c, "Global ban enforcement is "+onOff(p.EnforceGban)+" in this chat.")
		return nil
	}
	if !b.requireAdmin(ctx, c, false) {
		return nil
	}
	on, ok := parseToggle(c.Args[0])
	if !ok {
		b.reply(c, "Usage: /gbanstat on|off")
		return nil
	}
	if err := b.Store.SetEnforceGban(ctx, c.Event.Chat.ID, on); err != nil {
		return err
	}
	b.reply(c, "Global ban enforcement turned "+onOff(on)+".")
	return nil
}
