package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
)

func (b *Builtins) warnCommands() []Entry {
	return []Entry{
		{Names: []string{"warn"}, Module: "warns", Help: "<user> [reason]: warn a user; reaching the limit bans them", Handler: b.warn},
		{Names: []string{"warns", "warnings"}, Module: "warns", Help: "[user]: list a user's warnings", Handler: b.listWarns},
		{Names: []string{"resetwarns", "rmwarns"}, Module: "warns", Help: "<user>: clear a user's warnings", Handler: b.resetWarns},
		{Names: []string{"setwarnlimit"}, Module: "warns", Help: "[n]: show or set the warnings that trigger a ban", Handler: b.setWarnLimit},
	}
}

func (b *Builtins) warn(ctx context.Context, c *Context) error {
	ident, reason, ok := b.restrictTarget(ctx, c, "warn", true)
	if !ok {
		return nil
	}
	chatID := c.Event.Chat.ID
	count, err := b.Store.AddWarning(ctx, chatID, ident.ID, reason, c.Event.SenderID())
	if err != nil {
		return err
	}
	limit, err := b.Store.WarnLimit(ctx, chatID)
	if err != nil {
		log.Printf("[Commands] ⚠️ warn limit for %d: %v", chatID, err)
	}

	if count < limit {
		b.reply(c, withReason(fmt.Sprintf("Warned %s (%d/%d).", ident.DisplayName(), count, limit), reason))
		return nil
	}
	if err := b.Platform.BanChatMember(ctx, chatID, ident.ID); err != nil {
		return fmt.Errorf("ban %d in %d after %d warnings: %w", ident.ID, chatID, count, err)
	}
	if _, err := b.Store.ResetWarnings(ctx, chatID, ident.ID); err != nil {
		log.Printf("[Commands] ⚠️ reset warnings of %d in %d: %v", ident.ID, chatID, err)
	}
	log.Printf("[Commands] %d reached %d/%d warnings in %d, banned", ident.ID, count, limit, chatID)
	b.reply(c, fmt.Sprintf("%s reached %d/%d warnings and has been banned.", ident.DisplayName(), count, limit))
	return nil
}

func (b *Builtins) listWarns(ctx context.Context, c *Context) error {
	if !b.requireGroup(c) {
		return nil
	}
	ident, _, err := b.target(ctx, c)
	if errors.Is(err, errNoTarget) {
		ident, err = senderIdentity(c.Event)
	}
	if err != nil {
		b.reply(c, "I couldn't find that user.")
		return nil
	}
	chatID := c.Event.Chat.ID
	warns, err := b.Store.Warnings(ctx, chatID, ident.ID)
	if err != nil {
		return err
	}
	limit, _ := b.Store.WarnLimit(ctx, chatID)
	if len(warns) == 0 {
		b.reply(c, fmt.Sprintf("%s has no warnings.", ident.DisplayName()))
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Warnings for %s: %d/%d", ident.DisplayName(), len(warns), limit)
	for i, w := range warns {
		reason := w.Reason
		if reason == "" {
			reason = "no reason"
		}
		fmt.Fprintf(&sb, "\n%d. %s", i+1, reason)
	}
	b.reply(c, sb.String())
	return nil
}

func (b *Builtins) resetWarns(ctx context.Context, c *Context) error {
	if !b.requireGroup(c) || !b.requireAdmin(ctx, c, true) {
		return nil
	}
	ident, _, ok := b.targetOrReply(ctx, c)
	if !ok {
		return nil
	}
	n, err := b.Store.ResetWarnings(ctx, c.Event.Chat.ID, ident.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		b.reply(c, fmt.Sprintf("%s has no warnings.", ident.DisplayName()))
		return nil
	}
	b.reply(c, fmt.Sprintf("Cleared %d warnings for %s.", n, ident.DisplayName()))
	return nil
}

func (b *Builtins) setWarnLimit(ctx context.Context, c *Context) error {
	if !b.requireGroup(c) {
		return nil
	}
	chatID := c.Event.Chat.ID
	if len(c.Args) == 0 {
		limit, err := b.Store.WarnLimit(ctx, chatID)
		if err != nil {
			return err
		}
		b.reply(c, fmt.Sprintf("The warning limit in this chat is %d.", limit))
		return nil
	}
	if !b.requireAdmin(ctx, c, true) {
		return nil
	}
	limit, err := strconv.Atoi(c.Args[0])
	if err != nil || limit < 1 {
		b.reply(c, "The warning limit must be a number of at least 1.")
		return nil
	}
	if err := b.Store.SetWarnLimit(ctx, chatID, limit); err != nil {
		return err
	}
	b.reply(c, fmt.Sprintf("Warning limit set to %d.", limit))
	return nil
}
