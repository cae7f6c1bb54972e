package commands

import (
	"context"
	"fmt"
	"strings"
)

func (b *Builtins) disableCommands() []Entry {
	return []Entry{
		{Names: []string{"disable"}, Module: "disables", Help: "<command>: disable a command in this chat", Handler: b.disable},
		{Names: []string{"enable"}, Module: "disables", Help: "<command>: re-enable a command in this chat", Handler: b.enable},
		{Names: []string{"disabled"}, Module: "disables", Help: "list commands disabled in this chat", Handler: b.listDisabled},
		{Names: []string{"disableable"}, Module: "disables", Help: "list commands that can be disabled", Handler: b.listDisableable},
	}
}

// manageableArg validates the command argument of /disable and /enable.
func (b *Builtins) manageableArg(ctx context.Context, c *Context) (string, bool) {
	if !b.requireGroup(c) || !b.requireAdmin(ctx, c, false) {
		return "", false
	}
	if len(c.Args) == 0 {
		b.reply(c, fmt.Sprintf("Usage: /%s <command>", c.Name))
		return "", false
	}
	name, ok := b.registry.Manageable(strings.TrimLeft(c.Args[0], "/!?"))
	if !ok {
		b.reply(c, fmt.Sprintf("%q can't be disabled. See /disableable.", c.Args[0]))
		return "", false
	}
	return name, true
}

func (b *Builtins) disable(ctx context.Context, c *Context) error {
	name, ok := b.manageableArg(ctx, c)
	if !ok {
		return nil
	}
	changed, err := b.Store.DisableCommand(ctx, c.Event.Chat.ID, name)
	if err != nil {
		return err
	}
	if !changed {
		b.reply(c, fmt.Sprintf("/%s is already disabled here.", name))
		return nil
	}
	b.reply(c, fmt.Sprintf("Disabled /%s in this chat.", name))
	return nil
}

func (b *Builtins) enable(ctx context.Context, c *Context) error {
	name, ok := b.manageableArg(ctx, c)
	if !ok {
		return nil
	}
	changed, err := b.Store.EnableCommand(ctx, c.Event.Chat.ID, name)
	if err != nil {
		return err
	}
	if !changed {
		b.reply(c, fmt.Sprintf("/%s is not disabled here.", name))
		return nil
	}
	b.reply(c, fmt.Sprintf("Enabled /%s in this chat.", name))
	return nil
}

func (b *Builtins) listDisabled(ctx context.Context, c *Context) error {
	if !b.requireGroup(c) {
		return nil
	}
	names, err := b.Store.DisabledCommands(ctx, c.Event.Chat.ID)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		b.reply(c, "No commands are disabled in this chat.")
		return nil
	}
	b.reply(c, "Disabled commands:\n"+bulletList(names, "/"))
	return nil
}

func (b *Builtins) listDisableable(ctx context.Context, c *Context) error {
	b.reply(c, "Commands that can be disabled:\n"+bulletList(b.registry.ManageableNames(), "/"))
	return nil
}

func bulletList(items []string, prefix string) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "- " + prefix + it
	}
	return strings.Join(lines, "\n")
}
