package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dayuer/guardbot-go/internal/privilege"
)

// coreModule cannot be disabled.
const coreModule = "core"

func (b *Builtins) coreCommands() []Entry {
	return []Entry{
		{Names: []string{"ping"}, Module: coreModule, Help: "check the bot is alive", Handler: b.ping},
		{Names: []string{"id"}, Module: coreModule, Help: "show user and chat IDs", Handler: b.id},
		{Names: []string{"info"}, Module: coreModule, Help: "show what the bot knows about a user", Handler: b.info},
		{Names: []string{"help"}, Module: coreModule, Help: "list commands", Handler: b.help},
		{Names: []string{"listmodules"}, Module: coreModule, MinLevel: privilege.Owner, Help: "list modules and their state", Handler: b.listModules},
		{Names: []string{"disablemodule"}, Module: coreModule, MinLevel: privilege.Owner, Help: "disable a module everywhere", Handler: b.disableModule},
		{Names: []string{"enablemodule"}, Module: coreModule, MinLevel: privilege.Owner, Help: "re-enable a module", Handler: b.enableModule},
		{Names: []string{"aipublic"}, Module: coreModule, MinLevel: privilege.Owner, Help: "on|off: allow AI queries from everyone", Handler: b.aiPublic},
	}
}

func (b *Builtins) ping(ctx context.Context, c *Context) error {
	start := time.Now()
	b.reply(c, fmt.Sprintf("Pong! 🏓\nUptime: %s\nLatency: %s",
		ReadableDuration(time.Since(b.Started)), time.Since(start).Round(time.Microsecond)))
	return nil
}

func (b *Builtins) id(ctx context.Context, c *Context) error {
	if c.Event.ReplyTo == nil && len(c.Args) == 0 {
		b.reply(c, fmt.Sprintf("Your ID: %d\nChat ID: %d", c.Event.SenderID(), c.Event.Chat.ID))
		return nil
	}
	ident, _, ok := b.targetOrReply(ctx, c)
	if !ok {
		return nil
	}
	b.reply(c, fmt.Sprintf("%s's ID: %d", ident.DisplayName(), ident.ID))
	return nil
}

func (b *Builtins) info(ctx context.Context, c *Context) error {
	ident, _, err := b.target(ctx, c)
	if errors.Is(err, errNoTarget) {
		ident, err = senderIdentity(c.Event)
	}
	if err != nil {
		b.reply(c, "I couldn't find that user.")
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "ID: %d\n", ident.ID)
	if ident.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", ident.Title)
	}
	if ident.FirstName != "" {
		fmt.Fprintf(&sb, "First name: %s\n", ident.FirstName)
	}
	if ident.LastName != "" {
		fmt.Fprintf(&sb, "Last name: %s\n", ident.LastName)
	}
	if ident.Handle != "" {
		fmt.Fprintf(&sb, "Username: @%s\n", ident.Handle)
	}
	if ident.IsBot {
		sb.WriteString("Bot: yes\n")
	}
	if lvl := b.Privilege.Level(ctx, ident.ID); lvl.Privileged() {
		fmt.Fprintf(&sb, "Staff: %s\n", lvl)
	}
	if rec, err := b.Store.GlobalBan(ctx, ident.ID); err != nil {
		return err
	} else if rec != nil {
		fmt.Fprintf(&sb, "Globally banned: %s\n", rec.Reason)
	}
	if rec, err := b.Store.Blacklisted(ctx, ident.ID); err != nil {
		return err
	} else if rec != nil {
		sb.WriteString("Blacklisted: yes\n")
	}
	b.reply(c, strings.TrimRight(sb.String(), "\n"))
	return nil
}

func (b *Builtins) help(ctx context.Context, c *Context) error {
	if len(c.Args) > 0 {
		e, ok := b.registry.Lookup(strings.TrimLeft(c.Args[0], "/!?"))
		if !ok {
			b.reply(c, fmt.Sprintf("No command named %q.", c.Args[0]))
			return nil
		}
		text := fmt.Sprintf("/%s: %s\nModule: %s", e.Name(), e.Help, e.Module)
		if len(e.Names) > 1 {
			text += "\nAliases: " + strings.Join(e.Names[1:], ", ")
		}
		b.reply(c, text)
		return nil
	}

	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, module := range b.registry.Modules() {
		var names []string
		for _, e := range b.registry.Entries() {
			if e.Module == module && c.Level.AtLeast(e.MinLevel) {
				names = append(names, "/"+e.Name())
			}
		}
		if len(names) > 0 {
			fmt.Fprintf(&sb, "\n%s: %s", module, strings.Join(names, " "))
		}
	}
	b.reply(c, sb.String())
	return nil
}

func (b *Builtins) listModules(ctx context.Context, c *Context) error {
	disabled, err := b.Store.DisabledModules(ctx)
	if err != nil {
		return err
	}
	off := map[string]bool{}
	for _, m := range disabled {
		off[m] = true
	}
	var sb strings.Builder
	sb.WriteString("Modules:")
	for _, m := range b.registry.Modules() {
		state := "✅"
		if off[m] {
			state = "❌"
		}
		fmt.Fprintf(&sb, "\n%s %s", state, m)
	}
	b.reply(c, sb.String())
	return nil
}

func (b *Builtins) disableModule(ctx context.Context, c *Context) error {
	module, ok := b.moduleArg(c)
	if !ok {
		return nil
	}
	if module == coreModule {
		b.reply(c, "The core module cannot be disabled.")
		return nil
	}
	changed, err := b.Store.DisableModule(ctx, module)
	if err != nil {
		return err
	}
	if !changed {
		b.reply(c, fmt.Sprintf("Module %s is already disabled.", module))
		return nil
	}
	b.reply(c, fmt.Sprintf("Module %s disabled.", module))
	return nil
}

func (b *Builtins) enableModule(ctx context.Context, c *Context) error {
	module, ok := b.moduleArg(c)
	if !ok {
		return nil
	}
	changed, err := b.Store.EnableModule(ctx, module)
	if err != nil {
		return err
	}
	if !changed {
		b.reply(c, fmt.Sprintf("Module %s is not disabled.", module))
		return nil
	}
	b.reply(c, fmt.Sprintf("Module %s enabled.", module))
	return nil
}

func (b *Builtins) moduleArg(c *Context) (string, bool) {
	if len(c.Args) == 0 {
		b.reply(c, fmt.Sprintf("Usage: /%s <module>", c.Name))
		return "", false
	}
	module := strings.ToLower(c.Args[0])
	if !b.registry.HasModule(module) {
		b.reply(c, fmt.Sprintf("Unknown module %q. See /listmodules.", module))
		return "", false
	}
	return module, true
}

func (b *Builtins) aiPublic(ctx context.Context, c *Context) error {
	if len(c.Args) == 0 {
		on, err := b.Store.PublicAI(ctx)
		if err != nil {
			return err
		}
		b.reply(c, "Public AI access is "+onOff(on)+".")
		return nil
	}
	on, ok := parseToggle(c.Args[0])
	if !ok {
		b.reply(c, "Usage: /aipublic on|off")
		return nil
	}
	if err := b.Store.SetPublicAI(ctx, on); err != nil {
		return err
	}
	b.reply(c, "Public AI access turned "+onOff(on)+".")
	return nil
}
