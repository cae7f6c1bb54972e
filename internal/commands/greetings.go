package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/dayuer/guardbot-go/internal/store"
)

// Default greeting templates. {first}, {fullname}, {username}, {id} and
// {chat} are substituted by the membership stage.
const (
	DefaultWelcome = "Hey {first}, welcome to {chat}!"
	DefaultGoodbye = "{first} has left the chat."
)

func (b *Builtins) greetingCommands() []Entry {
	return []Entry{
		{Names: []string{"welcome"}, Module: "greetings", Help: "on|off [text]: greet new members", Handler: b.welcome},
		{Names: []string{"goodbye"}, Module: "greetings", Help: "on|off [text]: say goodbye to leaving members", Handler: b.goodbye},
		{Names: []string{"cleanservice"}, Module: "greetings", Help: "on|off: delete join/leave service messages", Handler: b.cleanService},
		{Names: []string{"rules"}, Module: "greetings", Manageable: true, Help: "show the chat rules", Handler: b.rules},
		{Names: []string{"setrules"}, Module: "greetings", Help: "<text>: set the chat rules", Handler: b.setRules},
	}
}

// greetingToggle handles the shared "on|off [text]" grammar of /welcome and /goodbye.
func (b *Builtins) greetingToggle(ctx context.Context, c *Context, current func(store.ChatPolicy) (bool, string),
	set func(ctx context.Context, chatID int64, on bool, text string) error, fallback string) error {
	if !b.requireGroup(c) {
		return nil
	}
	if len(c.Args) == 0 {
		p, err := b.Store.Policy(ctx, c.Event.Chat.ID)
		if err != nil {
			return err
		}
		on, text := current(p)
		if text == "" {
			text = fallback
		}
		b.reply(c, fmt.Sprintf("/%s is %s.\nMessage: %s", c.Name, onOff(on), text))
		return nil
	}
	if !b.requireAdmin(ctx, c, false) {
		return nil
	}
	on, ok := parseToggle(c.Args[0])
	if !ok {
		b.reply(c, fmt.Sprintf("Usage: /%s on|off [text]", c.Name))
		return nil
	}
	if err := set(ctx, c.Event.Chat.ID, on, trimFirstArg(c)); err != nil {
		return err
	}
	b.reply(c, fmt.Sprintf("/%s turned %s.", c.Name, onOff(on)))
	return nil
}

func (b *Builtins) welcome(ctx context.Context, c *Context) error {
	return b.greetingToggle(ctx, c,
		func(p store.ChatPolicy) (bool, string) { return p.WelcomeEnabled, p.WelcomeText },
		b.Store.SetWelcome, DefaultWelcome)
}

func (b *Builtins) goodbye(ctx context.Context, c *Context) error {
	return b.greetingToggle(ctx, c,
		func(p store.ChatPolicy) (bool, string) { return p.GoodbyeEnabled, p.GoodbyeText },
		b.Store.SetGoodbye, DefaultGoodbye)
}

func (b *Builtins) cleanService(ctx context.Context, c *Context) error {
	if !b.requireGroup(c) || !b.requireAdmin(ctx, c, false) {
		return nil
	}
	if len(c.Args) == 0 {
		p, err := b.Store.Policy(ctx, c.Event.Chat.ID)
		if err != nil {
			return err
		}
		b.reply(c, "Service message cleaning is "+onOff(p.CleanService)+".")
		return nil
	}
	on, ok := parseToggle(c.Args[0])
	if !ok {
		b.reply(c, "Usage: /cleanservice on|off")
		return nil
	}
	if err := b.Store.SetCleanService(ctx, c.Event.Chat.ID, on); err != nil {
		return err
	}
	b.reply(c, "Service message cleaning turned "+onOff(on)+".")
	return nil
}

func (b *Builtins) rules(ctx context.Context, c *Context) error {
	if !b.requireGroup(c) {
		return nil
	}
	p, err := b.Store.Policy(ctx, c.Event.Chat.ID)
	if err != nil {
		return err
	}
	if p.RulesText == "" {
		b.reply(c, "No rules have been set for this chat.")
		return nil
	}
	b.reply(c, "Rules:\n"+p.RulesText)
	return nil
}

func (b *Builtins) setRules(ctx context.Context, c *Context) error {
	if !b.requireGroup(c) || !b.requireAdmin(ctx, c, false) {
		return nil
	}
	text := c.ArgText
	if text == "" && c.Event.ReplyTo != nil {
		text = c.Event.ReplyTo.Text
	}
	if err := b.Store.SetRules(ctx, c.Event.Chat.ID, text); err != nil {
		return err
	}
	if text == "" {
		b.reply(c, "Rules cleared.")
		return nil
	}
	b.reply(c, "Rules updated.")
	return nil
}

func trimFirstArg(c *Context) string {
	if len(c.Args) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(c.ArgText, c.Args[0]))
}
