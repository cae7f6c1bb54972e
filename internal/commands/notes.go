package commands

import (
	"context"
	"fmt"
	"strings"
)

func (b *Builtins) noteCommands() []Entry {
	return []Entry{
		{Names: []string{"save", "addnote"}, Module: "notes", Help: "<name> <text>: save a note (or reply to a message)", Handler: b.saveNote},
		{Names: []string{"get"}, Module: "notes", Manageable: true, Help: "<name>: show a note", Handler: b.getNote},
		{Names: []string{"notes", "saved"}, Module: "notes", Manageable: true, Help: "list notes in this chat", Handler: b.listNotes},
		{Names: []string{"clear", "delnote"}, Module: "notes", Help: "<name>: delete a note", Handler: b.clearNote},
	}
}

func (b *Builtins) saveNote(ctx context.Context, c *Context) error {
	if !b.requireGroup(c) || !b.requireAdmin(ctx, c, false) {
		return nil
	}
	if len(c.Args) == 0 {
		b.reply(c, "Usage: /save <name> <text>, or reply to a message with /save <name>")
		return nil
	}
	name := strings.ToLower(strings.TrimPrefix(c.Args[0], "#"))
	content := strings.TrimSpace(strings.TrimPrefix(c.ArgText, c.Args[0]))
	if content == "" && c.Event.ReplyTo != nil {
		content = c.Event.ReplyTo.Text
	}
	if name == "" || content == "" {
		b.reply(c, "A note needs a name and some text.")
		return nil
	}
	if err := b.Store.SaveNote(ctx, c.Event.Chat.ID, name, content, c.Event.SenderID()); err != nil {
		return err
	}
	b.reply(c, fmt.Sprintf("Saved note #%s. Get it with /get %s or #%s.", name, name, name))
	return nil
}

func (b *Builtins) getNote(ctx context.Context, c *Context) error {
	if len(c.Args) == 0 {
		b.reply(c, "Usage: /get <name>")
		return nil
	}
	name := strings.TrimPrefix(c.Args[0], "#")
	content, ok, err := b.Store.GetNote(ctx, c.Event.Chat.ID, name)
	if err != nil {
		return err
	}
	if !ok {
		b.reply(c, fmt.Sprintf("No note named #%s.", strings.ToLower(name)))
		return nil
	}
	b.reply(c, content)
	return nil
}

func (b *Builtins) listNotes(ctx context.Context, c *Context) error {
	names, err := b.Store.ListNotes(ctx, c.Event.Chat.ID)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		b.reply(c, "No notes in this chat.")
		return nil
	}
	b.reply(c, "Notes in this chat:\n"+bulletList(names, "#"))
	return nil
}

func (b *Builtins) clearNote(ctx context.Context, c *Context) error {
	if !b.requireGroup(c) || !b.requireAdmin(ctx, c, false) {
		return nil
	}
	if len(c.Args) == 0 {
		b.reply(c, "Usage: /clear <name>")
		return nil
	}
	name := strings.ToLower(strings.TrimPrefix(c.Args[0], "#"))
	removed, err := b.Store.DeleteNote(ctx, c.Event.Chat.ID, name)
	if err != nil {
		return err
	}
	if !removed {
		b.reply(c, fmt.Sprintf("No note named #%s.", name))
		return nil
	}
	b.reply(c, fmt.Sprintf("Deleted note #%s.", name))
	return nil
}
