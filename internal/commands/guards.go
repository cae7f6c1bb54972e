package commands

import (
	"context"
	"log"

	"github.com/dayuer/guardbot-go/internal/privilege"
	"github.com/dayuer/guardbot-go/internal/telegram"
)

// ModuleStore answers whether a module is disabled globally.
type ModuleStore interface {
	IsModuleDisabled(ctx context.Context, module string) (bool, error)
}

// CommandStore answers whether a command is disabled in a chat.
type CommandStore interface {
	IsCommandDisabled(ctx context.Context, chatID int64, command string) (bool, error)
}

// MemberLookup fetches a chat member's status.
type MemberLookup interface {
	GetChatMember(ctx context.Context, chatID, userID int64) (telegram.ChatMember, error)
}

// LevelGate drops commands whose MinLevel exceeds the caller's level.
func LevelGate() Guard {
	return Guard{
		Name: "level",
		Allow: func(ctx context.Context, c *Context, e *Entry) bool {
			return c.Level.AtLeast(e.MinLevel)
		},
	}
}

// ModuleGate drops commands from globally disabled modules. The owner bypasses it.
func ModuleGate(st ModuleStore) Guard {
	return Guard{
		Name: "module",
		Allow: func(ctx context.Context, c *Context, e *Entry) bool {
			if c.Level == privilege.Owner || e.Module == "" {
				return true
			}
			disabled, err := st.IsModuleDisabled(ctx, e.Module)
			if err != nil {
				log.Printf("[Router] ⚠️ module check for %s failed: %v", e.Module, err)
				return true
			}
			return !disabled
		},
	}
}

// ChatCommandGate drops commands disabled in the current group chat unless
// the sender can manage the chat. Private chats and non-manageable commands pass.
func ChatCommandGate(st CommandStore, members MemberLookup) Guard {
	return Guard{
		Name: "chat-disabled",
		Allow: func(ctx context.Context, c *Context, e *Entry) bool {
			if !e.Manageable || !c.Event.Chat.IsGroup() {
				return true
			}
			disabled, err := st.IsCommandDisabled(ctx, c.Event.Chat.ID, e.Name())
			if err != nil {
				log.Printf("[Router] ⚠️ disabled check for %s failed: %v", e.Name(), err)
				return true
			}
			if !disabled {
				return true
			}
			if members == nil {
				return false
			}
			m, err := members.GetChatMember(ctx, c.Event.Chat.ID, c.Event.SenderID())
			if err != nil {
				return false
			}
			return m.CanManage()
		},
	}
}
