// Package bus provides the event model and the async message bus between
// platform channels and the moderation pipeline.
package bus

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf16"
)

// EventKind classifies an inbound event.
type EventKind string

const (
	KindMessage       EventKind = "message"
	KindEditedMessage EventKind = "edited_message"
	KindMemberJoined  EventKind = "member_joined"
	KindMemberLeft    EventKind = "member_left"
	KindMyChatMember  EventKind = "my_chat_member"
	KindCallback      EventKind = "callback"
)

// ChatType is the platform chat type.
type ChatType string

const (
	ChatPrivate    ChatType = "private"
	ChatGroup      ChatType = "group"
	ChatSupergroup ChatType = "supergroup"
	ChatChannel    ChatType = "channel"
)

// Entity types the pipeline cares about.
const (
	EntityMention     = "mention"
	EntityTextMention = "text_mention"
	EntityBotCommand  = "bot_command"
)

// User is a platform user as seen in an event.
type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Chat is a conversation container.
type Chat struct {
	ID       int64    `json:"id"`
	Type     ChatType `json:"type"`
	Title    string   `json:"title,omitempty"`
	Username string   `json:"username,omitempty"`
}

// IsGroup reports whether the chat is a group or supergroup.
func (c Chat) IsGroup() bool {
	return c.Type == ChatGroup || c.Type == ChatSupergroup
}

// Entity is an annotated span of the event text. Offsets are UTF-16 code units.
type Entity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	User   *User  `json:"user,omitempty"`
}

// MemberUpdate describes a change of the bot's own membership in a chat.
type MemberUpdate struct {
	From      User   `json:"from"`
	Member    User   `json:"member"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// Event is an immutable snapshot of one inbound platform update.
// It is built once by the ingestion boundary and never mutated afterwards.
type Event struct {
	Channel      string        `json:"channel"`
	Kind         EventKind     `json:"kind"`
	UpdateID     int64         `json:"update_id,omitempty"`
	MessageID    int64         `json:"message_id,omitempty"`
	Date         time.Time     `json:"date"`
	Chat         Chat          `json:"chat"`
	Sender       *User         `json:"sender,omitempty"`
	SenderChat   *Chat         `json:"sender_chat,omitempty"`
	Text         string        `json:"text,omitempty"`
	Entities     []Entity      `json:"entities,omitempty"`
	ReplyTo      *Event        `json:"reply_to,omitempty"`
	NewMembers   []User        `json:"new_members,omitempty"`
	LeftMember   *User         `json:"left_member,omitempty"`
	MemberUpdate *MemberUpdate `json:"member_update,omitempty"`
	IsCommand    bool          `json:"is_command,omitempty"`
}

// SenderID returns the sender's user id, or 0 when there is no user sender.
func (e *Event) SenderID() int64 {
	if e == nil || e.Sender == nil {
		return 0
	}
	return e.Sender.ID
}

// HasText reports whether the event carries message text.
func (e *Event) HasText() bool {
	return e != nil && e.Text != ""
}

// EntityText returns the slice of Text covered by ent.
func (e *Event) EntityText(ent Entity) string {
	units := utf16.Encode([]rune(e.Text))
	if ent.Offset < 0 || ent.Length <= 0 || ent.Offset+ent.Length > len(units) {
		return ""
	}
	return string(utf16.Decode(units[ent.Offset : ent.Offset+ent.Length]))
}

// Mentions returns the mention and text_mention entities in order.
func (e *Event) Mentions() []Entity {
	var out []Entity
	for _, ent := range e.Entities {
		if ent.Type == EntityMention || ent.Type == EntityTextMention {
			out = append(out, ent)
		}
	}
	return out
}

// Summary is a short description used in logs and fault reports.
func (e *Event) Summary() string {
	if e == nil {
		return "<nil event>"
	}
	text := e.Text
	if r := []rune(text); len(r) > 48 {
		text = string(r[:48]) + "…"
	}
	return fmt.Sprintf("%s chat=%d sender=%d msg=%d %q", e.Kind, e.Chat.ID, e.SenderID(), e.MessageID, text)
}

// OutboundMessage is sent to a chat channel.
type OutboundMessage struct {
	Channel string `json:"channel"`
	ChatID  int64  `json:"chat_id"`
	Content string `json:"content"`
	ReplyTo int64  `json:"reply_to,omitempty"`
}
