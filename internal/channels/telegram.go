package channels

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/telegram"
)

// BotAPI is the part of the Bot API the channel drives.
type BotAPI interface {
	GetMe(ctx context.Context) (*telegram.User, error)
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) error
}

const (
	pollTimeoutSec = 30
	pollRetryDelay = 5 * time.Second
	sendTimeout    = 30 * time.Second
)

// TelegramChannel implements the Telegram bot channel using long polling.
type TelegramChannel struct {
	BaseChannel
	api BotAPI

	mu       sync.Mutex
	cancelFn context.CancelFunc
	offset   int64
}

// NewTelegramChannel creates a TelegramChannel.
func NewTelegramChannel(api BotAPI, allowChats []int64, msgBus *bus.MessageBus) *TelegramChannel {
	return &TelegramChannel{
		BaseChannel: BaseChannel{
			ChannelName: "telegram",
			Bus:         msgBus,
			AllowChats:  allowChats,
		},
		api: api,
	}
}

func (t *TelegramChannel) Name() string { return "telegram" }

// Start begins long polling for Telegram updates.
func (t *TelegramChannel) Start(ctx context.Context) error {
	if t.api == nil {
		return fmt.Errorf("telegram bot token not configured")
	}
	me, err := t.api.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	log.Printf("[Telegram] ✅ bot @%s connected", me.Username)

	t.mu.Lock()
	ctx, t.cancelFn = context.WithCancel(ctx)
	t.mu.Unlock()
	t.setRunning(true)
	defer t.setRunning(false)

	for {
		if ctx.Err() != nil {
			return nil
		}
		updates, err := t.api.GetUpdates(ctx, t.offset, pollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			delay := pollRetryDelay
			var apiErr *telegram.APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				delay = time.Duration(apiErr.RetryAfter) * time.Second
			}
			log.Printf("[Telegram] ⚠️ getUpdates failed, retrying in %s: %v", delay, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}
		for _, u := range updates {
			t.offset = u.UpdateID + 1
			if ev := EventFromUpdate(u); ev != nil {
				t.Publish(ctx, ev)
			}
		}
	}
}

// Stop stops the Telegram bot.
func (t *TelegramChannel) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelFn != nil {
		t.cancelFn()
	}
	return nil
}

// Send sends a plain-text message, retrying once when rate limited.
func (t *TelegramChannel) Send(msg bus.OutboundMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	err := t.api.SendMessage(ctx, msg.ChatID, msg.Content, msg.ReplyTo)
	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(apiErr.RetryAfter) * time.Second):
		}
		err = t.api.SendMessage(ctx, msg.ChatID, msg.Content, msg.ReplyTo)
	}
	return err
}

// EventFromUpdate converts one Bot API update into a pipeline event.
// Unsupported updates return nil.
func EventFromUpdate(u telegram.Update) *bus.Event {
	var ev *bus.Event
	switch {
	case u.Message != nil:
		ev = messageEvent(u.Message)
		switch {
		case len(u.Message.NewChatMembers) > 0:
			ev.Kind = bus.KindMemberJoined
		case u.Message.LeftChatMember != nil:
			ev.Kind = bus.KindMemberLeft
		}
	case u.EditedMessage != nil:
		ev = messageEvent(u.EditedMessage)
		ev.Kind = bus.KindEditedMessage
	case u.MyChatMember != nil:
		m := u.MyChatMember
		ev = &bus.Event{
			Kind: bus.KindMyChatMember,
			Date: time.Unix(m.Date, 0),
			Chat: chatFrom(m.Chat),
			MemberUpdate: &bus.MemberUpdate{
				From:      userFrom(m.From),
				Member:    userFrom(m.NewChatMember.User),
				OldStatus: m.OldChatMember.Status,
				NewStatus: m.NewChatMember.Status,
			},
		}
	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		if q.Message == nil {
			return nil
		}
		from := userFrom(q.From)
		ev = &bus.Event{
			Kind:      bus.KindCallback,
			MessageID: q.Message.MessageID,
			Date:      time.Unix(q.Message.Date, 0),
			Chat:      chatFrom(q.Message.Chat),
			Sender:    &from,
			Text:      q.Data,
		}
	default:
		return nil
	}
	ev.Channel = "telegram"
	ev.UpdateID = u.UpdateID
	return ev
}

func messageEvent(m *telegram.Message) *bus.Event {
	text, entities := m.Text, m.Entities
	if text == "" {
		text, entities = m.Caption, m.CaptionEntities
	}
	ev := &bus.Event{
		Channel:   "telegram",
		Kind:      bus.KindMessage,
		MessageID: m.MessageID,
		Date:      time.Unix(m.Date, 0),
		Chat:      chatFrom(m.Chat),
		Text:      text,
	}
	if m.From != nil {
		u := userFrom(*m.From)
		ev.Sender = &u
	}
	if m.SenderChat != nil {
		c := chatFrom(*m.SenderChat)
		ev.SenderChat = &c
	}
	for _, e := range entities {
		ent := bus.Entity{Type: e.Type, Offset: e.Offset, Length: e.Length}
		if e.User != nil {
			u := userFrom(*e.User)
			ent.User = &u
		}
		ev.Entities = append(ev.Entities, ent)
		if e.Type == bus.EntityBotCommand && e.Offset == 0 {
			ev.IsCommand = true
		}
	}
	for _, u := range m.NewChatMembers {
		ev.NewMembers = append(ev.NewMembers, userFrom(u))
	}
	if m.LeftChatMember != nil {
		u := userFrom(*m.LeftChatMember)
		ev.LeftMember = &u
	}
	if m.ReplyToMessage != nil {
		reply := *m.ReplyToMessage
		reply.ReplyToMessage = nil
		ev.ReplyTo = messageEvent(&reply)
	}
	return ev
}

func userFrom(u telegram.User) bus.User {
	return bus.User{
		ID:           u.ID,
		IsBot:        u.IsBot,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		LanguageCode: u.LanguageCode,
	}
}

func chatFrom(c telegram.Chat) bus.Chat {
	title := c.Title
	if title == "" {
		title = bus.User{FirstName: c.FirstName, LastName: c.LastName}.FullName()
	}
	return bus.Chat{ID: c.ID, Type: bus.ChatType(c.Type), Title: title, Username: c.Username}
}
