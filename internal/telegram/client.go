// Package telegram is a thin Bot API client over net/http.
// It is the primary directory for the entity resolver and the platform for
// moderation actions (ban, delete, leave, member lookups).
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dayuer/guardbot-go/internal/bus"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// APIError is a Bot API failure with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// IsNotFound reports whether err is a Bot API "chat not found"/"user not found" style error.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	d := strings.ToLower(apiErr.Description)
	return apiErr.Code == 400 && (strings.Contains(d, "not found") || strings.Contains(d, "invalid"))
}

// Client calls the Bot API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	botID   atomic.Int64
	botUser atomic.Value // string
}

// NewClient creates a client. baseURL may be empty for the public endpoint.
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		// long polling holds requests for up to 30s
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// Call invokes method with params and decodes the result field into out (may be nil).
func (c *Client) Call(ctx context.Context, method string, params map[string]any, out any) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("telegram %s: encode params: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		apiResponse
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram %s: decode response (HTTP %d): %w", method, resp.StatusCode, err)
	}
	if !envelope.OK {
		apiErr := &APIError{Method: method, Code: envelope.ErrorCode, Description: envelope.Description}
		if envelope.Parameters != nil {
			apiErr.RetryAfter = envelope.Parameters.RetryAfter
		}
		return apiErr
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}

// GetMe fetches the bot's own user and caches its id and username.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.Call(ctx, "getMe", nil, &me); err != nil {
		return nil, err
	}
	c.botID.Store(me.ID)
	c.botUser.Store(me.Username)
	return &me, nil
}

// BotID returns the cached bot id (0 before GetMe).
func (c *Client) BotID() int64 { return c.botID.Load() }

// BotUsername returns the cached bot username.
func (c *Client) BotUsername() string {
	s, _ := c.botUser.Load().(string)
	return s
}

// GetUpdates long-polls for updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	var updates []Update
	err := c.Call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message", "edited_message", "my_chat_member", "callback_query"},
	}, &updates)
	return updates, err
}

// GetChat looks up a chat or user by numeric id or @handle.
func (c *Client) GetChat(ctx context.Context, ref string) (*Chat, error) {
	var chatID any = ref
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		chatID = id
	}
	var chat Chat
	if err := c.Call(ctx, "getChat", map[string]any{"chat_id": chatID}, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// SendMessage sends plain text, optionally as a reply.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) error {
	params := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if replyTo != 0 {
		params["reply_parameters"] = map[string]any{
			"message_id":                  replyTo,
			"allow_sending_without_reply": true,
		}
	}
	return c.Call(ctx, "sendMessage", params, nil)
}

// BanChatMember bans userID from chatID.
func (c *Client) BanChatMember(ctx context.Context, chatID, userID int64) error {
	return c.Call(ctx, "banChatMember", map[string]any{"chat_id": chatID, "user_id": userID}, nil)
}

// UnbanChatMember lifts a ban; only_if_banned avoids removing present members.
func (c *Client) UnbanChatMember(ctx context.Context, chatID, userID int64) error {
	return c.Call(ctx, "unbanChatMember", map[string]any{
		"chat_id": chatID, "user_id": userID, "only_if_banned": true,
	}, nil)
}

// RestrictChatMember replaces userID's send permissions in chatID.
func (c *Client) RestrictChatMember(ctx context.Context, chatID, userID int64, perms ChatPermissions) error {
	return c.Call(ctx, "restrictChatMember", map[string]any{
		"chat_id": chatID, "user_id": userID, "permissions": perms,
	}, nil)
}

// DeleteMessage deletes a message.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return c.Call(ctx, "deleteMessage", map[string]any{"chat_id": chatID, "message_id": messageID}, nil)
}

// LeaveChat makes the bot leave chatID.
func (c *Client) LeaveChat(ctx context.Context, chatID int64) error {
	return c.Call(ctx, "leaveChat", map[string]any{"chat_id": chatID}, nil)
}

// GetChatMember fetches userID's membership in chatID.
func (c *Client) GetChatMember(ctx context.Context, chatID, userID int64) (ChatMember, error) {
	var m ChatMember
	err := c.Call(ctx, "getChatMember", map[string]any{"chat_id": chatID, "user_id": userID}, &m)
	return m, err
}

// Lookup resolves ref ("123" or "@handle") through getChat.
// It implements the primary directory used by the resolver.
func (c *Client) Lookup(ctx context.Context, ref string) (bus.Identity, error) {
	chat, err := c.GetChat(ctx, ref)
	if err != nil {
		return bus.Identity{}, err
	}
	return ChatIdentity(*chat), nil
}

// ChatIdentity converts a getChat result into an identity.
func ChatIdentity(chat Chat) bus.Identity {
	if chat.Type == "private" {
		return bus.Identity{
			ID:        chat.ID,
			Kind:      bus.IdentityUser,
			FirstName: chat.FirstName,
			LastName:  chat.LastName,
			Handle:    chat.Username,
		}
	}
	return bus.Identity{
		ID:     chat.ID,
		Kind:   bus.IdentityChannel,
		Title:  chat.Title,
		Handle: chat.Username,
	}
}
