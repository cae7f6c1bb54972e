package bus

import (
	"strconv"
	"strings"
	"time"
)

// IdentityKind distinguishes users from channel-like senders.
type IdentityKind string

const (
	IdentityUser    IdentityKind = "user"
	IdentityChannel IdentityKind = "channel"
)

// Identity is the canonical description of a participant.
// Two identities with the same ID denote the same entity.
type Identity struct {
	ID           int64        `json:"id"`
	Kind         IdentityKind `json:"kind"`
	FirstName    string       `json:"first_name,omitempty"`
	LastName     string       `json:"last_name,omitempty"`
	Title        string       `json:"title,omitempty"`
	Handle       string       `json:"handle,omitempty"`
	IsBot        bool         `json:"is_bot,omitempty"`
	LanguageCode string       `json:"language_code,omitempty"`
	LastSeen     time.Time    `json:"last_seen,omitempty"`
}

// Same reports whether both identities denote the same entity.
func (i Identity) Same(o Identity) bool {
	return i.ID == o.ID
}

// DisplayName returns a human-readable name, falling back to handle then id.
func (i Identity) DisplayName() string {
	if i.Kind == IdentityChannel && i.Title != "" {
		return i.Title
	}
	if name := strings.TrimSpace(i.FirstName + " " + i.LastName); name != "" {
		return name
	}
	if i.Handle != "" {
		return "@" + i.Handle
	}
	return strconv.FormatInt(i.ID, 10)
}

// NormalizeHandle lower-cases a handle and strips a leading '@'.
func NormalizeHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}

// IdentityFromUser converts an event user to an identity.
func IdentityFromUser(u User) Identity {
	return Identity{
		ID:           u.ID,
		Kind:         IdentityUser,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Handle:       u.Username,
		IsBot:        u.IsBot,
		LanguageCode: u.LanguageCode,
	}
}

// IdentityFromChat converts a channel-like sender to an identity.
func IdentityFromChat(c Chat) Identity {
	return Identity{
		ID:     c.ID,
		Kind:   IdentityChannel,
		Title:  c.Title,
		Handle: c.Username,
	}
}
