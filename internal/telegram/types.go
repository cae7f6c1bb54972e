package telegram

// Wire types for the subset of the Bot API the bot uses.

// User is a Bot API user.
type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// Chat is a Bot API chat; getChat fills the name fields for private chats.
type Chat struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// MessageEntity is a formatted span in message text.
type MessageEntity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	User   *User  `json:"user,omitempty"`
}

// Message is a Bot API message.
type Message struct {
	MessageID       int64           `json:"message_id"`
	From            *User           `json:"from,omitempty"`
	SenderChat      *Chat           `json:"sender_chat,omitempty"`
	Date            int64           `json:"date"`
	Chat            Chat            `json:"chat"`
	Text            string          `json:"text,omitempty"`
	Caption         string          `json:"caption,omitempty"`
	Entities        []MessageEntity `json:"entities,omitempty"`
	CaptionEntities []MessageEntity `json:"caption_entities,omitempty"`
	ReplyToMessage  *Message        `json:"reply_to_message,omitempty"`
	NewChatMembers  []User          `json:"new_chat_members,omitempty"`
	LeftChatMember  *User           `json:"left_chat_member,omitempty"`
}

// ChatMember is a Bot API chat member. Only the fields the bot reads are mapped.
type ChatMember struct {
	Status             string `json:"status"`
	User               User   `json:"user"`
	CanManageChat      bool   `json:"can_manage_chat,omitempty"`
	CanDeleteMessages  bool   `json:"can_delete_messages,omitempty"`
	CanRestrictMembers bool   `json:"can_restrict_members,omitempty"`
}

// Member statuses.
const (
	StatusCreator       = "creator"
	StatusAdministrator = "administrator"
	StatusMember        = "member"
	StatusRestricted    = "restricted"
	StatusLeft          = "left"
	StatusKicked        = "kicked"
)

// IsAdmin reports whether the member is the creator or an administrator.
func (m ChatMember) IsAdmin() bool {
	return m.Status == StatusCreator || m.Status == StatusAdministrator
}

// CanRestrict reports whether the member may ban others.
func (m ChatMember) CanRestrict() bool {
	return m.Status == StatusCreator || (m.Status == StatusAdministrator && m.CanRestrictMembers)
}

// CanDelete reports whether the member may delete others' messages.
func (m ChatMember) CanDelete() bool {
	return m.Status == StatusCreator || (m.Status == StatusAdministrator && m.CanDeleteMessages)
}

// CanManage reports whether the member may manage chat settings.
func (m ChatMember) CanManage() bool {
	return m.Status == StatusCreator || (m.Status == StatusAdministrator && m.CanManageChat)
}

// Present reports whether the member is currently in the chat.
func (m ChatMember) Present() bool {
	return m.Status != StatusLeft && m.Status != StatusKicked
}

// ChatPermissions are the send rights applied by restrictChatMember.
type ChatPermissions struct {
	CanSendMessages       bool `json:"can_send_messages"`
	CanSendAudios         bool `json:"can_send_audios"`
	CanSendDocuments      bool `json:"can_send_documents"`
	CanSendPhotos         bool `json:"can_send_photos"`
	CanSendVideos         bool `json:"can_send_videos"`
	CanSendVideoNotes     bool `json:"can_send_video_notes"`
	CanSendVoiceNotes     bool `json:"can_send_voice_notes"`
	CanSendPolls          bool `json:"can_send_polls"`
	CanSendOtherMessages  bool `json:"can_send_other_messages"`
	CanAddWebPagePreviews bool `json:"can_add_web_page_previews"`
}

// SendPermissions returns permissions with every send right set to allow.
func SendPermissions(allow bool) ChatPermissions {
	return ChatPermissions{
		CanSendMessages: allow, CanSendAudios: allow, CanSendDocuments: allow,
		CanSendPhotos: allow, CanSendVideos: allow, CanSendVideoNotes: allow,
		CanSendVoiceNotes: allow, CanSendPolls: allow, CanSendOtherMessages: allow,
		CanAddWebPagePreviews: allow,
	}
}

// ChatMemberUpdated is sent when the bot's own membership changes.
type ChatMemberUpdated struct {
	Chat          Chat       `json:"chat"`
	From          User       `json:"from"`
	Date          int64      `json:"date"`
	OldChatMember ChatMember `json:"old_chat_member"`
	NewChatMember ChatMember `json:"new_chat_member"`
}

// Update is one getUpdates item.
type Update struct {
	UpdateID      int64              `json:"update_id"`
	Message       *Message           `json:"message,omitempty"`
	EditedMessage *Message           `json:"edited_message,omitempty"`
	MyChatMember  *ChatMemberUpdated `json:"my_chat_member,omitempty"`
	CallbackQuery *CallbackQuery     `json:"callback_query,omitempty"`
}

// CallbackQuery is an inline keyboard button press. Message is nil for
// buttons on inline-mode messages.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// apiResponse is the Bot API envelope.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters,omitempty"`
}
