package domain

import (
	"time"
)

// WebSocket message types delivered on the session event feed.
const (
	MsgTypeChatEvent    = "chat_event"
	MsgTypePresence     = "presence"
	MsgTypeFlash        = "flash"
	MsgTypeEmote        = "emote"
	MsgTypeSessionState = "session_state"
	MsgTypeError        = "error"
)

// BaseMessage is the envelope every feed message shares.
type BaseMessage struct {
	Type string `json:"type"`
}

// ChatEventMessage delivers one chat log entry to connected viewers.
type ChatEventMessage struct {
	Type       string    `json:"type"`
	SessionKey string    `json:"session_key"`
	Event      ChatEvent `json:"event"`
}

// PresenceMessage delivers the merged viewer list after a reconcile step.
type PresenceMessage struct {
	Type        string           `json:"type"`
	SessionKey  string           `json:"session_key"`
	Viewers     []ViewerPresence `json:"viewers"`
	OnlineCount int              `json:"online_count"`
}

// FlashMessage announces the current gift flash overlay state. A new gift
// replaces the message and restarts the dismissal window (last-wins).
type FlashMessage struct {
	Type       string    `json:"type"`
	SessionKey string    `json:"session_key"`
	Message    string    `json:"message"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// EmoteMessage spawns one falling-emote animation for a distinct event ID.
type EmoteMessage struct {
	Type       string `json:"type"`
	SessionKey string `json:"session_key"`
	EventID    string `json:"event_id"`
	Emote      string `json:"emote"`
	SenderID   string `json:"sender_id,omitempty"`
}

// SessionStateMessage announces live-state transitions.
type SessionStateMessage struct {
	Type       string  `json:"type"`
	SessionKey string  `json:"session_key"`
	IsLive     bool    `json:"is_live"`
	Title      *string `json:"title,omitempty"`
}

// ErrorMessage reports a per-connection failure on the feed.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorMessage creates an error feed message.
func NewErrorMessage(message string) *ErrorMessage {
	return &ErrorMessage{Type: MsgTypeError, Message: message}
}
