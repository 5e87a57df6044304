package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/database"
)

// ChatEventType classifies entries in the chat event log.
type ChatEventType string

const (
	ChatEventChat   ChatEventType = "chat"
	ChatEventEmote  ChatEventType = "emote"
	ChatEventSystem ChatEventType = "system"
	ChatEventTip    ChatEventType = "tip"
)

// Well-known metadata keys for system events.
const (
	MetaEvent      = "event"
	MetaEventJoin  = "join"
	MetaEventLeave = "leave"
	MetaEventGift  = "gift"
)

// ChatEvent is an append-only entry in the live chat log. Immutable once
// written except for the soft-delete flag.
type ChatEvent struct {
	ID           string           `json:"id"`
	LiveID       string           `json:"live_id"`
	SenderUserID *string          `json:"sender_user_id,omitempty"`
	Message      string           `json:"message"`
	Type         ChatEventType    `json:"type"`
	Metadata     database.JSONMap `json:"metadata,omitempty"`
	IsDeleted    bool             `json:"is_deleted"`
	CreatedAt    time.Time        `json:"created_at"`
}

// SenderID returns the sender user ID, or "" for system events.
func (e *ChatEvent) SenderID() string {
	if e.SenderUserID == nil {
		return ""
	}
	return *e.SenderUserID
}

// IsGift reports whether the event should trigger the gift flash overlay:
// either a tip, or a system event carrying metadata.event=gift.
func (e *ChatEvent) IsGift() bool {
	if e.Type == ChatEventTip {
		return true
	}
	return e.Type == ChatEventSystem && e.Metadata.String(MetaEvent) == MetaEventGift
}

// NewSystemEvent builds a client-synthesized system announcement. These are
// never authored by users and, in the case of join/leave, never persisted.
func NewSystemEvent(liveID, event, message string) ChatEvent {
	return ChatEvent{
		ID:        uuid.New().String(),
		LiveID:    liveID,
		Message:   message,
		Type:      ChatEventSystem,
		Metadata:  database.JSONMap{MetaEvent: event},
		CreatedAt: time.Now().UTC(),
	}
}

// SendChatRequest represents a user-originated chat or emote send.
type SendChatRequest struct {
	Message string `json:"message" binding:"required,min=1,max=500"`
	Type    string `json:"type" binding:"omitempty,oneof=chat emote"`
}

// ChatPageResponse is a bounded, time-ordered page of the chat log.
type ChatPageResponse struct {
	Events []ChatEvent `json:"events"`
	Limit  int         `json:"limit"`
}
