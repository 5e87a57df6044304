package domain

import (
	"time"
)

// ViewerPresence is one row per (liveID, userID) in the server-maintained
// presence table. This service only reads it, via the periodic full pull
// and the change feed.
type ViewerPresence struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	IsOnline    bool      `json:"is_online"`
	JoinedAt    time.Time `json:"joined_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// PresenceEvent is a row-level update delivered by the change feed. The
// feed is advisory only; on any disagreement the next full pull wins.
type PresenceEvent struct {
	LiveID      string    `json:"live_id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	IsOnline    bool      `json:"is_online"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// ViewerListResponse is the merged presence view for API responses.
type ViewerListResponse struct {
	Viewers     []ViewerPresence `json:"viewers"`
	OnlineCount int              `json:"online_count"`
	SessionKey  string           `json:"session_key"`
}
