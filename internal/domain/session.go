package domain

import (
	"time"
)

// LiveSession is the singleton broadcast record. It is created once at
// provisioning and only ever mutated, never re-created; HostUserID is set
// only while IsLive is true.
type LiveSession struct {
	ID          string     `json:"id"`
	IsLive      bool       `json:"is_live"`
	HostUserID  *string    `json:"host_user_id,omitempty"`
	ChannelName string     `json:"channel_name"`
	Title       *string    `json:"title,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Key derives the session key: the value that scopes one broadcast's
// transient state. First non-empty of started-at, updated-at, id. All
// derived state (chat window, viewer list, gifter caches) is keyed by this
// value and must be discarded wholesale when it changes, since a new
// broadcast invalidates prior state even when the row ID is unchanged.
func (s *LiveSession) Key() string {
	if s == nil {
		return ""
	}
	if s.StartedAt != nil && !s.StartedAt.IsZero() {
		return s.StartedAt.UTC().Format(time.RFC3339Nano)
	}
	if !s.UpdatedAt.IsZero() {
		return s.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return s.ID
}

// HostID returns the host user ID, or "" when no host is set.
func (s *LiveSession) HostID() string {
	if s == nil || s.HostUserID == nil {
		return ""
	}
	return *s.HostUserID
}

// SessionResponse represents the live session in API responses.
type SessionResponse struct {
	ID          string     `json:"id"`
	IsLive      bool       `json:"is_live"`
	HostUserID  *string    `json:"host_user_id,omitempty"`
	ChannelName string     `json:"channel_name"`
	Title       *string    `json:"title,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	SessionKey  string     `json:"session_key"`
}

// ToResponse converts LiveSession to SessionResponse.
func (s *LiveSession) ToResponse() SessionResponse {
	return SessionResponse{
		ID:          s.ID,
		IsLive:      s.IsLive,
		HostUserID:  s.HostUserID,
		ChannelName: s.ChannelName,
		Title:       s.Title,
		StartedAt:   s.StartedAt,
		EndedAt:     s.EndedAt,
		SessionKey:  s.Key(),
	}
}

// StartBroadcastRequest represents a start broadcast request.
type StartBroadcastRequest struct {
	Title string `json:"title" binding:"max=200"`
}

// SetLiveStateRequest represents an explicit live-state toggle request.
type SetLiveStateRequest struct {
	IsLive bool   `json:"is_live"`
	Title  string `json:"title" binding:"max=200"`
}
