package domain

import (
	"time"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/database"
)

// LiveSessionModel is the GORM model for the singleton live_sessions row.
type LiveSessionModel struct {
	ID          string  `gorm:"type:varchar(36);primaryKey"`
	IsLive      bool    `gorm:"index;not null;default:false"`
	HostUserID  *string `gorm:"type:varchar(36)"`
	ChannelName string  `gorm:"type:varchar(100);not null"`
	Title       *string `gorm:"type:varchar(200)"`
	StartedAt   *time.Time
	EndedAt     *time.Time
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (LiveSessionModel) TableName() string {
	return "live_sessions"
}

func (m *LiveSessionModel) ToDomain() *LiveSession {
	return &LiveSession{
		ID:          m.ID,
		IsLive:      m.IsLive,
		HostUserID:  m.HostUserID,
		ChannelName: m.ChannelName,
		Title:       m.Title,
		StartedAt:   m.StartedAt,
		EndedAt:     m.EndedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ChatEventModel is the GORM model for the append-only chat_events log.
type ChatEventModel struct {
	ID           string           `gorm:"type:varchar(36);primaryKey"`
	LiveID       string           `gorm:"type:varchar(36);index;not null"`
	SenderUserID *string          `gorm:"type:varchar(36);index"`
	Message      string           `gorm:"type:text;not null"`
	Type         string           `gorm:"type:varchar(20);index;not null"`
	Metadata     database.JSONMap `gorm:"type:text"`
	IsDeleted    bool             `gorm:"not null;default:false"`
	CreatedAt    time.Time        `gorm:"index;autoCreateTime"`
}

func (ChatEventModel) TableName() string {
	return "chat_events"
}

func (m *ChatEventModel) ToDomain() ChatEvent {
	return ChatEvent{
		ID:           m.ID,
		LiveID:       m.LiveID,
		SenderUserID: m.SenderUserID,
		Message:      m.Message,
		Type:         ChatEventType(m.Type),
		Metadata:     m.Metadata,
		IsDeleted:    m.IsDeleted,
		CreatedAt:    m.CreatedAt,
	}
}

func ChatEventToModel(e *ChatEvent) *ChatEventModel {
	return &ChatEventModel{
		ID:           e.ID,
		LiveID:       e.LiveID,
		SenderUserID: e.SenderUserID,
		Message:      e.Message,
		Type:         string(e.Type),
		Metadata:     e.Metadata,
		IsDeleted:    e.IsDeleted,
		CreatedAt:    e.CreatedAt,
	}
}

// ViewerPresenceModel is the GORM model for the server-maintained
// viewer_presences table. Read-only from this service.
type ViewerPresenceModel struct {
	LiveID      string    `gorm:"type:varchar(36);primaryKey"`
	UserID      string    `gorm:"type:varchar(36);primaryKey"`
	DisplayName string    `gorm:"type:varchar(50);not null"`
	IsOnline    bool      `gorm:"index;not null;default:false"`
	JoinedAt    time.Time `gorm:"autoCreateTime"`
	LastSeenAt  time.Time
}

func (ViewerPresenceModel) TableName() string {
	return "viewer_presences"
}

func (m *ViewerPresenceModel) ToDomain() ViewerPresence {
	return ViewerPresence{
		UserID:      m.UserID,
		DisplayName: m.DisplayName,
		IsOnline:    m.IsOnline,
		JoinedAt:    m.JoinedAt,
		LastSeenAt:  m.LastSeenAt,
	}
}

// BanModel is the GORM model for moderation bans.
type BanModel struct {
	ID           uint    `gorm:"primaryKey"`
	BannedUserID string  `gorm:"type:varchar(36);index;not null"`
	Reason       *string `gorm:"type:varchar(500)"`
	CreatedAt    time.Time
	RevokedAt    *time.Time `gorm:"index"`
}

func (BanModel) TableName() string {
	return "bans"
}

func (m *BanModel) ToDomain() Ban {
	return Ban{
		BannedUserID: m.BannedUserID,
		Reason:       m.Reason,
		CreatedAt:    m.CreatedAt,
		RevokedAt:    m.RevokedAt,
	}
}

// PushClaimModel is the GORM model backing the idempotency claim store.
// The unique index enforces at most one successful claim per key.
type PushClaimModel struct {
	ID             uint             `gorm:"primaryKey"`
	EventType      string           `gorm:"type:varchar(50);not null;uniqueIndex:ux_push_claim,priority:1"`
	IdempotencyKey string           `gorm:"type:varchar(200);not null;uniqueIndex:ux_push_claim,priority:2"`
	Payload        database.JSONMap `gorm:"type:text"`
	ClaimedAt      time.Time        `gorm:"autoCreateTime"`
}

func (PushClaimModel) TableName() string {
	return "push_claims"
}

// GifterAggregateModel maps the precomputed top-gifter projection.
type GifterAggregateModel struct {
	ProfileID   string  `gorm:"type:varchar(36);primaryKey"`
	Period      string  `gorm:"type:varchar(20);primaryKey"`
	DisplayName string  `gorm:"type:varchar(50);not null"`
	AvatarURL   string  `gorm:"type:varchar(500)"`
	TotalAmount float64 `gorm:"not null;default:0"`
	Rank        int     `gorm:"not null;default:0"`
}

func (GifterAggregateModel) TableName() string {
	return "gifter_aggregates"
}

func (m *GifterAggregateModel) ToDomain() GifterAggregate {
	return GifterAggregate{
		ProfileID:   m.ProfileID,
		DisplayName: m.DisplayName,
		AvatarURL:   m.AvatarURL,
		TotalAmount: m.TotalAmount,
		Rank:        m.Rank,
	}
}

// ProfileModel maps the public profile directory.
type ProfileModel struct {
	UserID              string  `gorm:"type:varchar(36);primaryKey"`
	Username            string  `gorm:"type:varchar(50);not null"`
	PhotoURL            string  `gorm:"type:varchar(500)"`
	VIPTier             int     `gorm:"not null;default:0"`
	LifetimeGiftedTotal float64 `gorm:"not null;default:0"`
	OptedInPush         bool    `gorm:"index;not null;default:false"`
}

func (ProfileModel) TableName() string {
	return "profiles"
}

func (m *ProfileModel) ToDomain() Profile {
	return Profile{
		UserID:              m.UserID,
		Username:            m.Username,
		PhotoURL:            m.PhotoURL,
		VIPTier:             m.VIPTier,
		LifetimeGiftedTotal: m.LifetimeGiftedTotal,
	}
}
