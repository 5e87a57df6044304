package repository

import (
	"context"
	"errors"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/database"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
)

var (
	ErrSessionNotFound = errors.New("live session not found")
)

// SessionRepository owns the singleton live session record.
type SessionRepository interface {
	// GetLiveState reads the singleton row.
	GetLiveState(ctx context.Context) (*domain.LiveSession, error)

	// SetLive is the store's toggling operation: flips the live flag,
	// maintains started/ended timestamps and the host binding in one
	// update, and returns the resulting row. Idempotent.
	SetLive(ctx context.Context, nextIsLive bool, hostUserID, title string) (*domain.LiveSession, error)

	// UpdateLiveFields is the direct-mutation fallback used when SetLive
	// fails at the transport level. Callers must re-read afterwards.
	UpdateLiveFields(ctx context.Context, isLive bool, hostUserID, title string) error
}

// ChatRepository appends to and reads the chat event log.
type ChatRepository interface {
	Insert(ctx context.Context, event *domain.ChatEvent) error
	RecentPage(ctx context.Context, liveID string, limit int) ([]domain.ChatEvent, error)
	SoftDelete(ctx context.Context, eventID string) error
}

// PresenceRepository reads the server-maintained viewer presence table.
// This service never writes it.
type PresenceRepository interface {
	GetViewers(ctx context.Context, liveID string) ([]domain.ViewerPresence, error)
}

// BanRepository persists moderation bans.
type BanRepository interface {
	Ban(ctx context.Context, userID, reason string) error
	Unban(ctx context.Context, userID string) error
	ActiveBans(ctx context.Context, userIDs []string) ([]string, error)
	ListActive(ctx context.Context) ([]domain.Ban, error)
}

// ClaimRepository is the idempotency claim store. Claim reports whether
// THIS caller was first for (eventType, key); a lost race is not an error.
type ClaimRepository interface {
	Claim(ctx context.Context, eventType, key string, payload database.JSONMap) (bool, error)
}

// GifterRepository reads the precomputed top-gifter projection.
type GifterRepository interface {
	TopGifters(ctx context.Context, period domain.GifterPeriod) ([]domain.GifterAggregate, error)
}

// ProfileRepository reads the public profile directory.
type ProfileRepository interface {
	GetByID(ctx context.Context, userID string) (*domain.Profile, error)
	OptedInRecipients(ctx context.Context) ([]string, error)
}
