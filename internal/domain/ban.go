package domain

import (
	"time"
)

// Ban records a moderation action against a user. A ban is active iff
// RevokedAt is nil. Re-banning an already banned user, or unbanning an
// already clear one, is a no-op.
type Ban struct {
	BannedUserID string     `json:"banned_user_id"`
	Reason       *string    `json:"reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the ban is currently in force.
func (b *Ban) Active() bool {
	return b.RevokedAt == nil
}

// BanRequest represents a ban or unban request.
type BanRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}
