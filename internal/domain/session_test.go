package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionKeyPrefersStartedAt(t *testing.T) {
	started := time.Date(2026, 3, 1, 20, 0, 0, 123456789, time.UTC)
	s := &LiveSession{
		ID:        "live-1",
		StartedAt: &started,
		UpdatedAt: started.Add(time.Minute),
	}

	assert.Equal(t, started.Format(time.RFC3339Nano), s.Key())
}

func TestSessionKeyFallsBackToUpdatedAt(t *testing.T) {
	updated := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	s := &LiveSession{ID: "live-1", UpdatedAt: updated}

	assert.Equal(t, updated.Format(time.RFC3339Nano), s.Key())
}

func TestSessionKeyFallsBackToID(t *testing.T) {
	s := &LiveSession{ID: "live-1"}
	assert.Equal(t, "live-1", s.Key())
}

func TestSessionKeyZeroStartedAtSkipped(t *testing.T) {
	var zero time.Time
	s := &LiveSession{ID: "live-1", StartedAt: &zero}
	assert.Equal(t, "live-1", s.Key())
}

func TestSessionKeyChangesAcrossBroadcasts(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	t1 := t0.Add(2 * time.Hour)
	first := &LiveSession{ID: "live-1", StartedAt: &t0}
	second := &LiveSession{ID: "live-1", StartedAt: &t1}

	assert.NotEqual(t, first.Key(), second.Key(), "same row, new broadcast, new key")
}

func TestHostIDNilSafe(t *testing.T) {
	var s *LiveSession
	assert.Equal(t, "", s.HostID())
	assert.Equal(t, "", s.Key())

	host := "host-1"
	assert.Equal(t, "host-1", (&LiveSession{HostUserID: &host}).HostID())
}

func TestIsGiftClassification(t *testing.T) {
	tip := ChatEvent{Type: ChatEventTip}
	assert.True(t, tip.IsGift())

	sysGift := NewSystemEvent("live-1", MetaEventGift, "Alice sent a rose")
	assert.True(t, sysGift.IsGift())

	sysLeave := NewSystemEvent("live-1", MetaEventLeave, "Alice left")
	assert.False(t, sysLeave.IsGift())

	chat := ChatEvent{Type: ChatEventChat, Message: "gift"}
	assert.False(t, chat.IsGift())
}
