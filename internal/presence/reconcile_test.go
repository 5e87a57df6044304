package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func viewer(userID string, online bool, joined, seen time.Time) domain.ViewerPresence {
	return domain.ViewerPresence{
		UserID:      userID,
		DisplayName: "name-" + userID,
		IsOnline:    online,
		JoinedAt:    joined,
		LastSeenAt:  seen,
	}
}

func TestReconcilePullOnly(t *testing.T) {
	view := Reconcile([]domain.ViewerPresence{
		viewer("u2", true, base.Add(time.Minute), base),
		viewer("u1", true, base, base),
		viewer("u3", false, base.Add(2*time.Minute), base),
	}, nil)

	require.Len(t, view.Viewers, 3)
	assert.Equal(t, 2, view.OnlineCount)
	assert.Equal(t, "u1", view.Viewers[0].UserID, "sorted by join time")
	assert.Equal(t, "u3", view.Viewers[2].UserID)
}

func TestReconcileNewerEventOverridesPull(t *testing.T) {
	pull := []domain.ViewerPresence{viewer("u1", true, base, base)}
	events := []domain.PresenceEvent{{
		UserID:     "u1",
		IsOnline:   false,
		LastSeenAt: base.Add(time.Second),
	}}

	view := Reconcile(pull, events)
	require.Len(t, view.Viewers, 1)
	assert.False(t, view.Viewers[0].IsOnline)
	assert.Equal(t, 0, view.OnlineCount)
}

func TestReconcileStaleEventLosesToPull(t *testing.T) {
	pull := []domain.ViewerPresence{viewer("u1", true, base, base)}
	events := []domain.PresenceEvent{{
		UserID:     "u1",
		IsOnline:   false,
		LastSeenAt: base, // same timestamp: not strictly newer
	}}

	view := Reconcile(pull, events)
	assert.True(t, view.Viewers[0].IsOnline, "equal timestamps mean the pull wins")
}

func TestReconcileUnknownUserAdmittedProvisionally(t *testing.T) {
	events := []domain.PresenceEvent{{
		UserID:      "u9",
		DisplayName: "new viewer",
		IsOnline:    true,
		LastSeenAt:  base,
	}}

	view := Reconcile(nil, events)
	require.Len(t, view.Viewers, 1)
	assert.Equal(t, "u9", view.Viewers[0].UserID)
	assert.Equal(t, base, view.Viewers[0].JoinedAt)
	assert.Equal(t, 1, view.OnlineCount)
}

func TestReconcileTieBreaksOnUserID(t *testing.T) {
	view := Reconcile([]domain.ViewerPresence{
		viewer("b", true, base, base),
		viewer("a", true, base, base),
	}, nil)

	assert.Equal(t, "a", view.Viewers[0].UserID)
	assert.Equal(t, "b", view.Viewers[1].UserID)
}

func TestReconcileEventKeepsPullDisplayNameWhenEmpty(t *testing.T) {
	pull := []domain.ViewerPresence{viewer("u1", true, base, base)}
	events := []domain.PresenceEvent{{
		UserID:     "u1",
		IsOnline:   true,
		LastSeenAt: base.Add(time.Second),
	}}

	view := Reconcile(pull, events)
	assert.Equal(t, "name-u1", view.Viewers[0].DisplayName)
}
