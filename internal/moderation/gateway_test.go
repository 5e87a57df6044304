package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
)

// memStore mimics the idempotent ban store with a controllable in-payload
// error channel.
type memStore struct {
	banned map[string]bool

	transportErr error
	payloadErr   string
	banCalls     int
	unbanCalls   int
}

func newMemStore() *memStore {
	return &memStore{banned: make(map[string]bool)}
}

func (s *memStore) Ban(_ context.Context, userID, _ string) (*Result, error) {
	s.banCalls++
	if s.transportErr != nil {
		return nil, s.transportErr
	}
	if s.payloadErr != "" {
		return &Result{Error: s.payloadErr}, nil
	}
	s.banned[userID] = true
	return &Result{}, nil
}

func (s *memStore) Unban(_ context.Context, userID string) (*Result, error) {
	s.unbanCalls++
	if s.transportErr != nil {
		return nil, s.transportErr
	}
	if s.payloadErr != "" {
		return &Result{Error: s.payloadErr}, nil
	}
	delete(s.banned, userID)
	return &Result{}, nil
}

func (s *memStore) ActiveBans(_ context.Context, userIDs []string) ([]string, error) {
	if s.transportErr != nil {
		return nil, s.transportErr
	}
	var out []string
	for _, id := range userIDs {
		if s.banned[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *memStore) ListActive(context.Context) ([]domain.Ban, error) {
	if s.transportErr != nil {
		return nil, s.transportErr
	}
	var out []domain.Ban
	for id := range s.banned {
		out = append(out, domain.Ban{BannedUserID: id})
	}
	return out, nil
}

func TestBanThenUnbanRoundTrip(t *testing.T) {
	store := newMemStore()
	g := NewGateway(store)
	ctx := context.Background()

	require.NoError(t, g.Ban(ctx, "mod-1", "user-1", "spam"))
	assert.True(t, g.BannedSet(ctx, []string{"user-1"})["user-1"])

	require.NoError(t, g.Unban(ctx, "mod-1", "user-1"))
	assert.False(t, g.BannedSet(ctx, []string{"user-1"})["user-1"])
}

func TestRepeatedBanIsNoOpSuccess(t *testing.T) {
	store := newMemStore()
	g := NewGateway(store)
	ctx := context.Background()

	require.NoError(t, g.Ban(ctx, "mod-1", "user-1", "spam"))
	require.NoError(t, g.Ban(ctx, "mod-1", "user-1", "spam again"))
	assert.Equal(t, 2, store.banCalls)
	assert.True(t, store.banned["user-1"])
}

func TestUnbanClearUserIsNoOpSuccess(t *testing.T) {
	store := newMemStore()
	g := NewGateway(store)

	require.NoError(t, g.Unban(context.Background(), "mod-1", "never-banned"))
}

func TestBanTransportErrorSurfaces(t *testing.T) {
	store := newMemStore()
	store.transportErr = errors.New("store unreachable")
	g := NewGateway(store)

	err := g.Ban(context.Background(), "mod-1", "user-1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unreachable")
}

// The store can answer 200-with-an-error; that is still a failure.
func TestBanInPayloadErrorSurfaces(t *testing.T) {
	store := newMemStore()
	store.payloadErr = "user_id is required"
	g := NewGateway(store)

	err := g.Ban(context.Background(), "mod-1", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_id is required")

	err = g.Unban(context.Background(), "mod-1", "")
	require.Error(t, err)
}

func TestBannedSetDegradesToEmptyOnError(t *testing.T) {
	store := newMemStore()
	store.banned["user-1"] = true
	store.transportErr = errors.New("store unreachable")
	g := NewGateway(store)

	set := g.BannedSet(context.Background(), []string{"user-1"})
	assert.Empty(t, set, "lookup failure must not paint anyone as banned")
}

func TestBannedSetFiltersToRequestedUsers(t *testing.T) {
	store := newMemStore()
	g := NewGateway(store)
	ctx := context.Background()

	require.NoError(t, g.Ban(ctx, "mod-1", "user-1", ""))
	require.NoError(t, g.Ban(ctx, "mod-1", "user-2", ""))

	set := g.BannedSet(ctx, []string{"user-2", "user-3"})
	assert.Equal(t, map[string]bool{"user-2": true}, set)
}
