package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/cache"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/media"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/token"
)

type memProfileCache struct {
	mu      sync.Mutex
	entries map[string]*domain.Profile
	gets    int
	sets    int
}

func newMemProfileCache() *memProfileCache {
	return &memProfileCache{entries: make(map[string]*domain.Profile)}
}

func (m *memProfileCache) Get(_ context.Context, sessionKey, userID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if p, ok := m.entries[sessionKey+"|"+userID]; ok {
		return p, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *memProfileCache) Set(_ context.Context, sessionKey, userID string, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.entries[sessionKey+"|"+userID] = p
	return nil
}

func (m *memProfileCache) InvalidateSession(context.Context, string) error { return nil }
func (m *memProfileCache) Close() error                                    { return nil }

type countingProfileRepo struct {
	mu      sync.Mutex
	lookups int
	err     error
}

func (r *countingProfileRepo) GetByID(_ context.Context, userID string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.err != nil {
		return nil, r.err
	}
	return &domain.Profile{UserID: userID, Username: "viewer-" + userID, VIPTier: 1}, nil
}

func (r *countingProfileRepo) OptedInRecipients(context.Context) ([]string, error) {
	return nil, nil
}

func newTestScope(t *testing.T, cacheImpl cache.ProfileCache) *Scope {
	t.Helper()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sess := &domain.LiveSession{ID: "live-1", ChannelName: "main", IsLive: true, StartedAt: &now, UpdatedAt: now}

	deps := ScopeDeps{
		ChatRepo:     fakeChatRepo{},
		PresenceRepo: fakePresenceRepo{},
		GifterRepo:   fakeGifterRepo{},
		Bus:          fakeBus{},
		Profiles:     cacheImpl,
		Issuer:       grantIssuer{role: token.RoleViewer},
		NewTransport: func(state media.PublisherState) media.Transport { return &recTransport{log: &opLog{}} },
		Feed:         nopFeed{},
	}
	s := newScope(context.Background(), sess, deps)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestProfileCachesPerSession(t *testing.T) {
	pc := newMemProfileCache()
	repo := &countingProfileRepo{}
	s := newTestScope(t, pc)

	first, err := s.Profile(context.Background(), repo, "u1")
	require.NoError(t, err)
	assert.Equal(t, "viewer-u1", first.Username)
	assert.Equal(t, 1, repo.lookups)
	assert.Equal(t, 1, pc.sets)

	second, err := s.Profile(context.Background(), repo, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)
	assert.Equal(t, 1, repo.lookups, "second read is served from the cache")
}

func TestProfileLookupErrorSurfaces(t *testing.T) {
	pc := newMemProfileCache()
	repo := &countingProfileRepo{err: context.DeadlineExceeded}
	s := newTestScope(t, pc)

	_, err := s.Profile(context.Background(), repo, "u1")
	assert.Error(t, err)
	assert.Equal(t, 0, pc.sets, "failed lookups are not cached")
}

func TestViewerAdapterRegisteredUntilRelease(t *testing.T) {
	s := newTestScope(t, newMemProfileCache())

	a := s.NewViewerAdapter()
	require.NotNil(t, a)

	// A live session seeds the tracker, so the viewer can watch at once.
	assert.True(t, s.Media.HasPublisher())

	s.ReleaseViewer(context.Background(), a)
	assert.True(t, a.TornDown())
}
