package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/pubsub"
)

type fakePresenceRepo struct {
	mu      sync.Mutex
	viewers []domain.ViewerPresence
	err     error
	pulls   int
}

func (f *fakePresenceRepo) GetViewers(context.Context, string) ([]domain.ViewerPresence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls++
	if f.err != nil {
		return nil, f.err
	}
	return f.viewers, nil
}

type nopSubscriber struct{}

func (nopSubscriber) Subscribe(context.Context, string) (<-chan *pubsub.Event, error) {
	return make(chan *pubsub.Event), nil
}
func (nopSubscriber) Unsubscribe(context.Context, string) error { return nil }

type sinkLog struct {
	mu     sync.Mutex
	views  []View
	leaves []domain.ChatEvent
}

func (s *sinkLog) onView(v View) {
	s.mu.Lock()
	s.views = append(s.views, v)
	s.mu.Unlock()
}

func (s *sinkLog) onLeave(e domain.ChatEvent) {
	s.mu.Lock()
	s.leaves = append(s.leaves, e)
	s.mu.Unlock()
}

func presenceChange(userID, name string, online bool, seen time.Time) *pubsub.Event {
	ev, _ := pubsub.NewEvent(pubsub.EventPresenceChanged, "live-1", domain.PresenceEvent{
		LiveID:      "live-1",
		UserID:      userID,
		DisplayName: name,
		IsOnline:    online,
		LastSeenAt:  seen,
	})
	return ev
}

func newTestReconciler(repo *fakePresenceRepo, sinks *sinkLog) *Reconciler {
	return NewReconciler("live-1", repo, nopSubscriber{}, Config{}, sinks.onView, sinks.onLeave)
}

func TestFullPullReplacesView(t *testing.T) {
	repo := &fakePresenceRepo{viewers: []domain.ViewerPresence{
		viewer("u1", true, base, base),
	}}
	sinks := &sinkLog{}
	r := newTestReconciler(repo, sinks)

	r.fullPull(context.Background())

	view := r.Snapshot()
	require.Len(t, view.Viewers, 1)
	assert.Equal(t, 1, view.OnlineCount)
	require.Len(t, sinks.views, 1)
}

func TestFullPullFailureKeepsPreviousView(t *testing.T) {
	repo := &fakePresenceRepo{viewers: []domain.ViewerPresence{
		viewer("u1", true, base, base),
	}}
	sinks := &sinkLog{}
	r := newTestReconciler(repo, sinks)

	r.fullPull(context.Background())
	require.Len(t, r.Snapshot().Viewers, 1)

	repo.mu.Lock()
	repo.err = context.DeadlineExceeded
	repo.mu.Unlock()

	r.fullPull(context.Background())
	assert.Len(t, r.Snapshot().Viewers, 1, "failed pull must not clear the view")
}

func TestOfflineTransitionSynthesizesOneLeave(t *testing.T) {
	repo := &fakePresenceRepo{viewers: []domain.ViewerPresence{
		viewer("u1", true, base, base),
	}}
	sinks := &sinkLog{}
	r := newTestReconciler(repo, sinks)
	r.fullPull(context.Background())

	ev := presenceChange("u1", "Dana", false, base.Add(time.Second))
	r.applyFeedEvent(context.Background(), ev)
	r.applyFeedEvent(context.Background(), ev) // duplicate delivery

	require.Len(t, sinks.leaves, 1, "one transition, one synthesized leave")
	assert.Equal(t, domain.ChatEventSystem, sinks.leaves[0].Type)
	assert.Equal(t, domain.MetaEventLeave, sinks.leaves[0].Metadata.String(domain.MetaEvent))
	assert.Contains(t, sinks.leaves[0].Message, "Dana")
}

func TestStaleOfflineEventNoLeave(t *testing.T) {
	repo := &fakePresenceRepo{viewers: []domain.ViewerPresence{
		viewer("u1", true, base, base.Add(time.Minute)),
	}}
	sinks := &sinkLog{}
	r := newTestReconciler(repo, sinks)
	r.fullPull(context.Background())

	// A delayed offline event older than the pull loses the merge; the
	// list keeps them online, so no leave may be announced either.
	r.applyFeedEvent(context.Background(), presenceChange("u1", "Dana", false, base.Add(time.Second)))

	view := r.Snapshot()
	require.Len(t, view.Viewers, 1)
	assert.True(t, view.Viewers[0].IsOnline, "pull is fresher, viewer stays online")
	assert.Empty(t, sinks.leaves, "a transition the view does not show must not be announced")
}

func TestOfflineEventForUnknownUserNoLeave(t *testing.T) {
	repo := &fakePresenceRepo{}
	sinks := &sinkLog{}
	r := newTestReconciler(repo, sinks)
	r.fullPull(context.Background())

	r.applyFeedEvent(context.Background(), presenceChange("ghost", "Ghost", false, base))

	assert.Empty(t, sinks.leaves, "never saw them online, nothing to announce")
}

func TestDistinctTransitionsEachSynthesize(t *testing.T) {
	repo := &fakePresenceRepo{viewers: []domain.ViewerPresence{
		viewer("u1", true, base, base),
	}}
	sinks := &sinkLog{}
	r := newTestReconciler(repo, sinks)
	r.fullPull(context.Background())

	r.applyFeedEvent(context.Background(), presenceChange("u1", "Dana", false, base.Add(time.Second)))
	r.applyFeedEvent(context.Background(), presenceChange("u1", "Dana", true, base.Add(2*time.Second)))
	r.applyFeedEvent(context.Background(), presenceChange("u1", "Dana", false, base.Add(3*time.Second)))

	assert.Len(t, sinks.leaves, 2, "a fresh timestamp is a fresh transition")
}

func TestFullPullDiscardsPendingAndNeverSynthesizes(t *testing.T) {
	repo := &fakePresenceRepo{viewers: []domain.ViewerPresence{
		viewer("u1", true, base, base),
	}}
	sinks := &sinkLog{}
	r := newTestReconciler(repo, sinks)
	r.fullPull(context.Background())

	// Feed says offline; then the next pull reports them gone entirely.
	r.applyFeedEvent(context.Background(), presenceChange("u1", "Dana", false, base.Add(time.Second)))
	require.Len(t, sinks.leaves, 1)

	repo.mu.Lock()
	repo.viewers = nil
	repo.mu.Unlock()

	r.fullPull(context.Background())

	assert.Empty(t, r.Snapshot().Viewers, "pull wins over accumulated events")
	assert.Len(t, sinks.leaves, 1, "the pull itself never synthesizes leaves")
}

func TestFeedEventForOtherSessionIgnored(t *testing.T) {
	repo := &fakePresenceRepo{}
	sinks := &sinkLog{}
	r := newTestReconciler(repo, sinks)

	ev, _ := pubsub.NewEvent(pubsub.EventPresenceChanged, "live-other", domain.PresenceEvent{
		LiveID: "live-other", UserID: "u1", IsOnline: true, LastSeenAt: base,
	})
	r.applyFeedEvent(context.Background(), ev)

	assert.Empty(t, sinks.views)
}
