package media

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/pubsub"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/token"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, ev *pubsub.Event) error {
	p.mu.Lock()
	p.events = append(p.events, ev.Type)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	copy(out, p.events)
	return out
}

type feedSubscriber struct {
	feed chan *pubsub.Event
}

func newFeedSubscriber() *feedSubscriber {
	return &feedSubscriber{feed: make(chan *pubsub.Event, 8)}
}

func (s *feedSubscriber) Subscribe(context.Context, string) (<-chan *pubsub.Event, error) {
	return s.feed, nil
}
func (s *feedSubscriber) Unsubscribe(context.Context, string) error { return nil }

func stateEvent(t *testing.T, eventType string) *pubsub.Event {
	t.Helper()
	ev, err := pubsub.NewEvent(eventType, "main", nil)
	require.NoError(t, err)
	return ev
}

func TestViewerWaitsUntilPublisherUp(t *testing.T) {
	pub := &recordingPublisher{}
	tracker := NewTracker("main", newFeedSubscriber(), false)
	transport := NewBusTransport(pub, tracker)
	a := NewAdapter(&fakeIssuer{role: token.RoleViewer}, transport)

	require.NoError(t, a.AttachViewer(context.Background(), "main", "u1", "host-1"))

	assert.Equal(t, StateWaiting, a.State())
	assert.Equal(t, []string{EventMediaJoin}, pub.types(),
		"no subscribe control event while nobody publishes")
}

func TestPublisherUpWakesWaitingViewer(t *testing.T) {
	pub := &recordingPublisher{}
	sub := newFeedSubscriber()
	tracker := NewTracker("main", sub, false)
	transport := NewBusTransport(pub, tracker)
	a := NewAdapter(&fakeIssuer{role: token.RoleViewer}, transport)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		tracker.Run(ctx)
	}()

	require.NoError(t, a.AttachViewer(ctx, "main", "u1", "host-1"))
	tracker.Register(a)
	require.Equal(t, StateWaiting, a.State())

	sub.feed <- stateEvent(t, EventMediaPublisherUp)

	assert.Eventually(t, func() bool {
		return a.State() == StateWatching
	}, time.Second, 10*time.Millisecond)
	assert.True(t, tracker.HasPublisher())
	assert.Contains(t, pub.types(), EventMediaSubscribe)

	cancel()
	<-done
}

func TestPublisherDownClearsFlag(t *testing.T) {
	sub := newFeedSubscriber()
	tracker := NewTracker("main", sub, true)
	require.True(t, tracker.HasPublisher())

	tracker.apply(context.Background(), stateEvent(t, EventMediaPublisherDown))

	assert.False(t, tracker.HasPublisher())
}

func TestSeededTrackerViewerWatchesImmediately(t *testing.T) {
	pub := &recordingPublisher{}
	tracker := NewTracker("main", newFeedSubscriber(), true)
	transport := NewBusTransport(pub, tracker)
	a := NewAdapter(&fakeIssuer{role: token.RoleViewer}, transport)

	require.NoError(t, a.AttachViewer(context.Background(), "main", "u1", "host-1"))

	assert.Equal(t, StateWatching, a.State())
	assert.Equal(t, []string{EventMediaJoin, EventMediaSubscribe}, pub.types())
}

func TestUnregisteredViewerNotWoken(t *testing.T) {
	pub := &recordingPublisher{}
	tracker := NewTracker("main", newFeedSubscriber(), false)
	transport := NewBusTransport(pub, tracker)
	a := NewAdapter(&fakeIssuer{role: token.RoleViewer}, transport)

	require.NoError(t, a.AttachViewer(context.Background(), "main", "u1", "host-1"))
	tracker.Register(a)
	tracker.Unregister(a)

	tracker.apply(context.Background(), stateEvent(t, EventMediaPublisherUp))

	assert.Equal(t, StateWaiting, a.State(), "released connection must not be resubscribed")
}
