package media

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/pubsub"
)

// PublisherState answers whether anyone is currently publishing into the
// channel. The viewer attach path consults it to decide between watching
// and waiting.
type PublisherState interface {
	HasPublisher() bool
}

// Tracker follows the media server's state feed for one channel. It keeps
// the publisher flag current and wakes registered waiting viewers when the
// host's publish lands. One tracker per session scope; it is torn down
// with the scope, so a new broadcast starts from the stored live flag.
type Tracker struct {
	channel string
	sub     pubsub.Subscriber

	live atomic.Bool

	mu      sync.Mutex
	waiters map[*Adapter]struct{}
}

// NewTracker creates a tracker seeded with the session's stored live flag,
// so viewers joining an already-running broadcast do not wait for the next
// state event.
func NewTracker(channel string, sub pubsub.Subscriber, initiallyLive bool) *Tracker {
	t := &Tracker{
		channel: channel,
		sub:     sub,
		waiters: make(map[*Adapter]struct{}),
	}
	t.live.Store(initiallyLive)
	return t
}

// HasPublisher reports whether a publisher is currently in the channel.
func (t *Tracker) HasPublisher() bool {
	return t.live.Load()
}

// Register adds an adapter to be woken on the next publish event.
func (t *Tracker) Register(a *Adapter) {
	t.mu.Lock()
	t.waiters[a] = struct{}{}
	t.mu.Unlock()
}

// Unregister removes an adapter; called when its connection closes.
func (t *Tracker) Unregister(a *Adapter) {
	t.mu.Lock()
	delete(t.waiters, a)
	t.mu.Unlock()
}

// Run consumes the media server's state feed until the context is
// cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	channel := MediaStateChannel(t.channel)
	feed, err := t.sub.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("subscribe media state feed: %w", err)
	}
	defer t.sub.Unsubscribe(context.WithoutCancel(ctx), channel)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-feed:
			if !ok {
				return nil
			}
			t.apply(ctx, ev)
		}
	}
}

func (t *Tracker) apply(ctx context.Context, ev *pubsub.Event) {
	switch ev.Type {
	case EventMediaPublisherUp:
		t.live.Store(true)
		for _, a := range t.snapshot() {
			if err := a.HandleRemotePublish(ctx); err != nil {
				log.Ctx(ctx).Warn().Err(err).Str(log.FieldChannel, t.channel).Msg("waiting viewer failed to subscribe")
			}
		}

	case EventMediaPublisherDown:
		t.live.Store(false)
	}
}

func (t *Tracker) snapshot() []*Adapter {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Adapter, 0, len(t.waiters))
	for a := range t.waiters {
		out = append(out, a)
	}
	return out
}
