package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/pubsub"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/token"
)

// Media control event types consumed by the media server.
const (
	EventMediaJoin      = "media.join"
	EventMediaPublish   = "media.publish"
	EventMediaSubscribe = "media.subscribe"
	EventMediaUnpublish = "media.unpublish"
	EventMediaStop      = "media.stop_tracks"
	EventMediaClose     = "media.close_tracks"
	EventMediaLeave     = "media.leave"
)

// Media state event types published back by the media server.
const (
	EventMediaPublisherUp   = "media.publisher_up"
	EventMediaPublisherDown = "media.publisher_down"
)

// MediaControlChannel returns the control channel for one media channel.
func MediaControlChannel(channel string) string {
	return fmt.Sprintf("media:live:%s:control", channel)
}

// MediaStateChannel returns the channel the media server reports state on.
func MediaStateChannel(channel string) string {
	return fmt.Sprintf("media:live:%s:state", channel)
}

// BusTransport drives the external media server over the event bus. It
// mirrors the client-side signaling sequence as control events; the media
// server owns the actual RTP plumbing and publishes its own state back.
type BusTransport struct {
	pub   pubsub.Publisher
	state PublisherState

	mu      sync.Mutex
	channel string
	uid     uint32
	role    token.Role
}

// NewBusTransport creates a bus-backed media transport. The state is the
// session's publisher tracker; it decides whether a subscribe can succeed.
func NewBusTransport(pub pubsub.Publisher, state PublisherState) *BusTransport {
	return &BusTransport{pub: pub, state: state}
}

func (t *BusTransport) Join(ctx context.Context, channel, grantToken string, uid uint32, role token.Role) error {
	t.mu.Lock()
	t.channel = channel
	t.uid = uid
	t.role = role
	t.mu.Unlock()

	return t.publish(ctx, EventMediaJoin, map[string]interface{}{
		"token": grantToken,
		"role":  string(role),
	})
}

func (t *BusTransport) PublishLocal(ctx context.Context) error {
	return t.publish(ctx, EventMediaPublish, nil)
}

func (t *BusTransport) SubscribeRemote(ctx context.Context) error {
	// Nobody publishing means nothing to subscribe to; the adapter parks
	// the viewer in waiting and retries on the publisher-up event.
	if t.state == nil || !t.state.HasPublisher() {
		return ErrNoPublisher
	}
	return t.publish(ctx, EventMediaSubscribe, nil)
}

func (t *BusTransport) Unpublish(ctx context.Context) error {
	return t.publish(ctx, EventMediaUnpublish, nil)
}

func (t *BusTransport) StopTracks(ctx context.Context) error {
	return t.publish(ctx, EventMediaStop, nil)
}

func (t *BusTransport) CloseTracks(ctx context.Context) error {
	return t.publish(ctx, EventMediaClose, nil)
}

func (t *BusTransport) Leave(ctx context.Context) error {
	err := t.publish(ctx, EventMediaLeave, nil)

	t.mu.Lock()
	t.channel = ""
	t.mu.Unlock()

	return err
}

func (t *BusTransport) publish(ctx context.Context, eventType string, extra map[string]interface{}) error {
	t.mu.Lock()
	channel := t.channel
	uid := t.uid
	t.mu.Unlock()

	if channel == "" {
		return fmt.Errorf("media transport: not joined")
	}

	payload := map[string]interface{}{"uid": uid}
	for k, v := range extra {
		payload[k] = v
	}

	event, err := pubsub.NewEvent(eventType, channel, payload)
	if err != nil {
		return fmt.Errorf("media transport: encode %s: %w", eventType, err)
	}
	if err := t.pub.Publish(ctx, MediaControlChannel(channel), event); err != nil {
		return fmt.Errorf("media transport: publish %s: %w", eventType, err)
	}

	log.Ctx(ctx).Debug().Str("event_type", eventType).Str(log.FieldChannel, channel).Msg("media control event sent")
	return nil
}
