package stream

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/database"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/pubsub"
)

type fakeChatRepo struct {
	mu       sync.Mutex
	inserted []domain.ChatEvent
	err      error
}

func (f *fakeChatRepo) Insert(_ context.Context, event *domain.ChatEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, *event)
	return nil
}

func (f *fakeChatRepo) RecentPage(context.Context, string, int) ([]domain.ChatEvent, error) {
	return nil, nil
}

func (f *fakeChatRepo) SoftDelete(context.Context, string) error { return nil }

type fakeBus struct {
	mu        sync.Mutex
	published []*pubsub.Event
}

func (f *fakeBus) Publish(_ context.Context, _ string, event *pubsub.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
	return nil
}

func (f *fakeBus) Subscribe(context.Context, string) (<-chan *pubsub.Event, error) {
	ch := make(chan *pubsub.Event)
	close(ch)
	return ch, nil
}

func (f *fakeBus) Unsubscribe(context.Context, string) error { return nil }
func (f *fakeBus) Close() error                              { return nil }

type effectLog struct {
	mu         sync.Mutex
	chats      []domain.ChatEvent
	flashes    []string
	clears     int
	emotes     []string
	emoteNames []string
}

func (e *effectLog) effects() Effects {
	return Effects{
		OnChat: func(ev domain.ChatEvent) {
			e.mu.Lock()
			e.chats = append(e.chats, ev)
			e.mu.Unlock()
		},
		OnFlash: func(message string, _ time.Time) {
			e.mu.Lock()
			e.flashes = append(e.flashes, message)
			e.mu.Unlock()
		},
		OnFlashClear: func() {
			e.mu.Lock()
			e.clears++
			e.mu.Unlock()
		},
		OnEmote: func(eventID, emote, _ string) {
			e.mu.Lock()
			e.emotes = append(e.emotes, eventID)
			e.emoteNames = append(e.emoteNames, emote)
			e.mu.Unlock()
		},
	}
}

func newTestConsumer(t *testing.T, cfg Config, fx *effectLog) (*Consumer, *fakeChatRepo, *fakeBus) {
	t.Helper()
	repo := &fakeChatRepo{}
	bus := &fakeBus{}
	c := NewConsumer("live-1", "key-1", repo, bus, cfg, fx.effects())
	t.Cleanup(c.Close)
	return c, repo, bus
}

func chatEvent(id, message string, eventType domain.ChatEventType) domain.ChatEvent {
	sender := "user-1"
	return domain.ChatEvent{
		ID:           id,
		LiveID:       "live-1",
		SenderUserID: &sender,
		Message:      message,
		Type:         eventType,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestHandleAppendsToWindowAndEmitsChat(t *testing.T) {
	fx := &effectLog{}
	c, _, _ := newTestConsumer(t, Config{}, fx)

	c.Handle(chatEvent("e1", "hello", domain.ChatEventChat))

	assert.Equal(t, 1, c.Window().Len())
	require.Len(t, fx.chats, 1)
	assert.Equal(t, "hello", fx.chats[0].Message)
}

func TestHandleSkipsDeletedEvents(t *testing.T) {
	fx := &effectLog{}
	c, _, _ := newTestConsumer(t, Config{}, fx)

	ev := chatEvent("e1", "gone", domain.ChatEventChat)
	ev.IsDeleted = true
	c.Handle(ev)

	assert.Equal(t, 0, c.Window().Len())
	assert.Empty(t, fx.chats)
}

func TestWindowEvictsOldestPastCap(t *testing.T) {
	fx := &effectLog{}
	c, _, _ := newTestConsumer(t, Config{WindowSize: 3}, fx)

	for i := 0; i < 5; i++ {
		c.Handle(chatEvent(fmt.Sprintf("e%d", i), fmt.Sprintf("m%d", i), domain.ChatEventChat))
	}

	events := c.Window().Events()
	require.Len(t, events, 3)
	assert.Equal(t, "m2", events[0].Message)
	assert.Equal(t, "m4", events[2].Message)
}

func TestGiftFlashLastWins(t *testing.T) {
	fx := &effectLog{}
	c, _, _ := newTestConsumer(t, Config{FlashDuration: time.Hour}, fx)

	c.Handle(chatEvent("g1", "Alice sent a rose", domain.ChatEventTip))
	c.Handle(chatEvent("g2", "Bob sent a diamond", domain.ChatEventTip))

	flash := c.CurrentFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Bob sent a diamond", flash.Message, "newer gift replaces the flash")
	assert.Equal(t, []string{"Alice sent a rose", "Bob sent a diamond"}, fx.flashes)
	assert.Zero(t, fx.clears, "replacement must not emit a clear")
}

func TestGiftFlashExpires(t *testing.T) {
	fx := &effectLog{}
	c, _, _ := newTestConsumer(t, Config{FlashDuration: 10 * time.Millisecond}, fx)

	c.Handle(chatEvent("g1", "Alice sent a rose", domain.ChatEventTip))
	require.NotNil(t, c.CurrentFlash())

	assert.Eventually(t, func() bool {
		return c.CurrentFlash() == nil
	}, time.Second, 5*time.Millisecond)
}

func TestSystemGiftMetadataCountsAsGift(t *testing.T) {
	fx := &effectLog{}
	c, _, _ := newTestConsumer(t, Config{FlashDuration: time.Hour}, fx)

	ev := chatEvent("g1", "Carol sent a heart", domain.ChatEventSystem)
	ev.Metadata = database.JSONMap{domain.MetaEvent: domain.MetaEventGift}
	c.Handle(ev)

	require.NotNil(t, c.CurrentFlash())
	assert.Equal(t, "Carol sent a heart", c.CurrentFlash().Message)
}

func TestEmoteReplayDeduped(t *testing.T) {
	fx := &effectLog{}
	c, _, _ := newTestConsumer(t, Config{EmoteLifetime: time.Hour}, fx)

	ev := chatEvent("em1", "🔥", domain.ChatEventEmote)
	c.Handle(ev)
	c.Handle(ev)

	assert.Equal(t, []string{"em1"}, fx.emotes, "same event id animates once")
	assert.Equal(t, 2, c.Window().Len(), "the log entry still lands twice in the window feed")
}

func TestSelfEchoNotReAnimated(t *testing.T) {
	fx := &effectLog{}
	c, repo, bus := newTestConsumer(t, Config{EmoteLifetime: time.Hour}, fx)

	sent, err := c.Send(context.Background(), "user-1", "🔥", domain.ChatEventEmote)
	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)
	require.Len(t, bus.published, 1)

	// The feed echoes our own emote back.
	echo := *sent
	c.Handle(echo)

	assert.Empty(t, fx.emotes, "own echo is logged, not re-animated")
	assert.Equal(t, 1, c.Window().Len())
}

func TestEmoteCapEvictsOldest(t *testing.T) {
	fx := &effectLog{}
	c, _, _ := newTestConsumer(t, Config{EmoteMaxActive: 2, EmoteLifetime: time.Hour}, fx)

	c.Handle(chatEvent("em1", "🔥", domain.ChatEventEmote))
	c.Handle(chatEvent("em2", "❤️", domain.ChatEventEmote))
	c.Handle(chatEvent("em3", "🎉", domain.ChatEventEmote))

	active := c.ActiveEmotes()
	assert.Equal(t, []string{"em2", "em3"}, active, "oldest animation dropped at the cap")
	assert.Len(t, fx.emotes, 3, "all three still animated at least momentarily")
}

func TestSendPersistsBeforePublish(t *testing.T) {
	fx := &effectLog{}
	c, repo, bus := newTestConsumer(t, Config{}, fx)
	repo.err = fmt.Errorf("db down")

	_, err := c.Send(context.Background(), "user-1", "hello", domain.ChatEventChat)
	require.Error(t, err)
	assert.Empty(t, bus.published, "no publish when the insert failed")
}

func TestHandleSynthesizedBypassesPersistence(t *testing.T) {
	fx := &effectLog{}
	c, repo, _ := newTestConsumer(t, Config{}, fx)

	c.HandleSynthesized(domain.NewSystemEvent("live-1", domain.MetaEventLeave, "Dana left"))

	assert.Empty(t, repo.inserted, "synthesized events are never written")
	assert.Equal(t, 1, c.Window().Len())
	require.Len(t, fx.chats, 1)
	assert.Equal(t, domain.ChatEventSystem, fx.chats[0].Type)
}
