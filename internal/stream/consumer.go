package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/pubsub"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/repository"
)

// Config holds consumer tuning.
type Config struct {
	WindowSize     int           `mapstructure:"window_size"`
	FlashDuration  time.Duration `mapstructure:"flash_duration"`
	EmoteLifetime  time.Duration `mapstructure:"emote_lifetime"`
	EmoteMaxActive int           `mapstructure:"emote_max_active"`
	SelfEchoWindow time.Duration `mapstructure:"self_echo_window"`
}

func (c *Config) applyDefaults() {
	if c.WindowSize < 1 {
		c.WindowSize = 200
	}
	if c.FlashDuration <= 0 {
		c.FlashDuration = 5 * time.Second
	}
	if c.EmoteLifetime <= 0 {
		c.EmoteLifetime = 4 * time.Second
	}
	if c.EmoteMaxActive < 1 {
		c.EmoteMaxActive = 30
	}
	if c.SelfEchoWindow <= 0 {
		c.SelfEchoWindow = 10 * time.Second
	}
}

// Effects receives transient UI effects derived from the event stream.
// All callbacks are invoked without the consumer lock held.
type Effects struct {
	OnChat       func(domain.ChatEvent)
	OnFlash      func(message string, expiresAt time.Time)
	OnFlashClear func()
	OnEmote      func(eventID, emote, senderID string)
}

// Flash is the current gift flash overlay state.
type Flash struct {
	Message   string
	ExpiresAt time.Time
}

type activeEmote struct {
	eventID string
	timer   *time.Timer
}

// Consumer subscribes to the chat/gift/emote feed for one broadcast
// session, classifies events and drives the transient effect state. It is
// scoped to a single session key: a new broadcast gets a fresh consumer
// with empty state.
type Consumer struct {
	liveID     string
	sessionKey string
	repo       repository.ChatRepository
	bus        pubsub.PubSub
	cfg        Config
	effects    Effects

	window *Window

	mu         sync.Mutex
	flash      *Flash
	flashTimer *time.Timer
	seen       map[string]time.Time // emote event id → first seen
	selfEcho   map[string]time.Time // locally sent emote id → sent at
	active     []activeEmote
	closed     bool
}

// NewConsumer creates a consumer for one live session.
func NewConsumer(liveID, sessionKey string, repo repository.ChatRepository, bus pubsub.PubSub, cfg Config, effects Effects) *Consumer {
	cfg.applyDefaults()
	return &Consumer{
		liveID:     liveID,
		sessionKey: sessionKey,
		repo:       repo,
		bus:        bus,
		cfg:        cfg,
		effects:    effects,
		window:     NewWindow(cfg.WindowSize),
		seen:       make(map[string]time.Time),
		selfEcho:   make(map[string]time.Time),
	}
}

// SessionKey returns the session key this consumer is scoped to.
func (c *Consumer) SessionKey() string {
	return c.sessionKey
}

// Window returns the bounded chat window.
func (c *Consumer) Window() *Window {
	return c.window
}

// CurrentFlash returns the visible flash, or nil when none is showing.
func (c *Consumer) CurrentFlash() *Flash {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flash == nil {
		return nil
	}
	f := *c.flash
	return &f
}

// ActiveEmotes returns the event IDs of currently animating emotes.
func (c *Consumer) ActiveEmotes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, len(c.active))
	for i, a := range c.active {
		ids[i] = a.eventID
	}
	return ids
}

// Run consumes the feed until the context is cancelled. Arrival order is
// connection-local; that is acceptable for a live chat surface.
func (c *Consumer) Run(ctx context.Context) error {
	channel := pubsub.ChatEventsChannel(c.liveID)
	feed, err := c.bus.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("subscribe chat feed: %w", err)
	}
	defer c.bus.Unsubscribe(context.WithoutCancel(ctx), channel)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-feed:
			if !ok {
				return nil
			}
			if raw.Type != pubsub.EventChatAppended || raw.LiveID != c.liveID {
				continue
			}
			var event domain.ChatEvent
			if err := raw.UnmarshalPayload(&event); err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("malformed chat event, skipped")
				continue
			}
			c.Handle(event)
		}
	}
}

// Handle classifies one event and applies its window and effect behavior.
func (c *Consumer) Handle(event domain.ChatEvent) {
	if event.IsDeleted {
		return
	}

	switch event.Type {
	case domain.ChatEventEmote:
		c.window.Append(event)
		c.handleEmote(event)
	case domain.ChatEventChat, domain.ChatEventSystem, domain.ChatEventTip:
		c.window.Append(event)
		if c.effects.OnChat != nil {
			c.effects.OnChat(event)
		}
	default:
		return
	}

	if event.IsGift() {
		c.handleGift(event)
	}
}

// HandleSynthesized records a client-synthesized system event (join/leave
// feedback) in the window without persisting it.
func (c *Consumer) HandleSynthesized(event domain.ChatEvent) {
	c.window.Append(event)
	if c.effects.OnChat != nil {
		c.effects.OnChat(event)
	}
}

// Send originates a user chat or emote: persists it, marks the self-echo
// table for emotes, and publishes to the feed. The insert failure
// escalates; a publish failure is logged, since the row is durable and the
// feed will converge.
func (c *Consumer) Send(ctx context.Context, senderUserID, message string, eventType domain.ChatEventType) (*domain.ChatEvent, error) {
	if eventType != domain.ChatEventEmote {
		eventType = domain.ChatEventChat
	}

	event := domain.ChatEvent{
		ID:           uuid.New().String(),
		LiveID:       c.liveID,
		SenderUserID: &senderUserID,
		Message:      message,
		Type:         eventType,
		CreatedAt:    time.Now().UTC(),
	}

	if err := c.repo.Insert(ctx, &event); err != nil {
		return nil, fmt.Errorf("chat insert: %w", err)
	}

	if eventType == domain.ChatEventEmote {
		c.MarkLocalEcho(event.ID)
	}

	raw, err := pubsub.NewEvent(pubsub.EventChatAppended, c.liveID, event)
	if err == nil {
		err = c.bus.Publish(ctx, pubsub.ChatEventsChannel(c.liveID), raw)
	}
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("event_id", event.ID).Msg("chat publish failed, relying on log convergence")
	}

	return &event, nil
}

// MarkLocalEcho marks an emote just sent from this process so its feed
// echo within the window is logged but not re-animated.
func (c *Consumer) MarkLocalEcho(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selfEcho[eventID] = time.Now()
	c.pruneSelfEchoLocked()
}

// handleGift applies last-wins flash debouncing: the newest gift replaces
// the message and restarts the dismissal window; nothing is queued.
func (c *Consumer) handleGift(event domain.ChatEvent) {
	expiresAt := time.Now().Add(c.cfg.FlashDuration)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.flashTimer != nil {
		c.flashTimer.Stop()
	}
	c.flash = &Flash{Message: event.Message, ExpiresAt: expiresAt}
	c.flashTimer = time.AfterFunc(c.cfg.FlashDuration, c.clearFlash)
	c.mu.Unlock()

	if c.effects.OnFlash != nil {
		c.effects.OnFlash(event.Message, expiresAt)
	}
}

func (c *Consumer) clearFlash() {
	c.mu.Lock()
	c.flash = nil
	c.flashTimer = nil
	c.mu.Unlock()

	if c.effects.OnFlashClear != nil {
		c.effects.OnFlashClear()
	}
}

// handleEmote spawns at most one falling animation per distinct event ID,
// suppressing replays and the sender's own echo.
func (c *Consumer) handleEmote(event domain.ChatEvent) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	if _, echoed := c.selfEcho[event.ID]; echoed {
		delete(c.selfEcho, event.ID)
		c.seen[event.ID] = time.Now()
		c.mu.Unlock()
		return
	}

	if _, dup := c.seen[event.ID]; dup {
		c.mu.Unlock()
		return
	}
	c.seen[event.ID] = time.Now()

	// Bounded concurrency: drop the oldest animation past the cap.
	if len(c.active) >= c.cfg.EmoteMaxActive {
		oldest := c.active[0]
		oldest.timer.Stop()
		c.active = c.active[1:]
	}

	id := event.ID
	c.active = append(c.active, activeEmote{
		eventID: id,
		timer:   time.AfterFunc(c.cfg.EmoteLifetime, func() { c.expireEmote(id) }),
	})
	c.pruneSeenLocked()
	c.mu.Unlock()

	if c.effects.OnEmote != nil {
		c.effects.OnEmote(event.ID, event.Message, event.SenderID())
	}
}

func (c *Consumer) expireEmote(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, a := range c.active {
		if a.eventID == eventID {
			c.active = append(c.active[:i], c.active[i+1:]...)
			return
		}
	}
}

// Close stops all pending effect timers. The consumer must not be reused.
func (c *Consumer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.flashTimer != nil {
		c.flashTimer.Stop()
		c.flashTimer = nil
	}
	c.flash = nil
	for _, a := range c.active {
		a.timer.Stop()
	}
	c.active = nil
}

// pruneSelfEchoLocked drops echo marks past the window. Caller holds mu.
func (c *Consumer) pruneSelfEchoLocked() {
	cutoff := time.Now().Add(-c.cfg.SelfEchoWindow)
	for id, at := range c.selfEcho {
		if at.Before(cutoff) {
			delete(c.selfEcho, id)
		}
	}
}

// pruneSeenLocked keeps the replay dedup set bounded. Caller holds mu.
func (c *Consumer) pruneSeenLocked() {
	if len(c.seen) < 4*c.cfg.WindowSize {
		return
	}
	cutoff := time.Now().Add(-time.Hour)
	for id, at := range c.seen {
		if at.Before(cutoff) {
			delete(c.seen, id)
		}
	}
}
