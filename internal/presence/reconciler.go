package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/pubsub"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/repository"
)

// Config holds reconciler tuning.
type Config struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	DedupWindow  time.Duration `mapstructure:"dedup_window"`
}

// ViewSink receives the merged presence view after every reconcile step.
type ViewSink func(View)

// LeaveSink receives a synthesized system/leave chat event. Synthesis is
// in-memory feedback only, never a store write.
type LeaveSink func(domain.ChatEvent)

// Reconciler merges the periodic full pull with the advisory change feed
// for one broadcast session. It is rebuilt whenever the session key
// changes; Run owns all mutable state, so there is a single writer.
type Reconciler struct {
	liveID     string
	repo       repository.PresenceRepository
	subscriber pubsub.Subscriber
	cfg        Config

	onView  ViewSink
	onLeave LeaveSink

	mu       sync.RWMutex
	view     View
	lastPull []domain.ViewerPresence

	pending []domain.PresenceEvent

	// synthesized leave dedup, keyed by (userID, transition timestamp)
	synthesized map[string]time.Time
}

// NewReconciler creates a reconciler for one live session.
func NewReconciler(liveID string, repo repository.PresenceRepository, sub pubsub.Subscriber, cfg Config, onView ViewSink, onLeave LeaveSink) *Reconciler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 2 * time.Minute
	}
	return &Reconciler{
		liveID:      liveID,
		repo:        repo,
		subscriber:  sub,
		cfg:         cfg,
		onView:      onView,
		onLeave:     onLeave,
		synthesized: make(map[string]time.Time),
	}
}

// Snapshot returns the current merged view.
func (r *Reconciler) Snapshot() View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view
}

// Run polls and consumes the change feed until the context is cancelled.
// Presence failures are best-effort: they are logged and the previous view
// stands; they never escalate.
func (r *Reconciler) Run(ctx context.Context) error {
	channel := pubsub.PresenceEventsChannel(r.liveID)
	feed, err := r.subscriber.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("subscribe presence feed: %w", err)
	}
	defer r.subscriber.Unsubscribe(context.WithoutCancel(ctx), channel)

	// Prime with one immediate pull so the view is never empty-by-default.
	r.fullPull(ctx)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			r.fullPull(ctx)

		case ev, ok := <-feed:
			if !ok {
				return nil
			}
			r.applyFeedEvent(ctx, ev)
		}
	}
}

// fullPull refreshes the authoritative list. The pull wins: accumulated
// feed events are discarded, and it never synthesizes leave messages.
func (r *Reconciler) fullPull(ctx context.Context) {
	viewers, err := r.repo.GetViewers(ctx, r.liveID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldSessionID, r.liveID).Msg("presence pull failed, keeping previous view")
		return
	}

	r.mu.Lock()
	r.lastPull = viewers
	r.pending = r.pending[:0]
	r.view = Reconcile(viewers, nil)
	view := r.view
	r.pruneSynthesized()
	r.mu.Unlock()

	if r.onView != nil {
		r.onView(view)
	}
}

// applyFeedEvent folds one advisory row update into the view and, on an
// observed online→offline transition, synthesizes exactly one system/leave
// event for it.
func (r *Reconciler) applyFeedEvent(ctx context.Context, raw *pubsub.Event) {
	if raw.Type != pubsub.EventPresenceChanged || raw.LiveID != r.liveID {
		return
	}

	var ev domain.PresenceEvent
	if err := raw.UnmarshalPayload(&ev); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("malformed presence event, skipped")
		return
	}

	r.mu.Lock()
	wasOnline := false
	for _, v := range r.view.Viewers {
		if v.UserID == ev.UserID {
			wasOnline = v.IsOnline
			break
		}
	}

	r.pending = append(r.pending, ev)
	r.view = Reconcile(r.lastPull, r.pending)
	view := r.view

	// The merge may reject the event as stale (the pull is fresher). Only
	// a transition the merged view actually shows gets a leave message,
	// otherwise the feedback would contradict the displayed list.
	nowOnline := false
	for _, v := range r.view.Viewers {
		if v.UserID == ev.UserID {
			nowOnline = v.IsOnline
			break
		}
	}

	var leave *domain.ChatEvent
	if wasOnline && !nowOnline && !ev.IsOnline {
		key := fmt.Sprintf("%s|%d", ev.UserID, ev.LastSeenAt.UnixMilli())
		if _, seen := r.synthesized[key]; !seen {
			r.synthesized[key] = time.Now()
			e := domain.NewSystemEvent(r.liveID, domain.MetaEventLeave, fmt.Sprintf("%s left", ev.DisplayName))
			leave = &e
		}
	}
	r.mu.Unlock()

	if r.onView != nil {
		r.onView(view)
	}
	if leave != nil && r.onLeave != nil {
		r.onLeave(*leave)
	}
}

// pruneSynthesized drops dedup entries older than the window. Caller holds mu.
func (r *Reconciler) pruneSynthesized() {
	cutoff := time.Now().Add(-r.cfg.DedupWindow)
	for k, at := range r.synthesized {
		if at.Before(cutoff) {
			delete(r.synthesized, k)
		}
	}
}
