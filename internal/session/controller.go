package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/audit"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/notify"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/repository"
)

// BroadcastState is the host-side broadcast lifecycle.
type BroadcastState string

const (
	StateOffline  BroadcastState = "offline"
	StateStarting BroadcastState = "starting"
	StateLive     BroadcastState = "live"
	StateEnding   BroadcastState = "ending"
)

var (
	// ErrStartInFlight means a start is already running or a broadcast is
	// already live; duplicate start requests are rejected, never queued.
	ErrStartInFlight = errors.New("broadcast start already in flight")
	// ErrNotLive is returned for stop requests when nothing is live here.
	ErrNotLive = errors.New("no broadcast in progress")
)

// LiveStartNotifier dispatches the one-per-broadcast push fanout.
type LiveStartNotifier interface {
	DispatchLiveStart(ctx context.Context, sess *domain.LiveSession, n notify.Notification) (*notify.Result, error)
}

// Controller owns the broadcast lifecycle and the current session scope.
// The singleton session document is authoritative; the controller keeps a
// local snapshot plus the scope derived from that snapshot's key.
type Controller struct {
	repo     repository.SessionRepository
	notifier LiveStartNotifier
	deps     ScopeDeps

	// primaryHostID is the designated streamer account. Going live under
	// this account is what triggers the push fanout.
	primaryHostID string

	starting atomic.Bool

	mu      sync.Mutex
	state   BroadcastState
	session *domain.LiveSession
	scope   *Scope
}

// NewController creates a controller around the singleton session.
func NewController(repo repository.SessionRepository, notifier LiveStartNotifier, primaryHostID string, deps ScopeDeps) *Controller {
	return &Controller{
		repo:          repo,
		notifier:      notifier,
		primaryHostID: primaryHostID,
		deps:          deps,
		state:         StateOffline,
	}
}

// State reports the host-side lifecycle state.
func (c *Controller) State() BroadcastState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current re-reads the session document and rebuilds the scope if the
// session key changed underneath us (another replica started a broadcast,
// or the document was replaced).
func (c *Controller) Current(ctx context.Context) (*domain.LiveSession, error) {
	sess, err := c.repo.GetLiveState(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.adoptLocked(ctx, sess)
	return sess, nil
}

// Scope returns the current session scope, building one from the stored
// session if none exists yet.
func (c *Controller) Scope(ctx context.Context) (*Scope, error) {
	c.mu.Lock()
	if c.scope != nil {
		s := c.scope
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	if _, err := c.Current(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope, nil
}

// StartBroadcast flips the session live, rebuilds the scope for the new
// key and attaches the host to media. The order is deliberate: the state
// write is optimistic so viewers see the transition immediately, and any
// failure after it compensates back to not-live. There is no automatic
// retry; the host retries by pressing start again.
func (c *Controller) StartBroadcast(ctx context.Context, hostUserID, title string) (*domain.LiveSession, error) {
	if !c.starting.CompareAndSwap(false, true) {
		return nil, ErrStartInFlight
	}

	c.mu.Lock()
	if c.state == StateLive {
		c.mu.Unlock()
		c.starting.Store(false)
		return nil, ErrStartInFlight
	}
	c.state = StateStarting
	c.mu.Unlock()

	sess, err := c.setLive(ctx, true, hostUserID, title)
	if err != nil {
		c.abortStart(ctx, "")
		return nil, err
	}

	c.mu.Lock()
	c.adoptLocked(ctx, sess)
	scope := c.scope
	c.mu.Unlock()

	if err := scope.Adapter.AttachHost(ctx, sess.ChannelName, hostUserID, sess.HostID()); err != nil {
		c.abortStart(ctx, hostUserID)
		return nil, err
	}

	c.mu.Lock()
	c.state = StateLive
	c.mu.Unlock()

	audit.LogWithDetail(ctx, audit.ActionStartBroadcast, hostUserID, sess.Key(), "broadcast started")

	c.notifyLiveStart(ctx, sess, hostUserID)
	c.deps.Feed.Broadcast(domain.SessionStateMessage{
		Type:       domain.MsgTypeSessionState,
		SessionKey: sess.Key(),
		IsLive:     true,
		Title:      sess.Title,
	})

	return sess, nil
}

// abortStart compensates a failed start: media is torn down through the
// scope, the live flag is reset best-effort, and the latch is released so
// the host can retry.
func (c *Controller) abortStart(ctx context.Context, hostUserID string) {
	c.mu.Lock()
	scope := c.scope
	c.state = StateOffline
	c.mu.Unlock()

	if scope != nil {
		if err := scope.Adapter.Teardown(ctx); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("media teardown during start compensation")
		}
	}

	if _, err := c.setLive(ctx, false, hostUserID, ""); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to compensate live state after aborted start")
	}

	c.starting.Store(false)
}

// StopBroadcast ends the broadcast. Media teardown runs before the state
// write so the stream is down by the time viewers see not-live; a
// teardown error is logged but never blocks the state change.
func (c *Controller) StopBroadcast(ctx context.Context, hostUserID string) (*domain.LiveSession, error) {
	c.mu.Lock()
	if c.state != StateLive && c.state != StateStarting {
		c.mu.Unlock()
		return nil, ErrNotLive
	}
	c.state = StateEnding
	scope := c.scope
	c.mu.Unlock()

	if scope != nil {
		if err := scope.Adapter.Teardown(ctx); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("media teardown on stop")
		}
	}

	sess, err := c.setLive(ctx, false, hostUserID, "")

	c.mu.Lock()
	c.state = StateOffline
	if sess != nil {
		c.adoptLocked(ctx, sess)
	}
	c.mu.Unlock()
	c.starting.Store(false)

	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionStopBroadcast, hostUserID, "broadcast stopped")
	c.deps.Feed.Broadcast(domain.SessionStateMessage{
		Type:       domain.MsgTypeSessionState,
		SessionKey: sess.Key(),
		IsLive:     false,
	})

	return sess, nil
}

// SetLiveState toggles the live flag directly, for admin tooling. It does
// not attach media; it only moves the stored document and the scope.
func (c *Controller) SetLiveState(ctx context.Context, nextIsLive bool, hostUserID, title string) (*domain.LiveSession, error) {
	sess, err := c.setLive(ctx, nextIsLive, hostUserID, title)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if nextIsLive {
		c.state = StateLive
	} else {
		c.state = StateOffline
		c.starting.Store(false)
	}
	c.adoptLocked(ctx, sess)
	c.mu.Unlock()

	detail := "live=false"
	if nextIsLive {
		detail = "live=true"
	}
	audit.LogWithDetail(ctx, audit.ActionSetLiveState, hostUserID, detail, "live state set")

	return sess, nil
}

// setLive performs the dual-path state write: the transactional toggle
// first, falling back to a direct field mutation plus re-read when the
// toggle path is unavailable (e.g. partial migrations on the singleton
// row). Both paths return the post-write document.
func (c *Controller) setLive(ctx context.Context, nextIsLive bool, hostUserID, title string) (*domain.LiveSession, error) {
	sess, err := c.repo.SetLive(ctx, nextIsLive, hostUserID, title)
	if err == nil {
		return sess, nil
	}
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, err
	}

	log.Ctx(ctx).Warn().Err(err).Bool("next_is_live", nextIsLive).Msg("live toggle failed, falling back to field update")

	if err := c.repo.UpdateLiveFields(ctx, nextIsLive, hostUserID, title); err != nil {
		return nil, err
	}
	return c.repo.GetLiveState(ctx)
}

// Shutdown tears down the current scope; called on process exit so media
// leaves cleanly even when the host never pressed stop.
func (c *Controller) Shutdown(ctx context.Context) {
	c.mu.Lock()
	scope := c.scope
	c.scope = nil
	c.state = StateOffline
	c.mu.Unlock()
	c.starting.Store(false)

	if scope != nil {
		scope.Close(ctx)
	}
}

// adoptLocked installs a session snapshot. If its key differs from the
// current scope's, the old scope is fully closed before the new one is
// built; nothing session-scoped survives a key change. Callers hold c.mu.
func (c *Controller) adoptLocked(ctx context.Context, sess *domain.LiveSession) {
	c.session = sess

	key := sess.Key()
	if c.scope != nil && c.scope.Key == key {
		return
	}

	if c.scope != nil {
		log.Ctx(ctx).Info().
			Str(log.FieldSessionKey, key).
			Str("previous_key", c.scope.Key).
			Msg("session key changed, rebuilding scope")
		c.scope.Close(ctx)
	}

	c.scope = newScope(context.Background(), sess, c.deps)
}

// notifyLiveStart fires the push fanout when the designated streamer goes
// live. Dispatch failures never fail the start; the claim makes a retry
// on the next start harmless.
func (c *Controller) notifyLiveStart(ctx context.Context, sess *domain.LiveSession, hostUserID string) {
	if c.notifier == nil || hostUserID != c.primaryHostID {
		return
	}

	heading := "We're live!"
	body := "The broadcast just started. Tap to join."
	if sess.Title != nil && *sess.Title != "" {
		body = *sess.Title
	}
	res, err := c.notifier.DispatchLiveStart(ctx, sess, notify.Notification{Heading: heading, Body: body})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("live start push dispatch failed")
		return
	}
	if !res.Claimed {
		log.Ctx(ctx).Info().Str(log.FieldSessionID, sess.ID).Msg("live start push already claimed")
		return
	}
	if failed := res.Failures(); failed > 0 {
		log.Ctx(ctx).Warn().Int("failed_batches", failed).Msg("live start push partially failed")
	}
	audit.LogWithDetail(ctx, audit.ActionPushDispatch, hostUserID, sess.Key(), "push dispatched")
}
