package session

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/cache"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/gifter"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/media"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/presence"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/pubsub"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/repository"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/stream"
)

// Feed delivers session-scoped messages to connected viewers.
type Feed interface {
	Broadcast(v interface{})
}

// ScopeDeps carries everything a session scope needs. Passing the
// container explicitly (instead of package-level caches) keeps every piece
// of session state owned by exactly one scope and torn down with it.
type ScopeDeps struct {
	ChatRepo     repository.ChatRepository
	PresenceRepo repository.PresenceRepository
	GifterRepo   repository.GifterRepository
	Bus          pubsub.PubSub
	Profiles     cache.ProfileCache
	Issuer       media.TokenIssuer
	NewTransport func(state media.PublisherState) media.Transport
	Feed         Feed

	StreamCfg   stream.Config
	PresenceCfg presence.Config
	GifterCfg   gifter.Config
}

// Scope bundles all state derived from one session key: the host's media
// attachment, the chat consumer, the presence reconciler and the gifter
// caches. When the key changes the whole scope is closed and a fresh one
// is built, so a new broadcast never inherits stale state.
type Scope struct {
	Key    string
	LiveID string

	Adapter    *media.Adapter
	Media      *media.Tracker
	Consumer   *stream.Consumer
	Reconciler *presence.Reconciler
	Gifters    *gifter.Refresher

	deps   ScopeDeps
	cancel context.CancelFunc
	done   chan struct{}
}

// newScope builds and starts a scope for the given session snapshot.
func newScope(parent context.Context, sess *domain.LiveSession, deps ScopeDeps) *Scope {
	ctx, cancel := context.WithCancel(parent)

	s := &Scope{
		Key:    sess.Key(),
		LiveID: sess.ID,
		deps:   deps,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.Media = media.NewTracker(sess.ChannelName, deps.Bus, sess.IsLive)
	s.Adapter = media.NewAdapter(deps.Issuer, deps.NewTransport(s.Media))

	key := s.Key
	feed := deps.Feed
	effects := stream.Effects{
		OnChat: func(e domain.ChatEvent) {
			feed.Broadcast(domain.ChatEventMessage{Type: domain.MsgTypeChatEvent, SessionKey: key, Event: e})
		},
		OnFlash: func(message string, expiresAt time.Time) {
			feed.Broadcast(domain.FlashMessage{Type: domain.MsgTypeFlash, SessionKey: key, Message: message, ExpiresAt: expiresAt})
		},
		OnFlashClear: func() {
			feed.Broadcast(domain.FlashMessage{Type: domain.MsgTypeFlash, SessionKey: key})
		},
		OnEmote: func(eventID, emote, senderID string) {
			feed.Broadcast(domain.EmoteMessage{Type: domain.MsgTypeEmote, SessionKey: key, EventID: eventID, Emote: emote, SenderID: senderID})
		},
	}
	s.Consumer = stream.NewConsumer(sess.ID, key, deps.ChatRepo, deps.Bus, deps.StreamCfg, effects)

	s.Reconciler = presence.NewReconciler(
		sess.ID, deps.PresenceRepo, deps.Bus, deps.PresenceCfg,
		func(v presence.View) {
			feed.Broadcast(domain.PresenceMessage{
				Type:        domain.MsgTypePresence,
				SessionKey:  key,
				Viewers:     v.Viewers,
				OnlineCount: v.OnlineCount,
			})
		},
		func(e domain.ChatEvent) {
			s.Consumer.HandleSynthesized(e)
		},
	)

	s.Gifters = gifter.NewRefresher(deps.GifterRepo, deps.GifterCfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Consumer.Run(gctx) })
	g.Go(func() error { return s.Reconciler.Run(gctx) })
	g.Go(func() error { return s.Gifters.Run(gctx) })
	g.Go(func() error { return s.Media.Run(gctx) })
	go func() {
		defer close(s.done)
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			log.L().Error().Err(err).Str(log.FieldSessionKey, key).Msg("session scope loop exited")
		}
	}()

	return s
}

// NewViewerAdapter creates a media adapter for one viewer connection and
// registers it with the publisher tracker, so a viewer who joined before
// the host published gets woken when the publish lands. The connection
// owns the adapter and must release it on close.
func (s *Scope) NewViewerAdapter() *media.Adapter {
	a := media.NewAdapter(s.deps.Issuer, s.deps.NewTransport(s.Media))
	s.Media.Register(a)
	return a
}

// ReleaseViewer unhooks a viewer adapter from the tracker and tears its
// media attachment down.
func (s *Scope) ReleaseViewer(ctx context.Context, a *media.Adapter) {
	s.Media.Unregister(a)
	if err := a.Teardown(ctx); err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldSessionKey, s.Key).Msg("viewer media teardown failed")
	}
}

// Close cancels every timer and subscription in the scope and tears down
// the media attachment. Tearing down before the next scope subscribes is
// what keeps a new broadcast from inheriting the previous one's state.
func (s *Scope) Close(ctx context.Context) {
	s.cancel()
	s.Consumer.Close()

	if err := s.Adapter.Teardown(ctx); err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldSessionKey, s.Key).Msg("media teardown on scope close")
	}

	if err := s.deps.Profiles.InvalidateSession(ctx, s.Key); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldSessionKey, s.Key).Msg("profile cache invalidation failed")
	}

	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		log.Ctx(ctx).Warn().Str(log.FieldSessionKey, s.Key).Msg("session scope loops slow to stop")
	}
}

// Profile resolves a public profile through the session-scoped cache.
// Lookup failures are best-effort; callers render without the profile.
func (s *Scope) Profile(ctx context.Context, profiles repository.ProfileRepository, userID string) (*domain.Profile, error) {
	if p, err := s.deps.Profiles.Get(ctx, s.Key, userID); err == nil {
		return p, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		log.Ctx(ctx).Warn().Err(err).Msg("profile cache read failed")
	}

	p, err := profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.deps.Profiles.Set(ctx, s.Key, userID, p); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("profile cache write failed")
	}
	return p, nil
}
