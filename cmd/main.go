package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/cache"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/config"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/database"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/handler"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/hub"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/media"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/middleware"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/moderation"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/notify"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/pubsub"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/repository"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/session"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.L().Fatal().Err(err).Msg("failed to load config")
	}

	log.Init(cfg.Log)
	logger := log.L()

	db, err := database.New(cfg.Database.ToDatabaseConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.AutoMigrate(db,
		&domain.LiveSessionModel{},
		&domain.ChatEventModel{},
		&domain.ViewerPresenceModel{},
		&domain.BanModel{},
		&domain.PushClaimModel{},
		&domain.GifterAggregateModel{},
		&domain.ProfileModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to event bus")
	}
	defer bus.Close()

	profileCache, err := cache.NewRedisProfileCache(cfg.PubSub.Redis, cfg.Cache.Prefix, cfg.Cache.TTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to profile cache")
	}
	defer profileCache.Close()

	sessionRepo := repository.NewGormSessionRepository(db)
	chatRepo := repository.NewGormChatRepository(db)
	presenceRepo := repository.NewGormPresenceRepository(db)
	banRepo := repository.NewGormBanRepository(db)
	claimRepo := repository.NewGormClaimRepository(db)
	gifterRepo := repository.NewGormGifterRepository(db)
	profileRepo := repository.NewGormProfileRepository(db)

	tokens := token.NewService(cfg.Media.TokenSecret, cfg.Media.AppID, cfg.Media.TokenIssuer, cfg.Media.TokenTTL)

	pushGateway := notify.NewHTTPGateway(cfg.Push)
	dispatcher := notify.NewDispatcher(claimRepo, profileRepo, pushGateway, cfg.Push.BatchSize)

	banGateway := moderation.NewGateway(moderation.NewRepositoryStore(banRepo))

	feed := hub.NewHub(cfg.WebSocket)
	go feed.Run()

	controller := session.NewController(sessionRepo, dispatcher, cfg.Session.PrimaryHostID, session.ScopeDeps{
		ChatRepo:     chatRepo,
		PresenceRepo: presenceRepo,
		GifterRepo:   gifterRepo,
		Bus:          bus,
		Profiles:     profileCache,
		Issuer:       tokens,
		NewTransport: func(state media.PublisherState) media.Transport { return media.NewBusTransport(bus, state) },
		Feed:         feed,
		StreamCfg:    cfg.Stream,
		PresenceCfg:  cfg.Presence,
		GifterCfg:    cfg.Gifter,
	})

	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)
	wsHandler := handler.NewWSHandler(feed, controller, banGateway, cfg.WebSocket)
	httpHandler := handler.NewHandler(controller, chatRepo, profileRepo, banGateway, tokens, authMiddleware, wsHandler)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(log.GinMiddleware(log.L()))
	httpHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("live session service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		// Media must be down before the listener: a killed process with a
		// live publish leaves viewers staring at a frozen frame.
		controller.Shutdown(shutdownCtx)

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("service exited")
	}
	logger.Info().Msg("service stopped")
}
