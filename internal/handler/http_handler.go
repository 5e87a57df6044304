package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/media"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/middleware"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/moderation"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/repository"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/response"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/session"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/token"
)

const defaultChatPageSize = 50

// Handler handles HTTP requests for the broadcast service.
type Handler struct {
	controller     *session.Controller
	chatRepo       repository.ChatRepository
	profiles       repository.ProfileRepository
	bans           *moderation.Gateway
	tokens         *token.Service
	authMiddleware *middleware.AuthMiddleware
	ws             *WSHandler
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	controller *session.Controller,
	chatRepo repository.ChatRepository,
	profiles repository.ProfileRepository,
	bans *moderation.Gateway,
	tokens *token.Service,
	authMiddleware *middleware.AuthMiddleware,
	ws *WSHandler,
) *Handler {
	return &Handler{
		controller:     controller,
		chatRepo:       chatRepo,
		profiles:       profiles,
		bans:           bans,
		tokens:         tokens,
		authMiddleware: authMiddleware,
		ws:             ws,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		sess := api.Group("/session", h.authMiddleware.RequireAuth())
		{
			sess.GET("", h.GetSession)
			sess.GET("/viewers", h.GetViewers)
			sess.POST("/token", h.IssueMediaToken)

			sess.POST("/start", h.authMiddleware.RequireRole(middleware.RoleOperator), h.StartBroadcast)
			sess.POST("/stop", h.authMiddleware.RequireRole(middleware.RoleOperator), h.StopBroadcast)
			sess.PUT("/state", h.authMiddleware.RequireRole(middleware.RoleOperator), h.SetLiveState)
		}

		chat := api.Group("/chat", h.authMiddleware.RequireAuth())
		{
			chat.GET("", h.GetChatPage)
			chat.POST("", h.SendChat)
		}

		api.GET("/gifters", h.authMiddleware.RequireAuth(), h.GetGifters)
		api.GET("/profiles/:id", h.authMiddleware.RequireAuth(), h.GetProfile)

		mod := api.Group("/moderation", h.authMiddleware.RequireAuth(), h.authMiddleware.RequireRole(middleware.RoleOperator))
		{
			mod.POST("/ban", h.BanUser)
			mod.POST("/unban", h.UnbanUser)
			mod.GET("/bans", h.ListBans)
		}

		api.GET("/ws", h.authMiddleware.RequireAuth(), h.ws.Serve)
	}
}

// Health reports process liveness.
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok", "state": h.controller.State()})
}

// GetSession returns the current session document.
func (h *Handler) GetSession(c *gin.Context) {
	ctx := c.Request.Context()

	sess, err := h.controller.Current(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			response.NotFound(c, "session not found")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to read session")
		response.InternalError(c, "failed to read session")
		return
	}

	response.Success(c, sess.ToResponse())
}

// StartBroadcast flips the session live and attaches the host.
func (h *Handler) StartBroadcast(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	var req domain.StartBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	sess, err := h.controller.StartBroadcast(ctx, userID, req.Title)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrStartInFlight):
			response.Conflict(c, "a broadcast start is already in progress")
		case errors.Is(err, media.ErrNotAuthorized):
			response.Forbidden(c, "not authorized to publish")
		default:
			log.Ctx(ctx).Error().Err(err).Msg("failed to start broadcast")
			response.InternalError(c, "failed to start broadcast")
		}
		return
	}

	response.Success(c, sess.ToResponse())
}

// StopBroadcast tears down media and flips the session not-live.
func (h *Handler) StopBroadcast(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	sess, err := h.controller.StopBroadcast(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrNotLive) {
			response.Conflict(c, "no broadcast in progress")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to stop broadcast")
		response.InternalError(c, "failed to stop broadcast")
		return
	}

	response.Success(c, sess.ToResponse())
}

// SetLiveState toggles the stored live flag without touching media.
func (h *Handler) SetLiveState(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	var req domain.SetLiveStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	sess, err := h.controller.SetLiveState(ctx, req.IsLive, userID, req.Title)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to set live state")
		response.InternalError(c, "failed to set live state")
		return
	}

	response.Success(c, sess.ToResponse())
}

// MediaTokenRequest asks for a media grant for the current channel.
type MediaTokenRequest struct {
	Role string `json:"role" binding:"omitempty,oneof=host viewer"`
}

// IssueMediaToken mints a media grant. A host request from anyone other
// than the session host is downgraded to viewer, never rejected.
func (h *Handler) IssueMediaToken(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	var req MediaTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	sess, err := h.controller.Current(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to read session for token issue")
		response.InternalError(c, "failed to issue token")
		return
	}

	role := token.RoleViewer
	if req.Role == string(token.RoleHost) {
		role = token.RoleHost
	}

	grant, err := h.tokens.Issue(ctx, token.IssueRequest{
		UserID:        userID,
		RequestedRole: role,
		Channel:       sess.ChannelName,
		SessionHostID: sess.HostID(),
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to issue media token")
		response.InternalError(c, "failed to issue token")
		return
	}

	response.Success(c, grant)
}

// GetViewers returns the reconciled viewer list.
func (h *Handler) GetViewers(c *gin.Context) {
	ctx := c.Request.Context()

	scope, err := h.controller.Scope(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to resolve session scope")
		response.InternalError(c, "failed to read viewers")
		return
	}

	view := scope.Reconciler.Snapshot()
	response.Success(c, domain.ViewerListResponse{
		Viewers:     view.Viewers,
		OnlineCount: view.OnlineCount,
		SessionKey:  scope.Key,
	})
}

// GetChatPage returns the most recent chat events in chronological order.
func (h *Handler) GetChatPage(c *gin.Context) {
	ctx := c.Request.Context()

	limit := defaultChatPageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			response.BadRequest(c, "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	sess, err := h.controller.Current(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to read session for chat page")
		response.InternalError(c, "failed to read chat")
		return
	}

	events, err := h.chatRepo.RecentPage(ctx, sess.ID, limit)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to read chat page")
		response.InternalError(c, "failed to read chat")
		return
	}

	response.Success(c, domain.ChatPageResponse{Events: events, Limit: limit})
}

// SendChat appends one chat or emote event for the caller.
func (h *Handler) SendChat(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	var req domain.SendChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if banned := h.bans.BannedSet(ctx, []string{userID}); banned[userID] {
		response.Forbidden(c, "you are banned from chat")
		return
	}

	scope, err := h.controller.Scope(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to resolve session scope")
		response.InternalError(c, "failed to send message")
		return
	}

	eventType := domain.ChatEventChat
	if req.Type == string(domain.ChatEventEmote) {
		eventType = domain.ChatEventEmote
	}

	event, err := scope.Consumer.Send(ctx, userID, req.Message, eventType)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to send chat event")
		response.InternalError(c, "failed to send message")
		return
	}

	response.Created(c, event)
}

// GetGifters returns the cached top-gifter board for one window.
func (h *Handler) GetGifters(c *gin.Context) {
	ctx := c.Request.Context()

	period := domain.GifterPeriod(c.DefaultQuery("period", string(domain.PeriodSession)))
	if !period.Valid() {
		response.BadRequest(c, "invalid period")
		return
	}

	scope, err := h.controller.Scope(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to resolve session scope")
		response.InternalError(c, "failed to read gifters")
		return
	}

	response.Success(c, scope.Gifters.Board(period))
}

// GetProfile returns one public profile, served through the session's
// profile cache so repeated lookups for the same viewer hit the store
// once per broadcast.
func (h *Handler) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("id")

	scope, err := h.controller.Scope(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to resolve session scope")
		response.InternalError(c, "failed to read profile")
		return
	}

	profile, err := scope.Profile(ctx, h.profiles, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			response.NotFound(c, "profile not found")
			return
		}
		log.Ctx(ctx).Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to read profile")
		response.InternalError(c, "failed to read profile")
		return
	}

	response.Success(c, profile)
}

// BanUser bans a user from chat. Banning an already banned user succeeds.
func (h *Handler) BanUser(c *gin.Context) {
	ctx := c.Request.Context()
	actorID := middleware.GetUserID(c)

	var req domain.BanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.bans.Ban(ctx, actorID, req.UserID, req.Reason); err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldUserID, req.UserID).Msg("failed to ban user")
		response.InternalError(c, "failed to ban user")
		return
	}

	response.Success(c, gin.H{"user_id": req.UserID, "banned": true})
}

// UnbanUser lifts a ban. Unbanning a clear user succeeds.
func (h *Handler) UnbanUser(c *gin.Context) {
	ctx := c.Request.Context()
	actorID := middleware.GetUserID(c)

	var req domain.BanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.bans.Unban(ctx, actorID, req.UserID); err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldUserID, req.UserID).Msg("failed to unban user")
		response.InternalError(c, "failed to unban user")
		return
	}

	response.Success(c, gin.H{"user_id": req.UserID, "banned": false})
}

// ListBans returns the active ban list.
func (h *Handler) ListBans(c *gin.Context) {
	ctx := c.Request.Context()

	bans, err := h.bans.ActiveBans(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list bans")
		response.InternalError(c, "failed to list bans")
		return
	}

	response.Success(c, gin.H{"bans": bans})
}
