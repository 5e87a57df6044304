package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/hub"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/middleware"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/moderation"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Inbound WS message types.
const (
	wsMsgChat = "chat_message"
	wsMsgPing = "ping"
	wsMsgPong = "pong"
)

type inboundMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	EventType string `json:"event_type,omitempty"`
}

// WSHandler serves the session event feed. Each connection is a viewer:
// it gets a media attachment on open and a teardown on close, so a
// dropped tab can never leak a media session.
type WSHandler struct {
	hub        *hub.Hub
	controller *session.Controller
	bans       *moderation.Gateway
	wsCfg      hub.Config
}

func NewWSHandler(h *hub.Hub, controller *session.Controller, bans *moderation.Gateway, wsCfg hub.Config) *WSHandler {
	return &WSHandler{
		hub:        h,
		controller: controller,
		bans:       bans,
		wsCfg:      wsCfg,
	}
}

// Serve upgrades the connection and runs the pumps. Requires auth.
func (h *WSHandler) Serve(c *gin.Context) {
	userID := middleware.GetUserID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), userID, h.hub, conn, h.wsCfg)

	ctx := context.Background()
	sess, err := h.controller.Current(ctx)
	if err != nil {
		client.SendMessage(domain.NewErrorMessage("session unavailable"))
		conn.Close()
		return
	}

	scope, err := h.controller.Scope(ctx)
	if err != nil {
		client.SendMessage(domain.NewErrorMessage("session unavailable"))
		conn.Close()
		return
	}

	adapter := scope.NewViewerAdapter()
	if err := adapter.AttachViewer(ctx, sess.ChannelName, userID, sess.HostID()); err != nil {
		// A failed media attach still gets the chat feed; the client can
		// retry media via the token endpoint.
		log.L().Warn().Err(err).Str(log.FieldUserID, userID).Msg("viewer media attach failed")
	}

	client.OnClose = func() {
		scope.ReleaseViewer(context.Background(), adapter)
	}

	h.hub.Register(client)

	client.SendMessage(domain.SessionStateMessage{
		Type:       domain.MsgTypeSessionState,
		SessionKey: sess.Key(),
		IsLive:     sess.IsLive,
		Title:      sess.Title,
	})

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		client.SendMessage(domain.NewErrorMessage("invalid message format"))
		return
	}

	ctx := context.Background()

	switch msg.Type {
	case wsMsgChat:
		h.handleChat(ctx, client, msg)

	case wsMsgPing:
		client.SendMessage(map[string]string{"type": wsMsgPong})

	default:
		client.SendMessage(domain.NewErrorMessage("unknown message type"))
	}
}

func (h *WSHandler) handleChat(ctx context.Context, client *hub.Client, msg inboundMessage) {
	if msg.Message == "" {
		client.SendMessage(domain.NewErrorMessage("empty message"))
		return
	}

	if banned := h.bans.BannedSet(ctx, []string{client.UserID}); banned[client.UserID] {
		client.SendMessage(domain.NewErrorMessage("you are banned from chat"))
		return
	}

	scope, err := h.controller.Scope(ctx)
	if err != nil {
		log.L().Error().Err(err).Msg("failed to resolve session scope")
		client.SendMessage(domain.NewErrorMessage("failed to send message"))
		return
	}

	eventType := domain.ChatEventChat
	if msg.EventType == string(domain.ChatEventEmote) {
		eventType = domain.ChatEventEmote
	}

	if _, err := scope.Consumer.Send(ctx, client.UserID, msg.Message, eventType); err != nil {
		log.L().Error().Err(err).Str(log.FieldUserID, client.UserID).Msg("failed to send chat event")
		client.SendMessage(domain.NewErrorMessage("failed to send message"))
	}
}
