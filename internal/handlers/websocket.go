package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"picturegram-sync/internal/identity"
	"picturegram-sync/internal/middleware"
	"picturegram-sync/internal/models"
	"picturegram-sync/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler handles WebSocket connections. A connected client gets
// its unread count pushed on every change and may toggle likes or mark
// notifications read over the socket.
type WebSocketHandler struct {
	hub    *services.WSHub
	auth   middleware.Authenticator
	unread *services.UnreadCounter
	likes  *services.LikeService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.WSHub,
	auth middleware.Authenticator,
	unread *services.UnreadCounter,
	likes *services.LikeService,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		auth:   auth,
		unread: unread,
		likes:  likes,
	}
}

// HandleWebSocket handles GET /ws?token=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	p, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(identity.WithPrincipal(r.Context(), p))
	defer cancel()

	if err := h.hub.Register(ctx, p, conn); err != nil {
		log.Error().Err(err).Str("user_id", p.ID).Msg("Failed to register WebSocket connection")
		return
	}
	defer h.hub.Unregister(p.ID, conn)

	log.Info().Str("user_id", p.ID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", p.ID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Debug().Err(err).Str("user_id", p.ID).Msg("Failed to parse WebSocket message")
			h.sendError(p, "Invalid message format")
			continue
		}

		if err := h.handleMessage(ctx, p, msg); err != nil {
			log.Warn().Err(err).Str("user_id", p.ID).Str("type", msg.Type).Msg("Failed to handle message")
			h.sendError(p, err.Error())
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, p models.Principal, msg services.WSMessage) error {
	switch msg.Type {
	case "mark_all_read":
		_, err := h.unread.MarkAllAsRead(ctx, p.DisplayName)
		return err
	case "toggle_like":
		res, err := h.likes.ToggleLikeByID(ctx, msg.PhotoID)
		if err != nil {
			return err
		}
		return h.hub.SendToUser(p.ID, services.WSMessage{
			Type:      "like_result",
			PhotoID:   msg.PhotoID,
			Liked:     &res.Liked,
			LikeCount: &res.LikeCount,
		})
	default:
		h.sendError(p, "Unknown message type")
		return nil
	}
}

func (h *WebSocketHandler) sendError(p models.Principal, message string) {
	err := h.hub.SendToUser(p.ID, services.WSMessage{
		Type:    "error",
		Message: message,
	})
	if err != nil {
		log.Debug().Err(err).Str("user_id", p.ID).Msg("Failed to send error message")
	}
}
