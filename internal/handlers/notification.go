package handlers

import (
	"net/http"

	"picturegram-sync/internal/services"

	"github.com/rs/zerolog/log"
)

// NotificationHandler serves the principal's notifications
type NotificationHandler struct {
	unread *services.UnreadCounter
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(unread *services.UnreadCounter) *NotificationHandler {
	return &NotificationHandler{unread: unread}
}

// List handles GET /api/v1/notifications. Opening the list marks everything
// in it as read; the response still shows the state before marking.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.unread.List(ctx)
	if err != nil {
		respondServiceError(w, r, err, "Failed to list notifications")
		return
	}

	if _, err := h.unread.MarkAllAsRead(ctx, ""); err != nil {
		log.Warn().Err(err).Msg("Failed to mark notifications as read")
	}

	respondJSON(w, http.StatusOK, map[string]any{"notifications": list})
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.unread.UnreadCount(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "Failed to count notifications")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

// MarkAllRead handles POST /api/v1/notifications/read
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	marked, err := h.unread.MarkAllAsRead(r.Context(), "")
	if err != nil {
		respondServiceError(w, r, err, "Failed to mark notifications as read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"marked": marked})
}
