// File: internal/handlers/notification_handler.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-subportal/internal/domain"
	"github.com/iyunix/go-subportal/internal/middleware"
	"github.com/iyunix/go-subportal/internal/repository"
)

type NotificationLister interface {
	List(ctx context.Context, clientID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, clientID string, id uint) error
}

type NotificationHandler struct {
	Notifications NotificationLister
	Logger        middleware.Logger
}

func NewNotificationHandler(notifications NotificationLister, logger middleware.Logger) *NotificationHandler {
	return &NotificationHandler{Notifications: notifications, Logger: logger}
}

// GetNotifications lists the caller's toasts, newest first. ?unread=true hides dismissed ones.
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.ClientID(r.Context())
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))

	list, err := h.Notifications.List(r.Context(), clientID, unreadOnly, queryLimit(r, 50))
	if err != nil {
		h.Logger.Error("failed to list notifications", "client", clientID, "error", err)
		writeError(w, "Could not retrieve notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		writeError(w, "Invalid notification ID", http.StatusBadRequest)
		return
	}

	clientID := middleware.ClientID(r.Context())
	if err := h.Notifications.MarkRead(r.Context(), clientID, uint(id)); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			writeError(w, "Notification not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("failed to mark notification read", "client", clientID, "id", id, "error", err)
		writeError(w, "Could not update notification", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
