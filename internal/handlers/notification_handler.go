package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"talentBack/internal/models"
)

// NotificationAPI is implemented by services.NotificationService.
type NotificationAPI interface {
	List(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	RegisterDevice(ctx context.Context, userID, token string) error
}

type NotificationHandler struct {
	Service NotificationAPI
	Logger  *slog.Logger
}

func NewNotificationHandler(service NotificationAPI, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{Service: service, Logger: loggerOr(logger)}
}

func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	list, err := h.Service.List(r.Context(), userID, queryInt(r, "limit"))
	if err != nil {
		respondError(w, h.Logger, "ListNotifications", err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if err := h.Service.MarkRead(r.Context(), getParam(r, "id"), userID); err != nil {
		respondError(w, h.Logger, "MarkRead", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Service.RegisterDevice(r.Context(), userID, req.Token); err != nil {
		respondError(w, h.Logger, "RegisterDevice", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
