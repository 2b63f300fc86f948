package services

import (
	"context"
	"strings"
	"time"

	"talentBack/internal/models"
)

const defaultNotificationLimit = 50

// NotificationService serves the in-app inbox and device registration.
type NotificationService struct {
	Store NotificationStore
	Now   func() time.Time
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{Store: store, Now: func() time.Time { return time.Now().UTC() }}
}

func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > defaultNotificationLimit {
		limit = defaultNotificationLimit
	}
	return s.Store.ListNotifications(ctx, userID, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return s.Store.MarkRead(ctx, id, userID, s.Now())
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.NewValidationError("token", "is required")
	}
	return s.Store.RegisterDevice(ctx, models.DeviceToken{UserID: userID, Token: token, CreatedAt: s.Now()})
}
