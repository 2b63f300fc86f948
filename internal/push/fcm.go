// Package push delivers notices to mobile devices through Firebase Cloud
// Messaging.
package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"google.golang.org/api/option"

	"talentBack/internal/models"
)

type sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// TokenStore lists and prunes a user's registered device tokens.
type TokenStore interface {
	ListDeviceTokens(ctx context.Context, userID string) ([]string, error)
	DeleteDeviceToken(ctx context.Context, token string) error
}

// NewMessagingClient builds an FCM client from a service account file.
func NewMessagingClient(ctx context.Context, credentialsFile string) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return client, nil
}

// FCMSink sends a notice to every device of its recipient. Tokens the
// provider reports as unregistered are removed.
type FCMSink struct {
	client       sender
	tokens       TokenStore
	logger       *slog.Logger
	unregistered func(error) bool
}

func NewFCMSink(client sender, tokens TokenStore, logger *slog.Logger) *FCMSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &FCMSink{
		client:       client,
		tokens:       tokens,
		logger:       logger.With("sink", "fcm"),
		unregistered: messaging.IsRegistrationTokenNotRegistered,
	}
}

func (s *FCMSink) Name() string { return "fcm" }

func (s *FCMSink) Deliver(ctx context.Context, n models.Notice) error {
	tokens, err := s.tokens.ListDeviceTokens(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("list device tokens: %w", err)
	}
	var errs []error
	for _, token := range tokens {
		_, err := s.client.Send(ctx, message(token, n))
		switch {
		case err == nil:
		case s.unregistered(err):
			s.logger.Info("pruning unregistered device token", "user_id", n.UserID)
			if err := s.tokens.DeleteDeviceToken(ctx, token); err != nil {
				s.logger.Warn("delete device token failed", "err", err)
			}
		default:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func message(token string, n models.Notice) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: map[string]string{
			"kind":       n.Kind,
			"booking_id": n.BookingID,
			"payment_id": n.PaymentID,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority_channel",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: n.Title,
						Body:  n.Body,
					},
					Sound: "default",
				},
			},
		},
	}
}
