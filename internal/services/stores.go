package services

import (
	"context"
	"time"

	"talentBack/internal/models"
	"talentBack/internal/repositories"
)

// BookingStore is the booking side of the record store.
type BookingStore interface {
	CreateBooking(ctx context.Context, b models.Booking) error
	GetBooking(ctx context.Context, id string) (models.Booking, error)
	ListBookingsForUser(ctx context.Context, userID string) ([]models.Booking, error)
	ListOpenGigs(ctx context.Context, limit int) ([]models.Booking, error)
	ClaimGig(ctx context.Context, gigID, talentID string, now time.Time) (bool, error)
	DeclineBooking(ctx context.Context, id string, now time.Time) error
	CompleteBooking(ctx context.Context, id string, now time.Time) error
	ListPastConfirmed(ctx context.Context, now time.Time, limit int) ([]models.Booking, error)
}

// ApplicationStore persists gig applications.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, a models.GigApplication) error
	GetApplication(ctx context.Context, gigID, talentID string) (models.GigApplication, error)
	ListApplications(ctx context.Context, gigID string) ([]models.GigApplication, error)
	WithdrawApplication(ctx context.Context, gigID, talentID string, now time.Time) error
}

// PaymentStore persists payments and performs the transactional money moves.
type PaymentStore interface {
	GetPayment(ctx context.Context, id string) (models.Payment, error)
	HasCompletedPayment(ctx context.Context, bookingID string) (bool, error)
	IssueInvoice(ctx context.Context, params repositories.IssueParams) error
	DeclinePayment(ctx context.Context, id string, now time.Time) error
	SettlePayment(ctx context.Context, paymentID string, now time.Time) (models.SettlementResult, error)
	RecordFailure(ctx context.Context, id, reason string) (bool, error)
	SetCheckoutSession(ctx context.Context, id, sessionID string) error
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error)
}

// ProfileStore reads talent pricing facts and flips the subscriber flag.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (models.TalentProfile, error)
	SetPro(ctx context.Context, userID string, isPro bool, changedAt, now time.Time) (bool, error)
}

// WebhookStore is the provider delivery audit log.
type WebhookStore interface {
	RecordWebhook(ctx context.Context, ev models.WebhookEvent) (bool, error)
	WebhookProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkWebhookProcessed(ctx context.Context, provider, eventID, procErr string, now time.Time) error
	MarkWebhookFailed(ctx context.Context, provider, eventID, procErr string) error
}

// NotificationStore persists in-app notifications and push targets.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n models.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string, now time.Time) error
	RegisterDevice(ctx context.Context, d models.DeviceToken) error
	ListDeviceTokens(ctx context.Context, userID string) ([]string, error)
	DeleteDeviceToken(ctx context.Context, token string) error
}

// Notifier accepts notices for asynchronous delivery. It must not block.
type Notifier interface {
	Notify(n models.Notice)
}

type nopNotifier struct{}

func (nopNotifier) Notify(models.Notice) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
