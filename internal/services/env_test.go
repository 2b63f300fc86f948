package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"talentBack/internal/booking/pricing"
	"talentBack/internal/models"
)

const webhookSecret = "whsec_test"

type testEnv struct {
	store      *memStore
	notes      *recordingNotifier
	bookings   *BookingService
	invoices   *InvoiceService
	settlement *SettlementService
	webhooks   *WebhookService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv() *testEnv {
	store := newMemStore()
	notes := &recordingNotifier{}
	logger := discardLogger()

	bookings := NewBookingService(store, store, notes, logger)
	bookings.Now = fixedClock
	invoices := NewInvoiceService(store, store, store, store, pricing.DefaultSchedule(), "USD", notes, logger)
	invoices.Now = fixedClock
	settlement := NewSettlementService(store, store, notes, 72*time.Hour, logger)
	settlement.Now = fixedClock
	webhooks := NewWebhookService("stripe", webhookSecret, 5*time.Minute, store, settlement, store, nil, notes, logger)
	webhooks.Now = fixedClock

	return &testEnv{store: store, notes: notes, bookings: bookings, invoices: invoices, settlement: settlement, webhooks: webhooks}
}

func (e *testEnv) directBooking(t *testing.T, requesterID, talentID string) models.Booking {
	t.Helper()
	b, err := e.bookings.Create(context.Background(), requesterID, models.CreateBookingRequest{
		TalentID:        strPtr(talentID),
		EventDate:       fixedNow.Add(7 * 24 * time.Hour),
		DurationMinutes: 180,
		Location:        "Hall A",
		EventType:       "wedding",
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func (e *testEnv) gig(t *testing.T, requesterID string) models.Booking {
	t.Helper()
	b, err := e.bookings.Create(context.Background(), requesterID, models.CreateBookingRequest{
		IsGigOpportunity: true,
		IsPublicRequest:  true,
		EventDate:        fixedNow.Add(7 * 24 * time.Hour),
		DurationMinutes:  180,
		EventType:        "party",
	})
	if err != nil {
		t.Fatalf("create gig: %v", err)
	}
	return b
}

func (e *testEnv) profile(userID string, hourly int64, isPro bool) {
	e.store.profiles[userID] = models.TalentProfile{UserID: userID, HourlyRate: hourly, Currency: "USD", IsPro: isPro}
}
