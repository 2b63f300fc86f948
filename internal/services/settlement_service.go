package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"talentBack/internal/metrics"
	"talentBack/internal/models"
)

const reaperBatch = 200

// ErrAmountMismatch is returned when a provider reports a different total than
// the payment carries.
var ErrAmountMismatch = errors.New("settled amount does not match payment")

// SettlementService turns provider confirmations into completed payments and
// confirmed bookings, and sweeps stale records.
type SettlementService struct {
	Bookings   BookingStore
	Payments   PaymentStore
	Notifier   Notifier
	Logger     *slog.Logger
	PendingTTL time.Duration
	Now        func() time.Time
}

func NewSettlementService(bookings BookingStore, payments PaymentStore, notifier Notifier, pendingTTL time.Duration, logger *slog.Logger) *SettlementService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettlementService{
		Bookings:   bookings,
		Payments:   payments,
		Notifier:   notifierOrNop(notifier),
		Logger:     logger,
		PendingTTL: pendingTTL,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// SettleRequest identifies the payment a provider confirmed. Amount and
// Currency are checked against the payment when non-zero.
type SettleRequest struct {
	PaymentID string
	Amount    int64
	Currency  string
}

// Settle completes the payment and confirms its booking. Settling an already
// completed payment succeeds without writing or notifying anything.
func (s *SettlementService) Settle(ctx context.Context, req SettleRequest) (models.SettlementResult, error) {
	logger := s.Logger.With("op", "Settle", "payment_id", req.PaymentID)

	p, err := s.Payments.GetPayment(ctx, req.PaymentID)
	if err != nil {
		return models.SettlementResult{}, err
	}
	if p.Status == models.PaymentStatusCompleted {
		metrics.Settlement("duplicate")
		return models.SettlementResult{Payment: p, AlreadySettled: true}, nil
	}
	if p.Status == models.PaymentStatusDeclined {
		metrics.Settlement("rejected")
		return models.SettlementResult{}, fmt.Errorf("payment %s is declined: %w", p.ID, models.ErrInvalidTransition)
	}
	if req.Amount != 0 && (req.Amount != p.TotalAmount || (req.Currency != "" && req.Currency != p.Currency)) {
		metrics.Settlement("rejected")
		return models.SettlementResult{}, fmt.Errorf("%w: provider %d %s, payment %d %s",
			ErrAmountMismatch, req.Amount, req.Currency, p.TotalAmount, p.Currency)
	}

	res, err := s.Payments.SettlePayment(ctx, req.PaymentID, s.Now())
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			if current, getErr := s.Payments.GetPayment(ctx, req.PaymentID); getErr == nil && current.Status == models.PaymentStatusCompleted {
				metrics.Settlement("duplicate")
				return models.SettlementResult{Payment: current, AlreadySettled: true}, nil
			}
		}
		metrics.Settlement("rejected")
		return models.SettlementResult{}, err
	}
	if res.AlreadySettled {
		metrics.Settlement("duplicate")
		return res, nil
	}
	metrics.Settlement("settled")
	logger.Info("payment settled", "booking_id", res.Booking.ID, "talent_id", res.TalentID)

	amount := formatAmount(res.Payment.TotalAmount, res.Payment.Currency)
	s.Notifier.Notify(models.Notice{
		UserID:    res.Booking.RequesterID,
		Kind:      models.NoticeBookingConfirmed,
		Title:     "Booking confirmed",
		Body:      fmt.Sprintf("Your payment of %s was received and the %s booking is confirmed", amount, describeEvent(res.Booking)),
		BookingID: res.Booking.ID,
		PaymentID: res.Payment.ID,
	})
	if res.TalentID != "" {
		s.Notifier.Notify(models.Notice{
			UserID: res.TalentID,
			Kind:   models.NoticeBookingConfirmed,
			Title:  "Booking confirmed",
			Body: fmt.Sprintf("The %s booking is paid; you will receive %s",
				describeEvent(res.Booking), formatAmount(res.Payment.TalentEarnings, res.Payment.Currency)),
			BookingID: res.Booking.ID,
			PaymentID: res.Payment.ID,
		})
	}
	return res, nil
}

// RecordPaymentFailure stores a provider failure reason on a pending payment
// and tells the booker. The payment stays pending so checkout can be retried;
// failures reported after completion are ignored.
func (s *SettlementService) RecordPaymentFailure(ctx context.Context, paymentID, reason string) (bool, error) {
	p, err := s.Payments.GetPayment(ctx, paymentID)
	if err != nil {
		return false, err
	}
	if p.Status != models.PaymentStatusPending {
		s.Logger.Info("payment failure ignored", "op", "RecordPaymentFailure", "payment_id", paymentID, "status", p.Status)
		return false, nil
	}
	recorded, err := s.Payments.RecordFailure(ctx, paymentID, reason)
	if err != nil || !recorded {
		return false, err
	}
	s.Notifier.Notify(models.Notice{
		UserID:    p.BookerID,
		Kind:      models.NoticePaymentFailed,
		Title:     "Payment failed",
		Body:      fmt.Sprintf("Your payment of %s failed: %s", formatAmount(p.TotalAmount, p.Currency), reason),
		BookingID: p.BookingID,
		PaymentID: p.ID,
	})
	return true, nil
}

// ExpireStalePayments declines pending payments older than PendingTTL.
func (s *SettlementService) ExpireStalePayments(ctx context.Context) (int, error) {
	if s.PendingTTL <= 0 {
		return 0, nil
	}
	now := s.Now()
	stale, err := s.Payments.ListStalePending(ctx, now.Add(-s.PendingTTL), reaperBatch)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, p := range stale {
		if err := s.Payments.DeclinePayment(ctx, p.ID, now); err != nil {
			if errors.Is(err, models.ErrInvalidTransition) {
				continue
			}
			return expired, err
		}
		expired++
		s.Notifier.Notify(models.Notice{
			UserID:    p.BookerID,
			Kind:      models.NoticePaymentExpired,
			Title:     "Invoice expired",
			Body:      fmt.Sprintf("The invoice of %s expired unpaid", formatAmount(p.TotalAmount, p.Currency)),
			BookingID: p.BookingID,
			PaymentID: p.ID,
		})
	}
	metrics.Reaped("payment_expired", expired)
	return expired, nil
}

// CompletePastBookings moves confirmed bookings whose event date passed to completed.
func (s *SettlementService) CompletePastBookings(ctx context.Context) (int, error) {
	now := s.Now()
	due, err := s.Bookings.ListPastConfirmed(ctx, now, reaperBatch)
	if err != nil {
		return 0, err
	}
	completed := 0
	for _, b := range due {
		if err := s.Bookings.CompleteBooking(ctx, b.ID, now); err != nil {
			if errors.Is(err, models.ErrInvalidTransition) {
				continue
			}
			return completed, err
		}
		completed++
		for _, userID := range counterparties(b, "") {
			s.Notifier.Notify(models.Notice{
				UserID:    userID,
				Kind:      models.NoticeBookingCompleted,
				Title:     "Booking completed",
				Body:      fmt.Sprintf("The %s booking is complete", describeEvent(b)),
				BookingID: b.ID,
			})
		}
	}
	metrics.Reaped("booking_completed", completed)
	return completed, nil
}
