package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"talentBack/internal/booking/pay"
	"talentBack/internal/models"
)

// ErrCheckoutDisabled is returned when no payment provider is configured.
var ErrCheckoutDisabled = errors.New("checkout provider is not configured")

// DefaultMinSessionTTL is the shortest checkout window worth opening. Stripe
// refuses sessions that expire sooner than this.
const DefaultMinSessionTTL = 30 * time.Minute

// CheckoutProvider creates hosted checkout sessions.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, req pay.CheckoutRequest) (pay.CheckoutSession, error)
}

// CheckoutService opens hosted checkout sessions. A session never outlives
// the pending payment it pays for: ExpiresAt is capped at CreatedAt+PendingTTL,
// the instant the reaper may decline the payment.
type CheckoutService struct {
	Payments      PaymentStore
	Provider      CheckoutProvider
	TTL           time.Duration
	PendingTTL    time.Duration
	MinSessionTTL time.Duration
	Logger        *slog.Logger
	Now           func() time.Time
}

func NewCheckoutService(payments PaymentStore, provider CheckoutProvider, ttl, pendingTTL time.Duration, logger *slog.Logger) *CheckoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutService{
		Payments:      payments,
		Provider:      provider,
		TTL:           ttl,
		PendingTTL:    pendingTTL,
		MinSessionTTL: DefaultMinSessionTTL,
		Logger:        logger,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// StartCheckout opens a provider checkout session for the booker's pending
// payment. The provider call happens outside any transaction.
func (s *CheckoutService) StartCheckout(ctx context.Context, paymentID, bookerID string) (pay.CheckoutSession, error) {
	if s.Provider == nil {
		return pay.CheckoutSession{}, ErrCheckoutDisabled
	}
	p, err := s.Payments.GetPayment(ctx, paymentID)
	if err != nil {
		return pay.CheckoutSession{}, err
	}
	if p.BookerID != bookerID {
		return pay.CheckoutSession{}, models.ErrForbidden
	}
	if p.Status != models.PaymentStatusPending {
		return pay.CheckoutSession{}, models.ErrInvalidTransition
	}

	expiresAt, err := s.sessionExpiry(p)
	if err != nil {
		return pay.CheckoutSession{}, err
	}

	req := pay.CheckoutRequest{
		PaymentID:   p.ID,
		BookingID:   p.BookingID,
		Amount:      p.TotalAmount,
		Currency:    p.Currency,
		Description: fmt.Sprintf("Booking %s", p.BookingID),
		ExpiresAt:   expiresAt,
	}
	session, err := s.Provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.Logger.Error("create checkout session failed", "op", "StartCheckout", "payment_id", p.ID, "err", err)
		return pay.CheckoutSession{}, err
	}
	if err := s.Payments.SetCheckoutSession(ctx, p.ID, session.ID); err != nil {
		return pay.CheckoutSession{}, err
	}
	return session, nil
}

// sessionExpiry picks the session deadline: now+TTL, pulled in to the
// payment's own expiry. A zero time leaves the provider default in place.
func (s *CheckoutService) sessionExpiry(p models.Payment) (time.Time, error) {
	now := s.Now()
	var expiresAt time.Time
	if s.TTL > 0 {
		expiresAt = now.Add(s.TTL)
	}
	if s.PendingTTL <= 0 {
		return expiresAt, nil
	}
	deadline := p.CreatedAt.Add(s.PendingTTL)
	if deadline.Sub(now) < s.MinSessionTTL {
		return time.Time{}, fmt.Errorf("%w: payment expires at %s, too soon to check out", models.ErrInvalidTransition, deadline.Format(time.RFC3339))
	}
	if expiresAt.IsZero() || deadline.Before(expiresAt) {
		expiresAt = deadline
	}
	return expiresAt, nil
}
