package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"talentBack/internal/booking/fsm"
	"talentBack/internal/booking/pricing"
	"talentBack/internal/metrics"
	"talentBack/internal/models"
	"talentBack/internal/repositories"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// InvoiceService issues invoices with a commission split frozen at issuance.
type InvoiceService struct {
	Bookings        BookingStore
	Applications    ApplicationStore
	Payments        PaymentStore
	Profiles        ProfileStore
	Schedule        pricing.Schedule
	DefaultCurrency string
	Notifier        Notifier
	Logger          *slog.Logger
	Now             func() time.Time
}

func NewInvoiceService(bookings BookingStore, apps ApplicationStore, payments PaymentStore, profiles ProfileStore,
	schedule pricing.Schedule, currency string, notifier Notifier, logger *slog.Logger) *InvoiceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceService{
		Bookings:        bookings,
		Applications:    apps,
		Payments:        payments,
		Profiles:        profiles,
		Schedule:        schedule,
		DefaultCurrency: currency,
		Notifier:        notifierOrNop(notifier),
		Logger:          logger,
		Now:             func() time.Time { return time.Now().UTC() },
	}
}

// IssueRateInvoice prices the booking from the talent's hourly rate.
func (s *InvoiceService) IssueRateInvoice(ctx context.Context, bookingID, issuerID string) (models.Payment, error) {
	return s.Issue(ctx, models.InvoiceRequest{BookingID: bookingID, IssuerID: issuerID, Mode: models.InvoiceModeRate})
}

// IssueManualInvoice issues an invoice for an explicit amount in minor units.
func (s *InvoiceService) IssueManualInvoice(ctx context.Context, bookingID, issuerID string, amount int64, currency string) (models.Payment, error) {
	return s.Issue(ctx, models.InvoiceRequest{
		BookingID: bookingID,
		IssuerID:  issuerID,
		Amount:    &amount,
		Currency:  currency,
		Mode:      models.InvoiceModeManual,
	})
}

// Issue creates a pending payment and moves the booking to approved. A
// still-pending earlier payment is superseded in the same transaction. For an
// unclaimed gig the issuing applicant claims it as part of issuance.
func (s *InvoiceService) Issue(ctx context.Context, req models.InvoiceRequest) (models.Payment, error) {
	logger := s.Logger.With("op", "IssueInvoice", "booking_id", req.BookingID, "mode", req.Mode)

	switch req.Mode {
	case models.InvoiceModeRate:
	case models.InvoiceModeManual:
		if req.Amount == nil || *req.Amount <= 0 {
			return models.Payment{}, models.NewValidationError("amount", "must be greater than zero")
		}
	default:
		return models.Payment{}, models.NewValidationError("mode", "must be rate or manual")
	}

	b, err := s.Bookings.GetBooking(ctx, req.BookingID)
	if err != nil {
		return models.Payment{}, err
	}
	if !fsm.CanInvoice(b.Status) {
		return models.Payment{}, models.ErrInvalidTransition
	}

	var (
		talentID string
		claimGig bool
	)
	switch {
	case b.HasTalent():
		if !b.IsParty(req.IssuerID) {
			return models.Payment{}, models.ErrForbidden
		}
		talentID = *b.TalentID
	case b.IsGigOpportunity:
		app, err := s.Applications.GetApplication(ctx, b.ID, req.IssuerID)
		if errors.Is(err, models.ErrNotFound) {
			return models.Payment{}, models.ErrForbidden
		}
		if err != nil {
			return models.Payment{}, err
		}
		if app.Status != models.ApplicationStatusInterested {
			return models.Payment{}, models.ErrInvalidTransition
		}
		talentID = req.IssuerID
		claimGig = true
	default:
		return models.Payment{}, models.ErrInvalidTransition
	}

	paid, err := s.Payments.HasCompletedPayment(ctx, b.ID)
	if err != nil {
		return models.Payment{}, err
	}
	if paid {
		return models.Payment{}, alreadyPaid()
	}

	profile, err := s.Profiles.GetProfile(ctx, talentID)
	switch {
	case errors.Is(err, models.ErrNotFound) && req.Mode == models.InvoiceModeManual:
		profile = models.TalentProfile{UserID: talentID}
	case errors.Is(err, models.ErrNotFound):
		return models.Payment{}, models.NewValidationError("hourly_rate", "talent has no hourly rate")
	case err != nil:
		return models.Payment{}, err
	}

	var amount int64
	currency := s.DefaultCurrency
	if req.Mode == models.InvoiceModeRate {
		amount, err = pricing.RateAmount(profile.HourlyRate, b.DurationMinutes)
		if errors.Is(err, pricing.ErrAmountTooLarge) {
			return models.Payment{}, models.NewValidationError("amount", "exceeds the maximum invoice amount")
		}
		if amount <= 0 {
			return models.Payment{}, models.NewValidationError("hourly_rate", "talent has no hourly rate")
		}
		if profile.Currency != "" {
			currency = profile.Currency
		}
	} else {
		amount = *req.Amount
		if strings.TrimSpace(req.Currency) != "" {
			currency = req.Currency
		}
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !currencyPattern.MatchString(currency) {
		return models.Payment{}, models.NewValidationError("currency", "must be a three letter code")
	}

	rate := s.Schedule.RateFor(profile.IsPro)
	commission, earnings, err := pricing.Split(amount, rate)
	if errors.Is(err, pricing.ErrAmountTooLarge) {
		return models.Payment{}, models.NewValidationError("amount", "exceeds the maximum invoice amount")
	}
	if err != nil {
		return models.Payment{}, fmt.Errorf("split commission: %w", err)
	}

	now := s.Now()
	p := models.Payment{
		ID:                 uuid.NewString(),
		BookingID:          b.ID,
		BookerID:           b.RequesterID,
		TalentID:           talentID,
		TotalAmount:        amount,
		Currency:           currency,
		CommissionRate:     rate,
		PlatformCommission: commission,
		TalentEarnings:     earnings,
		Status:             models.PaymentStatusPending,
		Mode:               req.Mode,
		CreatedAt:          now,
	}
	if err := s.Payments.IssueInvoice(ctx, repositories.IssueParams{Payment: p, ClaimGig: claimGig, Now: now}); err != nil {
		logger.Warn("issue invoice failed", "err", err)
		if errors.Is(err, models.ErrAlreadyPaid) {
			return models.Payment{}, alreadyPaid()
		}
		return models.Payment{}, err
	}
	metrics.InvoiceIssued(req.Mode)
	if claimGig {
		metrics.GigClaim("won")
	}
	logger.Info("invoice issued", "payment_id", p.ID, "amount", amount, "commission_rate", rate)

	s.Notifier.Notify(models.Notice{
		UserID:    b.RequesterID,
		Kind:      models.NoticeInvoiceIssued,
		Title:     "Invoice issued",
		Body:      fmt.Sprintf("An invoice of %s is ready for your %s booking", formatAmount(amount, currency), describeEvent(b)),
		BookingID: b.ID,
		PaymentID: p.ID,
	})
	return p, nil
}

// GetPayment returns a payment visible to its booker or talent.
func (s *InvoiceService) GetPayment(ctx context.Context, paymentID, userID string) (models.Payment, error) {
	p, err := s.Payments.GetPayment(ctx, paymentID)
	if err != nil {
		return models.Payment{}, err
	}
	if p.BookerID != userID && p.TalentID != userID {
		return models.Payment{}, models.ErrForbidden
	}
	return p, nil
}

// DeclinePayment declines a pending payment. The booking stays approved so a
// new invoice can be issued.
func (s *InvoiceService) DeclinePayment(ctx context.Context, paymentID, actorID string) (models.Payment, error) {
	p, err := s.GetPayment(ctx, paymentID, actorID)
	if err != nil {
		return models.Payment{}, err
	}
	if p.Status == models.PaymentStatusDeclined {
		return p, nil
	}
	if !fsm.CanTransitionPayment(p.Status, models.PaymentStatusDeclined) {
		return models.Payment{}, models.ErrInvalidTransition
	}
	now := s.Now()
	if err := s.Payments.DeclinePayment(ctx, paymentID, now); err != nil {
		return models.Payment{}, err
	}
	p.Status = models.PaymentStatusDeclined
	p.DeclinedAt = &now

	other := p.TalentID
	if actorID == p.TalentID {
		other = p.BookerID
	}
	s.Notifier.Notify(models.Notice{
		UserID:    other,
		Kind:      models.NoticePaymentDeclined,
		Title:     "Invoice declined",
		Body:      fmt.Sprintf("The invoice of %s was declined", formatAmount(p.TotalAmount, p.Currency)),
		BookingID: p.BookingID,
		PaymentID: p.ID,
	})
	return p, nil
}

func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, currency)
}

// alreadyPaid reports a booking with a completed payment as a client input
// problem while keeping models.ErrAlreadyPaid matchable.
func alreadyPaid() error {
	return &models.ValidationError{
		Field:   "booking_id",
		Message: "booking already has a completed payment",
		Err:     models.ErrAlreadyPaid,
	}
}
