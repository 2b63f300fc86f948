package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"talentBack/internal/booking/fsm"
	"talentBack/internal/metrics"
	"talentBack/internal/models"
)

const (
	maxDurationMinutes = 24 * 60
	defaultGigLimit    = 100
)

type BookingService struct {
	Bookings     BookingStore
	Applications ApplicationStore
	Notifier     Notifier
	Logger       *slog.Logger
	Now          func() time.Time
}

func NewBookingService(bookings BookingStore, apps ApplicationStore, notifier Notifier, logger *slog.Logger) *BookingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingService{
		Bookings:     bookings,
		Applications: apps,
		Notifier:     notifierOrNop(notifier),
		Logger:       logger,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and stores a new pending booking. Direct bookings name a
// talent; gig opportunities start unclaimed.
func (s *BookingService) Create(ctx context.Context, requesterID string, req models.CreateBookingRequest) (models.Booking, error) {
	now := s.Now()
	if requesterID == "" {
		return models.Booking{}, models.ErrUnauthorized
	}
	if req.EventDate.IsZero() {
		return models.Booking{}, models.NewValidationError("event_date", "is required")
	}
	if !req.EventDate.After(now) {
		return models.Booking{}, models.NewValidationError("event_date", "must be in the future")
	}
	if req.DurationMinutes <= 0 || req.DurationMinutes > maxDurationMinutes {
		return models.Booking{}, models.NewValidationError("duration_minutes", "must be between 1 and 1440")
	}
	var talentID *string
	if req.IsGigOpportunity {
		if req.TalentID != nil && *req.TalentID != "" {
			return models.Booking{}, models.NewValidationError("talent_id", "must be empty for a gig opportunity")
		}
	} else {
		if req.TalentID == nil || strings.TrimSpace(*req.TalentID) == "" {
			return models.Booking{}, models.NewValidationError("talent_id", "is required for a direct booking")
		}
		if *req.TalentID == requesterID {
			return models.Booking{}, models.NewValidationError("talent_id", "cannot book yourself")
		}
		if req.IsPublicRequest {
			return models.Booking{}, models.NewValidationError("is_public_request", "only gig opportunities can be public")
		}
		id := strings.TrimSpace(*req.TalentID)
		talentID = &id
	}

	b := models.Booking{
		ID:               uuid.NewString(),
		RequesterID:      requesterID,
		TalentID:         talentID,
		Status:           models.BookingStatusPending,
		IsGigOpportunity: req.IsGigOpportunity,
		IsPublicRequest:  req.IsPublicRequest,
		EventDate:        req.EventDate.UTC(),
		DurationMinutes:  req.DurationMinutes,
		Location:         strings.TrimSpace(req.Location),
		EventType:        strings.TrimSpace(req.EventType),
		Description:      strings.TrimSpace(req.Description),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Bookings.CreateBooking(ctx, b); err != nil {
		return models.Booking{}, fmt.Errorf("create booking: %w", err)
	}
	if b.HasTalent() {
		s.Notifier.Notify(models.Notice{
			UserID:    *b.TalentID,
			Kind:      models.NoticeBookingCreated,
			Title:     "New booking request",
			Body:      fmt.Sprintf("You have a new %s booking request", describeEvent(b)),
			BookingID: b.ID,
		})
	}
	return b, nil
}

// Get returns a booking visible to userID: its parties, or anyone for an open public gig.
func (s *BookingService) Get(ctx context.Context, id, userID string) (models.Booking, error) {
	b, err := s.Bookings.GetBooking(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	if b.IsParty(userID) || isOpenGig(b) {
		return b, nil
	}
	return models.Booking{}, models.ErrForbidden
}

func (s *BookingService) ListForUser(ctx context.Context, userID string) ([]models.Booking, error) {
	return s.Bookings.ListBookingsForUser(ctx, userID)
}

func (s *BookingService) ListOpenGigs(ctx context.Context, limit int) ([]models.Booking, error) {
	if limit <= 0 || limit > defaultGigLimit {
		limit = defaultGigLimit
	}
	return s.Bookings.ListOpenGigs(ctx, limit)
}

// ClaimGig assigns talentID to an open public gig. Exactly one of any number of
// concurrent claimants wins; the rest get models.ErrGigUnavailable and nothing
// is written for them.
func (s *BookingService) ClaimGig(ctx context.Context, gigID, talentID string) (models.Booking, error) {
	logger := s.Logger.With("op", "ClaimGig", "gig_id", gigID, "talent_id", talentID)
	b, err := s.Bookings.GetBooking(ctx, gigID)
	if err != nil {
		return models.Booking{}, err
	}
	if !b.IsGigOpportunity || !b.IsPublicRequest {
		return models.Booking{}, models.NewValidationError("gig_id", "booking is not a public gig opportunity")
	}
	if b.RequesterID == talentID {
		return models.Booking{}, models.NewValidationError("talent_id", "cannot claim your own gig")
	}

	claimed, err := s.Bookings.ClaimGig(ctx, gigID, talentID, s.Now())
	if err != nil {
		metrics.GigClaim("error")
		return models.Booking{}, fmt.Errorf("claim gig: %w", err)
	}
	if !claimed {
		metrics.GigClaim("lost")
		logger.Info("gig already claimed")
		return models.Booking{}, models.ErrGigUnavailable
	}
	metrics.GigClaim("won")

	b, err = s.Bookings.GetBooking(ctx, gigID)
	if err != nil {
		return models.Booking{}, err
	}
	s.Notifier.Notify(models.Notice{
		UserID:    b.RequesterID,
		Kind:      models.NoticeGigClaimed,
		Title:     "Gig claimed",
		Body:      fmt.Sprintf("A talent claimed your %s gig", describeEvent(b)),
		BookingID: b.ID,
	})
	return b, nil
}

// Decline moves a pending or approved booking to declined, taking any pending
// payment and open applications with it. Declining twice is a no-op.
func (s *BookingService) Decline(ctx context.Context, bookingID, actorID string) (models.Booking, error) {
	b, err := s.Bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if !b.IsParty(actorID) {
		return models.Booking{}, models.ErrForbidden
	}
	if b.Status == models.BookingStatusDeclined {
		return b, nil
	}
	if !fsm.CanTransition(b.Status, models.BookingStatusDeclined) {
		return models.Booking{}, models.ErrInvalidTransition
	}

	if err := s.Bookings.DeclineBooking(ctx, bookingID, s.Now()); err != nil {
		if !errors.Is(err, models.ErrInvalidTransition) {
			return models.Booking{}, fmt.Errorf("decline booking: %w", err)
		}
		current, getErr := s.Bookings.GetBooking(ctx, bookingID)
		if getErr != nil || current.Status != models.BookingStatusDeclined {
			return models.Booking{}, err
		}
		return current, nil
	}

	b, err = s.Bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	for _, userID := range counterparties(b, actorID) {
		s.Notifier.Notify(models.Notice{
			UserID:    userID,
			Kind:      models.NoticeBookingDeclined,
			Title:     "Booking declined",
			Body:      fmt.Sprintf("The %s booking was declined", describeEvent(b)),
			BookingID: b.ID,
		})
	}
	return b, nil
}

// DeclineGig declines a gig opportunity whether or not it has been claimed.
func (s *BookingService) DeclineGig(ctx context.Context, gigID, actorID string) (models.Booking, error) {
	b, err := s.Bookings.GetBooking(ctx, gigID)
	if err != nil {
		return models.Booking{}, err
	}
	if !b.IsGigOpportunity {
		return models.Booking{}, models.NewValidationError("gig_id", "booking is not a gig opportunity")
	}
	return s.Decline(ctx, gigID, actorID)
}

// Complete closes a confirmed booking once its event date has passed.
func (s *BookingService) Complete(ctx context.Context, bookingID, actorID string) (models.Booking, error) {
	b, err := s.Bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if !b.IsParty(actorID) {
		return models.Booking{}, models.ErrForbidden
	}
	if b.Status == models.BookingStatusCompleted {
		return b, nil
	}
	now := s.Now()
	if !fsm.CanComplete(b, now) {
		return models.Booking{}, models.ErrInvalidTransition
	}
	if err := s.Bookings.CompleteBooking(ctx, bookingID, now); err != nil {
		return models.Booking{}, err
	}
	b.Status = models.BookingStatusCompleted
	b.UpdatedAt = now
	for _, userID := range counterparties(b, actorID) {
		s.Notifier.Notify(models.Notice{
			UserID:    userID,
			Kind:      models.NoticeBookingCompleted,
			Title:     "Booking completed",
			Body:      fmt.Sprintf("The %s booking is complete", describeEvent(b)),
			BookingID: b.ID,
		})
	}
	return b, nil
}

// Apply records a talent's interest in an open multi-applicant gig.
func (s *BookingService) Apply(ctx context.Context, gigID, talentID string) (models.GigApplication, error) {
	b, err := s.Bookings.GetBooking(ctx, gigID)
	if err != nil {
		return models.GigApplication{}, err
	}
	if !b.IsGigOpportunity || !b.IsPublicRequest {
		return models.GigApplication{}, models.NewValidationError("gig_id", "booking is not a public gig opportunity")
	}
	if b.RequesterID == talentID {
		return models.GigApplication{}, models.NewValidationError("talent_id", "cannot apply to your own gig")
	}
	if !isOpenGig(b) {
		return models.GigApplication{}, models.ErrGigUnavailable
	}
	now := s.Now()
	app := models.GigApplication{
		ID:        uuid.NewString(),
		GigID:     gigID,
		TalentID:  talentID,
		Status:    models.ApplicationStatusInterested,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Applications.CreateApplication(ctx, app); err != nil {
		return models.GigApplication{}, err
	}
	s.Notifier.Notify(models.Notice{
		UserID:    b.RequesterID,
		Kind:      models.NoticeApplicationNew,
		Title:     "New application",
		Body:      fmt.Sprintf("A talent applied to your %s gig", describeEvent(b)),
		BookingID: b.ID,
	})
	return app, nil
}

func (s *BookingService) Withdraw(ctx context.Context, gigID, talentID string) error {
	if _, err := s.Applications.GetApplication(ctx, gigID, talentID); err != nil {
		return err
	}
	return s.Applications.WithdrawApplication(ctx, gigID, talentID, s.Now())
}

// ListApplications is visible to the gig's requester only.
func (s *BookingService) ListApplications(ctx context.Context, gigID, userID string) ([]models.GigApplication, error) {
	b, err := s.Bookings.GetBooking(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if b.RequesterID != userID {
		return nil, models.ErrForbidden
	}
	return s.Applications.ListApplications(ctx, gigID)
}

func isOpenGig(b models.Booking) bool {
	return b.IsGigOpportunity && b.IsPublicRequest && !b.HasTalent() && b.Status == models.BookingStatusPending
}

// counterparties returns the booking's parties other than actorID.
func counterparties(b models.Booking, actorID string) []string {
	var out []string
	if b.RequesterID != actorID {
		out = append(out, b.RequesterID)
	}
	if b.HasTalent() && *b.TalentID != actorID {
		out = append(out, *b.TalentID)
	}
	return out
}

func describeEvent(b models.Booking) string {
	if b.EventType == "" {
		return "event"
	}
	return b.EventType
}
