package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"talentBack/internal/models"
)

// BookingAPI is the booking and gig surface of services.BookingService.
type BookingAPI interface {
	Create(ctx context.Context, requesterID string, req models.CreateBookingRequest) (models.Booking, error)
	Get(ctx context.Context, id, userID string) (models.Booking, error)
	ListForUser(ctx context.Context, userID string) ([]models.Booking, error)
	ListOpenGigs(ctx context.Context, limit int) ([]models.Booking, error)
	ClaimGig(ctx context.Context, gigID, talentID string) (models.Booking, error)
	Decline(ctx context.Context, bookingID, actorID string) (models.Booking, error)
	DeclineGig(ctx context.Context, gigID, actorID string) (models.Booking, error)
	Complete(ctx context.Context, bookingID, actorID string) (models.Booking, error)
	Apply(ctx context.Context, gigID, talentID string) (models.GigApplication, error)
	Withdraw(ctx context.Context, gigID, talentID string) error
	ListApplications(ctx context.Context, gigID, userID string) ([]models.GigApplication, error)
}

type BookingHandler struct {
	Service BookingAPI
	Logger  *slog.Logger
}

func NewBookingHandler(service BookingAPI, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{Service: service, Logger: loggerOr(logger)}
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req models.CreateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.Service.Create(r.Context(), userID, req)
	if err != nil {
		respondError(w, h.Logger, "CreateBooking", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	b, err := h.Service.Get(r.Context(), getParam(r, "id"), userID)
	if err != nil {
		respondError(w, h.Logger, "GetBooking", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	list, err := h.Service.ListForUser(r.Context(), userID)
	if err != nil {
		respondError(w, h.Logger, "ListBookings", err)
		return
	}
	if list == nil {
		list = []models.Booking{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *BookingHandler) DeclineBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "DeclineBooking", h.Service.Decline)
}

func (h *BookingHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "CompleteBooking", h.Service.Complete)
}

func (h *BookingHandler) ListGigs(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListOpenGigs(r.Context(), queryInt(r, "limit"))
	if err != nil {
		respondError(w, h.Logger, "ListGigs", err)
		return
	}
	if list == nil {
		list = []models.Booking{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ClaimGig answers 409 to every claimant but the winner.
func (h *BookingHandler) ClaimGig(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "ClaimGig", h.Service.ClaimGig)
}

func (h *BookingHandler) DeclineGig(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "DeclineGig", h.Service.DeclineGig)
}

func (h *BookingHandler) ApplyToGig(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	app, err := h.Service.Apply(r.Context(), getParam(r, "id"), userID)
	if err != nil {
		respondError(w, h.Logger, "ApplyToGig", err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (h *BookingHandler) WithdrawApplication(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if err := h.Service.Withdraw(r.Context(), getParam(r, "id"), userID); err != nil {
		respondError(w, h.Logger, "WithdrawApplication", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	list, err := h.Service.ListApplications(r.Context(), getParam(r, "id"), userID)
	if err != nil {
		respondError(w, h.Logger, "ListApplications", err)
		return
	}
	if list == nil {
		list = []models.GigApplication{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, id, actorID string) (models.Booking, error)) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	b, err := fn(r.Context(), getParam(r, "id"), userID)
	if err != nil {
		respondError(w, h.Logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
