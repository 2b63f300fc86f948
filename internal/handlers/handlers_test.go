package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"talentBack/internal/booking/pay"
	"talentBack/internal/models"
	"talentBack/internal/services"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func asCaller(r *http.Request, userID string) *http.Request {
	return r.WithContext(WithCaller(r.Context(), models.Claims{UserID: userID, Role: models.RoleTalent}))
}

func withParam(r *http.Request, name, value string) *http.Request {
	q := r.URL.Query()
	q.Set(":"+name, value)
	r.URL.RawQuery = q.Encode()
	return r
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewValidationError("amount", "must be positive"), http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", models.ErrNotFound), http.StatusNotFound},
		{models.ErrUnauthorized, http.StatusUnauthorized},
		{models.ErrForbidden, http.StatusForbidden},
		{models.ErrGigUnavailable, http.StatusConflict},
		{models.ErrInvalidTransition, http.StatusConflict},
		{models.ErrAlreadyPaid, http.StatusUnprocessableEntity},
		{&models.ValidationError{Field: "booking_id", Message: "booking already has a completed payment", Err: models.ErrAlreadyPaid}, http.StatusUnprocessableEntity},
		{models.ErrDuplicate, http.StatusConflict},
		{services.ErrCheckoutDisabled, http.StatusServiceUnavailable},
		{&pay.ProviderError{StatusCode: 500}, http.StatusBadGateway},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

type stubBookings struct {
	BookingAPI
	claimed map[string]bool
	created models.CreateBookingRequest
}

func (s *stubBookings) Create(_ context.Context, requesterID string, req models.CreateBookingRequest) (models.Booking, error) {
	if req.DurationMinutes <= 0 {
		return models.Booking{}, models.NewValidationError("duration_minutes", "must be positive")
	}
	s.created = req
	return models.Booking{ID: "b1", RequesterID: requesterID, Status: models.BookingStatusPending}, nil
}

func (s *stubBookings) ClaimGig(_ context.Context, gigID, talentID string) (models.Booking, error) {
	if s.claimed[gigID] {
		return models.Booking{}, models.ErrGigUnavailable
	}
	s.claimed[gigID] = true
	return models.Booking{ID: gigID, TalentID: &talentID, Status: models.BookingStatusPending}, nil
}

func TestCreateBooking(t *testing.T) {
	stub := &stubBookings{}
	h := NewBookingHandler(stub, discard())

	body := `{"event_date":"2026-04-01T18:00:00Z","duration_minutes":180,"event_type":"wedding"}`
	rec := httptest.NewRecorder()
	h.CreateBooking(rec, asCaller(httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body)), "u1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var b models.Booking
	if err := json.NewDecoder(rec.Body).Decode(&b); err != nil || b.RequesterID != "u1" {
		t.Fatalf("unexpected body %+v (%v)", b, err)
	}

	rec = httptest.NewRecorder()
	h.CreateBooking(rec, asCaller(httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{"duration_minutes":0}`)), "u1"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.CreateBooking(rec, asCaller(httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{"bogus":1}`)), "u1"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.CreateBooking(rec, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without caller, got %d", rec.Code)
	}
}

func TestClaimGigConflict(t *testing.T) {
	h := NewBookingHandler(&stubBookings{claimed: map[string]bool{}}, discard())
	claim := func(talent string) int {
		req := withParam(httptest.NewRequest(http.MethodPost, "/gigs/g1/claim", nil), "id", "g1")
		rec := httptest.NewRecorder()
		h.ClaimGig(rec, asCaller(req, talent))
		return rec.Code
	}
	if code := claim("t1"); code != http.StatusOK {
		t.Fatalf("first claim: %d", code)
	}
	if code := claim("t2"); code != http.StatusConflict {
		t.Fatalf("second claim: %d", code)
	}
}

type stubInvoices struct {
	InvoiceAPI
	amount   int64
	currency string
}

func (s *stubInvoices) IssueManualInvoice(_ context.Context, bookingID, issuerID string, amount int64, currency string) (models.Payment, error) {
	if amount <= 0 {
		return models.Payment{}, models.NewValidationError("amount", "must be positive")
	}
	s.amount, s.currency = amount, currency
	return models.Payment{ID: "p1", BookingID: bookingID, TalentID: issuerID, TotalAmount: amount, Status: models.PaymentStatusPending}, nil
}

type stubCheckout struct{ err error }

func (s stubCheckout) StartCheckout(context.Context, string, string) (pay.CheckoutSession, error) {
	if s.err != nil {
		return pay.CheckoutSession{}, s.err
	}
	return pay.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"}, nil
}

func TestIssueManualInvoice(t *testing.T) {
	stub := &stubInvoices{}
	h := NewPaymentHandler(stub, stubCheckout{}, discard())
	req := withParam(httptest.NewRequest(http.MethodPost, "/bookings/b1/invoice/manual", strings.NewReader(`{"amount":20000,"currency":"USD"}`)), "id", "b1")
	rec := httptest.NewRecorder()
	h.IssueManualInvoice(rec, asCaller(req, "t1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	if stub.amount != 20000 || stub.currency != "USD" {
		t.Fatalf("unexpected call %d %s", stub.amount, stub.currency)
	}
}

func TestStartCheckoutStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"disabled", services.ErrCheckoutDisabled, http.StatusServiceUnavailable},
		{"provider", &pay.ProviderError{StatusCode: 400}, http.StatusBadGateway},
		{"settled", models.ErrInvalidTransition, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPaymentHandler(&stubInvoices{}, stubCheckout{err: tt.err}, discard())
			rec := httptest.NewRecorder()
			h.StartCheckout(rec, asCaller(httptest.NewRequest(http.MethodPost, "/payments/p1/checkout", nil), "b1"))
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

type stubWebhooks struct {
	signature string
	result    services.WebhookResult
	err       error
}

func (s *stubWebhooks) Handle(_ context.Context, _ []byte, signature string) (services.WebhookResult, error) {
	s.signature = signature
	return s.result, s.err
}

func TestPaymentWebhookStatuses(t *testing.T) {
	tests := []struct {
		name string
		stub *stubWebhooks
		want int
	}{
		{"handled", &stubWebhooks{result: services.WebhookResult{EventID: "evt_1", EventType: pay.EventCheckoutCompleted, Outcome: services.WebhookHandled}}, http.StatusOK},
		{"rejected completion", &stubWebhooks{result: services.WebhookResult{EventID: "evt_1", Outcome: services.WebhookRejected}}, http.StatusOK},
		{"bad signature", &stubWebhooks{err: fmt.Errorf("%w: mismatch", services.ErrWebhookSignature)}, http.StatusUnauthorized},
		{"malformed", &stubWebhooks{err: fmt.Errorf("%w: no id", services.ErrWebhookMalformed)}, http.StatusBadRequest},
		{"internal", &stubWebhooks{err: errors.New("db down")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewWebhookHandler(tt.stub, discard())
			req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(`{}`))
			req.Header.Set(pay.SignatureHeader, "t=1,v1=abc")
			rec := httptest.NewRecorder()
			h.PaymentWebhook(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.stub.signature != "t=1,v1=abc" {
				t.Fatalf("signature header not forwarded: %q", tt.stub.signature)
			}
		})
	}
}

type stubNotifications struct {
	NotificationAPI
	token string
}

func (s *stubNotifications) RegisterDevice(_ context.Context, _ string, token string) error {
	if token == "" {
		return models.NewValidationError("token", "is required")
	}
	s.token = token
	return nil
}

func TestRegisterDevice(t *testing.T) {
	stub := &stubNotifications{}
	h := NewNotificationHandler(stub, discard())
	rec := httptest.NewRecorder()
	h.RegisterDevice(rec, asCaller(httptest.NewRequest(http.MethodPost, "/devices", strings.NewReader(`{"token":"fcm-1"}`)), "u1"))
	if rec.Code != http.StatusCreated || stub.token != "fcm-1" {
		t.Fatalf("unexpected %d %q", rec.Code, stub.token)
	}
	rec = httptest.NewRecorder()
	h.RegisterDevice(rec, asCaller(httptest.NewRequest(http.MethodPost, "/devices", strings.NewReader(`{"token":""}`)), "u1"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}
