package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"talentBack/internal/booking/pay"
	"talentBack/internal/models"
)

// InvoiceAPI is implemented by services.InvoiceService.
type InvoiceAPI interface {
	IssueRateInvoice(ctx context.Context, bookingID, issuerID string) (models.Payment, error)
	IssueManualInvoice(ctx context.Context, bookingID, issuerID string, amount int64, currency string) (models.Payment, error)
	GetPayment(ctx context.Context, paymentID, userID string) (models.Payment, error)
	DeclinePayment(ctx context.Context, paymentID, actorID string) (models.Payment, error)
}

// CheckoutAPI is implemented by services.CheckoutService.
type CheckoutAPI interface {
	StartCheckout(ctx context.Context, paymentID, bookerID string) (pay.CheckoutSession, error)
}

type PaymentHandler struct {
	Invoices InvoiceAPI
	Checkout CheckoutAPI
	Logger   *slog.Logger
}

func NewPaymentHandler(invoices InvoiceAPI, checkout CheckoutAPI, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{Invoices: invoices, Checkout: checkout, Logger: loggerOr(logger)}
}

func (h *PaymentHandler) IssueRateInvoice(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	p, err := h.Invoices.IssueRateInvoice(r.Context(), getParam(r, "id"), userID)
	if err != nil {
		respondError(w, h.Logger, "IssueRateInvoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *PaymentHandler) IssueManualInvoice(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.Invoices.IssueManualInvoice(r.Context(), getParam(r, "id"), userID, req.Amount, req.Currency)
	if err != nil {
		respondError(w, h.Logger, "IssueManualInvoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	p, err := h.Invoices.GetPayment(r.Context(), getParam(r, "id"), userID)
	if err != nil {
		respondError(w, h.Logger, "GetPayment", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PaymentHandler) DeclinePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	p, err := h.Invoices.DeclinePayment(r.Context(), getParam(r, "id"), userID)
	if err != nil {
		respondError(w, h.Logger, "DeclinePayment", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PaymentHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	session, err := h.Checkout.StartCheckout(r.Context(), getParam(r, "id"), userID)
	if err != nil {
		respondError(w, h.Logger, "StartCheckout", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id":   session.ID,
		"checkout_url": session.URL,
	})
}
