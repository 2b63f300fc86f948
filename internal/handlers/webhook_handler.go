package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"talentBack/internal/booking/pay"
	"talentBack/internal/metrics"
	"talentBack/internal/services"
)

// WebhookAPI is implemented by services.WebhookService.
type WebhookAPI interface {
	Handle(ctx context.Context, body []byte, signature string) (services.WebhookResult, error)
}

// WebhookHandler receives provider deliveries. It answers 200 for handled,
// ignored, duplicate and rejected events, 400 for malformed payloads, 401 for
// bad signatures and 500 when the provider should retry.
type WebhookHandler struct {
	Service WebhookAPI
	Logger  *slog.Logger
}

func NewWebhookHandler(service WebhookAPI, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{Service: service, Logger: loggerOr(logger)}
}

func (h *WebhookHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		metrics.Webhook("unknown", http.StatusBadRequest)
		http.Error(w, "unable to read body", http.StatusBadRequest)
		return
	}

	res, err := h.Service.Handle(r.Context(), body, r.Header.Get(pay.SignatureHeader))
	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, services.ErrWebhookSignature):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrWebhookMalformed):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
		h.Logger.Error("webhook processing failed", "event_id", res.EventID, "event_type", res.EventType, "err", err)
	}

	eventType := res.EventType
	if eventType == "" {
		eventType = "unknown"
	}
	metrics.Webhook(eventType, status)

	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"event_id": res.EventID,
		"outcome":  string(res.Outcome),
	})
}
