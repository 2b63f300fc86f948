package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"talentBack/internal/booking/pay"
	"talentBack/internal/models"
)

var (
	// ErrWebhookSignature means the delivery failed verification; nothing was touched.
	ErrWebhookSignature = errors.New("webhook signature verification failed")
	// ErrWebhookMalformed means the delivery was signed but could not be decoded.
	ErrWebhookMalformed = errors.New("webhook payload malformed")
)

// WebhookOutcome describes what happened to a verified delivery.
type WebhookOutcome string

const (
	WebhookHandled   WebhookOutcome = "handled"
	WebhookIgnored   WebhookOutcome = "ignored"
	WebhookDuplicate WebhookOutcome = "duplicate"
	WebhookRejected  WebhookOutcome = "rejected"
)

// Archiver stores raw verified payloads outside the database.
type Archiver interface {
	Archive(ctx context.Context, key string, body []byte) error
}

type WebhookService struct {
	Provider   string
	Secret     string
	Tolerance  time.Duration
	Webhooks   WebhookStore
	Settlement *SettlementService
	Profiles   ProfileStore
	Archive    Archiver
	Notifier   Notifier
	Logger     *slog.Logger
	Now        func() time.Time
}

func NewWebhookService(provider, secret string, tolerance time.Duration, webhooks WebhookStore, settlement *SettlementService,
	profiles ProfileStore, archive Archiver, notifier Notifier, logger *slog.Logger) *WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{
		Provider:   provider,
		Secret:     secret,
		Tolerance:  tolerance,
		Webhooks:   webhooks,
		Settlement: settlement,
		Profiles:   profiles,
		Archive:    archive,
		Notifier:   notifierOrNop(notifier),
		Logger:     logger,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// WebhookResult reports the handling of one delivery.
type WebhookResult struct {
	EventID   string
	EventType string
	Outcome   WebhookOutcome
}

// Handle verifies, records and applies one provider delivery. Errors wrapping
// ErrWebhookSignature or ErrWebhookMalformed are the caller's fault; any other
// error is internal and the provider should retry.
func (s *WebhookService) Handle(ctx context.Context, body []byte, signature string) (WebhookResult, error) {
	logger := s.Logger.With("op", "HandleWebhook")
	now := s.Now()

	if err := pay.VerifySignature(body, signature, s.Secret, s.Tolerance, now); err != nil {
		logger.Warn("webhook signature rejected", "err", err)
		return WebhookResult{}, fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}
	ev, err := pay.ParseEvent(body)
	if err != nil {
		logger.Warn("webhook payload rejected", "err", err)
		return WebhookResult{}, fmt.Errorf("%w: %v", ErrWebhookMalformed, err)
	}
	env := ev.Envelope()
	result := WebhookResult{EventID: env.ID, EventType: env.Type}
	logger = logger.With("event_id", env.ID, "event_type", env.Type)

	inserted, err := s.Webhooks.RecordWebhook(ctx, models.WebhookEvent{
		ID:              uuid.NewString(),
		Provider:        s.Provider,
		ProviderEventID: env.ID,
		EventType:       env.Type,
		SignatureValid:  true,
		Payload:         body,
		CreatedAt:       now,
	})
	if err != nil {
		return result, fmt.Errorf("record webhook: %w", err)
	}
	if !inserted {
		done, err := s.Webhooks.WebhookProcessed(ctx, s.Provider, env.ID)
		if err != nil {
			return result, fmt.Errorf("lookup webhook: %w", err)
		}
		if done {
			result.Outcome = WebhookDuplicate
			return result, nil
		}
	} else if s.Archive != nil {
		key := fmt.Sprintf("%s/%s/%s.json", s.Provider, now.Format("2006/01/02"), env.ID)
		if err := s.Archive.Archive(ctx, key, body); err != nil {
			logger.Warn("webhook archive failed", "err", err)
		}
	}

	outcome, procErr := s.apply(ctx, logger, ev)
	result.Outcome = outcome

	if procErr != nil && outcome != WebhookRejected {
		if err := s.Webhooks.MarkWebhookFailed(ctx, s.Provider, env.ID, procErr.Error()); err != nil {
			logger.Error("mark webhook failed", "err", err)
		}
		return result, procErr
	}
	var procMsg string
	if procErr != nil {
		procMsg = procErr.Error()
	}
	if err := s.Webhooks.MarkWebhookProcessed(ctx, s.Provider, env.ID, procMsg, now); err != nil {
		logger.Error("mark webhook processed failed", "err", err)
	}
	return result, nil
}

func (s *WebhookService) apply(ctx context.Context, logger *slog.Logger, ev pay.Event) (WebhookOutcome, error) {
	switch e := ev.(type) {
	case pay.CheckoutCompleted:
		res, err := s.Settlement.Settle(ctx, SettleRequest{PaymentID: e.PaymentID, Amount: e.AmountTotal, Currency: e.Currency})
		switch {
		case err == nil:
			if res.AlreadySettled {
				return WebhookDuplicate, nil
			}
			return WebhookHandled, nil
		case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, ErrAmountMismatch), errors.Is(err, models.ErrNotFound):
			logger.Error("checkout completion rejected; manual refund required",
				"payment_id", e.PaymentID, "session_id", e.SessionID, "err", err)
			return WebhookRejected, err
		default:
			return WebhookHandled, fmt.Errorf("settle payment %s: %w", e.PaymentID, err)
		}

	case pay.PaymentFailed:
		recorded, err := s.Settlement.RecordPaymentFailure(ctx, e.PaymentID, e.Reason)
		if errors.Is(err, models.ErrNotFound) {
			logger.Warn("payment failure for unknown payment", "payment_id", e.PaymentID)
			return WebhookIgnored, nil
		}
		if err != nil {
			return WebhookHandled, fmt.Errorf("record payment failure %s: %w", e.PaymentID, err)
		}
		if !recorded {
			return WebhookIgnored, nil
		}
		return WebhookHandled, nil

	case pay.SubscriptionChanged:
		changedAt := e.Created
		if changedAt.IsZero() {
			changedAt = s.Now()
		}
		applied, err := s.Profiles.SetPro(ctx, e.UserID, e.Active, changedAt, s.Now())
		if errors.Is(err, models.ErrNotFound) {
			logger.Warn("subscription change for unknown talent", "user_id", e.UserID)
			return WebhookIgnored, nil
		}
		if err != nil {
			return WebhookHandled, fmt.Errorf("set pro for %s: %w", e.UserID, err)
		}
		if !applied {
			logger.Info("stale subscription change ignored", "user_id", e.UserID, "event_created", changedAt)
			return WebhookIgnored, nil
		}
		title, body := "Pro subscription cancelled", "Your standard commission rate applies to new invoices"
		if e.Active {
			title, body = "Pro subscription active", "Your reduced commission rate applies to new invoices"
		}
		s.Notifier.Notify(models.Notice{UserID: e.UserID, Kind: models.NoticeSubscriptionState, Title: title, Body: body})
		return WebhookHandled, nil

	default:
		logger.Debug("webhook event ignored")
		return WebhookIgnored, nil
	}
}
