package repositories

import (
	"context"
	"time"

	"talentBack/internal/models"
)

type WebhookRepository struct {
	DB *DB
}

// RecordWebhook appends a delivery to the audit log. It reports false when the
// provider event id was already recorded.
func (r *WebhookRepository) RecordWebhook(ctx context.Context, ev models.WebhookEvent) (bool, error) {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO webhook_events
(id, provider, provider_event_id, event_type, signature_valid, payload, created_at)
VALUES (?,?,?,?,?,?,?)`, ev.ID, ev.Provider, ev.ProviderEventID, ev.EventType, ev.SignatureValid, ev.Payload, ev.CreatedAt)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// WebhookProcessed reports whether a recorded event reached a final outcome.
func (r *WebhookRepository) WebhookProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM webhook_events
WHERE provider = ? AND provider_event_id = ? AND processed_at IS NOT NULL`,
		provider, eventID).Scan(&n)
	return n > 0, err
}

// MarkWebhookProcessed stamps the final outcome of an event. procErr is kept
// for events that were rejected rather than applied.
func (r *WebhookRepository) MarkWebhookProcessed(ctx context.Context, provider, eventID, procErr string, now time.Time) error {
	var errVal any
	if procErr != "" {
		errVal = procErr
	}
	_, err := r.DB.ExecContext(ctx, `UPDATE webhook_events SET processed_at = ?, processing_error = ?
WHERE provider = ? AND provider_event_id = ?`, now, errVal, provider, eventID)
	return err
}

// MarkWebhookFailed records an internal failure and leaves the event open for
// the provider's retry.
func (r *WebhookRepository) MarkWebhookFailed(ctx context.Context, provider, eventID, procErr string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE webhook_events SET processing_error = ?
WHERE provider = ? AND provider_event_id = ?`, procErr, provider, eventID)
	return err
}
