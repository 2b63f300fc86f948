package repositories

import (
	"context"
	"database/sql"
	"time"

	"talentBack/internal/models"
)

type NotificationRepository struct {
	DB *DB
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *NotificationRepository) InsertNotification(ctx context.Context, n models.Notification) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO notifications
(id, user_id, kind, title, body, booking_id, payment_id, created_at) VALUES (?,?,?,?,?,?,?,?)`,
		n.ID, n.UserID, n.Kind, n.Title, n.Body, optional(n.BookingID), optional(n.PaymentID), n.CreatedAt)
	return err
}

func (r *NotificationRepository) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, user_id, kind, title, body, booking_id, payment_id, read_at, created_at
FROM notifications WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var (
			n                    models.Notification
			bookingID, paymentID sql.NullString
			readAt               sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &bookingID, &paymentID, &readAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.BookingID = nullString(bookingID)
		n.PaymentID = nullString(paymentID)
		n.ReadAt = timePtr(readAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead stamps read_at on the caller's own notification.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string, now time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET read_at = ? WHERE id = ? AND user_id = ? AND read_at IS NULL`, now, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE id = ? AND user_id = ?`, id, userID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return models.ErrNotFound
		}
	}
	return nil
}

func (r *NotificationRepository) RegisterDevice(ctx context.Context, d models.DeviceToken) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO device_tokens (user_id, token, created_at) VALUES (?,?,?)`, d.UserID, d.Token, d.CreatedAt)
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

func (r *NotificationRepository) ListDeviceTokens(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT token FROM device_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *NotificationRepository) DeleteDeviceToken(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM device_tokens WHERE token = ?`, token)
	return err
}
