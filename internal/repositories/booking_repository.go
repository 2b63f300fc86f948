package repositories

import (
	"context"
	"database/sql"
	"time"

	"talentBack/internal/models"
)

const bookingColumns = `id, requester_id, talent_id, status, is_gig_opportunity, is_public_request, payment_id,
event_date, duration_minutes, location, event_type, description, created_at, updated_at`

type BookingRepository struct {
	DB *DB
}

func scanBooking(s scanner) (models.Booking, error) {
	var (
		b         models.Booking
		talentID  sql.NullString
		paymentID sql.NullString
	)
	err := s.Scan(&b.ID, &b.RequesterID, &talentID, &b.Status, &b.IsGigOpportunity, &b.IsPublicRequest, &paymentID,
		&b.EventDate, &b.DurationMinutes, &b.Location, &b.EventType, &b.Description, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return models.Booking{}, err
	}
	b.TalentID = stringPtr(talentID)
	b.PaymentID = stringPtr(paymentID)
	return b, nil
}

func scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	defer rows.Close()
	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BookingRepository) CreateBooking(ctx context.Context, b models.Booking) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO bookings (`+bookingColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.ID, b.RequesterID, b.TalentID, b.Status, b.IsGigOpportunity, b.IsPublicRequest, b.PaymentID,
		b.EventDate, b.DurationMinutes, b.Location, b.EventType, b.Description, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *BookingRepository) GetBooking(ctx context.Context, id string) (models.Booking, error) {
	b, err := scanBooking(r.DB.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		return models.Booking{}, notFound(err)
	}
	return b, nil
}

// ListBookingsForUser returns bookings the user requested or performs in, newest first.
func (r *BookingRepository) ListBookingsForUser(ctx context.Context, userID string) ([]models.Booking, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings
WHERE requester_id = ? OR talent_id = ? ORDER BY created_at DESC`, userID, userID)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// ListOpenGigs returns unclaimed public gig opportunities.
func (r *BookingRepository) ListOpenGigs(ctx context.Context, limit int) ([]models.Booking, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings
WHERE status = 'pending' AND is_gig_opportunity = TRUE AND is_public_request = TRUE AND talent_id IS NULL
ORDER BY event_date ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// ClaimGig assigns talentID to an unclaimed gig in one conditional write. It
// reports false when another talent got there first.
func (r *BookingRepository) ClaimGig(ctx context.Context, gigID, talentID string, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE bookings SET talent_id = ?, updated_at = ?
WHERE id = ? AND talent_id IS NULL AND status = 'pending' AND is_gig_opportunity = TRUE AND is_public_request = TRUE`,
		talentID, now, gigID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeclineBooking moves a pending or approved booking to declined and, in the
// same transaction, declines its pending payment and open applications.
func (r *BookingRepository) DeclineBooking(ctx context.Context, id string, now time.Time) error {
	return r.DB.WithTx(ctx, func(tx *Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE bookings SET status = 'declined', updated_at = ?
WHERE id = ? AND status IN ('pending', 'approved')`, now, id)
		if err != nil {
			return err
		}
		if err := requireAffected(res, models.ErrInvalidTransition); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE payments SET status = 'declined', declined_at = ?
WHERE booking_id = ? AND status = 'pending'`, now, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE gig_applications SET status = 'declined', updated_at = ?
WHERE gig_id = ? AND status IN ('interested', 'invoice_sent')`, now, id)
		return err
	})
}

// CompleteBooking moves a confirmed booking whose event date has passed to completed.
func (r *BookingRepository) CompleteBooking(ctx context.Context, id string, now time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE bookings SET status = 'completed', updated_at = ?
WHERE id = ? AND status = 'confirmed' AND event_date < ?`, now, id, now)
	if err != nil {
		return err
	}
	return requireAffected(res, models.ErrInvalidTransition)
}

// ListPastConfirmed returns confirmed bookings whose event date is before now.
func (r *BookingRepository) ListPastConfirmed(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings
WHERE status = 'confirmed' AND event_date < ? ORDER BY event_date ASC LIMIT ?`, now, limit)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}
