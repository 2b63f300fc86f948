package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"talentBack/internal/models"
)

type PaymentRepository struct {
	DB *DB
}

const paymentColumns = `id, booking_id, booker_id, talent_id, total_amount, currency, commission_rate,
platform_commission, talent_earnings, status, mode, checkout_session_id, failure_reason,
created_at, completed_at, declined_at`

func scanPayment(s scanner) (models.Payment, error) {
	var (
		p                   models.Payment
		session, reason     sql.NullString
		completed, declined sql.NullTime
	)
	err := s.Scan(&p.ID, &p.BookingID, &p.BookerID, &p.TalentID, &p.TotalAmount, &p.Currency, &p.CommissionRate,
		&p.PlatformCommission, &p.TalentEarnings, &p.Status, &p.Mode, &session, &reason,
		&p.CreatedAt, &completed, &declined)
	if err != nil {
		return models.Payment{}, err
	}
	p.CheckoutSessionID = nullString(session)
	p.FailureReason = nullString(reason)
	p.CompletedAt = timePtr(completed)
	p.DeclinedAt = timePtr(declined)
	return p, nil
}

func (r *PaymentRepository) GetPayment(ctx context.Context, id string) (models.Payment, error) {
	p, err := scanPayment(r.DB.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if err != nil {
		return models.Payment{}, notFound(err)
	}
	return p, nil
}

func (r *PaymentRepository) HasCompletedPayment(ctx context.Context, bookingID string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE booking_id = ? AND status = 'completed'`, bookingID).Scan(&n)
	return n > 0, err
}

// IssueParams describes one invoice issuance.
type IssueParams struct {
	Payment models.Payment
	// ClaimGig is set when issuance also claims an unclaimed gig for the
	// issuing applicant.
	ClaimGig bool
	Now      time.Time
}

// IssueInvoice supersedes any pending payment of the booking, inserts the new
// pending payment and moves the booking to approved, all in one transaction.
func (r *PaymentRepository) IssueInvoice(ctx context.Context, params IssueParams) error {
	p := params.Payment
	now := params.Now
	return r.DB.WithTx(ctx, func(tx *Tx) error {
		if params.ClaimGig {
			res, err := tx.ExecContext(ctx, `UPDATE bookings SET talent_id = ?, updated_at = ?
WHERE id = ? AND talent_id IS NULL AND status = 'pending' AND is_gig_opportunity = TRUE`, p.TalentID, now, p.BookingID)
			if err != nil {
				return err
			}
			if err := requireAffected(res, models.ErrGigUnavailable); err != nil {
				return err
			}
			res, err = tx.ExecContext(ctx, `UPDATE gig_applications SET status = 'invoice_sent', updated_at = ?
WHERE gig_id = ? AND talent_id = ? AND status = 'interested'`, now, p.BookingID, p.TalentID)
			if err != nil {
				return err
			}
			if err := requireAffected(res, models.ErrForbidden); err != nil {
				return err
			}
		}

		var completed int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE booking_id = ? AND status = 'completed'`,
			p.BookingID).Scan(&completed); err != nil {
			return err
		}
		if completed > 0 {
			return models.ErrAlreadyPaid
		}

		if _, err := tx.ExecContext(ctx, `UPDATE payments SET status = 'declined', declined_at = ?
WHERE booking_id = ? AND status = 'pending'`, now, p.BookingID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO payments (`+paymentColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			p.ID, p.BookingID, p.BookerID, p.TalentID, p.TotalAmount, p.Currency, p.CommissionRate,
			p.PlatformCommission, p.TalentEarnings, p.Status, p.Mode, nil, nil,
			p.CreatedAt, nil, nil); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `UPDATE bookings SET status = 'approved', payment_id = ?, updated_at = ?
WHERE id = ? AND status IN ('pending', 'approved') AND talent_id = ?`, p.ID, now, p.BookingID, p.TalentID)
		if err != nil {
			return err
		}
		return requireAffected(res, models.ErrInvalidTransition)
	})
}

// DeclinePayment moves a pending payment to declined. The booking is untouched.
func (r *PaymentRepository) DeclinePayment(ctx context.Context, id string, now time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE payments SET status = 'declined', declined_at = ?
WHERE id = ? AND status = 'pending'`, now, id)
	if err != nil {
		return err
	}
	return requireAffected(res, models.ErrInvalidTransition)
}

// SettlePayment completes a pending payment and confirms its booking in one
// transaction. A payment that is already completed yields AlreadySettled with
// nothing written.
func (r *PaymentRepository) SettlePayment(ctx context.Context, paymentID string, now time.Time) (models.SettlementResult, error) {
	var result models.SettlementResult
	err := r.DB.WithTx(ctx, func(tx *Tx) error {
		p, err := scanPayment(tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ? FOR UPDATE`, paymentID))
		if err != nil {
			return notFound(err)
		}
		if p.Status == models.PaymentStatusCompleted {
			result.Payment = p
			result.AlreadySettled = true
			return nil
		}

		res, err := tx.ExecContext(ctx, `UPDATE payments SET status = 'completed', completed_at = ?
WHERE id = ? AND status = 'pending'`, now, paymentID)
		if err != nil {
			return err
		}
		if err := requireAffected(res, fmt.Errorf("payment %s is %s: %w", paymentID, p.Status, models.ErrInvalidTransition)); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx, `UPDATE bookings SET status = 'confirmed', updated_at = ?
WHERE id = ? AND status = 'approved' AND payment_id = ?`, now, p.BookingID, paymentID)
		if err != nil {
			return err
		}
		if err := requireAffected(res, fmt.Errorf("booking %s not awaiting payment %s: %w", p.BookingID, paymentID, models.ErrInvalidTransition)); err != nil {
			return err
		}

		b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, p.BookingID))
		if err != nil {
			return notFound(err)
		}

		talentID := ""
		if b.HasTalent() {
			talentID = *b.TalentID
		} else if b.IsGigOpportunity {
			if talentID, err = invoiceSentTalent(ctx, tx, b.ID); err != nil {
				return err
			}
		}
		if talentID == "" {
			talentID = p.TalentID
		}

		if b.IsGigOpportunity {
			if _, err := tx.ExecContext(ctx, `UPDATE gig_applications SET status = 'confirmed', updated_at = ?
WHERE gig_id = ? AND talent_id = ? AND status IN ('interested', 'invoice_sent')`, now, b.ID, talentID); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE gig_applications SET status = 'declined', updated_at = ?
WHERE gig_id = ? AND talent_id <> ? AND status IN ('interested', 'invoice_sent')`, now, b.ID, talentID); err != nil {
				return err
			}
		}

		p.Status = models.PaymentStatusCompleted
		completedAt := now
		p.CompletedAt = &completedAt
		b.Status = models.BookingStatusConfirmed
		b.UpdatedAt = now
		result = models.SettlementResult{Payment: p, Booking: b, TalentID: talentID}
		return nil
	})
	if err != nil {
		return models.SettlementResult{}, err
	}
	return result, nil
}

// RecordFailure stores the provider's failure reason on a pending payment. It
// reports false when the payment is no longer pending.
func (r *PaymentRepository) RecordFailure(ctx context.Context, id, reason string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE payments SET failure_reason = ? WHERE id = ? AND status = 'pending'`, reason, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *PaymentRepository) SetCheckoutSession(ctx context.Context, id, sessionID string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE payments SET checkout_session_id = ? WHERE id = ? AND status = 'pending'`, sessionID, id)
	if err != nil {
		return err
	}
	return requireAffected(res, models.ErrInvalidTransition)
}

// ListStalePending returns pending payments created before cutoff.
func (r *PaymentRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments
WHERE status = 'pending' AND created_at < ? ORDER BY created_at ASC LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
