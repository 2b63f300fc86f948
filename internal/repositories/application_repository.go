package repositories

import (
	"context"
	"database/sql"
	"time"

	"talentBack/internal/models"
)

type ApplicationRepository struct {
	DB *DB
}

const applicationColumns = `id, gig_id, talent_id, status, created_at, updated_at`

func scanApplication(s scanner) (models.GigApplication, error) {
	var a models.GigApplication
	err := s.Scan(&a.ID, &a.GigID, &a.TalentID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// CreateApplication inserts an application; a second application by the same
// talent for the same gig returns models.ErrDuplicate.
func (r *ApplicationRepository) CreateApplication(ctx context.Context, a models.GigApplication) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO gig_applications (`+applicationColumns+`) VALUES (?,?,?,?,?,?)`,
		a.ID, a.GigID, a.TalentID, a.Status, a.CreatedAt, a.UpdatedAt)
	if isUniqueViolation(err) {
		return models.ErrDuplicate
	}
	return err
}

func (r *ApplicationRepository) GetApplication(ctx context.Context, gigID, talentID string) (models.GigApplication, error) {
	a, err := scanApplication(r.DB.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM gig_applications
WHERE gig_id = ? AND talent_id = ?`, gigID, talentID))
	if err != nil {
		return models.GigApplication{}, notFound(err)
	}
	return a, nil
}

func (r *ApplicationRepository) ListApplications(ctx context.Context, gigID string) ([]models.GigApplication, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+applicationColumns+` FROM gig_applications
WHERE gig_id = ? ORDER BY created_at ASC`, gigID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.GigApplication
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// WithdrawApplication declines an application that has not yet been invoiced.
func (r *ApplicationRepository) WithdrawApplication(ctx context.Context, gigID, talentID string, now time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE gig_applications SET status = 'declined', updated_at = ?
WHERE gig_id = ? AND talent_id = ? AND status = 'interested'`, now, gigID, talentID)
	if err != nil {
		return err
	}
	return requireAffected(res, models.ErrInvalidTransition)
}

// invoiceSentTalent returns the talent whose application carries the gig's
// outstanding invoice, if any.
func invoiceSentTalent(ctx context.Context, tx *Tx, gigID string) (string, error) {
	var talentID string
	err := tx.QueryRowContext(ctx, `SELECT talent_id FROM gig_applications
WHERE gig_id = ? AND status = 'invoice_sent' ORDER BY updated_at DESC LIMIT 1`, gigID).Scan(&talentID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return talentID, err
}
