package repositories

import (
	"context"
	"database/sql"
	"time"

	"talentBack/internal/models"
)

type ProfileRepository struct {
	DB *DB
}

func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (models.TalentProfile, error) {
	var p models.TalentProfile
	var changedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, `SELECT user_id, hourly_rate, currency, is_pro, pro_changed_at, updated_at
FROM talent_profiles WHERE user_id = ?`, userID).Scan(&p.UserID, &p.HourlyRate, &p.Currency, &p.IsPro, &changedAt, &p.UpdatedAt)
	if err != nil {
		return models.TalentProfile{}, notFound(err)
	}
	if changedAt.Valid {
		t := changedAt.Time
		p.ProChangedAt = &t
	}
	return p, nil
}

// SetPro flips the subscriber flag when changedAt is not older than the
// event that set it last. It reports false for a stale event and
// models.ErrNotFound when the user has no profile; rows are never created here.
func (r *ProfileRepository) SetPro(ctx context.Context, userID string, isPro bool, changedAt, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE talent_profiles SET is_pro = ?, pro_changed_at = ?, updated_at = ?
WHERE user_id = ? AND (pro_changed_at IS NULL OR pro_changed_at <= ?)`, isPro, changedAt, now, userID, changedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	var exists int
	if err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM talent_profiles WHERE user_id = ?`, userID).Scan(&exists); err != nil {
		return false, notFound(err)
	}
	return false, nil
}
