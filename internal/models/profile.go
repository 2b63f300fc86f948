package models

import "time"

// TalentProfile holds the pricing facts read at invoice issuance.
type TalentProfile struct {
	UserID     string `json:"user_id"`
	HourlyRate int64  `json:"hourly_rate"`
	Currency   string `json:"currency"`
	IsPro      bool   `json:"is_pro"`
	// ProChangedAt is the provider timestamp of the subscription event that
	// last set IsPro. Older events never override it.
	ProChangedAt *time.Time `json:"pro_changed_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
