package models

import "time"

// Gig application statuses.
const (
	ApplicationStatusInterested  = "interested"
	ApplicationStatusInvoiceSent = "invoice_sent"
	ApplicationStatusConfirmed   = "confirmed"
	ApplicationStatusDeclined    = "declined"
)

// GigApplication records a talent's interest in a multi-applicant public gig.
type GigApplication struct {
	ID        string    `json:"id"`
	GigID     string    `json:"gig_id"`
	TalentID  string    `json:"talent_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
