package models

import "time"

// Payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusDeclined  = "declined"
)

// Invoice modes.
const (
	InvoiceModeRate   = "rate"
	InvoiceModeManual = "manual"
)

// Payment is the invoice issued for a booking. Amounts are in minor currency
// units and PlatformCommission+TalentEarnings always equals TotalAmount.
type Payment struct {
	ID                 string     `json:"id"`
	BookingID          string     `json:"booking_id"`
	BookerID           string     `json:"booker_id"`
	TalentID           string     `json:"talent_id"`
	TotalAmount        int64      `json:"total_amount"`
	Currency           string     `json:"currency"`
	CommissionRate     int        `json:"commission_rate"`
	PlatformCommission int64      `json:"platform_commission"`
	TalentEarnings     int64      `json:"talent_earnings"`
	Status             string     `json:"payment_status"`
	Mode               string     `json:"mode"`
	CheckoutSessionID  string     `json:"checkout_session_id,omitempty"`
	FailureReason      string     `json:"failure_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	DeclinedAt         *time.Time `json:"declined_at,omitempty"`
}

// InvoiceRequest describes an invoice issuance. Amount is nil in rate mode.
type InvoiceRequest struct {
	BookingID string
	IssuerID  string
	Amount    *int64
	Currency  string
	Mode      string
}

// SettlementResult describes the outcome of a settlement attempt.
type SettlementResult struct {
	Payment        Payment `json:"payment"`
	Booking        Booking `json:"booking"`
	TalentID       string  `json:"talent_id"`
	AlreadySettled bool    `json:"already_settled"`
}
