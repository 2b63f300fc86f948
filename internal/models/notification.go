package models

import "time"

// Notification kinds.
const (
	NoticeBookingCreated    = "booking_created"
	NoticeGigClaimed        = "gig_claimed"
	NoticeBookingDeclined   = "booking_declined"
	NoticeInvoiceIssued     = "invoice_issued"
	NoticePaymentDeclined   = "payment_declined"
	NoticePaymentFailed     = "payment_failed"
	NoticePaymentExpired    = "payment_expired"
	NoticeBookingConfirmed  = "booking_confirmed"
	NoticeBookingCompleted  = "booking_completed"
	NoticeApplicationNew    = "application_received"
	NoticeSubscriptionState = "subscription_changed"
)

// Notice is a unit of work for the notification dispatcher.
type Notice struct {
	UserID    string `json:"user_id"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	BookingID string `json:"booking_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
}

// Notification is a persisted in-app notice.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	BookingID string     `json:"booking_id,omitempty"`
	PaymentID string     `json:"payment_id,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// DeviceToken is a push delivery target registered by a client app.
type DeviceToken struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}
