package models

import "time"

// Booking statuses.
const (
	BookingStatusPending   = "pending"
	BookingStatusApproved  = "approved"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusDeclined  = "declined"
)

// Booking is a requested or posted event. TalentID stays nil only while a gig
// opportunity is pending and unclaimed.
type Booking struct {
	ID               string    `json:"id"`
	RequesterID      string    `json:"requester_id"`
	TalentID         *string   `json:"talent_id,omitempty"`
	Status           string    `json:"status"`
	IsGigOpportunity bool      `json:"is_gig_opportunity"`
	IsPublicRequest  bool      `json:"is_public_request"`
	PaymentID        *string   `json:"payment_id,omitempty"`
	EventDate        time.Time `json:"event_date"`
	DurationMinutes  int       `json:"duration_minutes"`
	Location         string    `json:"location"`
	EventType        string    `json:"event_type"`
	Description      string    `json:"description"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasTalent reports whether a talent is assigned to the booking.
func (b Booking) HasTalent() bool {
	return b.TalentID != nil && *b.TalentID != ""
}

// IsParty reports whether userID is the requester or the assigned talent.
func (b Booking) IsParty(userID string) bool {
	if userID == "" {
		return false
	}
	return b.RequesterID == userID || (b.HasTalent() && *b.TalentID == userID)
}

// CreateBookingRequest is the payload accepted when a booker creates a booking.
type CreateBookingRequest struct {
	TalentID         *string   `json:"talent_id,omitempty"`
	IsGigOpportunity bool      `json:"is_gig_opportunity"`
	IsPublicRequest  bool      `json:"is_public_request"`
	EventDate        time.Time `json:"event_date"`
	DurationMinutes  int       `json:"duration_minutes"`
	Location         string    `json:"location"`
	EventType        string    `json:"event_type"`
	Description      string    `json:"description"`
}
