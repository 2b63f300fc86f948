// Package fsm holds the booking and payment transition tables.
package fsm

import (
	"time"

	"talentBack/internal/models"
)

var bookingTransitions = map[string]map[string]struct{}{
	models.BookingStatusPending: {
		models.BookingStatusApproved: {},
		models.BookingStatusDeclined: {},
	},
	models.BookingStatusApproved: {
		models.BookingStatusConfirmed: {},
		models.BookingStatusDeclined:  {},
	},
	models.BookingStatusConfirmed: {
		models.BookingStatusCompleted: {},
	},
	models.BookingStatusCompleted: {},
	models.BookingStatusDeclined:  {},
}

var paymentTransitions = map[string]map[string]struct{}{
	models.PaymentStatusPending: {
		models.PaymentStatusCompleted: {},
		models.PaymentStatusDeclined:  {},
	},
	models.PaymentStatusCompleted: {},
	models.PaymentStatusDeclined:  {},
}

// CanTransition reports whether a booking may move from one status to another.
// Re-invoicing keeps an approved booking approved, so approved -> approved is allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return from == models.BookingStatusApproved
	}
	return allowed(bookingTransitions, from, to)
}

// CanTransitionPayment reports whether a payment may move between statuses.
func CanTransitionPayment(from, to string) bool {
	if from == to {
		return false
	}
	return allowed(paymentTransitions, from, to)
}

// IsTerminal reports whether no further booking transitions exist.
func IsTerminal(status string) bool {
	next, ok := bookingTransitions[status]
	return ok && len(next) == 0
}

// CanComplete applies the confirmed -> completed guard: the event must be over.
func CanComplete(b models.Booking, now time.Time) bool {
	return b.Status == models.BookingStatusConfirmed && b.EventDate.Before(now)
}

// CanInvoice reports whether an invoice may be issued for a booking in status.
func CanInvoice(status string) bool {
	return CanTransition(status, models.BookingStatusApproved)
}

func allowed(table map[string]map[string]struct{}, from, to string) bool {
	next, ok := table[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}
