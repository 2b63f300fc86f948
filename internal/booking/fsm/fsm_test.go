package fsm

import (
	"testing"
	"time"

	"talentBack/internal/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{models.BookingStatusPending, models.BookingStatusApproved, true},
		{models.BookingStatusPending, models.BookingStatusDeclined, true},
		{models.BookingStatusPending, models.BookingStatusConfirmed, false},
		{models.BookingStatusApproved, models.BookingStatusApproved, true},
		{models.BookingStatusApproved, models.BookingStatusConfirmed, true},
		{models.BookingStatusApproved, models.BookingStatusDeclined, true},
		{models.BookingStatusApproved, models.BookingStatusCompleted, false},
		{models.BookingStatusConfirmed, models.BookingStatusCompleted, true},
		{models.BookingStatusConfirmed, models.BookingStatusDeclined, false},
		{models.BookingStatusCompleted, models.BookingStatusDeclined, false},
		{models.BookingStatusDeclined, models.BookingStatusPending, false},
		{models.BookingStatusDeclined, models.BookingStatusDeclined, false},
		{"unknown", models.BookingStatusApproved, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCanTransitionPayment(t *testing.T) {
	if !CanTransitionPayment(models.PaymentStatusPending, models.PaymentStatusCompleted) {
		t.Fatal("expected pending -> completed to be allowed")
	}
	if !CanTransitionPayment(models.PaymentStatusPending, models.PaymentStatusDeclined) {
		t.Fatal("expected pending -> declined to be allowed")
	}
	if CanTransitionPayment(models.PaymentStatusDeclined, models.PaymentStatusCompleted) {
		t.Fatal("declined payment must not complete")
	}
	if CanTransitionPayment(models.PaymentStatusCompleted, models.PaymentStatusCompleted) {
		t.Fatal("completed -> completed is not a transition")
	}
}

func TestTerminalStates(t *testing.T) {
	if !IsTerminal(models.BookingStatusCompleted) || !IsTerminal(models.BookingStatusDeclined) {
		t.Fatal("completed and declined must be terminal")
	}
	if IsTerminal(models.BookingStatusApproved) {
		t.Fatal("approved is not terminal")
	}
}

func TestCanComplete(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	b := models.Booking{Status: models.BookingStatusConfirmed, EventDate: now.Add(-time.Hour)}
	if !CanComplete(b, now) {
		t.Fatal("expected past confirmed booking to be completable")
	}
	b.EventDate = now.Add(time.Hour)
	if CanComplete(b, now) {
		t.Fatal("future event must not complete")
	}
	b.EventDate = now.Add(-time.Hour)
	b.Status = models.BookingStatusApproved
	if CanComplete(b, now) {
		t.Fatal("approved booking must not complete")
	}
}
