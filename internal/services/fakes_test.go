package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"talentBack/internal/models"
	"talentBack/internal/repositories"
)

// memStore mirrors the repositories' conditional-write semantics under one
// mutex, which plays the role of the database's row locks.
type memStore struct {
	mu            sync.Mutex
	bookings      map[string]models.Booking
	apps          map[string]models.GigApplication
	payments      map[string]models.Payment
	profiles      map[string]models.TalentProfile
	webhooks      map[string]*models.WebhookEvent
	notifications []models.Notification
	devices       map[string][]string

	settleCalls int
	failWrites  error
}

func newMemStore() *memStore {
	return &memStore{
		bookings: map[string]models.Booking{},
		apps:     map[string]models.GigApplication{},
		payments: map[string]models.Payment{},
		profiles: map[string]models.TalentProfile{},
		webhooks: map[string]*models.WebhookEvent{},
		devices:  map[string][]string{},
	}
}

func appKey(gigID, talentID string) string { return gigID + "/" + talentID }

func strPtr(s string) *string { return &s }

// bookings

func (m *memStore) CreateBooking(_ context.Context, b models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b
	return nil
}

func (m *memStore) GetBooking(_ context.Context, id string) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return models.Booking{}, models.ErrNotFound
	}
	return b, nil
}

func (m *memStore) ListBookingsForUser(_ context.Context, userID string) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.IsParty(userID) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) ListOpenGigs(_ context.Context, limit int) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if isOpenGig(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventDate.Before(out[j].EventDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ClaimGig(_ context.Context, gigID, talentID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[gigID]
	if !ok || b.HasTalent() || b.Status != models.BookingStatusPending || !b.IsGigOpportunity || !b.IsPublicRequest {
		return false, nil
	}
	b.TalentID = strPtr(talentID)
	b.UpdatedAt = now
	m.bookings[gigID] = b
	return true, nil
}

func (m *memStore) DeclineBooking(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || (b.Status != models.BookingStatusPending && b.Status != models.BookingStatusApproved) {
		return models.ErrInvalidTransition
	}
	b.Status = models.BookingStatusDeclined
	b.UpdatedAt = now
	m.bookings[id] = b
	for pid, p := range m.payments {
		if p.BookingID == id && p.Status == models.PaymentStatusPending {
			p.Status = models.PaymentStatusDeclined
			p.DeclinedAt = &now
			m.payments[pid] = p
		}
	}
	for k, a := range m.apps {
		if a.GigID == id && (a.Status == models.ApplicationStatusInterested || a.Status == models.ApplicationStatusInvoiceSent) {
			a.Status = models.ApplicationStatusDeclined
			m.apps[k] = a
		}
	}
	return nil
}

func (m *memStore) CompleteBooking(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != models.BookingStatusConfirmed || !b.EventDate.Before(now) {
		return models.ErrInvalidTransition
	}
	b.Status = models.BookingStatusCompleted
	b.UpdatedAt = now
	m.bookings[id] = b
	return nil
}

func (m *memStore) ListPastConfirmed(_ context.Context, now time.Time, limit int) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.Status == models.BookingStatusConfirmed && b.EventDate.Before(now) && len(out) < limit {
			out = append(out, b)
		}
	}
	return out, nil
}

// applications

func (m *memStore) CreateApplication(_ context.Context, a models.GigApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps[appKey(a.GigID, a.TalentID)]; ok {
		return models.ErrDuplicate
	}
	m.apps[appKey(a.GigID, a.TalentID)] = a
	return nil
}

func (m *memStore) GetApplication(_ context.Context, gigID, talentID string) (models.GigApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[appKey(gigID, talentID)]
	if !ok {
		return models.GigApplication{}, models.ErrNotFound
	}
	return a, nil
}

func (m *memStore) ListApplications(_ context.Context, gigID string) ([]models.GigApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.GigApplication
	for _, a := range m.apps {
		if a.GigID == gigID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) WithdrawApplication(_ context.Context, gigID, talentID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[appKey(gigID, talentID)]
	if !ok || a.Status != models.ApplicationStatusInterested {
		return models.ErrInvalidTransition
	}
	a.Status = models.ApplicationStatusDeclined
	a.UpdatedAt = now
	m.apps[appKey(gigID, talentID)] = a
	return nil
}

// payments

func (m *memStore) GetPayment(_ context.Context, id string) (models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return models.Payment{}, models.ErrNotFound
	}
	return p, nil
}

func (m *memStore) HasCompletedPayment(_ context.Context, bookingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasCompletedLocked(bookingID), nil
}

func (m *memStore) hasCompletedLocked(bookingID string) bool {
	for _, p := range m.payments {
		if p.BookingID == bookingID && p.Status == models.PaymentStatusCompleted {
			return true
		}
	}
	return false
}

func (m *memStore) IssueInvoice(_ context.Context, params repositories.IssueParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	p := params.Payment
	now := params.Now
	b, ok := m.bookings[p.BookingID]
	if !ok {
		return models.ErrNotFound
	}
	if params.ClaimGig {
		if b.HasTalent() || b.Status != models.BookingStatusPending || !b.IsGigOpportunity {
			return models.ErrGigUnavailable
		}
		a, ok := m.apps[appKey(b.ID, p.TalentID)]
		if !ok || a.Status != models.ApplicationStatusInterested {
			return models.ErrForbidden
		}
		b.TalentID = strPtr(p.TalentID)
		a.Status = models.ApplicationStatusInvoiceSent
		m.apps[appKey(b.ID, p.TalentID)] = a
	}
	if m.hasCompletedLocked(b.ID) {
		return models.ErrAlreadyPaid
	}
	if (b.Status != models.BookingStatusPending && b.Status != models.BookingStatusApproved) || !b.HasTalent() || *b.TalentID != p.TalentID {
		return models.ErrInvalidTransition
	}
	for id, old := range m.payments {
		if old.BookingID == b.ID && old.Status == models.PaymentStatusPending {
			old.Status = models.PaymentStatusDeclined
			old.DeclinedAt = &now
			m.payments[id] = old
		}
	}
	m.payments[p.ID] = p
	b.Status = models.BookingStatusApproved
	b.PaymentID = strPtr(p.ID)
	b.UpdatedAt = now
	m.bookings[b.ID] = b
	return nil
}

func (m *memStore) DeclinePayment(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return models.ErrInvalidTransition
	}
	p.Status = models.PaymentStatusDeclined
	p.DeclinedAt = &now
	m.payments[id] = p
	return nil
}

func (m *memStore) SettlePayment(_ context.Context, paymentID string, now time.Time) (models.SettlementResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settleCalls++
	p, ok := m.payments[paymentID]
	if !ok {
		return models.SettlementResult{}, models.ErrNotFound
	}
	if p.Status == models.PaymentStatusCompleted {
		return models.SettlementResult{Payment: p, AlreadySettled: true}, nil
	}
	if p.Status != models.PaymentStatusPending {
		return models.SettlementResult{}, fmt.Errorf("payment %s: %w", p.Status, models.ErrInvalidTransition)
	}
	b := m.bookings[p.BookingID]
	if b.Status != models.BookingStatusApproved || b.PaymentID == nil || *b.PaymentID != paymentID {
		return models.SettlementResult{}, models.ErrInvalidTransition
	}
	talentID := p.TalentID
	if b.HasTalent() {
		talentID = *b.TalentID
	}
	p.Status = models.PaymentStatusCompleted
	p.CompletedAt = &now
	b.Status = models.BookingStatusConfirmed
	b.UpdatedAt = now
	m.payments[p.ID] = p
	m.bookings[b.ID] = b
	if b.IsGigOpportunity {
		for k, a := range m.apps {
			if a.GigID != b.ID || (a.Status != models.ApplicationStatusInterested && a.Status != models.ApplicationStatusInvoiceSent) {
				continue
			}
			if a.TalentID == talentID {
				a.Status = models.ApplicationStatusConfirmed
			} else {
				a.Status = models.ApplicationStatusDeclined
			}
			m.apps[k] = a
		}
	}
	return models.SettlementResult{Payment: p, Booking: b, TalentID: talentID}, nil
}

func (m *memStore) RecordFailure(_ context.Context, id, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return false, nil
	}
	p.FailureReason = reason
	m.payments[id] = p
	return true, nil
}

func (m *memStore) SetCheckoutSession(_ context.Context, id, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return models.ErrInvalidTransition
	}
	p.CheckoutSessionID = sessionID
	m.payments[id] = p
	return nil
}

func (m *memStore) ListStalePending(_ context.Context, cutoff time.Time, limit int) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.payments {
		if p.Status == models.PaymentStatusPending && p.CreatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

// profiles

func (m *memStore) GetProfile(_ context.Context, userID string) (models.TalentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return models.TalentProfile{}, models.ErrNotFound
	}
	return p, nil
}

func (m *memStore) SetPro(_ context.Context, userID string, isPro bool, changedAt, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return false, models.ErrNotFound
	}
	if p.ProChangedAt != nil && p.ProChangedAt.After(changedAt) {
		return false, nil
	}
	p.IsPro = isPro
	p.ProChangedAt = &changedAt
	p.UpdatedAt = now
	m.profiles[userID] = p
	return true, nil
}

// webhooks

func (m *memStore) RecordWebhook(_ context.Context, ev models.WebhookEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ev.Provider + "/" + ev.ProviderEventID
	if _, ok := m.webhooks[key]; ok {
		return false, nil
	}
	m.webhooks[key] = &ev
	return true, nil
}

func (m *memStore) WebhookProcessed(_ context.Context, provider, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.webhooks[provider+"/"+eventID]
	return ok && ev.ProcessedAt != nil, nil
}

func (m *memStore) MarkWebhookProcessed(_ context.Context, provider, eventID, procErr string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.webhooks[provider+"/"+eventID]; ok {
		ev.ProcessedAt = &now
		ev.ProcessingError = procErr
	}
	return nil
}

func (m *memStore) MarkWebhookFailed(_ context.Context, provider, eventID, procErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.webhooks[provider+"/"+eventID]; ok {
		ev.ProcessingError = procErr
	}
	return nil
}

// notifications

func (m *memStore) InsertNotification(_ context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *memStore) ListNotifications(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) MarkRead(_ context.Context, id, userID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.notifications {
		if n.ID == id && n.UserID == userID {
			m.notifications[i].ReadAt = &now
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *memStore) RegisterDevice(_ context.Context, d models.DeviceToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[d.UserID] = append(m.devices[d.UserID], d.Token)
	return nil
}

func (m *memStore) ListDeviceTokens(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.devices[userID]...), nil
}

func (m *memStore) DeleteDeviceToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for user, tokens := range m.devices {
		kept := tokens[:0]
		for _, t := range tokens {
			if t != token {
				kept = append(kept, t)
			}
		}
		m.devices[user] = kept
	}
	return nil
}

// recordingNotifier captures notices synchronously.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []models.Notice
}

func (r *recordingNotifier) Notify(n models.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Kind)
	}
	return out
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }
