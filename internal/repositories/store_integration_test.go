package repositories

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"talentBack/internal/models"
)

// openTestDB connects to the database named by TEST_MYSQL_DSN or
// TEST_POSTGRES_DSN and applies migrations. Tests skip without one.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	driver, dsn := "mysql", os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		driver, dsn = "pgx", os.Getenv("TEST_POSTGRES_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN or TEST_POSTGRES_DSN not set")
	}
	db, err := Open(context.Background(), driver, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedGig(t *testing.T, repo *BookingRepository) models.Booking {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	b := models.Booking{
		ID:               uuid.NewString(),
		RequesterID:      uuid.NewString(),
		Status:           models.BookingStatusPending,
		IsGigOpportunity: true,
		IsPublicRequest:  true,
		EventDate:        now.Add(72 * time.Hour),
		DurationMinutes:  180,
		Location:         "Hall A",
		EventType:        "wedding",
		Description:      "",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := repo.CreateBooking(context.Background(), b); err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func TestClaimGigRace(t *testing.T) {
	db := openTestDB(t)
	bookings := &BookingRepository{DB: db}
	gig := seedGig(t, bookings)

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < n; i++ {
		talentID := uuid.NewString()
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := bookings.ClaimGig(context.Background(), gig.ID, talentID, time.Now().UTC())
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			if ok {
				mu.Lock()
				winners = append(winners, talentID)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %d", len(winners))
	}
	got, err := bookings.GetBooking(context.Background(), gig.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TalentID == nil || *got.TalentID != winners[0] {
		t.Fatalf("stored talent %v does not match winner %s", got.TalentID, winners[0])
	}
}

func TestIssueAndSettleOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	bookings := &BookingRepository{DB: db}
	payments := &PaymentRepository{DB: db}
	gig := seedGig(t, bookings)

	talentID := uuid.NewString()
	if ok, err := bookings.ClaimGig(ctx, gig.ID, talentID, time.Now().UTC()); err != nil || !ok {
		t.Fatalf("claim: %v %v", ok, err)
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := models.Payment{
		ID: uuid.NewString(), BookingID: gig.ID, BookerID: gig.RequesterID, TalentID: talentID,
		TotalAmount: 15000, Currency: "USD", CommissionRate: 20, PlatformCommission: 3000, TalentEarnings: 12000,
		Status: models.PaymentStatusPending, Mode: models.InvoiceModeRate, CreatedAt: now,
	}
	if err := payments.IssueInvoice(ctx, IssueParams{Payment: p, Now: now}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	first, err := payments.SettlePayment(ctx, p.ID, now)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if first.AlreadySettled || first.Booking.Status != models.BookingStatusConfirmed || first.TalentID != talentID {
		t.Fatalf("unexpected first settlement: %+v", first)
	}
	second, err := payments.SettlePayment(ctx, p.ID, now.Add(time.Second))
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if !second.AlreadySettled {
		t.Fatal("expected duplicate settlement to be a no-op")
	}

	again := p
	again.ID = uuid.NewString()
	if err := payments.IssueInvoice(ctx, IssueParams{Payment: again, Now: now}); !errors.Is(err, models.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
}

func TestSetProOrdering(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	profiles := &ProfileRepository{DB: db}
	now := time.Now().UTC().Truncate(time.Second)

	if _, err := profiles.SetPro(ctx, uuid.NewString(), true, now, now); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}

	userID := uuid.NewString()
	if _, err := db.ExecContext(ctx, `INSERT INTO talent_profiles (user_id, hourly_rate, currency, is_pro, updated_at)
VALUES (?, 5000, 'EUR', ?, ?)`, userID, false, now); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	applied, err := profiles.SetPro(ctx, userID, false, now.Add(time.Minute), now)
	if err != nil || !applied {
		t.Fatalf("cancellation: applied=%v err=%v", applied, err)
	}
	applied, err = profiles.SetPro(ctx, userID, true, now, now)
	if err != nil || applied {
		t.Fatalf("older activation: applied=%v err=%v", applied, err)
	}
	p, err := profiles.GetProfile(ctx, userID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.IsPro || p.Currency != "EUR" || p.ProChangedAt == nil {
		t.Fatalf("unexpected profile: %+v", p)
	}
}
