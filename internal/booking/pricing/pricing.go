package pricing

import (
	"errors"
	"fmt"
	"math"
)

// Default commission percentages retained by the platform.
const (
	DefaultStandardPercent = 20
	DefaultProPercent      = 10
)

// MaxAmount is the largest total, in minor units, that Split accepts.
const MaxAmount = (math.MaxInt64 - 50) / 100

var (
	// ErrInvalidRate is returned for commission rates outside 0..100.
	ErrInvalidRate = errors.New("commission rate must be between 0 and 100")
	// ErrAmountTooLarge is returned when an amount would overflow int64 arithmetic.
	ErrAmountTooLarge = errors.New("amount is too large")
)

// Schedule maps a talent's subscriber tier to a commission percentage.
type Schedule struct {
	StandardPercent int
	ProPercent      int
}

// DefaultSchedule returns the canonical 20% standard / 10% pro schedule.
func DefaultSchedule() Schedule {
	return Schedule{StandardPercent: DefaultStandardPercent, ProPercent: DefaultProPercent}
}

// Validate checks both tiers are usable percentages.
func (s Schedule) Validate() error {
	if s.StandardPercent < 0 || s.StandardPercent > 100 {
		return fmt.Errorf("standard tier: %w", ErrInvalidRate)
	}
	if s.ProPercent < 0 || s.ProPercent > 100 {
		return fmt.Errorf("pro tier: %w", ErrInvalidRate)
	}
	return nil
}

// RateFor returns the commission percentage for the given tier.
func (s Schedule) RateFor(isPro bool) int {
	if isPro {
		return s.ProPercent
	}
	return s.StandardPercent
}

// Split divides total into platform commission and talent earnings. The
// commission is rounded half-up to the minor unit and earnings take the
// remainder, so commission+earnings == total for every input.
func Split(total int64, ratePercent int) (commission, earnings int64, err error) {
	if ratePercent < 0 || ratePercent > 100 {
		return 0, 0, ErrInvalidRate
	}
	if total < 0 {
		return 0, 0, errors.New("total must not be negative")
	}
	if total > MaxAmount {
		return 0, 0, ErrAmountTooLarge
	}
	commission = (total*int64(ratePercent) + 50) / 100
	earnings = total - commission
	return commission, earnings, nil
}

// RateAmount prices a booking from an hourly rate and a duration in minutes,
// rounded half-up to the minor unit. Non-positive inputs price to zero.
func RateAmount(hourlyRate int64, durationMinutes int) (int64, error) {
	if hourlyRate <= 0 || durationMinutes <= 0 {
		return 0, nil
	}
	if hourlyRate > (math.MaxInt64-30)/int64(durationMinutes) {
		return 0, ErrAmountTooLarge
	}
	return (hourlyRate*int64(durationMinutes) + 30) / 60, nil
}
