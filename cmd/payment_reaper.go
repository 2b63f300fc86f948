package main

import (
	"context"
	"log/slog"
	"time"
)

const paymentReaperTimeout = 1 * time.Minute

type reaper interface {
	ExpireStalePayments(ctx context.Context) (int, error)
	CompletePastBookings(ctx context.Context) (int, error)
}

// startPaymentReaper periodically declines pending payments past their TTL and
// completes confirmed bookings whose event date has passed.
func startPaymentReaper(ctx context.Context, svc reaper, interval time.Duration, logger *slog.Logger) {
	if svc == nil || interval <= 0 {
		return
	}
	logger = logger.With("op", "PaymentReaper")

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		runOnce := func() {
			runCtx, cancel := context.WithTimeout(ctx, paymentReaperTimeout)
			defer cancel()
			reapOnce(runCtx, svc, logger)
		}

		runOnce()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runOnce()
			}
		}
	}()
}

func reapOnce(ctx context.Context, svc reaper, logger *slog.Logger) {
	expired, err := svc.ExpireStalePayments(ctx)
	if err != nil {
		logger.Error("failed to expire stale payments", "err", err)
	} else if expired > 0 {
		logger.Info("expired stale payments", "count", expired)
	}

	completed, err := svc.CompletePastBookings(ctx)
	if err != nil {
		logger.Error("failed to complete past bookings", "err", err)
	} else if completed > 0 {
		logger.Info("completed past bookings", "count", completed)
	}
}
