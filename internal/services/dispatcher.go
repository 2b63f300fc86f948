package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"talentBack/internal/metrics"
	"talentBack/internal/models"
)

// Sink delivers a notice over one channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, n models.Notice) error
}

// ErrPermanent marks a delivery error that retrying cannot fix.
var ErrPermanent = errors.New("permanent delivery failure")

type DispatcherConfig struct {
	QueueSize      int
	Workers        int
	Attempts       int
	Backoff        time.Duration
	DeliverTimeout time.Duration
}

// Dispatcher fans notices out to every sink on a bounded queue served by a
// fixed worker pool. Delivery is best effort: a full queue drops the notice
// and sink failures are retried with jittered backoff, then logged.
type Dispatcher struct {
	cfg    DispatcherConfig
	sinks  []Sink
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan models.Notice
	wg     sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig, logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	if cfg.DeliverTimeout <= 0 {
		cfg.DeliverTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:    cfg,
		sinks:  sinks,
		logger: logger.With("component", "dispatcher"),
		queue:  make(chan models.Notice, cfg.QueueSize),
	}
}

// Start launches the workers. They exit once Close has drained the queue.
func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for n := range d.queue {
				metrics.QueueDepth(len(d.queue))
				d.deliver(n)
			}
		}()
	}
}

// Notify enqueues n without blocking. Notices are dropped when the queue is
// full or the dispatcher is closed.
func (d *Dispatcher) Notify(n models.Notice) {
	if n.UserID == "" {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("notice dropped after close", "kind", n.Kind, "user_id", n.UserID)
		return
	}
	select {
	case d.queue <- n:
		metrics.QueueDepth(len(d.queue))
	default:
		metrics.NotificationDelivery("queue", "dropped")
		d.logger.Warn("notice dropped: queue full", "kind", n.Kind, "user_id", n.UserID)
	}
}

// Close stops intake and waits for queued notices to drain or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(n models.Notice) {
	for _, sink := range d.sinks {
		var err error
		for attempt := 0; attempt < d.cfg.Attempts; attempt++ {
			if attempt > 0 {
				time.Sleep(d.backoff(attempt))
			}
			ctx, cancel := context.WithTimeout(context.Background(), d.cfg.DeliverTimeout)
			err = sink.Deliver(ctx, n)
			cancel()
			if err == nil || errors.Is(err, ErrPermanent) {
				break
			}
		}
		if err != nil {
			metrics.NotificationDelivery(sink.Name(), "failed")
			d.logger.Error("notice delivery failed", "sink", sink.Name(), "kind", n.Kind, "user_id", n.UserID, "err", err)
			continue
		}
		metrics.NotificationDelivery(sink.Name(), "delivered")
	}
}

// backoff doubles per attempt and adds up to one base interval of jitter.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	base := d.cfg.Backoff
	wait := base << (attempt - 1)
	return wait + time.Duration(rand.Int63n(int64(base)))
}

// StoreSink persists notices as in-app notifications.
type StoreSink struct {
	Store NotificationStore
	Now   func() time.Time
}

func (StoreSink) Name() string { return "store" }

func (s StoreSink) Deliver(ctx context.Context, n models.Notice) error {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}
	return s.Store.InsertNotification(ctx, models.Notification{
		ID:        uuid.NewString(),
		UserID:    n.UserID,
		Kind:      n.Kind,
		Title:     n.Title,
		Body:      n.Body,
		BookingID: n.BookingID,
		PaymentID: n.PaymentID,
		CreatedAt: now,
	})
}
