package expiration

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultInterval = time.Minute
	// stopTimeout bounds how long Stop waits for the loop to observe
	// the signal; a tick stuck on a dead panel must not hang shutdown.
	stopTimeout = 30 * time.Second
)

// Worker periodically expires orders whose paid period ran out.
type Worker struct {
	lifecycle Lifecycle
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewWorker(lifecycle Lifecycle, interval time.Duration, logger *slog.Logger, now func() time.Time) *Worker {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Worker{
		lifecycle: lifecycle,
		interval:  interval,
		logger:    logger,
		now:       now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

func (w *Worker) Name() string {
	return "expiration"
}

func (w *Worker) Start() error {
	w.logger.Info("Starting expiration worker", "interval", w.interval)
	go w.run()
	return nil
}

// Stop signals the loop and waits, bounded, for it to exit. The loop
// finishes its current tick before observing the signal.
func (w *Worker) Stop() {
	close(w.stopCh)
	select {
	case <-w.doneCh:
	case <-time.After(stopTimeout):
		w.logger.Warn("Expiration worker did not stop in time, abandoning")
	}
}

func (w *Worker) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	ctx := context.Background()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-w.stopCh:
			return
		}
	}
}

// tick processes one batch of expired orders. It recovers from panics
// so one bad order cannot kill the loop for the rest of the process
// lifetime.
func (w *Worker) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Panic in expiration tick", "panic", r)
		}
	}()

	now := w.now()
	expired, err := w.lifecycle.ListExpired(ctx, now)
	if err != nil {
		w.logger.Error("Failed to list expired orders", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	w.logger.Info("Found expired orders", "count", len(expired))

	for _, order := range expired {
		if err := w.lifecycle.ExpireOrder(ctx, order); err != nil {
			w.logger.Error("Failed to expire order",
				"order_id", order.ID,
				"error", err)
			continue
		}
		w.logger.Info("Order expired",
			"order_id", order.ID,
			"user_id", order.UserID)
	}
}
