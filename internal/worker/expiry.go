// Package worker runs periodic background jobs.
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Expirer cancels PENDING bookings whose payment window lapsed before now.
type Expirer interface {
	ExpireStale(ctx context.Context, now time.Time, limit int) (int, error)
}

// ExpiryWorker drives an Expirer on a ticker until its context ends.
type ExpiryWorker struct {
	expirer  Expirer
	interval time.Duration
	batch    int
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewExpiryWorker(e Expirer, interval time.Duration, batch int, log logrus.FieldLogger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ExpiryWorker{expirer: e, interval: interval, batch: batch, now: time.Now, log: log.WithField("worker", "booking_expiry")}
}

// Start blocks until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval.String()).Info("booking expiry worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("booking expiry worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep drains expired bookings batch by batch.  It stops early on error
// or when a batch comes back short.
func (w *ExpiryWorker) sweep(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		n, err := w.expirer.ExpireStale(ctx, w.now(), w.batch)
		total += n
		if err != nil {
			w.log.WithError(err).Error("expire stale bookings")
			break
		}
		if n < w.batch {
			break
		}
	}
	if total > 0 {
		w.log.WithField("count", total).Info("expired stale bookings")
	}
	return total
}
