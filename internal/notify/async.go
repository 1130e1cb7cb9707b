package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Async hands every notice to a goroutine and returns immediately.  The
// wrapped Notifier gets its own timeout detached from the caller's context.
type Async struct {
	next    Notifier
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewAsync(next Notifier, timeout time.Duration, log logrus.FieldLogger) *Async {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Async{next: next, timeout: timeout, log: log}
}

func (a *Async) SendBookingConfirmation(_ context.Context, n BookingNotice) error {
	a.spawn(n, a.next.SendBookingConfirmation)
	return nil
}

func (a *Async) SendBookingFailureOrAdminNotice(_ context.Context, n BookingNotice) error {
	a.spawn(n, a.next.SendBookingFailureOrAdminNotice)
	return nil
}

func (a *Async) spawn(n BookingNotice, send func(context.Context, BookingNotice) error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.log.WithField("booking_id", n.BookingID).Errorf("notify: panic: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := send(ctx, n); err != nil {
			a.log.WithFields(logrus.Fields{
				"booking_id": n.BookingID,
				"kind":       n.Kind,
			}).WithError(err).Warn("notify: delivery failed")
		}
	}()
}
