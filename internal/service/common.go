package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/apperror"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/notify"
)

const defaultNotifyTimeout = 10 * time.Second

// lookupErr turns a repository error for entity what into an apperror.
func lookupErr(err error, what string) error {
	if errors.Is(err, model.ErrNotFound) {
		return apperror.Missing(what + " not found")
	}
	var ae *apperror.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperror.Storage("load "+what, err)
}

func isNotFound(err error) bool { return errors.Is(err, model.ErrNotFound) }

// storeErr wraps err as a persistence failure unless it already carries a kind.
func storeErr(op string, err error) error {
	var ae *apperror.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperror.Storage(op, err)
}

// notifier delivers notices after a commit.  Failures and panics are logged
// and dropped; the caller's request context may already be done, so the
// send gets its own deadline.
type notifier struct {
	n       notify.Notifier
	timeout time.Duration
	log     logrus.FieldLogger
}

func newNotifier(n notify.Notifier, timeout time.Duration, log logrus.FieldLogger) notifier {
	if n == nil {
		n = notify.Nop{}
	}
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return notifier{n: n, timeout: timeout, log: log}
}

func (d notifier) send(parent context.Context, notice notify.BookingNotice) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.timeout)
	defer cancel()
	entry := d.log.WithFields(logrus.Fields{"booking_id": notice.BookingID, "kind": notice.Kind})
	defer func() {
		if r := recover(); r != nil {
			entry.Errorf("notification panicked: %v", r)
		}
	}()
	if err := notify.Dispatch(ctx, d.n, notice); err != nil {
		entry.WithError(err).Warn("notification failed")
	}
}

func noticeFor(kind notify.Kind, b *model.Booking, t *model.Transaction, reason string, at time.Time) notify.BookingNotice {
	n := notify.BookingNotice{
		Kind:       kind,
		BookingID:  b.ID,
		Reference:  b.Reference,
		HotelID:    b.HotelID,
		Email:      b.Email,
		FullName:   b.FullName,
		CheckIn:    b.CheckIn.Format(model.DateLayout),
		CheckOut:   b.CheckOut.Format(model.DateLayout),
		Amount:     b.TotalAmount,
		Currency:   b.Currency,
		Status:     string(b.Status),
		Reason:     reason,
		OccurredAt: at.UTC(),
	}
	if t != nil {
		n.TransactionID = t.ID
		n.Amount = t.Amount
		n.Currency = t.Currency
	}
	return n
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
