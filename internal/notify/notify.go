// Package notify delivers booking notices to guests and administrators.
// Delivery is best-effort: callers log failures and never undo the state
// change that triggered the notice.
package notify

import (
	"context"
	"time"
)

type Kind string

const (
	KindConfirmed     Kind = "BOOKING_CONFIRMED"
	KindPaymentFailed Kind = "PAYMENT_FAILED"
	KindCancelled     Kind = "BOOKING_CANCELLED"
	KindAdminOverride Kind = "ADMIN_OVERRIDE"
)

// BookingNotice is self-contained so consumers never need to read the
// database to render it.
type BookingNotice struct {
	Kind          Kind      `json:"kind"`
	BookingID     uint64    `json:"booking_id"`
	Reference     string    `json:"reference,omitempty"`
	TransactionID uint64    `json:"transaction_id,omitempty"`
	HotelID       uint64    `json:"hotel_id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	CheckIn       string    `json:"check_in"`
	CheckOut      string    `json:"check_out"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Notifier interface {
	SendBookingConfirmation(ctx context.Context, n BookingNotice) error
	SendBookingFailureOrAdminNotice(ctx context.Context, n BookingNotice) error
}

// Dispatch routes a notice to the matching Notifier method.
func Dispatch(ctx context.Context, n Notifier, notice BookingNotice) error {
	if notice.Kind == KindConfirmed {
		return n.SendBookingConfirmation(ctx, notice)
	}
	return n.SendBookingFailureOrAdminNotice(ctx, notice)
}

// Nop discards every notice.
type Nop struct{}

func (Nop) SendBookingConfirmation(context.Context, BookingNotice) error         { return nil }
func (Nop) SendBookingFailureOrAdminNotice(context.Context, BookingNotice) error { return nil }
