package model

import "strings"

// BookingStatus is the lifecycle state of a booking.  CONFIRMED and
// CANCELLED are terminal for gateway-driven transitions; only the admin
// override may move a booking out of them.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// ParseBookingStatus normalises s and reports whether it names a known
// booking status.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch st := BookingStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case BookingPending, BookingConfirmed, BookingCancelled:
		return st, true
	}
	return "", false
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingConfirmed || s == BookingCancelled
}

// TransactionStatus is the lifecycle state of a payment transaction.
type TransactionStatus string

const (
	TxnPending   TransactionStatus = "PENDING"
	TxnSuccess   TransactionStatus = "SUCCESS"
	TxnFailed    TransactionStatus = "FAILED"
	TxnCancelled TransactionStatus = "CANCELLED"
)

// ParseTransactionStatus accepts COMPLETED as a legacy alias of SUCCESS.
func ParseTransactionStatus(s string) (TransactionStatus, bool) {
	st := TransactionStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case "COMPLETED":
		return TxnSuccess, true
	case TxnPending, TxnSuccess, TxnFailed, TxnCancelled:
		return st, true
	}
	return "", false
}

// IsTerminal reports whether no further gateway transition may be applied.
func (s TransactionStatus) IsTerminal() bool {
	return s == TxnSuccess || s == TxnFailed || s == TxnCancelled
}

// Consistent reports whether a booking and its transaction agree:
// SUCCESS <=> CONFIRMED and FAILED => CANCELLED.
func Consistent(b BookingStatus, t TransactionStatus) bool {
	if (t == TxnSuccess) != (b == BookingConfirmed) {
		return false
	}
	if t == TxnFailed && b != BookingCancelled {
		return false
	}
	return true
}
