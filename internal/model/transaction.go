package model

import "time"

// Gateway names a payment provider.
type Gateway string

const (
	GatewayRazorpay Gateway = "RAZORPAY"
	GatewayPlural   Gateway = "PLURAL"
)

// Transaction is a payment attempt for a booking.  It is created PENDING
// before the gateway redirect and moved to a terminal status exactly once by
// verification (or by expiry of the payment window).
type Transaction struct {
	ID               uint64            `json:"id"`
	BookingID        uint64            `json:"bookingId"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Status           TransactionStatus `json:"status"`
	Gateway          Gateway           `json:"gateway"`
	GatewayOrderID   string            `json:"gatewayOrderId"`
	GatewayPaymentID *string           `json:"gatewayPaymentId,omitempty"`
	Signature        *string           `json:"-"`
	PaymentMethod    string            `json:"paymentMethod,omitempty"`
	CouponCode       *string           `json:"couponCode,omitempty"`
	DiscountAmount   int64             `json:"discountAmount"`
	FailureReason    *string           `json:"failureReason,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}
