package model

import (
	"errors"
	"time"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFlat       DiscountType = "FLAT"
)

// CouponStatus is derived from the clock and the counters; it is never
// stored.
type CouponStatus string

const (
	CouponActive      CouponStatus = "ACTIVE"
	CouponExpired     CouponStatus = "EXPIRED"
	CouponExhausted   CouponStatus = "EXHAUSTED"
	CouponInactive    CouponStatus = "INACTIVE"
	CouponNotYetValid CouponStatus = "NOT_YET_VALID"
)

// Coupon rejection reasons.  The text is returned to clients as-is.
var (
	ErrCouponInvalid     = errors.New("invalid coupon code")
	ErrCouponInactive    = errors.New("coupon is inactive")
	ErrCouponExpired     = errors.New("coupon has expired")
	ErrCouponExhausted   = errors.New("coupon usage limit exceeded")
	ErrCouponNotYetValid = errors.New("coupon is not yet valid")
	ErrCouponBelowMin    = errors.New("booking amount below minimum")
)

// Coupon is a discount code.  The validity window is inclusive of both
// StartDate and EndDate.  CurrentUses never exceeds MaxUses.
type Coupon struct {
	ID               uint64       `json:"id"`
	Code             string       `json:"code"`
	DiscountType     DiscountType `json:"discountType"`
	DiscountValue    int64        `json:"discountValue"`
	StartDate        time.Time    `json:"startDate"`
	EndDate          time.Time    `json:"endDate"`
	MaxUses          int          `json:"maxUses"`
	CurrentUses      int          `json:"currentUses"`
	MinBookingAmount int64        `json:"minBookingAmount"`
	IsActive         bool         `json:"isActive"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// Status derives the coupon state at now.  Exhaustion is reported ahead of
// the validity window so a used-up coupon reads as exhausted regardless of
// its dates.
func (c *Coupon) Status(now time.Time) CouponStatus {
	today := Day(now)
	switch {
	case !c.IsActive:
		return CouponInactive
	case c.CurrentUses >= c.MaxUses:
		return CouponExhausted
	case today.After(Day(c.EndDate)):
		return CouponExpired
	case today.Before(Day(c.StartDate)):
		return CouponNotYetValid
	}
	return CouponActive
}

// Check returns the rejection reason for applying c to amount at now, or
// nil when the coupon applies.
func (c *Coupon) Check(amount int64, now time.Time) error {
	switch c.Status(now) {
	case CouponInactive:
		return ErrCouponInactive
	case CouponExhausted:
		return ErrCouponExhausted
	case CouponExpired:
		return ErrCouponExpired
	case CouponNotYetValid:
		return ErrCouponNotYetValid
	}
	if amount < c.MinBookingAmount {
		return ErrCouponBelowMin
	}
	return nil
}

// Discount computes the discount for amount.  Percentage discounts round
// down to the minor unit; no discount ever exceeds the amount.
func (c *Coupon) Discount(amount int64) int64 {
	var d int64
	switch c.DiscountType {
	case DiscountPercentage:
		d = amount * c.DiscountValue / 100
	case DiscountFlat:
		d = c.DiscountValue
	}
	if d > amount {
		d = amount
	}
	if d < 0 {
		d = 0
	}
	return d
}
