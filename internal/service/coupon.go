package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/apperror"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// CouponQuote is what a valid coupon does to an amount.
type CouponQuote struct {
	Code           string             `json:"code"`
	Status         model.CouponStatus `json:"status"`
	BookingAmount  int64              `json:"bookingAmount"`
	DiscountAmount int64              `json:"discountAmount"`
	FinalAmount    int64              `json:"finalAmount"`
}

type CreateCouponCommand struct {
	Code             string
	DiscountType     string
	DiscountValue    int64
	StartDate        time.Time
	EndDate          time.Time
	MaxUses          int
	MinBookingAmount int64
	IsActive         bool
}

type CouponService struct {
	store Store
	now   func() time.Time
}

func NewCouponService(store Store, now func() time.Time) *CouponService {
	if now == nil {
		now = time.Now
	}
	return &CouponService{store: store, now: now}
}

func normaliseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// couponErr exposes a coupon rejection reason as a validation error on the
// couponCode field.
func couponErr(err error) error {
	return apperror.ValidationFields(err.Error(), map[string]string{"couponCode": err.Error()})
}

// Verify applies code to bookingAmount without consuming a use.
func (s *CouponService) Verify(ctx context.Context, code string, bookingAmount int64) (*CouponQuote, error) {
	code = normaliseCode(code)
	fields := map[string]string{}
	if code == "" {
		fields["code"] = "required"
	}
	if bookingAmount <= 0 {
		fields["bookingAmount"] = "must be greater than 0"
	}
	if len(fields) > 0 {
		return nil, apperror.ValidationFields("invalid coupon request", fields)
	}

	c, err := s.store.GetCouponByCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return nil, couponErr(model.ErrCouponInvalid)
		}
		return nil, storeErr("load coupon", err)
	}
	now := s.now()
	if err := c.Check(bookingAmount, now); err != nil {
		return nil, couponErr(err)
	}
	d := c.Discount(bookingAmount)
	return &CouponQuote{
		Code:           c.Code,
		Status:         c.Status(now),
		BookingAmount:  bookingAmount,
		DiscountAmount: d,
		FinalAmount:    bookingAmount - d,
	}, nil
}

func (s *CouponService) List(ctx context.Context) ([]model.Coupon, error) {
	out, err := s.store.ListCoupons(ctx)
	if err != nil {
		return nil, storeErr("list coupons", err)
	}
	return out, nil
}

func (s *CouponService) Create(ctx context.Context, cmd CreateCouponCommand) (*model.Coupon, error) {
	c := &model.Coupon{
		Code:             normaliseCode(cmd.Code),
		DiscountType:     model.DiscountType(strings.ToUpper(strings.TrimSpace(cmd.DiscountType))),
		DiscountValue:    cmd.DiscountValue,
		StartDate:        model.Day(cmd.StartDate),
		EndDate:          model.Day(cmd.EndDate),
		MaxUses:          cmd.MaxUses,
		MinBookingAmount: cmd.MinBookingAmount,
		IsActive:         cmd.IsActive,
	}

	fields := map[string]string{}
	if c.Code == "" {
		fields["code"] = "required"
	}
	switch c.DiscountType {
	case model.DiscountPercentage:
		if c.DiscountValue < 1 || c.DiscountValue > 100 {
			fields["discountValue"] = "percentage must be between 1 and 100"
		}
	case model.DiscountFlat:
		if c.DiscountValue < 1 {
			fields["discountValue"] = "must be greater than 0"
		}
	default:
		fields["discountType"] = "must be PERCENTAGE or FLAT"
	}
	if cmd.StartDate.IsZero() || cmd.EndDate.IsZero() {
		fields["startDate"] = "startDate and endDate are required"
	} else if c.EndDate.Before(c.StartDate) {
		fields["endDate"] = "must not be before startDate"
	}
	if c.MaxUses < 1 {
		fields["maxUses"] = "must be at least 1"
	}
	if c.MinBookingAmount < 0 {
		fields["minBookingAmount"] = "must not be negative"
	}
	if len(fields) > 0 {
		return nil, apperror.ValidationFields("invalid coupon", fields)
	}

	if err := writeErr("create coupon", s.store.CreateCoupon(ctx, c), "coupon code already exists"); err != nil {
		return nil, err
	}
	return c, nil
}
