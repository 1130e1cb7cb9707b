package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/apperror"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

func couponFixture(t *testing.T) (*memStore, *CouponService) {
	t.Helper()
	s := newMemStore()
	s.addCoupon(model.Coupon{
		Code: "WELCOME10", DiscountType: model.DiscountPercentage, DiscountValue: 10,
		StartDate: day("2025-05-01"), EndDate: day("2025-05-20"), MaxUses: 100, MinBookingAmount: 2000, IsActive: true,
	})
	s.addCoupon(model.Coupon{
		Code: "GONE", DiscountType: model.DiscountFlat, DiscountValue: 500,
		StartDate: day("2024-01-01"), EndDate: day("2024-02-01"), MaxUses: 1, CurrentUses: 1, IsActive: true,
	})
	s.addCoupon(model.Coupon{
		Code: "LATER", DiscountType: model.DiscountFlat, DiscountValue: 500,
		StartDate: day("2025-06-01"), EndDate: day("2025-07-01"), MaxUses: 5, IsActive: true,
	})
	s.addCoupon(model.Coupon{
		Code: "OFF", DiscountType: model.DiscountFlat, DiscountValue: 500,
		StartDate: day("2025-01-01"), EndDate: day("2025-12-31"), MaxUses: 5, IsActive: false,
	})
	return s, NewCouponService(s, func() time.Time { return fixedNow })
}

func TestCouponVerify(t *testing.T) {
	_, svc := couponFixture(t)

	q, err := svc.Verify(context.Background(), " welcome10 ", 9990)
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", q.Code)
	assert.Equal(t, int64(999), q.DiscountAmount)
	assert.Equal(t, int64(8991), q.FinalAmount)
	assert.Equal(t, model.CouponActive, q.Status)
}

func TestCouponVerifyRejections(t *testing.T) {
	_, svc := couponFixture(t)
	cases := []struct {
		code   string
		amount int64
		want   error
	}{
		{"NOPE", 5000, model.ErrCouponInvalid},
		{"GONE", 5000, model.ErrCouponExhausted},
		{"LATER", 5000, model.ErrCouponNotYetValid},
		{"OFF", 5000, model.ErrCouponInactive},
		{"WELCOME10", 1999, model.ErrCouponBelowMin},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			_, err := svc.Verify(context.Background(), tc.code, tc.amount)
			requireKind(t, err, apperror.Validation)
			assert.Contains(t, err.Error(), tc.want.Error())
		})
	}

	_, err := svc.Verify(context.Background(), "", 0)
	requireKind(t, err, apperror.Validation)
}

func TestCouponVerifyExpiredAfterEndDay(t *testing.T) {
	s, _ := couponFixture(t)
	svc := NewCouponService(s, func() time.Time { return day("2025-05-21") })
	_, err := svc.Verify(context.Background(), "WELCOME10", 5000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), model.ErrCouponExpired.Error())
}

func TestCouponCreate(t *testing.T) {
	s, svc := couponFixture(t)
	cmd := CreateCouponCommand{
		Code: "monsoon", DiscountType: "flat", DiscountValue: 750,
		StartDate: day("2025-07-01"), EndDate: day("2025-09-30"), MaxUses: 50, IsActive: true,
	}
	c, err := svc.Create(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "MONSOON", c.Code)
	assert.Equal(t, model.DiscountFlat, c.DiscountType)
	assert.Contains(t, s.d.coupons, "MONSOON")

	_, err = svc.Create(context.Background(), cmd)
	requireKind(t, err, apperror.Conflict)

	bad := cmd
	bad.Code = "X"
	bad.DiscountType = "PERCENTAGE"
	bad.DiscountValue = 120
	bad.EndDate = day("2025-06-01")
	bad.MaxUses = 0
	_, err = svc.Create(context.Background(), bad)
	requireKind(t, err, apperror.Validation)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 5)
}
