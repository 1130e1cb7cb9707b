package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/apperror"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

type CouponHandler struct {
	Coupons Coupons
	Log     logrus.FieldLogger
}

func NewCouponHandler(cs Coupons, log logrus.FieldLogger) *CouponHandler {
	return &CouponHandler{Coupons: cs, Log: log}
}

type verifyCouponReq struct {
	Code          string `json:"code" validate:"required,max=64"`
	BookingAmount int64  `json:"bookingAmount" validate:"gt=0"`
}

// Verify handles POST /v1/coupons/verify.
func (h *CouponHandler) Verify(c echo.Context) error {
	var req verifyCouponReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	q, err := h.Coupons.Verify(ctx, req.Code, req.BookingAmount)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, q)
}

// List handles GET /v1/admin/coupons.
func (h *CouponHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	items, err := h.Coupons.List(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if items == nil {
		items = []model.Coupon{}
	}
	return c.JSON(http.StatusOK, items)
}

type createCouponReq struct {
	Code             string `json:"code" validate:"required,max=64"`
	DiscountType     string `json:"discountType" validate:"required,oneof=PERCENTAGE FLAT"`
	DiscountValue    int64  `json:"discountValue" validate:"gt=0"`
	StartDate        string `json:"startDate" validate:"required"`
	EndDate          string `json:"endDate" validate:"required"`
	MaxUses          int    `json:"maxUses" validate:"min=1"`
	MinBookingAmount int64  `json:"minBookingAmount" validate:"min=0"`
	IsActive         *bool  `json:"isActive"`
}

// Create handles POST /v1/admin/coupons.  isActive defaults to true.
func (h *CouponHandler) Create(c echo.Context) error {
	var req createCouponReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	start, err := parseDay("startDate", req.StartDate)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	end, err := parseDay("endDate", req.EndDate)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if end.Before(start) {
		return respondError(c, h.Log, apperror.ValidationFields("invalid coupon", map[string]string{"endDate": "must not be before startDate"}))
	}
	active := req.IsActive == nil || *req.IsActive

	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	cp, err := h.Coupons.Create(ctx, service.CreateCouponCommand{
		Code:             req.Code,
		DiscountType:     req.DiscountType,
		DiscountValue:    req.DiscountValue,
		StartDate:        start,
		EndDate:          end,
		MaxUses:          req.MaxUses,
		MinBookingAmount: req.MinBookingAmount,
		IsActive:         active,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, cp)
}

