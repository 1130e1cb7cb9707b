package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/gateway"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

// PaymentHandler opens gateway orders and receives gateway callbacks.
type PaymentHandler struct {
	Payments Payments
	Log      logrus.FieldLogger
}

func NewPaymentHandler(p Payments, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{Payments: p, Log: log}
}

type createOrderReq struct {
	BookingID  uint64 `json:"bookingId" validate:"required"`
	Amount     int64  `json:"amount" validate:"gt=0"`
	Currency   string `json:"currency" validate:"required,len=3"`
	Email      string `json:"email" validate:"required,email"`
	Name       string `json:"name" validate:"required,max=255"`
	Gateway    string `json:"gateway" validate:"omitempty,oneof=RAZORPAY PLURAL razorpay plural"`
	CouponCode string `json:"couponCode" validate:"max=64"`
}

// CreateOrder handles POST /v1/payments/orders.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	var req createOrderReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c, gatewayTimeout)
	defer cancel()
	res, err := h.Payments.CreateOrder(ctx, service.CreateOrderCommand{
		BookingID:  req.BookingID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Email:      req.Email,
		Name:       req.Name,
		Gateway:    req.Gateway,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

type razorpayVerifyReq struct {
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
	Method    string `json:"method"`
}

// RazorpayVerify handles POST /v1/payments/razorpay/verify.  Missing
// paymentId or signature is a failed payment, not a malformed request.
func (h *PaymentHandler) RazorpayVerify(c echo.Context) error {
	var req razorpayVerifyReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	return h.verify(c, model.GatewayRazorpay, gateway.Callback{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		Method:    req.Method,
	})
}

// pluralCallbackReq accepts the camelCase API shape and the snake_case
// fields of the hosted checkout redirect.
type pluralCallbackReq struct {
	OrderID      string `json:"orderId" form:"orderId"`
	OrderIDAlt   string `json:"order_id" form:"order_id"`
	PaymentID    string `json:"paymentId" form:"paymentId"`
	PaymentIDAlt string `json:"payment_id" form:"payment_id"`
	Status       string `json:"status" form:"status"`
	Method       string `json:"method" form:"payment_method"`
}

// PluralCallback handles POST /v1/payments/plural/callback.
func (h *PaymentHandler) PluralCallback(c echo.Context) error {
	var req pluralCallbackReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	cb := gateway.Callback{
		OrderID:   firstNonEmpty(req.OrderID, req.OrderIDAlt),
		PaymentID: firstNonEmpty(req.PaymentID, req.PaymentIDAlt),
		Status:    req.Status,
		Method:    req.Method,
	}
	return h.verify(c, model.GatewayPlural, cb)
}

func (h *PaymentHandler) verify(c echo.Context, gw model.Gateway, cb gateway.Callback) error {
	ctx, cancel := withTimeout(c, gatewayTimeout)
	defer cancel()
	res, err := h.Payments.VerifyPayment(ctx, gw, cb)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	middleware.Entry(c, h.Log).WithFields(logrus.Fields{
		"order_id":          cb.OrderID,
		"transaction_id":    res.TransactionID,
		"ok":                res.OK,
		"already_processed": res.AlreadyProcessed,
	}).Info("payment callback handled")

	status := http.StatusOK
	switch {
	case res.OK:
	case res.Status == model.TxnPending:
		status = http.StatusAccepted
	default:
		status = http.StatusBadRequest
	}
	return c.JSON(status, res)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
