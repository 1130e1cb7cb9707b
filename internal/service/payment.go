package service

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/apperror"
	"github.com/iliyamo/hotel-reservation/internal/gateway"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/notify"
)

// CreateOrderCommand asks a gateway to open an order for a PENDING booking.
type CreateOrderCommand struct {
	BookingID  uint64
	Amount     int64
	Currency   string
	Email      string
	Name       string
	Gateway    string
	CouponCode string
}

type OrderResult struct {
	OrderID        string        `json:"orderId"`
	TransactionID  uint64        `json:"transactionId"`
	Gateway        model.Gateway `json:"gateway"`
	Amount         int64         `json:"amount"`
	DiscountAmount int64         `json:"discountAmount"`
	Currency       string        `json:"currency"`
	RedirectURL    string        `json:"redirectUrl,omitempty"`
	KeyID          string        `json:"keyId,omitempty"`
}

// VerifyResult is the outcome of a callback.  AlreadyProcessed is set when
// the transaction was terminal before this delivery; nothing changed then.
type VerifyResult struct {
	OK               bool                    `json:"ok"`
	TransactionID    uint64                  `json:"transactionId"`
	BookingID        uint64                  `json:"bookingId"`
	Status           model.TransactionStatus `json:"status"`
	Reason           string                  `json:"reason,omitempty"`
	AlreadyProcessed bool                    `json:"alreadyProcessed,omitempty"`
}

type PaymentOptions struct {
	DefaultGateway model.Gateway
	GatewayTimeout time.Duration
	NotifyTimeout  time.Duration
	Now            func() time.Time
	Log            logrus.FieldLogger
}

// PaymentService opens gateway orders and reconciles gateway callbacks with
// local state.  Both outcomes of a callback move the transaction and its
// booking together in one DB transaction; a transaction already in a
// terminal state is never moved again.
type PaymentService struct {
	store          Store
	gateways       map[model.Gateway]gateway.Gateway
	defaultGateway model.Gateway
	timeout        time.Duration
	notifier       notifier
	now            func() time.Time
	log            logrus.FieldLogger
}

func NewPaymentService(store Store, gws []gateway.Gateway, n notify.Notifier, opts PaymentOptions) *PaymentService {
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	byName := make(map[model.Gateway]gateway.Gateway, len(gws))
	for _, g := range gws {
		byName[g.Name()] = g
	}
	if opts.DefaultGateway == "" {
		opts.DefaultGateway = model.GatewayRazorpay
	}
	return &PaymentService{
		store:          store,
		gateways:       byName,
		defaultGateway: opts.DefaultGateway,
		timeout:        opts.GatewayTimeout,
		notifier:       newNotifier(n, opts.NotifyTimeout, opts.Log),
		now:            opts.Now,
		log:            opts.Log,
	}
}

func (s *PaymentService) pick(name string) (gateway.Gateway, error) {
	gw := model.Gateway(strings.ToUpper(strings.TrimSpace(name)))
	if gw == "" {
		gw = s.defaultGateway
	}
	g, ok := s.gateways[gw]
	if !ok {
		return nil, apperror.ValidationFields("unsupported payment gateway", map[string]string{"gateway": "must be RAZORPAY or PLURAL"})
	}
	return g, nil
}

func (c *CreateOrderCommand) validate() error {
	fields := map[string]string{}
	if c.BookingID == 0 {
		fields["bookingId"] = "required"
	}
	if c.Amount <= 0 {
		fields["amount"] = "must be greater than 0"
	}
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	if len(c.Currency) != 3 {
		fields["currency"] = "must be a 3-letter ISO code"
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		fields["email"] = "must be a valid email"
	}
	if strings.TrimSpace(c.Name) == "" {
		fields["name"] = "required"
	}
	if len(fields) > 0 {
		return apperror.ValidationFields("invalid order request", fields)
	}
	return nil
}

// The client echoes the booking total; it is never the source of the price.
func checkOrderMatchesBooking(cmd CreateOrderCommand, b *model.Booking) error {
	fields := map[string]string{}
	if b.TotalAmount > 0 && cmd.Amount != b.TotalAmount {
		fields["amount"] = "must equal the booking total"
	}
	if b.Currency != "" && !strings.EqualFold(b.Currency, cmd.Currency) {
		fields["currency"] = "must match the booking currency"
	}
	if len(fields) > 0 {
		return apperror.ValidationFields("order does not match booking", fields)
	}
	return nil
}

// CreateOrder opens a gateway order and records a PENDING transaction for
// it.  The gateway call happens outside any DB transaction so no row lock
// is held across the network.
func (s *PaymentService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*OrderResult, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	gw, err := s.pick(cmd.Gateway)
	if err != nil {
		return nil, err
	}

	b, err := s.store.GetBooking(ctx, cmd.BookingID)
	if err != nil {
		return nil, lookupErr(err, "booking")
	}
	if b.Status != model.BookingPending {
		return nil, apperror.Conflicting("booking is not awaiting payment")
	}
	if err := checkOrderMatchesBooking(cmd, b); err != nil {
		return nil, err
	}

	amount, discount := cmd.Amount, int64(0)
	var couponCode *string
	if code := normaliseCode(cmd.CouponCode); code != "" {
		c, err := s.store.GetCouponByCode(ctx, code)
		if err != nil {
			if isNotFound(err) {
				return nil, couponErr(model.ErrCouponInvalid)
			}
			return nil, storeErr("load coupon", err)
		}
		if err := c.Check(amount, s.now()); err != nil {
			return nil, couponErr(err)
		}
		discount = c.Discount(amount)
		amount -= discount
		if amount <= 0 {
			return nil, apperror.ValidationFields("discounted amount must be positive", map[string]string{"couponCode": "discount covers the full amount"})
		}
		couponCode = &c.Code
	}

	entry := s.log.WithFields(logrus.Fields{"booking_id": b.ID, "gateway": gw.Name()})
	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	order, err := gw.CreateOrder(gctx, gateway.OrderRequest{
		Amount:        amount,
		Currency:      cmd.Currency,
		Receipt:       fmt.Sprintf("bk_%d_%s", b.ID, uuid.NewString()[:8]),
		CustomerName:  strings.TrimSpace(cmd.Name),
		CustomerEmail: strings.TrimSpace(cmd.Email),
		Notes:         map[string]string{"booking_id": strconv.FormatUint(b.ID, 10)},
	})
	if err != nil {
		entry.WithError(err).Error("gateway order creation failed")
		return nil, apperror.Upstream("create gateway order", err)
	}

	t := &model.Transaction{
		BookingID:      b.ID,
		Amount:         amount,
		Currency:       cmd.Currency,
		Status:         model.TxnPending,
		Gateway:        gw.Name(),
		GatewayOrderID: order.OrderID,
		CouponCode:     couponCode,
		DiscountAmount: discount,
	}
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		entry.WithField("order_id", order.OrderID).WithError(err).Error("failed to record transaction")
		return nil, storeErr("create transaction", err)
	}
	entry.WithFields(logrus.Fields{"order_id": order.OrderID, "transaction_id": t.ID}).Info("payment order created")

	return &OrderResult{
		OrderID:        order.OrderID,
		TransactionID:  t.ID,
		Gateway:        gw.Name(),
		Amount:         amount,
		DiscountAmount: discount,
		Currency:       cmd.Currency,
		RedirectURL:    order.RedirectURL,
		KeyID:          order.PublicKey,
	}, nil
}

const reasonNotPending = "booking no longer pending"

// VerifyPayment reconciles one callback.  The verdict is computed first and
// applied under row locks on the booking and then the transaction:
//
//	OK      -> transaction SUCCESS, booking CONFIRMED, coupon use counted
//	not OK  -> transaction FAILED,  booking CANCELLED
//
// Only a PENDING booking moves.  When the booking already left PENDING
// through another order, expiry or cancellation, the transaction alone is
// marked FAILED.  A verification error counts as not OK, a pending verdict
// changes nothing.  Re-delivered callbacks find the transaction terminal
// and change nothing either.
func (s *PaymentService) VerifyPayment(ctx context.Context, gwName model.Gateway, cb gateway.Callback) (*VerifyResult, error) {
	if strings.TrimSpace(cb.OrderID) == "" {
		return nil, apperror.ValidationFields("orderId is required", map[string]string{"orderId": "required"})
	}
	gw, err := s.pick(string(gwName))
	if err != nil {
		return nil, err
	}
	entry := s.log.WithFields(logrus.Fields{"order_id": cb.OrderID, "gateway": gw.Name()})

	// Unlocked read to find the booking.  Rows are locked booking first, the
	// same order CancelBooking and the expiry sweep use.
	pre, err := s.store.GetTransactionByOrderID(ctx, cb.OrderID)
	if err != nil {
		return nil, lookupErr(err, "transaction")
	}
	if pre.Gateway != gw.Name() {
		return nil, apperror.Invalid("order does not belong to this gateway")
	}

	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	verdict, verr := gw.Verify(gctx, cb)
	cancel()
	if verr != nil {
		entry.WithError(verr).Warn("payment verification errored; treating as failed")
		verdict = gateway.Verdict{OK: false, Reason: "payment verification failed"}
	}

	var (
		res     VerifyResult
		b       *model.Booking
		t       *model.Transaction
		changed bool
		stale   bool
		counted = true
	)
	err = s.store.InTx(ctx, func(q Queries) error {
		var err error
		if b, err = q.LockBooking(ctx, pre.BookingID); err != nil {
			return lookupErr(err, "booking")
		}
		if t, err = q.LockTransactionByOrderID(ctx, cb.OrderID); err != nil {
			return lookupErr(err, "transaction")
		}
		res = VerifyResult{TransactionID: t.ID, BookingID: t.BookingID, Status: t.Status}
		if t.Status.IsTerminal() {
			res.OK = t.Status == model.TxnSuccess
			res.AlreadyProcessed = true
			if t.FailureReason != nil {
				res.Reason = *t.FailureReason
			}
			return nil
		}
		if verdict.Pending {
			res.Reason = verdict.Reason
			return nil
		}

		t.GatewayPaymentID = strPtr(cb.PaymentID)
		t.Signature = strPtr(cb.Signature)
		if cb.Method != "" {
			t.PaymentMethod = cb.Method
		}
		changed = true

		if b.Status != model.BookingPending {
			t.Status = model.TxnFailed
			t.FailureReason = strPtr(reasonNotPending)
			if err := q.SettleTransaction(ctx, t); err != nil {
				return storeErr("settle transaction", err)
			}
			stale = true
			res.Status, res.Reason = t.Status, reasonNotPending
			return nil
		}

		siblings := "booking cancelled"
		if verdict.OK {
			t.Status, b.Status = model.TxnSuccess, model.BookingConfirmed
			t.FailureReason = nil
			siblings = "booking paid by another order"
		} else {
			t.Status, b.Status = model.TxnFailed, model.BookingCancelled
			t.FailureReason = strPtr(verdict.Reason)
		}
		if err := q.SettleTransaction(ctx, t); err != nil {
			return storeErr("settle transaction", err)
		}
		if err := q.UpdateBookingStatus(ctx, b.ID, b.Status); err != nil {
			return storeErr("update booking status", err)
		}
		if err := q.FailPendingTransactions(ctx, b.ID, siblings); err != nil {
			return storeErr("fail sibling transactions", err)
		}
		if verdict.OK && t.CouponCode != nil {
			if counted, err = q.IncrementCouponUse(ctx, *t.CouponCode); err != nil {
				return storeErr("count coupon use", err)
			}
		}
		res.OK, res.Status, res.Reason = verdict.OK, t.Status, verdict.Reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry = entry.WithFields(logrus.Fields{"transaction_id": res.TransactionID, "booking_id": res.BookingID})
	if !changed {
		switch {
		case verdict.Pending && !res.AlreadyProcessed:
			entry.Info("payment not settled by gateway yet")
		case verdict.OK && res.Status == model.TxnFailed:
			entry.Error("gateway reports payment for a failed transaction; refund required")
		default:
			entry.WithField("status", res.Status).Info("duplicate payment callback ignored")
		}
		return &res, nil
	}
	if stale {
		if verdict.OK {
			entry.WithField("booking_status", b.Status).Error("payment captured for a booking that is no longer pending; refund required")
		} else {
			entry.WithField("booking_status", b.Status).Info("late payment failure recorded; booking unchanged")
		}
		return &res, nil
	}
	if !counted {
		entry.WithField("coupon", *t.CouponCode).Warn("coupon exhausted before confirmation; payment confirmed anyway")
	}

	if res.OK {
		entry.Info("payment confirmed")
		s.notifier.send(ctx, noticeFor(notify.KindConfirmed, b, t, "", s.now()))
	} else {
		entry.WithField("reason", res.Reason).Warn("payment failed")
		s.notifier.send(ctx, noticeFor(notify.KindPaymentFailed, b, t, res.Reason, s.now()))
	}
	return &res, nil
}

// TransactionByOrder looks a transaction up by gateway order id.
func (s *PaymentService) TransactionByOrder(ctx context.Context, orderID string) (*model.Transaction, error) {
	t, err := s.store.GetTransactionByOrderID(ctx, orderID)
	if err != nil {
		return nil, lookupErr(err, "transaction")
	}
	return t, nil
}
