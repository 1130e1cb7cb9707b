package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

const transactionColumns = `id, booking_id, amount, currency, status, gateway, gateway_order_id, gateway_payment_id,
signature, payment_method, coupon_code, discount_amount, failure_reason, created_at, updated_at`

func scanTransaction(s scanner) (*model.Transaction, error) {
	var (
		t                            model.Transaction
		paymentID, sig, coupon, fail sql.NullString
	)
	err := s.Scan(&t.ID, &t.BookingID, &t.Amount, &t.Currency, &t.Status, &t.Gateway, &t.GatewayOrderID, &paymentID,
		&sig, &t.PaymentMethod, &coupon, &t.DiscountAmount, &fail, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.GatewayPaymentID = stringPtr(paymentID)
	t.Signature = stringPtr(sig)
	t.CouponCode = stringPtr(coupon)
	t.FailureReason = stringPtr(fail)
	// rows written before SUCCESS replaced COMPLETED
	if st, ok := model.ParseTransactionStatus(string(t.Status)); ok {
		t.Status = st
	}
	return &t, nil
}

func (q *Queries) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	res, err := q.db.ExecContext(ctx, `INSERT INTO transactions
(booking_id, amount, currency, status, gateway, gateway_order_id, payment_method, coupon_code, discount_amount)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.BookingID, t.Amount, t.Currency, t.Status, t.Gateway, t.GatewayOrderID, t.PaymentMethod,
		nullString(t.CouponCode), t.DiscountAmount)
	if err != nil {
		if isDuplicate(err) {
			return model.ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

func (q *Queries) transactionByOrder(ctx context.Context, orderID string, lock bool) (*model.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE gateway_order_id = ?"
	if lock {
		query += q.forUpdate()
	}
	t, err := scanTransaction(q.db.QueryRowContext(ctx, query, orderID))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (q *Queries) GetTransactionByOrderID(ctx context.Context, orderID string) (*model.Transaction, error) {
	return q.transactionByOrder(ctx, orderID, false)
}

// LockTransactionByOrderID is the serialisation point for callback
// re-delivery: a second callback waits here until the first commits and
// then sees the terminal status.
func (q *Queries) LockTransactionByOrderID(ctx context.Context, orderID string) (*model.Transaction, error) {
	return q.transactionByOrder(ctx, orderID, true)
}

func (q *Queries) LatestTransactionForBooking(ctx context.Context, bookingID uint64) (*model.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE booking_id = ? ORDER BY id DESC LIMIT 1", bookingID))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (q *Queries) SettleTransaction(ctx context.Context, t *model.Transaction) error {
	res, err := q.db.ExecContext(ctx, `UPDATE transactions
SET status = ?, gateway_payment_id = ?, signature = ?, payment_method = ?, failure_reason = ?
WHERE id = ?`,
		t.Status, nullString(t.GatewayPaymentID), nullString(t.Signature), t.PaymentMethod, nullString(t.FailureReason), t.ID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (q *Queries) FailPendingTransactions(ctx context.Context, bookingID uint64, reason string) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE transactions SET status = 'FAILED', failure_reason = ? WHERE booking_id = ? AND status = 'PENDING'",
		reason, bookingID)
	return err
}
