package repository

import (
	"context"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

const couponColumns = `id, code, discount_type, discount_value, start_date, end_date, max_uses, current_uses,
min_booking_amount, is_active, created_at`

func scanCoupon(s scanner) (*model.Coupon, error) {
	var c model.Coupon
	err := s.Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.StartDate, &c.EndDate, &c.MaxUses, &c.CurrentUses,
		&c.MinBookingAmount, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *Queries) GetCouponByCode(ctx context.Context, code string) (*model.Coupon, error) {
	c, err := scanCoupon(q.db.QueryRowContext(ctx, "SELECT "+couponColumns+" FROM coupons WHERE code = ?", code))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (q *Queries) ListCoupons(ctx context.Context) ([]model.Coupon, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT "+couponColumns+" FROM coupons ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (q *Queries) CreateCoupon(ctx context.Context, c *model.Coupon) error {
	res, err := q.db.ExecContext(ctx, `INSERT INTO coupons
(code, discount_type, discount_value, start_date, end_date, max_uses, current_uses, min_booking_amount, is_active)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Code, c.DiscountType, c.DiscountValue, c.StartDate, c.EndDate, c.MaxUses, c.CurrentUses, c.MinBookingAmount, c.IsActive)
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
	c.ID = uint64(id)
	return nil
}

// IncrementCouponUse is a guarded single-statement update, so two
// confirmations racing for the last use cannot both succeed.
func (q *Queries) IncrementCouponUse(ctx context.Context, code string) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		"UPDATE coupons SET current_uses = current_uses + 1 WHERE code = ? AND current_uses < max_uses", code)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
