package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

const bookingColumns = `id, reference, check_in, check_out, adults, childrens, full_name, phone_no, email, status,
location_id, hotel_id, user_id, total_amount, currency, expires_at, created_at, updated_at`

func scanBooking(s scanner) (*model.Booking, error) {
	var (
		b       model.Booking
		userID  sql.NullInt64
		expires sql.NullTime
	)
	err := s.Scan(&b.ID, &b.Reference, &b.CheckIn, &b.CheckOut, &b.Adults, &b.Childrens, &b.FullName, &b.PhoneNo, &b.Email, &b.Status,
		&b.LocationID, &b.HotelID, &userID, &b.TotalAmount, &b.Currency, &expires, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		id := uint64(userID.Int64)
		b.UserID = &id
	}
	if expires.Valid {
		t := expires.Time
		b.ExpiresAt = &t
	}
	return &b, nil
}

// CreateBooking inserts b and reads back the generated id and timestamps.
func (q *Queries) CreateBooking(ctx context.Context, b *model.Booking) error {
	var userID sql.NullInt64
	if b.UserID != nil {
		userID = sql.NullInt64{Int64: int64(*b.UserID), Valid: true}
	}
	var expires sql.NullTime
	if b.ExpiresAt != nil {
		expires = sql.NullTime{Time: *b.ExpiresAt, Valid: true}
	}
	res, err := q.db.ExecContext(ctx, `INSERT INTO bookings
(reference, check_in, check_out, adults, childrens, full_name, phone_no, email, status, location_id, hotel_id, user_id, total_amount, currency, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference, b.CheckIn, b.CheckOut, b.Adults, b.Childrens, b.FullName, b.PhoneNo, b.Email, b.Status,
		b.LocationID, b.HotelID, userID, b.TotalAmount, b.Currency, expires)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return q.db.QueryRowContext(ctx, "SELECT created_at, updated_at FROM bookings WHERE id = ?", b.ID).
		Scan(&b.CreatedAt, &b.UpdatedAt)
}

// CreateRoomBookings inserts all rows with one multi-row INSERT.  IDs are
// assigned from the first generated id; InnoDB hands out consecutive ids
// for a single statement under the default lock mode.
func (q *Queries) CreateRoomBookings(ctx context.Context, rows []model.RoomBooking) error {
	if len(rows) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO room_bookings (booking_id, room_id, check_in, check_out) VALUES ")
	args := make([]any, 0, len(rows)*4)
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?)")
		args = append(args, r.BookingID, r.RoomID, r.CheckIn, r.CheckOut)
	}
	res, err := q.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return err
	}
	first, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i := range rows {
		rows[i].ID = uint64(first) + uint64(i)
	}
	return nil
}

func (q *Queries) roomBookings(ctx context.Context, bookingID uint64) ([]model.RoomBooking, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, booking_id, room_id, check_in, check_out FROM room_bookings WHERE booking_id = ? ORDER BY id", bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RoomBooking
	for rows.Next() {
		var r model.RoomBooking
		if err := rows.Scan(&r.ID, &r.BookingID, &r.RoomID, &r.CheckIn, &r.CheckOut); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) getBooking(ctx context.Context, id uint64, lock bool) (*model.Booking, error) {
	query := "SELECT " + bookingColumns + " FROM bookings WHERE id = ?"
	if lock {
		query += q.forUpdate()
	}
	b, err := scanBooking(q.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	if b.Rooms, err = q.roomBookings(ctx, id); err != nil {
		return nil, err
	}
	return b, nil
}

func (q *Queries) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return q.getBooking(ctx, id, false)
}

func (q *Queries) LockBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return q.getBooking(ctx, id, true)
}

func (q *Queries) ListBookings(ctx context.Context, f service.BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	query := "SELECT " + bookingColumns + " FROM bookings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateBookingStatus(ctx context.Context, id uint64, status model.BookingStatus) error {
	res, err := q.db.ExecContext(ctx, "UPDATE bookings SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	return affected(res)
}

// DeleteBooking relies on ON DELETE CASCADE for room_bookings and
// transactions.
func (q *Queries) DeleteBooking(ctx context.Context, id uint64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (q *Queries) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id FROM bookings WHERE status = 'PENDING' AND expires_at IS NOT NULL AND expires_at <= ? ORDER BY id LIMIT ?",
		now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
