package repository

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

const roomColumns = "id, hotel_id, name, price, capacity, total_count, created_at, updated_at"

func scanRoom(s scanner) (*model.Room, error) {
	var r model.Room
	if err := s.Scan(&r.ID, &r.HotelID, &r.Name, &r.Price, &r.Capacity, &r.TotalCount, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (q *Queries) ListRoomsByHotel(ctx context.Context, hotelID uint64) ([]model.Room, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT "+roomColumns+" FROM rooms WHERE hotel_id = ? ORDER BY id", hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (q *Queries) GetRoom(ctx context.Context, id uint64) (*model.Room, error) {
	r, err := scanRoom(q.db.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM rooms WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

// LockRoom reads the room and, inside a transaction, holds its row lock
// until commit.  This serialises bookings and inventory changes per room.
func (q *Queries) LockRoom(ctx context.Context, id uint64) (*model.Room, error) {
	r, err := scanRoom(q.db.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM rooms WHERE id = ?"+q.forUpdate(), id))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (q *Queries) CreateRoom(ctx context.Context, r *model.Room) error {
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO rooms (hotel_id, name, price, capacity, total_count) VALUES (?, ?, ?, ?, ?)",
		r.HotelID, r.Name, r.Price, r.Capacity, r.TotalCount)
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
	r.ID = uint64(id)
	return nil
}

func (q *Queries) UpdateRoomTotalCount(ctx context.Context, id uint64, total int) error {
	res, err := q.db.ExecContext(ctx, "UPDATE rooms SET total_count = ? WHERE id = ?", total, id)
	if err != nil {
		return err
	}
	return affected(res)
}

// OverlappingRanges uses the half-open test rb.check_in < out AND
// rb.check_out > in, ignoring cancelled bookings.  Inside a transaction it
// is a locking read so it sees rows committed after the snapshot began.
func (q *Queries) OverlappingRanges(ctx context.Context, roomID uint64, r model.DateRange) ([]model.DateRange, error) {
	const query = `SELECT rb.check_in, rb.check_out
FROM room_bookings rb
JOIN bookings b ON b.id = rb.booking_id
WHERE rb.room_id = ? AND b.status <> 'CANCELLED' AND rb.check_in < ? AND rb.check_out > ?`
	rows, err := q.db.QueryContext(ctx, query+q.forShare(), roomID, r.CheckOut, r.CheckIn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.DateRange
	for rows.Next() {
		var d model.DateRange
		if err := rows.Scan(&d.CheckIn, &d.CheckOut); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ActiveUnitCount counts live units still occupied after day; a locking
// read inside a transaction, like OverlappingRanges.
func (q *Queries) ActiveUnitCount(ctx context.Context, roomID uint64, day time.Time) (int, error) {
	const query = `SELECT COUNT(*)
FROM room_bookings rb
JOIN bookings b ON b.id = rb.booking_id
WHERE rb.room_id = ? AND b.status <> 'CANCELLED' AND rb.check_out > ?`
	var n int
	err := q.db.QueryRowContext(ctx, query+q.forShare(), roomID, day).Scan(&n)
	return n, err
}
