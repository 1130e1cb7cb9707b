package repository

import (
	"context"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

const hotelColumns = "id, location_id, name, address, created_at"

func scanHotel(s scanner) (*model.Hotel, error) {
	var h model.Hotel
	if err := s.Scan(&h.ID, &h.LocationID, &h.Name, &h.Address, &h.CreatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

func (q *Queries) ListHotels(ctx context.Context) ([]model.Hotel, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT "+hotelColumns+" FROM hotels ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Hotel
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

func (q *Queries) GetHotel(ctx context.Context, id uint64) (*model.Hotel, error) {
	h, err := scanHotel(q.db.QueryRowContext(ctx, "SELECT "+hotelColumns+" FROM hotels WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return h, nil
}

func (q *Queries) CreateHotel(ctx context.Context, h *model.Hotel) error {
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO hotels (location_id, name, address) VALUES (?, ?, ?)",
		h.LocationID, h.Name, h.Address)
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
	h.ID = uint64(id)
	return nil
}
