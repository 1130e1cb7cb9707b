package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-reservation/internal/apperror"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// CatalogService serves hotels and room types.
type CatalogService struct {
	store Store
}

func NewCatalogService(store Store) *CatalogService { return &CatalogService{store: store} }

func (s *CatalogService) ListHotels(ctx context.Context) ([]model.Hotel, error) {
	out, err := s.store.ListHotels(ctx)
	if err != nil {
		return nil, storeErr("list hotels", err)
	}
	return out, nil
}

func (s *CatalogService) GetHotel(ctx context.Context, id uint64) (*model.Hotel, error) {
	h, err := s.store.GetHotel(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "hotel")
	}
	return h, nil
}

func (s *CatalogService) ListRooms(ctx context.Context, hotelID uint64) ([]model.Room, error) {
	if _, err := s.GetHotel(ctx, hotelID); err != nil {
		return nil, err
	}
	out, err := s.store.ListRoomsByHotel(ctx, hotelID)
	if err != nil {
		return nil, storeErr("list rooms", err)
	}
	return out, nil
}

func (s *CatalogService) CreateHotel(ctx context.Context, h *model.Hotel) error {
	h.Name = strings.TrimSpace(h.Name)
	fields := map[string]string{}
	if h.Name == "" {
		fields["name"] = "required"
	}
	if h.LocationID == 0 {
		fields["locationId"] = "required"
	}
	if len(fields) > 0 {
		return apperror.ValidationFields("invalid hotel", fields)
	}
	return writeErr("create hotel", s.store.CreateHotel(ctx, h), "hotel already exists")
}

func (s *CatalogService) CreateRoom(ctx context.Context, r *model.Room) error {
	r.Name = strings.TrimSpace(r.Name)
	fields := map[string]string{}
	if r.HotelID == 0 {
		fields["hotelId"] = "required"
	}
	if r.Name == "" {
		fields["name"] = "required"
	}
	if r.Price <= 0 {
		fields["price"] = "must be greater than 0"
	}
	if r.Capacity < 1 {
		fields["capacity"] = "must be at least 1"
	}
	if r.TotalCount < 0 {
		fields["totalCount"] = "must not be negative"
	}
	if len(fields) > 0 {
		return apperror.ValidationFields("invalid room", fields)
	}
	if _, err := s.GetHotel(ctx, r.HotelID); err != nil {
		return err
	}
	return writeErr("create room", s.store.CreateRoom(ctx, r), "room already exists")
}

// writeErr maps a duplicate to a conflict and anything else to a storage error.
func writeErr(op string, err error, dupMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrDuplicate):
		return apperror.Conflicting(dupMsg)
	}
	return storeErr(op, err)
}
