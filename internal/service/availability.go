package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/apperror"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// AvailabilityService answers "can this room take another guest for these
// nights".  A room with TotalCount units is unavailable only when, on some
// night of the window, all units are held by non-cancelled bookings.
type AvailabilityService struct {
	q Queries
}

func NewAvailabilityService(q Queries) *AvailabilityService {
	return &AvailabilityService{q: q}
}

// IsRoomAvailable reports whether at least one unit of roomID is free for
// every night of [checkIn, checkOut).
func (s *AvailabilityService) IsRoomAvailable(ctx context.Context, roomID uint64, checkIn, checkOut time.Time) (bool, error) {
	window, err := stayRange(checkIn, checkOut)
	if err != nil {
		return false, err
	}
	room, err := s.q.GetRoom(ctx, roomID)
	if err != nil {
		return false, lookupErr(err, "room")
	}
	free, err := freeUnits(ctx, s.q, room, window)
	if err != nil {
		return false, err
	}
	return free >= 1, nil
}

// ListAvailableRooms returns the rooms of hotelID with at least one free
// unit over the window, in id order.
func (s *AvailabilityService) ListAvailableRooms(ctx context.Context, hotelID uint64, checkIn, checkOut time.Time) ([]model.Room, error) {
	window, err := stayRange(checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	if _, err := s.q.GetHotel(ctx, hotelID); err != nil {
		return nil, lookupErr(err, "hotel")
	}
	rooms, err := s.q.ListRoomsByHotel(ctx, hotelID)
	if err != nil {
		return nil, storeErr("list rooms", err)
	}
	out := make([]model.Room, 0, len(rooms))
	for i := range rooms {
		free, err := freeUnits(ctx, s.q, &rooms[i], window)
		if err != nil {
			return nil, err
		}
		if free >= 1 {
			out = append(out, rooms[i])
		}
	}
	return out, nil
}

func stayRange(checkIn, checkOut time.Time) (model.DateRange, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return model.DateRange{}, apperror.ValidationFields("checkIn and checkOut are required", map[string]string{
			"checkIn":  "required",
			"checkOut": "required",
		})
	}
	r, err := model.NewDateRange(checkIn, checkOut)
	if errors.Is(err, model.ErrEmptyRange) {
		return model.DateRange{}, apperror.ValidationFields(err.Error(), map[string]string{"checkOut": "must be after checkIn"})
	}
	return r, err
}

// freeUnits is TotalCount minus the peak concurrent occupancy of room over
// window.  It may be negative after an inventory reduction.
func freeUnits(ctx context.Context, q Queries, room *model.Room, window model.DateRange) (int, error) {
	booked, err := q.OverlappingRanges(ctx, room.ID, window)
	if err != nil {
		return 0, storeErr("load room bookings", err)
	}
	return room.TotalCount - peakOccupancy(window, booked), nil
}

type edge struct {
	at    time.Time
	delta int
}

// peakOccupancy is the maximum number of ranges in booked that cover the
// same night inside window.  On equal timestamps departures are applied
// before arrivals, so back-to-back stays share a unit.
func peakOccupancy(window model.DateRange, booked []model.DateRange) int {
	edges := make([]edge, 0, 2*len(booked))
	for _, b := range booked {
		if !b.Overlaps(window) {
			continue
		}
		start, end := b.CheckIn, b.CheckOut
		if start.Before(window.CheckIn) {
			start = window.CheckIn
		}
		if end.After(window.CheckOut) {
			end = window.CheckOut
		}
		edges = append(edges, edge{start, +1}, edge{end, -1})
	}
	sort.Slice(edges, func(i, j int) bool {
		if !edges[i].at.Equal(edges[j].at) {
			return edges[i].at.Before(edges[j].at)
		}
		return edges[i].delta < edges[j].delta
	})
	cur, peak := 0, 0
	for _, e := range edges {
		cur += e.delta
		if cur > peak {
			peak = cur
		}
	}
	return peak
}
