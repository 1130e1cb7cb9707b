package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/apperror"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// InventoryChange sets the number of physical units of a room.
type InventoryChange struct {
	RoomID     uint64
	TotalCount int
}

type InventoryService struct {
	store Store
	now   func() time.Time
	log   logrus.FieldLogger
}

func NewInventoryService(store Store, now func() time.Time, log logrus.FieldLogger) *InventoryService {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &InventoryService{store: store, now: now, log: log}
}

// UpdateTotals applies all changes or none.  A room may not drop below the
// number of its units held by bookings that are not cancelled and have not
// checked out yet.
func (s *InventoryService) UpdateTotals(ctx context.Context, changes []InventoryChange) ([]model.Room, error) {
	if len(changes) == 0 {
		return nil, apperror.ValidationFields("no inventory changes given", map[string]string{"items": "required"})
	}
	seen := map[uint64]bool{}
	fields := map[string]string{}
	for i, c := range changes {
		key := "items[" + strconv.Itoa(i) + "]"
		switch {
		case c.RoomID == 0:
			fields[key+".roomId"] = "required"
		case seen[c.RoomID]:
			fields[key+".roomId"] = "duplicate room"
		}
		if c.TotalCount < 0 {
			fields[key+".totalCount"] = "must not be negative"
		}
		seen[c.RoomID] = true
	}
	if len(fields) > 0 {
		return nil, apperror.ValidationFields("invalid inventory change", fields)
	}

	sorted := append([]InventoryChange(nil), changes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RoomID < sorted[j].RoomID })
	today := model.Day(s.now())

	updated := make([]model.Room, 0, len(sorted))
	err := s.store.InTx(ctx, func(q Queries) error {
		for _, c := range sorted {
			room, err := q.LockRoom(ctx, c.RoomID)
			if err != nil {
				return lookupErr(err, fmt.Sprintf("room %d", c.RoomID))
			}
			active, err := q.ActiveUnitCount(ctx, c.RoomID, today)
			if err != nil {
				return storeErr("count active bookings", err)
			}
			if c.TotalCount < active {
				return apperror.Conflicting(fmt.Sprintf("room %d has %d active bookings; totalCount cannot be %d", c.RoomID, active, c.TotalCount))
			}
			if err := q.UpdateRoomTotalCount(ctx, c.RoomID, c.TotalCount); err != nil {
				return storeErr("update room inventory", err)
			}
			room.TotalCount = c.TotalCount
			updated = append(updated, *room)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("rooms", len(updated)).Info("room inventory updated")
	return updated, nil
}
