package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/apperror"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

func TestCatalog(t *testing.T) {
	s := newMemStore()
	svc := NewCatalogService(s)
	ctx := context.Background()

	requireKind(t, svc.CreateHotel(ctx, &model.Hotel{}), apperror.Validation)

	h := &model.Hotel{LocationID: 3, Name: "  Lakeview "}
	require.NoError(t, svc.CreateHotel(ctx, h))
	assert.Equal(t, "Lakeview", h.Name)

	requireKind(t, svc.CreateRoom(ctx, &model.Room{HotelID: 999, Name: "Deluxe", Price: 100, Capacity: 2}), apperror.NotFound)
	requireKind(t, svc.CreateRoom(ctx, &model.Room{HotelID: h.ID, Price: 0}), apperror.Validation)
	require.NoError(t, svc.CreateRoom(ctx, &model.Room{HotelID: h.ID, Name: "Deluxe", Price: 7500, Capacity: 2, TotalCount: 4}))

	hotels, err := svc.ListHotels(ctx)
	require.NoError(t, err)
	assert.Len(t, hotels, 1)
	rooms, err := svc.ListRooms(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, 4, rooms[0].TotalCount)

	_, err = svc.ListRooms(ctx, 999)
	requireKind(t, err, apperror.NotFound)
}
