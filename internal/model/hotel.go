package model

import "time"

// Hotel is a property that owns room types.  LocationID groups hotels by
// city or region for browsing.
type Hotel struct {
	ID         uint64    `json:"id"`
	LocationID uint64    `json:"locationId"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Room is a room type inside a hotel.  TotalCount is the number of physical
// units of this type; Price is per night in minor currency units.
type Room struct {
	ID         uint64    `json:"id"`
	HotelID    uint64    `json:"hotelId"`
	Name       string    `json:"name"`
	Price      int64     `json:"price"`
	Capacity   int       `json:"capacity"`
	TotalCount int       `json:"totalCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
