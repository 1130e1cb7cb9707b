package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// CatalogHandler serves hotel browsing, availability queries and admin
// catalog writes.
type CatalogHandler struct {
	Catalog      Catalog
	Availability Availability
	Log          logrus.FieldLogger
}

func NewCatalogHandler(cat Catalog, avail Availability, log logrus.FieldLogger) *CatalogHandler {
	return &CatalogHandler{Catalog: cat, Availability: avail, Log: log}
}

// ListHotels handles GET /v1/hotels.
func (h *CatalogHandler) ListHotels(c echo.Context) error {
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	hotels, err := h.Catalog.ListHotels(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if hotels == nil {
		hotels = []model.Hotel{}
	}
	return c.JSON(http.StatusOK, hotels)
}

// ListRooms handles GET /v1/hotels/:id/rooms.
func (h *CatalogHandler) ListRooms(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	rooms, err := h.Catalog.ListRooms(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	return c.JSON(http.StatusOK, rooms)
}

// HotelAvailability handles GET /v1/hotels/:id/availability and lists the
// rooms with at least one free unit for the whole stay.
func (h *CatalogHandler) HotelAvailability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	in, out, err := parseStay(c.QueryParam("checkIn"), c.QueryParam("checkOut"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	rooms, err := h.Availability.ListAvailableRooms(ctx, id, in, out)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hotelId":  id,
		"checkIn":  c.QueryParam("checkIn"),
		"checkOut": c.QueryParam("checkOut"),
		"rooms":    rooms,
	})
}

// RoomAvailability handles GET /v1/rooms/:id/availability.
func (h *CatalogHandler) RoomAvailability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	in, out, err := parseStay(c.QueryParam("checkIn"), c.QueryParam("checkOut"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	ok, err := h.Availability.IsRoomAvailable(ctx, id, in, out)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"roomId": id, "available": ok})
}

type createHotelReq struct {
	LocationID uint64 `json:"locationId" validate:"required"`
	Name       string `json:"name" validate:"required,max=255"`
	Address    string `json:"address" validate:"max=512"`
}

// CreateHotel handles POST /v1/admin/hotels.
func (h *CatalogHandler) CreateHotel(c echo.Context) error {
	var req createHotelReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	hotel := &model.Hotel{LocationID: req.LocationID, Name: req.Name, Address: req.Address}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	if err := h.Catalog.CreateHotel(ctx, hotel); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, hotel)
}

type createRoomReq struct {
	HotelID    uint64 `json:"hotelId" validate:"required"`
	Name       string `json:"name" validate:"required,max=255"`
	Price      int64  `json:"price" validate:"gt=0"`
	Capacity   int    `json:"capacity" validate:"min=1"`
	TotalCount int    `json:"totalCount" validate:"min=0"`
}

// CreateRoom handles POST /v1/admin/rooms.
func (h *CatalogHandler) CreateRoom(c echo.Context) error {
	var req createRoomReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	room := &model.Room{HotelID: req.HotelID, Name: req.Name, Price: req.Price, Capacity: req.Capacity, TotalCount: req.TotalCount}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	if err := h.Catalog.CreateRoom(ctx, room); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, room)
}
