package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/apperror"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

// BookingHandler serves guest and customer booking endpoints.
type BookingHandler struct {
	Bookings Bookings
	Log      logrus.FieldLogger
}

func NewBookingHandler(b Bookings, log logrus.FieldLogger) *BookingHandler {
	return &BookingHandler{Bookings: b, Log: log}
}

type createBookingReq struct {
	CheckIn    string   `json:"checkIn" validate:"required"`
	CheckOut   string   `json:"checkOut" validate:"required"`
	Adults     int      `json:"adults" validate:"min=1"`
	Childrens  int      `json:"childrens" validate:"min=0"`
	FullName   string   `json:"fullName" validate:"required,max=255"`
	PhoneNo    string   `json:"phoneNo" validate:"required,max=32"`
	Email      string   `json:"email" validate:"required,email"`
	LocationID uint64   `json:"locationId" validate:"required"`
	HotelID    uint64   `json:"hotelId" validate:"required"`
	RoomIDs    []uint64 `json:"roomIds" validate:"omitempty,max=20,dive,gt=0"`
}

// parseDay parses a YYYY-MM-DD field.  An empty value yields the zero time
// and is reported as missing by the service.
func parseDay(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(model.DateLayout, v)
	if err != nil {
		return time.Time{}, apperror.ValidationFields(model.ErrInvalidLayout.Error(), map[string]string{field: "must be a date YYYY-MM-DD"})
	}
	return d, nil
}

func parseStay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := parseDay("checkIn", checkIn)
	if err != nil {
		return in, in, err
	}
	out, err := parseDay("checkOut", checkOut)
	return in, out, err
}

// Create handles POST /v1/bookings.  A valid bearer token links the
// booking to the caller; guests book anonymously.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	in, out, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	cmd := service.CreateBookingCommand{
		CheckIn:    in,
		CheckOut:   out,
		Adults:     req.Adults,
		Childrens:  req.Childrens,
		FullName:   req.FullName,
		PhoneNo:    req.PhoneNo,
		Email:      req.Email,
		LocationID: req.LocationID,
		HotelID:    req.HotelID,
		RoomIDs:    req.RoomIDs,
	}
	if uid, ok := middleware.UserID(c); ok {
		cmd.UserID = &uid
	}

	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	b, err := h.Bookings.CreateBooking(ctx, cmd)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Get handles GET /v1/bookings/:id.  Signed-in owners and admins need no
// more; anonymous guests pass the booking reference as ?ref=.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	uid, _ := middleware.UserID(c)
	who := service.Actor{UserID: uid, Admin: middleware.IsAdmin(c)}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	b, err := h.Bookings.ViewBooking(ctx, id, who, c.QueryParam("ref"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Mine handles GET /v1/my-bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	f, err := listFilter(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	f.UserID = &uid
	return h.list(c, f)
}

// AdminList handles GET /v1/admin/bookings.
func (h *BookingHandler) AdminList(c echo.Context) error {
	f, err := listFilter(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return h.list(c, f)
}

func (h *BookingHandler) list(c echo.Context, f service.BookingFilter) error {
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	items, err := h.Bookings.ListBookings(ctx, f)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if items == nil {
		items = []model.Booking{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "limit": f.Limit, "offset": f.Offset})
}

func listFilter(c echo.Context) (service.BookingFilter, error) {
	var f service.BookingFilter
	if s := c.QueryParam("status"); s != "" {
		st, ok := model.ParseBookingStatus(s)
		if !ok {
			return f, apperror.ValidationFields("invalid status", map[string]string{"status": "must be PENDING, CONFIRMED or CANCELLED"})
		}
		f.Status = st
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &f.Limit}, {"offset", &f.Offset}} {
		if v := c.QueryParam(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return f, apperror.ValidationFields("invalid "+p.name, map[string]string{p.name: "must be a non-negative integer"})
			}
			*p.dst = n
		}
	}
	return f, nil
}

// Cancel handles POST /v1/bookings/:id/cancel for the owner or an admin.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	uid, _ := middleware.UserID(c)
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	b, err := h.Bookings.CancelBooking(ctx, id, service.Actor{UserID: uid, Admin: middleware.IsAdmin(c)})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

type overrideReq struct {
	Status string `json:"status" validate:"required"`
}

// Override handles PATCH /v1/admin/bookings/:id/status.
func (h *BookingHandler) Override(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req overrideReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	b, err := h.Bookings.OverrideStatus(ctx, id, req.Status)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Delete handles DELETE /v1/admin/bookings/:id.
func (h *BookingHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	if err := h.Bookings.DeleteBooking(ctx, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
