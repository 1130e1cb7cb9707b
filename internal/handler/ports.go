package handler

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/gateway"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

// The handlers depend on these method sets; the service package provides
// the implementations.

type Bookings interface {
	CreateBooking(ctx context.Context, cmd service.CreateBookingCommand) (*model.Booking, error)
	ViewBooking(ctx context.Context, id uint64, who service.Actor, ref string) (*model.Booking, error)
	ListBookings(ctx context.Context, f service.BookingFilter) ([]model.Booking, error)
	CancelBooking(ctx context.Context, id uint64, who service.Actor) (*model.Booking, error)
	OverrideStatus(ctx context.Context, id uint64, status string) (*model.Booking, error)
	DeleteBooking(ctx context.Context, id uint64) error
}

type Availability interface {
	IsRoomAvailable(ctx context.Context, roomID uint64, checkIn, checkOut time.Time) (bool, error)
	ListAvailableRooms(ctx context.Context, hotelID uint64, checkIn, checkOut time.Time) ([]model.Room, error)
}

type Catalog interface {
	ListHotels(ctx context.Context) ([]model.Hotel, error)
	GetHotel(ctx context.Context, id uint64) (*model.Hotel, error)
	ListRooms(ctx context.Context, hotelID uint64) ([]model.Room, error)
	CreateHotel(ctx context.Context, h *model.Hotel) error
	CreateRoom(ctx context.Context, r *model.Room) error
}

type Payments interface {
	CreateOrder(ctx context.Context, cmd service.CreateOrderCommand) (*service.OrderResult, error)
	VerifyPayment(ctx context.Context, gw model.Gateway, cb gateway.Callback) (*service.VerifyResult, error)
}

type Coupons interface {
	Verify(ctx context.Context, code string, bookingAmount int64) (*service.CouponQuote, error)
	List(ctx context.Context) ([]model.Coupon, error)
	Create(ctx context.Context, cmd service.CreateCouponCommand) (*model.Coupon, error)
}

type Inventory interface {
	UpdateTotals(ctx context.Context, changes []service.InventoryChange) ([]model.Room, error)
}
