// Package service holds the booking domain: availability, the
// booking/transaction state machine, payment reconciliation, coupons and
// inventory.  It talks to storage only through the Store port.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// BookingFilter narrows ListBookings.  Zero values mean "any".
type BookingFilter struct {
	UserID *uint64
	Status model.BookingStatus
	Limit  int
	Offset int
}

// Queries are the storage primitives the services compose.  Lookups return
// model.ErrNotFound for missing rows.  The Lock* variants take a row lock
// when run inside InTx and behave like plain reads otherwise.
type Queries interface {
	ListHotels(ctx context.Context) ([]model.Hotel, error)
	GetHotel(ctx context.Context, id uint64) (*model.Hotel, error)
	CreateHotel(ctx context.Context, h *model.Hotel) error

	ListRoomsByHotel(ctx context.Context, hotelID uint64) ([]model.Room, error)
	GetRoom(ctx context.Context, id uint64) (*model.Room, error)
	LockRoom(ctx context.Context, id uint64) (*model.Room, error)
	CreateRoom(ctx context.Context, r *model.Room) error
	UpdateRoomTotalCount(ctx context.Context, id uint64, total int) error

	// OverlappingRanges returns the ranges of non-cancelled room bookings
	// for roomID that overlap r.
	OverlappingRanges(ctx context.Context, roomID uint64, r model.DateRange) ([]model.DateRange, error)
	// ActiveUnitCount counts non-cancelled room bookings for roomID that
	// have not checked out by day.
	ActiveUnitCount(ctx context.Context, roomID uint64, day time.Time) (int, error)

	CreateBooking(ctx context.Context, b *model.Booking) error
	CreateRoomBookings(ctx context.Context, rows []model.RoomBooking) error
	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	LockBooking(ctx context.Context, id uint64) (*model.Booking, error)
	ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id uint64, status model.BookingStatus) error
	DeleteBooking(ctx context.Context, id uint64) error
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]uint64, error)

	CreateTransaction(ctx context.Context, t *model.Transaction) error
	GetTransactionByOrderID(ctx context.Context, orderID string) (*model.Transaction, error)
	LockTransactionByOrderID(ctx context.Context, orderID string) (*model.Transaction, error)
	LatestTransactionForBooking(ctx context.Context, bookingID uint64) (*model.Transaction, error)
	// SettleTransaction persists status, payment id, signature, method and
	// failure reason of t.
	SettleTransaction(ctx context.Context, t *model.Transaction) error
	FailPendingTransactions(ctx context.Context, bookingID uint64, reason string) error

	GetCouponByCode(ctx context.Context, code string) (*model.Coupon, error)
	ListCoupons(ctx context.Context) ([]model.Coupon, error)
	CreateCoupon(ctx context.Context, c *model.Coupon) error
	// IncrementCouponUse bumps current_uses only while it is below
	// max_uses and reports whether a row changed.
	IncrementCouponUse(ctx context.Context, code string) (bool, error)
}

// Store adds transactions to Queries.  fn's Queries are bound to the
// transaction; returning an error rolls it back.
type Store interface {
	Queries
	InTx(ctx context.Context, fn func(q Queries) error) error
}
