package model

import "time"

// Booking records a guest's stay request.  It starts PENDING, becomes
// CONFIRMED or CANCELLED through payment verification, and may be moved
// by an admin override.  Bookings are only removed by an explicit admin
// delete, which cascades to room bookings and the transaction.
//
// Fields:
//
//	CheckIn/CheckOut – half-open stay, CheckIn < CheckOut.
//	Adults           – at least one.
//	Childrens        – zero or more.
//	Reference        – random token handed to the guest; it grants read access.
//	UserID           – owner when the guest was signed in.
//	TotalAmount      – sum of nightly prices for all booked units, minor units.
//	ExpiresAt        – end of the payment window while PENDING.
type Booking struct {
	ID          uint64        `json:"id"`
	Reference   string        `json:"reference"`
	CheckIn     time.Time     `json:"checkIn"`
	CheckOut    time.Time     `json:"checkOut"`
	Adults      int           `json:"adults"`
	Childrens   int           `json:"childrens"`
	FullName    string        `json:"fullName"`
	PhoneNo     string        `json:"phoneNo"`
	Email       string        `json:"email"`
	Status      BookingStatus `json:"status"`
	LocationID  uint64        `json:"locationId"`
	HotelID     uint64        `json:"hotelId"`
	UserID      *uint64       `json:"userId,omitempty"`
	TotalAmount int64         `json:"totalAmount"`
	Currency    string        `json:"currency"`
	ExpiresAt   *time.Time    `json:"expiresAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`

	Rooms []RoomBooking `json:"rooms,omitempty"`
}

// Range returns the stay as a DateRange.
func (b *Booking) Range() DateRange {
	return DateRange{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

// RoomBooking links one physical unit of a room to a booking for a
// sub-range [CheckIn, CheckOut).
type RoomBooking struct {
	ID        uint64    `json:"id"`
	BookingID uint64    `json:"bookingId"`
	RoomID    uint64    `json:"roomId"`
	CheckIn   time.Time `json:"checkIn"`
	CheckOut  time.Time `json:"checkOut"`
}

// Range returns the unit's stay as a DateRange.
func (rb RoomBooking) Range() DateRange {
	return DateRange{CheckIn: rb.CheckIn, CheckOut: rb.CheckOut}
}
