package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/apperror"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/notify"
)

// CreateBookingCommand is the validated input of CreateBooking.  RoomIDs
// may repeat an id to book several units of the same room.
type CreateBookingCommand struct {
	CheckIn    time.Time
	CheckOut   time.Time
	Adults     int
	Childrens  int
	FullName   string
	PhoneNo    string
	Email      string
	LocationID uint64
	HotelID    uint64
	UserID     *uint64
	RoomIDs    []uint64
}

// Actor identifies who asks for a cancellation.
type Actor struct {
	UserID uint64
	Admin  bool
}

type BookingOptions struct {
	Currency      string
	PaymentWindow time.Duration
	NotifyTimeout time.Duration
	Now           func() time.Time
	Log           logrus.FieldLogger
}

// BookingService owns booking creation and the non-payment transitions.
// Payment-driven transitions live in PaymentService.
type BookingService struct {
	store    Store
	notifier notifier
	currency string
	window   time.Duration
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewBookingService(store Store, n notify.Notifier, opts BookingOptions) *BookingService {
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if opts.PaymentWindow <= 0 {
		opts.PaymentWindow = 30 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &BookingService{
		store:    store,
		notifier: newNotifier(n, opts.NotifyTimeout, opts.Log),
		currency: opts.Currency,
		window:   opts.PaymentWindow,
		now:      opts.Now,
		log:      opts.Log,
	}
}

func (c *CreateBookingCommand) validate() (model.DateRange, error) {
	fields := map[string]string{}
	if strings.TrimSpace(c.FullName) == "" {
		fields["fullName"] = "required"
	}
	if strings.TrimSpace(c.PhoneNo) == "" {
		fields["phoneNo"] = "required"
	}
	if strings.TrimSpace(c.Email) == "" {
		fields["email"] = "required"
	} else if _, err := mail.ParseAddress(c.Email); err != nil {
		fields["email"] = "must be a valid email"
	}
	if c.LocationID == 0 {
		fields["locationId"] = "required"
	}
	if c.HotelID == 0 {
		fields["hotelId"] = "required"
	}
	if c.Adults < 1 {
		fields["adults"] = "must be at least 1"
	}
	if c.Childrens < 0 {
		fields["childrens"] = "must not be negative"
	}
	for _, id := range c.RoomIDs {
		if id == 0 {
			fields["roomIds"] = "must contain valid room ids"
			break
		}
	}
	if len(fields) > 0 {
		return model.DateRange{}, apperror.ValidationFields("invalid booking request", fields)
	}
	return stayRange(c.CheckIn, c.CheckOut)
}

// CreateBooking inserts a PENDING booking and one RoomBooking per requested
// unit.  Requested rooms are locked in ascending id order and availability
// is re-checked under the locks, so two concurrent requests for the last
// unit cannot both succeed.
func (s *BookingService) CreateBooking(ctx context.Context, cmd CreateBookingCommand) (*model.Booking, error) {
	window, err := cmd.validate()
	if err != nil {
		return nil, err
	}

	units := map[uint64]int{}
	for _, id := range cmd.RoomIDs {
		units[id]++
	}
	ids := make([]uint64, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	now := s.now()
	expires := now.Add(s.window).UTC()
	b := &model.Booking{
		Reference:  uuid.NewString(),
		CheckIn:    window.CheckIn,
		CheckOut:   window.CheckOut,
		Adults:     cmd.Adults,
		Childrens:  cmd.Childrens,
		FullName:   strings.TrimSpace(cmd.FullName),
		PhoneNo:    strings.TrimSpace(cmd.PhoneNo),
		Email:      strings.TrimSpace(cmd.Email),
		Status:     model.BookingPending,
		LocationID: cmd.LocationID,
		HotelID:    cmd.HotelID,
		UserID:     cmd.UserID,
		Currency:   s.currency,
		ExpiresAt:  &expires,
	}

	err = s.store.InTx(ctx, func(q Queries) error {
		hotel, err := q.GetHotel(ctx, cmd.HotelID)
		if err != nil {
			return lookupErr(err, "hotel")
		}
		if hotel.LocationID != cmd.LocationID {
			return apperror.ValidationFields("hotel is not in the given location", map[string]string{"locationId": "does not match hotel"})
		}

		var total int64
		for _, id := range ids {
			room, err := q.LockRoom(ctx, id)
			if err != nil {
				return lookupErr(err, fmt.Sprintf("room %d", id))
			}
			if room.HotelID != cmd.HotelID {
				return apperror.ValidationFields(fmt.Sprintf("room %d does not belong to hotel %d", id, cmd.HotelID), map[string]string{"roomIds": "room not in hotel"})
			}
			free, err := freeUnits(ctx, q, room, window)
			if err != nil {
				return err
			}
			if free < units[id] {
				return apperror.Conflicting(fmt.Sprintf("room %d is not available for the selected dates", id))
			}
			total += room.Price * int64(units[id])
		}
		b.TotalAmount = total * int64(window.Nights())

		if err := q.CreateBooking(ctx, b); err != nil {
			return storeErr("create booking", err)
		}
		if len(cmd.RoomIDs) == 0 {
			return nil
		}
		rows := make([]model.RoomBooking, 0, len(cmd.RoomIDs))
		for _, id := range ids {
			for i := 0; i < units[id]; i++ {
				rows = append(rows, model.RoomBooking{BookingID: b.ID, RoomID: id, CheckIn: window.CheckIn, CheckOut: window.CheckOut})
			}
		}
		if err := q.CreateRoomBookings(ctx, rows); err != nil {
			return storeErr("create room bookings", err)
		}
		b.Rooms = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"hotel_id":   b.HotelID,
		"units":      len(cmd.RoomIDs),
	}).Info("booking created")
	return b, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "booking")
	}
	return b, nil
}

// ViewBooking returns a booking to its owner, an admin, or anyone holding
// its reference.  Guests who booked anonymously only have the reference.
func (s *BookingService) ViewBooking(ctx context.Context, id uint64, who Actor, ref string) (*model.Booking, error) {
	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(b, who, ref) {
		return nil, apperror.New(apperror.Forbidden, "booking belongs to another user")
	}
	return b, nil
}

func canView(b *model.Booking, who Actor, ref string) bool {
	switch {
	case who.Admin:
		return true
	case who.UserID != 0 && b.UserID != nil && *b.UserID == who.UserID:
		return true
	case ref != "" && b.Reference != "":
		return subtle.ConstantTimeCompare([]byte(ref), []byte(b.Reference)) == 1
	}
	return false
}

func (s *BookingService) ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	out, err := s.store.ListBookings(ctx, f)
	if err != nil {
		return nil, storeErr("list bookings", err)
	}
	return out, nil
}

// OverrideStatus is the admin escape hatch: it sets the booking status
// without consulting the payment.  A result that disagrees with the latest
// transaction is allowed but logged.
func (s *BookingService) OverrideStatus(ctx context.Context, id uint64, raw string) (*model.Booking, error) {
	status, ok := model.ParseBookingStatus(raw)
	if !ok {
		return nil, apperror.ValidationFields("invalid booking status", map[string]string{"status": "must be one of PENDING, CONFIRMED, CANCELLED"})
	}

	var (
		b   *model.Booking
		txn *model.Transaction
	)
	err := s.store.InTx(ctx, func(q Queries) error {
		var err error
		if b, err = q.LockBooking(ctx, id); err != nil {
			return lookupErr(err, "booking")
		}
		if err := q.UpdateBookingStatus(ctx, id, status); err != nil {
			return storeErr("update booking status", err)
		}
		b.Status = status
		txn, err = q.LatestTransactionForBooking(ctx, id)
		if err != nil && !isNotFound(err) {
			return storeErr("load transaction", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := s.log.WithFields(logrus.Fields{"booking_id": id, "booking_status": status})
	switch {
	case txn != nil && !model.Consistent(status, txn.Status):
		entry.WithFields(logrus.Fields{
			"transaction_id":     txn.ID,
			"transaction_status": txn.Status,
		}).Warn("admin override leaves booking and transaction out of step")
	case txn == nil && status == model.BookingConfirmed:
		entry.Warn("admin confirmed a booking without any payment transaction")
	default:
		entry.Info("booking status overridden")
	}

	s.notifier.send(ctx, noticeFor(notify.KindAdminOverride, b, txn, "status changed by administrator", s.now()))
	return b, nil
}

// CancelBooking cancels a PENDING booking on behalf of its owner or an
// admin.  Cancelling an already cancelled booking returns it unchanged.
// Confirmed bookings are paid for and can only move through OverrideStatus.
func (s *BookingService) CancelBooking(ctx context.Context, id uint64, who Actor) (*model.Booking, error) {
	var (
		b       *model.Booking
		changed bool
	)
	err := s.store.InTx(ctx, func(q Queries) error {
		var err error
		if b, err = q.LockBooking(ctx, id); err != nil {
			return lookupErr(err, "booking")
		}
		if !who.Admin && (b.UserID == nil || *b.UserID != who.UserID) {
			return apperror.New(apperror.Forbidden, "booking belongs to another user")
		}
		switch b.Status {
		case model.BookingCancelled:
			return nil
		case model.BookingConfirmed:
			return apperror.Conflicting("confirmed bookings can only be changed by an administrator")
		}
		if err := q.UpdateBookingStatus(ctx, id, model.BookingCancelled); err != nil {
			return storeErr("cancel booking", err)
		}
		if err := q.FailPendingTransactions(ctx, id, "booking cancelled"); err != nil {
			return storeErr("fail pending transactions", err)
		}
		b.Status = model.BookingCancelled
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.log.WithField("booking_id", id).Info("booking cancelled")
		s.notifier.send(ctx, noticeFor(notify.KindCancelled, b, nil, "cancelled on request", s.now()))
	}
	return b, nil
}

// DeleteBooking removes a booking with its room bookings and transactions.
func (s *BookingService) DeleteBooking(ctx context.Context, id uint64) error {
	err := s.store.InTx(ctx, func(q Queries) error {
		if _, err := q.LockBooking(ctx, id); err != nil {
			return lookupErr(err, "booking")
		}
		if err := q.DeleteBooking(ctx, id); err != nil {
			return storeErr("delete booking", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.WithField("booking_id", id).Warn("booking deleted by administrator")
	return nil
}

// ExpireStale cancels up to limit PENDING bookings whose payment window
// ended at or before now.  Each booking is handled in its own transaction;
// a failure on one does not stop the rest.  It returns how many were
// cancelled.
func (s *BookingService) ExpireStale(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	ids, err := s.store.ListExpiredPending(ctx, now, limit)
	if err != nil {
		return 0, storeErr("list expired bookings", err)
	}
	expired := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		done, err := s.expireOne(ctx, id, now)
		if err != nil {
			s.log.WithField("booking_id", id).WithError(err).Error("failed to expire booking")
			continue
		}
		if done {
			expired++
		}
	}
	return expired, nil
}

func (s *BookingService) expireOne(ctx context.Context, id uint64, now time.Time) (bool, error) {
	done := false
	err := s.store.InTx(ctx, func(q Queries) error {
		b, err := q.LockBooking(ctx, id)
		if err != nil {
			return lookupErr(err, "booking")
		}
		// re-check under the lock: a callback may have settled it meanwhile
		if b.Status != model.BookingPending || b.ExpiresAt == nil || b.ExpiresAt.After(now) {
			return nil
		}
		if err := q.UpdateBookingStatus(ctx, id, model.BookingCancelled); err != nil {
			return err
		}
		if err := q.FailPendingTransactions(ctx, id, "payment window expired"); err != nil {
			return err
		}
		done = true
		return nil
	})
	return done, err
}
