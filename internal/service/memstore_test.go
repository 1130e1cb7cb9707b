package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// memData is the whole fake database.  InTx works on a clone and swaps it
// in on success, which gives the services real rollback semantics.
type memData struct {
	seq          uint64
	hotels       map[uint64]model.Hotel
	rooms        map[uint64]model.Room
	bookings     map[uint64]model.Booking
	roomBookings []model.RoomBooking
	txns         map[uint64]model.Transaction
	coupons      map[string]model.Coupon
}

func newMemData() *memData {
	return &memData{
		hotels:   map[uint64]model.Hotel{},
		rooms:    map[uint64]model.Room{},
		bookings: map[uint64]model.Booking{},
		txns:     map[uint64]model.Transaction{},
		coupons:  map[string]model.Coupon{},
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	c.seq = d.seq
	for k, v := range d.hotels {
		c.hotels[k] = v
	}
	for k, v := range d.rooms {
		c.rooms[k] = v
	}
	for k, v := range d.bookings {
		c.bookings[k] = v
	}
	c.roomBookings = append([]model.RoomBooking(nil), d.roomBookings...)
	for k, v := range d.txns {
		c.txns[k] = v
	}
	for k, v := range d.coupons {
		c.coupons[k] = v
	}
	return c
}

func (d *memData) next() uint64 {
	d.seq++
	return d.seq
}

type memQueries struct {
	d    *memData
	fail map[string]error
	// locks records row locks in acquisition order.
	locks *[]string
}

func (q *memQueries) lock(row string) {
	if q.locks != nil {
		*q.locks = append(*q.locks, row)
	}
}

func (q *memQueries) check(op string) error {
	if q.fail == nil {
		return nil
	}
	return q.fail[op]
}

type memStore struct {
	mu sync.Mutex
	*memQueries
	txCount int
}

func newMemStore() *memStore {
	return &memStore{memQueries: &memQueries{d: newMemData(), fail: map[string]error{}, locks: &[]string{}}}
}

func (s *memStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++
	tx := &memQueries{d: s.d.clone(), fail: s.fail, locks: s.locks}
	if err := fn(tx); err != nil {
		return err
	}
	s.d = tx.d
	return nil
}

// seed helpers

func (s *memStore) addHotel(locationID uint64) model.Hotel {
	h := model.Hotel{ID: s.d.next(), LocationID: locationID, Name: "Hotel"}
	s.d.hotels[h.ID] = h
	return h
}

func (s *memStore) addRoom(hotelID uint64, price int64, total int) model.Room {
	r := model.Room{ID: s.d.next(), HotelID: hotelID, Name: "Room", Price: price, Capacity: 2, TotalCount: total}
	s.d.rooms[r.ID] = r
	return r
}

func (s *memStore) addCoupon(c model.Coupon) {
	c.ID = s.d.next()
	s.d.coupons[c.Code] = c
}

func (s *memStore) booking(id uint64) model.Booking { return s.d.bookings[id] }

func (s *memStore) resetLocks() { *s.locks = (*s.locks)[:0] }

func (s *memStore) txnsFor(bookingID uint64) []model.Transaction {
	var out []model.Transaction
	for _, t := range s.d.txns {
		if t.BookingID == bookingID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) txnByOrder(orderID string) model.Transaction {
	for _, t := range s.d.txns {
		if t.GatewayOrderID == orderID {
			return t
		}
	}
	return model.Transaction{}
}

// Queries

func (q *memQueries) ListHotels(ctx context.Context) ([]model.Hotel, error) {
	if err := q.check("ListHotels"); err != nil {
		return nil, err
	}
	out := make([]model.Hotel, 0, len(q.d.hotels))
	for _, h := range q.d.hotels {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *memQueries) GetHotel(ctx context.Context, id uint64) (*model.Hotel, error) {
	h, ok := q.d.hotels[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &h, nil
}

func (q *memQueries) CreateHotel(ctx context.Context, h *model.Hotel) error {
	h.ID = q.d.next()
	q.d.hotels[h.ID] = *h
	return nil
}

func (q *memQueries) ListRoomsByHotel(ctx context.Context, hotelID uint64) ([]model.Room, error) {
	var out []model.Room
	for _, r := range q.d.rooms {
		if r.HotelID == hotelID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *memQueries) GetRoom(ctx context.Context, id uint64) (*model.Room, error) {
	r, ok := q.d.rooms[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &r, nil
}

func (q *memQueries) LockRoom(ctx context.Context, id uint64) (*model.Room, error) {
	return q.GetRoom(ctx, id)
}

func (q *memQueries) CreateRoom(ctx context.Context, r *model.Room) error {
	r.ID = q.d.next()
	q.d.rooms[r.ID] = *r
	return nil
}

func (q *memQueries) UpdateRoomTotalCount(ctx context.Context, id uint64, total int) error {
	if err := q.check("UpdateRoomTotalCount"); err != nil {
		return err
	}
	r, ok := q.d.rooms[id]
	if !ok {
		return model.ErrNotFound
	}
	r.TotalCount = total
	q.d.rooms[id] = r
	return nil
}

func (q *memQueries) OverlappingRanges(ctx context.Context, roomID uint64, r model.DateRange) ([]model.DateRange, error) {
	var out []model.DateRange
	for _, rb := range q.d.roomBookings {
		if rb.RoomID != roomID || q.d.bookings[rb.BookingID].Status == model.BookingCancelled {
			continue
		}
		if rb.Range().Overlaps(r) {
			out = append(out, rb.Range())
		}
	}
	return out, nil
}

func (q *memQueries) ActiveUnitCount(ctx context.Context, roomID uint64, day time.Time) (int, error) {
	n := 0
	for _, rb := range q.d.roomBookings {
		if rb.RoomID == roomID && q.d.bookings[rb.BookingID].Status != model.BookingCancelled && rb.CheckOut.After(day) {
			n++
		}
	}
	return n, nil
}

func (q *memQueries) CreateBooking(ctx context.Context, b *model.Booking) error {
	if err := q.check("CreateBooking"); err != nil {
		return err
	}
	b.ID = q.d.next()
	cp := *b
	cp.Rooms = nil
	q.d.bookings[b.ID] = cp
	return nil
}

func (q *memQueries) CreateRoomBookings(ctx context.Context, rows []model.RoomBooking) error {
	if err := q.check("CreateRoomBookings"); err != nil {
		return err
	}
	for i := range rows {
		rows[i].ID = q.d.next()
		q.d.roomBookings = append(q.d.roomBookings, rows[i])
	}
	return nil
}

func (q *memQueries) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	b, ok := q.d.bookings[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	for _, rb := range q.d.roomBookings {
		if rb.BookingID == id {
			b.Rooms = append(b.Rooms, rb)
		}
	}
	return &b, nil
}

func (q *memQueries) LockBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	q.lock(fmt.Sprintf("booking:%d", id))
	return q.GetBooking(ctx, id)
}

func (q *memQueries) ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range q.d.bookings {
		if f.UserID != nil && (b.UserID == nil || *b.UserID != *f.UserID) {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (q *memQueries) UpdateBookingStatus(ctx context.Context, id uint64, status model.BookingStatus) error {
	if err := q.check("UpdateBookingStatus"); err != nil {
		return err
	}
	b, ok := q.d.bookings[id]
	if !ok {
		return model.ErrNotFound
	}
	b.Status = status
	q.d.bookings[id] = b
	return nil
}

func (q *memQueries) DeleteBooking(ctx context.Context, id uint64) error {
	delete(q.d.bookings, id)
	kept := q.d.roomBookings[:0:0]
	for _, rb := range q.d.roomBookings {
		if rb.BookingID != id {
			kept = append(kept, rb)
		}
	}
	q.d.roomBookings = kept
	for tid, t := range q.d.txns {
		if t.BookingID == id {
			delete(q.d.txns, tid)
		}
	}
	return nil
}

func (q *memQueries) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	var ids []uint64
	for id, b := range q.d.bookings {
		if b.Status == model.BookingPending && b.ExpiresAt != nil && !b.ExpiresAt.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (q *memQueries) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	if err := q.check("CreateTransaction"); err != nil {
		return err
	}
	for _, o := range q.d.txns {
		if o.GatewayOrderID == t.GatewayOrderID {
			return model.ErrDuplicate
		}
	}
	t.ID = q.d.next()
	q.d.txns[t.ID] = *t
	return nil
}

func (q *memQueries) GetTransactionByOrderID(ctx context.Context, orderID string) (*model.Transaction, error) {
	for _, t := range q.d.txns {
		if t.GatewayOrderID == orderID {
			return &t, nil
		}
	}
	return nil, model.ErrNotFound
}

func (q *memQueries) LockTransactionByOrderID(ctx context.Context, orderID string) (*model.Transaction, error) {
	q.lock("txn:" + orderID)
	return q.GetTransactionByOrderID(ctx, orderID)
}

func (q *memQueries) LatestTransactionForBooking(ctx context.Context, bookingID uint64) (*model.Transaction, error) {
	var best *model.Transaction
	for _, t := range q.d.txns {
		if t.BookingID == bookingID && (best == nil || t.ID > best.ID) {
			t := t
			best = &t
		}
	}
	if best == nil {
		return nil, model.ErrNotFound
	}
	return best, nil
}

func (q *memQueries) SettleTransaction(ctx context.Context, t *model.Transaction) error {
	if err := q.check("SettleTransaction"); err != nil {
		return err
	}
	if _, ok := q.d.txns[t.ID]; !ok {
		return model.ErrNotFound
	}
	q.d.txns[t.ID] = *t
	return nil
}

func (q *memQueries) FailPendingTransactions(ctx context.Context, bookingID uint64, reason string) error {
	for id, t := range q.d.txns {
		if t.BookingID == bookingID && t.Status == model.TxnPending {
			r := reason
			t.Status = model.TxnFailed
			t.FailureReason = &r
			q.d.txns[id] = t
		}
	}
	return nil
}

func (q *memQueries) GetCouponByCode(ctx context.Context, code string) (*model.Coupon, error) {
	c, ok := q.d.coupons[code]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &c, nil
}

func (q *memQueries) ListCoupons(ctx context.Context) ([]model.Coupon, error) {
	out := make([]model.Coupon, 0, len(q.d.coupons))
	for _, c := range q.d.coupons {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *memQueries) CreateCoupon(ctx context.Context, c *model.Coupon) error {
	if _, ok := q.d.coupons[c.Code]; ok {
		return model.ErrDuplicate
	}
	c.ID = q.d.next()
	q.d.coupons[c.Code] = *c
	return nil
}

func (q *memQueries) IncrementCouponUse(ctx context.Context, code string) (bool, error) {
	c, ok := q.d.coupons[code]
	if !ok || c.CurrentUses >= c.MaxUses {
		return false, nil
	}
	c.CurrentUses++
	q.d.coupons[code] = c
	return true, nil
}
