package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func day(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

var roomCols = []string{"id", "hotel_id", "name", "price", "capacity", "total_count", "created_at", "updated_at"}

func TestInTxCommits(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE bookings SET status = ? WHERE id = ?")).
		WithArgs("CONFIRMED", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(tx service.Queries) error {
		return tx.UpdateBookingStatus(context.Background(), 7, model.BookingConfirmed)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxRollsBackOnError(t *testing.T) {
	store, mock := newMock(t)
	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(service.Queries) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxRollsBackOnPanic(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = store.InTx(context.Background(), func(service.Queries) error { panic("bad") })
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockRoomOnlyLocksInsideTx(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()
	row := func() *sqlmock.Rows {
		return sqlmock.NewRows(roomCols).AddRow(3, 1, "Deluxe", 5000, 2, 4, now, now)
	}

	mock.ExpectQuery(q("FROM rooms WHERE id = ?") + "$").WithArgs(3).WillReturnRows(row())
	_, err := store.LockRoom(context.Background(), 3)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM rooms WHERE id = ? FOR UPDATE")).WithArgs(3).WillReturnRows(row())
	mock.ExpectCommit()
	err = store.InTx(context.Background(), func(tx service.Queries) error {
		r, err := tx.LockRoom(context.Background(), 3)
		if err == nil {
			assert.Equal(t, 4, r.TotalCount)
		}
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRoomNotFound(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(q("FROM rooms WHERE id = ?")).WithArgs(9).WillReturnError(sql.ErrNoRows)

	_, err := store.GetRoom(context.Background(), 9)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestOverlappingRangesHalfOpenArgs(t *testing.T) {
	store, mock := newMock(t)
	r := model.DateRange{CheckIn: day("2025-06-01"), CheckOut: day("2025-06-03")}

	mock.ExpectQuery(q("b.status <> 'CANCELLED' AND rb.check_in < ? AND rb.check_out > ?")).
		WithArgs(5, r.CheckOut, r.CheckIn).
		WillReturnRows(sqlmock.NewRows([]string{"check_in", "check_out"}).
			AddRow(day("2025-05-30"), day("2025-06-02")))

	got, err := store.OverlappingRanges(context.Background(), 5, r)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, day("2025-06-02"), got[0].CheckOut)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityReadsLockOnlyInsideTx(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	r := model.DateRange{CheckIn: day("2025-06-01"), CheckOut: day("2025-06-03")}
	ranges := func() *sqlmock.Rows { return sqlmock.NewRows([]string{"check_in", "check_out"}) }

	mock.ExpectQuery(q("rb.check_out > ?") + "$").WithArgs(5, r.CheckOut, r.CheckIn).WillReturnRows(ranges())
	mock.ExpectQuery(q("rb.check_out > ?") + "$").WithArgs(5, r.CheckIn).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	_, err := store.OverlappingRanges(ctx, 5, r)
	require.NoError(t, err)
	_, err = store.ActiveUnitCount(ctx, 5, r.CheckIn)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM rooms WHERE id = ? FOR UPDATE")).WithArgs(5).
		WillReturnRows(sqlmock.NewRows(roomCols).AddRow(5, 1, "Twin", 4000, 2, 1, time.Now(), time.Now()))
	mock.ExpectQuery(q("rb.check_in < ? AND rb.check_out > ? FOR SHARE")).WithArgs(5, r.CheckOut, r.CheckIn).
		WillReturnRows(ranges().AddRow(day("2025-06-02"), day("2025-06-04")))
	mock.ExpectQuery(q("rb.check_out > ? FOR SHARE")).WithArgs(5, r.CheckIn).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectCommit()
	err = store.InTx(ctx, func(tx service.Queries) error {
		if _, err := tx.LockRoom(ctx, 5); err != nil {
			return err
		}
		got, err := tx.OverlappingRanges(ctx, 5, r)
		if err != nil {
			return err
		}
		assert.Len(t, got, 1)
		n, err := tx.ActiveUnitCount(ctx, 5, r.CheckIn)
		assert.Equal(t, 1, n)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRoomTotalCountMissingRow(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(q("UPDATE rooms SET total_count = ? WHERE id = ?")).
		WithArgs(2, 44).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateRoomTotalCount(context.Background(), 44, 2)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateRoomBookingsAssignsIDs(t *testing.T) {
	store, mock := newMock(t)
	in, out := day("2025-06-01"), day("2025-06-03")
	rows := []model.RoomBooking{
		{BookingID: 1, RoomID: 2, CheckIn: in, CheckOut: out},
		{BookingID: 1, RoomID: 2, CheckIn: in, CheckOut: out},
	}
	mock.ExpectExec(q("INSERT INTO room_bookings (booking_id, room_id, check_in, check_out) VALUES (?, ?, ?, ?), (?, ?, ?, ?)")).
		WithArgs(1, 2, in, out, 1, 2, in, out).
		WillReturnResult(sqlmock.NewResult(40, 2))

	require.NoError(t, store.CreateRoomBookings(context.Background(), rows))
	assert.Equal(t, uint64(40), rows[0].ID)
	assert.Equal(t, uint64(41), rows[1].ID)
}

func TestListBookingsFilters(t *testing.T) {
	store, mock := newMock(t)
	uid := uint64(12)
	mock.ExpectQuery(q("FROM bookings WHERE user_id = ? AND status = ? ORDER BY id DESC LIMIT ? OFFSET ?")).
		WithArgs(12, "PENDING", 50, 0).
		WillReturnRows(sqlmock.NewRows(nil))

	_, err := store.ListBookings(context.Background(), service.BookingFilter{
		UserID: &uid, Status: model.BookingPending, Limit: 50,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingReferenceRoundTrip(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	now := time.Now()
	b := &model.Booking{
		Reference: "3f1c9a4e-58d2-4c4b-9a57-0b1f7c2d9e10", CheckIn: day("2025-06-01"), CheckOut: day("2025-06-03"),
		Adults: 2, FullName: "Asha Rao", PhoneNo: "+91", Email: "asha@example.com", Status: model.BookingPending,
		LocationID: 1, HotelID: 2, TotalAmount: 10000, Currency: "INR",
	}

	mock.ExpectExec(q("INSERT INTO bookings (reference, check_in,")).
		WithArgs(b.Reference, b.CheckIn, b.CheckOut, 2, 0, "Asha Rao", "+91", "asha@example.com", model.BookingPending,
			1, 2, nil, 10000, "INR", nil).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(q("SELECT created_at, updated_at FROM bookings WHERE id = ?")).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	require.NoError(t, store.CreateBooking(ctx, b))
	assert.Equal(t, uint64(7), b.ID)

	cols := []string{"id", "reference", "check_in", "check_out", "adults", "childrens", "full_name", "phone_no", "email", "status",
		"location_id", "hotel_id", "user_id", "total_amount", "currency", "expires_at", "created_at", "updated_at"}
	mock.ExpectQuery(q("SELECT id, reference, check_in")).WithArgs(7).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, b.Reference, b.CheckIn, b.CheckOut, 2, 0, "Asha Rao", "+91",
			"asha@example.com", "PENDING", 1, 2, nil, 10000, "INR", nil, now, now))
	mock.ExpectQuery(q("FROM room_bookings WHERE booking_id = ?")).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_id", "room_id", "check_in", "check_out"}))
	got, err := store.GetBooking(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, b.Reference, got.Reference)
	assert.Nil(t, got.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTransactionDuplicateOrder(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(q("INSERT INTO transactions")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := store.CreateTransaction(context.Background(), &model.Transaction{
		BookingID: 1, Amount: 100, Currency: "INR", Status: model.TxnPending,
		Gateway: model.GatewayRazorpay, GatewayOrderID: "order_1",
	})
	require.ErrorIs(t, err, model.ErrDuplicate)
}

func TestLockTransactionByOrderIDMapsLegacyStatus(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()
	cols := []string{"id", "booking_id", "amount", "currency", "status", "gateway", "gateway_order_id",
		"gateway_payment_id", "signature", "payment_method", "coupon_code", "discount_amount", "failure_reason",
		"created_at", "updated_at"}

	mock.ExpectBegin()
	mock.ExpectQuery(q("WHERE gateway_order_id = ? FOR UPDATE")).
		WithArgs("order_9").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 2, 900, "INR", "COMPLETED", "RAZORPAY", "order_9",
			"pay_1", nil, "card", nil, 0, nil, now, now))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(tx service.Queries) error {
		got, err := tx.LockTransactionByOrderID(context.Background(), "order_9")
		if err != nil {
			return err
		}
		assert.Equal(t, model.TxnSuccess, got.Status)
		require.NotNil(t, got.GatewayPaymentID)
		assert.Equal(t, "pay_1", *got.GatewayPaymentID)
		assert.Nil(t, got.Signature)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementCouponUse(t *testing.T) {
	store, mock := newMock(t)
	stmt := q("UPDATE coupons SET current_uses = current_uses + 1 WHERE code = ? AND current_uses < max_uses")

	mock.ExpectExec(stmt).WithArgs("SAVE10").WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := store.IncrementCouponUse(context.Background(), "SAVE10")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(stmt).WithArgs("GONE").WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = store.IncrementCouponUse(context.Background(), "GONE")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListExpiredPending(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q("WHERE status = 'PENDING' AND expires_at IS NOT NULL AND expires_at <= ?")).
		WithArgs(now, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3).AddRow(8))

	ids, err := store.ListExpiredPending(context.Background(), now, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 8}, ids)
}

func TestTokenValidateRejectsRevoked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepo(db)
	future := time.Now().Add(time.Hour)

	mock.ExpectQuery(q("FROM refresh_tokens WHERE token_hash = ?")).WithArgs("h1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "expires_at", "revoked_at"}).
			AddRow(1, 5, future, time.Now()))
	_, err = repo.Validate(context.Background(), "h1")
	require.ErrorIs(t, err, model.ErrNotFound)

	mock.ExpectQuery(q("FROM refresh_tokens WHERE token_hash = ?")).WithArgs("h2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "expires_at", "revoked_at"}).
			AddRow(2, 5, future, nil))
	uid, err := repo.Validate(context.Background(), "h2")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), uid)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(q("INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)")).
		WithArgs("a@b.c", "hash", model.RoleCustomer).
		WillReturnError(&mysql.MySQLError{Number: 1062})
	_, err = NewUserRepo(db).Create(context.Background(), " A@B.c ", "hash", model.RoleCustomer)
	require.ErrorIs(t, err, model.ErrDuplicate)
}
