package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/apperror"
	"github.com/iliyamo/hotel-reservation/internal/gateway"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/notify"
)

var fixedNow = time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

type recNotifier struct {
	mu            sync.Mutex
	confirmations []notify.BookingNotice
	others        []notify.BookingNotice
	err           error
	panics        bool
}

func (r *recNotifier) SendBookingConfirmation(_ context.Context, n notify.BookingNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmations = append(r.confirmations, n)
	if r.panics {
		panic("mailer exploded")
	}
	return r.err
}

func (r *recNotifier) SendBookingFailureOrAdminNotice(_ context.Context, n notify.BookingNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.others = append(r.others, n)
	return r.err
}

func (r *recNotifier) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.confirmations), len(r.others)
}

type stubGateway struct {
	name      model.Gateway
	verdict   gateway.Verdict
	verifyErr error
	createErr error
	orders    int
}

func (g *stubGateway) Name() model.Gateway { return g.name }

func (g *stubGateway) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.orders++
	o := &gateway.Order{OrderID: fmt.Sprintf("%s-order-%d", g.name, g.orders)}
	if g.name == model.GatewayPlural {
		o.RedirectURL = "https://checkout.example/" + o.OrderID
	}
	return o, nil
}

func (g *stubGateway) Verify(_ context.Context, cb gateway.Callback) (gateway.Verdict, error) {
	return g.verdict, g.verifyErr
}

// rzpStub keeps the real signature check but never calls the Orders API.
type rzpStub struct {
	*gateway.Razorpay
	orders int
}

func (g *rzpStub) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	g.orders++
	return &gateway.Order{OrderID: fmt.Sprintf("order_%d", g.orders), PublicKey: "rzp_key"}, nil
}

type fixture struct {
	store    *memStore
	notifier *recNotifier
	log      *logrus.Logger
	hook     *test.Hook
	hotel    model.Hotel
	bookings *BookingService
	payments *PaymentService
	razorpay *rzpStub
	plural   *stubGateway
	clock    time.Time
}

const rzpSecret = "test-secret"

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, hook := test.NewNullLogger()
	f := &fixture{
		store:    newMemStore(),
		notifier: &recNotifier{},
		log:      log,
		hook:     hook,
		razorpay: &rzpStub{Razorpay: gateway.NewRazorpay("rzp_key", rzpSecret, "", nil)},
		plural:   &stubGateway{name: model.GatewayPlural, verdict: gateway.Verdict{OK: true}},
	}
	f.hotel = f.store.addHotel(1)
	f.clock = fixedNow
	now := func() time.Time { return f.clock }
	f.bookings = NewBookingService(f.store, f.notifier, BookingOptions{Now: now, Log: log, PaymentWindow: time.Hour})
	f.payments = NewPaymentService(f.store, []gateway.Gateway{f.razorpay, f.plural}, f.notifier, PaymentOptions{Now: now, Log: log})
	return f
}

func (f *fixture) command(in, out string, rooms ...uint64) CreateBookingCommand {
	return CreateBookingCommand{
		CheckIn:    day(in),
		CheckOut:   day(out),
		Adults:     2,
		FullName:   "Asha Rao",
		PhoneNo:    "+91 98450 00000",
		Email:      "asha@example.com",
		LocationID: f.hotel.LocationID,
		HotelID:    f.hotel.ID,
		RoomIDs:    rooms,
	}
}

func (f *fixture) book(t *testing.T, in, out string, rooms ...uint64) *model.Booking {
	t.Helper()
	b, err := f.bookings.CreateBooking(context.Background(), f.command(in, out, rooms...))
	require.NoError(t, err)
	return b
}

// order opens an order for the full booking amount.
func (f *fixture) order(t *testing.T, b *model.Booking, gw model.Gateway) *OrderResult {
	t.Helper()
	res, err := f.payments.CreateOrder(context.Background(), CreateOrderCommand{
		BookingID: b.ID, Amount: b.TotalAmount, Currency: "INR",
		Email: b.Email, Name: b.FullName, Gateway: string(gw),
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) razorpayCallback(orderID string, valid bool) gateway.Callback {
	sig := gateway.Sign(rzpSecret, orderID, "pay_1")
	if !valid {
		sig = gateway.Sign("wrong", orderID, "pay_1")
	}
	return gateway.Callback{OrderID: orderID, PaymentID: "pay_1", Signature: sig}
}

func requireKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	var ae *apperror.Error
	require.True(t, errors.As(err, &ae), "expected *apperror.Error, got %T: %v", err, err)
	require.Equal(t, kind, ae.Kind, "unexpected kind for %v", err)
}

// lastMessageContaining returns want if a logged message contains it.
func lastMessageContaining(f *fixture, want string) string {
	entries := f.hook.AllEntries()
	for i := len(entries) - 1; i >= 0; i-- {
		if strings.Contains(entries[i].Message, want) {
			return want
		}
	}
	return ""
}
