package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRazorpayVerify(t *testing.T) {
	rp := NewRazorpay("rzp_test_key", "s3cret", "", nil)
	sig := Sign("s3cret", "order_1", "pay_1")

	v, err := rp.Verify(context.Background(), Callback{OrderID: "order_1", PaymentID: "pay_1", Signature: sig})
	require.NoError(t, err)
	assert.True(t, v.OK)

	v, err = rp.Verify(context.Background(), Callback{OrderID: "order_1", PaymentID: "pay_2", Signature: sig})
	require.NoError(t, err)
	assert.False(t, v.OK)
	assert.Equal(t, "signature mismatch", v.Reason)

	_, err = rp.Verify(context.Background(), Callback{OrderID: "order_1"})
	assert.ErrorIs(t, err, ErrMalformedCallback)
}

func TestRazorpayCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 50000, body["amount"])
		assert.Equal(t, "INR", body["currency"])

		_ = json.NewEncoder(w).Encode(map[string]any{"id": "order_abc", "status": "created"})
	}))
	defer srv.Close()

	rp := NewRazorpay("key", "secret", srv.URL, srv.Client())
	o, err := rp.CreateOrder(context.Background(), OrderRequest{Amount: 50000, Currency: "INR", Receipt: "bk_1"})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", o.OrderID)
	assert.Equal(t, "key", o.PublicKey)
}

func TestRazorpayCreateOrderUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"BAD_REQUEST_ERROR"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	rp := NewRazorpay("key", "secret", srv.URL, srv.Client())
	_, err := rp.CreateOrder(context.Background(), OrderRequest{Amount: 1, Currency: "INR"})
	assert.Error(t, err)
}

func TestRazorpayCreateOrderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	rp := NewRazorpay("key", "secret", srv.URL, NewHTTPClient(50*time.Millisecond))
	_, err := rp.CreateOrder(context.Background(), OrderRequest{Amount: 1, Currency: "INR"})
	assert.Error(t, err)
}

func TestPluralCreateOrderCachesToken(t *testing.T) {
	var tokenCalls, orderCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/v1/token":
			atomic.AddInt32(&tokenCalls, 1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok",
				"expires_at":   time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
			})
		case "/api/checkout/v1/orders":
			atomic.AddInt32(&orderCalls, 1)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"order_id":     "v1-ord-1",
				"redirect_url": "https://checkout.example/pay/v1-ord-1",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	pl := NewPlural("cid", "csecret", "https://hotel.example/cb", srv.URL, srv.Client())
	for i := 0; i < 2; i++ {
		o, err := pl.CreateOrder(context.Background(), OrderRequest{Amount: 1000, Currency: "INR", CustomerName: "Asha Rao"})
		require.NoError(t, err)
		assert.Equal(t, "v1-ord-1", o.OrderID)
		assert.NotEmpty(t, o.RedirectURL)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&tokenCalls))
	assert.EqualValues(t, 2, atomic.LoadInt32(&orderCalls))
}

func pluralOrderServer(t *testing.T, statuses map[string]string, lookups *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/v1/token" {
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/pay/v1/orders/")
		st, ok := statuses[id]
		if r.Method != http.MethodGet || !ok {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(lookups, 1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"order_id": id, "status": st}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPluralVerifyAsksOrderAPI(t *testing.T) {
	var lookups int32
	srv := pluralOrderServer(t, map[string]string{
		"v1-paid":    "PROCESSED",
		"v1-failed":  "FAILED",
		"v1-open":    "CREATED",
		"v1-pending": "PENDING",
	}, &lookups)
	pl := NewPlural("cid", "csecret", "", srv.URL, srv.Client())
	ctx := context.Background()

	tests := []struct {
		order   string
		status  string // what the redirect claims
		ok      bool
		pending bool
	}{
		{"v1-paid", "PROCESSED", true, false},
		{"v1-paid", "FAILED", true, false},
		{"v1-failed", "PROCESSED", false, false},
		{"v1-open", "PROCESSED", false, true},
		{"v1-pending", "", false, true},
	}
	for _, tc := range tests {
		v, err := pl.Verify(ctx, Callback{OrderID: tc.order, Status: tc.status})
		require.NoError(t, err, tc.order)
		assert.Equal(t, tc.ok, v.OK, tc.order)
		assert.Equal(t, tc.pending, v.Pending, tc.order)
	}
	assert.EqualValues(t, len(tests), atomic.LoadInt32(&lookups))

	// a forged order id is unknown to the provider
	_, err := pl.Verify(ctx, Callback{OrderID: "v1-forged", Status: "PROCESSED"})
	assert.Error(t, err)

	_, err = pl.Verify(ctx, Callback{})
	assert.ErrorIs(t, err, ErrMalformedCallback)
}

func TestPluralVerifyRejectsMismatchedOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/v1/token" {
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"order_id": "v1-other", "status": "PROCESSED"}})
	}))
	defer srv.Close()

	pl := NewPlural("cid", "csecret", "", srv.URL, srv.Client())
	_, err := pl.Verify(context.Background(), Callback{OrderID: "v1-mine"})
	assert.Error(t, err)
}

func TestSplitName(t *testing.T) {
	f, l := splitName("Asha Devi Rao")
	assert.Equal(t, "Asha Devi", f)
	assert.Equal(t, "Rao", l)
	f, l = splitName("Cher")
	assert.Equal(t, "Cher", f)
	assert.Empty(t, l)
}
