// Package gateway holds the payment provider adapters.  Each adapter
// creates orders on the provider and verifies the provider's callback;
// neither touches local state.  Reconciliation with bookings and
// transactions happens in the service layer.
package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// ErrMalformedCallback is returned by Verify when required callback fields
// are missing.
var ErrMalformedCallback = errors.New("malformed gateway callback")

// OrderRequest is what the service asks a provider to open.
type OrderRequest struct {
	Amount        int64  // minor units
	Currency      string // ISO 4217
	Receipt       string // merchant reference, unique per attempt
	CustomerName  string
	CustomerEmail string
	Notes         map[string]string
}

// Order is the provider's answer to OrderRequest.
type Order struct {
	OrderID     string
	RedirectURL string // hosted checkout only
	PublicKey   string // client-side checkout key, when the provider uses one
}

// Callback carries whatever the provider sent back after checkout.
type Callback struct {
	OrderID   string
	PaymentID string
	Signature string
	Status    string
	Method    string
}

// Verdict is the provider-side outcome of a callback.  Pending means the
// provider has not settled the payment yet; nothing should change locally.
type Verdict struct {
	OK      bool
	Pending bool
	Reason  string
}

// Gateway is the shared contract of all payment providers.
type Gateway interface {
	Name() model.Gateway
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	Verify(ctx context.Context, cb Callback) (Verdict, error)
}

// NewHTTPClient returns a client with bounded dial and overall timeouts so
// provider calls can never hang a request.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
