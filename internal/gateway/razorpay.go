package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

const razorpayBaseURL = "https://api.razorpay.com"

// Razorpay creates orders through the Orders API and verifies checkout
// callbacks by recomputing the HMAC-SHA256 signature over
// "order_id|payment_id" with the key secret.
type Razorpay struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

// NewRazorpay builds the adapter.  baseURL may be empty to use the live API.
func NewRazorpay(keyID, keySecret, baseURL string, client *http.Client) *Razorpay {
	if baseURL == "" {
		baseURL = razorpayBaseURL
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &Razorpay{keyID: keyID, keySecret: keySecret, baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (r *Razorpay) Name() model.Gateway { return model.GatewayRazorpay }

func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body := map[string]any{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		body["notes"] = req.Notes
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/orders", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(r.keyID, r.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("razorpay create order failed: %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("razorpay decode order: %w", err)
	}
	if out.ID == "" {
		return nil, errors.New("razorpay: empty order id")
	}
	return &Order{OrderID: out.ID, PublicKey: r.keyID}, nil
}

// Verify never calls the provider; a signature mismatch is a hard failure.
func (r *Razorpay) Verify(_ context.Context, cb Callback) (Verdict, error) {
	if cb.OrderID == "" || cb.PaymentID == "" || cb.Signature == "" {
		return Verdict{}, ErrMalformedCallback
	}
	expected := Sign(r.keySecret, cb.OrderID, cb.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(cb.Signature))) {
		return Verdict{OK: false, Reason: "signature mismatch"}, nil
	}
	return Verdict{OK: true}, nil
}

// Sign returns the hex HMAC-SHA256 of "orderID|paymentID" under secret.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
