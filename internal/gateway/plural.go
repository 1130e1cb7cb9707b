package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

const pluralBaseURL = "https://pluraluat.v2.pinepg.in"

// order statuses reported by the order lookup and the checkout redirect
var (
	pluralFailed = map[string]bool{
		"FAILED":    true,
		"FAILURE":   true,
		"CANCELLED": true,
		"REJECTED":  true,
		"EXPIRED":   true,
	}
	pluralPaid = map[string]bool{
		"PROCESSED": true,
	}
)

// Plural drives the hosted-checkout flow: an access token is exchanged for
// client credentials, then an order is created and the customer is sent to
// the returned redirect URL.
//
// The redirect carries no signature.  Verify ignores the status it reports
// and asks the order API instead; only PROCESSED settles the payment.
type Plural struct {
	clientID     string
	clientSecret string
	callbackURL  string
	baseURL      string
	client       *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewPlural(clientID, clientSecret, callbackURL, baseURL string, client *http.Client) *Plural {
	if baseURL == "" {
		baseURL = pluralBaseURL
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &Plural{
		clientID:     clientID,
		clientSecret: clientSecret,
		callbackURL:  callbackURL,
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       client,
	}
}

func (p *Plural) Name() model.Gateway { return model.GatewayPlural }

func (p *Plural) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	tok, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	first, last := splitName(req.CustomerName)
	body := map[string]any{
		"merchant_order_reference": req.Receipt,
		"order_amount": map[string]any{
			"value":    req.Amount,
			"currency": req.Currency,
		},
		"callback_url": p.callbackURL,
		"purchase_details": map[string]any{
			"customer": map[string]any{
				"email_id":   req.CustomerEmail,
				"first_name": first,
				"last_name":  last,
			},
			"merchant_metadata": req.Notes,
		},
	}
	var out struct {
		OrderID     string `json:"order_id"`
		RedirectURL string `json:"redirect_url"`
		Message     string `json:"response_message"`
	}
	if err := p.post(ctx, "/api/checkout/v1/orders", tok, body, &out); err != nil {
		return nil, fmt.Errorf("plural create order: %w", err)
	}
	if out.OrderID == "" || out.RedirectURL == "" {
		return nil, fmt.Errorf("plural create order: incomplete response %q", out.Message)
	}
	return &Order{OrderID: out.OrderID, RedirectURL: out.RedirectURL}, nil
}

func (p *Plural) Verify(ctx context.Context, cb Callback) (Verdict, error) {
	if cb.OrderID == "" {
		return Verdict{}, ErrMalformedCallback
	}
	st, err := p.orderStatus(ctx, cb.OrderID)
	if err != nil {
		return Verdict{}, err
	}
	switch {
	case pluralPaid[st]:
		return Verdict{OK: true}, nil
	case pluralFailed[st]:
		return Verdict{OK: false, Reason: "gateway reported " + strings.ToLower(st)}, nil
	default:
		// CREATED, PENDING, AUTHORIZED: the customer has not finished yet
		return Verdict{Pending: true, Reason: "payment not completed yet"}, nil
	}
}

// orderStatus fetches the order from the provider and returns its status.
func (p *Plural) orderStatus(ctx context.Context, orderID string) (string, error) {
	tok, err := p.accessToken(ctx)
	if err != nil {
		return "", err
	}
	var out struct {
		Data struct {
			OrderID string `json:"order_id"`
			Status  string `json:"status"`
		} `json:"data"`
	}
	if err := p.do(ctx, http.MethodGet, "/api/pay/v1/orders/"+url.PathEscape(orderID), tok, nil, &out); err != nil {
		return "", fmt.Errorf("plural order lookup: %w", err)
	}
	if out.Data.OrderID != orderID {
		return "", fmt.Errorf("plural order lookup: got order %q, want %q", out.Data.OrderID, orderID)
	}
	return strings.ToUpper(strings.TrimSpace(out.Data.Status)), nil
}

// accessToken returns a cached token, refreshing it a minute before expiry.
func (p *Plural) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" && time.Now().Add(time.Minute).Before(p.tokenExp) {
		return p.token, nil
	}
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   string `json:"expires_at"`
		ExpiresIn   int    `json:"expires_in"`
	}
	body := map[string]string{
		"client_id":     p.clientID,
		"client_secret": p.clientSecret,
		"grant_type":    "client_credentials",
	}
	if err := p.post(ctx, "/api/auth/v1/token", "", body, &out); err != nil {
		return "", fmt.Errorf("plural token: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("plural token: empty access token")
	}
	exp := time.Now().Add(30 * time.Minute)
	if t, err := time.Parse(time.RFC3339, out.ExpiresAt); err == nil {
		exp = t
	} else if out.ExpiresIn > 0 {
		exp = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	p.token, p.tokenExp = out.AccessToken, exp
	return p.token, nil
}

func (p *Plural) post(ctx context.Context, path, bearer string, body, out any) error {
	return p.do(ctx, http.MethodPost, path, bearer, body, out)
}

func (p *Plural) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(snippet))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if i := strings.LastIndex(full, " "); i > 0 {
		return full[:i], full[i+1:]
	}
	return full, ""
}
