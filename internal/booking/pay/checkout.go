package pay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// ClientConfig configures the hosted checkout client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	SuccessURL string
	CancelURL  string

	Client *http.Client
	Logger *slog.Logger
}

// Client creates hosted checkout sessions at the payment provider.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	successURL string
	cancelURL  string

	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a checkout client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("pay: base_url and api_key are required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		baseURL:    u,
		apiKey:     cfg.APIKey,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		httpClient: client,
		logger:     logger,
	}, nil
}

// CheckoutRequest describes a session for one pending payment.
type CheckoutRequest struct {
	PaymentID   string
	BookingID   string
	Amount      int64
	Currency    string
	Description string
	ExpiresAt   time.Time
}

// CheckoutSession is the provider's response.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type checkoutPayload struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description,omitempty"`
	SuccessURL  string            `json:"success_url,omitempty"`
	CancelURL   string            `json:"cancel_url,omitempty"`
	ExpiresAt   int64             `json:"expires_at,omitempty"`
	Metadata    map[string]string `json:"metadata"`
}

// CreateCheckoutSession registers a checkout session carrying the payment id
// in metadata so the completion webhook can be matched back.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	logger := c.logger.With("op", "CreateCheckoutSession", "payment_id", req.PaymentID)

	payload := checkoutPayload{
		Amount:      req.Amount,
		Currency:    strings.ToLower(req.Currency),
		Description: req.Description,
		SuccessURL:  c.successURL,
		CancelURL:   c.cancelURL,
		Metadata: map[string]string{
			"payment_id": req.PaymentID,
			"booking_id": req.BookingID,
		},
	}
	if !req.ExpiresAt.IsZero() {
		payload.ExpiresAt = req.ExpiresAt.Unix()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return CheckoutSession{}, err
	}

	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v1/checkout/sessions")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return CheckoutSession{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", "checkout-"+req.PaymentID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("checkout request: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	logger.Debug("checkout raw", "status", resp.Status, "body", trim(string(b), 2000))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CheckoutSession{}, &ProviderError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}

	var out CheckoutSession
	if err := json.Unmarshal(b, &out); err != nil {
		return CheckoutSession{}, fmt.Errorf("decode checkout session: %w", err)
	}
	if strings.TrimSpace(out.ID) == "" || strings.TrimSpace(out.URL) == "" {
		return CheckoutSession{}, fmt.Errorf("checkout: empty id or url")
	}
	return out, nil
}

// ProviderError is a non-2xx response from the provider.
type ProviderError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	bt := strings.TrimSpace(e.Body)
	if bt == "" {
		return fmt.Sprintf("payment provider error: %s", e.Status)
	}
	return fmt.Sprintf("payment provider error: %s: %s", e.Status, bt)
}

func trim(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
