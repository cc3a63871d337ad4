// Package checkout creates hosted checkout sessions with the payments
// provider.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://live.dodopayments.com"
	httpTimeout    = 15 * time.Second
)

var (
	ErrMissingProduct    = errors.New("productId is required")
	ErrMissingCredential = errors.New("payments are not configured: set PAYMENTS_API_KEY in the environment or .env file")
	ErrNoCheckoutURL     = errors.New("checkout provider response has no checkout_url")
)

// UpstreamError carries the provider's status and body unchanged.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("checkout provider error (status %d): %s", e.Status, e.Body)
}

type Request struct {
	ProductID     string
	CustomerEmail string
	// Metadata is echoed back on webhooks.
	Metadata map[string]string
}

type Session struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

type Client struct {
	apiKey    string
	baseURL   string
	returnURL string
	client    *http.Client
}

// NewClient builds a client. An empty apiKey is allowed; CreateSession then
// fails with ErrMissingCredential.
func NewClient(apiKey, baseURL, returnURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		returnURL: returnURL,
		client:    &http.Client{Timeout: httpTimeout},
	}
}

type productItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type customer struct {
	Email string `json:"email"`
}

type sessionRequest struct {
	ProductCart []productItem     `json:"product_cart"`
	Customer    *customer         `json:"customer,omitempty"`
	ReturnURL   string            `json:"return_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CreateSession asks the provider for a hosted checkout page.
func (c *Client) CreateSession(ctx context.Context, req Request) (*Session, error) {
	if strings.TrimSpace(req.ProductID) == "" {
		return nil, ErrMissingProduct
	}
	if c.apiKey == "" {
		return nil, ErrMissingCredential
	}

	body := sessionRequest{
		ProductCart: []productItem{{ProductID: req.ProductID, Quantity: 1}},
		ReturnURL:   c.returnURL,
		Metadata:    req.Metadata,
	}
	if req.CustomerEmail != "" {
		body.Customer = &customer{Email: req.CustomerEmail}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkouts", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("checkout request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &UpstreamError{Status: res.StatusCode, Body: string(raw)}
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}
	if s.CheckoutURL == "" {
		return nil, ErrNoCheckoutURL
	}
	return &s, nil
}
