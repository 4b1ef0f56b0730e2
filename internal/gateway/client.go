// Package gateway is the HTTP client for the card/mobile-money payment gateway.
// The wire format follows Paystack's transaction API.
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
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"

	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/config"
	"github.com/trailquest/trailquest/internal/metrics"
	"github.com/trailquest/trailquest/pkg/logger"
)

// StatusSuccess is the only transaction status that confirms a payment.
const StatusSuccess = "success"

// Gateway is the contract the billing services need from a payment provider.
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*Authorization, error)
	Verify(ctx context.Context, reference string) (*Transaction, error)
}

// Metadata is attached at initialization and echoed back on verification.
type Metadata struct {
	Type   string `json:"type"`
	UserID uint   `json:"user_id"`
	HuntID uint   `json:"hunt_id,omitempty"`
	Plan   string `json:"plan,omitempty"`
}

// InitializeRequest starts a transaction.
type InitializeRequest struct {
	Email     string
	Amount    decimal.Decimal
	Reference string
	Metadata  Metadata
}

// Authorization is where the payer is sent to complete the transaction.
type Authorization struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Transaction is the verified state of a payment.
type Transaction struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    int64           `json:"amount"` // minor units
	Currency  string          `json:"currency"`
	Metadata  Metadata        `json:"metadata"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// Succeeded reports whether the gateway confirmed the payment.
func (t *Transaction) Succeeded() bool {
	return t.Status == StatusSuccess
}

// AmountPaid converts the minor-unit amount to a decimal in major units.
func (t *Transaction) AmountPaid() decimal.Decimal {
	return FromMinorUnits(t.Amount)
}

// ToMinorUnits converts a major-unit amount (shillings) to minor units (cents).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts minor units back to a major-unit decimal.
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to the gateway over HTTPS with retries on network errors and 5xx.
type Client struct {
	baseURL     string
	secretKey   string
	currency    string
	callbackURL string
	http        *retryablehttp.Client
	log         *logger.Logger
}

// NewClient creates a gateway client.
func NewClient(cfg *config.GatewayConfig, log *logger.Logger) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = cfg.MaxRetries
	httpClient.RetryWaitMin = 250 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.HTTPClient.Timeout = time.Duration(cfg.Timeout) * time.Second
	httpClient.Logger = nil

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:   cfg.SecretKey,
		currency:    cfg.Currency,
		callbackURL: cfg.CallbackURL,
		http:        httpClient,
		log:         log,
	}
}

// Initialize creates a transaction and returns the hosted checkout URL.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*Authorization, error) {
	if req.Email == "" || req.Reference == "" || !req.Amount.IsPositive() {
		return nil, fmt.Errorf("initialize %q: email, reference and a positive amount are required: %w", req.Reference, apperr.ErrInvalidInput)
	}

	body := map[string]interface{}{
		"email":     req.Email,
		"amount":    ToMinorUnits(req.Amount),
		"currency":  c.currency,
		"reference": req.Reference,
		"metadata":  req.Metadata,
	}
	if c.callbackURL != "" {
		body["callback_url"] = c.callbackURL
	}

	var auth Authorization
	if err := c.do(ctx, "initialize", http.MethodPost, "/transaction/initialize", body, &auth); err != nil {
		return nil, err
	}
	if auth.Reference == "" {
		auth.Reference = req.Reference
	}

	c.log.Debug().
		Str("reference", auth.Reference).
		Str("type", req.Metadata.Type).
		Msg("Initialized gateway transaction")

	return &auth, nil
}

// Verify fetches the transaction state for reference.
func (c *Client) Verify(ctx context.Context, reference string) (*Transaction, error) {
	if reference == "" {
		return nil, fmt.Errorf("verify: empty reference: %w", apperr.ErrInvalidInput)
	}

	var raw json.RawMessage
	if err := c.do(ctx, "verify", http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &raw); err != nil {
		return nil, err
	}

	var tx Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("verify %s: failed to decode transaction: %w", reference, apperr.ErrGatewayUnavailable)
	}
	tx.Raw = raw
	if tx.Reference == "" {
		tx.Reference = reference
	}
	return &tx, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveGatewayRequest(operation, "error", time.Since(start))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%s: %v: %w", operation, err, apperr.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()
	metrics.ObserveGatewayRequest(operation, fmt.Sprintf("%dxx", resp.StatusCode/100), time.Since(start))

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && resp.StatusCode < 500 {
		return fmt.Errorf("%s: failed to decode response (status %d): %w", operation, resp.StatusCode, apperr.ErrGatewayUnavailable)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s: gateway returned status %d: %w", operation, resp.StatusCode, apperr.ErrGatewayUnavailable)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %s: %w", operation, env.Message, apperr.ErrNotFound)
	case resp.StatusCode >= 400 || !env.Status:
		return fmt.Errorf("%s: gateway rejected request (status %d): %s: %w", operation, resp.StatusCode, env.Message, apperr.ErrInvalidInput)
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: failed to decode data: %w", operation, apperr.ErrGatewayUnavailable)
	}
	return nil
}
