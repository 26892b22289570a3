// Package alpaca implements REST and WebSocket clients for the Alpaca trading
// and market data APIs. Authentication is plain API-key headers; there is no
// request signing.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairbot/internal/domain"
)

const (
	headerKeyID     = "APCA-API-KEY-ID"
	headerKeySecret = "APCA-API-SECRET-KEY"
)

// Client is the REST client for the Alpaca trading API (account and orders).
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// NewClient creates a new Alpaca trading API client.
//
// baseURL is the API root, e.g. "https://paper-api.alpaca.markets".
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetAccount returns the current account snapshot, including equity.
func (c *Client) GetAccount(ctx context.Context) (domain.Account, error) {
	body, err := doRequest(ctx, c.httpClient, c.apiKey, c.apiSecret, http.MethodGet, c.baseURL+"/v2/account", nil)
	if err != nil {
		return domain.Account{}, fmt.Errorf("alpaca: get account: %w", err)
	}

	var resp accountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Account{}, fmt.Errorf("alpaca: decode account: %w", err)
	}

	equity, err := decimal.NewFromString(resp.Equity)
	if err != nil {
		return domain.Account{}, fmt.Errorf("alpaca: parse equity %q: %w", resp.Equity, err)
	}
	cash, err := decimal.NewFromString(resp.Cash)
	if err != nil {
		return domain.Account{}, fmt.Errorf("alpaca: parse cash %q: %w", resp.Cash, err)
	}
	buyingPower, err := decimal.NewFromString(resp.BuyingPower)
	if err != nil {
		return domain.Account{}, fmt.Errorf("alpaca: parse buying_power %q: %w", resp.BuyingPower, err)
	}

	return domain.Account{
		ID:           resp.ID,
		Status:       resp.Status,
		Currency:     resp.Currency,
		Equity:       equity,
		Cash:         cash,
		BuyingPower:  buyingPower,
		PatternDayTr: resp.PatternDayTrader,
	}, nil
}

// GetAccountRaw returns the raw /v2/account payload. The probe mode prints
// this verbatim as an account health check.
func (c *Client) GetAccountRaw(ctx context.Context) ([]byte, error) {
	body, err := doRequest(ctx, c.httpClient, c.apiKey, c.apiSecret, http.MethodGet, c.baseURL+"/v2/account", nil)
	if err != nil {
		return nil, fmt.Errorf("alpaca: get account: %w", err)
	}
	return body, nil
}

// SubmitOrder submits a market order for the given intent and returns the
// broker's acknowledgement. It does not wait for a fill.
func (c *Client) SubmitOrder(ctx context.Context, intent domain.OrderIntent) (domain.OrderConfirmation, error) {
	req := orderRequest{
		Symbol:        intent.Symbol,
		Qty:           strconv.FormatInt(intent.Qty, 10),
		Side:          string(intent.Side),
		Type:          "market",
		TimeInForce:   string(intent.TimeInForce),
		ClientOrderID: intent.ClientOrderID,
	}

	body, err := doRequest(ctx, c.httpClient, c.apiKey, c.apiSecret, http.MethodPost, c.baseURL+"/v2/orders", req)
	if err != nil {
		return domain.OrderConfirmation{}, fmt.Errorf("alpaca: submit order %s %s: %w", intent.Side, intent.Symbol, err)
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderConfirmation{}, fmt.Errorf("alpaca: decode order response: %w", err)
	}

	return domain.OrderConfirmation{
		OrderID:       resp.ID,
		ClientOrderID: resp.ClientOrderID,
		Symbol:        resp.Symbol,
		Status:        resp.Status,
		SubmittedAt:   resp.SubmittedAt,
	}, nil
}

// --------------------------------------------------------------------------
// Internal helpers (shared with the market data client)
// --------------------------------------------------------------------------

// APIError is a non-2xx response from an Alpaca API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("alpaca: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known status codes onto domain sentinel errors so callers
// can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthorized
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case http.StatusUnprocessableEntity:
		return domain.ErrInvalidOrder
	default:
		return nil
	}
}

// doRequest builds, authenticates, sends, and reads an HTTP request against
// an Alpaca API host.
func doRequest(ctx context.Context, client *http.Client, apiKey, apiSecret, method, fullURL string, reqBody any) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerKeyID, apiKey)
	req.Header.Set(headerKeySecret, apiSecret)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		var apiMsg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &apiMsg) == nil && apiMsg.Message != "" {
			msg = apiMsg.Message
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return respBody, nil
}
