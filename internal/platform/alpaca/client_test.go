package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairbot/internal/domain"
)

func TestGetAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/account" {
			t.Errorf("path = %s, want /v2/account", r.URL.Path)
		}
		if r.Header.Get("APCA-API-KEY-ID") != "key" || r.Header.Get("APCA-API-SECRET-KEY") != "secret" {
			t.Error("missing or wrong auth headers")
		}
		w.Write([]byte(`{
			"id": "acct-1",
			"status": "ACTIVE",
			"currency": "USD",
			"equity": "100000.50",
			"cash": "25000",
			"buying_power": "200001",
			"pattern_day_trader": false
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret")
	account, err := client.GetAccount(context.Background())
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}

	if account.ID != "acct-1" || account.Status != "ACTIVE" {
		t.Errorf("account = %+v", account)
	}
	if !account.Equity.Equal(decimal.RequireFromString("100000.50")) {
		t.Errorf("equity = %s, want 100000.50", account.Equity)
	}
	if !account.Cash.Equal(decimal.NewFromInt(25000)) {
		t.Errorf("cash = %s, want 25000", account.Cash)
	}
}

func TestGetAccountBadEquity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"equity": "", "cash": "0", "buying_power": "0"}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "key", "secret").GetAccount(context.Background()); err == nil {
		t.Fatal("expected parse error for empty equity")
	}
}

func TestSubmitOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/orders" {
			t.Errorf("%s %s, want POST /v2/orders", r.Method, r.URL.Path)
		}
		var req orderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode order request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.Symbol != "GOOGL" || req.Side != "buy" {
			t.Errorf("order = %s %s, want buy GOOGL", req.Side, req.Symbol)
		}
		if req.Qty != "102" {
			t.Errorf("qty = %q, want \"102\"", req.Qty)
		}
		if req.Type != "market" || req.TimeInForce != "day" {
			t.Errorf("type/tif = %s/%s, want market/day", req.Type, req.TimeInForce)
		}
		if req.ClientOrderID != "coid-1" {
			t.Errorf("client_order_id = %q, want coid-1", req.ClientOrderID)
		}
		json.NewEncoder(w).Encode(orderResponse{
			ID:            "ord-1",
			ClientOrderID: req.ClientOrderID,
			Symbol:        req.Symbol,
			Status:        "accepted",
			SubmittedAt:   time.Date(2025, 6, 30, 14, 30, 0, 0, time.UTC),
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret")
	conf, err := client.SubmitOrder(context.Background(), domain.OrderIntent{
		ClientOrderID: "coid-1",
		Symbol:        "GOOGL",
		Side:          domain.OrderSideBuy,
		Qty:           102,
		TimeInForce:   domain.TimeInForceDay,
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if conf.OrderID != "ord-1" || conf.ClientOrderID != "coid-1" || conf.Status != "accepted" {
		t.Errorf("confirmation = %+v", conf)
	}
}

func TestAPIErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusUnprocessableEntity, domain.ErrInvalidOrder},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"message": "nope"}`))
		}))

		_, err := NewClient(srv.URL, "key", "secret").GetAccount(context.Background())
		srv.Close()

		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: error %v is not %v", tc.status, err, tc.want)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Errorf("status %d: error %v is not an *APIError", tc.status, err)
			continue
		}
		if apiErr.Message != "nope" {
			t.Errorf("status %d: message = %q, want body message", tc.status, apiErr.Message)
		}
	}
}

func TestGetDailyBars(t *testing.T) {
	page2 := "tok-2"
	fixedNow := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.String())
		if r.URL.Path != "/v2/stocks/GOOGL/bars" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("timeframe") != "1Day" {
			t.Errorf("timeframe = %q, want 1Day", q.Get("timeframe"))
		}
		if q.Get("limit") != "100" {
			t.Errorf("limit = %q, want 100", q.Get("limit"))
		}
		if q.Get("start") != fixedNow.AddDate(0, 0, -100).Format(time.RFC3339) {
			t.Errorf("start = %q", q.Get("start"))
		}
		// The most recent bar is whatever the provider will serve; the
		// request never pins an end boundary.
		if q.Has("end") {
			t.Error("request must not carry an end parameter")
		}

		if q.Get("page_token") == "" {
			json.NewEncoder(w).Encode(barsResponse{
				Symbol: "GOOGL",
				Bars: []wireBar{
					{Timestamp: time.Date(2025, 6, 26, 4, 0, 0, 0, time.UTC), Close: 100, Volume: 1000},
					{Timestamp: time.Date(2025, 6, 27, 4, 0, 0, 0, time.UTC), Close: 101, Volume: 1100},
				},
				NextPageToken: &page2,
			})
			return
		}
		if q.Get("page_token") != page2 {
			t.Errorf("page_token = %q, want %q", q.Get("page_token"), page2)
		}
		json.NewEncoder(w).Encode(barsResponse{
			Symbol: "GOOGL",
			Bars: []wireBar{
				{Timestamp: time.Date(2025, 6, 30, 4, 0, 0, 0, time.UTC), Close: 99, Volume: 900},
			},
		})
	}))
	defer srv.Close()

	client := NewDataClient(srv.URL, "key", "secret")
	client.now = func() time.Time { return fixedNow }

	series, err := client.GetDailyBars(context.Background(), "GOOGL", 100)
	if err != nil {
		t.Fatalf("GetDailyBars: %v", err)
	}

	if len(requests) != 2 {
		t.Fatalf("expected 2 paginated requests, got %d", len(requests))
	}
	if len(series) != 3 {
		t.Fatalf("expected 3 bars across pages, got %d", len(series))
	}
	if series[0].Symbol != "GOOGL" {
		t.Errorf("bar symbol = %s", series[0].Symbol)
	}
	if !series[2].Close.Equal(decimal.NewFromInt(99)) {
		t.Errorf("last close = %s, want 99", series[2].Close)
	}
	if !series[0].Date.Before(series[2].Date) {
		t.Error("bars must stay oldest first")
	}
}
