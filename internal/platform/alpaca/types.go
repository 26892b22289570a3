package alpaca

import "time"

// accountResponse is the wire form of GET /v2/account. Monetary fields arrive
// as decimal strings.
type accountResponse struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	Currency         string `json:"currency"`
	Equity           string `json:"equity"`
	Cash             string `json:"cash"`
	BuyingPower      string `json:"buying_power"`
	PatternDayTrader bool   `json:"pattern_day_trader"`
}

// orderRequest is the wire form of POST /v2/orders. Qty is a string per the
// API; this client only ever sends whole-share quantities.
type orderRequest struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// orderResponse is the wire form of the order submission acknowledgement.
type orderResponse struct {
	ID            string    `json:"id"`
	ClientOrderID string    `json:"client_order_id"`
	Symbol        string    `json:"symbol"`
	Status        string    `json:"status"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// wireBar is one daily bar as returned by the market data API.
type wireBar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    int64     `json:"v"`
}

// barsResponse is the wire form of GET /v2/stocks/{symbol}/bars.
type barsResponse struct {
	Bars          []wireBar `json:"bars"`
	Symbol        string    `json:"symbol"`
	NextPageToken *string   `json:"next_page_token"`
}

// TradeUpdate is one event from the trade_updates stream: an order was
// accepted, filled, cancelled, and so on.
type TradeUpdate struct {
	Event string `json:"event"`
	Order struct {
		ID            string `json:"id"`
		ClientOrderID string `json:"client_order_id"`
		Symbol        string `json:"symbol"`
		Side          string `json:"side"`
		Status        string `json:"status"`
		FilledQty     string `json:"filled_qty"`
		FilledAvgPx   string `json:"filled_avg_price"`
	} `json:"order"`
}
