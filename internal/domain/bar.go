package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one daily OHLCV bar for a symbol. Date is the bar's session
// timestamp as reported by the data provider.
type Bar struct {
	Symbol string
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// PriceSeries is a run of daily bars for a single symbol, oldest first.
type PriceSeries []Bar

// Closes returns the closing prices as float64s, oldest first. The spread
// math runs on floats; exact decimals are kept only where money changes
// hands.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close.InexactFloat64()
	}
	return out
}

// LastClose returns the most recent closing price. It panics on an empty
// series; callers gate on length first.
func (s PriceSeries) LastClose() decimal.Decimal {
	return s[len(s)-1].Close
}
