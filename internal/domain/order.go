package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// TimeInForce is the order validity policy.
type TimeInForce string

const (
	// TimeInForceDay keeps the order live for the current session only.
	TimeInForceDay TimeInForce = "day"
)

// OrderIntent is one leg of a pairs entry: a market order for a whole number
// of shares. Two intents are always produced together, never one leg alone.
// An intent lives for a single cycle; it is not retried after dispatch.
type OrderIntent struct {
	ClientOrderID string
	Symbol        string
	Side          OrderSide
	Qty           int64
	TimeInForce   TimeInForce
}

// OrderConfirmation is the broker's acknowledgement of a submitted order. The
// bot does not await fills or poll order status; this is a receipt, not a
// fill report.
type OrderConfirmation struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Status        string
	SubmittedAt   time.Time
}

// LegOutcome records the per-leg result of dispatching a two-leg entry. The
// two submissions carry no atomicity guarantee; when one leg fails the
// asymmetry is surfaced through these outcomes rather than rolled back.
type LegOutcome struct {
	Intent       OrderIntent
	Confirmation OrderConfirmation
	Err          error
}

// Failed reports whether this leg's submission failed.
func (o LegOutcome) Failed() bool { return o.Err != nil }
