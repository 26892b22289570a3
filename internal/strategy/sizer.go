package strategy

import "github.com/shopspring/decimal"

// SizeLegs converts the account equity snapshot into whole-share quantities
// for the two legs: round(equity/price) per leg. The full equity value is
// allocated to EACH leg independently rather than split between them, so the
// combined notional is roughly twice equity. Margin accounts absorb that;
// this is not a risk control.
func SizeLegs(equity, price1, price2 decimal.Decimal) (qty1, qty2 int64) {
	qty1 = equity.Div(price1).Round(0).IntPart()
	qty2 = equity.Div(price2).Round(0).IntPart()
	return qty1, qty2
}
