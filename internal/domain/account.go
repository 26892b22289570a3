package domain

import "github.com/shopspring/decimal"

// Account is a point-in-time snapshot of the brokerage account. Equity is
// fetched fresh at decision time and used only for sizing; it is never cached
// across cycles.
type Account struct {
	ID           string
	Status       string
	Currency     string
	Equity       decimal.Decimal
	Cash         decimal.Decimal
	BuyingPower  decimal.Decimal
	PatternDayTr bool
}
