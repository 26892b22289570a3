package strategy

import (
	"math"
	"time"

	"github.com/alanyoungcy/pairbot/internal/domain"
)

// Evaluate compares the latest one-day spread against the divergence
// threshold and returns the resulting decision. Entry requires strictly
// abs(latestSpread) > threshold: equality does not trigger, which is what
// keeps the latest day from satisfying the test against its own value when it
// is the maximum of the threshold window.
//
// Direction is pure mean reversion on spread = return(symbol1) -
// return(symbol2): a negative spread means symbol1 lagged, so the decision is
// long symbol1 / short symbol2; a positive spread reverses the legs.
func Evaluate(symbol1, symbol2 string, latestSpread, threshold float64, now time.Time) domain.TradeDecision {
	d := domain.TradeDecision{
		Action:    domain.ActionNone,
		Spread:    latestSpread,
		Threshold: threshold,
		DecidedAt: now,
	}

	if math.Abs(latestSpread) <= threshold {
		return d
	}

	d.Action = domain.ActionEnter
	if latestSpread < 0 {
		d.LongSymbol, d.ShortSymbol = symbol1, symbol2
	} else {
		d.LongSymbol, d.ShortSymbol = symbol2, symbol1
	}
	return d
}
