// Package strategy implements the pairs-divergence decision engine: the
// relative-performance spread between two symbols, the adaptive divergence
// threshold derived from recent spread history, the entry signal rule, and
// position sizing for the two legs.
package strategy

import (
	"math"

	"github.com/alanyoungcy/pairbot/internal/domain"
)

// ComputeSpread returns the per-day difference between the two symbols' daily
// fractional returns, oldest first. The series are aligned on their trailing
// min(len) bars so the latest bar of each lines up; the result has one fewer
// element than the aligned length, since the first day has no prior close.
//
// spread_t = (c1_t/c1_{t-1} - 1) - (c2_t/c2_{t-1} - 1)
//
// A negative spread means symbol1 underperformed symbol2 that day. No
// smoothing or outlier rejection is applied. Both inputs must have at least
// two bars; the scheduler's insufficient-data gate enforces that before
// calling here.
func ComputeSpread(p1, p2 domain.PriceSeries) []float64 {
	n := len(p1)
	if len(p2) < n {
		n = len(p2)
	}
	c1 := p1[len(p1)-n:].Closes()
	c2 := p2[len(p2)-n:].Closes()

	spread := make([]float64, 0, n-1)
	for t := 1; t < n; t++ {
		r1 := c1[t]/c1[t-1] - 1
		r2 := c2[t]/c2[t-1] - 1
		spread = append(spread, r1-r2)
	}
	return spread
}

// DivergenceThreshold returns the largest absolute spread observed over the
// trailing window elements (the whole series when it is shorter than window).
// It is the adaptive entry bound: sensitivity scales with recent volatility
// rather than a fixed constant. The result is always >= 0; an empty series
// yields 0.
func DivergenceThreshold(spread []float64, window int) float64 {
	if window > 0 && len(spread) > window {
		spread = spread[len(spread)-window:]
	}
	max := 0.0
	for _, s := range spread {
		if a := math.Abs(s); a > max {
			max = a
		}
	}
	return max
}
