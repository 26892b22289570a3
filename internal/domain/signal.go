package domain

import "time"

// DecisionAction says what a cycle concluded: stay flat or enter the pair.
type DecisionAction string

const (
	ActionNone  DecisionAction = "none"
	ActionEnter DecisionAction = "enter"
)

// TradeDecision is the output of one evaluation cycle. When Action is
// ActionEnter, LongSymbol and ShortSymbol name the two legs; Spread and
// Threshold record the values that triggered the entry. A decision is
// produced once per cycle and consumed immediately or discarded.
type TradeDecision struct {
	Action      DecisionAction
	LongSymbol  string
	ShortSymbol string
	Spread      float64
	Threshold   float64
	DecidedAt   time.Time
}

// Enter reports whether this decision requests an entry.
func (d TradeDecision) Enter() bool { return d.Action == ActionEnter }

// EntryRecord is the journaled outcome of a dispatched entry: the decision
// plus the per-leg submission results.
type EntryRecord struct {
	ID       string
	Decision TradeDecision
	Legs     [2]LegOutcome
}
