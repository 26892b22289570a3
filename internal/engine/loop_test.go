package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairbot/internal/domain"
	"github.com/alanyoungcy/pairbot/internal/notify"
	"github.com/alanyoungcy/pairbot/internal/strategy"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

func bars(symbol string, closes ...float64) domain.PriceSeries {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	out := make(domain.PriceSeries, 0, len(closes))
	for i, c := range closes {
		out = append(out, domain.Bar{
			Symbol: symbol,
			Date:   base.AddDate(0, 0, i),
			Close:  decimal.NewFromFloat(c),
		})
	}
	return out
}

// fakeHistory serves queued responses per symbol; once a queue is exhausted
// the last response repeats.
type fakeHistory struct {
	queues map[string][]domain.PriceSeries
	errs   map[string]error
	calls  int
}

func (f *fakeHistory) GetDailyBars(_ context.Context, symbol string, _ int) (domain.PriceSeries, error) {
	f.calls++
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	q := f.queues[symbol]
	if len(q) == 0 {
		return nil, fmt.Errorf("no fixture for %s", symbol)
	}
	head := q[0]
	if len(q) > 1 {
		f.queues[symbol] = q[1:]
	}
	return head, nil
}

type fakeAccount struct {
	equity decimal.Decimal
	err    error
	calls  int
}

func (f *fakeAccount) GetAccount(context.Context) (domain.Account, error) {
	f.calls++
	if f.err != nil {
		return domain.Account{}, f.err
	}
	return domain.Account{Equity: f.equity}, nil
}

// fakeDispatcher records submitted intents; failFor makes submissions for a
// symbol fail.
type fakeDispatcher struct {
	intents []domain.OrderIntent
	failFor map[string]error
}

func (f *fakeDispatcher) SubmitOrder(_ context.Context, intent domain.OrderIntent) (domain.OrderConfirmation, error) {
	f.intents = append(f.intents, intent)
	if err := f.failFor[intent.Symbol]; err != nil {
		return domain.OrderConfirmation{}, err
	}
	return domain.OrderConfirmation{
		OrderID:       "ord-" + intent.Symbol,
		ClientOrderID: intent.ClientOrderID,
		Symbol:        intent.Symbol,
		Status:        "accepted",
		SubmittedAt:   time.Date(2025, 6, 30, 14, 30, 0, 0, time.UTC),
	}, nil
}

// fakeClock advances instantly and can cancel a context after a number of
// sleeps so loop tests terminate.
type fakeClock struct {
	now         time.Time
	sleeps      int
	cancelAfter int
	cancel      context.CancelFunc
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(ctx context.Context, _ time.Duration) error {
	f.sleeps++
	if f.cancel != nil && f.sleeps >= f.cancelAfter {
		f.cancel()
	}
	return ctx.Err()
}

type fakeBus struct {
	decisions []domain.TradeDecision
}

func (f *fakeBus) PublishDecision(_ context.Context, d domain.TradeDecision) error {
	f.decisions = append(f.decisions, d)
	return nil
}

type fakeJournal struct {
	records []domain.EntryRecord
	err     error
}

func (f *fakeJournal) RecordEntry(_ context.Context, rec domain.EntryRecord) error {
	f.records = append(f.records, rec)
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		Symbol1:         "GOOGL",
		Symbol2:         "MSFT",
		LookbackDays:    100,
		ThresholdWindow: 20,
		PollInterval:    60 * time.Second,
	}
}

func newTestLoop(h *fakeHistory, a *fakeAccount, d *fakeDispatcher, c Clock, j domain.EntryJournal, b domain.SignalBus) *Loop {
	return New(testConfig(), h, a, d, c, notify.NewNotifier(nil, nil, testLogger()), j, b, testLogger())
}

// ---------------------------------------------------------------------------
// Loop behavior
// ---------------------------------------------------------------------------

func TestRunRetriesOnInsufficientHistory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First cycle: one bar only for GOOGL. Second cycle: enough history.
	history := &fakeHistory{queues: map[string][]domain.PriceSeries{
		"GOOGL": {bars("GOOGL", 98), bars("GOOGL", 100, 101, 99, 98)},
		"MSFT":  {bars("MSFT", 50, 50, 51, 52)},
	}}
	account := &fakeAccount{equity: decimal.NewFromInt(10000)}
	dispatcher := &fakeDispatcher{}
	bus := &fakeBus{}
	clock := &fakeClock{cancelAfter: 2, cancel: cancel}

	loop := newTestLoop(history, account, dispatcher, clock, nil, bus)

	_, err := loop.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}

	// The short-history cycle must not evaluate: only the second cycle
	// publishes a decision.
	if len(bus.decisions) != 1 {
		t.Fatalf("expected 1 published decision, got %d", len(bus.decisions))
	}
	if bus.decisions[0].Action != domain.ActionNone {
		t.Fatalf("expected no-action decision, got %s", bus.decisions[0].Action)
	}
	if clock.sleeps != 2 {
		t.Fatalf("expected 2 pauses (retry + no-action), got %d", clock.sleeps)
	}
	if account.calls != 0 {
		t.Fatalf("equity must only be fetched at dispatch time, got %d calls", account.calls)
	}
	if len(dispatcher.intents) != 0 {
		t.Fatalf("no orders expected, got %d", len(dispatcher.intents))
	}
	if loop.State() == StateTerminated {
		t.Fatal("loop must not terminate without an entry")
	}
}

func TestRunEvaluatesReferenceScenario(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	history := &fakeHistory{queues: map[string][]domain.PriceSeries{
		"GOOGL": {bars("GOOGL", 100, 101, 99, 98)},
		"MSFT":  {bars("MSFT", 50, 50, 51, 52)},
	}}
	bus := &fakeBus{}
	clock := &fakeClock{cancelAfter: 1, cancel: cancel}
	loop := newTestLoop(history, &fakeAccount{}, &fakeDispatcher{}, clock, nil, bus)

	_, err := loop.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}

	if len(bus.decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(bus.decisions))
	}
	d := bus.decisions[0]

	wantSpread := (98.0/99.0 - 1) - (52.0/51.0 - 1)
	if math.Abs(d.Spread-wantSpread) > 1e-12 {
		t.Errorf("spread = %.12f, want %.12f", d.Spread, wantSpread)
	}
	// The day with the largest absolute divergence in the window sets the
	// threshold, and the latest day cannot strictly exceed a window that
	// contains it.
	wantThreshold := math.Abs((99.0/101.0 - 1) - (51.0/50.0 - 1))
	if math.Abs(d.Threshold-wantThreshold) > 1e-12 {
		t.Errorf("threshold = %.12f, want %.12f", d.Threshold, wantThreshold)
	}
	if d.Action != domain.ActionNone {
		t.Errorf("expected no action, got %s", d.Action)
	}
}

func TestRunPropagatesHistoryError(t *testing.T) {
	boom := errors.New("history service down")
	history := &fakeHistory{
		queues: map[string][]domain.PriceSeries{},
		errs:   map[string]error{"GOOGL": boom},
	}
	dispatcher := &fakeDispatcher{}
	loop := newTestLoop(history, &fakeAccount{}, dispatcher, &fakeClock{}, nil, nil)

	_, err := loop.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected history error to propagate, got %v", err)
	}
	if len(dispatcher.intents) != 0 {
		t.Fatalf("no orders expected, got %d", len(dispatcher.intents))
	}
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

var dispatchNow = time.Date(2025, 6, 30, 21, 0, 0, 0, time.UTC)

func enterDecision(spread float64) domain.TradeDecision {
	return strategy.Evaluate("GOOGL", "MSFT", spread, 0.05, dispatchNow)
}

func TestDispatchProducesBalancedLegs(t *testing.T) {
	account := &fakeAccount{equity: decimal.NewFromInt(10000)}
	dispatcher := &fakeDispatcher{}
	journal := &fakeJournal{}
	loop := newTestLoop(&fakeHistory{}, account, dispatcher, &fakeClock{now: dispatchNow}, journal, nil)

	rec, err := loop.dispatch(context.Background(),
		enterDecision(-0.08), // GOOGL lagged: long GOOGL, short MSFT
		decimal.NewFromInt(98), decimal.NewFromInt(52),
	)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(dispatcher.intents) != 2 {
		t.Fatalf("expected exactly 2 order legs, got %d", len(dispatcher.intents))
	}

	leg1, leg2 := dispatcher.intents[0], dispatcher.intents[1]
	if leg1.Symbol != "GOOGL" || leg1.Side != domain.OrderSideBuy {
		t.Errorf("leg1 = %s %s, want buy GOOGL", leg1.Side, leg1.Symbol)
	}
	if leg2.Symbol != "MSFT" || leg2.Side != domain.OrderSideSell {
		t.Errorf("leg2 = %s %s, want sell MSFT", leg2.Side, leg2.Symbol)
	}
	if leg1.Qty != 102 { // round(10000/98)
		t.Errorf("leg1 qty = %d, want 102", leg1.Qty)
	}
	if leg2.Qty != 192 { // round(10000/52)
		t.Errorf("leg2 qty = %d, want 192", leg2.Qty)
	}
	for _, leg := range dispatcher.intents {
		if leg.Qty <= 0 {
			t.Errorf("leg qty must be positive, got %d for %s", leg.Qty, leg.Symbol)
		}
		if leg.TimeInForce != domain.TimeInForceDay {
			t.Errorf("leg %s time-in-force = %s, want day", leg.Symbol, leg.TimeInForce)
		}
		if leg.ClientOrderID == "" {
			t.Errorf("leg %s is missing a client order id", leg.Symbol)
		}
	}
	if leg1.ClientOrderID == leg2.ClientOrderID {
		t.Error("legs must have distinct client order ids")
	}

	if len(journal.records) != 1 {
		t.Fatalf("expected 1 journaled entry, got %d", len(journal.records))
	}
	if journal.records[0].ID != rec.ID {
		t.Error("journaled record does not match returned record")
	}
	if account.calls != 1 {
		t.Errorf("equity must be fetched exactly once, got %d calls", account.calls)
	}
}

func TestDispatchReversedDirection(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	loop := newTestLoop(&fakeHistory{}, &fakeAccount{equity: decimal.NewFromInt(10000)},
		dispatcher, &fakeClock{now: dispatchNow}, nil, nil)

	_, err := loop.dispatch(context.Background(),
		enterDecision(0.08), // GOOGL led: short GOOGL, long MSFT
		decimal.NewFromInt(98), decimal.NewFromInt(52),
	)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if got := dispatcher.intents[0]; got.Symbol != "GOOGL" || got.Side != domain.OrderSideSell {
		t.Errorf("leg1 = %s %s, want sell GOOGL", got.Side, got.Symbol)
	}
	if got := dispatcher.intents[1]; got.Symbol != "MSFT" || got.Side != domain.OrderSideBuy {
		t.Errorf("leg2 = %s %s, want buy MSFT", got.Side, got.Symbol)
	}
}

func TestDispatchSurfacesPartialFailure(t *testing.T) {
	rejected := errors.New("rejected")
	dispatcher := &fakeDispatcher{failFor: map[string]error{"MSFT": rejected}}
	journal := &fakeJournal{}
	loop := newTestLoop(&fakeHistory{}, &fakeAccount{equity: decimal.NewFromInt(10000)},
		dispatcher, &fakeClock{now: dispatchNow}, journal, nil)

	rec, err := loop.dispatch(context.Background(),
		enterDecision(-0.08),
		decimal.NewFromInt(98), decimal.NewFromInt(52),
	)
	// One leg went through: the entry stands, the asymmetry is surfaced in
	// the record rather than rolled back.
	if err != nil {
		t.Fatalf("partial failure must not be fatal, got %v", err)
	}
	if len(dispatcher.intents) != 2 {
		t.Fatalf("both legs must be attempted, got %d", len(dispatcher.intents))
	}
	if rec.Legs[0].Failed() {
		t.Error("leg1 should have succeeded")
	}
	if !rec.Legs[1].Failed() || !errors.Is(rec.Legs[1].Err, rejected) {
		t.Error("leg2 failure must be recorded on the entry")
	}
	if len(journal.records) != 1 {
		t.Fatalf("partial entries must still be journaled, got %d records", len(journal.records))
	}
}

func TestDispatchAllLegsFailed(t *testing.T) {
	rejected := errors.New("rejected")
	dispatcher := &fakeDispatcher{failFor: map[string]error{"GOOGL": rejected, "MSFT": rejected}}
	loop := newTestLoop(&fakeHistory{}, &fakeAccount{equity: decimal.NewFromInt(10000)},
		dispatcher, &fakeClock{now: dispatchNow}, nil, nil)

	_, err := loop.dispatch(context.Background(),
		enterDecision(-0.08),
		decimal.NewFromInt(98), decimal.NewFromInt(52),
	)
	if !errors.Is(err, ErrAllLegsFailed) {
		t.Fatalf("expected ErrAllLegsFailed, got %v", err)
	}
}

func TestDispatchPropagatesAccountError(t *testing.T) {
	down := errors.New("account service down")
	dispatcher := &fakeDispatcher{}
	loop := newTestLoop(&fakeHistory{}, &fakeAccount{err: down},
		dispatcher, &fakeClock{now: dispatchNow}, nil, nil)

	_, err := loop.dispatch(context.Background(),
		enterDecision(-0.08),
		decimal.NewFromInt(98), decimal.NewFromInt(52),
	)
	if !errors.Is(err, down) {
		t.Fatalf("expected account error to propagate, got %v", err)
	}
	if len(dispatcher.intents) != 0 {
		t.Fatalf("no orders may be placed without an equity snapshot, got %d", len(dispatcher.intents))
	}
}

// ---------------------------------------------------------------------------
// Clock
// ---------------------------------------------------------------------------

func TestRealClockSleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := RealClock().Sleep(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("sleep did not return promptly, took %v", elapsed)
	}
}
