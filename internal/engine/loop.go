// Package engine runs the pairs-divergence decision loop: poll daily history
// for the two symbols, compute the spread and its adaptive threshold, and
// dispatch a balanced two-leg entry the first time the latest spread breaches
// the threshold. The loop is strictly sequential; sleeping between cycles is
// its only suspension point, and it terminates permanently after one entry.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairbot/internal/domain"
	"github.com/alanyoungcy/pairbot/internal/notify"
	"github.com/alanyoungcy/pairbot/internal/strategy"
)

// HistoryProvider supplies bounded daily close history for one symbol. The
// provider decides the most recent available bar; no end boundary is
// requested.
type HistoryProvider interface {
	GetDailyBars(ctx context.Context, symbol string, lookbackDays int) (domain.PriceSeries, error)
}

// AccountService supplies the equity snapshot used for sizing. It is called
// only inside the dispatch step.
type AccountService interface {
	GetAccount(ctx context.Context) (domain.Account, error)
}

// OrderDispatcher submits one market order leg. The two legs of an entry are
// submitted through separate calls with no atomicity guarantee.
type OrderDispatcher interface {
	SubmitOrder(ctx context.Context, intent domain.OrderIntent) (domain.OrderConfirmation, error)
}

// State names the scheduler's position in its cycle. It is updated by the
// loop goroutine only; read it after Run returns.
type State string

const (
	StatePolling          State = "polling"
	StateInsufficientData State = "insufficient_data"
	StateEvaluating       State = "evaluating"
	StateDispatching      State = "dispatching"
	StateTerminated       State = "terminated"
)

// ErrAllLegsFailed is returned by Run when an entry was decided but neither
// leg could be submitted, so no position exists at all.
var ErrAllLegsFailed = errors.New("both order legs failed")

// Config holds the loop parameters.
type Config struct {
	Symbol1         string
	Symbol2         string
	LookbackDays    int
	ThresholdWindow int
	PollInterval    time.Duration
}

// Loop is the scheduler. All collaborators are injected; nothing is reached
// through package-level state.
type Loop struct {
	cfg      Config
	history  HistoryProvider
	account  AccountService
	orders   OrderDispatcher
	clock    Clock
	notifier *notify.Notifier
	journal  domain.EntryJournal // optional, may be nil
	bus      domain.SignalBus    // optional, may be nil
	logger   *slog.Logger

	state State
}

// New creates a Loop. journal and bus may be nil; notifier must not be (use a
// Notifier with no senders to disable notifications).
func New(
	cfg Config,
	history HistoryProvider,
	account AccountService,
	orders OrderDispatcher,
	clock Clock,
	notifier *notify.Notifier,
	journal domain.EntryJournal,
	bus domain.SignalBus,
	logger *slog.Logger,
) *Loop {
	return &Loop{
		cfg:      cfg,
		history:  history,
		account:  account,
		orders:   orders,
		clock:    clock,
		notifier: notifier,
		journal:  journal,
		bus:      bus,
		logger:   logger.With(slog.String("component", "engine")),
		state:    StatePolling,
	}
}

// State returns the loop's last state. Not synchronized; call it after Run
// has returned.
func (l *Loop) State() State { return l.state }

// Run polls until the first entry is dispatched, then returns the entry
// record. History or account fetch failures propagate as fatal errors; the
// insufficient-history condition is retried locally after a pause. Run
// returns (nil, ctx.Err()) when cancelled.
func (l *Loop) Run(ctx context.Context) (*domain.EntryRecord, error) {
	l.logger.Info("decision loop starting",
		slog.String("symbol1", l.cfg.Symbol1),
		slog.String("symbol2", l.cfg.Symbol2),
		slog.Int("lookback_days", l.cfg.LookbackDays),
		slog.Int("threshold_window", l.cfg.ThresholdWindow),
		slog.Duration("poll_interval", l.cfg.PollInterval),
	)

	for {
		rec, err := l.cycle(ctx)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			l.transition(StateTerminated)
			return rec, nil
		}

		if err := l.clock.Sleep(ctx, l.cfg.PollInterval); err != nil {
			return nil, err
		}
		l.transition(StatePolling)
	}
}

// cycle executes one fetch → compute → decide → maybe dispatch pass. It
// returns (nil, nil) when the loop should sleep and poll again, and a
// non-nil record when an entry was dispatched.
func (l *Loop) cycle(ctx context.Context) (*domain.EntryRecord, error) {
	series1, err := l.history.GetDailyBars(ctx, l.cfg.Symbol1, l.cfg.LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("engine: fetch history %s: %w", l.cfg.Symbol1, err)
	}
	series2, err := l.history.GetDailyBars(ctx, l.cfg.Symbol2, l.cfg.LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("engine: fetch history %s: %w", l.cfg.Symbol2, err)
	}

	// Need today and yesterday for both symbols before any spread exists.
	if len(series1) < 2 || len(series2) < 2 {
		l.transition(StateInsufficientData)
		l.logger.Warn("not enough price history yet, retrying after pause",
			slog.String("error", domain.ErrInsufficientHistory.Error()),
			slog.Int("symbol1_bars", len(series1)),
			slog.Int("symbol2_bars", len(series2)),
		)
		return nil, nil
	}

	l.transition(StateEvaluating)

	spread := strategy.ComputeSpread(series1, series2)
	latest := spread[len(spread)-1]
	threshold := strategy.DivergenceThreshold(spread, l.cfg.ThresholdWindow)

	decision := strategy.Evaluate(l.cfg.Symbol1, l.cfg.Symbol2, latest, threshold, l.clock.Now())

	l.logger.Info("cycle evaluated",
		slog.Float64("spread", latest),
		slog.Float64("threshold", threshold),
		slog.String("action", string(decision.Action)),
	)

	l.publishDecision(ctx, decision)

	if !decision.Enter() {
		return nil, nil
	}

	l.transition(StateDispatching)
	return l.dispatch(ctx, decision, series1.LastClose(), series2.LastClose())
}

// dispatch sizes and submits the two legs for an entry decision, journals the
// per-leg outcomes, and notifies operators. Submission is sequential in
// symbol1, symbol2 order with no rollback: a leg failure is surfaced, never
// compensated.
func (l *Loop) dispatch(ctx context.Context, decision domain.TradeDecision, price1, price2 decimal.Decimal) (*domain.EntryRecord, error) {
	account, err := l.account.GetAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: fetch account equity: %w", err)
	}

	qty1, qty2 := strategy.SizeLegs(account.Equity, price1, price2)

	side1, side2 := domain.OrderSideSell, domain.OrderSideBuy
	if decision.LongSymbol == l.cfg.Symbol1 {
		side1, side2 = domain.OrderSideBuy, domain.OrderSideSell
	}

	intents := [2]domain.OrderIntent{
		{
			ClientOrderID: uuid.New().String(),
			Symbol:        l.cfg.Symbol1,
			Side:          side1,
			Qty:           qty1,
			TimeInForce:   domain.TimeInForceDay,
		},
		{
			ClientOrderID: uuid.New().String(),
			Symbol:        l.cfg.Symbol2,
			Side:          side2,
			Qty:           qty2,
			TimeInForce:   domain.TimeInForceDay,
		},
	}

	l.logger.Info("entering pairs trade",
		slog.String("long", decision.LongSymbol),
		slog.String("short", decision.ShortSymbol),
		slog.Group("leg1", slog.String("side", string(side1)), slog.Int64("qty", qty1)),
		slog.Group("leg2", slog.String("side", string(side2)), slog.Int64("qty", qty2)),
		slog.String("equity", account.Equity.String()),
	)

	rec := &domain.EntryRecord{
		ID:       uuid.New().String(),
		Decision: decision,
	}
	failed := 0
	for i, intent := range intents {
		conf, err := l.orders.SubmitOrder(ctx, intent)
		rec.Legs[i] = domain.LegOutcome{Intent: intent, Confirmation: conf, Err: err}
		if err != nil {
			failed++
			// The other leg is not unwound; the asymmetry is surfaced to
			// the operator instead.
			l.logger.Error("order leg failed",
				slog.String("symbol", intent.Symbol),
				slog.String("side", string(intent.Side)),
				slog.Int64("qty", intent.Qty),
				slog.String("error", err.Error()),
			)
			l.notify(ctx, "error", "Order leg failed",
				fmt.Sprintf("%s %d %s failed: %v", intent.Side, intent.Qty, intent.Symbol, err))
		} else {
			l.logger.Info("order leg submitted",
				slog.String("symbol", intent.Symbol),
				slog.String("side", string(intent.Side)),
				slog.Int64("qty", intent.Qty),
				slog.String("order_id", conf.OrderID),
			)
		}
	}

	if failed == len(intents) {
		return nil, fmt.Errorf("engine: dispatch %s/%s: %w", l.cfg.Symbol1, l.cfg.Symbol2, ErrAllLegsFailed)
	}
	if failed > 0 {
		l.logger.Error("entry is one-legged: no rollback is performed",
			slog.String("long", decision.LongSymbol),
			slog.String("short", decision.ShortSymbol),
		)
	}

	l.journalEntry(ctx, rec)
	l.notify(ctx, "entry", "Pairs entry dispatched",
		fmt.Sprintf("long %s / short %s, spread %.6f vs threshold %.6f",
			decision.LongSymbol, decision.ShortSymbol, decision.Spread, decision.Threshold))

	return rec, nil
}

// publishDecision forwards the decision to the signal bus when one is wired.
// Bus failures are logged, never fatal.
func (l *Loop) publishDecision(ctx context.Context, d domain.TradeDecision) {
	if l.bus == nil {
		return
	}
	if err := l.bus.PublishDecision(ctx, d); err != nil {
		l.logger.Warn("failed to publish decision", slog.String("error", err.Error()))
	}
}

// journalEntry persists the entry record when a journal is wired. Journal
// failures are logged, never fatal, and never undo the entry.
func (l *Loop) journalEntry(ctx context.Context, rec *domain.EntryRecord) {
	if l.journal == nil {
		return
	}
	if err := l.journal.RecordEntry(ctx, *rec); err != nil {
		l.logger.Warn("failed to journal entry", slog.String("error", err.Error()))
	}
}

// notify delivers an operator notification, swallowing sender errors.
func (l *Loop) notify(ctx context.Context, event, title, message string) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.Notify(ctx, event, title, message); err != nil {
		l.logger.Warn("notification failed", slog.String("error", err.Error()))
	}
}

func (l *Loop) transition(s State) {
	if l.state != s {
		l.logger.Debug("state transition",
			slog.String("from", string(l.state)),
			slog.String("to", string(s)),
		)
		l.state = s
	}
}
