package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/pairbot/internal/domain"
	"github.com/alanyoungcy/pairbot/internal/engine"
	"github.com/alanyoungcy/pairbot/internal/platform/alpaca"
)

// TradeMode runs the pairs-divergence decision loop until it dispatches its
// first entry, then returns. When configured, a trade-updates stream listener
// runs alongside the loop so operators see order confirmations and fills.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	loop := engine.New(
		engine.Config{
			Symbol1:         a.cfg.Pair.Symbol1,
			Symbol2:         a.cfg.Pair.Symbol2,
			LookbackDays:    a.cfg.Pair.LookbackDays,
			ThresholdWindow: a.cfg.Pair.ThresholdWindow,
			PollInterval:    a.cfg.Pair.PollInterval.Duration,
		},
		deps.Data,
		deps.Trading,
		deps.Trading,
		engine.RealClock(),
		deps.Notifier,
		deps.Journal,
		deps.Bus,
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)
	loopDone := make(chan struct{})

	g.Go(func() error {
		defer close(loopDone)
		rec, err := loop.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("decision loop: %w", err)
		}
		a.logger.InfoContext(ctx, "entry dispatched, active monitoring finished",
			slog.String("entry_id", rec.ID),
			slog.String("long", rec.Decision.LongSymbol),
			slog.String("short", rec.Decision.ShortSymbol),
		)
		return nil
	})

	if a.cfg.Alpaca.WatchOrderUpdates {
		stream := alpaca.NewStreamClient(
			a.cfg.Alpaca.StreamHost,
			a.cfg.Alpaca.ApiKey,
			a.cfg.Alpaca.ApiSecret,
			a.logTradeUpdate,
			a.logger,
		)
		g.Go(func() error {
			// The stream is observe-only; it winds down once the loop is
			// finished or the shared context is cancelled.
			streamCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go func() {
				<-loopDone
				cancel()
			}()
			err := stream.Run(streamCtx)
			if streamCtx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("trade update stream: %w", err)
		})
	}

	return g.Wait()
}

// logTradeUpdate records order lifecycle events from the stream.
func (a *App) logTradeUpdate(u alpaca.TradeUpdate) {
	a.logger.Info("trade update",
		slog.String("event", u.Event),
		slog.String("symbol", u.Order.Symbol),
		slog.String("side", u.Order.Side),
		slog.String("status", u.Order.Status),
		slog.String("filled_qty", u.Order.FilledQty),
	)
}

// ProbeMode fetches the raw account payload and prints it to stdout: a
// one-off health check that credentials work and the account is tradable.
func (a *App) ProbeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting probe mode")

	raw, err := deps.Trading.GetAccountRaw(ctx)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	fmt.Fprintln(os.Stdout, string(raw))
	return nil
}

// SmokeMode submits a single small market buy (one share of a liquid symbol
// by default) to verify the order path end to end, then exits.
func (a *App) SmokeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting smoke mode",
		slog.String("symbol", a.cfg.Smoke.Symbol),
		slog.Int64("qty", a.cfg.Smoke.Qty),
	)

	conf, err := deps.Trading.SubmitOrder(ctx, domain.OrderIntent{
		ClientOrderID: uuid.New().String(),
		Symbol:        a.cfg.Smoke.Symbol,
		Side:          domain.OrderSideBuy,
		Qty:           a.cfg.Smoke.Qty,
		TimeInForce:   domain.TimeInForceDay,
	})
	if err != nil {
		return fmt.Errorf("smoke: %w", err)
	}

	a.logger.InfoContext(ctx, "smoke order submitted",
		slog.String("order_id", conf.OrderID),
		slog.String("status", conf.Status),
	)
	fmt.Fprintf(os.Stdout, "smoke order %s: %s %d %s (%s)\n",
		conf.OrderID, domain.OrderSideBuy, a.cfg.Smoke.Qty, a.cfg.Smoke.Symbol, conf.Status)
	return nil
}
