package engine_v1

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-fx/internal/ledger"
	"github.com/rxtech-lab/argo-fx/internal/notifier"
	"github.com/rxtech-lab/argo-fx/internal/trading/engine/engine_v1/session"
	"github.com/rxtech-lab/argo-fx/internal/trading/engine/engine_v1/writers"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// initializePersistence creates the run folder, the ledger writer and the
// stats file when a data output path is set. Without one, the stats tracker
// still counts but nothing is written.
func (e *SessionEngineV1) initializePersistence(tradingDate time.Time) error {
	if e.dataOutputPath == "" {
		e.statsTracker.Initialize(e.contract.Pair(), "", time.Now(), tradingDate.Format(session.DateLayout))

		return nil
	}

	e.sessionManager = session.NewManager(e.log)
	if err := e.sessionManager.Initialize(e.dataOutputPath, tradingDate); err != nil {
		return errors.Wrap(errors.ErrCodeEngineInitFailed, "failed to initialize session manager", err)
	}

	runPath := e.sessionManager.RunPath()

	e.log.Info("Session initialized",
		zap.String("run_id", e.sessionManager.RunID()),
		zap.String("run_path", runPath),
	)

	e.ledgerWriter = writers.NewLedgerWriter(runPath)
	if err := e.ledgerWriter.Initialize(); err != nil {
		return errors.Wrap(errors.ErrCodeEngineInitFailed, "failed to initialize ledger writer", err)
	}

	e.statsTracker.Initialize(
		e.contract.Pair(),
		e.sessionManager.RunID(),
		e.sessionManager.SessionStart(),
		e.sessionManager.CurrentDate(),
	)
	e.statsTracker.SetPaths(runPath, e.sessionManager.FilePath(statsFileName))

	return nil
}

// restoreLedger loads this week's rows from the newest earlier run. It
// returns the folder restored from, or "" when nothing was restored.
func (e *SessionEngineV1) restoreLedger(week ledger.WeekTag) string {
	if e.sessionManager == nil {
		return ""
	}

	path, err := e.sessionManager.PreviousRunPath()
	if err != nil {
		e.log.Warn("Failed to look up the previous run", zap.Error(err))

		return ""
	}

	if path == "" {
		return ""
	}

	snapshot, err := writers.Restore(path, optional.Some(week))
	if err != nil {
		e.reportError(err)

		return ""
	}

	stats := e.ledger.Restore(snapshot)

	e.log.Info("Ledger restored",
		zap.String("path", path),
		zap.Int("rows", stats.Total()),
		zap.Int("bars", len(snapshot.Bars)),
		zap.Int("periods", len(snapshot.Periods)),
	)

	return path
}

// rollTradingDate moves persistence into the folder of the trading day that
// ends at dayEnd.
func (e *SessionEngineV1) rollTradingDate(dayEnd time.Time) error {
	if e.sessionManager == nil {
		return nil
	}

	rolled, err := e.sessionManager.HandleDateBoundary(dayEnd)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLedgerPersist, "failed to roll over the run folder", err)
	}

	if !rolled {
		return nil
	}

	// the previous day's stats stay in the previous folder
	if err := e.statsTracker.WriteStatsYAML(); err != nil {
		e.log.Warn("Failed to write stats before the date rollover", zap.Error(err))
	}

	runPath := e.sessionManager.RunPath()

	if err := e.ledgerWriter.SetDir(runPath); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerPersist, "failed to move the ledger writer", err)
	}

	e.statsTracker.HandleDateBoundary(e.sessionManager.CurrentDate())
	e.statsTracker.SetPaths(runPath, e.sessionManager.FilePath(statsFileName))

	return nil
}

// finishPeriod saves the snapshot and sends the notification in parallel,
// then updates the stats, metrics and callbacks.
func (e *SessionEngineV1) finishPeriod(ctx context.Context, res *periodResult, spent time.Duration) types.PeriodReport {
	report := e.periodReport(res, spent)

	if res.err != nil {
		e.reportError(res.err)
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(2)

	g.Go(func() error {
		if err := e.saveSnapshot(res.week); err != nil {
			e.reportError(err)
		}

		return nil
	})

	g.Go(func() error {
		if err := e.notify(res); err != nil {
			e.reportError(err)
		}

		return nil
	})

	_ = g.Wait()

	e.statsTracker.RecordPeriod(types.PeriodRecord{
		TradeTime:   res.periods.Current,
		TradeDone:   res.err == nil,
		MarketOpen:  res.week.MarketOpen,
		MarketClose: res.week.MarketClose,
	}, report.Degraded, spent)

	if err := e.statsTracker.WriteStatsYAML(); err != nil {
		e.log.Warn("Failed to write stats", zap.Error(err))
	}

	e.metrics.PeriodDone(string(res.kind), periodOutcome(res))

	if e.callbacks.OnPeriodEnd != nil {
		if err := (*e.callbacks.OnPeriodEnd)(report); err != nil {
			e.log.Warn("OnPeriodEnd callback failed", zap.Error(err))
		}
	}

	e.log.Info("Period finished",
		zap.String("period_id", report.ID),
		zap.String("kind", string(report.Kind)),
		zap.Time("period", report.Period),
		zap.Bool("degraded", report.Degraded),
		zap.Float64("seconds", report.Duration),
	)

	return report
}

func periodOutcome(res *periodResult) string {
	switch {
	case res.err != nil:
		return "failed"
	case res.degraded():
		return "degraded"
	default:
		return "ok"
	}
}

func (e *SessionEngineV1) saveSnapshot(week ledger.WeekTag) error {
	if e.ledgerWriter == nil {
		return nil
	}

	if err := e.ledgerWriter.WriteSnapshot(e.ledger.Snapshot(), week); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerPersist, "failed to save the ledger snapshot", err)
	}

	return nil
}

func (e *SessionEngineV1) notify(res *periodResult) error {
	if e.notifier == nil {
		return nil
	}

	if err := e.notifier.SendText(notifier.DefaultSubject, e.statusReport(res).Render()); err != nil {
		return errors.Wrap(errors.ErrCodeNotifyFailed, "failed to send the status notification", err)
	}

	return nil
}

// statusReport fills the notification from the period result and the ledger.
// A failed period leaves the quantity unset so the short form is sent.
func (e *SessionEngineV1) statusReport(res *periodResult) notifier.StatusReport {
	report := notifier.StatusReport{
		Period:          res.periods.Current,
		Pair:            e.contract.Pair(),
		Symbol:          e.contract.Symbol,
		AccountCurrency: e.config.AccountCurrency,
		Signal:          res.signal,
		Leverage:        res.leverage,
		Cash:            optional.None[float64](),
		Quantity:        optional.None[float64](),
		StopLoss:        optional.None[float64](),
		MarketPrice:     optional.None[float64](),
		TakeProfit:      optional.None[float64](),
	}

	if res.err != nil {
		return report
	}

	if res.capital.IsSome() {
		report.Cash = optional.Some(res.capital.Unwrap().Cash)
	}

	report.Quantity = optional.Some(e.ledger.PositionQuantity(e.contract.Symbol, e.contract.Currency))

	if res.execution.IsSome() {
		exec := res.execution.Unwrap()

		if exec.StopLoss.IsSome() && exec.StopLoss.Unwrap().Accepted {
			report.StopLoss = optional.Some(exec.StopLoss.Unwrap().Price)
		}

		if exec.TakeProfit.IsSome() && exec.TakeProfit.Unwrap().Accepted {
			report.TakeProfit = optional.Some(exec.TakeProfit.Unwrap().Price)
		}
	}

	if fill := e.ledger.LastFilledOrderOfType(e.contract.Symbol, types.OrderTypeMarket); fill.IsSome() {
		report.MarketPrice = optional.Some(fill.Unwrap().AvgFillPrice)
	}

	return report
}

func (e *SessionEngineV1) periodReport(res *periodResult, spent time.Duration) types.PeriodReport {
	return types.PeriodReport{
		ID:               uuid.NewString(),
		Kind:             res.kind,
		Period:           res.periods.Current,
		Pair:             e.contract.Pair(),
		Signal:           res.signal.TakeOr(0),
		Leverage:         res.leverage.TakeOr(0),
		PreviousQuantity: res.previous,
		TargetQuantity:   res.target,
		Degraded:         res.degraded(),
		Errors:           res.errorMessages(),
		Duration:         spent.Seconds(),
	}
}
