package engine_v1

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-fx/internal/broker"
	"github.com/rxtech-lab/argo-fx/internal/currency"
	"github.com/rxtech-lab/argo-fx/internal/ledger"
	"github.com/rxtech-lab/argo-fx/internal/marketdata"
	"github.com/rxtech-lab/argo-fx/internal/scheduler"
	"github.com/rxtech-lab/argo-fx/internal/strategy"
	"github.com/rxtech-lab/argo-fx/internal/transition"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/internal/utils"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minuteBarSize = "1 min"
	tickRequestID = 2
)

// periodResult is what one period produced, filled in as far as it got.
type periodResult struct {
	kind      types.PeriodKind
	periods   types.PeriodTuple
	week      ledger.WeekTag
	signal    optional.Option[int]
	leverage  optional.Option[float64]
	capital   optional.Option[currency.Result]
	previous  float64
	target    float64
	execution optional.Option[transition.Report]
	err       error
}

func newPeriodResult(kind types.PeriodKind, periods types.PeriodTuple, week ledger.WeekTag) *periodResult {
	return &periodResult{
		kind:      kind,
		periods:   periods,
		week:      week,
		signal:    optional.None[int](),
		leverage:  optional.None[float64](),
		capital:   optional.None[currency.Result](),
		previous:  0,
		target:    0,
		execution: optional.None[transition.Report](),
		err:       nil,
	}
}

func (r *periodResult) degraded() bool {
	if r.err != nil {
		return true
	}

	return r.execution.IsSome() && r.execution.Unwrap().Degraded
}

func (r *periodResult) errorMessages() []string {
	var out []string

	if r.execution.IsSome() {
		out = append(out, r.execution.Unwrap().Errors...)
	}

	if r.err != nil {
		out = append(out, r.err.Error())
	}

	return out
}

// runPeriod opens a session, runs the decision period or the day close on
// it, tears it down and then persists and notifies whatever the period got
// done. Persisted rows are never rolled back.
func (e *SessionEngineV1) runPeriod(ctx context.Context, kind types.PeriodKind, periods types.PeriodTuple, week ledger.WeekTag) (types.PeriodReport, error) {
	started := time.Now()
	res := newPeriodResult(kind, periods, week)

	e.log.Info("Starting period",
		zap.String("kind", string(kind)),
		zap.Time("previous", periods.Previous),
		zap.Time("current", periods.Current),
		zap.Time("next", periods.Next),
	)

	if e.callbacks.OnPeriodStart != nil {
		if err := (*e.callbacks.OnPeriodStart)(kind, periods); err != nil {
			e.log.Warn("OnPeriodStart callback failed", zap.Error(err))
		}
	}

	e.ledger.MarkPeriod(types.PeriodRecord{
		TradeTime:   periods.Current,
		TradeDone:   false,
		MarketOpen:  week.MarketOpen,
		MarketClose: week.MarketClose,
	})

	e.emitStatus(types.EngineStatusConnecting)

	gw, err := e.openGateway(ctx)
	if err != nil {
		res.err = err
	} else {
		if kind == types.PeriodKindDayClose {
			e.emitStatus(types.EngineStatusClosingDay)
			res.err = e.runDayClose(ctx, gw, res)
		} else {
			e.emitStatus(types.EngineStatusTrading)
			res.err = e.runDecisionPeriod(ctx, gw, res)
		}

		gw.close()
	}

	report := e.finishPeriod(ctx, res, time.Since(started))

	return report, res.err
}

// runDecisionPeriod trades one decision period.
func (e *SessionEngineV1) runDecisionPeriod(ctx context.Context, gw *gateway, res *periodResult) error {
	current := res.periods.Current

	if err := e.updateTradingInfo(ctx, gw, res.week); err != nil {
		return err
	}

	if !e.ledger.FirstTradeOfWeek(res.week.MarketOpen) {
		gw.lifecycle.ReconcileResolved(gw.lifecycle.Derive(), e.config.Leverage, current)
	}

	if err := e.updateHistorical(ctx, gw, current); err != nil {
		return err
	}

	signal, err := e.signalProvider.GetSignal(ctx, strategy.SignalRequest{
		Symbol:        e.contract.Pair(),
		Period:        current,
		MarketOpen:    res.week.MarketOpen,
		Frequency:     e.frequency.String(),
		Bars:          e.ledger.Bars(),
		Features:      e.config.Features,
		PurgeWindow:   e.config.PurgeWindow,
		EmbargoPeriod: e.config.EmbargoPeriod,
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStrategyRuntimeError, "failed to get the signal", err)
	}

	sig := utils.SignInt(signal.Value)
	res.signal = optional.Some(sig)
	res.leverage = optional.Some(e.config.Leverage)
	e.metrics.SetSignal(sig)

	capital, err := e.updateCapital(ctx, gw, current)
	if err != nil {
		return err
	}

	res.capital = optional.Some(capital)
	res.target = utils.Truncate(capital.Capital * e.config.Leverage)

	last, err := e.lastValue(ctx, gw)
	if err != nil {
		return err
	}

	res.previous = e.ledger.PositionQuantity(e.contract.Symbol, e.contract.Currency)

	plan := transition.Decide(res.previous, sig, res.target)

	e.log.Info("Position transition planned",
		zap.String("case", string(plan.Case)),
		zap.Float64("previous", plan.Previous),
		zap.Int("signal", plan.Signal),
		zap.Float64("target", plan.Target),
		zap.Float64("last", last),
	)

	report, err := gw.executor.Execute(ctx, plan, transition.Pricing{
		Last:       last,
		RiskTarget: signal.RiskTarget.TakeOr(e.config.RiskTarget),
	})
	res.execution = optional.Some(report)

	if err != nil {
		return err
	}

	e.ledger.RecordCash(types.CashPoint{
		Time:     current,
		Capital:  optional.None[float64](),
		Leverage: optional.Some(e.config.Leverage),
		Signal:   optional.Some(sig),
	})

	if err := e.updateTradingInfo(ctx, gw, res.week); err != nil {
		return err
	}

	e.markTraded(res)

	return nil
}

// runDayClose cancels the bracket and flattens the position before the day end.
func (e *SessionEngineV1) runDayClose(ctx context.Context, gw *gateway, res *periodResult) error {
	current := res.periods.Current

	if err := e.updateTradingInfo(ctx, gw, res.week); err != nil {
		return err
	}

	if err := gw.lifecycle.CancelStale(ctx, gw.session, gw.lifecycle.Derive()); err != nil {
		return err
	}

	res.signal = optional.Some(0)
	res.leverage = optional.Some(0.0)

	if err := gw.sync.Positions(ctx); err != nil {
		return err
	}

	res.previous = e.ledger.PositionQuantity(e.contract.Symbol, e.contract.Currency)

	plan := transition.DayClose(res.previous)

	e.log.Info("Closing the trading day", zap.Float64("previous", plan.Previous))

	report, err := gw.executor.Execute(ctx, plan, transition.Pricing{Last: 0, RiskTarget: 0})
	res.execution = optional.Some(report)

	if err != nil {
		return err
	}

	e.ledger.RecordCash(types.CashPoint{
		Time:     current,
		Capital:  optional.None[float64](),
		Leverage: optional.Some(0.0),
		Signal:   optional.Some(0),
	})

	if err := e.updateTradingInfo(ctx, gw, res.week); err != nil {
		return err
	}

	capital, err := e.updateCapital(ctx, gw, current)
	if err != nil {
		return err
	}

	res.capital = optional.Some(capital)

	e.markTraded(res)

	return nil
}

func (e *SessionEngineV1) markTraded(res *periodResult) {
	e.ledger.MarkPeriod(types.PeriodRecord{
		TradeTime:   res.periods.Current,
		TradeDone:   true,
		MarketOpen:  res.week.MarketOpen,
		MarketClose: res.week.MarketClose,
	})
}

// updateTradingInfo refreshes positions, open orders and this week's executions.
func (e *SessionEngineV1) updateTradingInfo(ctx context.Context, gw *gateway, week ledger.WeekTag) error {
	return gw.sync.TradingInfo(ctx, types.ExecutionFilter{
		ClientID: 0,
		Account:  e.config.Account,
		Symbol:   e.contract.Symbol,
		SecType:  e.contract.SecType,
		Since:    week.MarketOpen,
	})
}

// updateHistorical downloads both sides of the book, builds the mid series,
// resamples it onto the decision grid and merges the bins that closed by
// current.
func (e *SessionEngineV1) updateHistorical(ctx context.Context, gw *gateway, current time.Time) error {
	var bid, ask []types.Bar

	end := e.now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)

	for _, side := range []types.BarSide{types.SideBid, types.SideAsk} {
		g.Go(func() error {
			bars, err := gw.sync.Historical(gctx, broker.HistoricalRequest{
				ReqID:    int64(side),
				Contract: e.contract,
				End:      end,
				Duration: e.config.HistoryDuration,
				BarSize:  minuteBarSize,
				Side:     side,
			})
			if err != nil {
				return err
			}

			if side == types.SideBid {
				bid = bars
			} else {
				ask = bars
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	mid := marketdata.MidSeries(bid, ask)
	if len(mid) == 0 {
		return errors.New(errors.ErrCodeInsufficientData, "gateway returned no historical bars")
	}

	origin := marketdata.Origin(mid[0].Time.UTC(), e.config.TradingStartHour, 0)
	resampled := marketdata.Resample(mid, e.frequency.Duration(), origin)

	closed := make([]types.DecisionBar, 0, len(resampled))
	for _, bar := range resampled {
		if !bar.Time.After(current) {
			closed = append(closed, bar)
		}
	}

	e.ledger.MergeHistorical(closed)

	e.log.Debug("Historical data updated",
		zap.Int("bid_bars", len(bid)),
		zap.Int("ask_bars", len(ask)),
		zap.Int("merged", len(closed)),
	)

	return nil
}

// updateCapital refreshes the account values, converts the cash balance into
// the pair's base currency and records it in the cash ledger.
func (e *SessionEngineV1) updateCapital(ctx context.Context, gw *gateway, current time.Time) (currency.Result, error) {
	if err := gw.sync.Account(ctx, e.config.Account); err != nil {
		return currency.Result{}, err
	}

	converter := currency.NewConverter(e.config.AccountCurrency, e.ledger, e.quoteSource, e.log)

	result, err := converter.Capital(ctx, e.contract, current)
	if err != nil {
		return currency.Result{}, err
	}

	e.ledger.RecordCash(types.CashPoint{
		Time:     current,
		Capital:  optional.Some(result.Capital),
		Leverage: optional.None[float64](),
		Signal:   optional.None[int](),
	})
	e.metrics.SetCapital(result.Capital)

	e.log.Info("Capital updated",
		zap.Float64("cash", result.Cash),
		zap.Float64("capital", result.Capital),
		zap.Float64("rate", result.Rate),
		zap.String("tier", result.Tier.String()),
	)

	return result, nil
}

// lastValue subscribes to midpoint ticks and returns the first one that
// arrives. Every poll without a tick counts toward the monitor's stale limit.
func (e *SessionEngineV1) lastValue(ctx context.Context, gw *gateway) (float64, error) {
	_, before := gw.session.LastMid()
	client := gw.session.Client()

	if err := client.ReqTickByTickMidpoint(tickRequestID, e.contract); err != nil {
		return 0, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to subscribe to midpoint ticks", err)
	}

	defer func() {
		if err := client.CancelTickByTick(tickRequestID); err != nil {
			e.log.Debug("Failed to cancel midpoint ticks", zap.Error(err))
		}
	}()

	for {
		if mid, at := gw.session.LastMid(); at.After(before) && mid > 0 {
			return mid, nil
		}

		missed := gw.session.MissTick()
		e.log.Debug("No midpoint tick yet", zap.Int("missed", missed))

		if err := scheduler.Sleep(ctx, e.config.TickWait, gw.session.Done()); err != nil {
			return 0, err
		}
	}
}
