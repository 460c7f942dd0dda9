package engine_v1

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-fx/internal/broker"
	"github.com/rxtech-lab/argo-fx/internal/currency"
	"github.com/rxtech-lab/argo-fx/internal/ledger"
	"github.com/rxtech-lab/argo-fx/internal/logger"
	"github.com/rxtech-lab/argo-fx/internal/metrics"
	"github.com/rxtech-lab/argo-fx/internal/notifier"
	"github.com/rxtech-lab/argo-fx/internal/scheduler"
	"github.com/rxtech-lab/argo-fx/internal/strategy"
	"github.com/rxtech-lab/argo-fx/internal/trading/engine"
	"github.com/rxtech-lab/argo-fx/internal/trading/engine/engine_v1/session"
	"github.com/rxtech-lab/argo-fx/internal/trading/engine/engine_v1/stats"
	"github.com/rxtech-lab/argo-fx/internal/trading/engine/engine_v1/writers"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/internal/version"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"go.uber.org/zap"
)

// Default configuration values.
const (
	// DefaultReconnectDelay is how long the engine waits before reopening a
	// session after the connection was lost in the middle of a period.
	DefaultReconnectDelay = 10 * time.Second

	statsFileName = "stats.yaml"
)

// SessionEngineV1 implements the SessionEngine interface for one forex pair.
type SessionEngineV1 struct {
	config         engine.SessionEngineConfig
	contract       types.Contract
	frequency      scheduler.Frequency
	brokerFactory  broker.Factory
	signalProvider strategy.SignalProvider
	quoteSource    currency.QuoteSource
	notifier       notifier.TextNotifier
	metrics        *metrics.Collectors
	ledger         *ledger.Ledger
	log            *logger.Logger
	now            func() time.Time
	reconnectDelay time.Duration
	initialized    bool

	// Persistence
	dataOutputPath string
	sessionManager *session.Manager
	ledgerWriter   *writers.LedgerWriter

	// Statistics tracking
	statsTracker *stats.Tracker

	callbacks engine.SessionCallbacks
}

// NewSessionEngineV1 creates a new SessionEngineV1 logging to stdout.
func NewSessionEngineV1() (engine.SessionEngine, error) {
	log, err := logger.NewLogger()
	if err != nil {
		return nil, err
	}

	return NewSessionEngineV1WithLogger(log), nil
}

// NewSessionEngineV1WithLogger creates a new SessionEngineV1 using log.
func NewSessionEngineV1WithLogger(log *logger.Logger) *SessionEngineV1 {
	return &SessionEngineV1{
		config:         engine.SessionEngineConfig{}, //nolint:exhaustruct // initialized via Initialize()
		contract:       types.Contract{},             //nolint:exhaustruct // initialized via Initialize()
		frequency:      scheduler.Frequency{},        //nolint:exhaustruct // initialized via Initialize()
		brokerFactory:  nil,
		signalProvider: nil,
		quoteSource:    nil,
		notifier:       nil,
		metrics:        nil,
		ledger:         ledger.New(),
		log:            log,
		now:            time.Now,
		reconnectDelay: DefaultReconnectDelay,
		initialized:    false,
		dataOutputPath: "",
		sessionManager: nil,
		ledgerWriter:   nil,
		statsTracker:   stats.NewTracker(log),
		callbacks:      engine.SessionCallbacks{}, //nolint:exhaustruct // set by Run()
	}
}

// WithClock replaces the clock the schedule is computed from.
func (e *SessionEngineV1) WithClock(now func() time.Time) *SessionEngineV1 {
	e.now = now

	return e
}

// Ledger returns the engine's ledger.
func (e *SessionEngineV1) Ledger() *ledger.Ledger {
	return e.ledger
}

// Initialize implements engine.SessionEngine.
func (e *SessionEngineV1) Initialize(config engine.SessionEngineConfig) error {
	config.ApplyDefaults()

	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(errors.ErrCodeEngineConfigError, "invalid engine configuration", err)
	}

	freq, err := scheduler.ParseFrequency(config.DataFrequency)
	if err != nil {
		return err
	}

	if _, err := scheduler.LoadZone(config.TradingTimezone); err != nil {
		return err
	}

	e.config = config
	e.contract = config.Contract()
	e.frequency = freq
	e.initialized = true

	e.log.Debug("Session engine initialized",
		zap.String("pair", e.contract.Pair()),
		zap.String("frequency", freq.String()),
		zap.String("timezone", config.TradingTimezone),
	)

	return nil
}

// SetBrokerFactory implements engine.SessionEngine.
func (e *SessionEngineV1) SetBrokerFactory(factory broker.Factory) error {
	e.brokerFactory = factory

	return nil
}

// SetSignalProvider implements engine.SessionEngine.
func (e *SessionEngineV1) SetSignalProvider(provider strategy.SignalProvider) error {
	e.signalProvider = provider

	return nil
}

// SetQuoteSource implements engine.SessionEngine.
func (e *SessionEngineV1) SetQuoteSource(source currency.QuoteSource) error {
	e.quoteSource = source

	return nil
}

// SetNotifier implements engine.SessionEngine.
func (e *SessionEngineV1) SetNotifier(n notifier.TextNotifier) error {
	e.notifier = n

	return nil
}

// SetMetrics implements engine.SessionEngine.
func (e *SessionEngineV1) SetMetrics(collectors *metrics.Collectors) error {
	e.metrics = collectors

	return nil
}

// SetDataOutputPath implements engine.SessionEngine.
func (e *SessionEngineV1) SetDataOutputPath(path string) error {
	e.dataOutputPath = path

	return nil
}

// Run implements engine.SessionEngine.
func (e *SessionEngineV1) Run(ctx context.Context, callbacks engine.SessionCallbacks) error {
	var runErr error

	e.callbacks = callbacks

	// Always call OnEngineStop and cleanup when Run exits
	defer func() {
		e.emitStatus(types.EngineStatusStopped)

		if err := e.statsTracker.WriteStatsYAML(); err != nil {
			e.log.Warn("Failed to write final stats", zap.Error(err))
		}

		if e.ledgerWriter != nil {
			if err := e.ledgerWriter.Flush(); err != nil {
				e.log.Warn("Failed to flush ledger writer", zap.Error(err))
			}

			if err := e.ledgerWriter.Close(); err != nil {
				e.log.Warn("Failed to close ledger writer", zap.Error(err))
			}
		}

		if callbacks.OnEngineStop != nil {
			(*callbacks.OnEngineStop)(runErr)
		}
	}()

	if err := e.preRunCheck(); err != nil {
		runErr = err

		return err
	}

	if err := e.checkStrategyVersion(ctx); err != nil {
		runErr = err

		return err
	}

	now := e.now()

	week, err := e.week(now)
	if err != nil {
		runErr = err

		return err
	}

	tradingDate, err := e.tradingDate(now)
	if err != nil {
		runErr = err

		return err
	}

	if err := e.initializePersistence(tradingDate); err != nil {
		runErr = err

		return err
	}

	restoredFrom := e.restoreLedger(week)

	if callbacks.OnEngineStart != nil {
		if err := (*callbacks.OnEngineStart)(e.contract.Pair(), e.frequency.String(), restoredFrom); err != nil {
			runErr = errors.Wrap(errors.ErrCodeCallbackFailed, "OnEngineStart callback failed", err)

			return runErr
		}
	}

	e.log.Info("Session engine started",
		zap.String("pair", e.contract.Pair()),
		zap.String("frequency", e.frequency.String()),
		zap.Time("week_open", week.MarketOpen),
		zap.Time("week_close", week.MarketClose),
		zap.String("restored_from", restoredFrom),
	)

	for {
		if err := ctx.Err(); err != nil {
			runErr = err

			return runErr
		}

		until, err := e.step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				runErr = ctx.Err()

				return runErr
			}

			e.reportError(err)
			until = e.now().Add(e.reconnectDelay)
		}

		e.emitStatus(types.EngineStatusWaiting)
		e.log.Info("Waiting for the next period", zap.Time("until", until))

		if err := scheduler.Sleep(ctx, until.Sub(e.now()), nil); err != nil {
			runErr = err

			return runErr
		}
	}
}

// step handles the present moment: it waits out the weekend, the close-out
// and the maintenance window, or runs the current period. It returns when to
// look again.
func (e *SessionEngineV1) step(ctx context.Context) (time.Time, error) {
	now := e.now()

	week, err := e.week(now)
	if err != nil {
		return time.Time{}, err
	}

	if now.Before(week.MarketOpen) {
		e.log.Info("Out of trading hours", zap.Time("week_open", week.MarketOpen))

		return week.MarketOpen, nil
	}

	b, err := e.boundaries(now)
	if err != nil {
		return time.Time{}, err
	}

	periods, err := scheduler.ClosestPeriods(now, e.frequency, b, week.MarketClose)
	if err != nil {
		return time.Time{}, err
	}

	kind := types.PeriodKindDecision
	if periods.Current.Equal(b.TradingDayEnd) {
		kind = types.PeriodKindDayClose
	}

	switch {
	case e.periodTraded(periods.Current):
		if kind == types.PeriodKindDayClose {
			e.log.Info("Trading day closed", zap.Time("day_start", b.DayStart))
		} else {
			e.log.Debug("Period already traded", zap.Time("period", periods.Current))
		}

		return periods.Next, nil
	case b.InMaintenance(now):
		// a missed close-out runs once the gateway is back
		e.log.Info("Inside the maintenance window", zap.Time("restart_start", b.RestartStart))

		return periods.Next, nil
	}

	if err := e.rollTradingDate(b.DayEnd); err != nil {
		e.reportError(err)
	}

	report, err := e.runPeriod(ctx, kind, periods, week)
	if err != nil && isConnectivityError(err) && e.now().Add(e.reconnectDelay).Before(periods.Next) {
		e.log.Warn("Connection lost during the period, reconnecting",
			zap.String("period_id", report.ID),
			zap.Error(err),
		)

		return e.now().Add(e.reconnectDelay), nil
	}

	return periods.Next, nil
}

// preRunCheck validates that all required components are configured before running.
func (e *SessionEngineV1) preRunCheck() error {
	if !e.initialized {
		return errors.New(errors.ErrCodeEngineInitFailed, "engine not initialized - call Initialize() first")
	}

	if e.brokerFactory == nil {
		return errors.New(errors.ErrCodeEngineNoBroker, "broker factory not set - call SetBrokerFactory() first")
	}

	if e.signalProvider == nil {
		return errors.New(errors.ErrCodeEngineNoStrategy, "signal provider not set - call SetSignalProvider() first")
	}

	return nil
}

// checkStrategyVersion asks the signal service for its version when it can
// report one.
func (e *SessionEngineV1) checkStrategyVersion(ctx context.Context) error {
	checker, ok := e.signalProvider.(strategy.VersionChecker)
	if !ok {
		return nil
	}

	if err := checker.CheckVersion(ctx); err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err,
			"signal service is incompatible with engine version %s", version.Version)
	}

	return nil
}

func (e *SessionEngineV1) week(now time.Time) (ledger.WeekTag, error) {
	open, closeTime, err := scheduler.TradingWeekBounds(now, e.config.TradingTimezone, e.config.TradingStartHour)
	if err != nil {
		return ledger.WeekTag{}, err
	}

	return ledger.WeekTag{MarketOpen: open, MarketClose: closeTime}, nil
}

func (e *SessionEngineV1) boundaries(now time.Time) (scheduler.Boundaries, error) {
	hours, err := scheduler.EndHours(now, e.config.TradingTimezone, e.config.TradingStartHour,
		e.config.RestartHour, e.config.RestartMinute)
	if err != nil {
		return scheduler.Boundaries{}, err
	}

	return scheduler.DayBoundaries(e.frequency, now, hours, scheduler.Margins{
		CloseMargin:  e.config.CloseMargin,
		SafetyMargin: e.config.RestartSafetyMargin,
	}), nil
}

// tradingDate names the trading day now belongs to by the date of its day end.
func (e *SessionEngineV1) tradingDate(now time.Time) (time.Time, error) {
	b, err := e.boundaries(now)
	if err != nil {
		return time.Time{}, err
	}

	return b.DayEnd, nil
}

func (e *SessionEngineV1) periodTraded(period time.Time) bool {
	for _, p := range e.ledger.Periods() {
		if p.TradeTime.Equal(period) && p.TradeDone {
			return true
		}
	}

	return false
}

func isConnectivityError(err error) bool {
	return errors.HasCode(err, errors.ErrCodeNotConnected) ||
		errors.HasCode(err, errors.ErrCodeSessionTornDown) ||
		errors.HasCode(err, errors.ErrCodeRequestTimeout)
}

func (e *SessionEngineV1) emitStatus(status types.EngineStatus) {
	if e.callbacks.OnStatusUpdate == nil {
		return
	}

	if err := (*e.callbacks.OnStatusUpdate)(status); err != nil {
		e.log.Warn("OnStatusUpdate callback failed", zap.Error(err))
	}
}

func (e *SessionEngineV1) reportError(err error) {
	fields := []zap.Field{zap.Error(err)}
	if errors.IsBrokerError(err) {
		fields = append(fields, zap.Int("gateway_code", errors.BrokerCode(err)))
	}

	e.log.Error("Session engine error", fields...)

	if e.callbacks.OnError != nil {
		(*e.callbacks.OnError)(err)
	}
}

// Verify SessionEngineV1 implements engine.SessionEngine interface.
var _ engine.SessionEngine = (*SessionEngineV1)(nil)
