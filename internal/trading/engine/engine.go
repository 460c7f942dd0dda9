package engine

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-fx/internal/broker"
	"github.com/rxtech-lab/argo-fx/internal/currency"
	"github.com/rxtech-lab/argo-fx/internal/metrics"
	"github.com/rxtech-lab/argo-fx/internal/notifier"
	"github.com/rxtech-lab/argo-fx/internal/scheduler"
	"github.com/rxtech-lab/argo-fx/internal/strategy"
	"github.com/rxtech-lab/argo-fx/internal/types"
)

// Lifecycle callback types for the session engine.
// Callbacks with an error return are reported through OnError when they
// fail; they never abort a period already in progress.

// OnEngineStartCallback is called once the engine has restored its ledger.
// restoredFrom is the run folder the ledger was restored from, or empty.
type OnEngineStartCallback func(pair string, frequency string, restoredFrom string) error

// OnEngineStopCallback is called when the engine stops (always called via defer).
type OnEngineStopCallback func(err error)

// OnPeriodStartCallback is called when a session opens for a period.
type OnPeriodStartCallback func(kind types.PeriodKind, periods types.PeriodTuple) error

// OnOrderPlacedCallback is called for every order the gateway accepted.
type OnOrderPlacedCallback func(leg types.Leg, order types.Order) error

// OnLegFailedCallback is called when a bracket leg could not be placed.
type OnLegFailedCallback func(leg types.Leg, err error)

// OnPeriodEndCallback is called after a period was persisted and notified.
type OnPeriodEndCallback func(report types.PeriodReport) error

// OnErrorCallback is called when a non-fatal error occurs.
type OnErrorCallback func(err error)

// OnStatusUpdateCallback is called when engine status changes.
type OnStatusUpdateCallback func(status types.EngineStatus) error

// SessionCallbacks holds all lifecycle callback functions for the session engine.
// All fields are pointers - nil means no callback will be invoked.
type SessionCallbacks struct {
	OnEngineStart  *OnEngineStartCallback
	OnEngineStop   *OnEngineStopCallback
	OnPeriodStart  *OnPeriodStartCallback
	OnOrderPlaced  *OnOrderPlacedCallback
	OnLegFailed    *OnLegFailedCallback
	OnPeriodEnd    *OnPeriodEndCallback
	OnError        *OnErrorCallback
	OnStatusUpdate *OnStatusUpdateCallback
}

// SessionEngineConfig holds the configuration for the session engine.
type SessionEngineConfig struct {
	// Symbol and Currency name the traded pair, e.g. EUR and USD for EUR.USD.
	Symbol   string `json:"symbol" yaml:"symbol" jsonschema:"title=Symbol,description=Base currency of the traded pair,example=EUR" validate:"required,len=3"`
	Currency string `json:"currency" yaml:"currency" jsonschema:"title=Currency,description=Quote currency of the traded pair,example=USD" validate:"required,len=3"`

	Account         string `json:"account" yaml:"account" jsonschema:"title=Account,description=Gateway account id" validate:"required"`
	AccountCurrency string `json:"account_currency" yaml:"account_currency" jsonschema:"title=Account Currency,description=Base currency of the account,example=USD" validate:"required,len=3"`

	DataFrequency   string `json:"data_frequency" yaml:"data_frequency" jsonschema:"title=Data Frequency,description=Decision frequency,enum=5min,enum=15min,enum=30min,enum=1h,enum=4h,default=15min" validate:"required"`
	TradingTimezone string `json:"trading_timezone" yaml:"trading_timezone" jsonschema:"title=Trading Timezone,description=IANA zone the schedule is expressed in,default=UTC" validate:"required"`

	TradingStartHour int `json:"trading_start_hour" yaml:"trading_start_hour" jsonschema:"description=Hour (UTC) the trading day and week start,default=22,minimum=0,maximum=23" validate:"min=0,max=23"`
	RestartHour      int `json:"restart_hour" yaml:"restart_hour" jsonschema:"description=Hour (US/Eastern) of the daily gateway restart,default=23,minimum=0,maximum=23" validate:"min=0,max=23"`
	RestartMinute    int `json:"restart_minute" yaml:"restart_minute" jsonschema:"description=Minute of the daily gateway restart,default=45,minimum=0,maximum=59" validate:"min=0,max=59"`

	Leverage             float64 `json:"leverage" yaml:"leverage" jsonschema:"description=Leverage applied to capital when sizing,default=1" validate:"gt=0"`
	RiskTarget           float64 `json:"risk_target" yaml:"risk_target" jsonschema:"description=Price distance the bracket multipliers scale,default=0.003" validate:"gt=0"`
	StopLossMultiplier   float64 `json:"stop_loss_multiplier" yaml:"stop_loss_multiplier" jsonschema:"default=1" validate:"gt=0"`
	TakeProfitMultiplier float64 `json:"take_profit_multiplier" yaml:"take_profit_multiplier" jsonschema:"default=1" validate:"gt=0"`
	MaxNudges            int     `json:"max_nudges" yaml:"max_nudges" jsonschema:"description=Price nudges before a leg is given up,default=10" validate:"gte=0"`

	SettleInterval       time.Duration `json:"settle_interval" yaml:"settle_interval" jsonschema:"type=string,description=Wait after a placement before reading errors,default=3s" validate:"gte=0"`
	CancelSettleInterval time.Duration `json:"cancel_settle_interval" yaml:"cancel_settle_interval" jsonschema:"type=string,description=Wait after cancelling the bracket,default=3s" validate:"gte=0"`
	RequestTimeout       time.Duration `json:"request_timeout" yaml:"request_timeout" jsonschema:"type=string,description=Bound on one gateway request,default=30s" validate:"gte=0"`
	CloseMargin          time.Duration `json:"close_margin" yaml:"close_margin" jsonschema:"type=string,description=How long before the day end positions are closed,default=30m" validate:"gte=0"`
	RestartSafetyMargin  time.Duration `json:"restart_safety_margin" yaml:"restart_safety_margin" jsonschema:"type=string,description=How long after the gateway restart trading resumes,default=5m" validate:"gte=0"`
	MonitorInterval      time.Duration `json:"monitor_interval" yaml:"monitor_interval" jsonschema:"type=string,description=Connection monitor poll interval,default=1s" validate:"gte=0"`
	TickWait             time.Duration `json:"tick_wait" yaml:"tick_wait" jsonschema:"type=string,description=How long to wait for each midpoint tick,default=1s" validate:"gte=0"`

	MaxStaleTicks   int    `json:"max_stale_ticks" yaml:"max_stale_ticks" jsonschema:"description=Missed ticks before the session is torn down,default=50" validate:"gte=0"`
	HistoryDuration string `json:"history_duration" yaml:"history_duration" jsonschema:"description=Gateway duration string of each bid/ask download,default=10 D"`

	// Strategy request passthrough.
	Features      map[string]any `json:"features" yaml:"features" jsonschema:"description=Feature configuration passed to the strategy"`
	PurgeWindow   int            `json:"purge_window" yaml:"purge_window" jsonschema:"description=Purge window passed to the strategy" validate:"gte=0"`
	EmbargoPeriod int            `json:"embargo_period" yaml:"embargo_period" jsonschema:"description=Embargo period passed to the strategy" validate:"gte=0"`
}

// ApplyDefaults fills zero fields with their defaults. The clock fields
// (trading start, restart) have no zero-value default since 0 is a valid hour.
func (c *SessionEngineConfig) ApplyDefaults() {
	if c.DataFrequency == "" {
		c.DataFrequency = "15min"
	}

	if c.TradingTimezone == "" {
		c.TradingTimezone = "UTC"
	}

	if c.Leverage == 0 {
		c.Leverage = 1
	}

	if c.RiskTarget == 0 {
		c.RiskTarget = 0.003
	}

	if c.StopLossMultiplier == 0 {
		c.StopLossMultiplier = 1
	}

	if c.TakeProfitMultiplier == 0 {
		c.TakeProfitMultiplier = 1
	}

	if c.MaxNudges == 0 {
		c.MaxNudges = 10
	}

	if c.SettleInterval == 0 {
		c.SettleInterval = 3 * time.Second
	}

	if c.CancelSettleInterval == 0 {
		c.CancelSettleInterval = 3 * time.Second
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}

	margins := scheduler.DefaultMargins()
	if c.CloseMargin == 0 {
		c.CloseMargin = margins.CloseMargin
	}

	if c.RestartSafetyMargin == 0 {
		c.RestartSafetyMargin = margins.SafetyMargin
	}

	if c.MonitorInterval == 0 {
		c.MonitorInterval = broker.DefaultMonitorInterval
	}

	if c.TickWait == 0 {
		c.TickWait = time.Second
	}

	if c.MaxStaleTicks == 0 {
		c.MaxStaleTicks = 50
	}

	if c.HistoryDuration == "" {
		c.HistoryDuration = "10 D"
	}
}

// Contract returns the traded contract.
func (c SessionEngineConfig) Contract() types.Contract {
	return types.ForexContract(c.Symbol, c.Currency)
}

// SessionEngine runs decision periods against a broker gateway.
//
//nolint:interfacebloat // Engine is a core interface that naturally requires multiple methods
type SessionEngine interface {
	// Initialize sets up the engine with the given configuration.
	Initialize(config SessionEngineConfig) error

	// SetBrokerFactory configures how a gateway session is opened.
	SetBrokerFactory(factory broker.Factory) error

	// SetSignalProvider configures the strategy.
	SetSignalProvider(provider strategy.SignalProvider) error

	// SetQuoteSource configures the FX quote fallback. Optional.
	SetQuoteSource(source currency.QuoteSource) error

	// SetNotifier configures where the period status is sent. Optional.
	SetNotifier(n notifier.TextNotifier) error

	// SetMetrics configures the Prometheus collectors. Optional.
	SetMetrics(collectors *metrics.Collectors) error

	// SetDataOutputPath sets the base directory for the persisted ledger
	// snapshots and stats. Must be called before Run() if persistence is desired.
	SetDataOutputPath(path string) error

	// Run loops over decision periods until ctx is cancelled.
	Run(ctx context.Context, callbacks SessionCallbacks) error
}
