// Package risk manages the stop-loss/take-profit bracket that protects the
// open position: deriving its state from the ledger, cancelling stale legs,
// placing new legs with bounded price nudging, and composing leg prices.
package risk

import (
	"time"

	"github.com/rxtech-lab/argo-fx/internal/ledger"
	"github.com/rxtech-lab/argo-fx/internal/logger"
	"github.com/rxtech-lab/argo-fx/internal/types"
)

// Defaults for Config.
const (
	DefaultSettleInterval       = 3 * time.Second
	DefaultCancelSettleInterval = 3 * time.Second
	DefaultNudgeIncrement       = 0.00001
	DefaultMaxNudges            = 10
)

// Config configures the lifecycle.
type Config struct {
	Contract types.Contract
	Account  string
	// SettleInterval is how long to wait after a placement before reading
	// the error registry.
	SettleInterval time.Duration
	// CancelSettleInterval is how long to wait after cancelling legs.
	CancelSettleInterval time.Duration
	NudgeIncrement       float64
	MaxNudges            int
	StopLossMultiplier   float64
	TakeProfitMultiplier float64
}

// Hooks observe placements. Any field may be nil.
type Hooks struct {
	OnPlaced   func(leg types.Leg, order types.Order)
	OnRejected func(leg types.Leg, code int)
	OnGaveUp   func(leg types.Leg)
	OnCanceled func(leg types.Leg, orderID int64)
}

// Lifecycle owns the bracket for one contract.
type Lifecycle struct {
	config Config
	ledger *ledger.Ledger
	hooks  Hooks
	log    *logger.Logger
}

// NewLifecycle creates a Lifecycle, filling unset intervals and bounds with
// their defaults.
func NewLifecycle(config Config, l *ledger.Ledger, hooks Hooks, log *logger.Logger) *Lifecycle {
	if config.SettleInterval <= 0 {
		config.SettleInterval = DefaultSettleInterval
	}

	if config.CancelSettleInterval <= 0 {
		config.CancelSettleInterval = DefaultCancelSettleInterval
	}

	if config.NudgeIncrement <= 0 {
		config.NudgeIncrement = DefaultNudgeIncrement
	}

	if config.MaxNudges <= 0 {
		config.MaxNudges = DefaultMaxNudges
	}

	return &Lifecycle{
		config: config,
		ledger: l,
		hooks:  hooks,
		log:    log,
	}
}

// Config returns the effective configuration.
func (lc *Lifecycle) Config() Config {
	return lc.config
}

// Derive reads the current bracket from the ledger: the stop-loss leg is the
// newest STP order for the symbol and the take-profit leg the newest LMT
// order. A leg is resolved once it is filled or cancelled.
func Derive(l *ledger.Ledger, symbol string) types.RiskState {
	state := types.RiskState{
		StopLossID:         l.LatestOrderID(symbol, types.OrderTypeStop),
		TakeProfitID:       l.LatestOrderID(symbol, types.OrderTypeLimit),
		StopLossResolved:   false,
		TakeProfitResolved: false,
	}

	if state.StopLossID.IsSome() {
		state.StopLossResolved = l.IsResolved(state.StopLossID.Unwrap())
	}

	if state.TakeProfitID.IsSome() {
		state.TakeProfitResolved = l.IsResolved(state.TakeProfitID.Unwrap())
	}

	return state
}

// Derive reads the lifecycle's contract bracket from its ledger.
func (lc *Lifecycle) Derive() types.RiskState {
	return Derive(lc.ledger, lc.config.Contract.Symbol)
}
