// Package transition turns the previous position and the new signal into
// broker orders: a pure decision table that plans the orders, and an
// executor that cancels the stale bracket and places the new one.
package transition

import (
	"math"

	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/internal/utils"
)

// Case names the row of the decision table a plan came from.
type Case string

const (
	// CaseNone: flat and no signal.
	CaseNone Case = "none"
	// CaseHold: the signal keeps the side of the open position.
	CaseHold Case = "hold"
	// CaseReverse: the signal flips the side of the open position.
	CaseReverse Case = "reverse"
	// CaseFlatten: the signal is zero while a position is open.
	CaseFlatten Case = "flatten"
	// CaseOpen: flat and a new signal.
	CaseOpen Case = "open"
	// CaseDayClose: the end-of-day close-out.
	CaseDayClose Case = "day_close"
)

// Plan is the set of orders a period sends. A zero quantity means the
// order is not sent.
type Plan struct {
	Case     Case    `json:"case" yaml:"case"`
	Previous float64 `json:"previous" yaml:"previous"`
	Signal   int     `json:"signal" yaml:"signal"`
	Target   float64 `json:"target" yaml:"target"`

	CancelBrackets bool `json:"cancel_brackets" yaml:"cancel_brackets"`

	MarketAction   types.OrderAction `json:"market_action" yaml:"market_action"`
	MarketQuantity float64           `json:"market_quantity" yaml:"market_quantity"`

	BracketAction   types.OrderAction `json:"bracket_action" yaml:"bracket_action"`
	BracketQuantity float64           `json:"bracket_quantity" yaml:"bracket_quantity"`
}

// HasMarket reports whether the plan sends a market order.
func (p Plan) HasMarket() bool {
	return p.MarketQuantity > 0
}

// HasBrackets reports whether the plan sends a stop-loss and a take-profit.
func (p Plan) HasBrackets() bool {
	return p.BracketQuantity > 0
}

// Empty reports whether the plan does nothing at all.
func (p Plan) Empty() bool {
	return !p.CancelBrackets && !p.HasMarket() && !p.HasBrackets()
}

// sideOf is BUY for a positive direction and SELL otherwise.
func sideOf(direction int) types.OrderAction {
	if direction > 0 {
		return types.ActionBuy
	}

	return types.ActionSell
}

// Decide plans the transition from previous (signed position) to signal,
// with target the unsigned quantity the new signal should hold:
//
//	previous  signal  orders
//	  >0        >0    cancel bracket; new bracket for |previous|
//	  >0        <0    cancel bracket; market + bracket for |previous|+target
//	  <0        <0    cancel bracket; new bracket for |previous|
//	  <0        >0    cancel bracket; market + bracket for |previous|+target
//	  !=0       0     cancel bracket; closing market order for |previous|
//	  0         !=0   cancel bracket; market + bracket for target
//	  0         0     nothing
//
// Bracket legs take the side opposite the signal.
func Decide(previous float64, signal int, target float64) Plan {
	prevSign := utils.Sign(previous)
	sig := utils.SignInt(signal)
	held := math.Abs(previous)
	target = math.Abs(target)

	plan := Plan{
		Case:            CaseNone,
		Previous:        previous,
		Signal:          sig,
		Target:          target,
		CancelBrackets:  false,
		MarketAction:    "",
		MarketQuantity:  0,
		BracketAction:   "",
		BracketQuantity: 0,
	}

	switch {
	case prevSign == 0 && sig == 0:
		return plan
	case sig == 0:
		plan.Case = CaseFlatten
		plan.CancelBrackets = true
		plan.MarketAction = sideOf(-prevSign)
		plan.MarketQuantity = held
	case prevSign == sig:
		plan.Case = CaseHold
		plan.CancelBrackets = true
		plan.BracketAction = sideOf(-sig)
		plan.BracketQuantity = held
	case prevSign == 0:
		plan.Case = CaseOpen
		plan.CancelBrackets = true
		plan.MarketAction = sideOf(sig)
		plan.MarketQuantity = target
		plan.BracketAction = sideOf(-sig)
		plan.BracketQuantity = target
	default:
		plan.Case = CaseReverse
		plan.CancelBrackets = true
		plan.MarketAction = sideOf(sig)
		plan.MarketQuantity = held + target
		plan.BracketAction = sideOf(-sig)
		plan.BracketQuantity = held + target
	}

	return plan
}

// DayClose plans the end-of-day close-out: signal and target are zero and
// the whole previous position is closed at market. The bracket is not part
// of the plan; the day-close sequence cancels it before sizing.
func DayClose(previous float64) Plan {
	plan := Plan{
		Case:            CaseDayClose,
		Previous:        previous,
		Signal:          0,
		Target:          0,
		CancelBrackets:  false,
		MarketAction:    "",
		MarketQuantity:  0,
		BracketAction:   "",
		BracketQuantity: 0,
	}

	if previous != 0 {
		plan.MarketAction = sideOf(-utils.Sign(previous))
		plan.MarketQuantity = math.Abs(previous)
	}

	return plan
}
