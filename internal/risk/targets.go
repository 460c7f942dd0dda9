package risk

import (
	"math"

	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/internal/utils"
)

// LegTarget is the price and size for one new leg.
type LegTarget struct {
	Price    float64
	Quantity float64
	// Carried is true when the price came from the previous leg.
	Carried bool
}

// Targets are the prices and sizes for a new bracket.
type Targets struct {
	StopLoss   LegTarget
	TakeProfit LegTarget
}

// StopLossPrice is last moved against the position by target*multiplier.
func StopLossPrice(signal int, last, target, multiplier float64) float64 {
	return utils.RoundPrice(last - float64(utils.SignInt(signal))*target*multiplier)
}

// TakeProfitPrice is last moved with the position by target*multiplier.
func TakeProfitPrice(signal int, last, target, multiplier float64) float64 {
	return utils.RoundPrice(last + float64(utils.SignInt(signal))*target*multiplier)
}

// ComposeTargets prices the new bracket. When the signal keeps the side of
// a non-zero previous position, each leg reuses its predecessor's price and
// covers the whole previous quantity, so scaling a position never moves its
// bounds. Otherwise prices are set around last and legs are sized to quantity.
func (lc *Lifecycle) ComposeTargets(state types.RiskState, previous float64, signal int, quantity, last, riskTarget float64) Targets {
	scaling := previous != 0 && utils.Sign(previous) == utils.SignInt(signal)

	out := Targets{
		StopLoss: LegTarget{
			Price:    StopLossPrice(signal, last, riskTarget, lc.config.StopLossMultiplier),
			Quantity: quantity,
			Carried:  false,
		},
		TakeProfit: LegTarget{
			Price:    TakeProfitPrice(signal, last, riskTarget, lc.config.TakeProfitMultiplier),
			Quantity: quantity,
			Carried:  false,
		},
	}

	if !scaling {
		return out
	}

	if id := state.StopLossID; id.IsSome() {
		if row := lc.ledger.OpenOrder(id.Unwrap()); row.IsSome() && row.Unwrap().AuxPrice > 0 {
			out.StopLoss = LegTarget{Price: row.Unwrap().AuxPrice, Quantity: math.Abs(previous), Carried: true}
		}
	}

	if id := state.TakeProfitID; id.IsSome() {
		if row := lc.ledger.OpenOrder(id.Unwrap()); row.IsSome() && row.Unwrap().LmtPrice > 0 {
			out.TakeProfit = LegTarget{Price: row.Unwrap().LmtPrice, Quantity: math.Abs(previous), Carried: true}
		}
	}

	return out
}
