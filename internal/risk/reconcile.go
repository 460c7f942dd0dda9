package risk

import (
	"cmp"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"go.uber.org/zap"
)

// Remaining is the position left behind by a resolved leg.
type Remaining struct {
	Leg      types.Leg
	OrderID  int64
	Position types.PositionRow
}

// ResolvedLeg picks the leg whose resolution determines the remaining
// position. When both legs resolved, the one with the later execution wins;
// equal or missing execution times fall back to the higher order id.
func (lc *Lifecycle) ResolvedLeg(state types.RiskState) optional.Option[types.Leg] {
	sl := state.State(types.LegStopLoss) == types.LegResolved
	tp := state.State(types.LegTakeProfit) == types.LegResolved

	switch {
	case sl && tp:
		slID, tpID := state.StopLossID.Unwrap(), state.TakeProfitID.Unwrap()

		if c := lc.lastExecutionTime(slID).Compare(lc.lastExecutionTime(tpID)); c != 0 {
			if c > 0 {
				return optional.Some(types.LegStopLoss)
			}

			return optional.Some(types.LegTakeProfit)
		}

		if cmp.Compare(slID, tpID) > 0 {
			return optional.Some(types.LegStopLoss)
		}

		return optional.Some(types.LegTakeProfit)
	case sl:
		return optional.Some(types.LegStopLoss)
	case tp:
		return optional.Some(types.LegTakeProfit)
	default:
		return optional.None[types.Leg]()
	}
}

func (lc *Lifecycle) lastExecutionTime(orderID int64) time.Time {
	if e := lc.ledger.LastExecution(orderID); e.IsSome() {
		return e.Unwrap().ExecutionTime
	}

	return time.Time{}
}

// ReconcileResolved records the position a resolved leg left behind: a
// position row stamped with the leg's last status time holding the status's
// remaining quantity and the execution's average price. The cash ledger
// gets a zero signal at now with the current leverage. It returns None when
// no leg resolved or the ledger lacks the rows to build the position.
func (lc *Lifecycle) ReconcileResolved(state types.RiskState, leverage float64, now time.Time) optional.Option[Remaining] {
	leg := lc.ResolvedLeg(state)
	if leg.IsNone() {
		return optional.None[Remaining]()
	}

	id := state.ID(leg.Unwrap()).Unwrap()
	contract := lc.config.Contract

	status := lc.ledger.LatestStatus(id)
	base := lc.ledger.LatestPosition(contract.Symbol, contract.Currency)

	if status.IsNone() || base.IsNone() {
		lc.log.Debug("Resolved leg has no status or base position yet",
			zap.String("leg", string(leg.Unwrap())),
			zap.Int64("order_id", id),
		)

		return optional.None[Remaining]()
	}

	row := base.Unwrap()
	row.Time = status.Unwrap().Time
	row.Position = status.Unwrap().Remaining

	if exec := lc.ledger.LastExecution(id); exec.IsSome() {
		row.AvgCost = exec.Unwrap().AvPrice
	}

	lc.ledger.MergePositions([]types.PositionRow{row})
	lc.ledger.RecordCash(types.CashPoint{
		Time:     now,
		Capital:  optional.None[float64](),
		Leverage: optional.Some(leverage),
		Signal:   optional.Some(0),
	})

	lc.log.Info("Recorded position left by resolved leg",
		zap.String("leg", string(leg.Unwrap())),
		zap.Int64("order_id", id),
		zap.Float64("remaining", row.Position),
	)

	return optional.Some(Remaining{Leg: leg.Unwrap(), OrderID: id, Position: row})
}
