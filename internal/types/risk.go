package types

import "github.com/moznion/go-optional"

// LegState is the lifecycle state of one bracket leg.
type LegState string

const (
	LegAbsent   LegState = "ABSENT"
	LegWorking  LegState = "WORKING"
	LegResolved LegState = "RESOLVED"
)

// RiskState is the stop-loss/take-profit bracket as derived from the ledger.
type RiskState struct {
	StopLossID         optional.Option[int64] `json:"stop_loss_id" yaml:"stop_loss_id"`
	TakeProfitID       optional.Option[int64] `json:"take_profit_id" yaml:"take_profit_id"`
	StopLossResolved   bool                   `json:"stop_loss_resolved" yaml:"stop_loss_resolved"`
	TakeProfitResolved bool                   `json:"take_profit_resolved" yaml:"take_profit_resolved"`
}

// State returns the lifecycle state of a bracket leg.
func (r RiskState) State(leg Leg) LegState {
	id, resolved := r.StopLossID, r.StopLossResolved
	if leg == LegTakeProfit {
		id, resolved = r.TakeProfitID, r.TakeProfitResolved
	}

	switch {
	case id.IsNone():
		return LegAbsent
	case resolved:
		return LegResolved
	default:
		return LegWorking
	}
}

// ID returns the order id of a bracket leg.
func (r RiskState) ID(leg Leg) optional.Option[int64] {
	if leg == LegTakeProfit {
		return r.TakeProfitID
	}

	return r.StopLossID
}
