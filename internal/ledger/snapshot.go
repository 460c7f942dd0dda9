package ledger

import (
	"time"

	"github.com/rxtech-lab/argo-fx/internal/types"
)

// Snapshot is a point-in-time copy of the whole ledger, used for
// persistence and for restoring state after a restart.
type Snapshot struct {
	OpenOrders    []types.OpenOrderRow
	OrderStatus   []types.OrderStatusRow
	Executions    []types.ExecutionRow
	Commissions   []types.CommissionRow
	Positions     []types.PositionRow
	AccountValues []types.AccountValueRow
	Bars          []types.DecisionBar
	Cash          []types.CashPoint
	Periods       []types.PeriodRecord
}

// Snapshot copies the ledger.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	periods := make([]types.PeriodRecord, len(l.periods))
	copy(periods, l.periods)

	return Snapshot{
		OpenOrders:    l.openOrders.Rows(),
		OrderStatus:   l.orderStatus.Rows(),
		Executions:    l.executions.Rows(),
		Commissions:   l.commissions.Rows(),
		Positions:     l.positions.Rows(),
		AccountValues: l.accountValues.Rows(),
		Bars:          l.historical.Bars(),
		Cash:          l.cash.Points(),
		Periods:       periods,
	}
}

// Restore merges a snapshot into the ledger. Restoring into a ledger that
// already holds some of the rows is safe since merges drop duplicates.
func (l *Ledger) Restore(s Snapshot) MergeStats {
	stats := l.Apply(Batch{
		OpenOrders:    s.OpenOrders,
		OrderStatus:   s.OrderStatus,
		Executions:    s.Executions,
		Commissions:   s.Commissions,
		Positions:     s.Positions,
		AccountValues: s.AccountValues,
	})

	l.MergeHistorical(s.Bars)

	for _, p := range s.Cash {
		l.RecordCash(p)
	}

	for _, p := range s.Periods {
		l.MarkPeriod(p)
	}

	return stats
}

// WeekTag is the trading week a persisted row belongs to.
type WeekTag struct {
	MarketOpen  time.Time
	MarketClose time.Time
}

// Contains reports whether t falls within the week, both ends inclusive.
func (w WeekTag) Contains(t time.Time) bool {
	return !t.Before(w.MarketOpen) && !t.After(w.MarketClose)
}

// Tag returns the open and close times for a row at t, or zero times when t
// falls outside the week.
func (w WeekTag) Tag(t time.Time) (time.Time, time.Time) {
	if !w.Contains(t) {
		return time.Time{}, time.Time{}
	}

	return w.MarketOpen, w.MarketClose
}
