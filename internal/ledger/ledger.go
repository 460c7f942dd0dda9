// Package ledger keeps the engine's local picture of gateway state: six
// record streams (open orders, order statuses, executions, commissions,
// positions and account values), the decision-frequency price series, the
// cash ledger and the periods-traded table.
package ledger

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-fx/internal/types"
)

// MergeStats counts rows that were new in a merge.
type MergeStats struct {
	OpenOrders    int
	OrderStatus   int
	Executions    int
	Commissions   int
	Positions     int
	AccountValues int
}

// Total returns the number of new rows across streams.
func (m MergeStats) Total() int {
	return m.OpenOrders + m.OrderStatus + m.Executions + m.Commissions + m.Positions + m.AccountValues
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu            sync.RWMutex
	openOrders    *Stream[types.OpenOrderRow]
	orderStatus   *Stream[types.OrderStatusRow]
	executions    *Stream[types.ExecutionRow]
	commissions   *Stream[types.CommissionRow]
	positions     *Stream[types.PositionRow]
	accountValues *Stream[types.AccountValueRow]
	historical    *HistoricalSeries
	cash          *CashLedger
	periods       []types.PeriodRecord
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{
		mu:            sync.RWMutex{},
		openOrders:    NewStream[types.OpenOrderRow](),
		orderStatus:   NewStream[types.OrderStatusRow](),
		executions:    NewStream[types.ExecutionRow](),
		commissions:   NewStream[types.CommissionRow](),
		positions:     NewStream[types.PositionRow](),
		accountValues: NewStream[types.AccountValueRow](),
		historical:    NewHistoricalSeries(),
		cash:          NewCashLedger(),
		periods:       nil,
	}
}

// Apply merges a drained batch into the streams.
func (l *Ledger) Apply(b Batch) MergeStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return MergeStats{
		OpenOrders:    l.openOrders.Merge(b.OpenOrders),
		OrderStatus:   l.orderStatus.Merge(b.OrderStatus),
		Executions:    l.executions.Merge(b.Executions),
		Commissions:   l.commissions.Merge(sanitizeCommissions(b.Commissions)),
		Positions:     l.positions.Merge(b.Positions),
		AccountValues: l.accountValues.Merge(b.AccountValues),
	}
}

// MergePositions merges position rows, including rows synthesized when a
// bracket leg resolves.
func (l *Ledger) MergePositions(rows []types.PositionRow) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.positions.Merge(rows)
}

// MergeHistorical upserts decision bars.
func (l *Ledger) MergeHistorical(bars []types.DecisionBar) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.historical.Merge(bars)
}

// RecordCash writes a sparse cash point.
func (l *Ledger) RecordCash(p types.CashPoint) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cash.Record(p)
}

// CashAsOf returns the forward-filled cash view at t.
func (l *Ledger) CashAsOf(t time.Time) types.CashSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.cash.AsOf(t)
}

// MarkPeriod upserts a periods-traded record keyed on its trade time.
func (l *Ledger) MarkPeriod(rec types.PeriodRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.periods {
		if l.periods[i].TradeTime.Equal(rec.TradeTime) {
			l.periods[i] = rec

			return
		}
	}

	l.periods = append(l.periods, rec)
	slices.SortFunc(l.periods, func(a, b types.PeriodRecord) int { return a.TradeTime.Compare(b.TradeTime) })
}

// Periods returns the periods-traded table.
func (l *Ledger) Periods() []types.PeriodRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return slices.Clone(l.periods)
}

// FirstTradeOfWeek reports whether no period at or after weekStart has been traded.
func (l *Ledger) FirstTradeOfWeek(weekStart time.Time) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, p := range l.periods {
		if p.TradeDone && !p.TradeTime.Before(weekStart) {
			return false
		}
	}

	return true
}

// ----------------------------------------------------------------------------
// Queries
// ----------------------------------------------------------------------------

// LatestOrderID returns the highest order id among open orders for symbol
// with the given order type.
func (l *Ledger) LatestOrderID(symbol string, orderType types.OrderType) optional.Option[int64] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	row := l.openOrders.MaxBy(
		func(r types.OpenOrderRow) bool { return r.Symbol == symbol && r.OrderType == orderType },
		func(a, b types.OpenOrderRow) int { return cmp.Compare(a.OrderID, b.OrderID) },
	)
	if row.IsNone() {
		return optional.None[int64]()
	}

	return optional.Some(row.Unwrap().OrderID)
}

// OpenOrder returns the most recent open-order row for an order id.
func (l *Ledger) OpenOrder(orderID int64) optional.Option[types.OpenOrderRow] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.openOrders.Latest(func(r types.OpenOrderRow) bool { return r.OrderID == orderID })
}

// LatestStatus returns the most recent order-status row for an order id.
func (l *Ledger) LatestStatus(orderID int64) optional.Option[types.OrderStatusRow] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.orderStatus.Latest(func(r types.OrderStatusRow) bool { return r.OrderID == orderID })
}

// IsResolved reports whether an order reached a terminal state. The
// order-status stream is authoritative; the open-order stream's status is
// used when no status row exists.
func (l *Ledger) IsResolved(orderID int64) bool {
	if st := l.LatestStatus(orderID); st.IsSome() {
		return IsTerminalStatus(st.Unwrap().Status)
	}

	if oo := l.OpenOrder(orderID); oo.IsSome() {
		return IsTerminalStatus(oo.Unwrap().Status)
	}

	return false
}

// IsTerminalStatus reports whether a gateway order status means the order
// is filled or cancelled.
func IsTerminalStatus(status string) bool {
	switch status {
	case types.StatusFilled, types.StatusCancelled, types.StatusApiCancelled:
		return true
	}

	return strings.EqualFold(status, "canceled")
}

// LatestPosition returns the most recent position row for a pair.
func (l *Ledger) LatestPosition(symbol, currency string) optional.Option[types.PositionRow] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.positions.Latest(func(r types.PositionRow) bool {
		return r.Symbol == symbol && r.Currency == currency
	})
}

// PositionQuantity returns the signed position for a pair, 0 if none was seen.
func (l *Ledger) PositionQuantity(symbol, currency string) float64 {
	if p := l.LatestPosition(symbol, currency); p.IsSome() {
		return p.Unwrap().Position
	}

	return 0
}

// AccountValue returns the most recent account value for key and currency.
func (l *Ledger) AccountValue(key, currency string) optional.Option[types.AccountValueRow] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.accountValues.Latest(func(r types.AccountValueRow) bool {
		return r.Key == key && r.Currency == currency
	})
}

// AccountFloat parses the most recent account value for key and currency.
func (l *Ledger) AccountFloat(key, currency string) optional.Option[float64] {
	row := l.AccountValue(key, currency)
	if row.IsNone() {
		return optional.None[float64]()
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(row.Unwrap().Value), 64)
	if err != nil {
		return optional.None[float64]()
	}

	return optional.Some(v)
}

// LastExecution returns the execution of an order with the latest execution time.
func (l *Ledger) LastExecution(orderID int64) optional.Option[types.ExecutionRow] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.executions.MaxBy(
		func(r types.ExecutionRow) bool { return r.OrderID == orderID },
		func(a, b types.ExecutionRow) int { return a.ExecutionTime.Compare(b.ExecutionTime) },
	)
}

// LastFilledOrderOfType returns the latest Filled status row whose order is
// of the given type for symbol. Used to report the market fill price.
func (l *Ledger) LastFilledOrderOfType(symbol string, orderType types.OrderType) optional.Option[types.OrderStatusRow] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make(map[int64]struct{})

	for _, r := range l.openOrders.Select(func(r types.OpenOrderRow) bool {
		return r.Symbol == symbol && r.OrderType == orderType
	}) {
		ids[r.OrderID] = struct{}{}
	}

	return l.orderStatus.Latest(func(r types.OrderStatusRow) bool {
		_, ok := ids[r.OrderID]

		return ok && r.Status == types.StatusFilled
	})
}

// Bars returns the decision-frequency series.
func (l *Ledger) Bars() []types.DecisionBar {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.historical.Bars()
}

func sanitizeCommissions(rows []types.CommissionRow) []types.CommissionRow {
	out := make([]types.CommissionRow, 0, len(rows))

	for _, r := range rows {
		if r.RealizedPnL.IsSome() {
			r.RealizedPnL = types.SanitizePnL(r.RealizedPnL.Unwrap())
		}

		out = append(out, r)
	}

	return out
}
