package broker

import (
	"time"

	"github.com/rxtech-lab/argo-fx/internal/bridge"
	"github.com/rxtech-lab/argo-fx/internal/ledger"
	"github.com/rxtech-lab/argo-fx/internal/logger"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"go.uber.org/zap"
)

// Router is the Handler the engine connects with. It writes callback rows
// into the ledger's temporary buffer, feeds ticks and error codes into the
// session, and signals the bridge when an end-callback arrives.
type Router struct {
	session *Session
	buffer  *ledger.Buffer
	bridge  *bridge.Bridge
	log     *logger.Logger
	now     func() time.Time
}

var _ Handler = (*Router)(nil)

// NewRouter creates a Router for one session.
func NewRouter(session *Session, buffer *ledger.Buffer, b *bridge.Bridge, log *logger.Logger) *Router {
	return &Router{
		session: session,
		buffer:  buffer,
		bridge:  b,
		log:     log,
		now:     time.Now,
	}
}

// WithClock replaces the clock used to stamp rows that arrive without a time.
func (r *Router) WithClock(now func() time.Time) *Router {
	r.now = now

	return r
}

func (r *Router) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return r.now()
	}

	return t
}

func (r *Router) NextValidID(orderID int64) {
	r.session.SetNextOrderID(orderID)
	r.bridge.Complete(bridge.KeyNextID)
}

func (r *Router) Position(row types.PositionRow) {
	row.Time = r.stamp(row.Time)
	r.buffer.AddPosition(row)
}

func (r *Router) PositionEnd() {
	r.bridge.Complete(bridge.KeyPositions)
}

func (r *Router) OpenOrder(row types.OpenOrderRow) {
	row.Time = r.stamp(row.Time)
	r.buffer.AddOpenOrder(row)
}

func (r *Router) OrderStatus(row types.OrderStatusRow) {
	row.Time = r.stamp(row.Time)
	r.buffer.AddOrderStatus(row)
}

func (r *Router) OpenOrderEnd() {
	r.bridge.Complete(bridge.KeyOpenOrders)
}

func (r *Router) UpdateAccountValue(row types.AccountValueRow) {
	row.Time = r.stamp(row.Time)
	r.buffer.AddAccountValue(row)
}

func (r *Router) AccountDownloadEnd(account string) {
	r.log.Debug("Account download finished", zap.String("account", account))
	r.bridge.Complete(bridge.KeyAccount)
}

func (r *Router) ExecDetails(_ int64, row types.ExecutionRow) {
	row.Time = r.stamp(row.Time)
	r.buffer.AddExecution(row)
}

// CommissionReport maps the gateway's unset PnL marker to None before the
// row reaches the buffer.
func (r *Router) CommissionReport(row types.CommissionRow) {
	row.Time = r.stamp(row.Time)

	if row.RealizedPnL.IsSome() {
		row.RealizedPnL = types.SanitizePnL(row.RealizedPnL.Unwrap())
	}

	r.buffer.AddCommission(row)
}

func (r *Router) ExecDetailsEnd(_ int64) {
	r.bridge.Complete(bridge.KeyExecutions)
}

// HistoricalData files the bar under the side its request id stands for:
// 0 is bid, 1 is ask.
func (r *Router) HistoricalData(reqID int64, bar types.Bar) {
	r.buffer.AddBar(types.BarSide(reqID), bar)
}

func (r *Router) HistoricalDataEnd(reqID int64) {
	r.bridge.Complete(bridge.HistoricalKey(reqID))
}

func (r *Router) TickByTickMidpoint(_ int64, at time.Time, mid float64) {
	r.session.RecordTick(r.stamp(at), mid)
}

func (r *Router) Error(reqID int64, code int, message string) {
	r.session.Errors().Record(ErrorEvent{
		Code:    code,
		Message: message,
		ReqID:   reqID,
		At:      r.now(),
	})

	switch code {
	case CodeOrderCancelled, CodeCancelRejectedOrder, CodeCancelRejectedState:
		r.log.Debug("Gateway acknowledged cancel", zap.Int("code", code), zap.Int64("req_id", reqID))
	case CodeHistoricalData:
		r.log.Warn("Historical data request failed", zap.Int64("req_id", reqID), zap.String("message", message))

		// no end callback follows, release the waiter now
		if key := bridge.HistoricalKey(reqID); r.bridge.Pending(key) {
			r.bridge.Complete(key)
		}
	default:
		r.log.Warn("Gateway error",
			zap.Int("code", code),
			zap.Int64("req_id", reqID),
			zap.String("message", message),
		)
	}
}

func (r *Router) ConnectionClosed() {
	r.session.TearDown(ReasonDisconnected)
}
