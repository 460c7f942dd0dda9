// Package broker defines the gateway client the engine drives, the callback
// surface the gateway drives back, and the per-connection session state.
package broker

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-fx/internal/types"
)

// HistoricalRequest describes a historical bars download.
type HistoricalRequest struct {
	ReqID    int64
	Contract types.Contract
	// End of the requested window. Zero means now.
	End      time.Time
	Duration string
	BarSize  string
	Side     types.BarSide
}

// Client is the request side of the gateway connection. Every request is
// asynchronous: results arrive on the Handler passed to Connect, and the
// matching end-callback marks completion.
type Client interface {
	// Connect opens the connection and starts delivering callbacks to handler.
	Connect(ctx context.Context, handler Handler) error
	// Disconnect closes the connection. Calling it twice is a no-op.
	Disconnect() error
	IsConnected() bool

	ReqIDs() error
	ReqPositions() error
	ReqOpenOrders() error
	ReqAccountUpdates(subscribe bool, account string) error
	ReqExecutions(reqID int64, filter types.ExecutionFilter) error
	ReqHistoricalData(req HistoricalRequest) error
	ReqTickByTickMidpoint(reqID int64, contract types.Contract) error
	CancelTickByTick(reqID int64) error

	PlaceOrder(contract types.Contract, order types.Order) error
	CancelOrder(orderID int64) error
}

// Handler receives the gateway's callbacks. Implementations must be safe to
// call from the client's reader goroutine.
type Handler interface {
	NextValidID(orderID int64)

	Position(row types.PositionRow)
	PositionEnd()

	OpenOrder(row types.OpenOrderRow)
	OrderStatus(row types.OrderStatusRow)
	OpenOrderEnd()

	UpdateAccountValue(row types.AccountValueRow)
	AccountDownloadEnd(account string)

	ExecDetails(reqID int64, row types.ExecutionRow)
	CommissionReport(row types.CommissionRow)
	ExecDetailsEnd(reqID int64)

	HistoricalData(reqID int64, bar types.Bar)
	HistoricalDataEnd(reqID int64)

	TickByTickMidpoint(reqID int64, at time.Time, mid float64)

	Error(reqID int64, code int, message string)
	ConnectionClosed()
}

// Factory creates a fresh client for each session.
type Factory func() (Client, error)
