package types

import (
	"fmt"
	"math"
	"time"

	"github.com/moznion/go-optional"
)

// UnsetDouble is the gateway's "no value" marker for double fields.
const UnsetDouble = math.MaxFloat64

// Row is a ledger record keyed on the time the event was observed.
// Two rows with equal fingerprints are exact duplicates.
type Row interface {
	EventTime() time.Time
	Fingerprint() string
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// OpenOrderRow is one open-order callback.
type OpenOrderRow struct {
	Time      time.Time   `json:"time" yaml:"time"`
	PermID    int64       `json:"perm_id" yaml:"perm_id"`
	ClientID  int64       `json:"client_id" yaml:"client_id"`
	OrderID   int64       `json:"order_id" yaml:"order_id"`
	Account   string      `json:"account" yaml:"account"`
	Symbol    string      `json:"symbol" yaml:"symbol"`
	SecType   string      `json:"sec_type" yaml:"sec_type"`
	Exchange  string      `json:"exchange" yaml:"exchange"`
	Action    OrderAction `json:"action" yaml:"action"`
	OrderType OrderType   `json:"order_type" yaml:"order_type"`
	TotalQty  float64     `json:"total_qty" yaml:"total_qty"`
	CashQty   float64     `json:"cash_qty" yaml:"cash_qty"`
	LmtPrice  float64     `json:"lmt_price" yaml:"lmt_price"`
	AuxPrice  float64     `json:"aux_price" yaml:"aux_price"`
	Status    string      `json:"status" yaml:"status"`
}

func (r OpenOrderRow) EventTime() time.Time { return r.Time }

func (r OpenOrderRow) Fingerprint() string {
	return fmt.Sprintf("%s|%d|%d|%d|%s|%s|%s|%s|%s|%s|%g|%g|%g|%g|%s",
		fmtTime(r.Time), r.PermID, r.ClientID, r.OrderID, r.Account, r.Symbol, r.SecType, r.Exchange,
		r.Action, r.OrderType, r.TotalQty, r.CashQty, r.LmtPrice, r.AuxPrice, r.Status)
}

// OrderStatusRow is one order-status callback.
type OrderStatusRow struct {
	Time          time.Time `json:"time" yaml:"time"`
	OrderID       int64     `json:"order_id" yaml:"order_id"`
	Status        string    `json:"status" yaml:"status"`
	Filled        float64   `json:"filled" yaml:"filled"`
	Remaining     float64   `json:"remaining" yaml:"remaining"`
	AvgFillPrice  float64   `json:"avg_fill_price" yaml:"avg_fill_price"`
	PermID        int64     `json:"perm_id" yaml:"perm_id"`
	ParentID      int64     `json:"parent_id" yaml:"parent_id"`
	LastFillPrice float64   `json:"last_fill_price" yaml:"last_fill_price"`
	ClientID      int64     `json:"client_id" yaml:"client_id"`
	WhyHeld       string    `json:"why_held" yaml:"why_held"`
	MktCapPrice   float64   `json:"mkt_cap_price" yaml:"mkt_cap_price"`
}

func (r OrderStatusRow) EventTime() time.Time { return r.Time }

func (r OrderStatusRow) Fingerprint() string {
	return fmt.Sprintf("%s|%d|%s|%g|%g|%g|%d|%d|%g|%d|%s|%g",
		fmtTime(r.Time), r.OrderID, r.Status, r.Filled, r.Remaining, r.AvgFillPrice,
		r.PermID, r.ParentID, r.LastFillPrice, r.ClientID, r.WhyHeld, r.MktCapPrice)
}

// ExecutionRow is one execution-details callback.
type ExecutionRow struct {
	Time          time.Time   `json:"time" yaml:"time"`
	OrderRef      string      `json:"order_ref" yaml:"order_ref"`
	ExecID        string      `json:"exec_id" yaml:"exec_id"`
	OrderID       int64       `json:"order_id" yaml:"order_id"`
	Symbol        string      `json:"symbol" yaml:"symbol"`
	SecType       string      `json:"sec_type" yaml:"sec_type"`
	Currency      string      `json:"currency" yaml:"currency"`
	ExecutionTime time.Time   `json:"execution_time" yaml:"execution_time"`
	Account       string      `json:"account" yaml:"account"`
	Exchange      string      `json:"exchange" yaml:"exchange"`
	Side          OrderAction `json:"side" yaml:"side"`
	Shares        float64     `json:"shares" yaml:"shares"`
	Price         float64     `json:"price" yaml:"price"`
	AvPrice       float64     `json:"av_price" yaml:"av_price"`
	CumQty        float64     `json:"cum_qty" yaml:"cum_qty"`
}

func (r ExecutionRow) EventTime() time.Time { return r.Time }

func (r ExecutionRow) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%s|%d|%s|%s|%s|%s|%s|%s|%s|%g|%g|%g|%g",
		fmtTime(r.Time), r.OrderRef, r.ExecID, r.OrderID, r.Symbol, r.SecType, r.Currency,
		fmtTime(r.ExecutionTime), r.Account, r.Exchange, r.Side, r.Shares, r.Price, r.AvPrice, r.CumQty)
}

// CommissionRow is one commission-report callback. RealizedPnL is None when
// the gateway sent its unset marker.
type CommissionRow struct {
	Time        time.Time                `json:"time" yaml:"time"`
	ExecID      string                   `json:"exec_id" yaml:"exec_id"`
	Commission  float64                  `json:"commission" yaml:"commission"`
	Currency    string                   `json:"currency" yaml:"currency"`
	RealizedPnL optional.Option[float64] `json:"realized_pnl" yaml:"realized_pnl"`
}

func (r CommissionRow) EventTime() time.Time { return r.Time }

func (r CommissionRow) Fingerprint() string {
	pnl := "none"
	if r.RealizedPnL.IsSome() {
		pnl = fmt.Sprintf("%g", r.RealizedPnL.Unwrap())
	}

	return fmt.Sprintf("%s|%s|%g|%s|%s", fmtTime(r.Time), r.ExecID, r.Commission, r.Currency, pnl)
}

// SanitizePnL maps the gateway's unset marker to None.
func SanitizePnL(v float64) optional.Option[float64] {
	if v == UnsetDouble || math.IsNaN(v) || math.IsInf(v, 0) {
		return optional.None[float64]()
	}

	return optional.Some(v)
}

// PositionRow is one position callback, or a row synthesized when a bracket
// leg resolves.
type PositionRow struct {
	Time     time.Time `json:"time" yaml:"time"`
	Account  string    `json:"account" yaml:"account"`
	Symbol   string    `json:"symbol" yaml:"symbol"`
	SecType  string    `json:"sec_type" yaml:"sec_type"`
	Currency string    `json:"currency" yaml:"currency"`
	Position float64   `json:"position" yaml:"position"`
	AvgCost  float64   `json:"avg_cost" yaml:"avg_cost"`
}

func (r PositionRow) EventTime() time.Time { return r.Time }

func (r PositionRow) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%g|%g",
		fmtTime(r.Time), r.Account, r.Symbol, r.SecType, r.Currency, r.Position, r.AvgCost)
}

// AccountValueRow is one account-update callback.
type AccountValueRow struct {
	Time     time.Time `json:"time" yaml:"time"`
	Key      string    `json:"key" yaml:"key"`
	Value    string    `json:"value" yaml:"value"`
	Currency string    `json:"currency" yaml:"currency"`
	Account  string    `json:"account" yaml:"account"`
}

// Account value keys and currencies the engine reads.
const (
	AccountKeyTotalCashBalance = "TotalCashBalance"
	AccountKeyExchangeRate     = "ExchangeRate"
	AccountCurrencyBase        = "BASE"
)

func (r AccountValueRow) EventTime() time.Time { return r.Time }

func (r AccountValueRow) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", fmtTime(r.Time), r.Key, r.Value, r.Currency, r.Account)
}
