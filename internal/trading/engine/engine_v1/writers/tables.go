package writers

import (
	"database/sql"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-fx/internal/ledger"
	"github.com/rxtech-lab/argo-fx/internal/types"
)

// Table names, also used as the parquet file names.
const (
	TableOpenOrders    = "open_orders"
	TableOrderStatus   = "orders_status"
	TableExecutions    = "executions"
	TableCommissions   = "commissions"
	TablePositions     = "positions"
	TableAccountValues = "account_values"
	TableCashBalance   = "cash_balance"
	TableHistorical    = "historical_data"
	TablePeriods       = "periods_traded"
)

type column struct {
	name    string
	sqlType string
}

// table describes one ledger stream as a DuckDB table.
type table struct {
	name string
	// key is the upsert conflict target.
	key string
	// replace makes a conflicting row overwrite the stored one. Otherwise
	// the stored row is kept.
	replace bool
	// tagged tables carry the week tag columns and can be filtered by week
	// on restore.
	tagged  bool
	orderBy string
	columns []column
}

var weekColumns = []column{
	{name: "market_open_time", sqlType: "TIMESTAMP"},
	{name: "market_close_time", sqlType: "TIMESTAMP"},
}

var tables = []table{
	{
		name: TableOpenOrders, key: "fingerprint", replace: false, tagged: true, orderBy: "time",
		columns: []column{
			{"fingerprint", "TEXT"}, {"time", "TIMESTAMP"}, {"perm_id", "BIGINT"}, {"client_id", "BIGINT"},
			{"order_id", "BIGINT"}, {"account", "TEXT"}, {"symbol", "TEXT"}, {"sec_type", "TEXT"},
			{"exchange", "TEXT"}, {"action", "TEXT"}, {"order_type", "TEXT"}, {"total_qty", "DOUBLE"},
			{"cash_qty", "DOUBLE"}, {"lmt_price", "DOUBLE"}, {"aux_price", "DOUBLE"}, {"status", "TEXT"},
		},
	},
	{
		name: TableOrderStatus, key: "fingerprint", replace: false, tagged: true, orderBy: "time",
		columns: []column{
			{"fingerprint", "TEXT"}, {"time", "TIMESTAMP"}, {"order_id", "BIGINT"}, {"status", "TEXT"},
			{"filled", "DOUBLE"}, {"remaining", "DOUBLE"}, {"avg_fill_price", "DOUBLE"}, {"perm_id", "BIGINT"},
			{"parent_id", "BIGINT"}, {"last_fill_price", "DOUBLE"}, {"client_id", "BIGINT"}, {"why_held", "TEXT"},
			{"mkt_cap_price", "DOUBLE"},
		},
	},
	{
		name: TableExecutions, key: "fingerprint", replace: false, tagged: true, orderBy: "time",
		columns: []column{
			{"fingerprint", "TEXT"}, {"time", "TIMESTAMP"}, {"order_ref", "TEXT"}, {"exec_id", "TEXT"},
			{"order_id", "BIGINT"}, {"symbol", "TEXT"}, {"sec_type", "TEXT"}, {"currency", "TEXT"},
			{"execution_time", "TIMESTAMP"}, {"account", "TEXT"}, {"exchange", "TEXT"}, {"side", "TEXT"},
			{"shares", "DOUBLE"}, {"price", "DOUBLE"}, {"av_price", "DOUBLE"}, {"cum_qty", "DOUBLE"},
		},
	},
	{
		name: TableCommissions, key: "fingerprint", replace: false, tagged: true, orderBy: "time",
		columns: []column{
			{"fingerprint", "TEXT"}, {"time", "TIMESTAMP"}, {"exec_id", "TEXT"}, {"commission", "DOUBLE"},
			{"currency", "TEXT"}, {"realized_pnl", "DOUBLE"},
		},
	},
	{
		name: TablePositions, key: "fingerprint", replace: false, tagged: true, orderBy: "time",
		columns: []column{
			{"fingerprint", "TEXT"}, {"time", "TIMESTAMP"}, {"account", "TEXT"}, {"symbol", "TEXT"},
			{"sec_type", "TEXT"}, {"currency", "TEXT"}, {"position", "DOUBLE"}, {"avg_cost", "DOUBLE"},
		},
	},
	{
		name: TableAccountValues, key: "fingerprint", replace: false, tagged: true, orderBy: "time",
		columns: []column{
			{"fingerprint", "TEXT"}, {"time", "TIMESTAMP"}, {"account_key", "TEXT"}, {"account_value", "TEXT"},
			{"currency", "TEXT"}, {"account", "TEXT"},
		},
	},
	{
		name: TableCashBalance, key: "time", replace: true, tagged: true, orderBy: "time",
		columns: []column{
			{"time", "TIMESTAMP"}, {"capital", "DOUBLE"}, {"leverage", "DOUBLE"}, {"signal", "INTEGER"},
		},
	},
	{
		name: TableHistorical, key: "time", replace: true, tagged: true, orderBy: "time",
		columns: []column{
			{"time", "TIMESTAMP"}, {"open", "DOUBLE"}, {"high", "DOUBLE"}, {"low", "DOUBLE"}, {"close", "DOUBLE"},
			{"high_time", "TIMESTAMP"}, {"low_time", "TIMESTAMP"}, {"high_first", "BOOLEAN"},
		},
	},
	{
		// the record carries its own week, so no tag columns are appended
		name: TablePeriods, key: "trade_time", replace: true, tagged: false, orderBy: "trade_time",
		columns: []column{
			{"trade_time", "TIMESTAMP"}, {"trade_done", "BOOLEAN"},
			{"market_open_time", "TIMESTAMP"}, {"market_close_time", "TIMESTAMP"},
		},
	},
}

func (t table) allColumns() []column {
	if !t.tagged {
		return t.columns
	}

	return append(append([]column{}, t.columns...), weekColumns...)
}

func (t table) columnNames() []string {
	cols := t.allColumns()
	names := make([]string, len(cols))

	for i, c := range cols {
		names[i] = c.name
	}

	return names
}

// ts normalizes a time for a TIMESTAMP column.
func ts(t time.Time) any {
	if t.IsZero() {
		return nil
	}

	return t.UTC()
}

func nullableFloat(v optional.Option[float64]) any {
	if v.IsNone() {
		return nil
	}

	return v.Unwrap()
}

func nullableInt(v optional.Option[int]) any {
	if v.IsNone() {
		return nil
	}

	return v.Unwrap()
}

func floatOption(v sql.NullFloat64) optional.Option[float64] {
	if !v.Valid {
		return optional.None[float64]()
	}

	return optional.Some(v.Float64)
}

func intOption(v sql.NullInt64) optional.Option[int] {
	if !v.Valid {
		return optional.None[int]()
	}

	return optional.Some(int(v.Int64))
}

func timeOf(v sql.NullTime) time.Time {
	if !v.Valid {
		return time.Time{}
	}

	return v.Time.UTC()
}

// rowsOf flattens a snapshot into insert values per table.
func rowsOf(s ledger.Snapshot, week ledger.WeekTag) map[string][][]any {
	tag := func(t time.Time, values ...any) []any {
		open, closeTime := week.Tag(t)

		return append(values, ts(open), ts(closeTime))
	}

	out := make(map[string][][]any, len(tables))

	for _, r := range s.OpenOrders {
		out[TableOpenOrders] = append(out[TableOpenOrders], tag(r.Time,
			r.Fingerprint(), ts(r.Time), r.PermID, r.ClientID, r.OrderID, r.Account, r.Symbol, r.SecType,
			r.Exchange, string(r.Action), string(r.OrderType), r.TotalQty, r.CashQty, r.LmtPrice, r.AuxPrice, r.Status))
	}

	for _, r := range s.OrderStatus {
		out[TableOrderStatus] = append(out[TableOrderStatus], tag(r.Time,
			r.Fingerprint(), ts(r.Time), r.OrderID, r.Status, r.Filled, r.Remaining, r.AvgFillPrice, r.PermID,
			r.ParentID, r.LastFillPrice, r.ClientID, r.WhyHeld, r.MktCapPrice))
	}

	for _, r := range s.Executions {
		out[TableExecutions] = append(out[TableExecutions], tag(r.Time,
			r.Fingerprint(), ts(r.Time), r.OrderRef, r.ExecID, r.OrderID, r.Symbol, r.SecType, r.Currency,
			ts(r.ExecutionTime), r.Account, r.Exchange, string(r.Side), r.Shares, r.Price, r.AvPrice, r.CumQty))
	}

	for _, r := range s.Commissions {
		out[TableCommissions] = append(out[TableCommissions], tag(r.Time,
			r.Fingerprint(), ts(r.Time), r.ExecID, r.Commission, r.Currency, nullableFloat(r.RealizedPnL)))
	}

	for _, r := range s.Positions {
		out[TablePositions] = append(out[TablePositions], tag(r.Time,
			r.Fingerprint(), ts(r.Time), r.Account, r.Symbol, r.SecType, r.Currency, r.Position, r.AvgCost))
	}

	for _, r := range s.AccountValues {
		out[TableAccountValues] = append(out[TableAccountValues], tag(r.Time,
			r.Fingerprint(), ts(r.Time), r.Key, r.Value, r.Currency, r.Account))
	}

	for _, p := range s.Cash {
		out[TableCashBalance] = append(out[TableCashBalance], tag(p.Time,
			ts(p.Time), nullableFloat(p.Capital), nullableFloat(p.Leverage), nullableInt(p.Signal)))
	}

	for _, b := range s.Bars {
		out[TableHistorical] = append(out[TableHistorical], tag(b.Time,
			ts(b.Time), b.Open, b.High, b.Low, b.Close, ts(b.HighTime), ts(b.LowTime), b.HighFirst))
	}

	for _, p := range s.Periods {
		out[TablePeriods] = append(out[TablePeriods], []any{
			ts(p.TradeTime), p.TradeDone, ts(p.MarketOpen), ts(p.MarketClose),
		})
	}

	return out
}

// scanner reads one row of a table into the snapshot.
type scanner func(rows *sql.Rows, s *ledger.Snapshot) error

var scanners = map[string]scanner{
	TableOpenOrders: func(rows *sql.Rows, s *ledger.Snapshot) error {
		var (
			r                 types.OpenOrderRow
			fp                string
			action, orderType string
		)

		if err := rows.Scan(&fp, &r.Time, &r.PermID, &r.ClientID, &r.OrderID, &r.Account, &r.Symbol, &r.SecType,
			&r.Exchange, &action, &orderType, &r.TotalQty, &r.CashQty, &r.LmtPrice, &r.AuxPrice, &r.Status); err != nil {
			return err
		}

		r.Time = r.Time.UTC()
		r.Action = types.OrderAction(action)
		r.OrderType = types.OrderType(orderType)
		s.OpenOrders = append(s.OpenOrders, r)

		return nil
	},
	TableOrderStatus: func(rows *sql.Rows, s *ledger.Snapshot) error {
		var (
			r  types.OrderStatusRow
			fp string
		)

		if err := rows.Scan(&fp, &r.Time, &r.OrderID, &r.Status, &r.Filled, &r.Remaining, &r.AvgFillPrice, &r.PermID,
			&r.ParentID, &r.LastFillPrice, &r.ClientID, &r.WhyHeld, &r.MktCapPrice); err != nil {
			return err
		}

		r.Time = r.Time.UTC()
		s.OrderStatus = append(s.OrderStatus, r)

		return nil
	},
	TableExecutions: func(rows *sql.Rows, s *ledger.Snapshot) error {
		var (
			r      types.ExecutionRow
			fp     string
			side   string
			execAt sql.NullTime
		)

		if err := rows.Scan(&fp, &r.Time, &r.OrderRef, &r.ExecID, &r.OrderID, &r.Symbol, &r.SecType, &r.Currency,
			&execAt, &r.Account, &r.Exchange, &side, &r.Shares, &r.Price, &r.AvPrice, &r.CumQty); err != nil {
			return err
		}

		r.Time = r.Time.UTC()
		r.ExecutionTime = timeOf(execAt)
		r.Side = types.OrderAction(side)
		s.Executions = append(s.Executions, r)

		return nil
	},
	TableCommissions: func(rows *sql.Rows, s *ledger.Snapshot) error {
		var (
			r   types.CommissionRow
			fp  string
			pnl sql.NullFloat64
		)

		if err := rows.Scan(&fp, &r.Time, &r.ExecID, &r.Commission, &r.Currency, &pnl); err != nil {
			return err
		}

		r.Time = r.Time.UTC()
		r.RealizedPnL = floatOption(pnl)
		s.Commissions = append(s.Commissions, r)

		return nil
	},
	TablePositions: func(rows *sql.Rows, s *ledger.Snapshot) error {
		var (
			r  types.PositionRow
			fp string
		)

		if err := rows.Scan(&fp, &r.Time, &r.Account, &r.Symbol, &r.SecType, &r.Currency, &r.Position, &r.AvgCost); err != nil {
			return err
		}

		r.Time = r.Time.UTC()
		s.Positions = append(s.Positions, r)

		return nil
	},
	TableAccountValues: func(rows *sql.Rows, s *ledger.Snapshot) error {
		var (
			r  types.AccountValueRow
			fp string
		)

		if err := rows.Scan(&fp, &r.Time, &r.Key, &r.Value, &r.Currency, &r.Account); err != nil {
			return err
		}

		r.Time = r.Time.UTC()
		s.AccountValues = append(s.AccountValues, r)

		return nil
	},
	TableCashBalance: func(rows *sql.Rows, s *ledger.Snapshot) error {
		var (
			at                time.Time
			capital, leverage sql.NullFloat64
			signal            sql.NullInt64
		)

		if err := rows.Scan(&at, &capital, &leverage, &signal); err != nil {
			return err
		}

		s.Cash = append(s.Cash, types.CashPoint{
			Time:     at.UTC(),
			Capital:  floatOption(capital),
			Leverage: floatOption(leverage),
			Signal:   intOption(signal),
		})

		return nil
	},
	TableHistorical: func(rows *sql.Rows, s *ledger.Snapshot) error {
		var (
			b                 types.DecisionBar
			highTime, lowTime sql.NullTime
		)

		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &highTime, &lowTime, &b.HighFirst); err != nil {
			return err
		}

		b.Time = b.Time.UTC()
		b.HighTime = timeOf(highTime)
		b.LowTime = timeOf(lowTime)
		s.Bars = append(s.Bars, b)

		return nil
	},
	TablePeriods: func(rows *sql.Rows, s *ledger.Snapshot) error {
		var (
			p                       types.PeriodRecord
			marketOpen, marketClose sql.NullTime
		)

		if err := rows.Scan(&p.TradeTime, &p.TradeDone, &marketOpen, &marketClose); err != nil {
			return err
		}

		p.TradeTime = p.TradeTime.UTC()
		p.MarketOpen = timeOf(marketOpen)
		p.MarketClose = timeOf(marketClose)
		s.Periods = append(s.Periods, p)

		return nil
	},
}
