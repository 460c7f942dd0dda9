package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// CashPoint is a sparse write to the cash ledger. Columns left as None keep
// their previous value when read back.
type CashPoint struct {
	// Time is the decision period the point belongs to
	Time time.Time `json:"time" yaml:"time"`
	// Capital is the account cash converted to the contract's base currency
	Capital optional.Option[float64] `json:"capital" yaml:"capital"`
	// Leverage applied when sizing the period
	Leverage optional.Option[float64] `json:"leverage" yaml:"leverage"`
	// Signal the strategy returned for the period
	Signal optional.Option[int] `json:"signal" yaml:"signal"`
}

// CashSnapshot is the forward-filled view of the cash ledger at a point in time.
type CashSnapshot struct {
	Time     time.Time                `json:"time" yaml:"time"`
	Capital  optional.Option[float64] `json:"capital" yaml:"capital"`
	Leverage optional.Option[float64] `json:"leverage" yaml:"leverage"`
	Signal   optional.Option[int]     `json:"signal" yaml:"signal"`
}

// Complete reports whether every column has a value.
func (c CashSnapshot) Complete() bool {
	return c.Capital.IsSome() && c.Leverage.IsSome() && c.Signal.IsSome()
}
