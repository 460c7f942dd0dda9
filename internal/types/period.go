package types

import "time"

// PeriodTuple is the previous, current and next decision period.
type PeriodTuple struct {
	Previous time.Time `json:"previous" yaml:"previous"`
	Current  time.Time `json:"current" yaml:"current"`
	Next     time.Time `json:"next" yaml:"next"`
}

// PeriodRecord marks whether a decision period was traded.
type PeriodRecord struct {
	TradeTime   time.Time `json:"trade_time" yaml:"trade_time"`
	TradeDone   bool      `json:"trade_done" yaml:"trade_done"`
	MarketOpen  time.Time `json:"market_open" yaml:"market_open"`
	MarketClose time.Time `json:"market_close" yaml:"market_close"`
}

// PeriodKind tells a normal decision period from the day-close sequence.
type PeriodKind string

const (
	PeriodKindDecision PeriodKind = "decision"
	PeriodKindDayClose PeriodKind = "day_close"
)

// PeriodReport summarizes one completed period for callbacks, the status
// API and notifications.
type PeriodReport struct {
	ID               string     `json:"id" yaml:"id"`
	Kind             PeriodKind `json:"kind" yaml:"kind"`
	Period           time.Time  `json:"period" yaml:"period"`
	Pair             string     `json:"pair" yaml:"pair"`
	Signal           int        `json:"signal" yaml:"signal"`
	Leverage         float64    `json:"leverage" yaml:"leverage"`
	PreviousQuantity float64    `json:"previous_quantity" yaml:"previous_quantity"`
	TargetQuantity   float64    `json:"target_quantity" yaml:"target_quantity"`
	Degraded         bool       `json:"degraded" yaml:"degraded"`
	Errors           []string   `json:"errors,omitempty" yaml:"errors,omitempty"`
	Duration         float64    `json:"duration_seconds" yaml:"duration_seconds"`
}
