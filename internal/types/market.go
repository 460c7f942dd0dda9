package types

import "time"

// Bar is one OHLC bar.
type Bar struct {
	Time  time.Time `json:"time" yaml:"time" csv:"time"`
	Open  float64   `json:"open" yaml:"open" csv:"open"`
	High  float64   `json:"high" yaml:"high" csv:"high"`
	Low   float64   `json:"low" yaml:"low" csv:"low"`
	Close float64   `json:"close" yaml:"close" csv:"close"`
}

// Quote is a single close observed at a time.
type Quote struct {
	Time  time.Time
	Close float64
}

// BarSide selects which side of the book a historical request asks for.
type BarSide int

const (
	SideBid BarSide = iota
	SideAsk
)

func (s BarSide) String() string {
	if s == SideAsk {
		return "ASK"
	}

	return "BID"
}

// DecisionBar is a bar resampled to the decision frequency. HighFirst is true
// when the high printed before the low inside the bar.
type DecisionBar struct {
	Bar
	HighTime  time.Time `json:"high_time" yaml:"high_time"`
	LowTime   time.Time `json:"low_time" yaml:"low_time"`
	HighFirst bool      `json:"high_first" yaml:"high_first"`
}
