package ledger

import (
	"slices"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-fx/internal/types"
)

// CashLedger is a sparse, time-ordered record of capital, leverage and
// signal. Writes only touch the columns they carry; reads forward-fill each
// column from the most recent point that set it.
type CashLedger struct {
	points []types.CashPoint
}

// NewCashLedger creates an empty cash ledger.
func NewCashLedger() *CashLedger {
	return &CashLedger{points: nil}
}

// Record writes a point. A second write at the same time merges into the
// first, with the newer Some columns winning.
func (c *CashLedger) Record(p types.CashPoint) {
	idx, found := slices.BinarySearchFunc(c.points, p.Time, func(e types.CashPoint, t time.Time) int {
		return e.Time.Compare(t)
	})

	if !found {
		c.points = slices.Insert(c.points, idx, p)

		return
	}

	cur := &c.points[idx]
	if p.Capital.IsSome() {
		cur.Capital = p.Capital
	}

	if p.Leverage.IsSome() {
		cur.Leverage = p.Leverage
	}

	if p.Signal.IsSome() {
		cur.Signal = p.Signal
	}
}

// AsOf returns the forward-filled view at t. Columns never written before t
// are None.
func (c *CashLedger) AsOf(t time.Time) types.CashSnapshot {
	snap := types.CashSnapshot{
		Time:     t,
		Capital:  optional.None[float64](),
		Leverage: optional.None[float64](),
		Signal:   optional.None[int](),
	}

	for _, p := range c.points {
		if p.Time.After(t) {
			break
		}

		if p.Capital.IsSome() {
			snap.Capital = p.Capital
		}

		if p.Leverage.IsSome() {
			snap.Leverage = p.Leverage
		}

		if p.Signal.IsSome() {
			snap.Signal = p.Signal
		}
	}

	return snap
}

// Points returns the raw sparse points.
func (c *CashLedger) Points() []types.CashPoint {
	return slices.Clone(c.points)
}
