package ledger

import (
	"slices"

	"github.com/rxtech-lab/argo-fx/internal/types"
)

// HistoricalSeries holds decision-frequency bars. A bar merged for a
// timestamp that already exists replaces it, since the newest download of
// the still-forming bar is the correct one.
type HistoricalSeries struct {
	bars map[int64]types.DecisionBar
	keys []int64
}

// NewHistoricalSeries creates an empty series.
func NewHistoricalSeries() *HistoricalSeries {
	return &HistoricalSeries{
		bars: make(map[int64]types.DecisionBar),
		keys: nil,
	}
}

// Merge upserts bars keyed on their timestamp. Later bars in the slice win
// over earlier ones with the same timestamp.
func (h *HistoricalSeries) Merge(bars []types.DecisionBar) {
	for _, bar := range bars {
		k := bar.Time.UnixNano()
		if _, ok := h.bars[k]; !ok {
			h.keys = append(h.keys, k)
		}

		h.bars[k] = bar
	}

	slices.Sort(h.keys)
}

// Bars returns every bar in ascending time order.
func (h *HistoricalSeries) Bars() []types.DecisionBar {
	out := make([]types.DecisionBar, 0, len(h.keys))
	for _, k := range h.keys {
		out = append(out, h.bars[k])
	}

	return out
}
