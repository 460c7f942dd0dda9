// Package marketdata turns the gateway's one-minute bid and ask bars into
// the decision-frequency series the strategy consumes.
package marketdata

import (
	"slices"
	"time"

	"github.com/rxtech-lab/argo-fx/internal/types"
)

// MidSeries joins bid and ask bars on their timestamps and returns the
// midpoint OHLC. A side missing at a timestamp carries its previous bar
// forward; timestamps before both sides have printed are dropped.
func MidSeries(bid, ask []types.Bar) []types.Bar {
	bidAt := make(map[int64]types.Bar, len(bid))
	askAt := make(map[int64]types.Bar, len(ask))
	keys := make([]int64, 0, len(bid)+len(ask))

	for _, b := range bid {
		bidAt[b.Time.UnixNano()] = b
		keys = append(keys, b.Time.UnixNano())
	}

	for _, a := range ask {
		askAt[a.Time.UnixNano()] = a
		keys = append(keys, a.Time.UnixNano())
	}

	slices.Sort(keys)
	keys = slices.Compact(keys)

	loc := time.UTC
	if len(bid) > 0 {
		loc = bid[0].Time.Location()
	}

	var (
		lastBid, lastAsk types.Bar
		haveBid, haveAsk bool
	)

	out := make([]types.Bar, 0, len(keys))

	for _, k := range keys {
		if b, ok := bidAt[k]; ok {
			lastBid, haveBid = b, true
		}

		if a, ok := askAt[k]; ok {
			lastAsk, haveAsk = a, true
		}

		if !haveBid || !haveAsk {
			continue
		}

		out = append(out, types.Bar{
			Time:  time.Unix(0, k).In(loc),
			Open:  (lastBid.Open + lastAsk.Open) / 2,
			High:  (lastBid.High + lastAsk.High) / 2,
			Low:   (lastBid.Low + lastAsk.Low) / 2,
			Close: (lastBid.Close + lastAsk.Close) / 2,
		})
	}

	return out
}

// Resample groups one-minute bars into freq-sized bins anchored at origin.
// Each output bar is labeled with the end of its bin, so the bar stamped t
// describes the interval [t-freq, t) and is complete once t has passed.
func Resample(bars []types.Bar, freq time.Duration, origin time.Time) []types.DecisionBar {
	if freq <= 0 || len(bars) == 0 {
		return nil
	}

	sorted := slices.Clone(bars)
	slices.SortStableFunc(sorted, func(a, b types.Bar) int { return a.Time.Compare(b.Time) })

	var (
		out     []types.DecisionBar
		cur     *types.DecisionBar
		curSlot int64
	)

	for _, b := range sorted {
		slot := binIndex(b.Time, origin, freq)

		if cur == nil || slot != curSlot {
			if cur != nil {
				out = append(out, finish(*cur))
			}

			curSlot = slot
			cur = &types.DecisionBar{
				Bar: types.Bar{
					Time:  origin.Add(time.Duration(slot+1) * freq).In(b.Time.Location()),
					Open:  b.Open,
					High:  b.High,
					Low:   b.Low,
					Close: b.Close,
				},
				HighTime:  b.Time,
				LowTime:   b.Time,
				HighFirst: false,
			}

			continue
		}

		if b.High > cur.High {
			cur.High, cur.HighTime = b.High, b.Time
		}

		if b.Low < cur.Low {
			cur.Low, cur.LowTime = b.Low, b.Time
		}

		cur.Close = b.Close
	}

	if cur != nil {
		out = append(out, finish(*cur))
	}

	return out
}

func finish(b types.DecisionBar) types.DecisionBar {
	b.HighFirst = b.HighTime.Before(b.LowTime)

	return b
}

// binIndex is floor((t-origin)/freq), also for t before origin.
func binIndex(t, origin time.Time, freq time.Duration) int64 {
	d := t.Sub(origin)
	idx := int64(d / freq)

	if d < 0 && d%freq != 0 {
		idx--
	}

	return idx
}

// Origin returns the first time at or before first whose clock reads
// hour:minute in first's location. It anchors resampling to the trading
// start so bins line up with decision periods.
func Origin(first time.Time, hour, minute int) time.Time {
	o := time.Date(first.Year(), first.Month(), first.Day(), hour, minute, 0, 0, first.Location())
	if o.After(first) {
		o = o.AddDate(0, 0, -1)
	}

	return o
}
