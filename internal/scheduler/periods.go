package scheduler

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
)

// TodaysPeriods returns the grid from one day before previousDayStart up to
// now, followed by the next period after now.
func TodaysPeriods(now time.Time, freq Frequency, previousDayStart time.Time) []time.Time {
	step := freq.Duration()
	if step <= 0 {
		return nil
	}

	p := previousDayStart.AddDate(0, 0, -1)
	periods := []time.Time{p}

	for !p.Add(step).After(now) {
		p = p.Add(step)
		periods = append(periods, p)
	}

	return append(periods, p.Add(step))
}

// ClosestPeriods returns the previous, current and next periods around now.
// Before the trading day end the next period is capped at the trading day
// end. From the trading day end until the market close the current period
// is the trading day end itself, whether or not it sits on the grid, and
// the next period is capped at the day start, then at the market close. A
// next period that lands inside the maintenance window moves to the first
// period after it.
func ClosestPeriods(now time.Time, freq Frequency, b Boundaries, marketClose time.Time) (types.PeriodTuple, error) {
	periods := TodaysPeriods(now, freq, b.PreviousDayStart)
	if len(periods) < 3 {
		return types.PeriodTuple{}, errors.Newf(errors.ErrCodeScheduleOutOfHours,
			"not enough periods between %s and %s", b.PreviousDayStart, now)
	}

	n := len(periods)
	tuple := types.PeriodTuple{Previous: periods[n-3], Current: periods[n-2], Next: periods[n-1]}

	switch {
	case now.Before(b.TradingDayEnd):
		tuple.Next = earliest(tuple.Next, b.TradingDayEnd)
	case now.Before(b.DayStart):
		tuple.Previous, tuple.Current = periodBefore(periods, b.TradingDayEnd), b.TradingDayEnd
		tuple.Next = earliest(tuple.Next, b.DayStart)
	case now.Before(marketClose):
		tuple.Previous, tuple.Current = periodBefore(periods, b.TradingDayEnd), b.TradingDayEnd
		tuple.Next = earliest(tuple.Next, marketClose)
	default:
		return types.PeriodTuple{}, errors.Newf(errors.ErrCodeScheduleOutOfHours,
			"%s is after the market close %s", now.Format(time.RFC3339), marketClose.Format(time.RFC3339))
	}

	if b.InMaintenance(tuple.Next) {
		tuple.Next = b.RestartStart
	}

	return tuple, nil
}

// periodBefore returns the last period strictly before t, or the first one.
func periodBefore(periods []time.Time, t time.Time) time.Time {
	for i := len(periods) - 1; i >= 0; i-- {
		if periods[i].Before(t) {
			return periods[i]
		}
	}

	return periods[0]
}

func earliest(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}

	return a
}

// WaitUntil blocks until target, ctx is done or done is closed. It returns
// ctx's error on cancellation and ErrCodeSessionTornDown when done closes.
// done may be nil.
func WaitUntil(ctx context.Context, target time.Time, done <-chan struct{}) error {
	d := time.Until(target)
	if d <= 0 {
		select {
		case <-done:
			return errors.New(errors.ErrCodeSessionTornDown, "session torn down")
		default:
			return ctx.Err()
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return errors.New(errors.ErrCodeSessionTornDown, "session torn down")
	}
}

// Sleep waits for d the way WaitUntil does.
func Sleep(ctx context.Context, d time.Duration, done <-chan struct{}) error {
	return WaitUntil(ctx, time.Now().Add(d), done)
}
