package scheduler

import (
	"time"
)

// Default margins.
const (
	DefaultCloseMargin  = 30 * time.Minute
	DefaultSafetyMargin = 5 * time.Minute
)

// Margins tune the day boundaries.
type Margins struct {
	// CloseMargin is how long before the day end positions are closed, and
	// how far a period must sit before a boundary to still be traded.
	CloseMargin time.Duration
	// SafetyMargin is how long after the gateway restart trading resumes.
	SafetyMargin time.Duration
}

// DefaultMargins returns the 30-minute close margin and 5-minute restart margin.
func DefaultMargins() Margins {
	return Margins{CloseMargin: DefaultCloseMargin, SafetyMargin: DefaultSafetyMargin}
}

func (m Margins) withDefaults() Margins {
	if m.CloseMargin <= 0 {
		m.CloseMargin = DefaultCloseMargin
	}

	if m.SafetyMargin <= 0 {
		m.SafetyMargin = DefaultSafetyMargin
	}

	return m
}

// Boundaries are the day's scheduling anchors.
type Boundaries struct {
	// Start is the first grid period of the trading day.
	Start time.Time
	// DayEnd is the forex day end.
	DayEnd time.Time
	// WindowStart and WindowEnd delimit the gateway maintenance window.
	WindowStart time.Time
	WindowEnd   time.Time
	// CloseRef is the instant the close margin is measured from: the day
	// end, the window start when the day end falls inside the window, or
	// the close margin past RestartBeforeEnd when the close-out would land
	// inside the maintenance exclusion.
	CloseRef time.Time
	// DayBeforeEnd is the last period traded normally before the close.
	DayBeforeEnd time.Time
	// TradingDayEnd is when open positions are closed.
	TradingDayEnd time.Time
	// RestartBeforeEnd is the last period traded before the window.
	RestartBeforeEnd time.Time
	// RestartStart is the first period traded after the window.
	RestartStart     time.Time
	PreviousDayStart time.Time
	DayStart         time.Time
}

// PeriodGrid returns start, start+freq, ... up to and including cutoff.
func PeriodGrid(start time.Time, freq time.Duration, cutoff time.Time) []time.Time {
	if freq <= 0 {
		return nil
	}

	var grid []time.Time
	for p := start; !p.After(cutoff); p = p.Add(freq) {
		grid = append(grid, p)
	}

	return grid
}

// DayBoundaries computes the day's anchors for now. The trading day is the
// one whose day end is the first at or after now. A day end that falls
// inside the maintenance window, boundaries included, is pulled back to the
// window start. A close-out that still lands inside the maintenance
// exclusion moves to the last period before it, so positions are always
// flat before the gateway restarts.
func DayBoundaries(freq Frequency, now time.Time, h Hours, margins Margins) Boundaries {
	m := margins.withDefaults()
	loc := h.Location
	if loc == nil {
		loc = now.Location()
	}

	now = now.In(loc)
	step := freq.Duration()

	dayEnd := time.Date(now.Year(), now.Month(), now.Day(), h.DayEndHour, h.DayEndMinute, 0, 0, loc)
	if !now.Before(dayEnd) {
		dayEnd = dayEnd.AddDate(0, 0, 1)
	}

	start := time.Date(dayEnd.Year(), dayEnd.Month(), dayEnd.Day()-1, h.TradingStartHour, h.DayEndMinute, 0, 0, loc)

	// the window rolls to tomorrow once the first period after it has passed
	windowStart := time.Date(now.Year(), now.Month(), now.Day(), h.RestartHour, h.RestartMinute, 0, 0, loc)
	if now.After(windowStart.Add(m.SafetyMargin + step)) {
		windowStart = windowStart.AddDate(0, 0, 1)
	}

	windowEnd := windowStart.Add(m.SafetyMargin)

	closeRef := dayEnd
	if !dayEnd.Before(windowStart) && !dayEnd.After(windowEnd) {
		closeRef = windowStart
	}

	cutoff := dayEnd
	if windowEnd.After(cutoff) {
		cutoff = windowEnd
	}

	grid := PeriodGrid(start.AddDate(0, 0, -1), step, cutoff.Add(step))

	b := Boundaries{
		Start:            start,
		DayEnd:           dayEnd,
		WindowStart:      windowStart,
		WindowEnd:        windowEnd,
		CloseRef:         closeRef,
		DayBeforeEnd:     time.Time{},
		TradingDayEnd:    closeRef.Add(-m.CloseMargin),
		RestartBeforeEnd: lastBefore(grid, windowStart, m.CloseMargin),
		RestartStart:     firstAtOrAfter(grid, windowEnd),
		PreviousDayStart: start,
		DayStart:         time.Time{},
	}

	// the close-out never runs inside the maintenance exclusion: it takes
	// the place of the last period before the window instead
	if b.InMaintenance(b.TradingDayEnd) && !b.RestartBeforeEnd.IsZero() {
		b.TradingDayEnd = b.RestartBeforeEnd
		b.CloseRef = b.TradingDayEnd.Add(m.CloseMargin)
	}

	b.DayBeforeEnd = lastBefore(grid, b.CloseRef, m.CloseMargin)
	b.DayStart = b.PreviousDayStart.AddDate(0, 0, 1)

	return b
}

// lastBefore returns the last grid period more than margin before ref.
func lastBefore(grid []time.Time, ref time.Time, margin time.Duration) time.Time {
	for i := len(grid) - 1; i >= 0; i-- {
		if ref.Sub(grid[i]) > margin {
			return grid[i]
		}
	}

	return time.Time{}
}

// firstAtOrAfter returns the first grid period at or after ref.
func firstAtOrAfter(grid []time.Time, ref time.Time) time.Time {
	for _, p := range grid {
		if !p.Before(ref) {
			return p
		}
	}

	return time.Time{}
}

// InMaintenance reports whether t falls strictly between the last period
// before the window and the first period after it.
func (b Boundaries) InMaintenance(t time.Time) bool {
	return t.After(b.RestartBeforeEnd) && t.Before(b.RestartStart)
}

// MaintenanceWindowExclusion drops the grid periods inside the maintenance
// window.
func MaintenanceWindowExclusion(grid []time.Time, b Boundaries) []time.Time {
	out := make([]time.Time, 0, len(grid))

	for _, p := range grid {
		if !b.InMaintenance(p) {
			out = append(out, p)
		}
	}

	return out
}
