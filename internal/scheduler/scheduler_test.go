package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SchedulerTestSuite struct {
	suite.Suite
	freq Frequency
	now  time.Time
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (suite *SchedulerTestSuite) SetupTest() {
	suite.freq = MustFrequency("15min")
	suite.now = time.Date(2024, 3, 5, 10, 7, 0, 0, time.UTC)
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 3, day, hour, minute, 0, 0, time.UTC)
}

func utcHours(dayEndMinute, restartHour, restartMinute int) Hours {
	return Hours{
		Location:           time.UTC,
		DayEndHour:         22,
		DayEndMinute:       dayEndMinute,
		RestartHour:        restartHour,
		RestartMinute:      restartMinute,
		TradingStartHour:   22,
		TradingStartMinute: 0,
	}
}

func (suite *SchedulerTestSuite) TestParseFrequency() {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		barSize string
		perDay  int
		wantErr bool
	}{
		{name: "five minutes", input: "5min", want: 5 * time.Minute, barSize: "5 mins", perDay: 288},
		{name: "one minute", input: "1min", want: time.Minute, barSize: "1 min", perDay: 1440},
		{name: "one hour", input: "1h", want: time.Hour, barSize: "1 hour", perDay: 24},
		{name: "two hours upper case", input: " 2H ", want: 2 * time.Hour, barSize: "2 hours", perDay: 12},
		{name: "does not divide a day", input: "7min", wantErr: true},
		{name: "zero", input: "0min", wantErr: true},
		{name: "unknown unit", input: "5d", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			f, err := ParseFrequency(tc.input)
			if tc.wantErr {
				suite.Require().Error(err)
				suite.True(errors.HasCode(err, errors.ErrCodeInvalidFrequency))

				return
			}

			suite.Require().NoError(err)
			suite.Equal(tc.want, f.Duration())
			suite.Equal(tc.barSize, f.BarSize())
			suite.Equal(tc.perDay, f.PeriodsPerDay())
		})
	}

	suite.Equal("15min", suite.freq.String())
	suite.Panics(func() { MustFrequency("13min") })
}

func (suite *SchedulerTestSuite) TestTradingWeekBounds() {
	bogota, err := time.LoadLocation(ReferenceZone)
	suite.Require().NoError(err)

	local := func(day, hour, minute int) time.Time {
		return time.Date(2024, 3, day, hour, minute, 0, 0, bogota)
	}

	tests := []struct {
		name       string
		now        time.Time
		wantSunday time.Time
		wantFriday time.Time
	}{
		{name: "midweek", now: local(6, 12, 0), wantSunday: local(3, 17, 0), wantFriday: local(8, 17, 0)},
		{name: "saturday rolls forward", now: local(9, 12, 0), wantSunday: local(10, 17, 0), wantFriday: local(15, 17, 0)},
		{name: "friday at the start is out of hours", now: local(8, 17, 0), wantSunday: local(10, 17, 0), wantFriday: local(15, 17, 0)},
		{name: "friday before the start", now: local(8, 16, 59), wantSunday: local(3, 17, 0), wantFriday: local(8, 17, 0)},
		{name: "sunday at the start is out of hours", now: local(10, 17, 0), wantSunday: local(10, 17, 0), wantFriday: local(15, 17, 0)},
		{name: "sunday after the start", now: local(10, 17, 1), wantSunday: local(10, 17, 0), wantFriday: local(15, 17, 0)},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			sunday, friday, err := TradingWeekBounds(tc.now, ReferenceZone, 22)
			suite.Require().NoError(err)
			suite.True(tc.wantSunday.Equal(sunday), "sunday: got %s", sunday)
			suite.True(tc.wantFriday.Equal(friday), "friday: got %s", friday)
		})
	}

	_, _, err = TradingWeekBounds(suite.now, "Mars/Olympus", 22)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTimezone))
}

func (suite *SchedulerTestSuite) TestEndHoursFollowsDaylightSaving() {
	summer, err := EndHours(time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC), ReferenceZone, 22, 23, 45)
	suite.Require().NoError(err)
	suite.Equal(16, summer.DayEndHour)
	suite.Equal(0, summer.DayEndMinute)
	suite.Equal(22, summer.RestartHour)
	suite.Equal(45, summer.RestartMinute)
	suite.Equal(17, summer.TradingStartHour)

	winter, err := EndHours(time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), ReferenceZone, 22, 23, 45)
	suite.Require().NoError(err)
	suite.Equal(17, winter.DayEndHour)
	suite.Equal(23, winter.RestartHour)
	suite.Equal(45, winter.RestartMinute)
	suite.Equal(17, winter.TradingStartHour)
}

func (suite *SchedulerTestSuite) TestDayBoundaries() {
	sixty := Margins{CloseMargin: 30 * time.Minute, SafetyMargin: time.Hour}

	tests := []struct {
		name    string
		hours   Hours
		margins Margins
		want    Boundaries
	}{
		{
			name:    "day end equals the restart",
			hours:   utcHours(0, 22, 0),
			margins: DefaultMargins(),
			want: Boundaries{
				Start:            at(4, 22, 0),
				DayEnd:           at(5, 22, 0),
				WindowStart:      at(5, 22, 0),
				WindowEnd:        at(5, 22, 5),
				CloseRef:         at(5, 21, 45),
				DayBeforeEnd:     at(5, 21, 0),
				TradingDayEnd:    at(5, 21, 15),
				RestartBeforeEnd: at(5, 21, 15),
				RestartStart:     at(5, 22, 15),
				PreviousDayStart: at(4, 22, 0),
				DayStart:         at(5, 22, 0),
			},
		},
		{
			name:    "day end at the window end",
			hours:   utcHours(5, 22, 0),
			margins: DefaultMargins(),
			want: Boundaries{
				Start:            at(4, 22, 5),
				DayEnd:           at(5, 22, 5),
				WindowStart:      at(5, 22, 0),
				WindowEnd:        at(5, 22, 5),
				CloseRef:         at(5, 21, 50),
				DayBeforeEnd:     at(5, 21, 5),
				TradingDayEnd:    at(5, 21, 20),
				RestartBeforeEnd: at(5, 21, 20),
				RestartStart:     at(5, 22, 5),
				PreviousDayStart: at(4, 22, 5),
				DayStart:         at(5, 22, 5),
			},
		},
		{
			name:    "day end inside a long window",
			hours:   utcHours(0, 21, 30),
			margins: sixty,
			want: Boundaries{
				Start:            at(4, 22, 0),
				DayEnd:           at(5, 22, 0),
				WindowStart:      at(5, 21, 30),
				WindowEnd:        at(5, 22, 30),
				CloseRef:         at(5, 21, 15),
				DayBeforeEnd:     at(5, 20, 30),
				TradingDayEnd:    at(5, 20, 45),
				RestartBeforeEnd: at(5, 20, 45),
				RestartStart:     at(5, 22, 30),
				PreviousDayStart: at(4, 22, 0),
				DayStart:         at(5, 22, 0),
			},
		},
		{
			name:    "day end exactly at the window end",
			hours:   utcHours(0, 21, 0),
			margins: sixty,
			want: Boundaries{
				Start:            at(4, 22, 0),
				DayEnd:           at(5, 22, 0),
				WindowStart:      at(5, 21, 0),
				WindowEnd:        at(5, 22, 0),
				CloseRef:         at(5, 20, 45),
				DayBeforeEnd:     at(5, 20, 0),
				TradingDayEnd:    at(5, 20, 15),
				RestartBeforeEnd: at(5, 20, 15),
				RestartStart:     at(5, 22, 0),
				PreviousDayStart: at(4, 22, 0),
				DayStart:         at(5, 22, 0),
			},
		},
		{
			name:    "window well before the day end leaves the close-out alone",
			hours:   utcHours(0, 18, 0),
			margins: DefaultMargins(),
			want: Boundaries{
				Start:            at(4, 22, 0),
				DayEnd:           at(5, 22, 0),
				WindowStart:      at(5, 18, 0),
				WindowEnd:        at(5, 18, 5),
				CloseRef:         at(5, 22, 0),
				DayBeforeEnd:     at(5, 21, 15),
				TradingDayEnd:    at(5, 21, 30),
				RestartBeforeEnd: at(5, 17, 15),
				RestartStart:     at(5, 18, 15),
				PreviousDayStart: at(4, 22, 0),
				DayStart:         at(5, 22, 0),
			},
		},
		{
			name:    "day end after the window",
			hours:   utcHours(0, 20, 55),
			margins: sixty,
			want: Boundaries{
				Start:            at(4, 22, 0),
				DayEnd:           at(5, 22, 0),
				WindowStart:      at(5, 20, 55),
				WindowEnd:        at(5, 21, 55),
				CloseRef:         at(5, 20, 45),
				DayBeforeEnd:     at(5, 20, 0),
				TradingDayEnd:    at(5, 20, 15),
				RestartBeforeEnd: at(5, 20, 15),
				RestartStart:     at(5, 22, 0),
				PreviousDayStart: at(4, 22, 0),
				DayStart:         at(5, 22, 0),
			},
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			got := DayBoundaries(suite.freq, suite.now, tc.hours, tc.margins)
			suite.Equal(tc.want, got)
			suite.False(got.InMaintenance(got.TradingDayEnd))
		})
	}
}

func (suite *SchedulerTestSuite) TestDayBoundariesRollAfterDayEnd() {
	b := DayBoundaries(suite.freq, at(5, 22, 30), utcHours(0, 22, 0), DefaultMargins())

	suite.Equal(at(5, 22, 0), b.Start)
	suite.Equal(at(6, 22, 0), b.DayEnd)
	suite.Equal(at(6, 22, 0), b.WindowStart)
	suite.Equal(at(6, 21, 15), b.TradingDayEnd)
	suite.Equal(at(6, 22, 0), b.DayStart)
}

func (suite *SchedulerTestSuite) TestDayBoundariesInsideTheWindow() {
	b := DayBoundaries(suite.freq, at(5, 22, 3), utcHours(0, 22, 0), DefaultMargins())

	// the day has rolled but the window is still today's
	suite.Equal(at(6, 22, 0), b.DayEnd)
	suite.Equal(at(5, 22, 0), b.WindowStart)
	suite.Equal(at(5, 21, 15), b.RestartBeforeEnd)
	suite.Equal(at(5, 22, 15), b.RestartStart)
	suite.True(b.InMaintenance(at(5, 22, 3)))
}

func (suite *SchedulerTestSuite) TestMaintenanceWindowExclusion() {
	b := DayBoundaries(suite.freq, suite.now, utcHours(0, 20, 55), Margins{CloseMargin: 30 * time.Minute, SafetyMargin: time.Hour})
	grid := PeriodGrid(at(5, 20, 0), 15*time.Minute, at(5, 22, 15))

	got := MaintenanceWindowExclusion(grid, b)

	suite.Equal([]time.Time{
		at(5, 20, 0),
		at(5, 20, 15),
		at(5, 22, 0),
		at(5, 22, 15),
	}, got)
	suite.Contains(got, b.TradingDayEnd)
}

func (suite *SchedulerTestSuite) TestPeriodGrid() {
	suite.Nil(PeriodGrid(at(5, 0, 0), 0, at(5, 1, 0)))
	suite.Equal([]time.Time{at(5, 0, 0), at(5, 0, 30), at(5, 1, 0)}, PeriodGrid(at(5, 0, 0), 30*time.Minute, at(5, 1, 0)))
}

func (suite *SchedulerTestSuite) TestTodaysPeriods() {
	periods := TodaysPeriods(suite.now, suite.freq, at(4, 22, 0))

	suite.Equal(at(3, 22, 0), periods[0])
	suite.Equal(at(5, 10, 0), periods[len(periods)-2])
	suite.Equal(at(5, 10, 15), periods[len(periods)-1])
}

func (suite *SchedulerTestSuite) TestClosestPeriods() {
	hours := utcHours(0, 22, 0)
	marketClose := at(8, 22, 0)

	tests := []struct {
		name string
		now  time.Time
		want types.PeriodTuple
	}{
		{
			name: "mid session",
			now:  suite.now,
			want: types.PeriodTuple{Previous: at(5, 9, 45), Current: at(5, 10, 0), Next: at(5, 10, 15)},
		},
		{
			name: "next is the trading day end",
			now:  at(5, 21, 5),
			want: types.PeriodTuple{Previous: at(5, 20, 45), Current: at(5, 21, 0), Next: at(5, 21, 15)},
		},
		{
			name: "after the close the next period skips the window",
			now:  at(5, 21, 40),
			want: types.PeriodTuple{Previous: at(5, 21, 0), Current: at(5, 21, 15), Next: at(5, 22, 15)},
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			b := DayBoundaries(suite.freq, tc.now, hours, DefaultMargins())
			got, err := ClosestPeriods(tc.now, suite.freq, b, marketClose)
			suite.Require().NoError(err)
			suite.Equal(tc.want, got)
		})
	}
}

func (suite *SchedulerTestSuite) TestCloseOutMovesBeforeAWindowAfterIt() {
	// the close-out at 21:30 would fall after the 21:27 restart
	b := DayBoundaries(suite.freq, at(5, 21, 20), utcHours(0, 21, 27), DefaultMargins())

	suite.Equal(at(5, 20, 45), b.RestartBeforeEnd)
	suite.Equal(at(5, 21, 45), b.RestartStart)
	suite.Equal(at(5, 20, 45), b.TradingDayEnd)
	suite.True(b.TradingDayEnd.Before(b.WindowStart))
	suite.False(b.InMaintenance(b.TradingDayEnd))

	before, err := ClosestPeriods(at(5, 20, 40), suite.freq, b, at(8, 22, 0))
	suite.Require().NoError(err)
	suite.Equal(at(5, 20, 45), before.Next)

	after, err := ClosestPeriods(at(5, 21, 20), suite.freq, b, at(8, 22, 0))
	suite.Require().NoError(err)
	suite.Equal(at(5, 20, 45), after.Current)
	suite.Equal(at(5, 21, 45), after.Next)
	suite.False(b.InMaintenance(after.Next))
}

func (suite *SchedulerTestSuite) TestEveryFrequencyReachesTheCloseOut() {
	hours := utcHours(0, 23, 45)
	marketClose := at(8, 22, 0)

	for _, spec := range []string{"15min", "20min", "45min", "1h", "2h"} {
		suite.Run(spec, func() {
			freq := MustFrequency(spec)
			now := at(5, 12, 0)
			closed := false

			for i := 0; i < 50 && now.Before(at(5, 22, 0)); i++ {
				b := DayBoundaries(freq, now, hours, DefaultMargins())
				tuple, err := ClosestPeriods(now, freq, b, marketClose)
				suite.Require().NoError(err)

				if tuple.Current.Equal(b.TradingDayEnd) {
					suite.Equal(at(5, 21, 30), tuple.Current)
					closed = true
				}

				suite.Require().True(tuple.Next.After(now))
				now = tuple.Next
			}

			suite.True(closed, "no step landed on the close-out")
		})
	}
}

func (suite *SchedulerTestSuite) TestClosestPeriodsOffTheGridCloseOut() {
	freq := MustFrequency("1h")
	b := DayBoundaries(freq, at(5, 21, 0), utcHours(0, 23, 45), DefaultMargins())
	suite.Require().Equal(at(5, 21, 30), b.TradingDayEnd)

	before, err := ClosestPeriods(at(5, 21, 0), freq, b, at(8, 22, 0))
	suite.Require().NoError(err)
	suite.Equal(types.PeriodTuple{Previous: at(5, 20, 0), Current: at(5, 21, 0), Next: at(5, 21, 30)}, before)

	got, err := ClosestPeriods(at(5, 21, 30), freq, b, at(8, 22, 0))
	suite.Require().NoError(err)
	suite.Equal(types.PeriodTuple{Previous: at(5, 21, 0), Current: at(5, 21, 30), Next: at(5, 22, 0)}, got)
}

func (suite *SchedulerTestSuite) TestClosestPeriodsAfterDayStart() {
	b := Boundaries{
		PreviousDayStart: at(4, 22, 0),
		TradingDayEnd:    at(5, 9, 30),
		DayStart:         at(5, 9, 45),
	}

	got, err := ClosestPeriods(suite.now, suite.freq, b, at(5, 10, 10))
	suite.Require().NoError(err)
	suite.Equal(at(5, 9, 30), got.Current)
	suite.Equal(at(5, 10, 10), got.Next)

	_, err = ClosestPeriods(suite.now, suite.freq, b, at(5, 10, 0))
	suite.True(errors.HasCode(err, errors.ErrCodeScheduleOutOfHours))
}

func (suite *SchedulerTestSuite) TestClosestPeriodsTooFewPeriods() {
	b := Boundaries{PreviousDayStart: at(7, 22, 0)}

	_, err := ClosestPeriods(suite.now, suite.freq, b, at(8, 22, 0))
	suite.True(errors.HasCode(err, errors.ErrCodeScheduleOutOfHours))
}

func (suite *SchedulerTestSuite) TestWaitUntil() {
	suite.Run("past target returns immediately", func() {
		suite.NoError(WaitUntil(context.Background(), time.Now().Add(-time.Second), nil))
	})

	suite.Run("short wait completes", func() {
		suite.NoError(Sleep(context.Background(), 5*time.Millisecond, nil))
	})

	suite.Run("closed done channel", func() {
		done := make(chan struct{})
		close(done)

		err := WaitUntil(context.Background(), time.Now().Add(time.Hour), done)
		suite.True(errors.HasCode(err, errors.ErrCodeSessionTornDown))

		err = WaitUntil(context.Background(), time.Now().Add(-time.Hour), done)
		suite.True(errors.HasCode(err, errors.ErrCodeSessionTornDown))
	})

	suite.Run("cancelled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := WaitUntil(ctx, time.Now().Add(time.Hour), nil)
		suite.ErrorIs(err, context.Canceled)
	})
}
