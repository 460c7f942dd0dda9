package scheduler

import (
	"time"

	"github.com/rxtech-lab/argo-fx/pkg/errors"
)

// Zone names the schedule is anchored to.
const (
	// ReferenceZone is where the trading week's weekday boundaries are evaluated.
	ReferenceZone = "America/Bogota"
	// MarketCloseZone is where the forex day ends at 17:00.
	MarketCloseZone = "America/New_York"
	// MarketCloseHour is the forex day end in MarketCloseZone.
	MarketCloseHour = 17
)

// LoadZone loads a zone, mapping failures to ErrCodeInvalidTimezone.
func LoadZone(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidTimezone, err, "failed to load time zone %q", name)
	}

	return loc, nil
}

// TradingWeekBounds returns the trading week containing now: from Sunday to
// Friday, each at the trading start, with weekdays judged in the reference
// zone. From Friday's start through Sunday's start the upcoming week is
// returned. Both bounds are expressed in tradingTZ.
func TradingWeekBounds(now time.Time, tradingTZ string, startHourUTC int) (time.Time, time.Time, error) {
	local, err := LoadZone(tradingTZ)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	ref, err := LoadZone(ReferenceZone)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	nowRef := now.In(ref)
	startUTC := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), startHourUTC, 0, 0, 0, time.UTC)
	startRef := startUTC.In(ref)
	sh, sm := startRef.Hour(), startRef.Minute()

	startToday := time.Date(nowRef.Year(), nowRef.Month(), nowRef.Day(), sh, sm, 0, 0, ref)

	var sunday, friday time.Time

	weekday := nowRef.Weekday()
	outOfHours := (weekday == time.Friday && !nowRef.Before(startToday)) ||
		weekday == time.Saturday ||
		(weekday == time.Sunday && !nowRef.After(startToday))

	if outOfHours {
		sunday = startToday.AddDate(0, 0, (7-int(weekday))%7)
		friday = sunday.AddDate(0, 0, 5)
	} else {
		sunday = startToday.AddDate(0, 0, -int(weekday))
		friday = startToday.AddDate(0, 0, int(time.Friday-weekday))
	}

	return sunday.In(local), friday.In(local), nil
}

// Hours are the daily anchors in the trading zone.
type Hours struct {
	Location           *time.Location
	DayEndHour         int
	DayEndMinute       int
	RestartHour        int
	RestartMinute      int
	TradingStartHour   int
	TradingStartMinute int
}

// EndHours converts the day end (17:00 New York), the gateway restart
// (given in New York time) and the trading start (given in UTC) into
// tradingTZ, using each zone's offset at now.
func EndHours(now time.Time, tradingTZ string, startHourUTC, restartHourET, restartMinuteET int) (Hours, error) {
	local, err := LoadZone(tradingTZ)
	if err != nil {
		return Hours{}, err
	}

	ny, err := LoadZone(MarketCloseZone)
	if err != nil {
		return Hours{}, err
	}

	nowNY := now.In(ny)
	dayEnd := time.Date(nowNY.Year(), nowNY.Month(), nowNY.Day(), MarketCloseHour, 0, 0, 0, ny).In(local)
	restart := time.Date(nowNY.Year(), nowNY.Month(), nowNY.Day(), restartHourET, restartMinuteET, 0, 0, ny).In(local)

	nowUTC := now.UTC()
	start := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), startHourUTC, 0, 0, 0, time.UTC).In(local)

	return Hours{
		Location:           local,
		DayEndHour:         dayEnd.Hour(),
		DayEndMinute:       dayEnd.Minute(),
		RestartHour:        restart.Hour(),
		RestartMinute:      restart.Minute(),
		TradingStartHour:   start.Hour(),
		TradingStartMinute: start.Minute(),
	}, nil
}
