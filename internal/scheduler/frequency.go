// Package scheduler places decision periods relative to the forex trading
// week, the daily close-out cutoff and the gateway's maintenance window.
// Time zones are resolved with time.LoadLocation on every call so offsets
// always follow the zone database for the instant being scheduled.
package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-fx/pkg/errors"
)

// Frequency is a decision frequency such as "5min" or "1h".
type Frequency struct {
	N    int
	Unit string
}

// ParseFrequency parses "<n>min" or "<n>h".
func ParseFrequency(s string) (Frequency, error) {
	s = strings.TrimSpace(strings.ToLower(s))

	var unit string

	switch {
	case strings.HasSuffix(s, "min"):
		unit = "min"
	case strings.HasSuffix(s, "h"):
		unit = "h"
	default:
		return Frequency{}, errors.Newf(errors.ErrCodeInvalidFrequency, "unsupported data frequency %q", s)
	}

	n, err := strconv.Atoi(strings.TrimSuffix(s, unit))
	if err != nil || n <= 0 {
		return Frequency{}, errors.Newf(errors.ErrCodeInvalidFrequency, "unsupported data frequency %q", s)
	}

	f := Frequency{N: n, Unit: unit}
	if (24*time.Hour)%f.Duration() != 0 {
		return Frequency{}, errors.Newf(errors.ErrCodeInvalidFrequency, "data frequency %q does not divide a day", s)
	}

	return f, nil
}

// MustFrequency parses s and panics on error. For constants and tests.
func MustFrequency(s string) Frequency {
	f, err := ParseFrequency(s)
	if err != nil {
		panic(err)
	}

	return f
}

// Duration returns the length of one period.
func (f Frequency) Duration() time.Duration {
	if f.Unit == "h" {
		return time.Duration(f.N) * time.Hour
	}

	return time.Duration(f.N) * time.Minute
}

// PeriodsPerDay returns how many periods fit in 24 hours.
func (f Frequency) PeriodsPerDay() int {
	d := f.Duration()
	if d <= 0 {
		return 0
	}

	return int(24 * time.Hour / d)
}

// BarSize returns the gateway bar-size string for the frequency.
func (f Frequency) BarSize() string {
	if f.Unit == "h" {
		if f.N == 1 {
			return "1 hour"
		}

		return fmt.Sprintf("%d hours", f.N)
	}

	if f.N == 1 {
		return "1 min"
	}

	return fmt.Sprintf("%d mins", f.N)
}

func (f Frequency) String() string {
	return fmt.Sprintf("%d%s", f.N, f.Unit)
}
