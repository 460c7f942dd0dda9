// Package notifier renders the per-period status message and delivers it.
package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/moznion/go-optional"
)

// DefaultSubject is the subject of every status message.
const DefaultSubject = "argo-fx trading status"

// TextNotifier delivers a rendered message.
type TextNotifier interface {
	SendText(subject, body string) error
}

// StatusReport is what a period tells the trader. Prices and sizes are
// optional: a period that could not read one of them falls back to the
// short form.
type StatusReport struct {
	Period          time.Time
	Pair            string
	Symbol          string
	AccountCurrency string

	Signal      optional.Option[int]
	Leverage    optional.Option[float64]
	Cash        optional.Option[float64]
	Quantity    optional.Option[float64]
	StopLoss    optional.Option[float64]
	MarketPrice optional.Option[float64]
	TakeProfit  optional.Option[float64]
}

// Complete reports whether every optional field has a value.
func (r StatusReport) Complete() bool {
	return r.Signal.IsSome() &&
		r.Leverage.IsSome() &&
		r.Cash.IsSome() &&
		r.Quantity.IsSome() &&
		r.StopLoss.IsSome() &&
		r.MarketPrice.IsSome() &&
		r.TakeProfit.IsSome()
}

func (r StatusReport) headline() string {
	return fmt.Sprintf("- The period %s was successfully traded", r.Period.Format("2006-01-02 15:04:05"))
}

// Render returns the message body.
func (r StatusReport) Render() string {
	if !r.Complete() {
		return r.headline()
	}

	var b strings.Builder

	b.WriteString(r.headline())
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "- The Forex pair is %s\n", r.Pair)
	fmt.Fprintf(&b, "- The signal is %d\n", r.Signal.Unwrap())
	fmt.Fprintf(&b, "- The leverage is %g\n", r.Leverage.Unwrap())
	fmt.Fprintf(&b, "- The cash balance value is %.2f %s\n", r.Cash.Unwrap(), r.AccountCurrency)
	fmt.Fprintf(&b, "- The current position quantity is %g %s\n", r.Quantity.Unwrap(), r.Symbol)
	fmt.Fprintf(&b, "- The stop-loss price is %g\n", r.StopLoss.Unwrap())
	fmt.Fprintf(&b, "- The market price is %g\n", r.MarketPrice.Unwrap())
	fmt.Fprintf(&b, "- The take-profit price is %g", r.TakeProfit.Unwrap())

	return b.String()
}
