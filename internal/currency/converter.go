// Package currency sizes positions by expressing account cash in the traded
// contract's base currency.
package currency

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-fx/internal/logger"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Tier says which source produced a conversion.
type Tier int

const (
	// TierSameCurrency means the contract's base currency is the account currency.
	TierSameCurrency Tier = iota + 1
	// TierBrokerRate means the gateway reported an exchange rate for the currency.
	TierBrokerRate
	// TierCrossRate means the rate was derived from USD crosses of an external quote source.
	TierCrossRate
)

func (t Tier) String() string {
	switch t {
	case TierSameCurrency:
		return "same_currency"
	case TierBrokerRate:
		return "broker_rate"
	case TierCrossRate:
		return "cross_rate"
	default:
		return "unknown"
	}
}

// CrossRateHaircut scales capital converted through the USD cross, leaving
// room for the spread between the quote source and the gateway.
const CrossRateHaircut = 0.9

// QuoteSource supplies one-minute closes for a currency pair.
type QuoteSource interface {
	// MinuteCloses returns closes of base priced in quote for [from, to], ascending.
	MinuteCloses(ctx context.Context, base, quote string, from, to time.Time) ([]types.Quote, error)
}

// AccountValues is the subset of the ledger the converter reads.
type AccountValues interface {
	AccountFloat(key, currency string) optional.Option[float64]
}

// Result is a conversion outcome.
type Result struct {
	Cash    float64
	Capital float64
	Rate    float64
	Tier    Tier
}

// Converter converts account cash into the contract's base currency.
type Converter struct {
	accountCurrency string
	values          AccountValues
	quotes          QuoteSource
	window          time.Duration
	log             *logger.Logger
}

// NewConverter creates a Converter. quotes may be nil, in which case a
// conversion that needs the cross rate fails.
func NewConverter(accountCurrency string, values AccountValues, quotes QuoteSource, log *logger.Logger) *Converter {
	return &Converter{
		accountCurrency: accountCurrency,
		values:          values,
		quotes:          quotes,
		window:          24 * time.Hour,
		log:             log,
	}
}

// Capital returns the account cash expressed in contract.Symbol, trying the
// same-currency, broker-rate and cross-rate tiers in that order.
func (c *Converter) Capital(ctx context.Context, contract types.Contract, asOf time.Time) (Result, error) {
	cash := c.values.AccountFloat(types.AccountKeyTotalCashBalance, types.AccountCurrencyBase)
	if cash.IsNone() {
		return Result{}, errors.New(errors.ErrCodeCurrencyResolution, "no cash balance reported by the gateway")
	}

	cashDec := decimal.NewFromFloat(cash.Unwrap())

	if contract.Symbol == c.accountCurrency {
		return Result{Cash: cash.Unwrap(), Capital: cash.Unwrap(), Rate: 1, Tier: TierSameCurrency}, nil
	}

	if rate := c.values.AccountFloat(types.AccountKeyExchangeRate, contract.Symbol); rate.IsSome() && rate.Unwrap() > 0 {
		capital, _ := cashDec.Div(decimal.NewFromFloat(rate.Unwrap())).Float64()

		return Result{Cash: cash.Unwrap(), Capital: capital, Rate: rate.Unwrap(), Tier: TierBrokerRate}, nil
	}

	rate, err := c.crossRate(ctx, contract.Symbol, asOf)
	if err != nil {
		return Result{}, err
	}

	capital, _ := cashDec.Mul(rate).Mul(decimal.NewFromFloat(CrossRateHaircut)).Float64()
	rateF, _ := rate.Float64()

	c.log.Info("Capital converted through USD cross",
		zap.String("symbol", contract.Symbol),
		zap.String("account_currency", c.accountCurrency),
		zap.Float64("rate", rateF),
		zap.Float64("capital", capital),
	)

	return Result{Cash: cash.Unwrap(), Capital: capital, Rate: rateF, Tier: TierCrossRate}, nil
}

// crossRate returns USD/symbol over USD/account, both read at the time of
// the last USD/symbol bar.
func (c *Converter) crossRate(ctx context.Context, symbol string, asOf time.Time) (decimal.Decimal, error) {
	if c.quotes == nil {
		return decimal.Zero, errors.Newf(errors.ErrCodeCurrencyResolution,
			"no exchange rate for %s and no quote source configured", symbol)
	}

	from, to := asOf.Add(-c.window), asOf.Add(c.window)

	usdSym, at, err := c.lastClose(ctx, symbol, from, to, time.Time{})
	if err != nil {
		return decimal.Zero, err
	}

	usdAcc, _, err := c.lastClose(ctx, c.accountCurrency, from, to, at)
	if err != nil {
		return decimal.Zero, err
	}

	if usdAcc.IsZero() {
		return decimal.Zero, errors.Newf(errors.ErrCodeCurrencyResolution, "zero USD%s quote", c.accountCurrency)
	}

	return usdSym.Div(usdAcc), nil
}

// lastClose returns the last USD/currency close in [from, to]. When notAfter
// is set, the last close at or before it is used instead.
func (c *Converter) lastClose(ctx context.Context, currency string, from, to, notAfter time.Time) (decimal.Decimal, time.Time, error) {
	if currency == "USD" {
		return decimal.NewFromInt(1), notAfter, nil
	}

	quotes, err := c.quotes.MinuteCloses(ctx, "USD", currency, from, to)
	if err != nil {
		return decimal.Zero, time.Time{}, errors.Wrapf(errors.ErrCodeCurrencyResolution, err, "failed to fetch USD%s quotes", currency)
	}

	for i := len(quotes) - 1; i >= 0; i-- {
		q := quotes[i]
		if !notAfter.IsZero() && q.Time.After(notAfter) {
			continue
		}

		return decimal.NewFromFloat(q.Close), q.Time, nil
	}

	return decimal.Zero, time.Time{}, errors.Newf(errors.ErrCodeCurrencyResolution,
		"no USD%s quote between %s and %s", currency, from.Format(time.RFC3339), to.Format(time.RFC3339))
}
