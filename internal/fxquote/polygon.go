// Package fxquote reads FX minute bars from Polygon. The session engine uses
// it as the last-resort source of USD crosses when the gateway reports no
// exchange rate, and the backfill command uses it to seed the historical
// series.
package fxquote

import (
	"context"
	"fmt"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-fx/internal/logger"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"go.uber.org/zap"
)

// AggsIterator walks the pages of an aggregates response.
type AggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// AggsClient lists aggregates. *polygon.Client satisfies it through restClient.
type AggsClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) AggsIterator
}

type restClient struct {
	client *polygon.Client
}

func (r restClient) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) AggsIterator {
	return r.client.ListAggs(ctx, params, options...)
}

// PolygonQuoteSource serves minute bars for currency pairs.
type PolygonQuoteSource struct {
	client AggsClient
	log    *logger.Logger
}

// NewPolygonQuoteSource creates a source authenticated with apiKey.
func NewPolygonQuoteSource(apiKey string, log *logger.Logger) (*PolygonQuoteSource, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "polygon api key is required")
	}

	return NewPolygonQuoteSourceWithClient(restClient{client: polygon.New(apiKey)}, log), nil
}

// NewPolygonQuoteSourceWithClient creates a source on top of client.
func NewPolygonQuoteSourceWithClient(client AggsClient, log *logger.Logger) *PolygonQuoteSource {
	return &PolygonQuoteSource{
		client: client,
		log:    log,
	}
}

// Ticker is the Polygon ticker of base priced in quote.
func Ticker(base, quote string) string {
	return fmt.Sprintf("C:%s%s", strings.ToUpper(base), strings.ToUpper(quote))
}

// MinuteBars returns the one-minute bars of base/quote in [from, to], ascending.
func (s *PolygonQuoteSource) MinuteBars(ctx context.Context, base, quote string, from, to time.Time) ([]types.Bar, error) {
	ticker := Ticker(base, quote)

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: 1,
		Timespan:   models.Minute,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithOrder(models.Asc).WithLimit(50000)

	iter := s.client.ListAggs(ctx, params)

	var bars []types.Bar

	for iter.Next() {
		agg := iter.Item()
		bars = append(bars, types.Bar{
			Time:  time.Time(agg.Timestamp).UTC(),
			Open:  agg.Open,
			High:  agg.High,
			Low:   agg.Low,
			Close: agg.Close,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to list aggregates for %s", ticker)
	}

	s.log.Debug("Fetched minute bars",
		zap.String("ticker", ticker),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("bars", len(bars)),
	)

	return bars, nil
}

// MinuteCloses returns the closes of base/quote in [from, to], ascending.
func (s *PolygonQuoteSource) MinuteCloses(ctx context.Context, base, quote string, from, to time.Time) ([]types.Quote, error) {
	bars, err := s.MinuteBars(ctx, base, quote, from, to)
	if err != nil {
		return nil, err
	}

	quotes := make([]types.Quote, 0, len(bars))
	for _, b := range bars {
		quotes = append(quotes, types.Quote{Time: b.Time, Close: b.Close})
	}

	return quotes, nil
}
