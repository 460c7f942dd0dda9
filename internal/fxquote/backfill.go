package fxquote

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-fx/internal/marketdata"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// BackfillParams describes one backfill download.
type BackfillParams struct {
	Base      string        `validate:"required,len=3"`
	Quote     string        `validate:"required,len=3"`
	From      time.Time     `validate:"required"`
	To        time.Time     `validate:"required,gtfield=From"`
	Frequency time.Duration `validate:"required,min=1m"`
	// OriginHour and OriginMinute anchor the resampled bins, normally the
	// trading start.
	OriginHour   int `validate:"min=0,max=23"`
	OriginMinute int `validate:"min=0,max=59"`
}

// SeriesSink receives resampled bars.
type SeriesSink interface {
	MergeHistorical(bars []types.DecisionBar)
}

// BackfillOption configures Backfill.
type BackfillOption func(*backfillOptions)

type backfillOptions struct {
	progress io.Writer
}

// WithProgressWriter sends the progress bar to w. io.Discard hides it.
func WithProgressWriter(w io.Writer) BackfillOption {
	return func(o *backfillOptions) {
		o.progress = w
	}
}

// Backfill downloads minute bars day by day, resamples each day to the
// decision frequency and merges it into sink. Returns the number of
// resampled bars merged.
func (s *PolygonQuoteSource) Backfill(ctx context.Context, params BackfillParams, sink SeriesSink, opts ...BackfillOption) (int, error) {
	if err := validator.New().Struct(params); err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid backfill parameters", err)
	}

	options := backfillOptions{progress: os.Stderr}
	for _, opt := range opts {
		opt(&options)
	}

	days := int(params.To.Sub(params.From).Hours()/24) + 1
	ticker := Ticker(params.Base, params.Quote)

	bar := progressbar.NewOptions(days,
		progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", ticker)),
		progressbar.OptionSetWriter(options.progress),
		progressbar.OptionShowCount(),
	)

	merged := 0

	for day := params.From; day.Before(params.To); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return merged, err
		}

		end := day.AddDate(0, 0, 1)
		if end.After(params.To) {
			end = params.To
		}

		minutes, err := s.MinuteBars(ctx, params.Base, params.Quote, day, end.Add(-time.Millisecond))
		if err != nil {
			return merged, err
		}

		if len(minutes) > 0 {
			origin := marketdata.Origin(minutes[0].Time, params.OriginHour, params.OriginMinute)
			resampled := marketdata.Resample(minutes, params.Frequency, origin)
			sink.MergeHistorical(resampled)
			merged += len(resampled)
		}

		_ = bar.Add(1)
	}

	_ = bar.Finish()

	s.log.Info("Backfill finished",
		zap.String("ticker", ticker),
		zap.Time("from", params.From),
		zap.Time("to", params.To),
		zap.Int("bars", merged),
	)

	return merged, nil
}
