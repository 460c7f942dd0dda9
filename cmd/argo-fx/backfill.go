package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rxtech-lab/argo-fx/internal/fxquote"
	"github.com/rxtech-lab/argo-fx/internal/ledger"
	"github.com/rxtech-lab/argo-fx/internal/logger"
	"github.com/rxtech-lab/argo-fx/internal/scheduler"
	"github.com/rxtech-lab/argo-fx/internal/trading/engine/engine_v1/writers"
	"github.com/urfave/cli/v3"
)

// backfillAction downloads minute quotes for a pair, resamples them to the
// decision grid and writes them as parquet under <data>/backfill/<pair>.
func backfillAction(ctx context.Context, cmd *cli.Command) error {
	base := strings.ToUpper(cmd.String("base"))
	quote := strings.ToUpper(cmd.String("quote"))
	start := cmd.Timestamp("start")
	end := cmd.Timestamp("end")

	apiKey := cmd.String("api-key")
	if apiKey == "" {
		return fmt.Errorf("--api-key or POLYGON_API_KEY is required")
	}

	freq, err := scheduler.ParseFrequency(cmd.String("frequency"))
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	defer func() { _ = log.Sync() }()

	source, err := fxquote.NewPolygonQuoteSource(apiKey, log.Component("quotes"))
	if err != nil {
		return fmt.Errorf("failed to create quote source: %w", err)
	}

	series := ledger.New()

	n, err := source.Backfill(ctx, fxquote.BackfillParams{
		Base:         base,
		Quote:        quote,
		From:         start,
		To:           end,
		Frequency:    freq.Duration(),
		OriginHour:   int(cmd.Int("origin-hour")),
		OriginMinute: 0,
	}, series)
	if err != nil {
		return err
	}

	dir := filepath.Join(cmd.String("data"), "backfill", base+quote)

	writer := writers.NewLedgerWriter(dir)
	if err := writer.Initialize(); err != nil {
		return err
	}

	defer func() { _ = writer.Close() }()

	if err := writer.WriteSnapshot(series.Snapshot(), ledger.WeekTag{MarketOpen: start, MarketClose: end}); err != nil {
		return err
	}

	if err := writer.Flush(); err != nil {
		return err
	}

	fmt.Printf("Stored %d %s bars of %s%s in %s\n", n, freq, base, quote, writers.ParquetPath(dir, writers.TableHistorical))

	return nil
}
