package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rxtech-lab/argo-fx/internal/config"
	"github.com/rxtech-lab/argo-fx/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:    "argo-fx",
		Usage:   "Trade one forex pair against a brokerage gateway on a fixed decision grid",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the session engine until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the YAML configuration file",
						Value:   "config.yaml",
						Sources: cli.EnvVars("ARGOFX_CONFIG"),
					},
					&cli.StringFlag{
						Name:  "env-file",
						Usage: "Dotenv file read before the configuration",
						Value: ".env",
					},
				},
				Action: runAction,
			},
			{
				Name:  "backfill",
				Usage: "Download minute quotes, resample them and store them as a run folder",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "base",
						Aliases:  []string{"b"},
						Usage:    "Base currency, e.g. EUR",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "quote",
						Aliases:  []string{"q"},
						Usage:    "Quote currency, e.g. USD",
						Required: true,
					},
					&cli.TimestampFlag{
						Name:    "start",
						Aliases: []string{"s"},
						Usage:   "Start date in `YYYY-MM-DD` format",
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02"},
						},
						Required: true,
					},
					&cli.TimestampFlag{
						Name:    "end",
						Aliases: []string{"e"},
						Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
						Value:   time.Now(),
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02"},
						},
					},
					&cli.StringFlag{
						Name:    "frequency",
						Aliases: []string{"f"},
						Usage:   "Decision frequency the bars are resampled to",
						Value:   "15min",
					},
					&cli.IntFlag{
						Name:  "origin-hour",
						Usage: "UTC hour the resampled bins are anchored at",
						Value: 22,
					},
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Path to the data output directory",
						Value:   "data",
					},
					&cli.StringFlag{
						Name:    "api-key",
						Usage:   "Polygon API key",
						Sources: cli.EnvVars("POLYGON_API_KEY", "ARGOFX_QUOTES_POLYGON_API_KEY"),
					},
				},
				Action: backfillAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the configuration file",
				Action: func(_ context.Context, _ *cli.Command) error {
					schema, err := config.Schema()
					if err != nil {
						return err
					}

					fmt.Println(schema)

					return nil
				},
			},
			{
				Name:  "version",
				Usage: "Print the engine version",
				Action: func(_ context.Context, _ *cli.Command) error {
					fmt.Println(version.GetVersion())

					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
