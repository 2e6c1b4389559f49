package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "argo-ml",
		Usage: "Train, backtest and trade indicator-based equity classifiers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration `FILE`. ARGO_ML_ environment variables override it.",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error). Overrides the configured level.",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "download",
				Usage: "Download daily bars and store them with the ticker universe",
				Flags: []cli.Flag{
					symbolsFlag(),
					daysBackFlag(),
					&cli.StringFlag{
						Name:    "parquet",
						Aliases: []string{"o"},
						Usage:   "Also write the downloaded bars to this parquet `FILE`",
					},
				},
				Action: downloadAction,
			},
			{
				Name:  "backtest",
				Usage: "Train the configured model over the symbol universe and backtest it per symbol",
				Flags: []cli.Flag{
					symbolsFlag(),
					daysBackFlag(),
					&cli.StringFlag{
						Name:    "results",
						Aliases: []string{"r"},
						Usage:   "Write backtest stats as YAML to this `FILE`",
					},
				},
				Action: backtestAction,
			},
			{
				Name:  "trade",
				Usage: "Run the trader bot once against the paper broker",
				Flags: []cli.Flag{
					symbolsFlag(),
					daysBackFlag(),
				},
				Action: tradeAction,
			},
			{
				Name:  "schema",
				Usage: "Write the configuration JSON schema and a sample configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Output `DIR`",
						Value: "config",
					},
				},
				Action: schemaAction,
			},
		},
	}
}

func symbolsFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "symbols",
		Aliases: []string{"s"},
		Usage:   "Symbols to process. Defaults to the configured list, then the stored ticker universe.",
	}
}

func daysBackFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "days-back",
		Aliases: []string{"d"},
		Usage:   "Days of history ending today",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
