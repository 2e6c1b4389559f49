package main

import (
	"context"
	"fmt"

	"github.com/rxtech-lab/argo-ml/internal/broker"
	"github.com/rxtech-lab/argo-ml/internal/config"
	"github.com/rxtech-lab/argo-ml/internal/logger"
	"github.com/rxtech-lab/argo-ml/internal/metrics"
	"github.com/rxtech-lab/argo-ml/internal/pipeline"
	"github.com/rxtech-lab/argo-ml/internal/storage"
	"github.com/rxtech-lab/argo-ml/internal/storage/duckdb"
	"github.com/rxtech-lab/argo-ml/internal/storage/postgres"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"github.com/rxtech-lab/argo-ml/pkg/marketdata"
	"github.com/rxtech-lab/argo-ml/pkg/marketdata/writer"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// app holds what every job command needs.
type app struct {
	config  config.Config
	logger  *logger.Logger
	repo    storage.Repository
	source  marketdata.PriceSource
	metrics *metrics.Recorder
}

// newApp loads the configuration, applies flag overrides and opens the repository and source.
func newApp(ctx context.Context, cmd *cli.Command) (*app, error) {
	c, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if level := cmd.String("log-level"); level != "" {
		c.LogLevel = level
	}

	if symbols := cmd.StringSlice("symbols"); len(symbols) > 0 {
		c.Pipeline.Symbols = symbols
	}

	if days := int(cmd.Int("days-back")); days > 0 {
		c.Pipeline.DaysBack = days
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.NewLoggerWithLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid log level", err)
	}

	repo, err := openRepository(ctx, c.Storage, log)
	if err != nil {
		return nil, err
	}

	source, err := newSource(c.Provider, log)
	if err != nil {
		_ = repo.Close()

		return nil, err
	}

	return &app{
		config:  c,
		logger:  log,
		repo:    repo,
		source:  source,
		metrics: metrics.NewRecorder(c.Metrics),
	}, nil
}

func (a *app) deps() pipeline.Dependencies {
	return pipeline.Dependencies{
		Source:     a.source,
		Repository: a.repo,
		Metrics:    a.metrics,
		Logger:     a.logger,
	}
}

func (a *app) close() {
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("Failed to close repository", zap.Error(err))
	}

	_ = a.logger.Sync()
}

func openRepository(ctx context.Context, c config.StorageConfig, log *logger.Logger) (storage.Repository, error) {
	switch c.Driver {
	case config.StoragePostgres:
		repo, err := postgres.NewRepository(c.DSN, log)
		if err != nil {
			return nil, err
		}

		if err := repo.Migrate(ctx); err != nil {
			_ = repo.Close()

			return nil, err
		}

		return repo, nil
	case config.StorageDuckDB, "":
		return duckdb.NewRepository(c.Path, log)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidStorage, "unknown storage driver %q", c.Driver)
	}
}

func newSource(c config.ProviderConfig, log *logger.Logger) (marketdata.PriceSource, error) {
	switch c.Kind {
	case config.ProviderParquet:
		return marketdata.NewParquetSource(c.Parquet, log), nil
	case config.ProviderPolygon, "":
		source, err := marketdata.NewPolygonSource(c.Polygon, log)
		if err != nil {
			return nil, err
		}

		bar := progressbar.NewOptions(-1, progressbar.OptionSetDescription("Fetching prices"), progressbar.OptionShowCount())
		source.SetOnProgress(func(current, total float64, message string) {
			bar.ChangeMax(int(total))
			bar.Describe(message)
			_ = bar.Set(int(current))

			if current >= total {
				_ = bar.Finish()
			}
		})

		return source, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown price source %q", c.Kind)
	}
}

// progress renders pipeline progress as a terminal bar created on the first report.
func progress(description string) pipeline.OnProgress {
	var bar *progressbar.ProgressBar

	return func(current, total int, message string) {
		if bar == nil {
			bar = progressbar.NewOptions(total, progressbar.OptionSetDescription(description), progressbar.OptionShowCount())
		}

		bar.Describe(fmt.Sprintf("%s: %s", description, message))
		_ = bar.Set(current)

		if current >= total {
			_ = bar.Finish()
		}
	}
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	job, err := pipeline.NewDownloadJob(a.config, a.deps())
	if err != nil {
		return err
	}

	job.SetOnProgress(progress("Saving"))

	if path := cmd.String("parquet"); path != "" {
		job.SetWriter(writer.NewParquetWriter(path))
	}

	report, err := job.Run(ctx)
	if err != nil {
		return err
	}

	a.logger.Info("Download completed",
		zap.String("run_id", report.RunID),
		zap.Int("symbols", len(report.Symbols)),
		zap.Int("bars", report.Bars),
		zap.Int("failed", len(report.Failed)),
	)

	return nil
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if path := cmd.String("results"); path != "" {
		a.config.Pipeline.ResultsPath = path
	}

	job, err := pipeline.NewBacktestJob(a.config, a.deps())
	if err != nil {
		return err
	}

	job.SetOnProgress(progress("Backtest"))

	report, err := job.Run(ctx)
	if err != nil {
		return err
	}

	for _, result := range report.Results {
		fmt.Printf("%-8s trades=%-4d total=%10.4f average=%10.4f void=%d\n",
			result.Symbol, result.TotalTrades, result.TotalProfit, result.AverageProfit, result.VoidTrades)
	}

	a.logger.Info("Backtest completed",
		zap.String("run_id", report.RunID),
		zap.String("model", report.Model.Name),
		zap.Int("version", report.Model.Version),
		zap.Float64("accuracy", report.Model.Accuracy),
		zap.Int("skipped", len(report.Skipped)),
	)

	return nil
}

func tradeAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	timespan, err := marketdata.ParseTimespan(a.config.Pipeline.Timespan)
	if err != nil {
		return err
	}

	paper, err := broker.NewPaperBroker(a.config.Broker, broker.NewSourceQuoter(a.source, timespan), a.logger)
	if err != nil {
		return err
	}

	deps := a.deps()
	deps.Broker = paper

	job, err := pipeline.NewTraderJob(a.config, deps)
	if err != nil {
		return err
	}

	decision, err := job.Run(ctx)
	if err != nil {
		return err
	}

	if decision.Order.IsSome() {
		order := decision.Order.Unwrap()
		fmt.Printf("%s %s qty=%.0f price=%.4f stop=%.4f\n", order.Side, order.Symbol, order.Quantity, order.Price, order.StopPrice)
	} else {
		fmt.Printf("no order (symbol=%q prediction=%q)\n", decision.Symbol, decision.Prediction)
	}

	a.logger.Info("Trader run completed", zap.String("run_id", decision.RunID), zap.String("cash", paper.Cash().String()))

	return nil
}
