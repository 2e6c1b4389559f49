package pipeline

import (
	"context"
	"fmt"
	"slices"

	"github.com/rxtech-lab/argo-ml/internal/backtest"
	"github.com/rxtech-lab/argo-ml/internal/config"
	"github.com/rxtech-lab/argo-ml/internal/labeling"
	"github.com/rxtech-lab/argo-ml/internal/ml"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"go.uber.org/zap"
)

// BacktestReport is the outcome of one backtest_ml run.
type BacktestReport struct {
	RunID   string
	Model   *ml.TrainedModel
	Results []types.BacktestResult
	// Skipped maps each symbol left out of training to the reason.
	Skipped map[string]error
}

// BacktestJob trains a model over the pooled rows of every symbol and backtests it per symbol.
type BacktestJob struct {
	config     config.Config
	deps       Dependencies
	preparer   *Preparer
	trainer    ml.TrainerConfig
	onProgress OnProgress
}

func NewBacktestJob(c config.Config, deps Dependencies) (*BacktestJob, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}

	preparer, err := NewPreparer(c, deps.Logger)
	if err != nil {
		return nil, err
	}

	trainer := c.Trainer
	trainer.Name = ml.ModelName(trainer.Kind, preparer.Kinds())
	trainer.Features = preparer.Columns()

	return &BacktestJob{
		config:   c,
		deps:     deps,
		preparer: preparer,
		trainer:  trainer,
	}, nil
}

func (j *BacktestJob) SetOnProgress(fn OnProgress) {
	j.onProgress = fn
}

// ModelName is the name the trained model is stored under.
func (j *BacktestJob) ModelName() string {
	return j.trainer.Name
}

func (j *BacktestJob) Run(ctx context.Context) (BacktestReport, error) {
	report := BacktestReport{Skipped: map[string]error{}}

	run, err := j.deps.track(ctx, ProcessBacktest, func(_ types.Run) error {
		return j.run(ctx, &report)
	})
	report.RunID = run.ID

	return report, err
}

func (j *BacktestJob) run(ctx context.Context, report *BacktestReport) error {
	log := j.deps.Logger

	symbols, err := j.deps.symbols(ctx, j.config.Pipeline.Symbols)
	if err != nil {
		return err
	}

	req, err := request(j.config.Pipeline, symbols, j.deps.Now())
	if err != nil {
		return err
	}

	fetched, groups, failed, err := j.deps.fetch(ctx, ProcessBacktest, req)
	if err != nil {
		return err
	}

	for symbol, err := range failed {
		report.Skipped[symbol] = err
	}

	if filter := NewUniverseFilter(j.config.Universe); filter.IsSome() {
		kept := filter.Unwrap().Apply(fetched, groups)
		log.Info("Applied universe filter", zap.Int("symbols", len(fetched)), zap.Int("kept", len(kept)))

		for _, symbol := range fetched {
			if !slices.Contains(kept, symbol) {
				report.Skipped[symbol] = errors.Newf(errors.ErrCodeNoDataFound, "%s is outside the trading universe", symbol)
			}
		}

		fetched = kept
	}

	prepared, err := j.prepare(ctx, fetched, groups, report)
	if err != nil {
		return err
	}

	var pooled []types.FeatureRow
	for _, p := range prepared {
		pooled = append(pooled, p.Labeled...)
	}

	if len(pooled) == 0 {
		return errors.Newf(errors.ErrCodeEmptyTrainingSet, "no labeled rows across %d symbols", len(symbols))
	}

	model, err := j.train(ctx, pooled)
	if err != nil {
		return err
	}

	report.Model = model

	if err := j.persist(ctx, model, prepared, pooled); err != nil {
		return err
	}

	results, err := j.backtest(ctx, model, prepared)
	if err != nil {
		return err
	}

	report.Results = results

	if path := j.config.Pipeline.ResultsPath; path != "" {
		if err := backtest.WriteResults(path, results); err != nil {
			return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to write backtest results", err)
		}

		log.Info("Wrote backtest results", zap.String("path", path))
	}

	return nil
}

// prepare featurizes and labels each symbol. Data and external failures skip the symbol.
func (j *BacktestJob) prepare(ctx context.Context, symbols []string, groups map[string][]types.PriceBar,
	report *BacktestReport,
) ([]Prepared, error) {
	defer j.deps.Metrics.Time("prepare", j.deps.Now())

	prepared := make([]Prepared, 0, len(symbols))

	for i, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := j.preparer.Prepare(symbol, groups[symbol])
		if err != nil {
			if errors.IsConfigurationError(err) {
				return nil, err
			}

			j.deps.Logger.Warn("Skipping symbol", zap.String("symbol", symbol), zap.Error(err))
			j.deps.Metrics.RecordSymbolFailure(ProcessBacktest, err)
			report.Skipped[symbol] = err

			continue
		}

		prepared = append(prepared, p)
		j.deps.Metrics.RecordSymbol(ProcessBacktest)
		progress(j.onProgress, i+1, len(symbols), fmt.Sprintf("prepared %s", symbol))
	}

	return prepared, nil
}

// train retrains the stored model of the same name when there is one, otherwise fits version 1.
func (j *BacktestJob) train(ctx context.Context, rows []types.FeatureRow) (*ml.TrainedModel, error) {
	defer j.deps.Metrics.Time("train", j.deps.Now())

	trainer, err := ml.NewTrainer(j.trainer, j.deps.Logger)
	if err != nil {
		return nil, err
	}

	stored, err := j.deps.Repository.GetModel(ctx, j.trainer.Name)
	if err != nil {
		return nil, err
	}

	var model *ml.TrainedModel

	if stored.IsSome() {
		previous, err := ml.Decode(stored.Unwrap())
		if err != nil {
			return nil, err
		}

		if err := trainer.Load(previous); err != nil {
			return nil, err
		}

		model, err = trainer.Retrain(rows)
		if err != nil {
			return nil, err
		}
	} else {
		model, err = trainer.Train(rows)
		if err != nil {
			return nil, err
		}
	}

	j.deps.Logger.Info("Trained model",
		zap.String("model", model.Name),
		zap.Int("version", model.Version),
		zap.Float64("accuracy", model.Accuracy),
		zap.Int("train_rows", model.TrainRows),
		zap.Int("test_rows", model.TestRows),
	)
	j.deps.Metrics.RecordModelAccuracy(model.Name, model.Accuracy)

	return model, nil
}

// persist stores the model, then its held-out predictions, the cleaned prices and the labels in
// chunks.
func (j *BacktestJob) persist(ctx context.Context, model *ml.TrainedModel, prepared []Prepared,
	pooled []types.FeatureRow,
) error {
	defer j.deps.Metrics.Time("persist", j.deps.Now())

	record, err := ml.Encode(model)
	if err != nil {
		return err
	}

	if err := j.deps.Repository.SaveModel(ctx, record); err != nil {
		return err
	}

	size := j.config.Pipeline.ChunkSize

	err = Chunk(model.Predictions, size, func(chunk []types.Prediction) error {
		return j.deps.Repository.SavePredictions(ctx, chunk)
	})
	if err != nil {
		return err
	}

	j.deps.Metrics.RecordRows("predictions", len(model.Predictions))

	var bars []types.PriceBar
	for _, p := range prepared {
		bars = append(bars, p.Bars...)
	}

	err = Chunk(bars, size, func(chunk []types.PriceBar) error {
		return j.deps.Repository.SavePrices(ctx, chunk)
	})
	if err != nil {
		return err
	}

	j.deps.Metrics.RecordRows("prices", len(bars))

	labels := labeling.Records(pooled)

	err = Chunk(labels, size, func(chunk []types.LabelRecord) error {
		return j.deps.Repository.SaveLabels(ctx, chunk)
	})
	if err != nil {
		return err
	}

	j.deps.Metrics.RecordRows("labels", len(labels))

	return nil
}

// backtest replays the model on each symbol's labeled rows. A result that cannot be stored is
// logged and still reported.
func (j *BacktestJob) backtest(ctx context.Context, model *ml.TrainedModel, prepared []Prepared) ([]types.BacktestResult, error) {
	defer j.deps.Metrics.Time("backtest", j.deps.Now())

	backtester, err := backtest.NewBacktester(j.config.Backtest, j.deps.Logger)
	if err != nil {
		return nil, err
	}

	signal := backtest.ModelSignal{Model: model}

	for i, p := range prepared {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if len(p.Labeled) == 0 {
			j.deps.Logger.Warn("No labeled rows to backtest", zap.String("symbol", p.Symbol))

			continue
		}

		result, err := backtester.Run(p.Symbol, p.Labeled, signal)
		if err != nil {
			return nil, err
		}

		j.deps.Metrics.RecordBacktest(p.Symbol, result.TotalProfit, result.TotalTrades)

		if err := j.deps.Repository.SaveBacktestResult(ctx, result); err != nil {
			if !errors.IsExternalServiceError(err) {
				return nil, err
			}

			j.deps.Logger.Warn("Failed to save backtest result", zap.String("symbol", p.Symbol), zap.Error(err))
			j.deps.Metrics.RecordSymbolFailure(ProcessBacktest, err)
		}

		progress(j.onProgress, i+1, len(prepared), fmt.Sprintf("backtested %s", p.Symbol))
	}

	return backtester.Results(), nil
}
