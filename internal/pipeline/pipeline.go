// Package pipeline runs the batch jobs: downloading prices, training and backtesting a model over
// a symbol universe, and driving the trader bot against a broker.
//
// Each job is bracketed by a run record in the repository. A job fails as a whole on
// configuration errors and on failures of shared resources such as the model store; a failure
// that belongs to a single symbol is logged, counted and the symbol is skipped.
package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ml/internal/broker"
	"github.com/rxtech-lab/argo-ml/internal/cleaner"
	"github.com/rxtech-lab/argo-ml/internal/config"
	"github.com/rxtech-lab/argo-ml/internal/features"
	"github.com/rxtech-lab/argo-ml/internal/indicator"
	"github.com/rxtech-lab/argo-ml/internal/labeling"
	"github.com/rxtech-lab/argo-ml/internal/logger"
	"github.com/rxtech-lab/argo-ml/internal/metrics"
	"github.com/rxtech-lab/argo-ml/internal/storage"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"github.com/rxtech-lab/argo-ml/pkg/marketdata"
	"go.uber.org/zap"
)

const (
	ProcessDownload = "download_stock_data"
	ProcessBacktest = "backtest_ml"
	ProcessTrader   = "run_trader_bot"
)

// DefaultDaysBack is the range used when no day count is given.
const DefaultDaysBack = 30

// OnProgress is called as a job works through its symbols.
type OnProgress func(current int, total int, message string)

// Dependencies are the external services a job talks to. Broker is only needed by the trader job.
type Dependencies struct {
	Source     marketdata.PriceSource
	Repository storage.Repository
	Broker     broker.Broker
	Metrics    *metrics.Recorder
	Logger     *logger.Logger
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

func (d Dependencies) withDefaults() (Dependencies, error) {
	if d.Source == nil {
		return d, errors.New(errors.ErrCodeMissingParameter, "price source is required")
	}

	if d.Repository == nil {
		return d, errors.New(errors.ErrCodeMissingParameter, "repository is required")
	}

	if d.Metrics == nil {
		d.Metrics = metrics.NewRecorder(metrics.Config{})
	}

	if d.Logger == nil {
		d.Logger = logger.NewNopLogger()
	}

	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}

	return d, nil
}

// track brackets fn with StartRun and StopRun. The run is stored as failed with the error text
// when fn fails. Metrics are pushed once the run is stopped.
func (d Dependencies) track(ctx context.Context, process string, fn func(run types.Run) error) (types.Run, error) {
	run, err := d.Repository.StartRun(ctx, process)
	if err != nil {
		return run, err
	}

	d.Logger.Info("Run started", zap.String("process", process), zap.String("run_id", run.ID))

	runErr := fn(run)

	run.StoppedAt = d.Now()
	run.Status = types.RunStatusSuccess
	run.Message = "completed"

	if runErr != nil {
		run.Status = types.RunStatusFailed
		run.Message = runErr.Error()
	}

	// the run is recorded even when ctx was cancelled
	if err := d.Repository.StopRun(context.WithoutCancel(ctx), run); err != nil {
		d.Logger.Error("Failed to stop run", zap.String("run_id", run.ID), zap.Error(err))

		if runErr == nil {
			runErr = err
		}
	}

	d.Metrics.RecordRun(process, string(run.Status))

	if err := d.Metrics.Push(); err != nil {
		d.Logger.Warn("Failed to push metrics", zap.Error(err))
	}

	d.Logger.Info("Run stopped",
		zap.String("process", process),
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
	)

	return run, runErr
}

// symbols returns the configured symbols, or the repository's ticker store when none are set.
func (d Dependencies) symbols(ctx context.Context, configured []string) ([]string, error) {
	if len(configured) > 0 {
		return configured, nil
	}

	stored, err := d.Repository.GetSymbols(ctx)
	if err != nil {
		return nil, err
	}

	if len(stored) == 0 {
		return nil, errors.New(errors.ErrCodeMissingParameter, "no symbols configured and the ticker store is empty")
	}

	return stored, nil
}

// fetch loads bars for symbols and groups them. Symbols the source could not serve are logged,
// counted and returned in failed.
func (d Dependencies) fetch(ctx context.Context, process string, request marketdata.PriceRequest) (
	[]string, map[string][]types.PriceBar, map[string]error, error,
) {
	defer d.Metrics.Time("fetch", d.Now())

	result, err := d.Source.GetPrices(ctx, request)
	if err != nil {
		return nil, nil, nil, err
	}

	failed := make(map[string]error, len(result.Failures))

	for _, symbol := range request.Symbols {
		if err, ok := result.Failures[symbol]; ok {
			d.Logger.Warn("Skipping symbol, price fetch failed", zap.String("symbol", symbol), zap.Error(err))
			d.Metrics.RecordSymbolFailure(process, err)
			failed[symbol] = err
		}
	}

	symbols, groups := types.GroupBySymbol(result.Bars)
	d.Metrics.RecordRows("prices_fetched", len(result.Bars))

	return symbols, groups, failed, nil
}

// Chunk calls fn with consecutive slices of at most size items. It stops at the first error.
func Chunk[T any](items []T, size int, fn func(chunk []T) error) error {
	if size <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "chunk size must be positive, got %d", size)
	}

	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		if err := fn(items[start:end]); err != nil {
			return err
		}
	}

	return nil
}

// DateRange returns [now - daysBack days, now]. A non-positive daysBack uses DefaultDaysBack.
func DateRange(now time.Time, daysBack int) (time.Time, time.Time) {
	if daysBack <= 0 {
		daysBack = DefaultDaysBack
	}

	return now.AddDate(0, 0, -daysBack), now
}

// UniverseFilter keeps liquid symbols trading inside a price band.
type UniverseFilter struct {
	MinVolume float64
	MinPrice  float64
	MaxPrice  float64
}

// NewUniverseFilter returns the configured filter, or None when it is disabled.
func NewUniverseFilter(c config.UniverseConfig) optional.Option[UniverseFilter] {
	if !c.Enabled {
		return optional.None[UniverseFilter]()
	}

	return optional.Some(UniverseFilter{
		MinVolume: c.MinVolume,
		MinPrice:  c.MinPrice,
		MaxPrice:  c.MaxPrice,
	})
}

// Keep reports whether the mean volume reaches MinVolume and the last close lies in
// [MinPrice, MaxPrice]. Missing values are ignored; a series without any is dropped.
func (f UniverseFilter) Keep(bars []types.PriceBar) bool {
	var (
		volume float64
		n      int
	)

	lastClose := math.NaN()

	for _, bar := range bars {
		if !math.IsNaN(bar.Volume) {
			volume += bar.Volume
			n++
		}

		if !math.IsNaN(bar.Close) {
			lastClose = bar.Close
		}
	}

	if n == 0 || math.IsNaN(lastClose) {
		return false
	}

	return volume/float64(n) >= f.MinVolume && lastClose >= f.MinPrice && lastClose <= f.MaxPrice
}

// Apply returns the symbols whose bars pass Keep, in their original order.
func (f UniverseFilter) Apply(symbols []string, groups map[string][]types.PriceBar) []string {
	kept := make([]string, 0, len(symbols))

	for _, symbol := range symbols {
		if f.Keep(groups[symbol]) {
			kept = append(kept, symbol)
		}
	}

	return kept
}

// Prepared is one symbol after cleaning, featurizing and labeling.
type Prepared struct {
	Symbol string
	// Bars are the cleaned bars.
	Bars []types.PriceBar
	// Rows holds one feature row per cleaned bar.
	Rows []types.FeatureRow
	// Labeled are the rows that received a label.
	Labeled []types.FeatureRow
}

// Preparer turns a symbol's raw bars into feature rows.
type Preparer struct {
	cleaner *cleaner.Cleaner
	builder *features.Builder
	labeler *labeling.Generator
}

func NewPreparer(c config.Config, log *logger.Logger) (*Preparer, error) {
	mode, err := cleaner.ParseMode(c.Cleaner.Mode)
	if err != nil {
		return nil, err
	}

	clean, err := cleaner.NewCleaner(mode, log)
	if err != nil {
		return nil, err
	}

	builder, err := features.NewBuilderFromNames(c.Pipeline.Features, c.Indicators)
	if err != nil {
		return nil, err
	}

	labeler, err := labeling.NewGenerator(c.Labeling)
	if err != nil {
		return nil, err
	}

	return &Preparer{cleaner: clean, builder: builder, labeler: labeler}, nil
}

// Columns are the model input columns.
func (p *Preparer) Columns() []string {
	return p.builder.Columns()
}

func (p *Preparer) Kinds() []indicator.IndicatorKind {
	return p.builder.Kinds()
}

// Features cleans and featurizes one symbol without labeling it.
func (p *Preparer) Features(symbol string, bars []types.PriceBar) ([]types.PriceBar, []types.FeatureRow, error) {
	cleaned, _ := p.cleaner.Clean(bars)
	if len(cleaned) == 0 {
		return nil, nil, errors.Newf(errors.ErrCodeEmptySeries, "no complete bars for %s", symbol)
	}

	rows, err := p.builder.Build(cleaned)
	if err != nil {
		return nil, nil, err
	}

	return cleaned, rows, nil
}

// Prepare cleans, featurizes and labels one symbol.
func (p *Preparer) Prepare(symbol string, bars []types.PriceBar) (Prepared, error) {
	cleaned, rows, err := p.Features(symbol, bars)
	if err != nil {
		return Prepared{}, err
	}

	return Prepared{
		Symbol:  symbol,
		Bars:    cleaned,
		Rows:    rows,
		Labeled: p.labeler.Generate(rows),
	}, nil
}

func request(c config.PipelineConfig, symbols []string, now time.Time) (marketdata.PriceRequest, error) {
	timespan, err := marketdata.ParseTimespan(c.Timespan)
	if err != nil {
		return marketdata.PriceRequest{}, err
	}

	start, end := DateRange(now, c.DaysBack)
	if c.StartDate.IsSome() || c.EndDate.IsSome() {
		start, end = c.DateRange(now)
	}

	return marketdata.PriceRequest{
		Symbols:  symbols,
		Timespan: timespan,
		Start:    start,
		End:      end,
	}, nil
}

func progress(fn OnProgress, current, total int, message string) {
	if fn != nil {
		fn(current, total, message)
	}
}
