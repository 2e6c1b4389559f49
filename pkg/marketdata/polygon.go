package marketdata

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-ml/internal/logger"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"go.uber.org/zap"
)

const aggsPageLimit = 50000

// OnDownloadProgress is called after each symbol.
type OnDownloadProgress = func(current float64, total float64, message string)

// AggsFetcher returns every aggregate for one ticker and range.
type AggsFetcher interface {
	FetchAggs(ctx context.Context, params *models.ListAggsParams) ([]models.Agg, error)
}

type polygonFetcher struct {
	client *polygon.Client
}

func (f polygonFetcher) FetchAggs(ctx context.Context, params *models.ListAggsParams) ([]models.Agg, error) {
	iter := f.client.ListAggs(ctx, params)

	var aggs []models.Agg
	for iter.Next() {
		aggs = append(aggs, iter.Item())
	}

	if iter.Err() != nil {
		return nil, iter.Err()
	}

	return aggs, nil
}

// PolygonConfig configures the Polygon source.
type PolygonConfig struct {
	APIKey string `yaml:"api_key" json:"api_key" jsonschema:"title=Polygon API key"`
	// MaxRetries is the number of retries per symbol after the first attempt.
	MaxRetries uint64 `yaml:"max_retries" json:"max_retries" jsonschema:"title=Retries per symbol,default=3"`
	// InitialInterval is the first retry delay; later delays grow exponentially.
	InitialInterval time.Duration `yaml:"initial_interval" json:"initial_interval" jsonschema:"title=First retry delay"`
}

func DefaultPolygonConfig() PolygonConfig {
	return PolygonConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
	}
}

// PolygonSource reads split-adjusted aggregates from Polygon, carrying VWAP and transaction counts.
type PolygonSource struct {
	fetcher    AggsFetcher
	config     PolygonConfig
	logger     *logger.Logger
	onProgress OnDownloadProgress
}

var _ PriceSource = (*PolygonSource)(nil)

func NewPolygonSource(config PolygonConfig, log *logger.Logger) (*PolygonSource, error) {
	if config.APIKey == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "polygon api key is required")
	}

	return NewPolygonSourceWithFetcher(polygonFetcher{client: polygon.New(config.APIKey)}, config, log), nil
}

// NewPolygonSourceWithFetcher uses fetcher in place of the REST client.
func NewPolygonSourceWithFetcher(fetcher AggsFetcher, config PolygonConfig, log *logger.Logger) *PolygonSource {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &PolygonSource{
		fetcher: fetcher,
		config:  config,
		logger:  log,
	}
}

func (s *PolygonSource) SetOnProgress(onProgress OnDownloadProgress) {
	s.onProgress = onProgress
}

func (s *PolygonSource) GetPrices(ctx context.Context, request PriceRequest) (PriceResult, error) {
	if err := request.Validate(); err != nil {
		return PriceResult{}, err
	}

	timespan := request.Timespan
	if timespan == "" {
		timespan = TimespanOneDay
	}

	end := request.End
	if end.IsZero() {
		end = time.Now().UTC()
	}

	result := PriceResult{Failures: make(map[string]error)}

	for i, symbol := range request.Symbols {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		//nolint:exhaustruct // third-party struct with many optional fields
		params := models.ListAggsParams{
			Ticker:     symbol,
			Multiplier: timespan.Multiplier(),
			Timespan:   timespan.Timespan(),
			From:       models.Millis(request.Start),
			To:         models.Millis(end),
		}.WithAdjusted(true).WithLimit(aggsPageLimit)

		aggs, err := s.fetch(ctx, params)
		if err != nil {
			s.logger.Warn("Failed to fetch prices", zap.String("symbol", symbol), zap.Error(err))
			result.Failures[symbol] = errors.Wrapf(errors.ErrCodePriceFetchFailed, err, "failed to fetch prices for %s", symbol)
		} else {
			result.Bars = append(result.Bars, barsFromAggs(symbol, aggs)...)
		}

		if s.onProgress != nil {
			s.onProgress(float64(i+1), float64(len(request.Symbols)), "Downloading "+symbol)
		}
	}

	return result, nil
}

// fetch retries with exponential backoff until MaxRetries is exhausted or ctx is done.
func (s *PolygonSource) fetch(ctx context.Context, params *models.ListAggsParams) ([]models.Agg, error) {
	policy := backoff.NewExponentialBackOff()
	if s.config.InitialInterval > 0 {
		policy.InitialInterval = s.config.InitialInterval
	}

	var aggs []models.Agg

	attempt := 0
	operation := func() error {
		attempt++

		var err error

		aggs, err = s.fetcher.FetchAggs(ctx, params)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		if err != nil {
			s.logger.Debug("Aggregate request failed", zap.String("symbol", params.Ticker), zap.Int("attempt", attempt), zap.Error(err))
		}

		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, s.config.MaxRetries), ctx))
	if err != nil {
		return nil, err
	}

	return aggs, nil
}

func barsFromAggs(symbol string, aggs []models.Agg) []types.PriceBar {
	bars := make([]types.PriceBar, len(aggs))
	for i, agg := range aggs {
		bars[i] = types.PriceBar{
			Symbol:     symbol,
			Timestamp:  time.Time(agg.Timestamp).UTC(),
			Open:       agg.Open,
			High:       agg.High,
			Low:        agg.Low,
			Close:      agg.Close,
			Volume:     agg.Volume,
			VWAP:       agg.VWAP,
			TradeCount: float64(agg.Transactions),
		}
	}

	return bars
}
