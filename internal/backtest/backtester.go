// Package backtest replays a buy signal over one symbol's rows with a fixed holding period.
package backtest

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-ml/internal/logger"
	"github.com/rxtech-lab/argo-ml/internal/ml"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config controls the replay.
type Config struct {
	// HoldingPeriod is the number of rows a position is held before it is sold.
	HoldingPeriod int `yaml:"holding_period" json:"holding_period" jsonschema:"title=Holding period,description=Rows between buy and sell,default=5" validate:"gte=1"`
}

func DefaultConfig() Config {
	return Config{HoldingPeriod: 5}
}

func (c Config) Validate() error {
	if c.HoldingPeriod < 1 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "holding period must be at least 1, got %d", c.HoldingPeriod)
	}

	return nil
}

// Signal decides whether a FLAT replay opens a position on a row.
type Signal interface {
	Fires(row types.FeatureRow) bool
}

// LabelSignal fires on rows whose precomputed label is buy.
type LabelSignal struct{}

func (LabelSignal) Fires(row types.FeatureRow) bool {
	return row.Label == types.LabelBuy
}

// ModelSignal fires when the model predicts buy. Rows with missing features never fire.
// Without a model it falls back to the row's label.
type ModelSignal struct {
	Model *ml.TrainedModel
}

func (s ModelSignal) Fires(row types.FeatureRow) bool {
	if s.Model == nil {
		return LabelSignal{}.Fires(row)
	}

	label, ok := s.Model.Predict(row)

	return ok && label == types.LabelBuy
}

// OnProcessDataCallback is called after each replayed row.
type OnProcessDataCallback func(current int, total int)

// Backtester replays signals and keeps the results of every run.
type Backtester struct {
	config        Config
	logger        *logger.Logger
	now           func() time.Time
	results       []types.BacktestResult
	onProcessData OnProcessDataCallback
}

func NewBacktester(config Config, log *logger.Logger) (*Backtester, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Backtester{
		config: config,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetOnProcessData installs a per-row progress callback.
func (b *Backtester) SetOnProcessData(callback OnProcessDataCallback) {
	b.onProcessData = callback
}

type openPosition struct {
	buyIndex  int
	sellIndex int
	buyPrice  float64
}

// Run replays signal over one symbol's ascending rows.
//
// At each row an open position due at that row is closed first, then a FLAT replay opens a
// position at the row's close when the signal fires. The sell row is the buy row plus the
// holding period, clamped to the last row, so a buy on the last row closes on that same row.
// A missing buy close never opens a position. A missing sell close voids the trade: the
// position is released without profit and the trade is not counted.
func (b *Backtester) Run(symbol string, rows []types.FeatureRow, signal Signal) (types.BacktestResult, error) {
	if len(rows) == 0 {
		return types.BacktestResult{}, errors.Newf(errors.ErrCodeEmptySeries, "no rows to backtest for %s", symbol)
	}

	if signal == nil {
		return types.BacktestResult{}, errors.New(errors.ErrCodeMissingParameter, "backtest signal is required")
	}

	last := len(rows) - 1
	result := types.BacktestResult{
		Symbol:    symbol,
		StartDate: rows[0].Timestamp,
		EndDate:   rows[last].Timestamp,
		TestDate:  b.now(),
	}

	if s, ok := signal.(ModelSignal); ok && s.Model != nil {
		result.ModelName = s.Model.Name
		result.ModelVersion = s.Model.Version
	}

	total := decimal.Zero

	var position *openPosition

	closePosition := func(i int) {
		sellPrice := rows[i].Close()
		if math.IsNaN(sellPrice) {
			result.VoidTrades++

			b.logger.Warn("Void trade, sell price missing",
				zap.String("symbol", symbol),
				zap.Int("buy_index", position.buyIndex),
				zap.Int("sell_index", i),
			)

			position = nil

			return
		}

		profit := decimal.NewFromFloat(sellPrice).Sub(decimal.NewFromFloat(position.buyPrice))
		total = total.Add(profit)
		result.TotalTrades++

		result.Trades = append(result.Trades, types.ClosedTrade{
			BuyIndex:  position.buyIndex,
			SellIndex: i,
			BuyTime:   rows[position.buyIndex].Timestamp,
			SellTime:  rows[i].Timestamp,
			BuyPrice:  position.buyPrice,
			SellPrice: sellPrice,
			Profit:    profit.InexactFloat64(),
		})

		position = nil
	}

	for i, row := range rows {
		if position != nil && position.sellIndex == i {
			closePosition(i)
		}

		if position == nil && signal.Fires(row) {
			buyPrice := row.Close()
			if !math.IsNaN(buyPrice) {
				position = &openPosition{
					buyIndex:  i,
					sellIndex: min(i+b.config.HoldingPeriod, last),
					buyPrice:  buyPrice,
				}

				if position.sellIndex == i {
					closePosition(i)
				}
			}
		}

		if b.onProcessData != nil {
			b.onProcessData(i+1, len(rows))
		}
	}

	result.TotalProfit = total.InexactFloat64()
	if result.TotalTrades > 0 {
		result.AverageProfit = total.Div(decimal.NewFromInt(int64(result.TotalTrades))).InexactFloat64()
	}

	b.logger.Debug("Backtest finished",
		zap.String("symbol", symbol),
		zap.Int("total_trades", result.TotalTrades),
		zap.Float64("total_profit", result.TotalProfit),
		zap.Int("void_trades", result.VoidTrades),
	)

	b.results = append(b.results, result)

	return result, nil
}

// Results returns every result produced by this backtester, in run order.
func (b *Backtester) Results() []types.BacktestResult {
	return append([]types.BacktestResult{}, b.results...)
}

// Reset forgets previous results.
func (b *Backtester) Reset() {
	b.results = nil
}

// WriteResults writes results as YAML stats to path.
func WriteResults(path string, results []types.BacktestResult) error {
	return types.WriteBacktestResults(path, results)
}
