package backtest

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-ml/internal/logger"
	"github.com/rxtech-lab/argo-ml/internal/ml"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type BacktesterTestSuite struct {
	suite.Suite
	backtester *Backtester
}

func TestBacktesterSuite(t *testing.T) {
	suite.Run(t, new(BacktesterTestSuite))
}

func (suite *BacktesterTestSuite) SetupTest() {
	backtester, err := NewBacktester(DefaultConfig(), logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.backtester = backtester
}

// labeledRows builds rows with the given closes; rows listed in buys carry a buy label.
func labeledRows(closes []float64, buys ...int) []types.FeatureRow {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]types.FeatureRow, len(closes))

	for i, c := range closes {
		rows[i] = types.FeatureRow{
			Symbol:    "TEST",
			Timestamp: start.AddDate(0, 0, i),
			Index:     i,
			Values:    map[string]float64{"close": c},
			Label:     types.LabelHold,
		}
	}

	for _, i := range buys {
		rows[i].Label = types.LabelBuy
	}

	return rows
}

func rising(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = float64(10 + i)
	}

	return closes
}

func (suite *BacktesterTestSuite) TestSingleBuy() {
	result, err := suite.backtester.Run("TEST", labeledRows(rising(10), 0), LabelSignal{})
	suite.Require().NoError(err)

	suite.Equal(1, result.TotalTrades)
	suite.Equal(5.0, result.TotalProfit)
	suite.Equal(5.0, result.AverageProfit)
	suite.Equal(0, result.VoidTrades)
	suite.Require().Len(result.Trades, 1)
	suite.Equal(0, result.Trades[0].BuyIndex)
	suite.Equal(5, result.Trades[0].SellIndex)
	suite.Equal(15.0, result.Trades[0].SellPrice)
}

func (suite *BacktesterTestSuite) TestModelSignalWithoutModelUsesLabels() {
	result, err := suite.backtester.Run("TEST", labeledRows(rising(10), 0), ModelSignal{})
	suite.Require().NoError(err)

	suite.Equal(1, result.TotalTrades)
	suite.Equal(5.0, result.TotalProfit)
	suite.Empty(result.ModelName)
	suite.Require().Len(result.Trades, 1)
	suite.Equal(5, result.Trades[0].SellIndex)
}

func (suite *BacktesterTestSuite) TestNoPyramiding() {
	buys := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	result, err := suite.backtester.Run("TEST", labeledRows(rising(10), buys...), LabelSignal{})
	suite.Require().NoError(err)

	// 0->5, 5->9 clamped, then a zero-hold buy on the last row
	suite.Equal(3, result.TotalTrades)
	suite.Equal(9.0, result.TotalProfit)
	suite.Equal(3.0, result.AverageProfit)
	suite.Equal(9, result.Trades[2].BuyIndex)
	suite.Equal(9, result.Trades[2].SellIndex)
	suite.Equal(0.0, result.Trades[2].Profit)
}

func (suite *BacktesterTestSuite) TestSellIndexClamped() {
	result, err := suite.backtester.Run("TEST", labeledRows(rising(8), 6), LabelSignal{})
	suite.Require().NoError(err)

	suite.Equal(1, result.TotalTrades)
	suite.Equal(7, result.Trades[0].SellIndex)
	suite.Equal(1.0, result.TotalProfit)
}

func (suite *BacktesterTestSuite) TestNoSignal() {
	result, err := suite.backtester.Run("TEST", labeledRows(rising(10)), LabelSignal{})
	suite.Require().NoError(err)

	suite.Equal(0, result.TotalTrades)
	suite.Equal(0.0, result.TotalProfit)
	suite.Equal(0.0, result.AverageProfit)
}

func (suite *BacktesterTestSuite) TestMissingSellPriceVoidsTrade() {
	closes := rising(10)
	closes[5] = math.NaN()

	result, err := suite.backtester.Run("TEST", labeledRows(closes, 0), LabelSignal{})
	suite.Require().NoError(err)

	suite.Equal(0, result.TotalTrades)
	suite.Equal(1, result.VoidTrades)
	suite.Equal(0.0, result.TotalProfit)
	suite.Equal(0.0, result.AverageProfit)
	suite.Empty(result.Trades)
}

func (suite *BacktesterTestSuite) TestVoidTradeReleasesPosition() {
	closes := rising(12)
	closes[5] = math.NaN()

	// the position from row 0 is released at row 5, so the row 5 buy cannot use a missing
	// close and the row 6 buy opens instead
	result, err := suite.backtester.Run("TEST", labeledRows(closes, 0, 5, 6), LabelSignal{})
	suite.Require().NoError(err)

	suite.Equal(1, result.VoidTrades)
	suite.Equal(1, result.TotalTrades)
	suite.Equal(6, result.Trades[0].BuyIndex)
	suite.Equal(11, result.Trades[0].SellIndex)
	suite.Equal(5.0, result.TotalProfit)
}

func (suite *BacktesterTestSuite) TestTradeAccounting() {
	rng := rand.New(rand.NewSource(7))
	closes := make([]float64, 200)
	buys := []int{}

	for i := range closes {
		closes[i] = 50 + rng.Float64()*10
		if rng.Float64() < 0.3 {
			buys = append(buys, i)
		}
	}

	result, err := suite.backtester.Run("RAND", labeledRows(closes, buys...), LabelSignal{})
	suite.Require().NoError(err)

	suite.Len(result.Trades, result.TotalTrades)

	sum := 0.0
	for i, trade := range result.Trades {
		suite.InDelta(trade.SellPrice-trade.BuyPrice, trade.Profit, 1e-9)
		suite.LessOrEqual(trade.SellIndex-trade.BuyIndex, 5)

		if i > 0 {
			suite.GreaterOrEqual(trade.BuyIndex, result.Trades[i-1].SellIndex)
		}

		sum += trade.Profit
	}

	suite.InDelta(sum, result.TotalProfit, 1e-9)
	suite.InDelta(result.TotalProfit/float64(result.TotalTrades), result.AverageProfit, 1e-9)
}

func (suite *BacktesterTestSuite) TestModelSignal() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var training []types.FeatureRow

	for i := 0; i < 40; i++ {
		label, f := types.LabelSell, -1.0-float64(i%5)
		if i%2 == 0 {
			label, f = types.LabelBuy, 1.0+float64(i%5)
		}

		training = append(training, types.FeatureRow{
			Symbol:    "TRAIN",
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Values:    map[string]float64{"f": f, "close": 10},
			Label:     label,
		})
	}

	config := ml.DefaultTrainerConfig()
	config.Kind = "decision_tree"
	config.Name = "decision_tree_[]"
	config.Features = []string{"f"}

	trainer, err := ml.NewTrainer(config, nil)
	suite.Require().NoError(err)

	model, err := trainer.Train(training)
	suite.Require().NoError(err)

	rows := labeledRows(rising(10))
	for i := range rows {
		rows[i].Values["f"] = -3
	}

	rows[0].Values["f"] = 3
	rows[1].Values["f"] = math.NaN()

	result, err := suite.backtester.Run("TEST", rows, ModelSignal{Model: model})
	suite.Require().NoError(err)

	suite.Equal(1, result.TotalTrades)
	suite.Equal(5.0, result.TotalProfit)
	suite.Equal("decision_tree_[]", result.ModelName)
	suite.Equal(1, result.ModelVersion)
}

func (suite *BacktesterTestSuite) TestResultsAccumulate() {
	_, err := suite.backtester.Run("A", labeledRows(rising(10), 0), LabelSignal{})
	suite.Require().NoError(err)
	_, err = suite.backtester.Run("B", labeledRows(rising(10)), LabelSignal{})
	suite.Require().NoError(err)

	results := suite.backtester.Results()
	suite.Len(results, 2)
	suite.Equal("B", results[1].Symbol)

	path := filepath.Join(suite.T().TempDir(), "stats.yaml")
	suite.Require().NoError(WriteResults(path, results))

	read, err := types.ReadBacktestResults(path)
	suite.Require().NoError(err)
	suite.Equal(5.0, read[0].TotalProfit)
	suite.Len(read[0].Trades, 1)

	suite.backtester.Reset()
	suite.Empty(suite.backtester.Results())
}

func (suite *BacktesterTestSuite) TestProgressCallback() {
	calls := 0
	suite.backtester.SetOnProcessData(func(current, total int) {
		calls++
		suite.Equal(10, total)
	})

	_, err := suite.backtester.Run("TEST", labeledRows(rising(10)), LabelSignal{})
	suite.Require().NoError(err)
	suite.Equal(10, calls)
}

func (suite *BacktesterTestSuite) TestInvalidInput() {
	_, err := suite.backtester.Run("TEST", nil, LabelSignal{})
	suite.True(errors.IsDataError(err))

	_, err = suite.backtester.Run("TEST", labeledRows(rising(3)), nil)
	suite.Error(err)

	_, err = NewBacktester(Config{HoldingPeriod: 0}, nil)
	suite.True(errors.IsConfigurationError(err))
}
