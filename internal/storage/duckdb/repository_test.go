package duckdb

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-ml/internal/logger"
	"github.com/rxtech-lab/argo-ml/internal/storage"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/mocks"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	suite.Suite
	ctx   context.Context
	repo  *Repository
	start time.Time
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (suite *RepositoryTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	repo, err := NewRepository(filepath.Join(suite.T().TempDir(), "argo-ml.duckdb"), logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.repo = repo
}

func (suite *RepositoryTestSuite) TearDownTest() {
	suite.NoError(suite.repo.Close())
}

func (suite *RepositoryTestSuite) TestPricesRoundTrip() {
	bars := append(
		mocks.FromCloses("MSFT", suite.start, 24*time.Hour, []float64{10, 11, 12}),
		mocks.FromCloses("AAPL", suite.start, 24*time.Hour, []float64{1, 2})...,
	)
	bars[1].VWAP = math.NaN()

	suite.Require().NoError(suite.repo.SavePrices(suite.ctx, bars))

	stored, err := suite.repo.GetPrices(suite.ctx, storage.PriceQuery{})
	suite.Require().NoError(err)
	suite.Require().Len(stored, 5)

	// ordered by symbol then time
	suite.Equal("AAPL", stored[0].Symbol)
	suite.Equal("MSFT", stored[2].Symbol)
	suite.True(stored[2].Timestamp.Equal(suite.start))
	suite.Equal(11.0, stored[3].Close)
	suite.True(math.IsNaN(stored[3].VWAP))
	suite.Equal(10.0, stored[4].TradeCount)
}

func (suite *RepositoryTestSuite) TestPriceFilters() {
	bars := append(
		mocks.FromCloses("MSFT", suite.start, 24*time.Hour, []float64{10, 11, 12, 13}),
		mocks.FromCloses("AAPL", suite.start, 24*time.Hour, []float64{1, 2})...,
	)
	suite.Require().NoError(suite.repo.SavePrices(suite.ctx, bars))

	stored, err := suite.repo.GetPrices(suite.ctx, storage.PriceQuery{
		Symbols: []string{"MSFT"},
		Start:   suite.start.AddDate(0, 0, 1),
		End:     suite.start.AddDate(0, 0, 2),
	})
	suite.Require().NoError(err)
	suite.Len(stored, 2)
	suite.Equal(11.0, stored[0].Close)
	suite.Equal(12.0, stored[1].Close)
}

func (suite *RepositoryTestSuite) TestSavePricesUpserts() {
	bars := mocks.FromCloses("MSFT", suite.start, 24*time.Hour, []float64{10, 11})
	suite.Require().NoError(suite.repo.SavePrices(suite.ctx, bars))

	bars[1].Close = 99
	suite.Require().NoError(suite.repo.SavePrices(suite.ctx, bars[1:]))

	stored, err := suite.repo.GetPrices(suite.ctx, storage.PriceQuery{Symbols: []string{"MSFT"}})
	suite.Require().NoError(err)
	suite.Len(stored, 2)
	suite.Equal(99.0, stored[1].Close)
}

func (suite *RepositoryTestSuite) TestSaveManyPricesInBatches() {
	bars := mocks.NewDataGenerator(42).Generate(mocks.DefaultConfig())
	suite.Require().NoError(suite.repo.SavePrices(suite.ctx, bars[:2500]))

	count, err := suite.repo.CountRows(suite.ctx, "stock_prices")
	suite.Require().NoError(err)
	suite.Equal(2500, count)
}

func (suite *RepositoryTestSuite) TestModelLatestVersion() {
	missing, err := suite.repo.GetModel(suite.ctx, "random_forest_[bb, macd]")
	suite.Require().NoError(err)
	suite.True(missing.IsNone())

	for v := 1; v <= 3; v++ {
		suite.Require().NoError(suite.repo.SaveModel(suite.ctx, types.ModelRecord{
			ID:            "model-" + string(rune('0'+v)),
			Name:          "random_forest_[bb, macd]",
			Kind:          types.ModelKindRandomForest,
			Version:       v,
			TrainingDate:  suite.start,
			Accuracy:      0.5,
			Report:        `{"accuracy":0.5}`,
			Features:      []string{"close", "bb_upper"},
			Payload:       "cGF5bG9hZA==",
			FormatVersion: "1.0.0",
		}))
	}

	latest, err := suite.repo.GetModel(suite.ctx, "random_forest_[bb, macd]")
	suite.Require().NoError(err)
	suite.Require().True(latest.IsSome())

	record := latest.Unwrap()
	suite.Equal(3, record.Version)
	suite.Equal("model-3", record.ID)
	suite.Equal(types.ModelKindRandomForest, record.Kind)
	suite.Equal([]string{"close", "bb_upper"}, record.Features)
	suite.Equal("cGF5bG9hZA==", record.Payload)
}

func (suite *RepositoryTestSuite) TestPredictionsAndLabels() {
	suite.Require().NoError(suite.repo.SavePredictions(suite.ctx, []types.Prediction{
		{Symbol: "AAPL", Timestamp: suite.start, Prediction: types.LabelBuy, PredictionDate: suite.start, ModelID: "m", ModelVersion: 1},
		{Symbol: "AAPL", Timestamp: suite.start.AddDate(0, 0, 1), Prediction: types.LabelHold, PredictionDate: suite.start, ModelID: "m", ModelVersion: 1},
	}))

	suite.Require().NoError(suite.repo.SaveLabels(suite.ctx, []types.LabelRecord{
		{Symbol: "AAPL", Timestamp: suite.start, Label: types.LabelSell},
	}))

	predictions, err := suite.repo.CountRows(suite.ctx, "model_predictions")
	suite.Require().NoError(err)
	suite.Equal(2, predictions)

	labels, err := suite.repo.CountRows(suite.ctx, "ml_labels")
	suite.Require().NoError(err)
	suite.Equal(1, labels)

	suite.NoError(suite.repo.SavePredictions(suite.ctx, nil))
}

func (suite *RepositoryTestSuite) TestBacktestResults() {
	result := types.BacktestResult{
		Symbol:        "AAPL",
		TotalTrades:   2,
		TotalProfit:   3.5,
		AverageProfit: 1.75,
		VoidTrades:    1,
		StartDate:     suite.start,
		EndDate:       suite.start.AddDate(0, 1, 0),
		TestDate:      suite.start.AddDate(0, 2, 0),
		ModelName:     "knn_[rsi]",
		ModelVersion:  4,
	}
	suite.Require().NoError(suite.repo.SaveBacktestResult(suite.ctx, result))

	stored, err := suite.repo.GetBacktestResults(suite.ctx, "AAPL")
	suite.Require().NoError(err)
	suite.Require().Len(stored, 1)
	suite.Equal(2, stored[0].TotalTrades)
	suite.Equal(1.75, stored[0].AverageProfit)
	suite.Equal(1, stored[0].VoidTrades)
	suite.Equal("knn_[rsi]", stored[0].ModelName)
}

func (suite *RepositoryTestSuite) TestSymbols() {
	suite.Require().NoError(suite.repo.SaveSymbols(suite.ctx, []string{"MSFT", "AAPL"}))
	suite.Require().NoError(suite.repo.SaveSymbols(suite.ctx, []string{"AAPL", "TSLA"}))

	symbols, err := suite.repo.GetSymbols(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal([]string{"AAPL", "MSFT", "TSLA"}, symbols)
}

func (suite *RepositoryTestSuite) TestRunBookkeeping() {
	run, err := suite.repo.StartRun(suite.ctx, "backtest_ml")
	suite.Require().NoError(err)
	suite.NotEmpty(run.ID)
	suite.Equal(types.RunStatusRunning, run.Status)

	run.Status = types.RunStatusFailed
	run.Message = "price source unavailable"
	suite.Require().NoError(suite.repo.StopRun(suite.ctx, run))

	stored, err := suite.repo.GetRun(suite.ctx, run.ID)
	suite.Require().NoError(err)
	suite.Require().True(stored.IsSome())
	suite.Equal(types.RunStatusFailed, stored.Unwrap().Status)
	suite.Equal("price source unavailable", stored.Unwrap().Message)
	suite.False(stored.Unwrap().StoppedAt.IsZero())

	err = suite.repo.StopRun(suite.ctx, types.Run{ID: "missing", Status: types.RunStatusSuccess})
	suite.True(errors.IsExternalServiceError(err))
}

func (suite *RepositoryTestSuite) TestInMemory() {
	repo, err := NewRepository("", nil)
	suite.Require().NoError(err)
	defer repo.Close()

	symbols, err := repo.GetSymbols(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(symbols)
}
