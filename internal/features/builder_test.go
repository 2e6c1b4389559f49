package features

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-ml/internal/indicator"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/mocks"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type BuilderTestSuite struct {
	suite.Suite
	bars []types.PriceBar
}

func TestBuilderSuite(t *testing.T) {
	suite.Run(t, new(BuilderTestSuite))
}

func (suite *BuilderTestSuite) SetupTest() {
	generator := mocks.NewDataGenerator(42)
	suite.bars = generator.Generate(mocks.GeneratorConfig{
		Symbol:         "AAPL",
		StartTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       24 * time.Hour,
		Count:          50,
		InitialPrice:   100,
		Volatility:     0.02,
		Trend:          0.001,
		VolumeBase:     1000000,
		VolumeVariance: 0.3,
	})
}

func sorted(values []string) []string {
	out := append([]string{}, values...)
	sort.Strings(out)

	return out
}

func (suite *BuilderTestSuite) TestBollingerAndMACDColumns() {
	builder, err := NewBuilderFromNames([]string{"bb", "macd"}, indicator.DefaultParams())
	suite.Require().NoError(err)

	expected := []string{"open", "high", "low", "close", "trade_count", "volume", "vwap", "bb_upper", "bb_lower", "macd_line", "macd_signal"}
	suite.Equal(expected, builder.Columns())

	rows, err := builder.Build(suite.bars)
	suite.Require().NoError(err)
	suite.Len(rows, 50)

	for _, row := range rows {
		keys := make([]string, 0, len(row.Values))
		for key := range row.Values {
			keys = append(keys, key)
		}

		suite.Equal(sorted(expected), sorted(keys))
	}
}

func (suite *BuilderTestSuite) TestBaseOnly() {
	builder, err := NewBuilderFromNames(nil, indicator.DefaultParams())
	suite.Require().NoError(err)
	suite.Equal(BaseColumns, builder.Columns())

	rows, err := builder.Build(suite.bars)
	suite.Require().NoError(err)

	for i, row := range rows {
		suite.Equal(i, row.Index)
		suite.Equal(suite.bars[i].Close, row.Close())
		suite.Equal(suite.bars[i].VWAP, row.Value(ColumnVWAP))
		suite.True(row.Complete(builder.Columns()))
	}
}

func (suite *BuilderTestSuite) TestVWAPIndicatorReplacesBaseVWAP() {
	builder, err := NewBuilderFromNames([]string{"vwap"}, indicator.DefaultParams())
	suite.Require().NoError(err)
	suite.Equal(BaseColumns, builder.Columns())

	rows, err := builder.Build(suite.bars)
	suite.Require().NoError(err)

	// the cumulative vwap of the first bar is its close
	suite.InDelta(suite.bars[0].Close, rows[0].Value(ColumnVWAP), 1e-9)
}

func (suite *BuilderTestSuite) TestAllIndicators() {
	names := []string{"bb", "macd", "rsi", "stoch", "ema", "sma", "vwap"}
	builder, err := NewBuilderFromNames(names, indicator.DefaultParams())
	suite.Require().NoError(err)
	suite.Len(builder.Columns(), 7+9)

	rows, err := builder.Build(suite.bars)
	suite.Require().NoError(err)

	// warm-up rows are incomplete, the tail is complete
	suite.False(rows[0].Complete(builder.Columns()))
	suite.True(rows[49].Complete(builder.Columns()))
	suite.True(math.IsNaN(rows[0].Value("rsi")))
}

func (suite *BuilderTestSuite) TestUnknownIndicator() {
	_, err := NewBuilderFromNames([]string{"bb", "fibonacci"}, indicator.DefaultParams())
	suite.Error(err)
	suite.True(errors.IsConfigurationError(err))
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownIndicator))
}

func (suite *BuilderTestSuite) TestEmptySeries() {
	builder, err := NewBuilderFromNames([]string{"rsi"}, indicator.DefaultParams())
	suite.Require().NoError(err)

	_, err = builder.Build(nil)
	suite.Error(err)
	suite.True(errors.IsDataError(err))
}

func (suite *BuilderTestSuite) TestNilEngine() {
	_, err := NewBuilder(nil, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}
