package cleaner

import (
	"math"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/mocks"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type CleanerTestSuite struct {
	suite.Suite
	start time.Time
}

func TestCleanerSuite(t *testing.T) {
	suite.Run(t, new(CleanerTestSuite))
}

func (suite *CleanerTestSuite) SetupTest() {
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *CleanerTestSuite) bars(closes ...float64) []types.PriceBar {
	return mocks.FromCloses("TEST", suite.start, 24*time.Hour, closes)
}

func (suite *CleanerTestSuite) TestCompleteSeriesUnchanged() {
	bars := suite.bars(1, 2, 3, 4)
	kept, indices := Clean(bars)

	suite.Equal(bars, kept)
	suite.Equal([]int{0, 1, 2, 3}, indices)
}

func (suite *CleanerTestSuite) TestForwardFill() {
	bars := suite.bars(1, 2, 3, 4)
	bars[2].Close = math.NaN()
	bars[2].VWAP = math.NaN()

	kept, indices := Clean(bars)
	suite.Len(kept, 4)
	suite.Equal([]int{0, 1, 2, 3}, indices)
	suite.Equal(2.0, kept[2].Close)
	suite.Equal(2.0, kept[2].VWAP)

	// input untouched
	suite.True(math.IsNaN(bars[2].Close))
}

func (suite *CleanerTestSuite) TestLeadingGapDropped() {
	bars := suite.bars(1, 2, 3)
	bars[0].Open = math.NaN()

	kept, indices := Clean(bars)
	suite.Len(kept, 2)
	suite.Equal([]int{1, 2}, indices)
}

func (suite *CleanerTestSuite) TestBackfillKeepsLeadingRow() {
	bars := suite.bars(1, 2, 3)
	bars[0].Open = math.NaN()
	bars[0].Volume = math.NaN()

	kept, indices := CleanBackfill(bars)
	suite.Len(kept, 3)
	suite.Equal([]int{0, 1, 2}, indices)
	suite.Equal(2.0, kept[0].Open)
	suite.Equal(1000.0, kept[0].Volume)
}

func (suite *CleanerTestSuite) TestMissingTimestampNeverFilled() {
	bars := suite.bars(1, 2, 3)
	bars[1].Timestamp = time.Time{}

	for _, clean := range []func([]types.PriceBar) ([]types.PriceBar, []int){Clean, CleanBackfill} {
		kept, indices := clean(bars)
		suite.Equal([]int{0, 2}, indices)
		suite.Len(kept, 2)
	}
}

func (suite *CleanerTestSuite) TestAllMissing() {
	bars := suite.bars(1, 2)
	for i := range bars {
		bars[i].Close = math.NaN()
	}

	kept, indices := CleanBackfill(bars)
	suite.Empty(kept)
	suite.Empty(indices)

	kept, indices = Clean(nil)
	suite.Empty(kept)
	suite.Empty(indices)
}

func (suite *CleanerTestSuite) TestNeverReordersOrInvents() {
	bars := mocks.NewDataGenerator(3).Generate(mocks.GeneratorConfig{
		Symbol:         "GBM",
		StartTime:      suite.start,
		Interval:       time.Hour,
		Count:          200,
		InitialPrice:   20,
		Volatility:     0.01,
		VolumeBase:     5000,
		VolumeVariance: 0.2,
	})

	// knock out a scattering of fields
	for i := 0; i < len(bars); i += 7 {
		bars[i].Close = math.NaN()
	}

	for i := 0; i < len(bars); i += 11 {
		bars[i].Timestamp = time.Time{}
	}

	for _, clean := range []func([]types.PriceBar) ([]types.PriceBar, []int){Clean, CleanBackfill} {
		kept, indices := clean(bars)
		suite.LessOrEqual(len(kept), len(bars))
		suite.Len(indices, len(kept))

		for i := range kept {
			if i > 0 {
				suite.Greater(indices[i], indices[i-1])
				suite.True(kept[i].Timestamp.After(kept[i-1].Timestamp))
			}

			suite.Equal(bars[indices[i]].Timestamp, kept[i].Timestamp)
			suite.False(math.IsNaN(kept[i].Close))
		}
	}
}

func (suite *CleanerTestSuite) TestCleanerMode() {
	bars := suite.bars(1, 2)
	bars[0].Close = math.NaN()

	ffill, err := NewCleaner(ModeForwardFill, nil)
	suite.Require().NoError(err)
	kept, _ := ffill.Clean(bars)
	suite.Len(kept, 1)

	backfill, err := NewCleaner(ModeBackfill, nil)
	suite.Require().NoError(err)
	suite.Equal(ModeBackfill, backfill.Mode())
	kept, _ = backfill.Clean(bars)
	suite.Len(kept, 2)

	_, err = NewCleaner("interpolate", nil)
	suite.True(errors.IsConfigurationError(err))

	mode, err := ParseMode("")
	suite.NoError(err)
	suite.Equal(ModeForwardFill, mode)
}
