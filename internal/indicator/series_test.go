package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"
)

type SeriesTestSuite struct {
	suite.Suite
}

func TestSeriesSuite(t *testing.T) {
	suite.Run(t, new(SeriesTestSuite))
}

func (suite *SeriesTestSuite) assertSeries(expected, actual []float64) {
	suite.Require().Len(actual, len(expected))

	for i := range expected {
		if math.IsNaN(expected[i]) {
			suite.True(math.IsNaN(actual[i]), "index %d: expected NaN, got %v", i, actual[i])

			continue
		}

		suite.InDelta(expected[i], actual[i], 1e-9, "index %d", i)
	}
}

var nan = math.NaN()

func (suite *SeriesTestSuite) TestSMA() {
	suite.assertSeries([]float64{nan, nan, 2, 3, 4}, SMA([]float64{1, 2, 3, 4, 5}, 3))
	suite.assertSeries([]float64{1, 2}, SMA([]float64{1, 2}, 1))
	suite.assertSeries([]float64{nan, nan}, SMA([]float64{1, 2}, 3))
}

func (suite *SeriesTestSuite) TestSMAWithGap() {
	suite.assertSeries(
		[]float64{nan, nan, nan, 3.5, 4.5, 5.5},
		SMA([]float64{1, nan, 3, 4, 5, 6}, 2),
	)
}

func (suite *SeriesTestSuite) TestRollingStdIsSampleStd() {
	out := RollingStd([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)
	suite.InDelta(math.Sqrt(32.0/7.0), out[7], 1e-9)
	suite.Equal(7, countLeadingNaN(out))
}

func (suite *SeriesTestSuite) TestRollingMinMax() {
	values := []float64{3, 1, 4, 1, 5, 9, 2}
	suite.assertSeries([]float64{nan, nan, 1, 1, 1, 1, 2}, RollingMin(values, 3))
	suite.assertSeries([]float64{nan, nan, 4, 4, 5, 9, 9}, RollingMax(values, 3))
	suite.assertSeries([]float64{nan, nan, nan, nan, 5}, RollingMax([]float64{3, nan, 4, 1, 5}, 3))
}

func (suite *SeriesTestSuite) TestExponentialMA() {
	// alpha = 0.5: 1, 1.5, 2.25, 3.125
	suite.assertSeries([]float64{nan, nan, 2.25, 3.125}, ExponentialMA([]float64{1, 2, 3, 4}, 3))
	suite.assertSeries([]float64{1, 2, 3}, ExponentialMA([]float64{1, 2, 3}, 1))
}

func (suite *SeriesTestSuite) TestBands() {
	upper, lower := Bands([]float64{1, 2, 3}, 3, 2)
	suite.assertSeries([]float64{nan, nan, 4}, upper)
	suite.assertSeries([]float64{nan, nan, 0}, lower)

	constant := []float64{10, 10, 10, 10}
	upper, lower = Bands(constant, 2, 2)
	suite.assertSeries([]float64{nan, 10, 10, 10}, upper)
	suite.assertSeries([]float64{nan, 10, 10, 10}, lower)
}

func (suite *SeriesTestSuite) TestMACDLinesWarmup() {
	values := make([]float64, 50)
	for i := range values {
		values[i] = float64(i)
	}

	line, signal := MACDLines(values, 12, 26, 9)
	suite.Equal(25, countLeadingNaN(line))
	suite.Equal(33, countLeadingNaN(signal))
	// a rising series keeps the fast average above the slow one
	suite.Greater(line[49], 0.0)
}

func (suite *SeriesTestSuite) TestMACDLinesConstant() {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 7
	}

	line, signal := MACDLines(values, 12, 26, 9)
	suite.InDelta(0, line[39], 1e-12)
	suite.InDelta(0, signal[39], 1e-12)
}

func (suite *SeriesTestSuite) TestRelativeStrength() {
	suite.assertSeries([]float64{nan, 100, 50, 50, 50}, RelativeStrength([]float64{1, 2, 1, 2, 1}, 2))

	rising := make([]float64, 20)
	falling := make([]float64, 20)
	for i := range rising {
		rising[i] = float64(i + 1)
		falling[i] = float64(20 - i)
	}

	up := RelativeStrength(rising, 14)
	suite.Equal(13, countLeadingNaN(up))
	suite.Equal(100.0, up[19])
	suite.Equal(0.0, RelativeStrength(falling, 14)[19])
}

func (suite *SeriesTestSuite) TestStochasticOscillator() {
	k, d := StochasticOscillator(
		[]float64{10, 11, 12},
		[]float64{8, 9, 10},
		[]float64{9, 10, 11},
		2, 2,
	)
	suite.assertSeries([]float64{nan, 200.0 / 3.0, 200.0 / 3.0}, k)
	suite.assertSeries([]float64{nan, nan, 200.0 / 3.0}, d)

	flatK, _ := StochasticOscillator([]float64{5, 5}, []float64{5, 5}, []float64{5, 5}, 2, 1)
	suite.True(math.IsNaN(flatK[1]))
}

func (suite *SeriesTestSuite) TestVWAPIsCumulative() {
	suite.assertSeries([]float64{10, 17.5, 17.5}, VWAP([]float64{10, 20, 17.5}, []float64{1, 3, 0}))
	suite.assertSeries([]float64{nan, 20}, VWAP([]float64{10, 20}, []float64{0, 2}))
}

func (suite *SeriesTestSuite) TestTrueRange() {
	suite.assertSeries([]float64{2, 3}, TrueRange([]float64{10, 12}, []float64{8, 9}, []float64{9, 11}))
	suite.Nil(TrueRange(nil, nil, nil))
}
