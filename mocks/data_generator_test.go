package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type DataGeneratorTestSuite struct {
	suite.Suite
}

func TestDataGeneratorSuite(t *testing.T) {
	suite.Run(t, new(DataGeneratorTestSuite))
}

func (suite *DataGeneratorTestSuite) TestGenerate() {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Count = 100

	data := gen.Generate(config)
	suite.Len(data, 100)

	for i, bar := range data {
		suite.Equal(config.Symbol, bar.Symbol)
		suite.True(bar.Valid(), "bar %d is not valid: %+v", i, bar)

		if i > 0 {
			suite.Equal(config.Interval, bar.Timestamp.Sub(data[i-1].Timestamp))
		}
	}
}

func (suite *DataGeneratorTestSuite) TestVWAPAndTradeCount() {
	config := DefaultConfig()
	config.Count = 50

	for _, bar := range NewDataGenerator(3).Generate(config) {
		suite.GreaterOrEqual(bar.VWAP, bar.Low)
		suite.LessOrEqual(bar.VWAP, bar.High)
		suite.GreaterOrEqual(bar.TradeCount, 1.0)
	}
}

func (suite *DataGeneratorTestSuite) TestReproducibility() {
	config := DefaultConfig()
	config.Count = 10

	data1 := NewDataGenerator(42).Generate(config)
	data2 := NewDataGenerator(42).Generate(config)
	suite.Equal(data1, data2)

	data3 := NewDataGenerator(123).Generate(config)
	suite.NotEqual(data1, data3)
}

func (suite *DataGeneratorTestSuite) TestGenerateMultiSymbol() {
	config := DefaultConfig()
	config.Count = 20

	data := NewDataGenerator(7).GenerateMultiSymbol([]string{"AAPL", "MSFT"}, config)
	suite.Len(data, 40)
	suite.Equal("AAPL", data[0].Symbol)
	suite.Equal("MSFT", data[39].Symbol)
}

func (suite *DataGeneratorTestSuite) TestFromCloses() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := FromCloses("PENNY", start, 24*time.Hour, []float64{1, 2, 3})

	suite.Len(bars, 3)
	suite.Equal(2.0, bars[1].Close)
	suite.Equal(start.Add(48*time.Hour), bars[2].Timestamp)

	for _, bar := range bars {
		suite.True(bar.Valid())
	}
}
