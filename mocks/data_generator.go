package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-ml/internal/types"
)

// DataGenerator generates realistic price bars for tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how market data is generated.
type GeneratorConfig struct {
	// Symbol is the trading symbol (e.g., "AAPL", "SPY")
	Symbol string
	// StartTime is the beginning of the data series
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	// Count is the number of data points to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% typical daily volatility)
	Volatility float64
	// Trend is the drift factor (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "TEST",
		StartTime:      time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Interval:       time.Minute,
		Count:          10000,
		InitialPrice:   100.0,
		Volatility:     0.002, // 0.2% per bar
		Trend:          0.0,   // neutral
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate returns config.Count bars following geometric Brownian motion.
//
// Unlike plain OHLCV fixtures, every bar also carries VWAP and TradeCount because the feature
// builder reads both as base columns: VWAP is the bar's typical price and TradeCount is one trade
// per hundred shares. Prices are rounded to four decimals and stay positive.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.PriceBar {
	bars := make([]types.PriceBar, config.Count)
	price := config.InitialPrice
	drift := config.Trend / float64(config.Count)

	for i := range bars {
		open := price

		closePrice := open * (1 + config.Volatility*g.gaussian() + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		high := math.Max(open, closePrice) + g.extension(config.Volatility, open)

		low := math.Min(open, closePrice) - g.extension(config.Volatility, open)
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volume := config.VolumeBase * (1 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bars[i] = types.PriceBar{
			Symbol:     config.Symbol,
			Timestamp:  config.StartTime.Add(time.Duration(i) * config.Interval),
			Open:       roundToDecimals(open, 4),
			High:       roundToDecimals(high, 4),
			Low:        roundToDecimals(low, 4),
			Close:      roundToDecimals(closePrice, 4),
			Volume:     math.Round(volume),
			VWAP:       roundToDecimals((high+low+closePrice)/3, 4),
			TradeCount: math.Max(1, math.Round(volume/100)),
		}

		price = closePrice
	}

	return bars
}

// gaussian draws a standard normal value (Box-Muller).
func (g *DataGenerator) gaussian() float64 {
	u1, u2 := g.rng.Float64(), g.rng.Float64()

	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// extension is how far a wick reaches past the open/close range.
func (g *DataGenerator) extension(volatility, open float64) float64 {
	return math.Abs(g.rng.Float64() * volatility * open * 0.5)
}

// GenerateMultiSymbol generates data for multiple symbols.
func (g *DataGenerator) GenerateMultiSymbol(symbols []string, baseConfig GeneratorConfig) []types.PriceBar {
	var allData []types.PriceBar

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		// Vary initial price and volatility slightly per symbol
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		symbolData := g.Generate(config)
		allData = append(allData, symbolData...)
	}

	return allData
}

// FromCloses builds one bar per close with a fixed one percent high/low spread,
// constant volume of 1000 and ten trades per bar.
func FromCloses(symbol string, start time.Time, interval time.Duration, closes []float64) []types.PriceBar {
	bars := make([]types.PriceBar, len(closes))

	for i, c := range closes {
		bars[i] = types.PriceBar{
			Symbol:     symbol,
			Timestamp:  start.Add(time.Duration(i) * interval),
			Open:       c,
			High:       c * 1.01,
			Low:        c * 0.99,
			Close:      c,
			Volume:     1000,
			VWAP:       c,
			TradeCount: 10,
		}
	}

	return bars
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
