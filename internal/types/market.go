package types

import (
	"math"
	"sort"
	"time"
)

// PriceBar is one OHLCV observation for a symbol. Missing numeric values are NaN and a
// missing timestamp is the zero time; the cleaner removes or fills both before use.
type PriceBar struct {
	Symbol     string    `yaml:"symbol" json:"symbol" db:"symbol"`
	Timestamp  time.Time `yaml:"timestamp" json:"timestamp" db:"timestamp"`
	Open       float64   `yaml:"open" json:"open" db:"open"`
	High       float64   `yaml:"high" json:"high" db:"high"`
	Low        float64   `yaml:"low" json:"low" db:"low"`
	Close      float64   `yaml:"close" json:"close" db:"close"`
	Volume     float64   `yaml:"volume" json:"volume" db:"volume"`
	VWAP       float64   `yaml:"vwap" json:"vwap" db:"vwap"`
	TradeCount float64   `yaml:"trade_count" json:"trade_count" db:"trade_count"`
}

// Complete reports whether every field of the bar is present.
func (b PriceBar) Complete() bool {
	if b.Timestamp.IsZero() {
		return false
	}

	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume, b.VWAP, b.TradeCount} {
		if math.IsNaN(v) {
			return false
		}
	}

	return true
}

// Valid reports whether a complete bar satisfies high >= max(open, close) >= min(open, close) >= low
// with positive prices and non-negative counts.
func (b PriceBar) Valid() bool {
	if !b.Complete() {
		return false
	}

	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return false
	}

	if b.Volume < 0 || b.TradeCount < 0 {
		return false
	}

	return b.High >= math.Max(b.Open, b.Close) && math.Min(b.Open, b.Close) >= b.Low
}

// GroupBySymbol splits bars per symbol, each group sorted by ascending timestamp.
// The returned symbol list is sorted so callers iterate deterministically.
func GroupBySymbol(bars []PriceBar) ([]string, map[string][]PriceBar) {
	groups := make(map[string][]PriceBar)
	for _, bar := range bars {
		groups[bar.Symbol] = append(groups[bar.Symbol], bar)
	}

	symbols := make([]string, 0, len(groups))
	for symbol, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})

		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols, groups
}

// Closes returns the close prices of bars in order.
func Closes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, bar := range bars {
		out[i] = bar.Close
	}

	return out
}
