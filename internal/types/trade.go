package types

import (
	"time"
)

// ClosedTrade is one FLAT -> LONG -> FLAT round trip of the backtester.
type ClosedTrade struct {
	BuyIndex  int       `yaml:"buy_index"`
	SellIndex int       `yaml:"sell_index"`
	BuyTime   time.Time `yaml:"buy_time"`
	SellTime  time.Time `yaml:"sell_time"`
	BuyPrice  float64   `yaml:"buy_price"`
	SellPrice float64   `yaml:"sell_price"`
	// Profit is SellPrice - BuyPrice for one share.
	Profit float64 `yaml:"profit"`
}

// Position is an open broker position.
type Position struct {
	Symbol     string    `yaml:"symbol" json:"symbol"`
	Quantity   float64   `yaml:"quantity" json:"quantity"`
	EntryPrice float64   `yaml:"entry_price" json:"entry_price"`
	StopPrice  float64   `yaml:"stop_price" json:"stop_price"`
	OpenedAt   time.Time `yaml:"opened_at" json:"opened_at"`
}

// MarketValue is quantity times price.
func (p Position) MarketValue(price float64) float64 {
	return p.Quantity * price
}
