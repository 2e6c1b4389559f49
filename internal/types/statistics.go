package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BacktestResult aggregates one symbol's replay.
type BacktestResult struct {
	Symbol string `yaml:"symbol" json:"symbol" db:"symbol"`
	// Count of closed trades. Void trades are not included.
	TotalTrades int `yaml:"total_trades" json:"total_trades" db:"total_trades"`
	// Sum of sell price minus buy price over closed trades.
	TotalProfit float64 `yaml:"total_profit" json:"total_profit" db:"total_profit"`
	// TotalProfit / TotalTrades, 0 without trades.
	AverageProfit float64 `yaml:"average_profit" json:"average_profit" db:"average_profit"`
	// Trades whose sell price was missing; no profit was realised for them.
	VoidTrades   int       `yaml:"void_trades" json:"void_trades" db:"void_trades"`
	StartDate    time.Time `yaml:"start_date" json:"start_date" db:"start_date"`
	EndDate      time.Time `yaml:"end_date" json:"end_date" db:"end_date"`
	TestDate     time.Time `yaml:"test_date" json:"test_date" db:"test_date"`
	ModelName    string    `yaml:"model_name,omitempty" json:"model_name,omitempty" db:"model_name"`
	ModelVersion int       `yaml:"model_version,omitempty" json:"model_version,omitempty" db:"model_version"`
	// Trades is kept for the stats file; it is not persisted by repositories.
	Trades []ClosedTrade `yaml:"trades,omitempty" json:"-" db:"-"`
}

// WriteBacktestResults writes results to path as YAML.
func WriteBacktestResults(path string, results []BacktestResult) error {
	data, err := yaml.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest results to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest results to file: %w", err)
	}

	return nil
}

// ReadBacktestResults reads a file produced by WriteBacktestResults.
func ReadBacktestResults(path string) ([]BacktestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backtest results: %w", err)
	}

	var results []BacktestResult
	if err := yaml.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal backtest results: %w", err)
	}

	return results, nil
}
